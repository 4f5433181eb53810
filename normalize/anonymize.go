package normalize

import (
	"fmt"
	"sort"

	"github.com/chrsbats/koine/rule"
)

// HoistAnonymous performs §4.3's anonymous-naming pass: any inline sub-node
// that carries an ast directive beyond a bare name, and is not itself a
// plain rule reference, is moved into a freshly named top-level rule so the
// matcher's single-item-sequence collapse can never separate the directive
// from the node it was written on. Runs to a fixpoint: rules synthesized by
// one round are themselves walked as well. Nested candidates are hoisted
// innermost first within a single walk, so a synthesized rule's body
// already refers to its own hoisted sub-nodes by name.
func HoistAnonymous(g *rule.Grammar) {
	h := &hoister{g: g, counters: map[string]int{}}

	names := make([]string, 0, len(g.Rules))
	for name := range g.Rules {
		names = append(names, name)
	}
	sort.Strings(names)

	queue := names
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		g.Rules[name] = h.walkChildren(name, g.Rules[name])
		if len(h.added) > 0 {
			sort.Strings(h.added)
			queue = append(queue, h.added...)
			h.added = nil
		}
	}
}

type hoister struct {
	g        *rule.Grammar
	counters map[string]int
	added    []string
}

// walkChildren rewrites n's immediate children/child in place, recursing
// through considerAndWalk. The top-level node of a rule is never itself a
// hoisting candidate — only its sub-nodes are, per §4.3's "any sub-node".
func (h *hoister) walkChildren(parent string, n *rule.Node) *rule.Node {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case rule.Choice, rule.Sequence:
		for i, c := range n.Children {
			n.Children[i] = h.considerAndWalk(parent, c)
		}
	case rule.ZeroOrMore, rule.OneOrMore, rule.Optional, rule.PositiveLookahead, rule.NegativeLookahead:
		n.Child = h.considerAndWalk(parent, n.Child)
	}
	return n
}

func (h *hoister) considerAndWalk(parent string, n *rule.Node) *rule.Node {
	n = h.walkChildren(parent, n)
	if !shouldHoist(n) {
		return n
	}
	h.counters[parent]++
	synth := fmt.Sprintf("%s__%d", parent, h.counters[parent])
	stripped := n.Clone()
	stripped.AST = nil
	h.g.Rules[synth] = &rule.Node{Kind: rule.Sequence, Children: []*rule.Node{stripped}, AST: n.AST}
	h.added = append(h.added, synth)
	return &rule.Node{Kind: rule.RuleRef, Str: synth}
}

func shouldHoist(n *rule.Node) bool {
	return n.Kind != rule.RuleRef && n.AST.HasDirectiveBeyondName()
}
