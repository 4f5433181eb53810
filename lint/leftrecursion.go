package lint

import (
	"fmt"
	"sort"

	"github.com/chrsbats/koine/rule"
)

// CheckLeftRecursion implements §4.4's preemptive left-recursion
// detection (the matcher's own runtime guard in peg.Matcher is the
// defense-in-depth backstop for anything this static pass misses). The
// algorithm: compute, for each rule, the set of rules that could be
// invoked at the very start of matching it (leftRefs, threading through
// nullable sequence prefixes, choice branches, and quantifier/lookahead
// pass-through), then DFS the resulting call graph with the classic
// white/gray/black coloring to find a cycle.
func CheckLeftRecursion(g *rule.Grammar) error {
	a := &leftRecAnalyzer{
		g:              g,
		nullableMemo:   map[string]bool{},
		nullableActive: map[string]bool{},
		leftRefsMemo:   map[string][]string{},
	}

	names := make([]string, 0, len(g.Rules))
	for name := range g.Rules {
		names = append(names, name)
	}
	sort.Strings(names)

	color := map[string]int{} // 0 white, 1 gray, 2 black
	var offending string
	var visit func(name string) bool
	visit = func(name string) bool {
		if color[name] == 2 {
			return false
		}
		if color[name] == 1 {
			offending = name
			return true
		}
		color[name] = 1
		for _, ref := range a.leftRefs(name) {
			if visit(ref) {
				return true
			}
		}
		color[name] = 2
		return false
	}

	for _, name := range names {
		if offending != "" {
			break
		}
		visit(name)
	}

	if offending == "" {
		return nil
	}
	return &Error{
		Kind:    KindCompilation,
		Rules:   []string{offending},
		Message: fmt.Sprintf("koine: left recursion detected in rule %q", offending),
	}
}

type leftRecAnalyzer struct {
	g              *rule.Grammar
	nullableMemo   map[string]bool
	nullableActive map[string]bool
	leftRefsMemo   map[string][]string
}

// nullableRule reports whether name's rule can match the empty string.
// Seeded non-nullable while a rule is being resolved, per spec.md §9's
// cycle-safety guidance.
func (a *leftRecAnalyzer) nullableRule(name string) bool {
	if v, ok := a.nullableMemo[name]; ok {
		return v
	}
	if a.nullableActive[name] {
		return false
	}
	a.nullableActive[name] = true
	body := a.g.Rules[name]
	result := false
	if body != nil {
		result = a.nullableNode(body)
	}
	delete(a.nullableActive, name)
	a.nullableMemo[name] = result
	return result
}

func (a *leftRecAnalyzer) nullableNode(n *rule.Node) bool {
	switch n.Kind {
	case rule.Literal:
		return n.Str == ""
	case rule.Regex, rule.TokenRef:
		return false
	case rule.RuleRef:
		return a.nullableRule(n.Str)
	case rule.Choice:
		for _, c := range n.Children {
			if a.nullableNode(c) {
				return true
			}
		}
		return false
	case rule.Sequence:
		for _, c := range n.Children {
			if !a.nullableNode(c) {
				return false
			}
		}
		return true
	case rule.ZeroOrMore, rule.Optional, rule.PositiveLookahead, rule.NegativeLookahead:
		return true
	case rule.OneOrMore:
		return a.nullableNode(n.Child)
	case rule.SubgrammarRef:
		return true
	default:
		return false
	}
}

// leftRefs returns the set of rule names that could be invoked at
// position zero of matching name's rule.
func (a *leftRecAnalyzer) leftRefs(name string) []string {
	if v, ok := a.leftRefsMemo[name]; ok {
		return v
	}
	body := a.g.Rules[name]
	var out []string
	if body != nil {
		seen := map[string]bool{}
		for _, ref := range a.nodeLeftRefs(body) {
			if !seen[ref] {
				seen[ref] = true
				out = append(out, ref)
			}
		}
	}
	a.leftRefsMemo[name] = out
	return out
}

func (a *leftRecAnalyzer) nodeLeftRefs(n *rule.Node) []string {
	switch n.Kind {
	case rule.RuleRef:
		return []string{n.Str}
	case rule.Literal, rule.Regex, rule.TokenRef:
		return nil
	case rule.Choice:
		var out []string
		for _, c := range n.Children {
			out = append(out, a.nodeLeftRefs(c)...)
		}
		return out
	case rule.Sequence:
		var out []string
		for _, c := range n.Children {
			out = append(out, a.nodeLeftRefs(c)...)
			if !a.nullableNode(c) {
				break
			}
		}
		return out
	case rule.ZeroOrMore, rule.OneOrMore, rule.Optional, rule.PositiveLookahead, rule.NegativeLookahead:
		return a.nodeLeftRefs(n.Child)
	default:
		return nil
	}
}
