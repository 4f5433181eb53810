// Package lint implements Koine's C4 static linter (§4.4): directive
// conflicts, reachability, left-recursion, and always-empty rule
// detection, run after normalization and before PEG rendering.
package lint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chrsbats/koine/rule"
)

// CheckLeafSubgrammarConflict implements the one directive check that
// must run *before* subgrammar replacement (§4.4: "this check runs before
// subgrammar replacement"), since by the time normalization has run there
// is no subgrammar node left in the tree to conflict with. Call this on
// the freshly parsed grammar, ahead of normalize.Normalize.
func CheckLeafSubgrammarConflict(g *rule.Grammar) error {
	var offenders []string
	for name, body := range g.Rules {
		if anyLeaf(body) && anySubgrammar(body) {
			offenders = append(offenders, name)
		}
	}
	if len(offenders) == 0 {
		return nil
	}
	sort.Strings(offenders)
	return &Error{
		Kind:  KindConfiguration,
		Rules: offenders,
		Message: fmt.Sprintf("koine: rule(s) combine a leaf directive with a subgrammar directive: %s",
			strings.Join(offenders, ", ")),
	}
}

func anyLeaf(n *rule.Node) bool {
	if n == nil {
		return false
	}
	if n.AST != nil && n.AST.Leaf {
		return true
	}
	switch n.Kind {
	case rule.Choice, rule.Sequence:
		for _, c := range n.Children {
			if anyLeaf(c) {
				return true
			}
		}
	case rule.ZeroOrMore, rule.OneOrMore, rule.Optional, rule.PositiveLookahead, rule.NegativeLookahead:
		return anyLeaf(n.Child)
	}
	return false
}

func anySubgrammar(n *rule.Node) bool {
	if n == nil {
		return false
	}
	if n.Kind == rule.SubgrammarRef {
		return true
	}
	switch n.Kind {
	case rule.Choice, rule.Sequence:
		for _, c := range n.Children {
			if anySubgrammar(c) {
				return true
			}
		}
	case rule.ZeroOrMore, rule.OneOrMore, rule.Optional, rule.PositiveLookahead, rule.NegativeLookahead:
		return anySubgrammar(n.Child)
	}
	return false
}

// CheckDirectiveConflicts implements §4.4's remaining two directive
// checks. Both operate on a rule's own top-level ast block: post-hoisting
// every directive beyond a bare name lives on a top-level rule (§4.3), so
// there is no need to search inline sub-nodes here.
func CheckDirectiveConflicts(g *rule.Grammar) error {
	var offenders []string
	for name, body := range g.Rules {
		if body.AST == nil {
			continue
		}
		if body.AST.Promote && body.AST.Structure != nil {
			offenders = append(offenders, fmt.Sprintf("%s (promote/structure)", name))
		}
		if body.AST.Promote && body.AST.Discard {
			offenders = append(offenders, fmt.Sprintf("%s (promote/discard)", name))
		}
	}
	if len(offenders) == 0 {
		return nil
	}
	sort.Strings(offenders)
	return &Error{
		Kind:    KindConfiguration,
		Message: fmt.Sprintf("koine: conflicting ast directives: %s", strings.Join(offenders, ", ")),
	}
}
