package lint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chrsbats/koine/rule"
)

// CheckAlwaysEmpty implements §4.4's always-empty predicate: a rule that
// can never contribute AST content, and is not itself explicitly marked
// discard, fails compilation.
func CheckAlwaysEmpty(g *rule.Grammar) error {
	a := &emptyAnalyzer{g: g, memo: map[string]bool{}, active: map[string]bool{}}

	var offenders []string
	names := make([]string, 0, len(g.Rules))
	for name := range g.Rules {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		body := g.Rules[name]
		if body.AST != nil && body.AST.Discard {
			continue
		}
		if a.ruleEmpty(name) {
			offenders = append(offenders, name)
		}
	}
	if len(offenders) == 0 {
		return nil
	}
	return &Error{
		Kind:    KindConfiguration,
		Rules:   offenders,
		Message: fmt.Sprintf("koine: rule(s) classified always-empty: %s", strings.Join(offenders, ", ")),
	}
}

type emptyAnalyzer struct {
	g      *rule.Grammar
	memo   map[string]bool
	active map[string]bool
}

// ruleEmpty is seeded non-empty (false) while a rule is being resolved,
// per spec.md §9's cycle-safety guidance for this exact predicate.
func (a *emptyAnalyzer) ruleEmpty(name string) bool {
	if v, ok := a.memo[name]; ok {
		return v
	}
	if a.active[name] {
		return false
	}
	a.active[name] = true
	body := a.g.Rules[name]
	result := false
	if body != nil {
		result = a.nodeEmptyTop(body)
	}
	delete(a.active, name)
	a.memo[name] = result
	return result
}

// nodeEmptyTop applies the rule-level base cases from a top-level ast
// block (discard/leaf/structure) before falling through to the
// structural, Kind-based recursion.
func (a *emptyAnalyzer) nodeEmptyTop(n *rule.Node) bool {
	if n.AST != nil {
		if n.AST.Discard {
			return true
		}
		if n.AST.Leaf {
			return false
		}
		if n.AST.Structure != nil {
			return false
		}
	}
	return a.nodeEmptyKind(n)
}

func (a *emptyAnalyzer) nodeEmptyKind(n *rule.Node) bool {
	switch n.Kind {
	case rule.Literal, rule.Regex, rule.PositiveLookahead, rule.NegativeLookahead:
		return false
	case rule.TokenRef:
		return a.tokenEmpty(n.Str)
	case rule.RuleRef:
		return a.ruleEmpty(n.Str)
	case rule.Choice:
		for _, c := range n.Children {
			if !a.nodeEmptyKind(c) {
				return false
			}
		}
		return true
	case rule.Sequence:
		for _, c := range n.Children {
			if c.AST != nil && c.AST.Name != "" {
				return false
			}
			if !a.nodeEmptyKind(c) {
				return false
			}
		}
		return true
	case rule.ZeroOrMore, rule.OneOrMore, rule.Optional:
		return a.nodeEmptyKind(n.Child)
	case rule.SubgrammarRef:
		return true
	default:
		return false
	}
}

func (a *emptyAnalyzer) tokenEmpty(tokenType string) bool {
	if a.g.Lexer == nil {
		return false
	}
	for _, t := range a.g.Lexer.Tokens {
		if t.Token == tokenType {
			return t.Action == rule.ActionSkip || (t.AST != nil && t.AST.Discard)
		}
	}
	return false
}
