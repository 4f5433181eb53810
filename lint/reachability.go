package lint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chrsbats/koine/rule"
)

// CheckReachability implements §4.4's reachability check: starting from
// start_rule plus every external root recorded during subgrammar
// resolution (§4.3 step 6), compute every rule reachable via {rule: ...}
// edges. Any defined rule whose name does not contain the internal "__"
// separator and is unreachable fails.
func CheckReachability(g *rule.Grammar) error {
	reached := map[string]bool{}
	var visit func(name string)
	visit = func(name string) {
		if reached[name] {
			return
		}
		reached[name] = true
		body := g.Rules[name]
		if body == nil {
			return
		}
		collectRuleRefs(body, visit)
	}

	if g.StartRule != "" {
		visit(g.StartRule)
	}
	for _, root := range g.ExternalRoots {
		visit(root)
	}

	var offenders []string
	for name := range g.Rules {
		if strings.Contains(name, "__") {
			continue
		}
		if !reached[name] {
			offenders = append(offenders, name)
		}
	}
	if len(offenders) == 0 {
		return nil
	}
	sort.Strings(offenders)
	return &Error{
		Kind:    KindConfiguration,
		Rules:   offenders,
		Message: fmt.Sprintf("koine: unreachable rule(s): %s", strings.Join(offenders, ", ")),
	}
}

func collectRuleRefs(n *rule.Node, visit func(string)) {
	if n == nil {
		return
	}
	switch n.Kind {
	case rule.RuleRef:
		visit(n.Str)
	case rule.Choice, rule.Sequence:
		for _, c := range n.Children {
			collectRuleRefs(c, visit)
		}
	case rule.ZeroOrMore, rule.OneOrMore, rule.Optional, rule.PositiveLookahead, rule.NegativeLookahead:
		collectRuleRefs(n.Child, visit)
	}
}
