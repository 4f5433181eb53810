package normalize

import "github.com/chrsbats/koine/rule"

// ResolvePlaceholders implements the PlaceholderParser variant of §4.3:
// every subgrammar node is replaced in place by its own placeholder
// (defaulting to an empty sequence) without ever reading a file. Used when
// a grammar is intentionally incomplete and linting is disabled to match.
func ResolvePlaceholders(g *rule.Grammar) {
	for name, body := range g.Rules {
		g.Rules[name] = replacePlaceholder(body)
	}
}

func replacePlaceholder(n *rule.Node) *rule.Node {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case rule.SubgrammarRef:
		ph := n.Subgrammar.Placeholder.Clone()
		if ph == nil {
			ph = &rule.Node{Kind: rule.Sequence}
		}
		ph.AST = n.AST
		return ph
	case rule.Choice, rule.Sequence:
		for i, c := range n.Children {
			n.Children[i] = replacePlaceholder(c)
		}
		return n
	case rule.ZeroOrMore, rule.OneOrMore, rule.Optional, rule.PositiveLookahead, rule.NegativeLookahead:
		n.Child = replacePlaceholder(n.Child)
		return n
	default:
		return n
	}
}
