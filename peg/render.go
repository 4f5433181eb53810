package peg

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chrsbats/koine/rule"
)

// Render renders a normalized grammar into PEG source text per §4.5. The
// output is sorted by rule name for determinism (the teacher's stringer.go
// has no such requirement since it renders a single expression tree, but a
// whole-grammar renderer needs a stable order for diffable output and
// reproducible tests).
func Render(g *rule.Grammar) (string, error) {
	var b strings.Builder
	names := make([]string, 0, len(g.Rules))
	for name := range g.Rules {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := renderNode(g.Rules[name])
		if err != nil {
			return "", fmt.Errorf("koine: rendering rule %q: %w", name, err)
		}
		fmt.Fprintf(&b, "%s = %s\n", name, body)
	}
	if g.Lexer != nil {
		tokenNames := make([]string, 0, len(g.Lexer.Tokens)+2)
		for _, t := range g.Lexer.Tokens {
			if t.Token != "" {
				tokenNames = append(tokenNames, t.Token)
			}
		}
		tokenNames = append(tokenNames, "INDENT", "DEDENT")
		for _, t := range tokenNames {
			fmt.Fprintf(&b, "%s = ~r\"%s\\s*\"\n", t, regexp_QuoteLiteral(t))
		}
	}
	return b.String(), nil
}

// regexp_QuoteLiteral escapes t so it is matched literally inside the
// generated token-rule regex. Token type names are plain identifiers in
// practice, but this keeps Render well-defined for any string.
func regexp_QuoteLiteral(t string) string {
	var b strings.Builder
	for _, r := range t {
		switch r {
		case '.', '+', '*', '?', '(', ')', '[', ']', '{', '}', '^', '$', '|', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func renderNode(n *rule.Node) (string, error) {
	switch n.Kind {
	case rule.Literal:
		return fmt.Sprintf("%q", n.Str), nil

	case rule.Regex:
		return fmt.Sprintf("~r%q", n.Str), nil

	case rule.RuleRef:
		if n.AST != nil && hasDirectiveBesidesName(n.AST) {
			return fmt.Sprintf("(%s (\"\"))?", n.Str), nil
		}
		return n.Str, nil

	case rule.TokenRef:
		return n.Str, nil

	case rule.Choice:
		if len(n.Children) == 0 {
			return "", fmt.Errorf("empty choice")
		}
		parts := make([]string, len(n.Children))
		for i, c := range n.Children {
			s, err := renderNode(c)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "(" + strings.Join(parts, " / ") + ")", nil

	case rule.Sequence:
		switch len(n.Children) {
		case 0:
			return "(\"\")?", nil
		case 1:
			s, err := renderNode(n.Children[0])
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("(%s (\"\"))?", s), nil
		default:
			parts := make([]string, len(n.Children))
			for i, c := range n.Children {
				s, err := renderNode(c)
				if err != nil {
					return "", err
				}
				parts[i] = s
			}
			return "(" + strings.Join(parts, " ") + ")", nil
		}

	case rule.ZeroOrMore, rule.OneOrMore, rule.Optional:
		s, err := renderNode(n.Child)
		if err != nil {
			return "", err
		}
		op := map[rule.Kind]string{rule.ZeroOrMore: "*", rule.OneOrMore: "+", rule.Optional: "?"}[n.Kind]
		return fmt.Sprintf("(%s)%s", s, op), nil

	case rule.PositiveLookahead, rule.NegativeLookahead:
		s, err := renderNode(n.Child)
		if err != nil {
			return "", err
		}
		prefix := "&"
		if n.Kind == rule.NegativeLookahead {
			prefix = "!"
		}
		return fmt.Sprintf("%s(%s)", prefix, s), nil

	case rule.SubgrammarRef:
		return "(\"\")?", nil

	default:
		return "", fmt.Errorf("unknown rule node kind %q", n.Kind)
	}
}

func hasDirectiveBesidesName(a *rule.ASTDirective) bool {
	return a.HasDirectiveBeyondName()
}
