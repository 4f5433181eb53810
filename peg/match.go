package peg

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/chrsbats/koine/rule"
)

// Matcher is a compiled, ready-to-run packrat matcher over one grammar and
// one input string. Construct with NewMatcher and call Parse once; a
// Matcher carries per-parse memoization state and must not be reused
// across calls (mirrors the teacher's per-parse lexer.PeekingLexer
// lifecycle — cheap to build, not meant to be shared).
type Matcher struct {
	g    *rule.Grammar
	text string

	memo    map[memoKey]memoEntry
	active  map[memoKey]bool
	reCache map[string]*regexp.Regexp

	furthest int
	expected map[string]bool
}

type memoKey struct {
	rule string
	pos  int
}

type memoEntry struct {
	tree *Tree
	end  int
	ok   bool
}

// NewMatcher compiles a matcher for g over text. g must already be
// normalized (no subgrammar nodes) and token-type rules must already be
// present in g.Rules if the grammar defines a lexer — see TokenRules.
func NewMatcher(g *rule.Grammar, text string) *Matcher {
	return &Matcher{
		g:        g,
		text:     text,
		memo:     map[memoKey]memoEntry{},
		active:   map[memoKey]bool{},
		reCache:  map[string]*regexp.Regexp{},
		expected: map[string]bool{},
	}
}

// Parse matches startRule against the full input text. It returns an
// IncompleteParseError-flavoured *Error (Kind: KindIncomplete) if the match
// succeeds but does not consume the whole input.
func (m *Matcher) Parse(startRule string) (tree *Tree, err error) {
	defer func() {
		if r := recover(); r != nil {
			if perr, ok := r.(*Error); ok {
				err = perr
				return
			}
			panic(r)
		}
	}()
	if _, ok := m.g.Rules[startRule]; !ok {
		return nil, &Error{Message: fmt.Sprintf("undefined start rule %q", startRule)}
	}
	t, end, ok := m.matchRule(startRule, 0)
	if !ok {
		return nil, m.failure()
	}
	if end != len(m.text) {
		return nil, &Error{Kind: KindIncomplete, Offset: end, Message: "failed to consume entire input"}
	}
	return t, nil
}

// Furthest and Expected expose the matcher's best-effort failure location
// and the set of things that would have matched there, for callers
// building the "Expected one of: ..." error message (§6).
func (m *Matcher) Furthest() int { return m.furthest }

func (m *Matcher) Expected() []string {
	out := make([]string, 0, len(m.expected))
	for e := range m.expected {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

func (m *Matcher) failure() *Error {
	return &Error{Kind: KindParse, Offset: m.furthest, Message: "no alternative matched"}
}

func (m *Matcher) record(pos int, expectation string) {
	if pos > m.furthest {
		m.furthest = pos
		m.expected = map[string]bool{}
	}
	if pos == m.furthest {
		m.expected[expectation] = true
	}
}

func (m *Matcher) regex(pattern string) *regexp.Regexp {
	if re, ok := m.reCache[pattern]; ok {
		return re
	}
	re := regexp.MustCompile(`^(?:` + pattern + `)`)
	m.reCache[pattern] = re
	return re
}

func (m *Matcher) matchRule(name string, pos int) (*Tree, int, bool) {
	key := memoKey{name, pos}
	if e, ok := m.memo[key]; ok {
		return e.tree, e.end, e.ok
	}
	if m.active[key] {
		panic(&Error{Kind: KindLeftRecursion, Rule: name, Offset: pos, Message: "left recursion detected"})
	}
	body := m.g.Rules[name]
	if body == nil {
		panic(&Error{Message: fmt.Sprintf("undefined rule %q", name)})
	}
	m.active[key] = true
	bodyTree, end, ok := m.matchNode(body, pos)
	delete(m.active, key)

	var tree *Tree
	if ok {
		tree = &Tree{
			Kind:   rule.RuleRef,
			Ref:    name,
			Body:   bodyTree,
			Text:   m.text[pos:end],
			Offset: pos,
			End:    end,
		}
	} else {
		m.record(pos, name)
	}
	m.memo[key] = memoEntry{tree, end, ok}
	return tree, end, ok
}

func (m *Matcher) matchNode(n *rule.Node, pos int) (*Tree, int, bool) {
	switch n.Kind {
	case rule.Literal:
		if strings.HasPrefix(m.text[pos:], n.Str) {
			end := pos + len(n.Str)
			return &Tree{Kind: rule.Literal, Text: n.Str, Offset: pos, End: end}, end, true
		}
		m.record(pos, fmt.Sprintf("%q", n.Str))
		return nil, pos, false

	case rule.Regex:
		re := m.regex(n.Str)
		loc := re.FindStringIndex(m.text[pos:])
		if loc == nil {
			m.record(pos, "~/"+n.Str+"/")
			return nil, pos, false
		}
		end := pos + loc[1]
		return &Tree{Kind: rule.Regex, Text: m.text[pos:end], Offset: pos, End: end}, end, true

	case rule.RuleRef, rule.TokenRef:
		return m.matchRule(n.Str, pos)

	case rule.Choice:
		for i, c := range n.Children {
			if t, end, ok := m.matchNode(c, pos); ok {
				return &Tree{Kind: rule.Choice, Children: []*Tree{t}, Index: i, Text: m.text[pos:end], Offset: pos, End: end}, end, true
			}
		}
		return nil, pos, false

	case rule.Sequence:
		cur := pos
		kids := make([]*Tree, len(n.Children))
		for i, c := range n.Children {
			t, end, ok := m.matchNode(c, cur)
			if !ok {
				return nil, pos, false
			}
			kids[i] = t
			cur = end
		}
		return &Tree{Kind: rule.Sequence, Children: kids, Text: m.text[pos:cur], Offset: pos, End: cur}, cur, true

	case rule.ZeroOrMore, rule.OneOrMore:
		var kids []*Tree
		cur := pos
		for {
			t, end, ok := m.matchNode(n.Child, cur)
			if !ok || end == cur {
				break
			}
			kids = append(kids, t)
			cur = end
		}
		if n.Kind == rule.OneOrMore && len(kids) == 0 {
			return nil, pos, false
		}
		return &Tree{Kind: n.Kind, Children: kids, Text: m.text[pos:cur], Offset: pos, End: cur}, cur, true

	case rule.Optional:
		t, end, ok := m.matchNode(n.Child, pos)
		if !ok {
			return &Tree{Kind: rule.Optional, Offset: pos, End: pos}, pos, true
		}
		return &Tree{Kind: rule.Optional, Children: []*Tree{t}, Text: m.text[pos:end], Offset: pos, End: end}, end, true

	case rule.PositiveLookahead:
		if _, _, ok := m.matchNode(n.Child, pos); !ok {
			return nil, pos, false
		}
		return &Tree{Kind: rule.PositiveLookahead, Offset: pos, End: pos}, pos, true

	case rule.NegativeLookahead:
		if _, _, ok := m.matchNode(n.Child, pos); ok {
			return nil, pos, false
		}
		return &Tree{Kind: rule.NegativeLookahead, Offset: pos, End: pos}, pos, true

	case rule.SubgrammarRef:
		// Should not occur in a matcher built post-normalization; matches
		// empty defensively, same as the PEG rendering of a stray node.
		return &Tree{Kind: rule.SubgrammarRef, Offset: pos, End: pos}, pos, true

	default:
		panic(&Error{Message: fmt.Sprintf("unknown rule node kind %q", n.Kind), Offset: pos})
	}
}

// TokenRules returns the synthetic per-token-type rules a lexer-bearing
// grammar needs (§4.5's "an additional rule is appended for every declared
// token type and for INDENT/DEDENT"). Compile merges these into a working
// copy of g.Rules before constructing a Matcher in token mode. Render does
// not call this function: it writes the same names with the same
// `T\s*` pattern shape as text through its own loop.
func TokenRules(g *rule.Grammar) map[string]*rule.Node {
	if g.Lexer == nil {
		return nil
	}
	out := map[string]*rule.Node{}
	names := make([]string, 0, len(g.Lexer.Tokens)+2)
	for _, t := range g.Lexer.Tokens {
		if t.Token != "" {
			names = append(names, t.Token)
		}
	}
	names = append(names, "INDENT", "DEDENT")
	for _, name := range names {
		out[name] = &rule.Node{Kind: rule.Regex, Str: regexp.QuoteMeta(name) + `\s*`}
	}
	return out
}

// Compile builds a Matcher ready to parse text against g, in token mode if
// g declares a lexer (in which case text must already be the whitespace-
// joined stream of token type names — see lexer.JoinTokenTypes).
func Compile(g *rule.Grammar, text string) (*Matcher, error) {
	if g.Lexer == nil {
		return NewMatcher(g, text), nil
	}
	merged := make(map[string]*rule.Node, len(g.Rules))
	for k, v := range g.Rules {
		merged[k] = v
	}
	for k, v := range TokenRules(g) {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	augmented := *g
	augmented.Rules = merged
	return NewMatcher(&augmented, text), nil
}
