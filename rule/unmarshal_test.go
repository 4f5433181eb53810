package rule

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseGrammarYAMLBasicShapes(t *testing.T) {
	yaml := `
start_rule: root
rules:
  root:
    sequence:
      - literal: "a"
      - rule: tail
  tail:
    choice:
      - regex: "[0-9]+"
      - optional:
          literal: "b"
`
	g, err := ParseGrammarYAML([]byte(yaml))
	require.NoError(t, err)
	require.Equal(t, "root", g.StartRule)
	require.Len(t, g.Rules, 2)

	root := g.Rules["root"]
	require.Equal(t, Sequence, root.Kind)
	require.Len(t, root.Children, 2)
	require.Equal(t, Literal, root.Children[0].Kind)
	require.Equal(t, "a", root.Children[0].Str)
	require.Equal(t, RuleRef, root.Children[1].Kind)
	require.Equal(t, "tail", root.Children[1].Str)

	tail := g.Rules["tail"]
	require.Equal(t, Choice, tail.Kind)
	require.Len(t, tail.Children, 2)
	require.Equal(t, Regex, tail.Children[0].Kind)
	require.Equal(t, Optional, tail.Children[1].Kind)
	require.Equal(t, Literal, tail.Children[1].Child.Kind)
}

func TestParseGrammarYAMLASTDirective(t *testing.T) {
	yaml := `
start_rule: root
rules:
  root:
    sequence:
      - literal: "("
      - rule: expr
        ast:
          name: inner
      - literal: ")"
    ast:
      promote: true
      tag: paren
`
	g, err := ParseGrammarYAML([]byte(yaml))
	require.NoError(t, err)
	root := g.Rules["root"]
	require.NotNil(t, root.AST)
	require.True(t, root.AST.Promote)
	require.Equal(t, "paren", root.AST.Tag)
	require.Equal(t, "inner", root.Children[1].AST.Name)
}

func TestParseGrammarYAMLStructureDirective(t *testing.T) {
	yaml := `
start_rule: expr
rules:
  expr:
    sequence:
      - rule: term
      - zero_or_more:
          sequence:
            - rule: add_op
            - rule: term
    ast:
      structure: left_associative_op
  clone_stmt:
    sequence:
      - rule: repo
      - rule: dest
    ast:
      structure:
        tag: clone_to
        map_children:
          repo:
            from_child: 0
          dest:
            from_child: 1
  term:
    regex: "[0-9]+"
  add_op:
    literal: "+"
  repo:
    regex: "\\S+"
  dest:
    regex: "\\S+"
`
	g, err := ParseGrammarYAML([]byte(yaml))
	require.NoError(t, err)
	expr := g.Rules["expr"]
	require.NotNil(t, expr.AST.Structure)
	require.Equal(t, StructureLeftAssociativeOp, expr.AST.Structure.Kind)

	clone := g.Rules["clone_stmt"]
	require.Equal(t, StructureMapChildren, clone.AST.Structure.Kind)
	require.Equal(t, "clone_to", clone.AST.Structure.Tag)
	require.Equal(t, 0, clone.AST.Structure.MapChildren["repo"].FromChild)
	require.Equal(t, 1, clone.AST.Structure.MapChildren["dest"].FromChild)
}

func TestParseGrammarYAMLEmptyChoiceIsNotRejectedAtParseTime(t *testing.T) {
	// §8 scenario 6 says an empty choice is rejected at grammar
	// *construction* (i.e. by the linter, once normalized) rather than
	// by the raw YAML decoder; the decoder only needs to produce a
	// Choice node with zero children for the linter to reject later.
	yaml := `
start_rule: root
rules:
  root:
    choice: []
`
	g, err := ParseGrammarYAML([]byte(yaml))
	require.NoError(t, err)
	require.Equal(t, Choice, g.Rules["root"].Kind)
	require.Empty(t, g.Rules["root"].Children)
}

func TestSchemaVersionGate(t *testing.T) {
	ok := `
schema_version: "1.2.0"
start_rule: root
rules:
  root:
    literal: "x"
`
	_, err := ParseGrammarYAML([]byte(ok))
	require.NoError(t, err)

	bad := `
schema_version: "2.0.0"
start_rule: root
rules:
  root:
    literal: "x"
`
	_, err = ParseGrammarYAML([]byte(bad))
	require.Error(t, err)
}

func TestNodeCloneIsDeep(t *testing.T) {
	n := &Node{
		Kind: Sequence,
		Children: []*Node{
			{Kind: Literal, Str: "a", AST: &ASTDirective{Name: "x"}},
		},
	}
	c := n.Clone()
	require.Equal(t, n.Children[0].Str, c.Children[0].Str)
	c.Children[0].Str = "mutated"
	require.Equal(t, "a", n.Children[0].Str)
	c.Children[0].AST.Name = "y"
	require.Equal(t, "x", n.Children[0].AST.Name)
}
