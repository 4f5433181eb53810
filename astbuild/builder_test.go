package astbuild

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chrsbats/koine/peg"
	"github.com/chrsbats/koine/rule"
)

func buildFromText(t *testing.T, g *rule.Grammar, text string) *Node {
	t.Helper()
	m := peg.NewMatcher(g, text)
	tree, err := m.Parse(g.StartRule)
	require.NoError(t, err)
	root, err := Build(g, tree, nil, text)
	require.NoError(t, err)
	return root
}

func TestBuildLeafRule(t *testing.T) {
	g := &rule.Grammar{
		StartRule: "num",
		Rules: map[string]*rule.Node{
			"num": {Kind: rule.Regex, Str: `[0-9]+`, AST: &rule.ASTDirective{Type: "number"}},
		},
	}
	n := buildFromText(t, g, "42")
	require.Equal(t, "num", n.Tag)
	require.Equal(t, "42", n.Text)
	require.Nil(t, n.Children)
	require.True(t, n.HasValue)
	require.Equal(t, int64(42), n.Value)
}

func TestBuildWrappedLeafShortcut(t *testing.T) {
	g := &rule.Grammar{
		StartRule: "word",
		Rules: map[string]*rule.Node{
			"word": {Kind: rule.Sequence, Children: []*rule.Node{
				{Kind: rule.Regex, Str: `[a-z]+`},
			}},
		},
	}
	n := buildFromText(t, g, "hello")
	require.Equal(t, "word", n.Tag)
	require.Equal(t, "hello", n.Text)
	require.Nil(t, n.Children)
}

func TestBuildPromoteSingleChild(t *testing.T) {
	g := &rule.Grammar{
		StartRule: "expr",
		Rules: map[string]*rule.Node{
			"expr": {Kind: rule.Sequence, AST: &rule.ASTDirective{Promote: true}, Children: []*rule.Node{
				{Kind: rule.RuleRef, Str: "num"},
			}},
			"num": {Kind: rule.Regex, Str: `[0-9]+`},
		},
	}
	n := buildFromText(t, g, "7")
	require.Equal(t, "num", n.Tag)
	require.Equal(t, "7", n.Text)
}

func TestBuildPromoteParenthesizedIdiom(t *testing.T) {
	g := &rule.Grammar{
		StartRule: "paren",
		Rules: map[string]*rule.Node{
			"paren": {Kind: rule.Sequence, AST: &rule.ASTDirective{Promote: true}, Children: []*rule.Node{
				{Kind: rule.Literal, Str: "("},
				{Kind: rule.RuleRef, Str: "num"},
				{Kind: rule.Literal, Str: ")"},
			}},
			"num": {Kind: rule.Regex, Str: `[0-9]+`},
		},
	}
	n := buildFromText(t, g, "(9)")
	require.Equal(t, "num", n.Tag)
	require.Equal(t, "9", n.Text)
}

func TestBuildNamedChildren(t *testing.T) {
	g := &rule.Grammar{
		StartRule: "greeting",
		Rules: map[string]*rule.Node{
			"greeting": {Kind: rule.Sequence, Children: []*rule.Node{
				{Kind: rule.Literal, Str: "hello "},
				{Kind: rule.RuleRef, Str: "name", AST: &rule.ASTDirective{Name: "who"}},
			}},
			"name": {Kind: rule.Regex, Str: `[a-z]+`},
		},
	}
	n := buildFromText(t, g, "hello world")
	require.Equal(t, "greeting", n.Tag)
	require.Nil(t, n.Children)
	require.NotNil(t, n.Named)
	require.Equal(t, "world", n.Named["who"].Text)
}

func TestBuildDiscardDropsNode(t *testing.T) {
	g := &rule.Grammar{
		StartRule: "root",
		Rules: map[string]*rule.Node{
			"root": {Kind: rule.Sequence, Children: []*rule.Node{
				{Kind: rule.RuleRef, Str: "ws"},
				{Kind: rule.RuleRef, Str: "word"},
			}},
			"ws":   {Kind: rule.Regex, Str: `\s*`, AST: &rule.ASTDirective{Discard: true}},
			"word": {Kind: rule.Regex, Str: `[a-z]+`},
		},
	}
	n := buildFromText(t, g, " hi")
	require.Equal(t, "root", n.Tag)
	require.Len(t, n.Children, 1)
	require.Equal(t, "word", n.Children[0].Tag)
}

// §8 scenario 1 (left-associative fold, calculator shape): 1 + 2 * 3.
func TestBuildLeftAssociativeOperatorChain(t *testing.T) {
	g := calcGrammar()
	n := buildFromText(t, g, "1+2*3")
	require.Equal(t, "binary_op", n.Tag)
	require.Equal(t, "add_op", n.Op.Tag)
	require.Equal(t, "number", n.Left.Tag)
	require.Equal(t, int64(1), n.Left.Value)
	require.Equal(t, "binary_op", n.Right.Tag)
	require.Equal(t, "mul_op", n.Right.Op.Tag)
	require.Equal(t, int64(2), n.Right.Left.Value)
	require.Equal(t, int64(3), n.Right.Right.Value)
}

func TestBuildLeftAssociativeFoldsLeftToRight(t *testing.T) {
	// 8 - 2 - 1 => (8 - 2) - 1, per §8 scenario 3.
	g := subGrammar()
	n := buildFromText(t, g, "8-2-1")
	require.Equal(t, "binary_op", n.Tag)
	require.Equal(t, int64(1), n.Right.Value)
	require.Equal(t, "binary_op", n.Left.Tag)
	require.Equal(t, int64(8), n.Left.Left.Value)
	require.Equal(t, int64(2), n.Left.Right.Value)
}

func TestBuildRightAssociativeOperatorChain(t *testing.T) {
	// 2 ^ 3 ^ 2 => 2 ^ (3 ^ 2), per §8 scenario 2.
	g := powGrammar()
	n := buildFromText(t, g, "2^3^2")
	require.Equal(t, "binary_op", n.Tag)
	require.Equal(t, int64(2), n.Left.Value)
	require.Equal(t, "binary_op", n.Right.Tag)
	require.Equal(t, int64(3), n.Right.Left.Value)
	require.Equal(t, int64(2), n.Right.Right.Value)
}

func TestBuildMapChildrenFallForward(t *testing.T) {
	// §8 scenario 4: CLONE /path/to/repo TO /new/path.
	g := cloneGrammar()

	n := buildFromText(t, g, "CLONE /path/to/repo TO /new/path")
	require.Equal(t, "clone_to", n.Tag)
	require.Equal(t, "path", n.Named["repo"].Tag)
	require.Equal(t, "/path/to/repo", n.Named["repo"].Text)
	require.Equal(t, "/new/path", n.Named["dest"].Text)

	n2 := buildFromText(t, g, "CLONE /path/to/repo")
	require.Equal(t, "clone", n2.Tag)
	require.Equal(t, "/path/to/repo", n2.Named["repo"].Text)
	_, hasDest := n2.Named["dest"]
	require.False(t, hasDest)
}

func TestCleanupStripsInternalHoistTags(t *testing.T) {
	n := &Node{Tag: "root", Children: []*Node{
		{Tag: "root__1", Text: "junk"},
		{Tag: "kept", Text: "keep"},
	}}
	out := cleanup(n)
	require.Len(t, out.Children, 1)
	require.Equal(t, "kept", out.Children[0].Tag)
}

func calcGrammar() *rule.Grammar {
	return &rule.Grammar{
		StartRule: "expr",
		Rules: map[string]*rule.Node{
			"expr": {Kind: rule.Sequence, AST: &rule.ASTDirective{Structure: &rule.StructureDirective{Kind: rule.StructureLeftAssociativeOp}}, Children: []*rule.Node{
				{Kind: rule.RuleRef, Str: "term"},
				{Kind: rule.ZeroOrMore, Child: &rule.Node{Kind: rule.Sequence, Children: []*rule.Node{
					{Kind: rule.RuleRef, Str: "add_op"},
					{Kind: rule.RuleRef, Str: "term"},
				}}},
			}},
			"term": {Kind: rule.Sequence, AST: &rule.ASTDirective{Structure: &rule.StructureDirective{Kind: rule.StructureLeftAssociativeOp}}, Children: []*rule.Node{
				{Kind: rule.RuleRef, Str: "number"},
				{Kind: rule.ZeroOrMore, Child: &rule.Node{Kind: rule.Sequence, Children: []*rule.Node{
					{Kind: rule.RuleRef, Str: "mul_op"},
					{Kind: rule.RuleRef, Str: "number"},
				}}},
			}},
			"number": {Kind: rule.Regex, Str: `[0-9]+`, AST: &rule.ASTDirective{Type: "number"}},
			"add_op": {Kind: rule.Literal, Str: "+"},
			"mul_op": {Kind: rule.Literal, Str: "*"},
		},
	}
}

func subGrammar() *rule.Grammar {
	return &rule.Grammar{
		StartRule: "expr",
		Rules: map[string]*rule.Node{
			"expr": {Kind: rule.Sequence, AST: &rule.ASTDirective{Structure: &rule.StructureDirective{Kind: rule.StructureLeftAssociativeOp}}, Children: []*rule.Node{
				{Kind: rule.RuleRef, Str: "number"},
				{Kind: rule.ZeroOrMore, Child: &rule.Node{Kind: rule.Sequence, Children: []*rule.Node{
					{Kind: rule.RuleRef, Str: "sub_op"},
					{Kind: rule.RuleRef, Str: "number"},
				}}},
			}},
			"number": {Kind: rule.Regex, Str: `[0-9]+`, AST: &rule.ASTDirective{Type: "number"}},
			"sub_op": {Kind: rule.Literal, Str: "-"},
		},
	}
}

func powGrammar() *rule.Grammar {
	return &rule.Grammar{
		StartRule: "expr",
		Rules: map[string]*rule.Node{
			"expr": {Kind: rule.Sequence, AST: &rule.ASTDirective{Structure: &rule.StructureDirective{Kind: rule.StructureRightAssociativeOp}}, Children: []*rule.Node{
				{Kind: rule.RuleRef, Str: "number"},
				{Kind: rule.Optional, Child: &rule.Node{Kind: rule.Sequence, Children: []*rule.Node{
					{Kind: rule.RuleRef, Str: "pow_op"},
					{Kind: rule.RuleRef, Str: "expr"},
				}}},
			}},
			"number": {Kind: rule.Regex, Str: `[0-9]+`, AST: &rule.ASTDirective{Type: "number"}},
			"pow_op": {Kind: rule.Literal, Str: "^"},
		},
	}
}

func cloneGrammar() *rule.Grammar {
	mapStruct := &rule.StructureDirective{
		Tag: "clone",
		MapChildren: map[string]rule.ChildMapping{
			"repo": {FromChild: 1},
		},
	}
	mapStructWithDest := &rule.StructureDirective{
		Tag: "clone_to",
		MapChildren: map[string]rule.ChildMapping{
			"repo": {FromChild: 1},
			"dest": {FromChild: 2},
		},
	}
	return &rule.Grammar{
		StartRule: "stmt",
		Rules: map[string]*rule.Node{
			"stmt": {Kind: rule.Choice, Children: []*rule.Node{
				{Kind: rule.RuleRef, Str: "clone_to_stmt"},
				{Kind: rule.RuleRef, Str: "clone_stmt"},
			}},
			"clone_to_stmt": {Kind: rule.Sequence, AST: &rule.ASTDirective{Structure: mapStructWithDest}, Children: []*rule.Node{
				{Kind: rule.Literal, Str: "CLONE "},
				{Kind: rule.RuleRef, Str: "path"},
				{Kind: rule.RuleRef, Str: "dest_path"},
			}},
			"clone_stmt": {Kind: rule.Sequence, AST: &rule.ASTDirective{Structure: mapStruct}, Children: []*rule.Node{
				{Kind: rule.Literal, Str: "CLONE "},
				{Kind: rule.RuleRef, Str: "path"},
			}},
			"path":      {Kind: rule.Regex, Str: `\S+`, AST: &rule.ASTDirective{Tag: "path"}},
			"dest_path": {Kind: rule.Sequence, AST: &rule.ASTDirective{Tag: "path", Promote: true}, Children: []*rule.Node{
				{Kind: rule.Literal, Str: " TO "},
				{Kind: rule.RuleRef, Str: "path"},
			}},
		},
	}
}
