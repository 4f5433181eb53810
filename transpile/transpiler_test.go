package transpile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chrsbats/koine/astbuild"
	"github.com/chrsbats/koine/rule"
)

func TestTranspileFallsBackToValueThenText(t *testing.T) {
	g := &rule.Grammar{}
	tr := New(g)

	out, err := tr.Transpile(&astbuild.Node{Tag: "num", Value: int64(5), HasValue: true})
	require.NoError(t, err)
	require.Equal(t, "5", out)

	out, err = tr.Transpile(&astbuild.Node{Tag: "word", Text: "hi"})
	require.NoError(t, err)
	require.Equal(t, "hi", out)
}

func TestTranspileNoTemplateAndNoValueErrors(t *testing.T) {
	g := &rule.Grammar{}
	tr := New(g)
	_, err := tr.Transpile(&astbuild.Node{Tag: "empty"})
	require.Error(t, err)
	terr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, "empty", terr.Tag)
}

func TestTranspileUseValueAndUseText(t *testing.T) {
	g := &rule.Grammar{Transpiler: &rule.TranspilerSpec{Rules: map[string]*rule.TemplateRule{
		"num":  {Use: "value"},
		"word": {Use: "text"},
	}}}
	tr := New(g)

	out, err := tr.Transpile(&astbuild.Node{Tag: "num", Value: int64(7), HasValue: true, Text: "seven"})
	require.NoError(t, err)
	require.Equal(t, "7", out)

	out, err = tr.Transpile(&astbuild.Node{Tag: "word", Text: "hello"})
	require.NoError(t, err)
	require.Equal(t, "hello", out)
}

func TestTranspileCasesIfEqualsAndDefault(t *testing.T) {
	g := &rule.Grammar{Transpiler: &rule.TranspilerSpec{Rules: map[string]*rule.TemplateRule{
		"bool": {Cases: []rule.TemplateCase{
			{If: &rule.Condition{Path: "{{.text}}", Equals: "true", HasEq: true}, Then: "yes", HasThen: true},
			{Default: "no"},
		}},
	}}}
	tr := New(g)

	out, err := tr.Transpile(&astbuild.Node{Tag: "bool", Text: "true"})
	require.NoError(t, err)
	require.Equal(t, "yes", out)

	out, err = tr.Transpile(&astbuild.Node{Tag: "bool", Text: "false"})
	require.NoError(t, err)
	require.Equal(t, "no", out)
}

func TestTranspileCaseSkipOnNoThen(t *testing.T) {
	g := &rule.Grammar{Transpiler: &rule.TranspilerSpec{Rules: map[string]*rule.TemplateRule{
		"tag": {Cases: []rule.TemplateCase{
			{If: &rule.Condition{Path: "{{.text}}", Equals: "hidden", HasEq: true}},
			{Default: "{{.text}}"},
		}},
	}}}
	tr := New(g)

	out, err := tr.Transpile(&astbuild.Node{Tag: "tag", Text: "hidden"})
	require.NoError(t, err)
	require.Equal(t, "", out)

	out, err = tr.Transpile(&astbuild.Node{Tag: "tag", Text: "shown"})
	require.NoError(t, err)
	require.Equal(t, "shown", out)
}

func TestTranspileOperatorNodeSubstitutionBag(t *testing.T) {
	g := &rule.Grammar{Transpiler: &rule.TranspilerSpec{Rules: map[string]*rule.TemplateRule{
		"binary_op": {Template: "({{.op}} {{.left}} {{.right}})"},
	}}}
	tr := New(g)

	n := &astbuild.Node{
		Tag:   "binary_op",
		Op:    &astbuild.Node{Tag: "add_op", Text: "add"},
		Left:  &astbuild.Node{Tag: "number", Value: int64(1), HasValue: true},
		Right: &astbuild.Node{Tag: "number", Value: int64(2), HasValue: true},
	}
	out, err := tr.Transpile(n)
	require.NoError(t, err)
	require.Equal(t, "(add 1 2)", out)
}

func TestTranspileNamedChildrenSubstitution(t *testing.T) {
	g := &rule.Grammar{Transpiler: &rule.TranspilerSpec{Rules: map[string]*rule.TemplateRule{
		"clone_to": {Template: "clone {{.repo}} to {{.dest}}"},
	}}}
	tr := New(g)

	n := &astbuild.Node{Tag: "clone_to", Named: map[string]*astbuild.Node{
		"repo": {Tag: "path", Text: "/a/b"},
		"dest": {Tag: "path", Text: "/c/d"},
	}}
	out, err := tr.Transpile(n)
	require.NoError(t, err)
	require.Equal(t, "clone /a/b to /c/d", out)
}

func TestTranspileChildrenListJoinAndIndent(t *testing.T) {
	g := &rule.Grammar{Transpiler: &rule.TranspilerSpec{Rules: map[string]*rule.TemplateRule{
		"block": {JoinChildrenWith: "\n", HasJoin: true, Indent: true, Template: "{{.children}}"},
	}}}
	tr := New(g)

	n := &astbuild.Node{Tag: "block", Children: []*astbuild.Node{
		{Tag: "stmt", Text: "a"},
		{Tag: "stmt", Text: "b"},
	}}
	out, err := tr.Transpile(n)
	require.NoError(t, err)
	require.Equal(t, "    a\n    b", out)
}

func TestTranspileChildrenListDropsBlankRenders(t *testing.T) {
	g := &rule.Grammar{Transpiler: &rule.TranspilerSpec{Rules: map[string]*rule.TemplateRule{
		"skip":  {Cases: []rule.TemplateCase{{Default: ""}}},
		"block": {Template: "{{.children}}"},
	}}}
	tr := New(g)

	n := &astbuild.Node{Tag: "block", Children: []*astbuild.Node{
		{Tag: "skip", Text: "gone"},
		{Tag: "stmt", Text: "kept"},
	}}
	out, err := tr.Transpile(n)
	require.NoError(t, err)
	require.Equal(t, "kept", out)
}

func TestTranspileStateSetWritesDottedPath(t *testing.T) {
	g := &rule.Grammar{Transpiler: &rule.TranspilerSpec{Rules: map[string]*rule.TemplateRule{
		"decl": {
			Template: "{{.text}}",
			StateSet: map[string]string{"vars.{{.text}}": "seen"},
		},
	}}}
	tr := New(g)

	_, err := tr.Transpile(&astbuild.Node{Tag: "decl", Text: "x"})
	require.NoError(t, err)

	vars, ok := tr.State()["vars"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "seen", vars["x"])
}

// §8 scenario 1: 1 + 2 * 3 renders as "(add 1 (mul 2 3))".
func TestTranspileCalculatorScenario(t *testing.T) {
	g := &rule.Grammar{Transpiler: &rule.TranspilerSpec{Rules: map[string]*rule.TemplateRule{
		"binary_op": {Template: "({{.op}} {{.left}} {{.right}})"},
		"add_op":    {Value: "add", HasValue: true},
		"mul_op":    {Value: "mul", HasValue: true},
	}}}
	tr := New(g)

	one := &astbuild.Node{Tag: "number", Value: int64(1), HasValue: true}
	two := &astbuild.Node{Tag: "number", Value: int64(2), HasValue: true}
	three := &astbuild.Node{Tag: "number", Value: int64(3), HasValue: true}
	mul := &astbuild.Node{Tag: "binary_op", Op: &astbuild.Node{Tag: "mul_op"}, Left: two, Right: three}
	add := &astbuild.Node{Tag: "binary_op", Op: &astbuild.Node{Tag: "add_op"}, Left: one, Right: mul}

	out, err := tr.Transpile(add)
	require.NoError(t, err)
	require.Equal(t, "(add 1 (mul 2 3))", out)
}

func TestSetPathCreatesNestedMaps(t *testing.T) {
	root := map[string]interface{}{}
	setPath(root, "a.b.c", "v")
	a := root["a"].(map[string]interface{})
	b := a["b"].(map[string]interface{})
	require.Equal(t, "v", b["c"])
}
