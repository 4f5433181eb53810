// Package transpile implements Koine's C7 string transpiler (§4.7): a
// per-tag, template-driven renderer that folds an astbuild.Node tree into
// a string while threading a side-state store through the walk.
//
// There's no bespoke templating engine among the retrieval pack's
// dependencies, but alecthomas/template — originally the teacher's own
// dependency for rendering its `--help` usage text — is a drop-in
// text/template fork and a perfect fit for the rule's `path`/`template`/
// `cases[].then` format strings: it is reused here rather than hand-
// rolling a `{name}`-style substitution parser.
package transpile

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/alecthomas/template"

	"github.com/chrsbats/koine/astbuild"
	"github.com/chrsbats/koine/rule"
)

// Transpiler renders astbuild.Node trees against one grammar's
// `transpiler` configuration. A Transpiler may be reused across calls to
// Transpile, but each call gets a fresh state store and indent level
// (§5: "the String Transpiler's state is scoped to a single transpile
// call").
type Transpiler struct {
	g         *rule.Grammar
	compiled  map[string]*template.Template
	state     map[string]interface{}
	indentLvl int
}

// New constructs a Transpiler over g. g.Transpiler may be nil, in which
// case every node renders via the fallback (value, then text) rule.
func New(g *rule.Grammar) *Transpiler {
	return &Transpiler{g: g, compiled: map[string]*template.Template{}}
}

// Transpile renders root and returns the result. The state map built up
// via state_set during the walk is available afterwards from State.
func (t *Transpiler) Transpile(root *astbuild.Node) (string, error) {
	t.state = map[string]interface{}{}
	t.indentLvl = 0
	return t.render(root)
}

// State returns the state store populated by the most recent Transpile
// call.
func (t *Transpiler) State() map[string]interface{} { return t.state }

func (t *Transpiler) indentUnit() string {
	if t.g.Transpiler != nil && t.g.Transpiler.Indent != "" {
		return t.g.Transpiler.Indent
	}
	return "    "
}

func (t *Transpiler) ruleFor(tag string) *rule.TemplateRule {
	if t.g.Transpiler == nil || t.g.Transpiler.Rules == nil {
		return nil
	}
	return t.g.Transpiler.Rules[tag]
}

func (t *Transpiler) render(n *astbuild.Node) (string, error) {
	if n == nil {
		return "", nil
	}
	tr := t.ruleFor(n.Tag)

	subs := map[string]interface{}{"node": n, "state": t.state}
	if n.HasValue {
		subs["value"] = n.Value
	}
	if n.Text != "" {
		subs["text"] = n.Text
	}

	switch {
	case n.Named != nil:
		for name, c := range n.Named {
			s, err := t.render(c)
			if err != nil {
				return "", err
			}
			subs[name] = s
		}
	case n.Children != nil:
		s, err := t.renderChildrenList(n, tr)
		if err != nil {
			return "", err
		}
		subs["children"] = s
	}

	if n.Op != nil || n.Left != nil || n.Right != nil {
		for name, c := range map[string]*astbuild.Node{"op": n.Op, "left": n.Left, "right": n.Right} {
			s, err := t.render(c)
			if err != nil {
				return "", err
			}
			subs[name] = s
		}
	}

	out, err := t.selectAndRender(n, tr, subs)
	if err != nil {
		return "", err
	}
	if tr != nil && tr.StateSet != nil {
		if err := t.applyStateSet(tr.StateSet, subs); err != nil {
			return "", err
		}
	}
	return out, nil
}

// renderChildrenList renders n.Children in order, drops blanks, and joins
// with the rule's join_children_with (default a single space). Newlines
// in the joiner pick up the current indent; an indent: true rule
// increments the indent depth for its own children and prefixes the
// joined result with it.
func (t *Transpiler) renderChildrenList(n *astbuild.Node, tr *rule.TemplateRule) (string, error) {
	sep := " "
	if tr != nil && tr.HasJoin {
		sep = tr.JoinChildrenWith
	}
	indenting := tr != nil && tr.Indent
	if indenting {
		t.indentLvl++
	}
	indentStr := strings.Repeat(t.indentUnit(), t.indentLvl)

	var parts []string
	for _, c := range n.Children {
		s, err := t.render(c)
		if err != nil {
			if indenting {
				t.indentLvl--
			}
			return "", err
		}
		if s == "" {
			continue
		}
		parts = append(parts, s)
	}
	if indenting {
		t.indentLvl--
	}

	joined := strings.Join(parts, strings.ReplaceAll(sep, "\n", "\n"+indentStr))
	if indenting {
		joined = indentStr + joined
	}
	return joined, nil
}

// selectAndRender applies §4.7's first-match template selection.
func (t *Transpiler) selectAndRender(n *astbuild.Node, tr *rule.TemplateRule, subs map[string]interface{}) (string, error) {
	if tr != nil {
		for _, c := range tr.Cases {
			if c.If != nil {
				ok, err := t.evalCondition(c.If, subs)
				if err != nil {
					return "", err
				}
				if !ok {
					continue
				}
				if !c.HasThen {
					return "", nil
				}
				return t.exec(c.Then, subs)
			}
			return t.exec(c.Default, subs)
		}
		if tr.HasTemplate {
			return t.exec(tr.Template, subs)
		}
		switch tr.Use {
		case "value":
			return t.stringify(n.Value), nil
		case "text":
			return n.Text, nil
		}
		if tr.HasValue {
			return tr.Value, nil
		}
	}
	if n.HasValue {
		return t.stringify(n.Value), nil
	}
	if n.Text != "" {
		return n.Text, nil
	}
	return "", &Error{Tag: n.Tag, Message: fmt.Sprintf("koine: rule %q has no template and node carries no value or text", n.Tag)}
}

func (t *Transpiler) evalCondition(c *rule.Condition, subs map[string]interface{}) (bool, error) {
	resolved, err := t.exec(c.Path, subs)
	if err != nil {
		return false, err
	}
	var truthy bool
	if c.HasEq {
		truthy = resolved == c.Equals
	} else {
		truthy = resolved != "" && resolved != "false" && resolved != "0"
	}
	if c.Negate {
		truthy = !truthy
	}
	return truthy, nil
}

// applyStateSet expands both the key and the value of each state_set
// entry as format strings against subs, then writes the value into t.state
// at the dotted path named by the expanded key.
func (t *Transpiler) applyStateSet(set map[string]string, subs map[string]interface{}) error {
	for keyTmpl, valTmpl := range set {
		key, err := t.exec(keyTmpl, subs)
		if err != nil {
			return err
		}
		val, err := t.exec(valTmpl, subs)
		if err != nil {
			return err
		}
		setPath(t.state, key, val)
	}
	return nil
}

func (t *Transpiler) exec(text string, subs map[string]interface{}) (string, error) {
	tmpl, ok := t.compiled[text]
	if !ok {
		var err error
		tmpl, err = template.New("koine").Parse(text)
		if err != nil {
			return "", &Error{Message: fmt.Sprintf("koine: invalid template %q: %v", text, err)}
		}
		t.compiled[text] = tmpl
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, subs); err != nil {
		return "", &Error{Message: fmt.Sprintf("koine: template execution failed for %q: %v", text, err)}
	}
	return buf.String(), nil
}

func (t *Transpiler) stringify(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// setPath walks (creating as needed) nested maps under root along a
// dot-separated path and writes value at the final segment — the Go
// analogue of the original implementation's functools.reduce(getitem, ...)
// walk (see DESIGN.md).
func setPath(root map[string]interface{}, path string, value interface{}) {
	parts := strings.Split(path, ".")
	cur := root
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}
