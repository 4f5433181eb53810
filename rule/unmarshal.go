package rule

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// SupportedSchemaRange is the semver constraint Koine accepts for a
// grammar's optional `schema_version` key. Grammars that omit the key are
// always accepted (treated as the latest schema).
const SupportedSchemaRange = ">=1.0.0, <2.0.0"

// rawGrammar mirrors the on-disk YAML shape of a Grammar document.
type rawGrammar struct {
	SchemaVersion string                 `yaml:"schema_version"`
	StartRule     string                 `yaml:"start_rule"`
	Rules         map[string]yaml.Node   `yaml:"rules"`
	Lexer         *rawLexerSpec          `yaml:"lexer"`
	Transpiler    *rawTranspilerSpec     `yaml:"transpiler"`
}

type rawLexerSpec struct {
	TabWidth int             `yaml:"tab_width"`
	Tokens   []rawTokenSpec  `yaml:"tokens"`
}

type rawTokenSpec struct {
	Regex  string        `yaml:"regex"`
	Token  string        `yaml:"token"`
	Action string        `yaml:"action"`
	AST    *rawASTBlock  `yaml:"ast"`
}

type rawTranspilerSpec struct {
	Indent string                          `yaml:"indent"`
	Rules  map[string]*rawTemplateRule     `yaml:"rules"`
}

type rawTemplateRule struct {
	Cases            []rawTemplateCase  `yaml:"cases"`
	Template          string            `yaml:"template"`
	TemplateSet       bool               `yaml:"-"`
	Use               string            `yaml:"use"`
	Value             yaml.Node          `yaml:"value"`
	JoinChildrenWith  *string            `yaml:"join_children_with"`
	Indent            bool               `yaml:"indent"`
	StateSet          map[string]string  `yaml:"state_set"`
}

type rawTemplateCase struct {
	If      *rawCondition `yaml:"if"`
	Then    *string       `yaml:"then"`
	Default *string       `yaml:"default"`
}

type rawCondition struct {
	Path   string  `yaml:"path"`
	Equals *string `yaml:"equals"`
	Negate bool    `yaml:"negate"`
}

type rawASTBlock struct {
	Name      string             `yaml:"name"`
	Discard   bool               `yaml:"discard"`
	Promote   bool               `yaml:"promote"`
	Leaf      bool               `yaml:"leaf"`
	Structure yaml.Node          `yaml:"structure"`
	Tag       string             `yaml:"tag"`
	Type      string             `yaml:"type"`
}

// ParseGrammarYAML decodes a single YAML grammar document into a Grammar.
// It does not resolve subgrammars or perform any normalization; that is
// the job of the normalize package.
func ParseGrammarYAML(data []byte) (*Grammar, error) {
	var raw rawGrammar
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("koine: invalid grammar YAML: %w", err)
	}
	return fromRawGrammar(&raw)
}

func fromRawGrammar(raw *rawGrammar) (*Grammar, error) {
	if raw.SchemaVersion != "" {
		if err := checkSchemaVersion(raw.SchemaVersion); err != nil {
			return nil, err
		}
	}
	g := &Grammar{
		StartRule:     raw.StartRule,
		Rules:         make(map[string]*Node, len(raw.Rules)),
		SchemaVersion: raw.SchemaVersion,
	}
	for name, n := range raw.Rules {
		node, err := nodeFromYAML(&n)
		if err != nil {
			return nil, fmt.Errorf("koine: rule %q: %w", name, err)
		}
		g.Rules[name] = node
	}
	if raw.Lexer != nil {
		spec := &LexerSpec{TabWidth: raw.Lexer.TabWidth}
		if spec.TabWidth == 0 {
			spec.TabWidth = 8
		}
		for _, t := range raw.Lexer.Tokens {
			spec.Tokens = append(spec.Tokens, TokenSpec{
				Regex:  t.Regex,
				Token:  t.Token,
				Action: t.Action,
				AST:    astFromRaw(t.AST),
			})
		}
		g.Lexer = spec
	}
	if raw.Transpiler != nil {
		spec := &TranspilerSpec{Indent: raw.Transpiler.Indent, Rules: map[string]*TemplateRule{}}
		if spec.Indent == "" {
			spec.Indent = "    "
		}
		for tag, r := range raw.Transpiler.Rules {
			tr, err := templateRuleFromRaw(r)
			if err != nil {
				return nil, fmt.Errorf("koine: transpiler rule %q: %w", tag, err)
			}
			spec.Rules[tag] = tr
		}
		g.Transpiler = spec
	}
	return g, nil
}

func checkSchemaVersion(v string) error {
	constraint, err := semver.NewConstraint(SupportedSchemaRange)
	if err != nil {
		return fmt.Errorf("koine: internal: bad schema constraint: %w", err)
	}
	ver, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("koine: invalid schema_version %q: %w", v, err)
	}
	if !constraint.Check(ver) {
		return fmt.Errorf("koine: grammar schema_version %q is not supported (want %s)", v, SupportedSchemaRange)
	}
	return nil
}

// nodeFromYAML decodes one Rule Node from its raw YAML mapping, picking the
// single shape key that is present (§3).
func nodeFromYAML(n *yaml.Node) (*Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping, got %v", n.Kind)
	}
	m := map[string]*yaml.Node{}
	for i := 0; i+1 < len(n.Content); i += 2 {
		m[n.Content[i].Value] = n.Content[i+1]
	}

	var astNode *rawASTBlock
	if raw, ok := m["ast"]; ok {
		var block rawASTBlock
		if err := raw.Decode(&block); err != nil {
			return nil, fmt.Errorf("ast: %w", err)
		}
		astNode = &block
	}

	out := &Node{AST: astFromRaw(astNode)}

	switch {
	case has(m, "literal"):
		out.Kind = Literal
		out.Str = str(m["literal"])
	case has(m, "regex"):
		out.Kind = Regex
		out.Str = str(m["regex"])
	case has(m, "rule"):
		out.Kind = RuleRef
		out.Str = str(m["rule"])
	case has(m, "token"):
		out.Kind = TokenRef
		out.Str = str(m["token"])
	case has(m, "choice"):
		out.Kind = Choice
		kids, err := nodeSlice(m["choice"])
		if err != nil {
			return nil, err
		}
		out.Children = kids
	case has(m, "sequence"):
		out.Kind = Sequence
		kids, err := nodeSlice(m["sequence"])
		if err != nil {
			return nil, err
		}
		out.Children = kids
	case has(m, "zero_or_more"):
		out.Kind = ZeroOrMore
		child, err := nodeFromYAML(m["zero_or_more"])
		if err != nil {
			return nil, err
		}
		out.Child = child
	case has(m, "one_or_more"):
		out.Kind = OneOrMore
		child, err := nodeFromYAML(m["one_or_more"])
		if err != nil {
			return nil, err
		}
		out.Child = child
	case has(m, "optional"):
		out.Kind = Optional
		child, err := nodeFromYAML(m["optional"])
		if err != nil {
			return nil, err
		}
		out.Child = child
	case has(m, "positive_lookahead"):
		out.Kind = PositiveLookahead
		child, err := nodeFromYAML(m["positive_lookahead"])
		if err != nil {
			return nil, err
		}
		out.Child = child
	case has(m, "negative_lookahead"):
		out.Kind = NegativeLookahead
		child, err := nodeFromYAML(m["negative_lookahead"])
		if err != nil {
			return nil, err
		}
		out.Child = child
	case has(m, "subgrammar"):
		out.Kind = SubgrammarRef
		sg, err := subgrammarFromYAML(m["subgrammar"])
		if err != nil {
			return nil, err
		}
		out.Subgrammar = sg
	default:
		return nil, fmt.Errorf("rule node has no recognized shape key")
	}
	return out, nil
}

func subgrammarFromYAML(n *yaml.Node) (*Subgrammar, error) {
	var raw struct {
		File        string     `yaml:"file"`
		Rule        string     `yaml:"rule"`
		Placeholder *yaml.Node `yaml:"placeholder"`
	}
	if err := n.Decode(&raw); err != nil {
		return nil, err
	}
	sg := &Subgrammar{File: raw.File, Rule: raw.Rule}
	if raw.Placeholder != nil {
		ph, err := nodeFromYAML(raw.Placeholder)
		if err != nil {
			return nil, err
		}
		sg.Placeholder = ph
	} else {
		sg.Placeholder = &Node{Kind: Sequence, Children: nil}
	}
	return sg, nil
}

func nodeSlice(n *yaml.Node) ([]*Node, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("expected a sequence")
	}
	out := make([]*Node, 0, len(n.Content))
	for _, c := range n.Content {
		child, err := nodeFromYAML(c)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

func astFromRaw(raw *rawASTBlock) *ASTDirective {
	if raw == nil {
		return nil
	}
	a := &ASTDirective{
		Name:    raw.Name,
		Discard: raw.Discard,
		Promote: raw.Promote,
		Leaf:    raw.Leaf,
		Tag:     raw.Tag,
		Type:    raw.Type,
	}
	if raw.Structure.Kind != 0 {
		s, err := structureFromYAML(&raw.Structure)
		if err == nil {
			a.Structure = s
		}
	}
	return a
}

func structureFromYAML(n *yaml.Node) (*StructureDirective, error) {
	if n.Kind == yaml.ScalarNode {
		return &StructureDirective{Kind: n.Value}, nil
	}
	var raw struct {
		Tag         string                   `yaml:"tag"`
		MapChildren map[string]struct {
			FromChild int `yaml:"from_child"`
		} `yaml:"map_children"`
	}
	if err := n.Decode(&raw); err != nil {
		return nil, err
	}
	s := &StructureDirective{Kind: StructureMapChildren, Tag: raw.Tag, MapChildren: map[string]ChildMapping{}}
	for name, m := range raw.MapChildren {
		s.MapChildren[name] = ChildMapping{FromChild: m.FromChild}
	}
	return s, nil
}

func templateRuleFromRaw(r *rawTemplateRule) (*TemplateRule, error) {
	tr := &TemplateRule{Indent: r.Indent, StateSet: r.StateSet}
	if r.Template != "" {
		tr.Template = r.Template
		tr.HasTemplate = true
	}
	if r.Use != "" {
		tr.Use = r.Use
	}
	if r.Value.Kind != 0 {
		tr.Value = str(&r.Value)
		tr.HasValue = true
	}
	if r.JoinChildrenWith != nil {
		tr.JoinChildrenWith = *r.JoinChildrenWith
		tr.HasJoin = true
	}
	for _, c := range r.Cases {
		tc := TemplateCase{}
		if c.If != nil {
			cond := &Condition{Path: c.If.Path, Negate: c.If.Negate}
			if c.If.Equals != nil {
				cond.Equals = *c.If.Equals
				cond.HasEq = true
			}
			tc.If = cond
			if c.Then != nil {
				tc.Then = *c.Then
				tc.HasThen = true
			}
		} else if c.Default != nil {
			tc.Default = *c.Default
		} else {
			return nil, fmt.Errorf("case must have 'if' or 'default'")
		}
		tr.Cases = append(tr.Cases, tc)
	}
	return tr, nil
}

func has(m map[string]*yaml.Node, key string) bool {
	_, ok := m[key]
	return ok
}

func str(n *yaml.Node) string {
	if n == nil {
		return ""
	}
	return n.Value
}
