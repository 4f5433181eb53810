// Package rule defines Koine's grammar data model: the tagged-variant Rule
// Node, the Grammar it lives in, and the lexer/transpiler side configuration
// that rides alongside it.
package rule

import "fmt"

// Kind identifies which of the mutually exclusive shape keys a Node carries.
type Kind string

const (
	Literal            Kind = "literal"
	Regex              Kind = "regex"
	RuleRef            Kind = "rule"
	TokenRef           Kind = "token"
	Choice             Kind = "choice"
	Sequence           Kind = "sequence"
	ZeroOrMore         Kind = "zero_or_more"
	OneOrMore          Kind = "one_or_more"
	Optional           Kind = "optional"
	PositiveLookahead  Kind = "positive_lookahead"
	NegativeLookahead  Kind = "negative_lookahead"
	SubgrammarRef      Kind = "subgrammar"
)

// Node is a single Rule Node: a tagged variant carrying exactly one of the
// payload fields below, selected by Kind.
type Node struct {
	Kind Kind

	// Str holds the payload for Literal, Regex, RuleRef, TokenRef.
	Str string

	// Children holds the payload for Choice and Sequence.
	Children []*Node

	// Child holds the payload for ZeroOrMore, OneOrMore, Optional, and the
	// two lookahead kinds.
	Child *Node

	// Subgrammar holds the payload for SubgrammarRef.
	Subgrammar *Subgrammar

	// AST is the optional `ast` directive sidecar (§4.6).
	AST *ASTDirective
}

// Subgrammar is the payload of a `subgrammar` Node: a reference to a rule
// (or the sub-grammar's start rule) in another grammar file.
type Subgrammar struct {
	File        string
	Rule        string // optional; defaults to the sub-grammar's start_rule
	Placeholder *Node  // used by PlaceholderParser; defaults to {sequence: []}
}

// ASTDirective is the per-rule `ast` configuration block (§4.6).
type ASTDirective struct {
	Name string // only meaningful on sequence parts, for named-children construction

	Discard bool
	Promote bool
	Leaf    bool

	Structure *StructureDirective

	// Tag overrides the emitted node's tag. Empty means "use the rule name".
	Tag string

	// Type, when non-empty, is one of "number", "bool", "null" and governs
	// Value coercion for leaf/promoted scalar nodes and token-mode leaves.
	Type string
}

// HasDirectiveBeyondName reports whether this block carries more than just
// a `name` key — used by the normalizer to decide whether an inline node
// needs to be hoisted into a synthetic named rule (§4.3).
func (a *ASTDirective) HasDirectiveBeyondName() bool {
	if a == nil {
		return false
	}
	return a.Discard || a.Promote || a.Leaf || a.Structure != nil || a.Tag != "" || a.Type != ""
}

// StructureDirective is the `structure` key of an ast directive: either one
// of the two named operator shapes, or an explicit map_children mapping.
type StructureDirective struct {
	Kind string // "left_associative_op" | "right_associative_op" | "map_children"

	// Tag is used by the map_children form to set the emitted node's tag.
	Tag string

	// MapChildren is the fall-forward named-child mapping (map_children form).
	MapChildren map[string]ChildMapping
}

const (
	StructureLeftAssociativeOp  = "left_associative_op"
	StructureRightAssociativeOp = "right_associative_op"
	StructureMapChildren        = "map_children"
)

// ChildMapping is one entry of a map_children mapping: the scan start index
// for the fall-forward search (§4.6).
type ChildMapping struct {
	FromChild int
}

// TokenSpec is one entry of a LexerSpec (§4.2).
type TokenSpec struct {
	Regex  string
	Token  string // token type name; empty for skip-only specs
	Action string // "", "skip", "handle_indent"
	AST    *ASTDirective
}

const (
	ActionSkip         = "skip"
	ActionHandleIndent = "handle_indent"
)

// LexerSpec is the optional `lexer` block of a Grammar (§4.2).
type LexerSpec struct {
	TabWidth int // defaults to 8 when zero
	Tokens   []TokenSpec
}

// TemplateCase is one entry of a TemplateRule's `cases` list (§4.7).
type TemplateCase struct {
	If      *Condition
	Default string
	Then    string
	HasThen bool
}

// Condition is the `if` clause of a TemplateCase.
type Condition struct {
	Path   string
	Equals string
	HasEq  bool
	Negate bool
}

// TemplateRule is the per-tag configuration under `transpiler.rules` (§4.7).
type TemplateRule struct {
	Cases            []TemplateCase
	Template         string
	HasTemplate      bool
	Use              string // "value" | "text"
	Value            string
	HasValue         bool
	JoinChildrenWith string
	HasJoin          bool
	Indent           bool
	StateSet         map[string]string
}

// TranspilerSpec is the optional `transpiler` block of a Grammar (§4.7).
type TranspilerSpec struct {
	Indent string // default four spaces
	Rules  map[string]*TemplateRule
}

// Grammar is a full Koine grammar: a start rule, a namespaced rule set, and
// optional lexer/transpiler configuration (§3).
type Grammar struct {
	StartRule string
	Rules     map[string]*Node
	Lexer     *LexerSpec
	Transpiler *TranspilerSpec

	// SchemaVersion, when set, is checked against SupportedSchemaRange by
	// the loader before normalization runs.
	SchemaVersion string

	// ExternalRoots records reachability roots contributed by subgrammar
	// resolution (§4.3 step 6): every subgrammar entry point and every
	// cross-namespace qualified reference, plus every sub-grammar's own
	// start rule. The linter's reachability check seeds from StartRule
	// plus this set.
	ExternalRoots []string
}

func (g *Grammar) String() string {
	return fmt.Sprintf("Grammar{start=%s, rules=%d}", g.StartRule, len(g.Rules))
}

// Clone returns a deep copy of n. Used by normalization passes that
// rewrite into a fresh tree rather than mutate in place (anonymous-rule
// hoisting and the subgrammar placeholder rewrite).
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Kind: n.Kind, Str: n.Str}
	if n.AST != nil {
		a := *n.AST
		if n.AST.Structure != nil {
			s := *n.AST.Structure
			if n.AST.Structure.MapChildren != nil {
				s.MapChildren = make(map[string]ChildMapping, len(n.AST.Structure.MapChildren))
				for k, v := range n.AST.Structure.MapChildren {
					s.MapChildren[k] = v
				}
			}
			a.Structure = &s
		}
		out.AST = &a
	}
	if n.Children != nil {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	if n.Child != nil {
		out.Child = n.Child.Clone()
	}
	if n.Subgrammar != nil {
		sg := *n.Subgrammar
		sg.Placeholder = n.Subgrammar.Placeholder.Clone()
		out.Subgrammar = &sg
	}
	return out
}
