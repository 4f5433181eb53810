// Package peg implements Koine's C5 (PEG transpiler) and the packrat
// matcher that plays the role of the external PEG engine spec.md treats as
// an out-of-scope collaborator: something that takes a rendered PEG grammar
// and an input string and returns a parse tree for a visitor to walk.
//
// There is no ready-made "load a textual PEG grammar, get a packrat matcher"
// library among the retrieval pack's dependencies, so this package both
// renders the canonical PEG text (Render, grounded on the teacher's
// stringer.go) and implements the matcher itself (grounded on the teacher's
// nodes.go `node` interface), compiling directly from the normalized
// *rule.Grammar rather than re-parsing Render's text output — see
// DESIGN.md's "Open Questions" for why the textual round-trip is skipped
// for matching while still being exercised and tested on its own.
package peg

import "github.com/chrsbats/koine/rule"

// Tree is a parse tree node. It mirrors the shape of the rule.Node that
// produced it: every grammar node kind participates, but only RuleRef and
// TokenRef nodes carry a Ref (the resolved rule name) and a Body (the match
// of that rule's own top-level expression) — these are the nodes the AST
// builder (C6) treats as "rule visits".
type Tree struct {
	Kind rule.Kind

	// Text is the substring of the matcher's input consumed by this node.
	Text        string
	Offset, End int

	// Children holds, depending on Kind:
	//   Sequence: one entry per part, in declaration order; a part that
	//             matched nothing (a successful empty optional) still has
	//             a non-nil entry with no children, so positional indexing
	//             is preserved.
	//   Choice:   exactly one entry, the alternative that matched.
	//   ZeroOrMore/OneOrMore: one entry per repetition.
	//   Optional: zero or one entry.
	// All other kinds leave Children nil.
	Children []*Tree

	// Index is set only for Choice nodes: the index into the grammar
	// node's own Children slice of the alternative that matched. The
	// AST builder needs this to pair the matched subtree with the right
	// grammar node, since Children alone only keeps the winner.
	Index int

	// Ref and Body are set only for RuleRef/TokenRef nodes.
	Ref  string
	Body *Tree
}
