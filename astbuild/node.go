// Package astbuild implements Koine's C6 AST builder (§4.6): a post-order
// visitor over a peg.Tree, paired at every step with the grammar node that
// produced it, that applies each rule's ast directive to produce a
// semantic AST Node tree.
package astbuild

// Node is a semantic AST node (§3's "AST Node"). Exactly one of Children,
// Named, or the Op/Left/Right trio is populated for a composite node; a
// leaf node has none of them set.
type Node struct {
	Tag  string
	Text string
	Line int
	Col  int

	Value    interface{}
	HasValue bool

	// Children is the ordered-children shape; Named is the named-children
	// shape (§4.6's "default" and "map_children" constructions respectively).
	Children []*Node
	Named    map[string]*Node

	// Op/Left/Right are set only on a structure: left_associative_op /
	// right_associative_op result (tag "binary_op").
	Op    *Node
	Left  *Node
	Right *Node
}

func firstNonNil(nodes []*Node) *Node {
	for _, n := range nodes {
		if n != nil {
			return n
		}
	}
	return nil
}
