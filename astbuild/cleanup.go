package astbuild

import "strings"

// cleanup implements §4.6's final pass: any node whose tag still carries
// the normalizer's `__` hoisting separator (an anonymous wrapper rule that
// nobody gave a real tag to) is dropped from its parent, since it only
// ever existed to carry an ast directive for something else.
func cleanup(n *Node) *Node {
	if n == nil {
		return nil
	}
	if n.Children != nil {
		out := make([]*Node, 0, len(n.Children))
		for _, c := range n.Children {
			c = cleanup(c)
			if c == nil || strings.Contains(c.Tag, "__") {
				continue
			}
			out = append(out, c)
		}
		n.Children = out
	}
	if n.Named != nil {
		out := make(map[string]*Node, len(n.Named))
		for k, c := range n.Named {
			c = cleanup(c)
			if c == nil || strings.Contains(c.Tag, "__") {
				continue
			}
			out[k] = c
		}
		n.Named = out
	}
	n.Op = cleanup(n.Op)
	n.Left = cleanup(n.Left)
	n.Right = cleanup(n.Right)
	return n
}
