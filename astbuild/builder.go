package astbuild

import (
	"fmt"

	"github.com/chrsbats/koine/lexer"
	"github.com/chrsbats/koine/peg"
	"github.com/chrsbats/koine/rule"
)

// Build walks tree (the result of a successful peg.Matcher.Parse) alongside
// the grammar that produced it and returns the root AST Node for §4.6's
// rule-visit algorithm.
//
// tokens and text are mutually exclusive: pass tokens (the lexer's output,
// in match order) for a grammar with a lexer block, or text (the raw
// source) for one without. The builder needs tokens to recover real
// {value, line, col} for leaves in token mode, since the tree it walks was
// matched over the synthetic joined-token-type stream, not the source.
func Build(g *rule.Grammar, tree *peg.Tree, tokens []lexer.Token, text string) (*Node, error) {
	if tree == nil {
		return nil, fmt.Errorf("koine: cannot build an AST from an empty parse tree")
	}
	b := &builder{g: g, tokens: tokens}
	if g.Lexer == nil {
		b.pf = lexer.NewPositionFinder(text)
	}
	root := b.visitRuleRef(tree.Ref, tree)
	return cleanup(root), nil
}

type builder struct {
	g        *rule.Grammar
	tokens   []lexer.Token
	tokenIdx int
	pf       *lexer.PositionFinder
}

// visitChild dispatches on the GRAMMAR node's own Kind, not the matched
// tree's Kind, since peg.Matcher always tags a rule/token visit's Tree as
// rule.RuleRef regardless of which of the two the grammar declared — the
// two shapes are isomorphic by construction, so def.Kind is the reliable
// source of truth for "what is this position". It returns the ordered,
// already-flattened, null-dropped list of AST nodes this position
// contributes — 0, 1, or (for unnamed nested structure) several.
func (b *builder) visitChild(tree *peg.Tree, def *rule.Node) []*Node {
	if def == nil || tree == nil {
		return nil
	}
	switch def.Kind {
	case rule.Literal, rule.Regex:
		return nil

	case rule.RuleRef:
		if n := b.visitRuleRef(def.Str, tree); n != nil {
			return []*Node{n}
		}
		return nil

	case rule.TokenRef:
		if n := b.visitTokenRef(def.Str); n != nil {
			return []*Node{n}
		}
		return nil

	case rule.Choice:
		if len(tree.Children) == 0 || def.Children == nil || tree.Index >= len(def.Children) {
			return nil
		}
		return b.visitChild(tree.Children[0], def.Children[tree.Index])

	case rule.Sequence:
		var out []*Node
		for i, c := range def.Children {
			if i >= len(tree.Children) {
				break
			}
			out = append(out, b.visitChild(tree.Children[i], c)...)
		}
		return out

	case rule.ZeroOrMore, rule.OneOrMore:
		var out []*Node
		for _, kid := range tree.Children {
			out = append(out, b.visitChild(kid, def.Child)...)
		}
		return out

	case rule.Optional:
		if len(tree.Children) == 0 {
			return nil
		}
		return b.visitChild(tree.Children[0], def.Child)

	case rule.PositiveLookahead, rule.NegativeLookahead, rule.SubgrammarRef:
		return nil

	default:
		return nil
	}
}

// visitRuleRef is "visit a rule" (§4.6) for a real grammar rule (as
// opposed to a token-type pseudo-rule, handled by visitTokenRef).
func (b *builder) visitRuleRef(name string, tree *peg.Tree) *Node {
	body := b.g.Rules[name]
	if body == nil {
		return nil
	}
	return b.visitRuleBody(name, body, tree)
}

// visitTokenRef consumes exactly one token from the real token stream,
// advancing the parallel token cursor, and applies that token type's own
// `ast` directive (discard / type coercion). INDENT/DEDENT have no
// TokenSpec entry and carry an empty value, consistent with the lexer.
func (b *builder) visitTokenRef(tokenType string) *Node {
	if b.tokenIdx >= len(b.tokens) {
		return nil
	}
	tok := b.tokens[b.tokenIdx]
	b.tokenIdx++

	spec := b.tokenSpecFor(tokenType)
	if spec != nil && spec.AST != nil && spec.AST.Discard {
		return nil
	}
	n := &Node{Tag: tokenType, Text: tok.Value, Line: tok.Line, Col: tok.Col}
	if spec != nil && spec.AST != nil && spec.AST.Type != "" {
		if v, ok := coerceValue(tok.Value, spec.AST.Type); ok {
			n.Value, n.HasValue = v, true
		}
	}
	return n
}

func (b *builder) tokenSpecFor(tokenType string) *rule.TokenSpec {
	if b.g.Lexer == nil {
		return nil
	}
	for i := range b.g.Lexer.Tokens {
		if b.g.Lexer.Tokens[i].Token == tokenType {
			return &b.g.Lexer.Tokens[i]
		}
	}
	return nil
}

// visitRuleBody applies one rule's `ast` directive to its matched subtree,
// per §4.6's classification order: discard, then leaf, then promote, then
// structure, then the default construction. Position is stamped last: for
// a non-lexer grammar it's the rule's own match offset; in token mode it's
// inherited from the first token this rule visit actually consumed (the
// token cursor's value when the visit began), since only real tokens
// carry real source positions. Structure results are the exception — an
// operator node's position is always the operator's own, set while
// folding the chain, so it is left untouched here.
func (b *builder) visitRuleBody(name string, body *rule.Node, tree *peg.Tree) *Node {
	// tree is always the RuleRef-wrapper peg.Matcher produces for a rule
	// visit (see peg.Tree's doc comment): it carries the rule's own Ref,
	// Offset, End and Text, but the matched content itself — the part
	// shaped like body's own Kind — hangs off tree.Body, not tree.Children.
	bodyTree := tree.Body

	ast := body.AST
	if ast != nil && ast.Discard {
		b.visitChild(bodyTree, body) // still advance the token cursor past it
		return nil
	}

	startIdx := b.tokenIdx
	tag := name
	if ast != nil && ast.Tag != "" {
		tag = ast.Tag
	}

	var result *Node
	skipPositionStamp := false
	switch {
	case b.isLeaf(ast, body):
		result = b.buildLeaf(tag, ast, bodyTree)
	case ast != nil && ast.Promote:
		result = b.buildPromote(tag, ast, bodyTree, body)
	case ast != nil && ast.Structure != nil:
		result = b.buildStructure(tag, ast, bodyTree, body)
		skipPositionStamp = true
	default:
		result = b.buildDefault(tag, bodyTree, body)
	}

	if result == nil || skipPositionStamp {
		return result
	}
	if b.g.Lexer != nil {
		if startIdx < len(b.tokens) {
			result.Line, result.Col = b.tokens[startIdx].Line, b.tokens[startIdx].Col
		}
	} else {
		result.Line, result.Col = b.pf.Find(tree.Offset)
	}
	return result
}

// isLeaf implements §4.6's leaf classification: an explicit `leaf: true`
// always applies; the bare-literal/regex and wrapped-single-literal
// shortcuts only apply when the grammar has no lexer, since in a
// token-mode grammar raw text belongs to token rules, not parser rules.
func (b *builder) isLeaf(ast *rule.ASTDirective, body *rule.Node) bool {
	if ast != nil && ast.Leaf {
		return true
	}
	if b.g.Lexer != nil {
		return false
	}
	if body.Kind == rule.Literal || body.Kind == rule.Regex {
		return true
	}
	if body.Kind == rule.Sequence && len(body.Children) == 1 {
		c := body.Children[0]
		if (c.Kind == rule.Literal || c.Kind == rule.Regex) && !c.AST.HasDirectiveBeyondName() {
			return true
		}
	}
	return false
}

func (b *builder) buildLeaf(tag string, ast *rule.ASTDirective, tree *peg.Tree) *Node {
	n := &Node{Tag: tag, Text: tree.Text}
	if ast != nil && ast.Type != "" {
		if v, ok := coerceValue(tree.Text, ast.Type); ok {
			n.Value, n.HasValue = v, true
		}
	}
	return n
}

// buildPromote implements §4.6's promote construction: the parenthesized
// idiom (a 3-part sequence bracketed by two bare literals) promotes its
// middle part outright; otherwise the rule's whole match is deeply
// flattened and a single survivor is promoted, multiple survivors are
// wrapped as this rule's own children. A parent tag/type/leaf directive
// still applies to the promoted result.
func (b *builder) buildPromote(tag string, ast *rule.ASTDirective, tree *peg.Tree, body *rule.Node) *Node {
	if body.Kind == rule.Sequence && len(body.Children) == 3 &&
		body.Children[0].Kind == rule.Literal && body.Children[2].Kind == rule.Literal &&
		len(tree.Children) == 3 {
		mid := firstNonNil(b.visitChild(tree.Children[1], body.Children[1]))
		return b.applyPromoteTag(tag, ast, mid)
	}

	flat := b.visitChild(tree, body)
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return b.applyPromoteTag(tag, ast, flat[0])
	default:
		return &Node{Tag: tag, Children: flat}
	}
}

func (b *builder) applyPromoteTag(tag string, ast *rule.ASTDirective, n *Node) *Node {
	if n == nil {
		return nil
	}
	if ast.Tag != "" {
		n.Tag = ast.Tag
	}
	if ast.Type != "" {
		if v, ok := coerceValue(n.Text, ast.Type); ok {
			n.Value, n.HasValue = v, true
		}
	}
	if ast.Leaf {
		n.Children, n.Named = nil, nil
	}
	return n
}

// buildDefault implements §4.6's default construction: when the rule body
// is a sequence and any of its parts has ast.name, build named children by
// pairing each named part with its own visit result; otherwise flatten
// everything the body produces into ordered children.
func (b *builder) buildDefault(tag string, tree *peg.Tree, body *rule.Node) *Node {
	if body.Kind != rule.Sequence {
		return &Node{Tag: tag, Children: b.visitChild(tree, body)}
	}

	hasNamed := false
	for _, c := range body.Children {
		if c.AST != nil && c.AST.Name != "" {
			hasNamed = true
			break
		}
	}

	parts := make([][]*Node, len(body.Children))
	for i, c := range body.Children {
		if i < len(tree.Children) {
			parts[i] = b.visitChild(tree.Children[i], c)
		}
	}

	if !hasNamed {
		var flat []*Node
		for _, p := range parts {
			flat = append(flat, p...)
		}
		return &Node{Tag: tag, Children: flat}
	}

	named := map[string]*Node{}
	for i, c := range body.Children {
		if c.AST == nil || c.AST.Name == "" {
			continue
		}
		if v := firstNonNil(parts[i]); v != nil {
			named[c.AST.Name] = v
		}
	}
	return &Node{Tag: tag, Named: named}
}

// buildStructure dispatches the two `structure` directive shapes.
func (b *builder) buildStructure(tag string, ast *rule.ASTDirective, tree *peg.Tree, body *rule.Node) *Node {
	switch ast.Structure.Kind {
	case rule.StructureLeftAssociativeOp, rule.StructureRightAssociativeOp:
		return b.buildOperatorChain(tree, body)
	case rule.StructureMapChildren:
		return b.buildMapChildren(tag, ast.Structure, tree, body)
	default:
		return nil
	}
}

type opPair struct {
	op  *Node
	rhs *Node
}

// buildOperatorChain folds an operator expression rule into nested
// {tag: "binary_op", op, left, right} nodes (§3's "operator node").
// The body is expected in the usual two-part shape: an operand, then a
// zero_or_more/optional/bare sequence of (operator, operand) pairs. Both
// structure kinds fold the collected pairs left to right; a
// right_associative_op rule recurses through its own right operand, so it
// yields a single pair and its right-leaning nesting comes from that
// recursion.
func (b *builder) buildOperatorChain(tree *peg.Tree, body *rule.Node) *Node {
	if body.Kind != rule.Sequence || len(body.Children) != 2 || len(tree.Children) != 2 {
		return nil
	}
	lhs := firstNonNil(b.visitChild(tree.Children[0], body.Children[0]))
	pairs := b.collectOperatorPairs(tree.Children[1], body.Children[1])

	if len(pairs) == 0 {
		return lhs
	}

	// Left-associative: ((a op1 b) op2 c) ...
	result := lhs
	for _, p := range pairs {
		result = &Node{Tag: "binary_op", Op: p.op, Left: result, Right: p.rhs}
		if p.op != nil {
			result.Line, result.Col = p.op.Line, p.op.Col
		}
	}
	return result
}

func (b *builder) collectOperatorPairs(tree *peg.Tree, def *rule.Node) []opPair {
	switch def.Kind {
	case rule.ZeroOrMore, rule.OneOrMore:
		var out []opPair
		for _, kid := range tree.Children {
			out = append(out, b.extractPair(kid, def.Child)...)
		}
		return out
	case rule.Optional:
		if len(tree.Children) == 0 {
			return nil
		}
		return b.extractPair(tree.Children[0], def.Child)
	default:
		return b.extractPair(tree, def)
	}
}

func (b *builder) extractPair(tree *peg.Tree, def *rule.Node) []opPair {
	if def.Kind != rule.Sequence || len(def.Children) != 2 || len(tree.Children) != 2 {
		return nil
	}
	op := firstNonNil(b.visitChild(tree.Children[0], def.Children[0]))
	rhs := firstNonNil(b.visitChild(tree.Children[1], def.Children[1]))
	return []opPair{{op: op, rhs: rhs}}
}

// buildMapChildren implements the explicit fall-forward named-child
// mapping (§4.6/§3's "Fall-forward mapping"): each mapping's from_child
// names the sequence part index to start scanning at, moving forward
// across later parts until a non-empty visit result is found.
func (b *builder) buildMapChildren(tag string, s *rule.StructureDirective, tree *peg.Tree, body *rule.Node) *Node {
	var slots []*Node
	if body.Kind == rule.Sequence {
		slots = make([]*Node, len(body.Children))
		for i, c := range body.Children {
			if i < len(tree.Children) {
				slots[i] = firstNonNil(b.visitChild(tree.Children[i], c))
			}
		}
	} else {
		slots = []*Node{firstNonNil(b.visitChild(tree, body))}
	}

	named := map[string]*Node{}
	for name, mapping := range s.MapChildren {
		for j := mapping.FromChild; j < len(slots); j++ {
			if slots[j] != nil {
				named[name] = slots[j]
				break
			}
		}
	}

	nodeTag := tag
	if s.Tag != "" {
		nodeTag = s.Tag
	}
	return &Node{Tag: nodeTag, Named: named}
}
