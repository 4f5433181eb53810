package lexer

import "sort"

// PositionFinder maps a byte offset into text to a 1-based (line, column)
// pair. It is built once per input and reused by both the lexer (to stamp
// tokens as they're produced) and the orchestrator (to translate a raw
// matcher offset into a position for non-lexer grammars) — grounded on the
// teacher's lexer.Position, but here split out as its own lookup structure
// since Koine's matcher works over byte offsets rather than a scanner that
// tracks position as it goes.
type PositionFinder struct {
	text       string
	lineStarts []int
}

// NewPositionFinder indexes the offset of the first byte of every line in
// text (line 1 always starts at offset 0).
func NewPositionFinder(text string) *PositionFinder {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &PositionFinder{text: text, lineStarts: starts}
}

// Find returns the 1-based line and column of offset, clamping offset into
// [0, len(text)] first (§4.1). An offset equal to len(text) (end of input)
// resolves to the position one past the last byte, as needed for
// end-of-input error messages.
func (p *PositionFinder) Find(offset int) (line, col int) {
	if offset < 0 {
		offset = 0
	} else if offset > len(p.text) {
		offset = len(p.text)
	}
	i := sort.Search(len(p.lineStarts), func(i int) bool {
		return p.lineStarts[i] > offset
	})
	line = i // lineStarts[0..i-1] all <= offset, so line i (1-based) is lineStarts[i-1]
	col = offset - p.lineStarts[i-1] + 1
	return line, col
}
