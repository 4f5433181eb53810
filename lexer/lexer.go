// Package lexer implements Koine's C1 (position finder) and C2
// (indentation-aware stateful lexer). Tokenize is grounded on the
// teacher's lexer/indenter/indenting.go, which wraps an inner lexer and
// tracks an indent stack to synthesize INDENT/DEDENT; Koine's lexer has
// no inner lexer to wrap since token specs are data (a LexerSpec), so the
// longest-match scan and the indent bookkeeping are folded into one
// function instead of a decorator over a nested lexer.Definition.
package lexer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/chrsbats/koine/rule"
)

// Tokenize runs spec's ordered token specs over text and returns the
// resulting token stream, per §4.2's algorithm: longest match wins at
// each position, ties go to the earliest-declared spec; `skip` specs are
// consumed without emitting a token; `handle_indent` specs drive an
// indent-stack state machine that synthesizes INDENT/DEDENT.
func Tokenize(spec *rule.LexerSpec, text string) ([]Token, error) {
	tabWidth := spec.TabWidth
	if tabWidth == 0 {
		tabWidth = 8
	}

	compiled := make([]*regexp.Regexp, len(spec.Tokens))
	hasIndent := false
	for i, t := range spec.Tokens {
		compiled[i] = regexp.MustCompile(`^(?:` + t.Regex + `)`)
		if t.Action == rule.ActionHandleIndent {
			hasIndent = true
		}
	}

	pf := NewPositionFinder(text)
	indentStack := []int{0}
	var tokens []Token
	pos := 0

	for pos < len(text) {
		bestLen := -1
		bestIdx := -1
		for i, re := range compiled {
			loc := re.FindStringIndex(text[pos:])
			if loc == nil {
				continue
			}
			if loc[1] > bestLen {
				bestLen = loc[1]
				bestIdx = i
			}
		}
		if bestIdx == -1 || bestLen == 0 {
			line, col := pf.Find(pos)
			r, _ := utf8.DecodeRuneInString(text[pos:])
			return nil, &Error{
				Kind: KindLexical, Line: line, Col: col,
				Message: fmt.Sprintf("Unexpected character at L%d:C%d: '%c'", line, col, r),
			}
		}

		ts := spec.Tokens[bestIdx]
		matched := text[pos : pos+bestLen]
		line, col := pf.Find(pos)

		switch ts.Action {
		case rule.ActionSkip:
			// consumed, no token emitted

		case rule.ActionHandleIndent:
			nl := strings.LastIndexByte(matched, '\n')
			ws := matched[nl+1:]
			width := 0
			for _, ch := range ws {
				if ch == '\t' {
					width += tabWidth
				} else {
					width++
				}
			}
			dLine, dCol := pf.Find(pos + bestLen)
			top := indentStack[len(indentStack)-1]
			if width > top {
				indentStack = append(indentStack, width)
				tokens = append(tokens, Token{Type: TokenIndent, Line: dLine, Col: dCol})
			} else {
				for width < indentStack[len(indentStack)-1] {
					indentStack = indentStack[:len(indentStack)-1]
					tokens = append(tokens, Token{Type: TokenDedent, Line: dLine, Col: dCol})
				}
				if width != indentStack[len(indentStack)-1] {
					return nil, &Error{
						Kind: KindIndentation, Line: dLine,
						Message: fmt.Sprintf("Indentation error at L%d", dLine),
					}
				}
			}

		default:
			tokens = append(tokens, Token{Type: ts.Token, Value: matched, Line: line, Col: col})
		}

		pos += bestLen
	}

	if hasIndent {
		line, col := pf.Find(pos)
		for len(indentStack) > 1 {
			indentStack = indentStack[:len(indentStack)-1]
			tokens = append(tokens, Token{Type: TokenDedent, Line: line, Col: col})
		}
	}

	return tokens, nil
}
