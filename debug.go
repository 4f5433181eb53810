package koine

import (
	"io"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// pegLexerName is registered once, lazily, the first time HighlightPEG
// runs — following the pack's own lazy-chroma-registration idiom rather
// than an init() that would pay the cost even for callers who never
// debug-print a grammar.
const pegLexerName = "koine-peg"

var pegLexer chroma.Lexer

func registerPEGLexer() chroma.Lexer {
	if pegLexer != nil {
		return pegLexer
	}
	pegLexer = chroma.MustNewLexer(
		&chroma.Config{
			Name:      pegLexerName,
			Filenames: []string{"*.peg"},
			MimeTypes: []string{"text/x-peg"},
		},
		chroma.Rules{
			"root": {
				{Pattern: `#.*$`, Type: chroma.Comment, Mutator: nil},
				{Pattern: `"(\\.|[^"\\])*"`, Type: chroma.LiteralString, Mutator: nil},
				{Pattern: `'(\\.|[^'\\])*'`, Type: chroma.LiteralString, Mutator: nil},
				{Pattern: `/(\\.|[^/\\])*/`, Type: chroma.LiteralStringRegex, Mutator: nil},
				{Pattern: `\b[A-Za-z_][A-Za-z0-9_]*\b`, Type: chroma.NameVariable, Mutator: nil},
				{Pattern: `[(){}\[\]|/*+?.&!]`, Type: chroma.Operator, Mutator: nil},
				{Pattern: `:=|<-|->`, Type: chroma.Operator, Mutator: nil},
				{Pattern: `\s+`, Type: chroma.Whitespace, Mutator: nil},
				{Pattern: `.`, Type: chroma.Text, Mutator: nil},
			},
		},
	)
	lexers.Register(pegLexer)
	return pegLexer
}

// HighlightPEG writes source (a grammar's reconstructed PEG text, e.g.
// the output of Parser.PEG()) to w with ANSI syntax highlighting,
// for debug/diagnostic printing of a compiled grammar. It never returns
// an error from the lexer itself — tokenization over an arbitrary rule
// body cannot fail — only from the formatter/writer.
func HighlightPEG(w io.Writer, source string) error {
	lex := registerPEGLexer()
	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lex.Tokenise(nil, source)
	if err != nil {
		return err
	}
	return formatter.Format(w, style, iterator)
}
