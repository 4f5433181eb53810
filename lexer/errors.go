package lexer

// Error is returned by Tokenize. Its Error() string is already formatted
// per §6/§7's exact lexical/indentation error message shapes; the
// orchestrator package wraps it as koine.LexicalError or
// koine.IndentationError without altering the message text.
type Error struct {
	Kind    ErrorKind
	Line    int
	Col     int
	Message string
}

type ErrorKind int

const (
	KindLexical ErrorKind = iota
	KindIndentation
)

func (e *Error) Error() string { return e.Message }
