package lint

import "fmt"

// Error is returned by every check in this package. Kind distinguishes
// configuration-time problems from PEG-compilation-time ones per §7;
// Rules names the offending rule(s) so callers can build the exact §6
// "naming the offending rule" error text.
type Error struct {
	Kind    ErrorKind
	Rules   []string
	Message string
}

type ErrorKind int

const (
	KindConfiguration ErrorKind = iota
	KindCompilation
)

func (e *Error) Error() string {
	if len(e.Rules) > 0 {
		return fmt.Sprintf("%s (rules: %v)", e.Message, e.Rules)
	}
	return e.Message
}
