package errors

import "fmt"

// Location identifies a position in source text. It is threaded through
// every stage of the pipeline so a fatal error can always be reported
// against the input the user wrote.
type Location struct {
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Fatal is the single error type returned across package boundaries in the
// lexer/parser/types/compiler/vm packages. The pipeline never panics across
// a package boundary; internal invariant violations are reported as a Fatal
// with a VM### or CMP### code instead, so the CLI can print one consistent
// shape regardless of which phase failed.
type Fatal struct {
	Code     string
	Message  string
	Location Location
}

func (e *Fatal) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Location, e.Code, e.Message)
}

// New builds a Fatal with the given code, location and formatted message.
func New(code string, loc Location, format string, args ...interface{}) *Fatal {
	return &Fatal{Code: code, Message: fmt.Sprintf(format, args...), Location: loc}
}
