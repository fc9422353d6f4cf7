package sparql

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported is returned for syntactically valid operations the
	// engine does not implement.
	ErrUnsupported = errors.New("unsupported operation")

	// ErrNotQuery is returned when an update is prepared as a query or the
	// reverse.
	ErrNotQuery = errors.New("not a query")
)

// SyntaxError reports where parsing failed.
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// errTypeError is the SPARQL expression type error. It never escapes the
// package: FILTER treats it as false and BIND leaves the variable unbound.
var errTypeError = errors.New("type error")
