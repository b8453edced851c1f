package pddl

import (
	"fmt"

	"github.com/gitrdm/gosmtplan/internal/sexp"
)

// ParseError reports malformed or unsupported PDDL input.
type ParseError struct {
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("pddl: %d:%d: %s", e.Line, e.Col, e.Msg)
}

func errAt(n sexp.Node, format string, args ...interface{}) error {
	return &ParseError{Line: n.Line, Col: n.Col, Msg: fmt.Sprintf(format, args...)}
}

func wrapSyntax(err error) error {
	if se, ok := err.(*sexp.SyntaxError); ok {
		return &ParseError{Line: se.Line, Col: se.Col, Msg: se.Msg}
	}
	return err
}
