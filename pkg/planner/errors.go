package planner

import "fmt"

// GroundingError reports a domain/problem pair that cannot be
// grounded: an undeclared predicate, function, type, or object, or a
// malformed expression that survived parsing.
type GroundingError struct {
	Msg string
}

func (e *GroundingError) Error() string { return "grounding: " + e.Msg }

func groundingErrorf(format string, args ...interface{}) error {
	return &GroundingError{Msg: fmt.Sprintf(format, args...)}
}

// undefinedStaticError marks a reference to a static fluent with no
// initial value. Inside a condition it folds the condition to false;
// anywhere else it surfaces as a *GroundingError.
type undefinedStaticError struct {
	fl    Fluent
	where string
}

func (e *undefinedStaticError) Error() string {
	return fmt.Sprintf("%s: no initial value for static fluent %s", e.where, e.fl)
}

// EncodingError reports a failure producing a formula document or
// writing it to its destination. Unlike a solver failure it is
// deterministic, so the search aborts instead of advancing.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string { return "encoding: " + e.Err.Error() }

func (e *EncodingError) Unwrap() error { return e.Err }
