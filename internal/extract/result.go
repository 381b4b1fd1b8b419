// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import "fmt"

// ParseError describes why model output could not be turned into a record.
type ParseError struct {
	// What names the record being parsed ("plan", "facts", "report").
	What   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %s", e.What, e.Reason)
}

// Result is either a parsed value (Ok) or a ParseError.
type Result[T any] struct {
	value T
	err   *ParseError
}

// Ok wraps a successfully parsed value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Fail wraps a parse failure.
func Fail[T any](what, format string, args ...any) Result[T] {
	return Result[T]{err: &ParseError{What: what, Reason: fmt.Sprintf(format, args...)}}
}

// IsOk reports whether parsing succeeded.
func (r Result[T]) IsOk() bool { return r.err == nil }

// Err returns the parse failure, or nil.
func (r Result[T]) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

// Value returns the parsed value and whether it is valid.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.err == nil
}

// Or returns the parsed value, or def when parsing failed.
func (r Result[T]) Or(def T) T {
	if r.err != nil {
		return def
	}
	return r.value
}
