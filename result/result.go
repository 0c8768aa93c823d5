// Package result implements SpiceResult, the Success|Failure sum type used
// across spicegraph instead of exceptions. Grounded on the teacher's
// NodeResult[S]{Delta, Route, Err} shape (graph/node.go), which is itself a
// struct-with-error-field; spicegraph tightens this into a proper sum type
// so a Result cannot simultaneously carry a value and an error.
package result

import "github.com/spicegraph/spicegraph/spiceerr"

// Result is either a Success carrying a T, or a Failure carrying a
// *spiceerr.SpiceError. The zero value is neither -- always construct via
// Ok or Err.
type Result[T any] struct {
	ok    bool
	value T
	err   *spiceerr.SpiceError
}

// Ok constructs a successful Result.
func Ok[T any](value T) Result[T] {
	return Result[T]{ok: true, value: value}
}

// Err constructs a failed Result.
func Err[T any](err *spiceerr.SpiceError) Result[T] {
	return Result[T]{ok: false, err: err}
}

// IsOk reports whether the Result is a Success.
func (r Result[T]) IsOk() bool { return r.ok }

// IsErr reports whether the Result is a Failure.
func (r Result[T]) IsErr() bool { return !r.ok }

// Value returns the success value and true, or the zero value and false.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.ok
}

// Error returns the failure error, or nil if the Result is a Success.
func (r Result[T]) Error() *spiceerr.SpiceError {
	if r.ok {
		return nil
	}
	return r.err
}

// Unwrap returns the success value, panicking if the Result is a Failure.
// Reserved for call sites that have already checked IsOk.
func (r Result[T]) Unwrap() T {
	if !r.ok {
		panic("result: Unwrap called on a Failure: " + r.err.Error())
	}
	return r.value
}

// Map transforms a successful Result's value, passing failures through
// unchanged.
func Map[T, U any](r Result[T], f func(T) U) Result[U] {
	if r.ok {
		return Ok(f(r.value))
	}
	return Err[U](r.err)
}
