// Package fn composes the lookup workflows out of small traced stages.
package fn

// Result is the outcome of a Stage: a value, or the error that stopped it.
type Result[T any] struct {
	val T
	err error
}

// Ok wraps a value.
func Ok[T any](v T) Result[T] { return Result[T]{val: v} }

// Err wraps a failure. A nil err is not a failure.
func Err[T any](err error) Result[T] { return Result[T]{err: err} }

// FromPair adapts the usual (value, error) return.
func FromPair[T any](v T, err error) Result[T] {
	if err != nil {
		return Err[T](err)
	}
	return Ok(v)
}

// IsErr reports whether the stage failed.
func (r Result[T]) IsErr() bool { return r.err != nil }

// Unwrap returns the value and error.
func (r Result[T]) Unwrap() (T, error) { return r.val, r.err }
