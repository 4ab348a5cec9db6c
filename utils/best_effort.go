package utils

import (
	"go.uber.org/zap"
)

// Result is the outcome of a best-effort side call: either a value or the error that was swallowed.
type Result[T any] struct {
	Value T
	Err   error
}

func (r Result[T]) OK() bool { return r.Err == nil }

// ValueOr degrades to def when the call failed.
func (r Result[T]) ValueOr(def T) T {
	if r.Err != nil {
		return def
	}
	return r.Value
}

// BestEffort runs fn and logs a warning instead of propagating its error.
func BestEffort[T any](what string, fn func() (T, error), fields ...zap.Field) Result[T] {
	v, err := fn()
	if err != nil {
		Log().Warn(what+" failed, continuing without it", append(fields, zap.Error(err))...)
		return Result[T]{Err: err}
	}
	return Result[T]{Value: v}
}
