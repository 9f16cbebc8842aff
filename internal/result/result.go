// Package result provides a typed success-or-failure value for operations
// whose failures are logged and absorbed rather than propagated.
package result

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Result is the outcome of a fallible operation.
type Result[T any] struct {
	Value T
	err   error
}

// OK wraps a successful value.
func OK[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Fail wraps a failure. A nil err is replaced so the result stays failed.
func Fail[T any](err error) Result[T] {
	if err == nil {
		err = errors.New("operation failed")
	}
	return Result[T]{err: err}
}

// From converts a (value, error) pair.
func From[T any](v T, err error) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return OK(v)
}

// OK reports success.
func (r Result[T]) OK() bool {
	return r.err == nil
}

// Err returns the failure reason, or nil on success.
func (r Result[T]) Err() error {
	return r.err
}

// Unwrap returns the value and error as a pair.
func (r Result[T]) Unwrap() (T, error) {
	return r.Value, r.err
}

// PanicError is the failure recorded when a guarded operation panics.
type PanicError struct {
	Op    string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Op, e.Value)
}

// Guard runs fn, converting a returned error or a panic into a failed
// result. Failures are logged under op; nothing escapes to the caller.
func Guard[T any](logger *zap.Logger, op string, fn func() (T, error)) (res Result[T]) {
	defer func() {
		if v := recover(); v != nil {
			res = Fail[T](&PanicError{Op: op, Value: v})
			if logger != nil {
				logger.Error("operation panicked", zap.String("op", op), zap.Any("panic", v))
			}
		}
	}()

	v, err := fn()
	if err != nil {
		if logger != nil {
			logger.Warn("operation failed", zap.String("op", op), zap.Error(err))
		}
		return Fail[T](err)
	}
	return OK(v)
}

// Do is Guard for operations without a value.
func Do(logger *zap.Logger, op string, fn func() error) Result[struct{}] {
	return Guard(logger, op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
}
