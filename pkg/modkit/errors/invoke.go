package errors

import (
	"errors"
	"runtime/debug"
)

// Invoke calls fn and converts a returned error or a panic into an
// *InvocationError naming target and stage.
//
// Errors that already are invocation errors pass through unchanged so that
// nested dispatch does not wrap twice.
func Invoke(target, stage string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &InvocationError{
				Target: target,
				Stage:  stage,
				Panic:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	if err = fn(); err != nil {
		var invErr *InvocationError
		if errors.As(err, &invErr) {
			return err
		}
		return &InvocationError{
			Target: target,
			Stage:  stage,
			Err:    err,
		}
	}
	return nil
}
