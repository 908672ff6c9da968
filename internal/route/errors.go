package route

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrRouteNotFound  = errors.New("route not found")
	ErrDuplicateRoute = errors.New("route already defined")
	ErrUnhandled      = errors.New("unhandled route failure")
)

// UnhandledError is returned by Run when the failure strategy left the
// failure unhandled and the caller's default failure path must take over.
type UnhandledError struct {
	RouteID string
	Err     error
}

func (e *UnhandledError) Error() string {
	return fmt.Sprintf("route %s: %v", e.RouteID, e.Err)
}

func (e *UnhandledError) Unwrap() error {
	return e.Err
}

func (e *UnhandledError) Is(target error) bool {
	return target == ErrUnhandled
}

// PanicError wraps a value recovered from a panicking step
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("step panicked: %v", e.Value)
}

// IsUnhandled checks if err is an unhandled route failure
func IsUnhandled(err error) bool {
	var unhandled *UnhandledError
	return errors.As(err, &unhandled)
}
