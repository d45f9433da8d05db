package reactive

import (
	"errors"
	"fmt"
)

// ErrBudgetExceeded is reported when a single flush tries to run more effects
// than the runtime's Budget allows. The remaining runs of that flush are
// dropped; the effects stay subscribed and run again on their next change.
var ErrBudgetExceeded = errors.New("reactive: effect budget exceeded")

// PanicError wraps a value recovered from a panicking effect body.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("reactive: effect panicked: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
