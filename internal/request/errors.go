package request

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMethod is returned by New for methods outside the supported set.
	ErrInvalidMethod = errors.New("invalid method")

	// ErrNoResponse is returned by response accessors before a terminal
	// operation has resolved.
	ErrNoResponse = errors.New("response not yet available")

	// ErrAlreadyDispatched is returned when a terminal operation is invoked
	// a second time on the same Request.
	ErrAlreadyDispatched = errors.New("request already dispatched")
)

// ExpectationError reports one failed response expectation.
type ExpectationError struct {
	Subject  string
	Expected string
	Actual   string
	Diff     string
}

func (e *ExpectationError) Error() string {
	msg := fmt.Sprintf("expectation failed: %s: expected %s, got %s", e.Subject, e.Expected, e.Actual)
	if e.Diff != "" {
		msg += "\n" + e.Diff
	}
	return msg
}
