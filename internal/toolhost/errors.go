package toolhost

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable reports that the subprocess could not be spawned within
// the configured number of attempts, or that the host has been closed.
var ErrUnavailable = errors.New("toolhost: subprocess unavailable")

// TimeoutError reports that no matching response arrived in time. The
// outstanding request id is retired; a late response is discarded.
type TimeoutError struct {
	Tool  string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("toolhost: %s call timed out after %s", e.Tool, e.After)
}

// ProcessExitedError reports that the subprocess exited while a call was in
// flight. The host respawns lazily on the next call.
type ProcessExitedError struct {
	Code int
}

func (e *ProcessExitedError) Error() string {
	return fmt.Sprintf("toolhost: subprocess exited (code %d)", e.Code)
}

// InvalidParamsError marks a tool rejecting its parameters; the server maps
// it to the invalid-params error code.
type InvalidParamsError struct {
	Msg string
}

func (e *InvalidParamsError) Error() string { return e.Msg }
