// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrCommandFailed is the sentinel error wrapped by ExitError.
var ErrCommandFailed = errors.New("command failed")

type (
	// ExitCode represents a process exit status code.
	// The zero value (0) means success.
	ExitCode int

	// ExitError is returned when a command line exits with a non-zero status.
	ExitError struct {
		Line string
		Code ExitCode
	}
)

// IsSuccess returns true if the exit code indicates successful execution.
func (c ExitCode) IsSuccess() bool { return c == 0 }

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: exit status %d", e.Line, e.Code)
}

// Unwrap returns ErrCommandFailed for errors.Is compatibility.
func (e *ExitError) Unwrap() error { return ErrCommandFailed }

// ExitCodeOf returns the exit code carried by err, 0 for nil and 1 for errors
// that carry no process status.
func ExitCodeOf(err error) ExitCode {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}
