package cli

import (
	"errors"
	"fmt"
	"io"
)

// Exit codes.
const (
	ExitOK = 0
	// ExitFindings means the checked artifact has defects.
	ExitFindings = 1
	// ExitFailure means the command itself could not run.
	ExitFailure = 2
)

// ExitError is an error that carries an exit code.
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Cause }

func findings(n int, what string) *ExitError {
	return &ExitError{Code: ExitFindings, Message: fmt.Sprintf("%d %s found", n, what)}
}

func failure(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitFailure, Message: msg, Cause: cause}
}

// HandleError prints err to w and returns the process exit code.
func HandleError(w io.Writer, err error) int {
	if err == nil {
		return ExitOK
	}
	fmt.Fprintln(w, "Error:", err)
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
