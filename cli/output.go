package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Exit codes for typedsql commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the statement or query failed
	ExitCommandError = 2 // bad flags, missing files, unknown tables
)

// ExitError carries the exit code a command failed with.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// commandError wraps err as a usage-level failure.
func commandError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitCommandError, Message: msg, Err: err}
}

// ExitCode extracts the exit code from an error; errors that are not an
// ExitError map to ExitFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Output writes user-facing messages. Diagnostics go to Err so Out
// stays machine readable.
type Output struct {
	Out io.Writer
	Err io.Writer
}

// Stdio writes to the process's stdout and stderr.
var Stdio = Output{Out: os.Stdout, Err: os.Stderr}

// Fatal prints an error to Err and exits with code.
func (o Output) Fatal(code int, msg string) {
	fmt.Fprintln(o.Err, "error:", msg)
	os.Exit(code)
}

// FatalErr prints err to Err and exits with the code it carries.
func (o Output) FatalErr(err error) {
	o.Fatal(ExitCode(err), err.Error())
}

// Infof prints a formatted informational message to Out.
func (o Output) Infof(format string, args ...any) {
	fmt.Fprintf(o.Out, format+"\n", args...)
}

// Warnf prints a formatted warning to Err.
func (o Output) Warnf(format string, args ...any) {
	fmt.Fprintf(o.Err, "warning: "+format+"\n", args...)
}
