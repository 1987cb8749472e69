package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mitchellh/colorstring"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Execution or validation failure
	ExitCommandError = 2 // Command error (bad paths, unreadable manifests, etc.)
)

// ExitError carries a specific exit code out of a command.
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

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs colored text output for commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// JSON marshals v with indentation to the output writer.
func (f *OutputFormatter) JSON(v any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Text prints a line, expanding colorstring tags ([green], [red], ...)
// in text mode. In JSON mode text lines are suppressed so structured
// output stays parseable.
func (f *OutputFormatter) Text(format string, args ...any) {
	if f.Format != "text" {
		return
	}
	fmt.Fprintln(f.Writer, colorstring.Color(fmt.Sprintf(format, args...)))
}

// VerboseLog prints a diagnostic line to the error writer when verbose
// output is on. Diagnostics never go to stdout, so JSON output is not
// corrupted.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
