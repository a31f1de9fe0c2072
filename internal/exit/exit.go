// Package exit carries the output destination, message and process exit
// code from the point a terminal condition is decided to main.
package exit

import (
	"fmt"
	"io"
	"os"
)

// Exit codes reported by the CLI.
const (
	CodeOK       = 0 // every document matched
	CodeMismatch = 1 // at least one document did not match
	CodeUsage    = 2 // bad arguments or malformed pattern document
	CodeFault    = 3 // predicate fault or exhausted depth budget
)

// Result holds the output destination and exit code for program termination.
type Result struct {
	Output   io.Writer
	ExitCode int
	Message  string
}

// Print writes the result message to the configured output destination.
func (r *Result) Print() {
	fmt.Fprint(r.Output, r.Message)
}

// Success creates an exit result that outputs to stdout with exit code 0.
func Success(message string) *Result {
	return &Result{
		Output:   os.Stdout,
		ExitCode: CodeOK,
		Message:  message,
	}
}

// Usage creates an exit result for argument or pattern errors.
func Usage(message string) *Result {
	return &Result{
		Output:   os.Stderr,
		ExitCode: CodeUsage,
		Message:  message,
	}
}

// Usagef creates a usage exit result with a formatted message.
func Usagef(format string, a ...any) *Result {
	return Usage(fmt.Sprintf(format, a...))
}
