package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"storefront/internal/apperror"
	"storefront/internal/fetchstate"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the remote API or the store refused the operation
	ExitCommandError = 2 // bad arguments or configuration
)

// ExitError carries the exit code a failed command should end with.
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

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error; other errors exit with ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Response is the JSON envelope of every command.
type Response struct {
	Status   string               `json:"status"`
	Data     any                  `json:"data,omitempty"`
	Error    *ErrorDetail         `json:"error,omitempty"`
	Redirect *fetchstate.Redirect `json:"redirect,omitempty"`
}

// ErrorDetail is a classified failure as shown on the command line.
type ErrorDetail struct {
	Kind        apperror.Kind       `json:"kind"`
	Title       string              `json:"title"`
	Message     string              `json:"message"`
	FieldErrors map[string][]string `json:"fieldErrors,omitempty"`
	Retryable   bool                `json:"retryable"`
}

// Output writes results in the selected format.
type Output struct {
	Format string
	Writer io.Writer
}

// Success prints data; text renders the human form.
func (o *Output) Success(data any, text func(w io.Writer)) error {
	if o.Format == "json" {
		return o.writeJSON(Response{Status: "ok", Data: data})
	}
	text(o.Writer)
	return nil
}

// Failure prints a classified error and returns the ExitError the command ends with.
func (o *Output) Failure(e *apperror.Error, redirect *fetchstate.Redirect) error {
	if o.Format == "json" {
		if err := o.writeJSON(Response{
			Status: "error",
			Error: &ErrorDetail{
				Kind:        e.Kind,
				Title:       e.Kind.Title(),
				Message:     e.Message,
				FieldErrors: e.FieldErrors,
				Retryable:   e.Retryable(),
			},
			Redirect: redirect,
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(o.Writer, "%s: %s\n", e.Kind.Title(), e.Message)
		for field, msgs := range e.FieldErrors {
			for _, m := range msgs {
				fmt.Fprintf(o.Writer, "  %s: %s\n", field, m)
			}
		}
		if redirect != nil {
			fmt.Fprintln(o.Writer, "Run `shopctl login` to sign in again.")
		}
	}
	code := ExitFailure
	if e.Kind == apperror.KindValidation {
		code = ExitCommandError
	}
	return &ExitError{Code: code, Message: e.Message, Err: e}
}

func (o *Output) writeJSON(v any) error {
	enc := json.NewEncoder(o.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
