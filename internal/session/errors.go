package session

import (
	"errors"
	"fmt"
)

// modelLoadError signals that the model file could not be loaded or its
// initial context could not be allocated. Fatal to session creation.
type modelLoadError struct {
	path  string
	cause error
}

func (e modelLoadError) Error() string { return fmt.Sprintf("load model %s: %v", e.path, e.cause) }
func (e modelLoadError) Unwrap() error { return e.cause }

// IsModelLoad reports whether err indicates a model load failure.
func IsModelLoad(err error) bool {
	var e modelLoadError
	return errors.As(err, &e)
}

// contextInitError signals that the context could not be (re)created. The
// session is left without a usable context until a later Reset succeeds.
type contextInitError struct{ cause error }

func (e contextInitError) Error() string { return fmt.Sprintf("init context: %v", e.cause) }
func (e contextInitError) Unwrap() error { return e.cause }

// IsContextInit reports whether err indicates a context allocation failure.
func IsContextInit(err error) bool {
	var e contextInitError
	return errors.As(err, &e)
}

// promptTooLongError signals that tokenization exceeded the prompt limit.
// The prompt is rejected rather than silently truncated.
type promptTooLongError struct{ count, limit int }

func (e promptTooLongError) Error() string {
	return fmt.Sprintf("prompt is %d tokens, limit is %d", e.count, e.limit)
}

// ErrPromptTooLong constructs a promptTooLongError.
func ErrPromptTooLong(count, limit int) error {
	return promptTooLongError{count: count, limit: limit}
}

// IsPromptTooLong reports whether err indicates an over-long prompt.
func IsPromptTooLong(err error) bool {
	var e promptTooLongError
	return errors.As(err, &e)
}

// forwardPassError signals a failure while evaluating the model. It aborts
// the current call only; the next Reset restores a clean context.
type forwardPassError struct {
	stage string
	cause error
}

func (e forwardPassError) Error() string { return fmt.Sprintf("%s: %v", e.stage, e.cause) }
func (e forwardPassError) Unwrap() error { return e.cause }

// IsForwardPass reports whether err indicates a model evaluation failure.
func IsForwardPass(err error) bool {
	var e forwardPassError
	return errors.As(err, &e)
}

// invalidArgumentError signals a caller mistake (nil session, empty prompt).
type invalidArgumentError struct{ msg string }

func (e invalidArgumentError) Error() string { return e.msg }

func errInvalid(msg string) error { return invalidArgumentError{msg: msg} }

// IsInvalidArgument reports whether err indicates a bad argument.
func IsInvalidArgument(err error) bool {
	var e invalidArgumentError
	return errors.As(err, &e)
}
