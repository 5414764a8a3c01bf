package engine

// unavailableError signals that no real inference runtime is compiled into
// this binary, so the HTTP layer can return 503 instead of 500.
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return e.msg }

// ErrUnavailable constructs an engine-unavailable error.
func ErrUnavailable(msg string) error { return unavailableError{msg: msg} }

// IsUnavailable reports whether err indicates a missing inference runtime.
func IsUnavailable(err error) bool {
	_, ok := err.(unavailableError)
	return ok
}
