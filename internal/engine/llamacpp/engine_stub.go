//go:build !llama

// This file provides a no-CGO stub compiled when the 'llama' build tag is
// NOT set, keeping default builds and CI CGO-free. It refuses to construct
// an engine rather than mock inference.
package llamacpp

import (
	"llmd/internal/engine"
)

// New fails fast: the llama.cpp runtime is not available in this build.
func New() (engine.Engine, error) {
	return nil, engine.ErrUnavailable("llama support not built (missing 'llama' build tag)")
}
