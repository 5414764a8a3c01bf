//go:build !llama_binding

package manager

import (
	"llmd/internal/engine/llamacpp"
	"llmd/internal/session"
)

// defaultFactory opens fine-grained sessions over the engine boundary.
// Without the 'llama' build tag the engine constructor fails fast with an
// engine-unavailable error, which the HTTP layer maps to 503. No mocked
// inference in production builds.
func defaultFactory() SessionFactory { return engineFactory{} }

type engineFactory struct{}

func (engineFactory) Open(cfg session.Config) (Generator, error) {
	eng, err := llamacpp.New()
	if err != nil {
		return nil, err
	}
	return session.Open(eng, cfg)
}
