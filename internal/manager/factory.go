package manager

import (
	"context"

	"llmd/internal/session"
)

// Generator is the generation surface the manager drives. *session.Session
// satisfies it; an alternative backend does under the llama_binding tag.
type Generator interface {
	PredictStream(ctx context.Context, prompt string, p session.Params, onToken session.StreamFunc) (string, error)
	Close() error
}

// SessionFactory opens a backend session for a model. It is the seam that
// lets tests substitute a fake backend and lets builds swap the runtime.
type SessionFactory interface {
	Open(cfg session.Config) (Generator, error)
}
