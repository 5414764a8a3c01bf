// Package session owns the lifecycle of one loaded model and its mutable
// generation context, and drives the prefill and decode loop against the
// engine boundary. A Session serves one generation call at a time: the
// context (KV cache) is mutated destructively by each call, so callers must
// hold exclusive access for the duration of a call (the manager's admission
// queue provides this). Independent Sessions are fully concurrent.
package session

import (
	"strings"

	"github.com/rs/zerolog"

	"llmd/internal/engine"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultContextLength = 2048
	defaultThreads       = 4
)

// Config holds construction parameters for a Session.
type Config struct {
	// ModelPath is the model file to load.
	ModelPath string
	// Threads used for both single and batched evaluation. The same count is
	// reused when the context is recreated on Reset.
	Threads int
	// ContextLength caps token positions per call (default 2048).
	ContextLength int
	// MaxPromptTokens rejects longer prompts instead of truncating them.
	// Defaults to ContextLength.
	MaxPromptTokens int
	// MaxOutputBytes bounds the accumulated result per call (0 = unbounded).
	// Streaming callbacks still receive every fragment.
	MaxOutputBytes int
	// Logger receives structured events; the zero value discards them.
	Logger zerolog.Logger
}

// Session owns one model handle and at most one live context. The context is
// recreated at the start of every generation call so token positions always
// start at zero; the model lives for the Session's lifetime.
type Session struct {
	eng   engine.Engine
	model engine.Model
	ectx  engine.Context // nil after Close or a failed Reset
	cfg   Config
	log   zerolog.Logger
}

// Open loads the model at cfg.ModelPath and allocates its first context.
// On context failure the partially constructed model is released before
// returning.
func Open(eng engine.Engine, cfg Config) (*Session, error) {
	if eng == nil {
		return nil, errInvalid("engine is nil")
	}
	if strings.TrimSpace(cfg.ModelPath) == "" {
		return nil, errInvalid("model path is empty")
	}
	if cfg.ContextLength <= 0 {
		cfg.ContextLength = defaultContextLength
	}
	if cfg.Threads <= 0 {
		cfg.Threads = defaultThreads
	}
	if cfg.MaxPromptTokens <= 0 {
		cfg.MaxPromptTokens = cfg.ContextLength
	}

	model, err := eng.LoadModel(cfg.ModelPath, engine.ModelParams{UseMmap: true})
	if err != nil {
		return nil, modelLoadError{path: cfg.ModelPath, cause: err}
	}
	ectx, err := model.NewContext(contextParams(cfg))
	if err != nil {
		model.Free()
		return nil, modelLoadError{path: cfg.ModelPath, cause: err}
	}

	s := &Session{eng: eng, model: model, ectx: ectx, cfg: cfg, log: cfg.Logger}
	s.log.Info().Str("model", cfg.ModelPath).Int("ctx", cfg.ContextLength).
		Int("threads", cfg.Threads).Msg("session open")
	return s, nil
}

// Reset destroys and recreates the context, preserving the loaded model.
// On failure the Session has no usable context and generation calls fail
// fast until a later Reset succeeds.
func (s *Session) Reset() error {
	if s == nil || s.model == nil {
		return errInvalid("session is closed")
	}
	if s.ectx != nil {
		s.ectx.Free()
		s.ectx = nil
	}
	ectx, err := s.model.NewContext(contextParams(s.cfg))
	if err != nil {
		return contextInitError{cause: err}
	}
	s.ectx = ectx
	return nil
}

// Close releases the context, then the model, then process-wide engine
// resources. Idempotent, including on a nil Session.
func (s *Session) Close() error {
	if s == nil || s.model == nil {
		return nil
	}
	if s.ectx != nil {
		s.ectx.Free()
		s.ectx = nil
	}
	s.model.Free()
	s.model = nil
	s.eng.Shutdown()
	s.log.Info().Str("model", s.cfg.ModelPath).Msg("session closed")
	return nil
}

func contextParams(cfg Config) engine.ContextParams {
	return engine.ContextParams{
		ContextLength: cfg.ContextLength,
		Threads:       cfg.Threads,
		BatchThreads:  cfg.Threads,
	}
}
