//go:build llama_binding

package manager

import (
	"context"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"

	"llmd/internal/session"
)

// defaultFactory opens coarse sessions through the go-llama.cpp binding.
// The binding owns prompt evaluation and sampling internally, so per-step
// control (prompt rejection by token count, step batches) is unavailable;
// what survives is the streaming contract: every fragment reaches the
// callback before generation proceeds, and the full text is returned.
func defaultFactory() SessionFactory { return bindingFactory{} }

type bindingFactory struct{}

func (bindingFactory) Open(cfg session.Config) (Generator, error) {
	if strings.TrimSpace(cfg.ModelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	ctxSize := cfg.ContextLength
	if ctxSize <= 0 {
		ctxSize = 2048
	}
	m, err := llama.New(cfg.ModelPath, llama.SetContext(ctxSize))
	if err != nil {
		return nil, err
	}
	threads := cfg.Threads
	if threads <= 0 {
		threads = 4
	}
	return &bindingSession{model: m, threads: threads, maxOutputBytes: cfg.MaxOutputBytes}, nil
}

// bindingSession owns the loaded model.
type bindingSession struct {
	model          *llama.LLama
	threads        int
	maxOutputBytes int
}

func (s *bindingSession) PredictStream(ctx context.Context, prompt string, p session.Params, onToken session.StreamFunc) (string, error) {
	if s.model == nil {
		return "", errors.New("model not initialized")
	}
	if prompt == "" {
		return "", errors.New("prompt is empty")
	}

	var sb strings.Builder
	var cbErr error
	s.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if onToken != nil {
			if err := onToken(tok); err != nil {
				cbErr = err
				return false
			}
		}
		if s.maxOutputBytes <= 0 || sb.Len()+len(tok) <= s.maxOutputBytes {
			sb.WriteString(tok)
		}
		return true
	})

	po := []llama.PredictOption{
		llama.SetTokens(p.MaxTokens),
		llama.SetThreads(s.threads),
		llama.SetTemperature(p.Temperature),
	}
	if p.TopK > 0 {
		po = append(po, llama.SetTopK(p.TopK))
	}
	if p.TopP > 0 {
		po = append(po, llama.SetTopP(p.TopP))
	}
	if p.Seed != 0 {
		po = append(po, llama.SetSeed(int(p.Seed)))
	}
	_, err := s.model.Predict(prompt, po...)
	if err != nil {
		if ctx.Err() != nil {
			return sb.String(), ctx.Err()
		}
		if cbErr != nil {
			return sb.String(), cbErr
		}
		return sb.String(), err
	}
	return sb.String(), nil
}

func (s *bindingSession) Close() error {
	if s.model != nil {
		s.model.Free()
		s.model = nil
	}
	return nil
}
