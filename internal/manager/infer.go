package manager

import (
	"context"
	"encoding/json"
	"io"

	"llmd/internal/session"
	"llmd/pkg/types"
)

// Infer centralizes generation behavior. It ensures the model session exists,
// acquires the per-instance admission slot, then streams NDJSON token lines
// to the provided writer followed by a final done line carrying the full
// accumulated text. Streaming and accumulation are both unconditional: every
// fragment is written as it is produced, and the done line repeats the
// (output-bounded) whole.
func (m *Manager) Infer(ctx context.Context, req types.PredictRequest, w io.Writer, flusher func()) error {
	// Resolve target model id
	modelID := req.Model
	if modelID == "" {
		modelID = m.defaultModel
		if modelID == "" {
			// No model specified and no default configured
			return modelNotFoundError{id: "(unspecified)"}
		}
	}
	if err := m.EnsureSession(ctx, modelID); err != nil {
		return err
	}
	// Admission: per-instance FIFO queue, single in-flight
	release, err := m.beginGeneration(ctx, modelID)
	if err != nil {
		return err
	}
	defer release()

	m.mu.RLock()
	inst := m.instances[modelID]
	m.mu.RUnlock()
	if inst == nil || inst.gen == nil {
		// Unloaded between ensure and admission.
		return modelNotFoundError{id: modelID}
	}

	onTok := func(tok string) error {
		if _, e := w.Write(tokenLineJSON(tok)); e != nil {
			return e
		}
		if flusher != nil {
			flusher()
		}
		return nil
	}
	content, err := inst.gen.PredictStream(ctx, req.Prompt, predictParams(req), onTok)
	if err != nil {
		return err
	}

	end := map[string]any{
		"done":    true,
		"content": content,
	}
	jb, _ := json.Marshal(end)
	if _, err := w.Write(append(jb, '\n')); err != nil {
		return err
	}
	if flusher != nil {
		flusher()
	}
	return nil
}

// predictParams maps the wire request onto session sampling parameters.
func predictParams(req types.PredictRequest) session.Params {
	return session.Params{
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		TopK:        req.TopK,
		TopP:        float32(req.TopP),
		Seed:        uint32(req.Seed),
	}
}

// tokenLineJSON formats a token NDJSON line using json.Marshal for
// correctness.
func tokenLineJSON(tok string) []byte {
	type tokenMsg struct {
		Token string `json:"token"`
	}
	b, _ := json.Marshal(tokenMsg{Token: tok})
	return append(b, '\n')
}
