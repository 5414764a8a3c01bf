package session

import (
	"context"
	"time"

	"llmd/internal/engine"
)

// Params controls one generation call.
type Params struct {
	// MaxTokens caps the number of new tokens (0 generates nothing).
	MaxTokens int
	// Temperature rescales logits before filtering; 0 is greedy.
	Temperature float32
	// TopK limits sampling to the K most likely tokens.
	TopK int
	// TopP limits sampling to the nucleus of cumulative probability P.
	TopP float32
	// Seed for the final draw; 0 selects the engine default.
	Seed uint32
}

// StreamFunc receives each decoded fragment, synchronously from within the
// decode loop, strictly before the next token is sampled. Returning an error
// aborts generation.
type StreamFunc func(fragment string) error

// Predict generates a completion for prompt and returns the full text.
func (s *Session) Predict(ctx context.Context, prompt string, p Params) (string, error) {
	return s.PredictStream(ctx, prompt, p, nil)
}

// PredictStream generates a completion, invoking onToken for every fragment
// when non-nil. The full text is returned regardless of streaming, bounded
// by MaxOutputBytes. The context's KV cache is reset before use, so each
// call starts from position zero with no residue from earlier prompts.
func (s *Session) PredictStream(ctx context.Context, prompt string, p Params, onToken StreamFunc) (string, error) {
	if s == nil || s.model == nil {
		return "", errInvalid("session is closed")
	}
	if prompt == "" {
		return "", errInvalid("prompt is empty")
	}
	if p.MaxTokens < 0 {
		return "", errInvalid("max tokens is negative")
	}
	if err := s.Reset(); err != nil {
		return "", err
	}

	promptLen, err := s.prefill(prompt)
	if err != nil {
		return "", err
	}
	if promptLen == 0 {
		return "", nil
	}
	return s.decodeLoop(ctx, promptLen, p, onToken)
}

// prefill tokenizes the prompt and feeds it to the engine as one forward
// batch, requesting logits only for the last position: prefix positions'
// continuations are fixed by the prompt itself, so their probabilities are
// never needed. Returns the number of prompt tokens; zero short-circuits
// generation with an empty result.
func (s *Session) prefill(prompt string) (int, error) {
	tokens, n, err := s.model.Tokenize(prompt, s.cfg.MaxPromptTokens, true)
	if err != nil {
		return 0, forwardPassError{stage: "tokenize", cause: err}
	}
	if n < 0 {
		// The engine signals overflow as a negative count; the absolute value
		// is the real token count. Reject instead of silently capping.
		return 0, promptTooLongError{count: -n, limit: s.cfg.MaxPromptTokens}
	}
	if n == 0 {
		return 0, nil
	}
	tokens = tokens[:n]

	batch, err := s.ectx.NewPromptBatch(len(tokens))
	if err != nil {
		return 0, forwardPassError{stage: "prefill batch", cause: err}
	}
	for i, t := range tokens {
		batch.Add(t, int32(i), i == len(tokens)-1)
	}
	err = s.ectx.Decode(batch)
	batch.Free()
	if err != nil {
		return 0, forwardPassError{stage: "prefill decode", cause: err}
	}
	promptTokensTotal.Add(float64(len(tokens)))
	return len(tokens), nil
}

// decodeLoop samples one token at a time from the current logits, emits it,
// and advances the context by a single-token step batch until the model
// signals end of generation, MaxTokens is reached, or ctx is canceled.
func (s *Session) decodeLoop(ctx context.Context, promptLen int, p Params, onToken StreamFunc) (string, error) {
	chain, err := s.model.NewSamplerChain(engine.SamplerParams{
		Temperature: p.Temperature,
		TopK:        p.TopK,
		TopP:        p.TopP,
		Seed:        p.Seed,
	})
	if err != nil {
		return "", forwardPassError{stage: "sampler init", cause: err}
	}
	defer chain.Free()

	acc := newAccumulator(s.cfg.MaxOutputBytes)
	pos := int32(promptLen)
	start := time.Now()
	generated := 0

	for generated < p.MaxTokens {
		if err := ctx.Err(); err != nil {
			return acc.String(), err
		}
		tok, err := chain.Sample(s.ectx)
		if err != nil {
			return "", forwardPassError{stage: "sample", cause: err}
		}
		if s.model.EndOfGeneration(tok) {
			break
		}
		frag := s.model.TokenText(tok)
		if onToken != nil {
			if err := onToken(string(frag)); err != nil {
				return acc.String(), err
			}
		}
		if !acc.append(frag) && acc.droppedFragments() == 1 {
			s.log.Warn().Int("limit_bytes", s.cfg.MaxOutputBytes).
				Msg("output bound reached, dropping remaining text for this call")
			outputTruncationsTotal.Inc()
		}
		if err := s.ectx.DecodeStep(engine.StepBatch{Token: tok, Pos: pos}); err != nil {
			return "", forwardPassError{stage: "decode", cause: err}
		}
		pos++
		generated++
	}

	decodeDuration.Observe(time.Since(start).Seconds())
	generatedTokensTotal.Add(float64(generated))
	return acc.String(), nil
}
