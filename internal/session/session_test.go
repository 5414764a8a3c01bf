package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"llmd/internal/engine"
)

// fakeEngine is a lightweight in-memory engine used for tests. Its model
// yields a scripted token sequence per generation call and records every
// lifecycle event so ownership invariants can be asserted.
type fakeEngine struct {
	loadErr   error
	model     *fakeModel
	shutdowns int
}

func (e *fakeEngine) LoadModel(path string, p engine.ModelParams) (engine.Model, error) {
	if e.loadErr != nil {
		return nil, e.loadErr
	}
	if e.model == nil {
		e.model = newFakeModel(nil)
	}
	return e.model, nil
}

func (e *fakeEngine) Shutdown() { e.shutdowns++ }

const fakeEOG engine.Token = -9

type fakeModel struct {
	script       []engine.Token // tokens Sample yields, per chain
	ctxErr       error          // NewContext fails while set
	decodeErr    error          // inherited by contexts created while set
	samplerErr   error
	tokenizeZero bool // Tokenize yields zero tokens for any text
	contexts     []*fakeContext
	chains       []*fakeChain
	freed        int
	events       []string
}

func newFakeModel(script []engine.Token) *fakeModel {
	return &fakeModel{script: script}
}

func (m *fakeModel) NewContext(p engine.ContextParams) (engine.Context, error) {
	if m.ctxErr != nil {
		return nil, m.ctxErr
	}
	c := &fakeContext{model: m, threads: p.Threads, decodeErr: m.decodeErr}
	m.contexts = append(m.contexts, c)
	return c, nil
}

// Tokenize maps each rune to one token; a text longer than limit yields the
// engine's raw negative count.
func (m *fakeModel) Tokenize(text string, limit int, addSpecial bool) ([]engine.Token, int, error) {
	if m.tokenizeZero {
		return nil, 0, nil
	}
	runes := []rune(text)
	if len(runes) > limit {
		return nil, -len(runes), nil
	}
	toks := make([]engine.Token, len(runes))
	for i, r := range runes {
		toks[i] = engine.Token(r)
	}
	return toks, len(toks), nil
}

func (m *fakeModel) NewSamplerChain(p engine.SamplerParams) (engine.SamplerChain, error) {
	if m.samplerErr != nil {
		return nil, m.samplerErr
	}
	c := &fakeChain{model: m}
	m.chains = append(m.chains, c)
	return c, nil
}

func (m *fakeModel) EndOfGeneration(t engine.Token) bool { return t == fakeEOG }

func (m *fakeModel) TokenText(t engine.Token) []byte {
	return []byte(fmt.Sprintf("<%d>", t))
}

func (m *fakeModel) Free() { m.freed++ }

type fakeContext struct {
	model     *fakeModel
	threads   int
	batches   []*fakeBatch
	prompts   [][]promptEntry
	steps     []engine.StepBatch
	freed     int
	decodeErr error
}

type promptEntry struct {
	tok        engine.Token
	pos        int32
	wantLogits bool
}

func (c *fakeContext) NewPromptBatch(n int) (engine.PromptBatch, error) {
	b := &fakeBatch{ctx: c}
	c.batches = append(c.batches, b)
	return b, nil
}

func (c *fakeContext) Decode(b engine.PromptBatch) error {
	if c.decodeErr != nil {
		return c.decodeErr
	}
	fb := b.(*fakeBatch)
	c.prompts = append(c.prompts, fb.entries)
	return nil
}

func (c *fakeContext) DecodeStep(b engine.StepBatch) error {
	if c.decodeErr != nil {
		return c.decodeErr
	}
	c.steps = append(c.steps, b)
	return nil
}

func (c *fakeContext) Free() { c.freed++ }

type fakeBatch struct {
	ctx     *fakeContext
	entries []promptEntry
	freed   int
}

func (b *fakeBatch) Add(t engine.Token, pos int32, wantLogits bool) {
	b.entries = append(b.entries, promptEntry{tok: t, pos: pos, wantLogits: wantLogits})
}

func (b *fakeBatch) Free() { b.freed++ }

type fakeChain struct {
	model *fakeModel
	idx   int
	freed int
}

func (c *fakeChain) Sample(ctx engine.Context) (engine.Token, error) {
	c.model.events = append(c.model.events, fmt.Sprintf("sample %d", c.idx))
	if c.idx >= len(c.model.script) {
		return fakeEOG, nil
	}
	t := c.model.script[c.idx]
	c.idx++
	return t, nil
}

func (c *fakeChain) Free() { c.freed++ }

func openFake(t *testing.T, script []engine.Token) (*Session, *fakeEngine) {
	t.Helper()
	eng := &fakeEngine{model: newFakeModel(script)}
	s, err := Open(eng, Config{ModelPath: "model.gguf"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s, eng
}

func TestOpen_Defaults(t *testing.T) {
	s, eng := openFake(t, nil)
	if s.cfg.ContextLength != defaultContextLength {
		t.Fatalf("context length = %d, want %d", s.cfg.ContextLength, defaultContextLength)
	}
	if s.cfg.MaxPromptTokens != defaultContextLength {
		t.Fatalf("max prompt tokens = %d, want %d", s.cfg.MaxPromptTokens, defaultContextLength)
	}
	if got := eng.model.contexts[0].threads; got != defaultThreads {
		t.Fatalf("threads = %d, want %d", got, defaultThreads)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open(&fakeEngine{}, Config{}); !IsInvalidArgument(err) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestOpen_LoadFailure(t *testing.T) {
	eng := &fakeEngine{loadErr: errors.New("corrupt file")}
	if _, err := Open(eng, Config{ModelPath: "m.gguf"}); !IsModelLoad(err) {
		t.Fatalf("expected model load error, got %v", err)
	}
}

func TestOpen_ContextFailureReleasesModel(t *testing.T) {
	m := newFakeModel(nil)
	m.ctxErr = errors.New("out of memory")
	eng := &fakeEngine{model: m}
	if _, err := Open(eng, Config{ModelPath: "m.gguf"}); !IsModelLoad(err) {
		t.Fatalf("expected model load error, got %v", err)
	}
	if m.freed != 1 {
		t.Fatalf("model freed %d times, want 1", m.freed)
	}
}

func TestReset_PreservesThreadCount(t *testing.T) {
	eng := &fakeEngine{model: newFakeModel(nil)}
	s, err := Open(eng, Config{ModelPath: "m.gguf", Threads: 7})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	ctxs := eng.model.contexts
	if len(ctxs) != 2 {
		t.Fatalf("expected 2 contexts, got %d", len(ctxs))
	}
	// The reset context must reuse the load-time thread count, not a default.
	if ctxs[1].threads != 7 {
		t.Fatalf("reset threads = %d, want 7", ctxs[1].threads)
	}
	if ctxs[0].freed != 1 {
		t.Fatalf("old context freed %d times, want 1", ctxs[0].freed)
	}
}

func TestReset_FailureLeavesSessionUnusableUntilRetry(t *testing.T) {
	s, eng := openFake(t, []engine.Token{65})
	eng.model.ctxErr = errors.New("out of memory")
	if err := s.Reset(); !IsContextInit(err) {
		t.Fatalf("expected context init error, got %v", err)
	}
	// Generation fails fast while the session has no usable context.
	if _, err := s.Predict(context.Background(), "hi", Params{MaxTokens: 1}); !IsContextInit(err) {
		t.Fatalf("expected context init error from predict, got %v", err)
	}
	// A later successful reset restores the session.
	eng.model.ctxErr = nil
	if _, err := s.Predict(context.Background(), "hi", Params{MaxTokens: 1}); err != nil {
		t.Fatalf("predict after recovered reset: %v", err)
	}
}

func TestClose_Idempotent(t *testing.T) {
	s, eng := openFake(t, nil)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	var nilSession *Session
	if err := nilSession.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
	if eng.model.freed != 1 {
		t.Fatalf("model freed %d times, want 1", eng.model.freed)
	}
	if eng.shutdowns != 1 {
		t.Fatalf("engine shut down %d times, want 1", eng.shutdowns)
	}
	if _, err := s.Predict(context.Background(), "hi", Params{MaxTokens: 1}); !IsInvalidArgument(err) {
		t.Fatalf("expected invalid argument after close, got %v", err)
	}
}
