//go:build llama

// Package llamacpp implements the engine boundary on top of llama.cpp's C
// API. It is compiled only with the 'llama' build tag so default builds and
// CI stay CGO-free; without the tag New fails fast (see engine_stub.go).
package llamacpp

// cgo link directives mirror the packaging scheme used for the served
// binary: libllama.so and libggml*.so are expected next to the executable
// (./bin), with an $ORIGIN rpath so the loader finds them at runtime.
/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../../bin -lllama
#include <stdlib.h>
#include "llama.h"
*/
import "C"

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"llmd/internal/engine"
)

var backendInit sync.Once

// Engine is the llama.cpp-backed implementation of engine.Engine.
type Engine struct {
	mu       sync.Mutex
	shutdown bool
}

// New initializes the llama.cpp backend and returns an Engine.
func New() (engine.Engine, error) {
	backendInit.Do(func() { C.llama_backend_init() })
	return &Engine{}, nil
}

func (e *Engine) LoadModel(path string, p engine.ModelParams) (engine.Model, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	mparams := C.llama_model_default_params()
	mparams.n_gpu_layers = C.int32_t(p.GPULayers)
	mparams.use_mmap = C.bool(p.UseMmap)

	cm := C.llama_model_load_from_file(cpath, mparams)
	if cm == nil {
		return nil, fmt.Errorf("unable to load model: %s", path)
	}
	return &model{c: cm, vocab: C.llama_model_get_vocab(cm)}, nil
}

func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.shutdown {
		return
	}
	e.shutdown = true
	C.llama_backend_free()
}

type model struct {
	c     *C.struct_llama_model
	vocab *C.struct_llama_vocab
}

func (m *model) NewContext(p engine.ContextParams) (engine.Context, error) {
	cparams := C.llama_context_default_params()
	cparams.n_ctx = C.uint32_t(p.ContextLength)
	cparams.n_threads = C.int32_t(p.Threads)
	cparams.n_threads_batch = C.int32_t(p.BatchThreads)

	cc := C.llama_init_from_model(m.c, cparams)
	if cc == nil {
		return nil, errors.New("unable to create llama context")
	}
	return &llamaContext{c: cc}, nil
}

func (m *model) Tokenize(text string, limit int, addSpecial bool) ([]engine.Token, int, error) {
	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))

	buf := make([]C.llama_token, limit)
	n := int(C.llama_tokenize(m.vocab, ctext, C.int32_t(len(text)),
		&buf[0], C.int32_t(limit), C.bool(addSpecial), C.bool(false)))
	if n < 0 {
		// Raw negative count: text did not fit in limit. Return it as-is; the
		// caller decides between the absolute-value correction and rejection.
		return nil, n, nil
	}
	tokens := make([]engine.Token, n)
	for i := 0; i < n; i++ {
		tokens[i] = engine.Token(buf[i])
	}
	return tokens, n, nil
}

func (m *model) NewSamplerChain(p engine.SamplerParams) (engine.SamplerChain, error) {
	chain := C.llama_sampler_chain_init(C.llama_sampler_chain_default_params())
	if chain == nil {
		return nil, errors.New("unable to create sampler chain")
	}
	// Order is load-bearing: temperature first so top-k/top-p filter the
	// rescaled distribution, then the final draw.
	C.llama_sampler_chain_add(chain, C.llama_sampler_init_temp(C.float(p.Temperature)))
	C.llama_sampler_chain_add(chain, C.llama_sampler_init_top_k(C.int32_t(p.TopK)))
	C.llama_sampler_chain_add(chain, C.llama_sampler_init_top_p(C.float(p.TopP), 1))
	seed := C.uint32_t(p.Seed)
	if p.Seed == 0 {
		seed = C.LLAMA_DEFAULT_SEED
	}
	C.llama_sampler_chain_add(chain, C.llama_sampler_init_dist(seed))
	return &samplerChain{c: chain}, nil
}

func (m *model) EndOfGeneration(t engine.Token) bool {
	return bool(C.llama_vocab_is_eog(m.vocab, C.llama_token(t)))
}

func (m *model) TokenText(t engine.Token) []byte {
	buf := make([]byte, pieceBufSize)
	n := int(C.llama_token_to_piece(m.vocab, C.llama_token(t),
		(*C.char)(unsafe.Pointer(&buf[0])), C.int32_t(len(buf)), 0, C.bool(true)))
	if n < 0 {
		// Piece longer than the buffer; retry with the exact size.
		buf = make([]byte, -n)
		n = int(C.llama_token_to_piece(m.vocab, C.llama_token(t),
			(*C.char)(unsafe.Pointer(&buf[0])), C.int32_t(len(buf)), 0, C.bool(true)))
		if n < 0 {
			return nil
		}
	}
	return buf[:n]
}

func (m *model) Free() {
	if m.c != nil {
		C.llama_model_free(m.c)
		m.c = nil
		m.vocab = nil
	}
}

// pieceBufSize covers nearly every token piece in one call; longer pieces
// fall back to an exact-size retry.
const pieceBufSize = 256

type llamaContext struct {
	c *C.struct_llama_context
}

func (c *llamaContext) NewPromptBatch(n int) (engine.PromptBatch, error) {
	b := C.llama_batch_init(C.int32_t(n), 0, 1)
	if b.token == nil {
		return nil, errors.New("unable to allocate batch")
	}
	return &promptBatch{c: b, cap: n}, nil
}

func (c *llamaContext) Decode(b engine.PromptBatch) error {
	pb, ok := b.(*promptBatch)
	if !ok {
		return errors.New("foreign prompt batch")
	}
	return decodeStatus(int(C.llama_decode(c.c, pb.c)))
}

func (c *llamaContext) DecodeStep(b engine.StepBatch) error {
	tok := C.llama_token(b.Token)
	// llama_batch_get_one yields a non-owning view over the local token;
	// freeing it would free memory llama.cpp never allocated.
	one := C.llama_batch_get_one(&tok, 1)
	return decodeStatus(int(C.llama_decode(c.c, one)))
}

func (c *llamaContext) Free() {
	if c.c != nil {
		C.llama_free(c.c)
		c.c = nil
	}
}

func decodeStatus(code int) error {
	// 0 success; >0 means no KV slot was found (recoverable warning in the
	// C API, fatal for a fixed-size context here); <0 is a hard error.
	switch {
	case code == 0:
		return nil
	case code > 0:
		return errors.New("no free kv cache slot")
	default:
		return fmt.Errorf("llama_decode failed with code %d", code)
	}
}

// promptBatch owns a llama_batch allocated by llama_batch_init and must be
// freed exactly once.
type promptBatch struct {
	c   C.struct_llama_batch
	cap int
}

func (b *promptBatch) Add(t engine.Token, pos int32, wantLogits bool) {
	i := int(b.c.n_tokens)
	if i >= b.cap {
		return
	}
	unsafe.Slice(b.c.token, b.cap)[i] = C.llama_token(t)
	unsafe.Slice(b.c.pos, b.cap)[i] = C.llama_pos(pos)
	unsafe.Slice(b.c.n_seq_id, b.cap)[i] = 1
	unsafe.Slice(unsafe.Slice(b.c.seq_id, b.cap)[i], 1)[0] = 0
	logit := C.int8_t(0)
	if wantLogits {
		logit = 1
	}
	unsafe.Slice(b.c.logits, b.cap)[i] = logit
	b.c.n_tokens++
}

func (b *promptBatch) Free() {
	C.llama_batch_free(b.c)
}

type samplerChain struct {
	c *C.struct_llama_sampler
}

func (s *samplerChain) Sample(ctx engine.Context) (engine.Token, error) {
	lc, ok := ctx.(*llamaContext)
	if !ok {
		return 0, errors.New("foreign context")
	}
	// -1 selects the logits of the last evaluated position.
	return engine.Token(C.llama_sampler_sample(s.c, lc.c, -1)), nil
}

func (s *samplerChain) Free() {
	if s.c != nil {
		C.llama_sampler_free(s.c)
		s.c = nil
	}
}
