// Package engine defines the boundary to the inference runtime that supplies
// tensor computation, the tokenizer vocabulary, batched forward evaluation and
// token sampling. The session core drives these interfaces and treats every
// handle as opaque; concrete implementations live in subpackages (llamacpp)
// and in test fakes.
package engine

// Token is an integer identifier into a model's vocabulary.
type Token int32

// ModelParams configure model weight loading.
type ModelParams struct {
	// GPULayers is the number of layers to offload (0 = CPU only).
	GPULayers int
	// UseMmap maps the weight file instead of reading it into memory.
	UseMmap bool
}

// ContextParams size the mutable generation state (the KV cache).
type ContextParams struct {
	// ContextLength is the maximum number of token positions the context holds.
	ContextLength int
	// Threads used for single-token evaluation.
	Threads int
	// BatchThreads used for batched (prefill) evaluation.
	BatchThreads int
}

// SamplerParams describe the filter pipeline applied before the final draw.
// Implementations must apply the filters in this order: temperature scaling,
// then top-k, then top-p, then the draw. Filters applied after temperature
// operate on the rescaled distribution.
type SamplerParams struct {
	Temperature float32
	TopK        int
	TopP        float32
	// Seed for the draw step; 0 selects the engine default.
	Seed uint32
}

// Engine loads models and owns process-wide backend state.
type Engine interface {
	// LoadModel loads model weights from path.
	LoadModel(path string, p ModelParams) (Model, error)
	// Shutdown releases process-wide backend resources. Idempotent.
	Shutdown()
}

// Model is a handle to loaded weights and their vocabulary.
type Model interface {
	// NewContext allocates a fresh context (empty KV cache) for this model.
	NewContext(p ContextParams) (Context, error)
	// Tokenize converts text into at most limit tokens. The second result is
	// the engine's raw token count, which is negative when the text did not
	// fit in limit; callers take the absolute value.
	Tokenize(text string, limit int, addSpecial bool) ([]Token, int, error)
	// NewSamplerChain builds a sampler pipeline from p. The chain is owned by
	// the caller and must be released via its Free method.
	NewSamplerChain(p SamplerParams) (SamplerChain, error)
	// EndOfGeneration reports whether t marks the end of generation in this
	// model's vocabulary.
	EndOfGeneration(t Token) bool
	// TokenText returns the UTF-8 fragment for t. Fragments are short,
	// typically well under 256 bytes.
	TokenText(t Token) []byte
	// Free releases the model weights.
	Free()
}

// Context is a handle to one sequence's mutable generation state.
type Context interface {
	// NewPromptBatch allocates an owning batch with room for n tokens. The
	// batch must be released exactly once via its Free method.
	NewPromptBatch(n int) (PromptBatch, error)
	// Decode runs one forward pass over an owning prompt batch.
	Decode(b PromptBatch) error
	// DecodeStep advances the context by the single token in b. StepBatch is
	// non-owning; there is nothing to release.
	DecodeStep(b StepBatch) error
	// Free releases the context and its KV cache.
	Free()
}

// PromptBatch is an owning multi-token batch built for prefill.
type PromptBatch interface {
	// Add appends (token, position, sequence 0), requesting output logits
	// only when wantLogits is true.
	Add(t Token, pos int32, wantLogits bool)
	// Free releases the batch. Must be called exactly once, after Decode.
	Free()
}

// StepBatch describes a single decode step. It is a plain value with no
// release capability: the engine-side batch it maps to aliases caller-local
// storage and must never be freed.
type StepBatch struct {
	Token Token
	Pos   int32
}

// SamplerChain samples one token at a time from a context's current logits.
type SamplerChain interface {
	// Sample draws one token from the logits produced by ctx's most recent
	// forward pass.
	Sample(ctx Context) (Token, error)
	// Free releases the chain.
	Free()
}
