package types

// Model describes a model file known to the registry.
type Model struct {
	// Stable identifier, currently the gguf filename.
	// example: tinyllama-q4.gguf
	ID string `json:"id" example:"tinyllama-q4.gguf"`
	// Human-readable name.
	Name string `json:"name,omitempty"`
	// Absolute path to the model file.
	Path string `json:"path,omitempty"`
	// Quantization label when known (e.g. q4_k_m).
	Quant string `json:"quant,omitempty"`
	// Model family when known (e.g. llama).
	Family string `json:"family,omitempty"`
}
