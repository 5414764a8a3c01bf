// Package registry discovers model files on disk and builds the model list
// served to clients and consumed by the manager.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"llmd/internal/common/fsutil"
	"llmd/pkg/types"
)

// LoadDir scans a directory for *.gguf files and builds a registry from
// filenames. ID is the full filename (including extension); Path is the
// absolute file path. Quant and Family are inferred from the filename when
// recognizable.
func LoadDir(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		// Use full filename as ID (e.g., "llama-3.1-8b-q4_k_m.gguf")
		models = append(models, types.Model{
			ID:     name,
			Name:   name,
			Path:   filepath.Join(abs, name),
			Quant:  inferQuant(name),
			Family: inferFamily(name),
		})
	}
	return models, nil
}

// Common quantization labels as they appear in community gguf filenames.
var quantLabels = []string{
	"q2_k", "q3_k_s", "q3_k_m", "q3_k_l", "q4_0", "q4_1", "q4_k_s", "q4_k_m",
	"q5_0", "q5_1", "q5_k_s", "q5_k_m", "q6_k", "q8_0", "f16", "f32",
}

func inferQuant(name string) string {
	lower := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	for _, q := range quantLabels {
		if strings.Contains(lower, q) {
			return q
		}
	}
	return ""
}

var familyNames = []string{"llama", "mistral", "mixtral", "qwen", "phi", "gemma"}

func inferFamily(name string) string {
	lower := strings.ToLower(name)
	for _, f := range familyNames {
		if strings.Contains(lower, f) {
			return f
		}
	}
	return ""
}
