package manager

import (
	"os"

	"llmd/pkg/types"
)

// Helper: find model in registry by id.
func (m *Manager) getModelByID(id string) (types.Model, bool) {
	for _, mdl := range m.registry {
		if mdl.ID == id {
			return mdl, true
		}
	}
	return types.Model{}, false
}

// Helper: estimate resident memory from file size (MB). Weights dominate a
// loaded model's footprint, so the file size is a workable proxy.
func (m *Manager) estimateMemoryMB(mdl types.Model) int {
	fi, err := os.Stat(mdl.Path)
	if err != nil {
		// If we cannot stat the file, return a conservative minimum of 1MB
		// to avoid bypassing budget checks due to an unknown size.
		return 1
	}
	mb := int(fi.Size() / (1024 * 1024))
	if mb <= 0 {
		mb = 1
	}
	return mb
}
