package manager

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"llmd/pkg/types"
)

type Manager struct {
	mu           sync.RWMutex
	state        State
	curModel     string
	err          string
	registry     []types.Model
	budgetMB     int
	marginMB     int
	defaultModel string
	instances    map[string]*Instance
	usedEstMB    int

	// Queue config
	maxQueueDepth int
	maxWait       time.Duration
	drainTimeout  time.Duration

	factory   SessionFactory
	cfg       ManagerConfig
	log       zerolog.Logger
	startTime time.Time

	loads     uint64
	evictions uint64
}

func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state != StateError
}

func (m *Manager) ListModels() []types.Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// return a shallow copy to avoid external mutation
	out := make([]types.Model, len(m.registry))
	copy(out, m.registry)
	return out
}

// Close drains and unloads every live session. Used at shutdown.
func (m *Manager) Close() error {
	m.mu.RLock()
	ids := make([]string, 0, len(m.instances))
	for id := range m.instances {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		_ = m.Unload(id)
	}
	return nil
}
