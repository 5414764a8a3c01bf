package manager

import (
	"time"

	"github.com/rs/zerolog"

	"llmd/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
	defaultDrainTimeout  = 5 * time.Second
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Registry      []types.Model
	BudgetMB      int
	MarginMB      int
	DefaultModel  string
	MaxQueueDepth int
	MaxWait       time.Duration
	DrainTimeout  time.Duration
	// Session configuration applied to every model loaded by this manager.
	ContextLength   int
	Threads         int
	MaxPromptTokens int
	MaxOutputBytes  int
	// Factory creates backend sessions; nil selects the build's default.
	Factory SessionFactory
	Logger  zerolog.Logger
}

// New constructs a Manager from ManagerConfig, applying package defaults
// for unset fields.
func New(cfg ManagerConfig) *Manager {
	m := &Manager{
		state:        StateLoading,
		registry:     cfg.Registry,
		budgetMB:     cfg.BudgetMB,
		marginMB:     cfg.MarginMB,
		defaultModel: cfg.DefaultModel,
		instances:    make(map[string]*Instance),
		cfg:          cfg,
		log:          cfg.Logger,
	}
	if cfg.MaxQueueDepth <= 0 {
		m.maxQueueDepth = defaultMaxQueueDepth
	} else {
		m.maxQueueDepth = cfg.MaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		m.maxWait = defaultMaxWait
	} else {
		m.maxWait = cfg.MaxWait
	}
	if cfg.DrainTimeout <= 0 {
		m.drainTimeout = defaultDrainTimeout
	} else {
		m.drainTimeout = cfg.DrainTimeout
	}
	if cfg.Factory == nil {
		m.factory = defaultFactory()
	} else {
		m.factory = cfg.Factory
	}
	m.startTime = time.Now()
	// No sessions loaded yet, but the manager is serving.
	m.state = StateReady
	return m
}
