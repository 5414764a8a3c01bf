package manager

import (
	"context"
	"time"

	"llmd/internal/session"
)

// EnsureSession makes sure a live session exists for modelID, loading the
// model if needed. Loading happens outside the manager lock; a placeholder
// instance in StateLoading holds the slot meanwhile.
func (m *Manager) EnsureSession(ctx context.Context, modelID string) error {
	startTs := time.Now()
	if modelID == "" {
		// If unspecified, use default if present; else no-op
		modelID = m.defaultModel
		if modelID == "" {
			return nil
		}
	}

	m.mu.RLock()
	inst, ok := m.instances[modelID]
	ready := ok && inst != nil && inst.gen != nil
	m.mu.RUnlock()
	if ready {
		// Upgrade to write lock to safely mutate LastUsed and re-check state
		m.mu.Lock()
		if inst2, ok2 := m.instances[modelID]; ok2 && inst2 != nil && inst2.gen != nil {
			inst2.LastUsed = time.Now()
			m.mu.Unlock()
			return nil
		}
		m.mu.Unlock()
		// If state changed in between, continue with ensure path
	}

	// Resolve model from registry
	mdl, ok := m.getModelByID(modelID)
	if !ok {
		m.log.Warn().Str("model", modelID).Msg("ensure: model not in registry")
		return ErrModelNotFound(modelID)
	}
	reqMB := m.estimateMemoryMB(mdl)

	// Evict until it fits budget + margin, if budget configured
	if m.budgetMB > 0 {
		if err := m.evictUntilFits(reqMB); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.state = StateLoading
	m.err = ""
	inst, existed := m.instances[modelID]
	addedNow := false
	if !existed || inst == nil {
		inst = &Instance{
			ID:          modelID,
			State:       StateLoading,
			LastUsed:    time.Now(),
			EstMemoryMB: reqMB,
			genCh:       make(chan struct{}, 1),
			queueCh:     make(chan struct{}, m.maxQueueDepth),
		}
		m.instances[modelID] = inst
		addedNow = true
	} else if inst.gen != nil {
		// Lost the race: another caller finished loading first.
		inst.LastUsed = time.Now()
		m.state = StateReady
		m.mu.Unlock()
		return nil
	} else {
		inst.State = StateLoading
		inst.EstMemoryMB = reqMB
		inst.LastUsed = time.Now()
	}
	m.mu.Unlock()

	// Load outside the lock: model loading is slow.
	gen, err := m.factory.Open(session.Config{
		ModelPath:       mdl.Path,
		Threads:         m.cfg.Threads,
		ContextLength:   m.cfg.ContextLength,
		MaxPromptTokens: m.cfg.MaxPromptTokens,
		MaxOutputBytes:  m.cfg.MaxOutputBytes,
		Logger:          m.log.With().Str("model", modelID).Logger(),
	})
	if err != nil {
		m.mu.Lock()
		if addedNow {
			delete(m.instances, modelID)
		}
		m.state = StateError
		m.err = err.Error()
		m.mu.Unlock()
		m.log.Error().Err(err).Str("model", modelID).Msg("ensure: load failed")
		return err
	}

	// Commit instance as ready
	m.mu.Lock()
	if addedNow {
		// Only add to used estimate when we actually added a new instance
		m.usedEstMB += reqMB
	}
	inst.gen = gen
	inst.State = StateReady
	inst.LastUsed = time.Now()
	m.curModel = modelID
	m.state = StateReady
	m.err = ""
	m.loads++
	m.mu.Unlock()
	sessionLoadsTotal.Inc()
	m.log.Info().Str("model", modelID).Int("est_mb", reqMB).
		Dur("dur", time.Since(startTs)).Msg("ensure: session ready")
	return nil
}
