package manager

import "time"

// Unload initiates a graceful drain of a model session and removes it.
// - Sets instance state to draining to reject new enqueues.
// - Waits up to drainTimeout for in-flight and queued requests to finish.
// - Closes the session and removes the instance entry.
func (m *Manager) Unload(modelID string) error {
	if modelID == "" {
		return ErrModelNotFound("(unspecified)")
	}
	m.mu.Lock()
	inst := m.instances[modelID]
	if inst == nil {
		m.mu.Unlock()
		return ErrModelNotFound(modelID)
	}
	inst.State = StateDraining
	m.mu.Unlock()
	m.log.Info().Str("model", modelID).Msg("unload: draining")

	deadline := time.Now().Add(m.drainTimeout)
	for {
		m.mu.RLock()
		qlen := len(inst.queueCh)
		inflight := len(inst.genCh)
		m.mu.RUnlock()
		if inflight == 0 && qlen == 0 {
			break
		}
		if time.Now().After(deadline) {
			m.log.Warn().Str("model", modelID).Int("inflight", inflight).
				Int("queue", qlen).Msg("unload: drain timeout")
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	m.mu.Lock()
	// Adjust accounting and remove
	if inst2 := m.instances[modelID]; inst2 != nil {
		m.usedEstMB -= inst2.EstMemoryMB
		if m.usedEstMB < 0 {
			m.usedEstMB = 0
		}
	}
	delete(m.instances, modelID)
	if m.curModel == modelID {
		m.curModel = ""
	}
	m.mu.Unlock()

	if inst.gen != nil {
		_ = inst.gen.Close()
	}
	m.log.Info().Str("model", modelID).Msg("unload: done")
	return nil
}
