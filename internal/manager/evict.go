package manager

import "time"

// evictUntilFits closes LRU idle sessions until required MB fits
// budget + margin.
func (m *Manager) evictUntilFits(requiredMB int) error {
	deadline := time.Now().Add(1 * time.Second)
	for {
		m.mu.Lock()
		fits := (m.usedEstMB + requiredMB + m.marginMB) <= m.budgetMB
		if fits {
			m.mu.Unlock()
			return nil
		}
		// Pick LRU idle instance (no in-flight and no queued requests)
		var lru *Instance
		for _, inst := range m.instances {
			if len(inst.genCh) > 0 || len(inst.queueCh) > 0 {
				// active or has queued work; skip rather than cancel
				continue
			}
			if lru == nil || inst.LastUsed.Before(lru.LastUsed) {
				lru = inst
			}
		}
		if lru == nil {
			// nothing to evict
			m.mu.Unlock()
			return nil
		}
		delete(m.instances, lru.ID)
		m.usedEstMB -= lru.EstMemoryMB
		if m.usedEstMB < 0 {
			m.usedEstMB = 0
		}
		m.evictions++
		m.mu.Unlock()

		// Release the model outside the lock.
		if lru.gen != nil {
			_ = lru.gen.Close()
		}
		sessionEvictionsTotal.Inc()
		m.log.Info().Str("model", lru.ID).Int("est_mb", lru.EstMemoryMB).Msg("evicted idle session")

		if time.Now().After(deadline) {
			return nil
		}
		// loop to re-check
	}
}
