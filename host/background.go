package host

import (
	"time"

	"github.com/ahimsalabs/offchain-go/offchain"
)

// runReapLoop releases abandoned requests periodically.
func (h *Host) runReapLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.shutdownCtx.Done():
			return
		case <-ticker.C:
			h.reapAbandoned()
		}
	}
}

// reapAbandoned releases resolved requests whose caller has not waited on,
// inspected or read them for RetainResolved, and requests that never
// dispatched within RetainResolved of starting. Returns the number released.
func (h *Host) reapAbandoned() int {
	now := h.clock.Now()

	var stale []*request
	h.requests.Range(func(_ offchain.HTTPRequestID, r *request) bool {
		r.mu.Lock()
		switch {
		case r.state == stateResolved && now.Sub(r.lastActivity) > h.retainResolved:
			stale = append(stale, r)
		case r.state == stateStarted && now.Sub(r.startedAt) > h.retainResolved:
			stale = append(stale, r)
		}
		r.mu.Unlock()
		return true
	})

	for _, r := range stale {
		h.release(r)
	}
	if len(stale) > 0 {
		h.logger.Debug("host: reaped abandoned requests", "released", len(stale))
	}
	return len(stale)
}
