package browser

import (
	"context"
	"time"
)

// RunJanitor reaps idle sessions on a fixed interval until the context is
// cancelled. Intended to run in its own goroutine next to the manager.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.ReapIdle(now)
		}
	}
}
