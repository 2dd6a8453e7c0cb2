package health

import (
	"context"
	"sync"
	"time"

	"github.com/fides-dpp/trust-engine/internal/log"
)

// DefaultPingPeriod is the time between background ping rounds
const DefaultPingPeriod = 30 * time.Second

// Pinger checks one dependency
type Pinger func(ctx context.Context) error

// Monitors maps a dependency name to its pinger
type Monitors map[string]Pinger

// Status tracks the last observed state of every monitored dependency
type Status struct {
	mu       sync.RWMutex
	monitors Monitors
	last     map[string]bool
}

// New returns a Status over the given monitors. Call Run to keep it fresh.
func New(monitors Monitors) *Status {
	return &Status{
		monitors: monitors,
		last:     make(map[string]bool, len(monitors)),
	}
}

// Run pings all monitors periodically until ctx is cancelled
func (s *Status) Run(ctx context.Context, period time.Duration) {
	s.ping(ctx)
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.ping(ctx)
			}
		}
	}()
}

func (s *Status) ping(ctx context.Context) {
	for name, pinger := range s.monitors {
		err := pinger(ctx)
		if err != nil {
			log.Warn(ctx, "health ping failed", "monitor", name, "err", err)
		}
		s.mu.Lock()
		s.last[name] = err == nil
		s.mu.Unlock()
	}
}

// Healthy reports whether every dependency was up on the last round
func (s *Status) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, up := range s.last {
		if !up {
			return false
		}
	}
	return true
}

// Snapshot returns the last observed state per dependency
func (s *Status) Snapshot() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.last))
	for name, up := range s.last {
		out[name] = up
	}
	return out
}
