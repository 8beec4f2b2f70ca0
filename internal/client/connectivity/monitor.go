// Package connectivity tracks whether the remote gateway is reachable and
// notifies subscribers on every transition edge.
//
// Go offers no ambient reachability primitive, so the signal is produced by
// periodically probing the gateway (see Monitor.Watch). Without a prober the
// state stays at its initial value: assume online and let remote calls fail
// naturally.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/kopilka/internal/logging"
)

// probeTimeout bounds a single reachability probe.
const probeTimeout = 3 * time.Second

// Prober is the reachability check. Satisfied by the gateway client's Ping.
type Prober interface {
	Ping(ctx context.Context) error
}

// Monitor holds the current online/offline state. Notifications are
// edge-triggered: repeated identical signals do not re-notify.
type Monitor struct {
	logger logging.Logger

	mu     sync.Mutex
	online bool
	nextID int
	subs   map[int]chan bool
}

// NewMonitor returns a monitor with the given initial state.
func NewMonitor(initiallyOnline bool, logger logging.Logger) *Monitor {
	return &Monitor{
		logger: logger,
		online: initiallyOnline,
		subs:   make(map[int]chan bool),
	}
}

// Online reports the current state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Set records the latest reachability signal. Subscribers are notified only
// when the state actually flips.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	targets := make([]chan bool, 0, len(m.subs))
	for _, ch := range m.subs {
		targets = append(targets, ch)
	}
	m.mu.Unlock()

	m.logger.Info(context.Background(), "connectivity changed", "online", online)

	for _, ch := range targets {
		select {
		case ch <- online:
		default:
			// subscriber is behind; it will observe the next edge
		}
	}
}

// Subscribe registers for transition notifications. The returned function
// must be called to unsubscribe; it is safe to call more than once.
func (m *Monitor) Subscribe() (<-chan bool, func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	ch := make(chan bool, 4)
	m.subs[id] = ch
	m.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
	return ch, unsubscribe
}

// Watch probes the gateway every interval and feeds the result into Set.
// Blocks until ctx is cancelled. A nil prober returns immediately.
func (m *Monitor) Watch(ctx context.Context, p Prober, interval time.Duration) {
	if p == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			err := p.Ping(probeCtx)
			cancel()
			m.Set(err == nil)
		case <-ctx.Done():
			return
		}
	}
}
