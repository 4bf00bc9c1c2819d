package mqtt

import (
	"sync"
	"time"

	"github.com/AaronLay10/StoryLoom/internal/events"
)

// ConnectionListener is told about every broker connectivity change and,
// for disconnects, on every check while the broker stays down.
type ConnectionListener func(connected bool)

// Monitor polls broker connectivity and reports it to listeners.
type Monitor struct {
	mu        sync.Mutex
	broker    Broker
	listeners []ConnectionListener
	known     bool
	since     time.Time
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewMonitor creates a monitor. The broker is assumed connected at start.
func NewMonitor(broker Broker, listeners ...ConnectionListener) *Monitor {
	return &Monitor{
		broker:    broker,
		listeners: listeners,
		known:     true,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the background check loop.
func (m *Monitor) Start(interval time.Duration) {
	m.wg.Add(1)
	go m.loop(interval)
}

// Stop stops the loop and waits for it.
func (m *Monitor) Stop() {
	close(m.stopCh)
	m.wg.Wait()
}

func (m *Monitor) loop(interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.Check()
		}
	}
}

// Check samples connectivity once.
func (m *Monitor) Check() {
	connected := m.broker.IsConnected()

	m.mu.Lock()
	changed := connected != m.known
	m.known = connected
	if changed && !connected {
		m.since = time.Now()
	}
	since := m.since
	m.mu.Unlock()

	if changed {
		if connected {
			events.Emit("info", "broker.connected", "", nil)
		} else {
			events.Emit("warn", "broker.disconnected", "", map[string]interface{}{
				"since": since.UTC().Format(time.RFC3339),
			})
		}
	}
	if changed || !connected {
		for _, l := range m.listeners {
			l(connected)
		}
	}
}

// DisconnectedSince returns when the broker went down, or the zero time.
func (m *Monitor) DisconnectedSince() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.known {
		return time.Time{}
	}
	return m.since
}
