package ratelimit

import (
	"sync"
	"time"
)

const sweepInterval = 5 * time.Minute

type windowState struct {
	count     int
	windowEnd time.Time
}

// Memory is an in-process Limiter. Expired windows are swept periodically.
type Memory struct {
	mu      sync.Mutex
	entries map[string]windowState
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

// NewMemory starts an in-process limiter. Call Close to stop its sweeper.
func NewMemory() *Memory {
	m := &Memory{
		entries: make(map[string]windowState),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// Allow records one attempt for key.
func (m *Memory) Allow(key string, limit int, window time.Duration) Decision {
	if limit <= 0 {
		return Decision{Allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.entries[key]
	if !ok || !now.Before(state.windowEnd) {
		state = windowState{count: 1, windowEnd: now.Add(window)}
		m.entries[key] = state
		return Decision{Allowed: true, Count: 1, WindowEnd: state.windowEnd}
	}
	if state.count >= limit {
		return Decision{Allowed: false, Count: state.count, WindowEnd: state.windowEnd}
	}
	state.count++
	m.entries[key] = state
	return Decision{Allowed: true, Count: state.count, WindowEnd: state.windowEnd}
}

func (m *Memory) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Memory) sweep() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, state := range m.entries {
		if !now.Before(state.windowEnd) {
			delete(m.entries, key)
		}
	}
}

// Close stops the sweeper. It is safe to call more than once.
func (m *Memory) Close() {
	m.once.Do(func() { close(m.stopCh) })
}
