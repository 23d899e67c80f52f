package clock

import (
	"sort"
	"sync"
	"time"
)

// Mock provides a controllable time source for testing
// Timers fire only inside Advance, synchronously on the caller goroutine
type Mock struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	pending map[uint64]*mockTimer
}

type mockTimer struct {
	m        *Mock
	id       uint64
	deadline time.Time
	fn       func()
}

// NewMock creates a mock clock with the given start time
func NewMock(start time.Time) *Mock {
	return &Mock{
		now:     start,
		pending: make(map[uint64]*mockTimer),
	}
}

// Now returns the current mocked time
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc registers fn to run once the mocked time reaches now+d
func (m *Mock) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &mockTimer{m: m, id: m.seq, deadline: m.now.Add(d), fn: fn}
	m.pending[t.id] = t
	return t
}

func (t *mockTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	if _, ok := t.m.pending[t.id]; !ok {
		return false
	}
	delete(t.m.pending, t.id)
	return true
}

// Advance moves time forward by d, firing every timer that falls due in deadline order
// Timers scheduled by callbacks fire in the same call if their deadline is within range
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.earliestLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		delete(m.pending, next.id)
		if next.deadline.After(m.now) {
			m.now = next.deadline
		}
		m.mu.Unlock()

		// Callback runs unlocked; it may schedule or stop timers
		next.fn()
	}
}

// earliestLocked returns the first due timer, ties broken by registration order
func (m *Mock) earliestLocked(limit time.Time) *mockTimer {
	var best *mockTimer
	for _, t := range m.pending {
		if t.deadline.After(limit) {
			continue
		}
		if best == nil || t.deadline.Before(best.deadline) ||
			(t.deadline.Equal(best.deadline) && t.id < best.id) {
			best = t
		}
	}
	return best
}

// Pending returns the number of timers not yet fired or stopped
func (m *Mock) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Deadlines returns the sorted deadlines of pending timers
func (m *Mock) Deadlines() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]time.Time, 0, len(m.pending))
	for _, t := range m.pending {
		out = append(out, t.deadline)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
