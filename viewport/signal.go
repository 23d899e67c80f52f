// Package viewport carries the host width to whoever sizes itself from it
package viewport

import "sync"

// Signal is a broadcast width source
// Subscribers run on the Set caller goroutine, outside the state lock, and only on change.
// Deliveries are serialized in the order the widths were stored, so the last width a
// subscriber sees is always Width(). A subscriber must not call Set.
type Signal struct {
	notify sync.Mutex // held across one store-and-deliver round
	mu     sync.Mutex
	width  int
	known  bool
	nextID uint64
	subs   map[uint64]func(int)
}

// NewSignal creates a signal with no width measured yet
func NewSignal() *Signal {
	return &Signal{subs: make(map[uint64]func(int))}
}

// Static creates a signal already holding width
func Static(width int) *Signal {
	s := NewSignal()
	s.width, s.known = width, true
	return s
}

// Width returns the last width set, ok is false before the first Set
func (s *Signal) Width() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.known
}

// Set publishes width, a repeat of the current value is dropped
func (s *Signal) Set(width int) {
	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	if s.known && s.width == width {
		s.mu.Unlock()
		return
	}
	s.width, s.known = width, true
	fns := make([]func(int), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(width)
	}
}

// Subscribe registers fn and returns an idempotent cancel
func (s *Signal) Subscribe(fn func(width int)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Subscribers returns the number of live subscriptions
func (s *Signal) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
