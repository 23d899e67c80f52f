package field

import (
	"sync"
	"time"
)

// Pool is an immutable snapshot of every slot, indexed by slot id
// Transitions return new pools; a Pool handed out is never mutated afterwards
type Pool struct {
	icons []Icon
}

// Len returns the slot count
func (p Pool) Len() int { return len(p.icons) }

// At returns the icon in slot i
func (p Pool) At(i int) Icon { return p.icons[i] }

// Icons returns a copy of the slots
func (p Pool) Icons() []Icon {
	out := make([]Icon, len(p.icons))
	copy(out, p.icons)
	return out
}

// PositionsExcept lists every live position except the one in skip
func (p Pool) PositionsExcept(skip int) []Position {
	out := make([]Position, 0, len(p.icons))
	for i := range p.icons {
		if i != skip {
			out = append(out, p.icons[i].Position)
		}
	}
	return out
}

// with returns a copy of p with slot i replaced
func (p Pool) with(i int, ic Icon) Pool {
	icons := make([]Icon, len(p.icons))
	copy(icons, p.icons)
	icons[i] = ic
	return Pool{icons: icons}
}

// InitialPool places one icon per source, each avoiding those placed before it in the same pass
// Returns the pool and the number of placements that hit the attempt cap
func InitialPool(sources []Source, params Params, now time.Time) (Pool, int) {
	icons := make([]Icon, 0, len(sources))
	placed := make([]Position, 0, len(sources))
	fallbacks := 0
	for slot, src := range sources {
		ic, ok := Generate(src, slot, placed, params)
		if !ok {
			fallbacks++
		}
		ic.Born = now
		icons = append(icons, ic)
		placed = append(placed, ic.Position)
	}
	return Pool{icons: icons}, fallbacks
}

// Transition maps the current pool to the next one
type Transition func(Pool) Pool

// Regenerate replaces one slot with a fresh icon that starts animating immediately
// The slot avoids every other icon in the pool it is applied to; out-of-range slots are a no-op
// separated, when non-nil, receives the placement outcome
func Regenerate(slot int, rng Source, params Params, now time.Time, separated *bool) Transition {
	return func(p Pool) Pool {
		if slot < 0 || slot >= p.Len() {
			return p
		}
		prev := p.icons[slot]
		ic, ok := Generate(rng, slot, p.PositionsExcept(slot), params)
		if separated != nil {
			*separated = ok
		}
		ic.Delay = 0
		ic.Born = now
		ic.Generation = prev.Generation + 1
		return p.with(slot, ic)
	}
}

// Replace discards the current pool
func Replace(next Pool) Transition {
	return func(Pool) Pool { return next }
}

// Store is the single authoritative holder of the pool
// Apply is the only mutation path and always sees the latest state
type Store struct {
	mu      sync.RWMutex
	pool    Pool
	version uint64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{}
}

// Apply runs t against the current pool and installs the result
func (s *Store) Apply(t Transition) (Pool, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pool = t(s.pool)
	s.version++
	return s.pool, s.version
}

// Load returns the current pool and its version
func (s *Store) Load() (Pool, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool, s.version
}
