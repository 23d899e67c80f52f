package field

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/lixenwraith/pawfield/clock"
	"github.com/lixenwraith/pawfield/status"
	"github.com/lixenwraith/pawfield/vmath"
)

var (
	ErrMounted   = errors.New("field already mounted")
	ErrDestroyed = errors.New("field destroyed")
)

// Viewport delivers the host width in logical pixels
type Viewport interface {
	// Width returns the last known width, ok is false until measured
	Width() (width int, ok bool)
	// Subscribe registers fn for width changes and returns its cancel func
	Subscribe(fn func(width int)) (cancel func())
}

type lifecycle uint8

const (
	stateIdle lifecycle = iota
	stateMounted
	stateDestroyed
)

// EventType classifies lifecycle notifications
type EventType uint8

const (
	EventMount EventType = iota
	EventRegenerate
	EventResize
	EventUnmount
)

// Event is delivered to the observer after the state change it describes
type Event struct {
	Type    EventType
	Slot    int  // EventRegenerate only
	Icon    Icon // EventRegenerate only
	Density int
	At      time.Time
}

// Option customises a Field
type Option func(*Field)

// WithSources overrides per-slot random streams, called for every slot on each provisioning
func WithSources(fn func(slot int) Source) Option {
	return func(f *Field) { f.newSource = func(_ uint64, slot int) Source { return fn(slot) } }
}

// WithObserver registers fn for lifecycle events, fn must not call back into the Field
func WithObserver(fn func(Event)) Option {
	return func(f *Field) { f.observer = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(f *Field) { f.log = l }
}

func WithRegistry(r *status.Registry) Option {
	return func(f *Field) { f.reg = r }
}

// Field owns a pool and the per-slot timers that keep it moving
//
// Every slot runs its own timer chain. Timer callbacks and viewport updates serialize on mu
// and write the pool only through Store.Apply, so no update works from a stale snapshot.
// Each provisioning bumps epoch; a callback that raced a teardown sees a foreign epoch and exits.
type Field struct {
	params   Params
	clock    clock.Clock
	viewport Viewport
	store    *Store

	log       *zap.Logger
	observer  func(Event)
	reg       *status.Registry
	newSource func(epoch uint64, slot int) Source

	// Cached metric pointers
	statDensity   *atomic.Int64
	statRegen     *atomic.Int64
	statRemounts  *atomic.Int64
	statFallbacks *atomic.Int64
	statMounted   *atomic.Int64

	mu          sync.Mutex
	state       lifecycle
	epoch       uint64
	density     int
	width       int
	widthKnown  bool
	timers      map[int]clock.Timer
	sources     []Source
	debounce    clock.Timer
	resizeSeq   uint64
	unsubscribe func()

	// Notifications that left the critical section but have not finished; Unmount waits on it
	inflight sync.WaitGroup
}

// New validates params and builds an unmounted field
// A nil viewport means the width is never known and density stays unscaled
func New(params Params, clk clock.Clock, vp Viewport, opts ...Option) (*Field, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.NewReal()
	}

	f := &Field{
		params:   params,
		clock:    clk,
		viewport: vp,
		store:    NewStore(),
		log:      zap.NewNop(),
		timers:   make(map[int]clock.Timer),
	}

	seed := params.Seed
	if seed == 0 {
		seed = uint64(clk.Now().UnixNano())
	}
	f.newSource = func(epoch uint64, slot int) Source {
		return vmath.NewFastRand(vmath.SlotSeed(seed+epoch*0x2545F4914F6CDD1D, slot))
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.reg == nil {
		f.reg = status.NewRegistry()
	}
	f.statDensity = f.reg.Ints.Get(status.KeyDensity)
	f.statRegen = f.reg.Ints.Get(status.KeyRegenerations)
	f.statRemounts = f.reg.Ints.Get(status.KeyRemounts)
	f.statFallbacks = f.reg.Ints.Get(status.KeyPlacementFallbacks)
	f.statMounted = f.reg.Ints.Get(status.KeyMountedFields)

	return f, nil
}

// Mount generates the initial pool and starts every slot timer
func (f *Field) Mount() error {
	// Subscribe before reading the width so no change slips between the two
	var cancel func()
	if f.viewport != nil {
		cancel = f.viewport.Subscribe(f.onWidth)
	}

	f.mu.Lock()
	switch f.state {
	case stateMounted:
		f.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return ErrMounted
	case stateDestroyed:
		f.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return ErrDestroyed
	}

	if f.viewport != nil {
		f.width, f.widthKnown = f.viewport.Width()
	}
	f.unsubscribe = cancel
	f.state = stateMounted
	f.density = EffectiveDensity(f.params.Density, f.width, f.widthKnown)
	now := f.clock.Now()
	f.provisionLocked(now)
	density, width, known := f.density, f.width, f.widthKnown
	f.inflight.Add(1)
	f.mu.Unlock()
	defer f.inflight.Done()

	f.statMounted.Add(1)
	f.log.Info("field mounted",
		zap.Int("density", density),
		zap.Int("width", width),
		zap.Bool("width_known", known))
	f.emit(Event{Type: EventMount, Density: density, At: now})
	return nil
}

// Unmount cancels every pending timer and waits for notifications already under way;
// no state update, metric change or observer call happens after it returns.
// Safe to call more than once and before Mount. Must not be called from the observer.
func (f *Field) Unmount() {
	f.mu.Lock()
	if f.state == stateDestroyed {
		f.mu.Unlock()
		return
	}
	wasMounted := f.state == stateMounted
	f.state = stateDestroyed
	f.teardownLocked()
	if f.debounce != nil {
		f.debounce.Stop()
		f.debounce = nil
	}
	f.epoch++
	f.store.Apply(Replace(Pool{}))
	cancel := f.unsubscribe
	f.unsubscribe = nil
	now := f.clock.Now()
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	f.inflight.Wait()
	if !wasMounted {
		return
	}
	f.statMounted.Add(-1)
	f.log.Info("field unmounted")
	f.emit(Event{Type: EventUnmount, At: now})
}

// Snapshot returns the current render tuples
func (f *Field) Snapshot() Frame {
	pool, version := f.store.Load()
	return FrameOf(pool, version)
}

// Version increments on every pool change
func (f *Field) Version() uint64 {
	_, v := f.store.Load()
	return v
}

// Density returns the effective pool size of the current mount
func (f *Field) Density() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.density
}

// PendingTimers returns the number of live slot timers
func (f *Field) PendingTimers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

// Params returns the configuration the field was built with
func (f *Field) Params() Params {
	return f.params
}

// provisionLocked builds a fresh pool and slot timers for the current density
func (f *Field) provisionLocked(now time.Time) {
	f.epoch++
	epoch := f.epoch

	f.sources = make([]Source, f.density)
	for slot := range f.sources {
		f.sources[slot] = f.newSource(epoch, slot)
	}

	pool, fallbacks := InitialPool(f.sources, f.params, now)
	f.store.Apply(Replace(pool))
	f.statFallbacks.Add(int64(fallbacks))
	f.statDensity.Store(int64(f.density))

	// Initial delays are spread over the full interval band so slots start out of phase
	for slot, src := range f.sources {
		f.scheduleLocked(slot, epoch, time.Duration(src.Float64()*float64(f.params.RegenMax)))
	}
}

// teardownLocked stops and forgets every slot timer
func (f *Field) teardownLocked() {
	for slot, t := range f.timers {
		t.Stop()
		delete(f.timers, slot)
	}
	f.sources = nil
}

func (f *Field) scheduleLocked(slot int, epoch uint64, d time.Duration) {
	f.timers[slot] = f.clock.AfterFunc(d, func() { f.fire(slot, epoch) })
}

// fire regenerates one slot and re-arms its timer with a freshly sampled interval
func (f *Field) fire(slot int, epoch uint64) {
	f.mu.Lock()
	if f.state != stateMounted || epoch != f.epoch || slot >= len(f.sources) {
		f.mu.Unlock()
		return
	}

	src := f.sources[slot]
	now := f.clock.Now()
	var separated bool
	pool, _ := f.store.Apply(Regenerate(slot, src, f.params, now, &separated))
	icon := pool.At(slot)

	span := f.params.RegenMax - f.params.RegenMin
	interval := f.params.RegenMin + time.Duration(src.Float64()*float64(span))
	f.scheduleLocked(slot, epoch, interval)
	density := f.density
	f.inflight.Add(1)
	f.mu.Unlock()
	defer f.inflight.Done()

	f.statRegen.Add(1)
	if !separated {
		f.statFallbacks.Add(1)
	}
	if ce := f.log.Check(zap.DebugLevel, "slot regenerated"); ce != nil {
		ce.Write(
			zap.Int("slot", slot),
			zap.Stringer("kind", icon.Kind),
			zap.Uint64("generation", icon.Generation),
			zap.Duration("next", interval))
	}
	f.emit(Event{Type: EventRegenerate, Slot: slot, Icon: icon, Density: density, At: now})
}

// onWidth records a viewport change and debounces the density recomputation
func (f *Field) onWidth(width int) {
	f.mu.Lock()
	if f.state == stateDestroyed {
		f.mu.Unlock()
		return
	}
	f.width, f.widthKnown = width, true
	if f.state != stateMounted {
		f.mu.Unlock()
		return
	}

	f.resizeSeq++
	seq := f.resizeSeq
	if f.debounce != nil {
		f.debounce.Stop()
		f.debounce = nil
	}
	if f.params.ResizeDebounce > 0 {
		f.debounce = f.clock.AfterFunc(f.params.ResizeDebounce, func() { f.settleResize(seq) })
		f.mu.Unlock()
		return
	}
	ev, changed := f.applyResizeLocked()
	f.inflight.Add(1)
	f.mu.Unlock()
	defer f.inflight.Done()

	if changed {
		f.emit(ev)
	}
}

func (f *Field) settleResize(seq uint64) {
	f.mu.Lock()
	if f.state != stateMounted || seq != f.resizeSeq {
		f.mu.Unlock()
		return
	}
	f.debounce = nil
	ev, changed := f.applyResizeLocked()
	f.inflight.Add(1)
	f.mu.Unlock()
	defer f.inflight.Done()

	if changed {
		f.emit(ev)
	}
}

// applyResizeLocked re-provisions when the effective density moved
// Teardown and provisioning share one critical section, no timer from either generation runs in between
func (f *Field) applyResizeLocked() (Event, bool) {
	next := EffectiveDensity(f.params.Density, f.width, f.widthKnown)
	if next == f.density {
		return Event{}, false
	}
	prev := f.density
	f.teardownLocked()
	f.density = next
	now := f.clock.Now()
	f.provisionLocked(now)
	f.statRemounts.Add(1)

	f.log.Info("field density changed",
		zap.Int("from", prev),
		zap.Int("to", next),
		zap.Int("width", f.width))
	return Event{Type: EventResize, Density: next, At: now}, true
}

func (f *Field) emit(ev Event) {
	if f.observer != nil {
		f.observer(ev)
	}
}
