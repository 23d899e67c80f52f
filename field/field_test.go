package field

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lixenwraith/pawfield/clock"
	"github.com/lixenwraith/pawfield/status"
	"github.com/lixenwraith/pawfield/viewport"
)

var epoch0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// recorder collects observer events
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) observe(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) ofType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newMockField(t *testing.T, p Params, vp Viewport, opts ...Option) (*Field, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock(epoch0)
	if p.Seed == 0 {
		p.Seed = 42
	}
	f, err := New(p, clk, vp, opts...)
	require.NoError(t, err)
	return f, clk
}

func assertSlotsIntact(t *testing.T, fr Frame, n int) {
	t.Helper()
	require.Len(t, fr.Glyphs, n)
	for i, g := range fr.Glyphs {
		assert.Equal(t, i, g.Slot, "slot ids are dense and ordered")
	}
}

func TestMountDesktopScenario(t *testing.T) {
	f, clk := newMockField(t, DefaultParams(), viewport.Static(1200))
	require.NoError(t, f.Mount())
	defer f.Unmount()

	fr := f.Snapshot()
	assertSlotsIntact(t, fr, 20)
	assert.Equal(t, 20, fr.Density)

	bounds := Bounds{Min: 5, Max: 90}
	for _, g := range fr.Glyphs {
		assert.Contains(t, []Kind{KindPaw, KindBone}, g.Kind)
		assert.True(t, bounds.Contains(Position{X: g.X, Y: g.Y}), "glyph %+v out of bounds", g)
		assert.Equal(t, epoch0, g.Born)
	}

	assert.Equal(t, 20, f.PendingTimers())
	assert.Equal(t, 20, clk.Pending())
}

func TestMountWithUnknownWidthUsesRawDensity(t *testing.T) {
	f, _ := newMockField(t, DefaultParams(), viewport.NewSignal())
	require.NoError(t, f.Mount())
	defer f.Unmount()
	assert.Equal(t, 20, f.Density())
}

func TestMountWithoutViewport(t *testing.T) {
	p := DefaultParams()
	p.Density = 5
	f, _ := newMockField(t, p, nil)
	require.NoError(t, f.Mount())
	defer f.Unmount()
	assert.Len(t, f.Snapshot().Glyphs, 5)
}

func TestMountPhoneScenario(t *testing.T) {
	f, _ := newMockField(t, DefaultParams(), viewport.Static(375))
	require.NoError(t, f.Mount())
	defer f.Unmount()
	assertSlotsIntact(t, f.Snapshot(), 8)
}

func TestMountTwiceAndAfterUnmount(t *testing.T) {
	sig := viewport.Static(1200)
	f, _ := newMockField(t, DefaultParams(), sig)
	require.NoError(t, f.Mount())
	assert.ErrorIs(t, f.Mount(), ErrMounted)
	assert.Equal(t, 1, sig.Subscribers())

	f.Unmount()
	assert.ErrorIs(t, f.Mount(), ErrDestroyed)
	assert.Zero(t, sig.Subscribers())
}

func TestNewRejectsInvalidParams(t *testing.T) {
	p := DefaultParams()
	p.Speed = -1
	_, err := New(p, clock.NewMock(epoch0), nil)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestSlotsSurviveRegenerationCycles(t *testing.T) {
	rec := &recorder{}
	f, clk := newMockField(t, DefaultParams(), viewport.Static(1200), WithObserver(rec.observe))
	require.NoError(t, f.Mount())
	defer f.Unmount()

	before := f.Snapshot()
	clk.Advance(2 * time.Minute)
	after := f.Snapshot()

	assertSlotsIntact(t, after, 20)
	assert.Greater(t, after.Version, before.Version)
	assert.Equal(t, 20, clk.Pending(), "each slot keeps exactly one armed timer")

	// Every slot fired on its own; 2 minutes covers well over 10 cycles of 4-7s
	var generations uint64
	for _, g := range after.Glyphs {
		assert.GreaterOrEqual(t, g.Generation, uint64(10), "slot %d", g.Slot)
		generations += g.Generation
	}
	assert.Equal(t, uint64(len(rec.ofType(EventRegenerate))), generations,
		"no regeneration is lost to a concurrent write")
}

func TestRegeneratedIconsRespectBoundsAndStartImmediately(t *testing.T) {
	f, clk := newMockField(t, DefaultParams(), viewport.Static(1200))
	require.NoError(t, f.Mount())
	defer f.Unmount()

	clk.Advance(30 * time.Second)
	for _, g := range f.Snapshot().Glyphs {
		assert.True(t, Bounds{Min: 5, Max: 90}.Contains(Position{X: g.X, Y: g.Y}))
		if g.Generation > 0 {
			assert.Zero(t, g.Delay)
			assert.True(t, g.Born.After(epoch0))
		}
	}
}

func TestUnmountStopsAllUpdates(t *testing.T) {
	rec := &recorder{}
	reg := status.NewRegistry()
	f, clk := newMockField(t, DefaultParams(), viewport.Static(1200),
		WithObserver(rec.observe), WithRegistry(reg))
	require.NoError(t, f.Mount())

	clk.Advance(10 * time.Second)
	require.NotEmpty(t, rec.ofType(EventRegenerate))

	f.Unmount()
	version := f.Version()
	events := rec.len()
	regens := reg.Ints.Get(status.KeyRegenerations).Load()

	assert.Zero(t, clk.Pending(), "every slot timer is cancelled")
	assert.Zero(t, f.PendingTimers())

	clk.Advance(time.Minute)

	assert.Equal(t, version, f.Version(), "no state update after unmount")
	assert.Equal(t, events, rec.len())
	assert.Equal(t, regens, reg.Ints.Get(status.KeyRegenerations).Load())
	assert.Empty(t, f.Snapshot().Glyphs)
	assert.Len(t, rec.ofType(EventUnmount), 1)

	// Idempotent
	f.Unmount()
	assert.Len(t, rec.ofType(EventUnmount), 1)
}

func TestUnmountBeforeMount(t *testing.T) {
	f, clk := newMockField(t, DefaultParams(), viewport.Static(1200))
	f.Unmount()
	assert.Zero(t, clk.Pending())
	assert.ErrorIs(t, f.Mount(), ErrDestroyed)
}

func TestResizeShrinksPoolWithoutLeakingTimers(t *testing.T) {
	sig := viewport.Static(1200)
	reg := status.NewRegistry()
	rec := &recorder{}
	f, clk := newMockField(t, DefaultParams(), sig, WithRegistry(reg), WithObserver(rec.observe))
	require.NoError(t, f.Mount())
	defer f.Unmount()

	clk.Advance(3 * time.Second)
	require.Len(t, f.Snapshot().Glyphs, 20)

	sig.Set(320)
	// Debounce not yet elapsed
	assert.Len(t, f.Snapshot().Glyphs, 20)

	clk.Advance(DefaultParams().ResizeDebounce)
	assertSlotsIntact(t, f.Snapshot(), 8)
	assert.Equal(t, 8, f.Density())
	assert.Equal(t, 8, f.PendingTimers())
	assert.Equal(t, 8, clk.Pending(), "the 20 prior timers are stopped")
	settled := clk.Now()
	for _, d := range clk.Deadlines() {
		assert.False(t, d.Before(settled), "timers are re-armed from the resize")
		assert.True(t, d.Before(settled.Add(DefaultParams().RegenMax)), "initial delay stays inside the band")
	}
	assert.Equal(t, int64(1), reg.Ints.Get(status.KeyRemounts).Load())
	assert.Equal(t, int64(8), reg.Ints.Get(status.KeyDensity).Load())

	resizes := rec.ofType(EventResize)
	require.Len(t, resizes, 1)
	assert.Equal(t, 8, resizes[0].Density)

	// The new pool keeps cycling
	clk.Advance(time.Minute)
	assertSlotsIntact(t, f.Snapshot(), 8)
	assert.Equal(t, 8, clk.Pending())
}

func TestResizeDebounceCoalesces(t *testing.T) {
	sig := viewport.Static(1200)
	reg := status.NewRegistry()
	f, clk := newMockField(t, DefaultParams(), sig, WithRegistry(reg))
	require.NoError(t, f.Mount())
	defer f.Unmount()

	sig.Set(320)
	clk.Advance(100 * time.Millisecond)
	sig.Set(700)
	clk.Advance(100 * time.Millisecond)
	assert.Equal(t, 20, f.Density(), "second change restarted the quiet period")

	clk.Advance(50 * time.Millisecond)
	assert.Equal(t, 12, f.Density())
	assert.Equal(t, int64(1), reg.Ints.Get(status.KeyRemounts).Load())
}

func TestResizeWithinBandKeepsPool(t *testing.T) {
	sig := viewport.Static(1200)
	f, clk := newMockField(t, DefaultParams(), sig)
	require.NoError(t, f.Mount())
	defer f.Unmount()

	before := f.Snapshot()
	sig.Set(1500)
	clk.Advance(time.Second)

	after := f.Snapshot()
	assert.Len(t, after.Glyphs, 20)
	// Only slot regenerations, never a fresh pool: every glyph either kept or advanced its generation
	for i := range after.Glyphs {
		assert.GreaterOrEqual(t, after.Glyphs[i].Generation, before.Glyphs[i].Generation)
	}
}

func TestResizeWithoutDebounceAppliesInline(t *testing.T) {
	p := DefaultParams()
	p.ResizeDebounce = 0
	sig := viewport.Static(1200)
	f, clk := newMockField(t, p, sig)
	require.NoError(t, f.Mount())
	defer f.Unmount()

	sig.Set(800)
	assert.Equal(t, 12, f.Density())
	assert.Equal(t, 12, clk.Pending())
}

func TestResizeAfterUnmountIgnored(t *testing.T) {
	sig := viewport.Static(1200)
	f, clk := newMockField(t, DefaultParams(), sig)
	require.NoError(t, f.Mount())

	sig.Set(320)
	f.Unmount()
	clk.Advance(time.Second)

	assert.Zero(t, clk.Pending(), "pending debounce is cancelled too")
	assert.Empty(t, f.Snapshot().Glyphs)
}

func TestSlotsRegenerateIndependently(t *testing.T) {
	p := DefaultParams()
	p.Density = 2
	rec := &recorder{}

	// Slot 0 draws 0.1 throughout, slot 1 draws 0.6
	sources := map[int]Source{0: constSource(0.1), 1: constSource(0.6)}
	f, clk := newMockField(t, p, nil,
		WithSources(func(slot int) Source { return sources[slot] }),
		WithObserver(rec.observe))
	require.NoError(t, f.Mount())
	defer f.Unmount()

	clk.Advance(12 * time.Second)

	fires := map[int][]time.Duration{}
	for _, ev := range rec.ofType(EventRegenerate) {
		fires[ev.Slot] = append(fires[ev.Slot], ev.At.Sub(epoch0))
	}

	// Initial delay is draw*RegenMax, then RegenMin + draw*(RegenMax-RegenMin)
	assert.Equal(t, []time.Duration{700 * time.Millisecond, 5 * time.Second, 9300 * time.Millisecond}, fires[0])
	assert.Equal(t, []time.Duration{4200 * time.Millisecond, 10 * time.Second}, fires[1])

	for _, a := range fires[0] {
		for _, b := range fires[1] {
			assert.NotEqual(t, a, b, "slots must not regenerate in lockstep")
		}
	}
}

func TestRegenerationTouchesOnlyItsSlot(t *testing.T) {
	p := DefaultParams()
	p.Density = 2
	sources := map[int]Source{0: constSource(0.1), 1: constSource(0.6)}
	f, clk := newMockField(t, p, nil, WithSources(func(slot int) Source { return sources[slot] }))
	require.NoError(t, f.Mount())
	defer f.Unmount()

	clk.Advance(time.Second)
	fr := f.Snapshot()
	assert.Equal(t, uint64(1), fr.Glyphs[0].Generation)
	assert.Equal(t, uint64(0), fr.Glyphs[1].Generation)
}

func TestConcurrentSlotsDoNotLoseUpdates(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := DefaultParams()
	p.RegenMin = time.Millisecond
	p.RegenMax = 3 * time.Millisecond
	p.Seed = 7

	var mu sync.Mutex
	latest := map[int]uint64{}
	total := 0
	f, err := New(p, clock.NewReal(), viewport.Static(1200), WithObserver(func(ev Event) {
		if ev.Type != EventRegenerate {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		total++
		if ev.Icon.Generation > latest[ev.Slot] {
			latest[ev.Slot] = ev.Icon.Generation
		}
	}))
	require.NoError(t, err)
	require.NoError(t, f.Mount())

	time.Sleep(150 * time.Millisecond)
	fr := f.Snapshot()
	f.Unmount()

	assertSlotsIntact(t, fr, 20)

	mu.Lock()
	defer mu.Unlock()
	var sum uint64
	for _, g := range latest {
		sum += g
	}
	require.Positive(t, total)
	assert.Equal(t, uint64(total), sum, "every regeneration landed on top of the previous one")
}

func TestUnmountWaitsForInFlightNotification(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	rec := &recorder{}
	var once sync.Once

	reg := status.NewRegistry()
	f, clk := newMockField(t, DefaultParams(), viewport.Static(1200), WithRegistry(reg),
		WithObserver(func(ev Event) {
			if ev.Type == EventRegenerate {
				// Hold the first regeneration between its critical section and delivery
				once.Do(func() {
					close(entered)
					<-release
				})
			}
			rec.observe(ev)
		}))
	require.NoError(t, f.Mount())

	advanced := make(chan struct{})
	go func() {
		defer close(advanced)
		clk.Advance(10 * time.Second)
	}()
	<-entered

	unmounted := make(chan struct{})
	go func() {
		defer close(unmounted)
		f.Unmount()
	}()

	select {
	case <-unmounted:
		t.Fatal("Unmount returned while a regeneration was still being delivered")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-unmounted
	<-advanced

	events := rec.len()
	regens := reg.Ints.Get(status.KeyRegenerations).Load()
	clk.Advance(time.Minute)
	assert.Equal(t, events, rec.len())
	assert.Equal(t, regens, reg.Ints.Get(status.KeyRegenerations).Load())

	rec.mu.Lock()
	last := rec.events[len(rec.events)-1]
	rec.mu.Unlock()
	assert.Equal(t, EventUnmount, last.Type, "unmount is the final notification")
}
