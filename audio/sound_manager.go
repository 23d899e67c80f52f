package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/lixenwraith/pawfield/clock"
	"github.com/lixenwraith/pawfield/config"
	"github.com/lixenwraith/pawfield/field"
)

// SoundManager plays regeneration pops through a single mixer
type SoundManager struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	clock       clock.Clock
	volume      float64
	minGap      time.Duration
	enabled     bool
	initialized bool
	lastPop     time.Time

	// play hands a streamer to the output, the speaker mixer outside tests
	play func(beep.Streamer)
}

// NewSoundManager creates a sound manager, Initialize opens the device
func NewSoundManager(cfg config.AudioConfig, clk clock.Clock) *SoundManager {
	if clk == nil {
		clk = clock.NewReal()
	}
	sm := &SoundManager{
		mixer:   &beep.Mixer{},
		clock:   clk,
		volume:  cfg.Volume,
		minGap:  cfg.MinGap,
		enabled: cfg.Enabled,
	}
	sm.play = func(s beep.Streamer) {
		speaker.Lock()
		sm.mixer.Add(s)
		speaker.Unlock()
	}
	return sm
}

// Initialize sets up the audio device
func (sm *SoundManager) Initialize() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	if err := speaker.Init(sampleRate, sampleRate.N(50*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(sm.mixer)
	sm.initialized = true
	return nil
}

// Close stops output; the speaker stays open for the process lifetime
func (sm *SoundManager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized {
		return
	}
	speaker.Lock()
	sm.mixer.Clear()
	speaker.Unlock()
	sm.initialized = false
}

// Toggle flips the enabled state and returns the new one
func (sm *SoundManager) Toggle() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.enabled = !sm.enabled
	return sm.enabled
}

// Pop plays the pop for kind unless disabled or within minGap of the previous one
// Reports whether a sound was queued
func (sm *SoundManager) Pop(kind field.Kind) bool {
	sm.mu.Lock()
	if !sm.enabled || !sm.initialized {
		sm.mu.Unlock()
		return false
	}
	now := sm.clock.Now()
	if !sm.lastPop.IsZero() && now.Sub(sm.lastPop) < sm.minGap {
		sm.mu.Unlock()
		return false
	}
	sm.lastPop = now
	play, vol := sm.play, sm.volume
	sm.mu.Unlock()

	play(CreatePop(kind, vol))
	return true
}

// Observe adapts Pop to a field observer
func (sm *SoundManager) Observe(ev field.Event) {
	if ev.Type == field.EventRegenerate {
		sm.Pop(ev.Icon.Kind)
	}
}
