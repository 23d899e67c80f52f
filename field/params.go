package field

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidParams is wrapped by every Params validation failure
var ErrInvalidParams = errors.New("invalid field params")

// Params configures the generator and slot scheduling
type Params struct {
	Density  int     // target pool size before responsive scaling
	Speed    float64 // animation speed multiplier, higher is faster
	IconSize float64 // base glyph magnitude

	MinDistance float64 // preferred separation in percent on both axes
	MaxAttempts int     // rejection sampling cap
	Bounds      Bounds

	DurationLow   time.Duration // animation cycle band before speed scaling
	DurationRange time.Duration
	DelayMax      time.Duration // initial animation offset band

	RegenMin time.Duration // per-slot regeneration interval band
	RegenMax time.Duration

	ResizeDebounce time.Duration // quiet period before a width change re-provisions

	Seed uint64 // zero seeds from the clock
}

// DefaultParams returns the stock configuration
func DefaultParams() Params {
	return Params{
		Density:        20,
		Speed:          1,
		IconSize:       24,
		MinDistance:    8,
		MaxAttempts:    20,
		Bounds:         Bounds{Min: 5, Max: 90},
		DurationLow:    2 * time.Second,
		DurationRange:  4 * time.Second,
		DelayMax:       2 * time.Second,
		RegenMin:       4 * time.Second,
		RegenMax:       7 * time.Second,
		ResizeDebounce: 150 * time.Millisecond,
	}
}

// Validate checks ranges, every error wraps ErrInvalidParams
func (p Params) Validate() error {
	switch {
	case p.Density < 0:
		return fmt.Errorf("%w: density %d must be >= 0", ErrInvalidParams, p.Density)
	case p.Speed <= 0:
		return fmt.Errorf("%w: speed %g must be > 0", ErrInvalidParams, p.Speed)
	case p.IconSize <= 0:
		return fmt.Errorf("%w: icon size %g must be > 0", ErrInvalidParams, p.IconSize)
	case p.MinDistance < 0:
		return fmt.Errorf("%w: min distance %g must be >= 0", ErrInvalidParams, p.MinDistance)
	case p.MaxAttempts < 1:
		return fmt.Errorf("%w: max attempts %d must be >= 1", ErrInvalidParams, p.MaxAttempts)
	case p.Bounds.Min < 0 || p.Bounds.Max > 100 || p.Bounds.Min >= p.Bounds.Max:
		return fmt.Errorf("%w: bounds [%g, %g] must be ordered within [0, 100]", ErrInvalidParams, p.Bounds.Min, p.Bounds.Max)
	case p.DurationLow <= 0 || p.DurationRange < 0:
		return fmt.Errorf("%w: duration band %v+%v", ErrInvalidParams, p.DurationLow, p.DurationRange)
	case p.DelayMax < 0:
		return fmt.Errorf("%w: delay max %v must be >= 0", ErrInvalidParams, p.DelayMax)
	case p.RegenMin <= 0 || p.RegenMax < p.RegenMin:
		return fmt.Errorf("%w: regeneration band [%v, %v]", ErrInvalidParams, p.RegenMin, p.RegenMax)
	case p.ResizeDebounce < 0:
		return fmt.Errorf("%w: resize debounce %v must be >= 0", ErrInvalidParams, p.ResizeDebounce)
	}
	return nil
}
