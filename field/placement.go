package field

import (
	"math"
	"time"
)

// TooClose reports whether a and b sit within d of each other on both axes
func TooClose(a, b Position, d float64) bool {
	return math.Abs(a.X-b.X) < d && math.Abs(a.Y-b.Y) < d
}

// PlaceOne samples a position inside bounds that keeps minDistance from every existing position
// After maxAttempts the last candidate is returned regardless; separated reports which case occurred
func PlaceOne(rng Source, existing []Position, b Bounds, minDistance float64, maxAttempts int) (p Position, separated bool) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	span := b.Max - b.Min
	for attempt := 0; attempt < maxAttempts; attempt++ {
		p = Position{
			X: b.Min + rng.Float64()*span,
			Y: b.Min + rng.Float64()*span,
		}
		if !crowded(p, existing, minDistance) {
			return p, true
		}
	}
	return p, false
}

func crowded(p Position, existing []Position, d float64) bool {
	for _, e := range existing {
		if TooClose(p, e, d) {
			return true
		}
	}
	return false
}

// Generate produces a fresh icon for slot, avoiding existing positions
func Generate(rng Source, slot int, existing []Position, p Params) (Icon, bool) {
	kind := KindBone
	if rng.Float64() >= 0.5 {
		kind = KindPaw
	}

	pos, separated := PlaceOne(rng, existing, p.Bounds, p.MinDistance, p.MaxAttempts)

	size := p.IconSize + rng.Float64()*(p.IconSize*1.2)
	cycle := float64(p.DurationLow) + rng.Float64()*float64(p.DurationRange)
	duration := time.Duration(cycle / p.Speed)
	delay := time.Duration(rng.Float64() * float64(p.DelayMax))

	return Icon{
		Slot:        slot,
		Kind:        kind,
		Position:    pos,
		Size:        size,
		Duration:    duration,
		Delay:       delay,
		Orientation: OrientationOf(kind),
	}, separated
}
