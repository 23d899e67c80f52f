// Package keyframe describes the pop-in/pop-out envelope each glyph plays per cycle
package keyframe

import (
	"math"
	"time"

	"github.com/lixenwraith/pawfield/field"
	"github.com/lixenwraith/pawfield/vmath"
)

// Envelope is the transform of a glyph at one instant
type Envelope struct {
	Scale    float64
	Opacity  float64
	Rotation float64 // degrees, clockwise
}

// Stop pins an envelope at a phase in [0, 1]
type Stop struct {
	At float64
	Envelope
}

// Paws pop, wobble a few degrees and shrink away
var pawStops = []Stop{
	{0, Envelope{0, 0, 0}},
	{0.15, Envelope{1.2, 0.8, 5}},
	{0.85, Envelope{1, 0.6, -5}},
	{1, Envelope{0, 0, 10}},
}

// Bones spin one and a half turns over the cycle
var boneStops = []Stop{
	{0, Envelope{0, 0, 0}},
	{0.2, Envelope{1.1, 0.7, 180}},
	{0.8, Envelope{1, 0.5, 360}},
	{1, Envelope{0, 0, 540}},
}

// Stops returns the keyframes for kind
func Stops(k field.Kind) []Stop {
	if k == field.KindBone {
		return boneStops
	}
	return pawStops
}

// Sample evaluates the envelope of kind at phase, each segment eased in and out
func Sample(k field.Kind, phase float64) Envelope {
	stops := Stops(k)
	if phase <= 0 {
		return stops[0].Envelope
	}
	if phase >= 1 {
		return stops[len(stops)-1].Envelope
	}

	for i := 1; i < len(stops); i++ {
		a, b := stops[i-1], stops[i]
		if phase > b.At {
			continue
		}
		t := vmath.SmoothStep((phase - a.At) / (b.At - a.At))
		return Envelope{
			Scale:    vmath.Lerp(a.Scale, b.Scale, t),
			Opacity:  vmath.Lerp(a.Opacity, b.Opacity, t),
			Rotation: vmath.Lerp(a.Rotation, b.Rotation, t),
		}
	}
	return stops[len(stops)-1].Envelope
}

// Phase returns where g is in its repeating cycle at now
// A glyph is hidden until its delay has elapsed
func Phase(g field.Glyph, now time.Time) (phase float64, visible bool) {
	if g.Duration <= 0 {
		return 0, false
	}
	elapsed := now.Sub(g.Born).Seconds() - g.Delay
	if elapsed < 0 {
		return 0, false
	}
	return math.Mod(elapsed, g.Duration) / g.Duration, true
}

// At combines Phase and Sample, a hidden glyph yields the zero envelope
func At(g field.Glyph, now time.Time) Envelope {
	phase, ok := Phase(g, now)
	if !ok {
		return Envelope{}
	}
	return Sample(g.Kind, phase)
}
