package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"

	"github.com/lixenwraith/pawfield/field"
)

const sampleRate = beep.SampleRate(44100)

// Pop timing
const (
	popDuration = 70 * time.Millisecond
	popAttack   = 5 * time.Millisecond
)

// WaveType defines oscillator wave shapes
type WaveType int

const (
	WaveSine WaveType = iota
	WaveTriangle
)

// sweep is an oscillator gliding linearly from one frequency to another
type sweep struct {
	from, to float64
	phase    float64
	duration int
	position int
	wave     WaveType
	rate     beep.SampleRate
}

// NewSweep creates a gliding oscillator lasting duration
func NewSweep(from, to float64, duration time.Duration, wave WaveType, rate beep.SampleRate) beep.Streamer {
	return &sweep{
		from:     from,
		to:       to,
		duration: rate.N(duration),
		wave:     wave,
		rate:     rate,
	}
}

func (s *sweep) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if s.position >= s.duration {
			return i, i > 0
		}

		var val float64
		switch s.wave {
		case WaveTriangle:
			val = 4*math.Abs(s.phase-0.5) - 1
		default:
			val = math.Sin(2 * math.Pi * s.phase)
		}
		samples[i][0] = val
		samples[i][1] = val

		progress := float64(s.position) / float64(s.duration)
		freq := s.from + (s.to-s.from)*progress
		s.phase += freq / float64(s.rate)
		s.phase -= math.Floor(s.phase)
		s.position++
	}
	return len(samples), true
}

func (s *sweep) Err() error { return nil }

// decay ramps in over the attack then falls off exponentially to decayFloor at the end
type decay struct {
	src    beep.Streamer
	attack int
	total  int
	pos    int
	gain   float64 // current gain once past the attack
	factor float64 // per-sample multiplier after the attack
}

const decayFloor = 0.005

// NewDecay shapes s into a percussive hit lasting duration
func NewDecay(s beep.Streamer, duration, attack time.Duration, rate beep.SampleRate) beep.Streamer {
	total, att := rate.N(duration), rate.N(attack)
	tail := max(total-att, 1)
	return &decay{
		src:    s,
		attack: att,
		total:  total,
		gain:   1,
		factor: math.Pow(decayFloor, 1/float64(tail)),
	}
}

func (d *decay) Stream(samples [][2]float64) (int, bool) {
	if d.pos >= d.total {
		return 0, false
	}
	n, ok := d.src.Stream(samples[:min(len(samples), d.total-d.pos)])
	for i := range samples[:n] {
		g := d.gain
		if d.pos < d.attack {
			g = float64(d.pos) / float64(d.attack)
		} else {
			d.gain *= d.factor
		}
		samples[i][0] *= g
		samples[i][1] *= g
		d.pos++
	}
	return n, ok
}

func (d *decay) Err() error { return d.src.Err() }

// newVolume wraps s in a linear gain; math.Log2(0) is -Inf so zero is made silent
func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol), Silent: false}
}

// CreatePop builds the pop played when a slot regenerates
// Paws chirp upward on a sine, bones knock lower on a triangle
func CreatePop(kind field.Kind, volume float64) beep.Streamer {
	var osc beep.Streamer
	if kind == field.KindBone {
		osc = NewSweep(330, 520, popDuration, WaveTriangle, sampleRate)
	} else {
		osc = NewSweep(660, 1320, popDuration, WaveSine, sampleRate)
	}
	shaped := NewDecay(osc, popDuration, popAttack, sampleRate)
	return newVolume(shaped, volume)
}
