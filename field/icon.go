package field

import (
	"fmt"
	"time"
)

// Kind selects which glyph a slot shows
type Kind uint8

const (
	KindPaw Kind = iota
	KindBone
)

func (k Kind) String() string {
	switch k {
	case KindPaw:
		return "paw"
	case KindBone:
		return "bone"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// MarshalText encodes the kind by name for frame payloads
func (k Kind) MarshalText() ([]byte, error) {
	if k > KindBone {
		return nil, fmt.Errorf("unknown kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "paw":
		*k = KindPaw
	case "bone":
		*k = KindBone
	default:
		return fmt.Errorf("unknown kind %q", b)
	}
	return nil
}

// Orientation is a cosmetic hint for the rotation axis of the pop animation
type Orientation uint8

const (
	OrientDiagonal Orientation = iota // rotates while drifting
	OrientUp                          // rotates while rising
)

func (o Orientation) String() string {
	if o == OrientUp {
		return "up"
	}
	return "diagonal"
}

func (o Orientation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Orientation) UnmarshalText(b []byte) error {
	switch string(b) {
	case "diagonal":
		*o = OrientDiagonal
	case "up":
		*o = OrientUp
	default:
		return fmt.Errorf("unknown orientation %q", b)
	}
	return nil
}

// OrientationOf maps a kind to its rotation style: paws wobble, bones spin upward
func OrientationOf(k Kind) Orientation {
	if k == KindBone {
		return OrientUp
	}
	return OrientDiagonal
}

// Position is a point in percent of the container, origin top-left
type Position struct {
	X float64
	Y float64
}

// Bounds is the inset region positions are sampled from, identical on both axes
type Bounds struct {
	Min float64
	Max float64
}

// Contains reports whether p lies within the bounds on both axes
func (b Bounds) Contains(p Position) bool {
	return p.X >= b.Min && p.X <= b.Max && p.Y >= b.Min && p.Y <= b.Max
}

// Icon is the content of one slot
// A slot keeps its id for the lifetime of a mount; everything else is replaced on regeneration
type Icon struct {
	Slot        int
	Kind        Kind
	Position    Position
	Size        float64
	Duration    time.Duration
	Delay       time.Duration
	Orientation Orientation
	Generation  uint64    // regenerations of this slot since provisioning
	Born        time.Time // animation anchor, the cycle starts at Born+Delay
}

// Source is the random stream a slot draws from
// Implementations need not be safe for concurrent use, each slot owns one
type Source interface {
	Float64() float64
}
