// Package shape holds the vector geometry of paw and bone glyphs
//
// Outlines are authored on a 24x24 canvas centred on (12, 12) and projected
// to pixels by a Transform. Ellipses are approximated by a run of circles
// along their major axis so that a circle primitive is enough to fill them.
package shape

import (
	"math"
)

const canvas = 24.0

// Circle is a filled disc in pixel space
type Circle struct {
	X, Y, R float64
}

// Segment is a stroked line in pixel space
type Segment struct {
	X0, Y0, X1, Y1 float64
	Width          float64
}

// Transform places a canvas-space outline on screen
type Transform struct {
	CX, CY   float64 // pixel centre
	Size     float64 // pixel edge of the canvas
	Scale    float64
	Rotation float64 // degrees, clockwise
}

// Apply maps a canvas point to pixels
func (t Transform) Apply(x, y float64) (float64, float64) {
	k := t.unit()
	dx, dy := (x-canvas/2)*k, (y-canvas/2)*k
	sin, cos := math.Sincos(t.Rotation * math.Pi / 180)
	return t.CX + dx*cos - dy*sin, t.CY + dx*sin + dy*cos
}

// Length maps a canvas distance to pixels
func (t Transform) Length(d float64) float64 {
	return d * t.unit()
}

func (t Transform) unit() float64 {
	return t.Size / canvas * t.Scale
}

type ellipse struct {
	cx, cy, rx, ry float64
}

// Four toes above a pad
var pawEllipses = []ellipse{
	{8, 6, 2, 3},
	{16, 6, 2, 3},
	{6, 12, 1.5, 2},
	{18, 12, 1.5, 2},
	{12, 16, 3, 4},
}

// Shaft between two pairs of knobs
var (
	boneShaft = [4]float64{6, 12, 18, 12}
	boneKnobs = []Circle{
		{4.5, 9.8, 1.8},
		{4.5, 14.2, 1.8},
		{19.5, 9.8, 1.8},
		{19.5, 14.2, 1.8},
	}
)

const boneStroke = 2.0

// Paw returns the discs that fill a paw under t
func Paw(t Transform) []Circle {
	var out []Circle
	for _, e := range pawEllipses {
		out = appendEllipse(out, t, e)
	}
	return out
}

// Bone returns the shaft and knobs of a bone under t
func Bone(t Transform) (Segment, []Circle) {
	x0, y0 := t.Apply(boneShaft[0], boneShaft[1])
	x1, y1 := t.Apply(boneShaft[2], boneShaft[3])
	shaft := Segment{X0: x0, Y0: y0, X1: x1, Y1: y1, Width: t.Length(boneStroke)}

	knobs := make([]Circle, 0, len(boneKnobs))
	for _, k := range boneKnobs {
		x, y := t.Apply(k.X, k.Y)
		knobs = append(knobs, Circle{X: x, Y: y, R: t.Length(k.R)})
	}
	return shaft, knobs
}

// appendEllipse covers e with circles of the minor radius stepped along the major axis
func appendEllipse(out []Circle, t Transform, e ellipse) []Circle {
	r := math.Min(e.rx, e.ry)
	span := math.Abs(e.ry - e.rx)
	steps := int(math.Ceil(span/(r/2))) + 1

	for i := 0; i < steps; i++ {
		off := 0.0
		if steps > 1 {
			off = -span + 2*span*float64(i)/float64(steps-1)
		}
		x, y := e.cx, e.cy
		if e.ry >= e.rx {
			y += off
		} else {
			x += off
		}
		px, py := t.Apply(x, y)
		out = append(out, Circle{X: px, Y: py, R: t.Length(r)})
	}
	return out
}
