package shape

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformCentre(t *testing.T) {
	tr := Transform{CX: 100, CY: 50, Size: 48, Scale: 1, Rotation: 37}
	x, y := tr.Apply(12, 12)
	assert.InDelta(t, 100, x, 1e-9)
	assert.InDelta(t, 50, y, 1e-9)
}

func TestTransformRotatesClockwise(t *testing.T) {
	tr := Transform{Size: 24, Scale: 1, Rotation: 90}
	// A point right of centre ends up below it, screen y grows downward
	x, y := tr.Apply(18, 12)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 6, y, 1e-9)
}

func TestTransformScale(t *testing.T) {
	tr := Transform{Size: 48, Scale: 0.5}
	assert.InDelta(t, 3, tr.Length(3), 1e-9)
	tr.Scale = 0
	assert.Zero(t, tr.Length(3))
}

func TestPawStaysInsideCanvas(t *testing.T) {
	tr := Transform{CX: 0, CY: 0, Size: 24, Scale: 1}
	discs := Paw(tr)
	require.NotEmpty(t, discs)
	for _, c := range discs {
		assert.LessOrEqual(t, math.Abs(c.X)+c.R, 12.0)
		assert.LessOrEqual(t, math.Abs(c.Y)+c.R, 12.0)
	}
}

func TestPawCoversEveryEllipse(t *testing.T) {
	tr := Transform{Size: 24, Scale: 1}
	discs := Paw(tr)
	for _, e := range pawEllipses {
		// Both ends of the major axis lie inside some disc
		for _, sign := range []float64{-1, 1} {
			x, y := tr.Apply(e.cx, e.cy+sign*e.ry*0.9)
			covered := false
			for _, c := range discs {
				if math.Hypot(x-c.X, y-c.Y) <= c.R+1e-9 {
					covered = true
					break
				}
			}
			assert.True(t, covered, "ellipse at %.0f,%.0f", e.cx, e.cy)
		}
	}
}

func TestBoneGeometry(t *testing.T) {
	tr := Transform{CX: 50, CY: 50, Size: 48, Scale: 1}
	shaft, knobs := Bone(tr)
	assert.InDelta(t, 38, shaft.X0, 1e-9)
	assert.InDelta(t, 62, shaft.X1, 1e-9)
	assert.InDelta(t, 50, shaft.Y0, 1e-9)
	assert.InDelta(t, 4, shaft.Width, 1e-9)
	require.Len(t, knobs, 4)

	tr.Rotation = 90
	shaft, _ = Bone(tr)
	assert.InDelta(t, 50, shaft.X0, 1e-9)
	assert.InDelta(t, 38, shaft.Y0, 1e-9)
}
