package keyframe

import (
	"image/color"

	"github.com/lixenwraith/pawfield/field"
)

var (
	PawColor  = color.RGBA{R: 0xf4, G: 0x72, B: 0xb6, A: 0xff}
	BoneColor = color.RGBA{R: 0xec, G: 0x48, B: 0x99, A: 0xff}

	// Background wash, top-left to bottom-right
	WashFrom = color.RGBA{R: 0xfc, G: 0xe7, B: 0xf3, A: 0x4d}
	WashTo   = color.RGBA{R: 0xfb, G: 0xcf, B: 0xe8, A: 0x33}
)

// ColorOf returns the base colour of a kind
func ColorOf(k field.Kind) color.RGBA {
	if k == field.KindBone {
		return BoneColor
	}
	return PawColor
}

// Fade scales c toward bg by opacity, for surfaces without alpha blending
func Fade(c, bg color.RGBA, opacity float64) color.RGBA {
	mix := func(a, b uint8) uint8 {
		return uint8(float64(b) + (float64(a)-float64(b))*opacity + 0.5)
	}
	return color.RGBA{R: mix(c.R, bg.R), G: mix(c.G, bg.G), B: mix(c.B, bg.B), A: 0xff}
}

// Wash flattens the background gradient over bg into one colour, the midpoint of the wash
func Wash(bg color.RGBA) color.RGBA {
	from := Fade(WashFrom, bg, float64(WashFrom.A)/0xff)
	to := Fade(WashTo, bg, float64(WashTo.A)/0xff)
	mid := func(a, b uint8) uint8 { return uint8((int(a) + int(b) + 1) / 2) }
	return color.RGBA{R: mid(from.R, to.R), G: mid(from.G, to.G), B: mid(from.B, to.B), A: 0xff}
}
