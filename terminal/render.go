package terminal

import (
	"image/color"
	"math"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/pawfield/field"
	"github.com/lixenwraith/pawfield/keyframe"
)

// Glyph runes
const (
	RunePaw    = '❀'
	RuneSpeck  = '·'
	minScale   = 0.15 // below this a glyph is not drawn
	speckScale = 0.5  // below this only a speck is drawn
)

// boneRunes indexed by rotation octant pair, clockwise from horizontal
var boneRunes = [4]rune{'━', '╲', '┃', '╱'}

var background = color.RGBA{A: 0xff}

// BoneRune picks the line glyph closest to rotation (degrees, clockwise)
func BoneRune(rotation float64) rune {
	r := math.Mod(rotation, 180)
	if r < 0 {
		r += 180
	}
	idx := int((r+22.5)/45) % 4
	return boneRunes[idx]
}

// CellOf maps a percent position onto a w x h grid
func CellOf(x, y float64, w, h int) (int, int) {
	cx := int(x / 100 * float64(w))
	cy := int(y / 100 * float64(h))
	return min(max(cx, 0), w-1), min(max(cy, 0), h-1)
}

// runeFor returns the rune for g under envelope e, ok is false when nothing is drawn
func runeFor(g field.Glyph, e keyframe.Envelope) (rune, bool) {
	switch {
	case e.Scale < minScale || e.Opacity <= 0:
		return 0, false
	case e.Scale < speckScale:
		return RuneSpeck, true
	case g.Kind == field.KindBone:
		return BoneRune(e.Rotation), true
	default:
		return RunePaw, true
	}
}

// styleFor shades the kind colour by opacity; large icons are bold
func styleFor(g field.Glyph, e keyframe.Envelope, iconSize float64) tcell.Style {
	c := keyframe.Fade(keyframe.ColorOf(g.Kind), background, math.Min(1, e.Opacity*1.25))
	style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
	if g.Size*e.Scale >= iconSize*1.6 {
		style = style.Bold(true)
	}
	return style
}

// DrawFrame paints every visible glyph of fr at now, reserving the bottom row when statusRows is 1
// Returns the number of glyphs drawn
func DrawFrame(s tcell.Screen, fr field.Frame, now time.Time, iconSize float64, statusRows int) int {
	w, h := s.Size()
	h -= statusRows
	if w <= 0 || h <= 0 {
		return 0
	}

	drawn := 0
	for _, g := range fr.Glyphs {
		e := keyframe.At(g, now)
		r, ok := runeFor(g, e)
		if !ok {
			continue
		}
		x, y := CellOf(g.X, g.Y, w, h)
		s.SetContent(x, y, r, nil, styleFor(g, e, iconSize))
		drawn++
	}
	return drawn
}

// DrawStatus writes text on the last row
func DrawStatus(s tcell.Screen, text string) {
	w, h := s.Size()
	if h <= 0 {
		return
	}
	style := tcell.StyleDefault.Foreground(tcell.ColorGray)
	x := 0
	for _, r := range text {
		if x >= w {
			break
		}
		s.SetContent(x, h-1, r, nil, style)
		x++
	}
}
