package field

import "time"

// Glyph is one render-surface tuple
// Durations are in seconds so the payload maps directly onto CSS animation properties
type Glyph struct {
	Slot        int         `json:"slot"`
	Kind        Kind        `json:"kind"`
	X           float64     `json:"x"`
	Y           float64     `json:"y"`
	Size        float64     `json:"size"`
	Duration    float64     `json:"duration"`
	Delay       float64     `json:"delay"`
	Orientation Orientation `json:"orientation"`
	Generation  uint64      `json:"generation"`
	Born        time.Time   `json:"-"`
}

// Frame is the full set of glyphs at one store version
type Frame struct {
	Version uint64  `json:"version"`
	Density int     `json:"density"`
	Glyphs  []Glyph `json:"icons"`
}

// GlyphOf converts an icon to its render tuple
func GlyphOf(ic Icon) Glyph {
	return Glyph{
		Slot:        ic.Slot,
		Kind:        ic.Kind,
		X:           ic.Position.X,
		Y:           ic.Position.Y,
		Size:        ic.Size,
		Duration:    ic.Duration.Seconds(),
		Delay:       ic.Delay.Seconds(),
		Orientation: ic.Orientation,
		Generation:  ic.Generation,
		Born:        ic.Born,
	}
}

// FrameOf builds a frame from a pool snapshot
func FrameOf(p Pool, version uint64) Frame {
	glyphs := make([]Glyph, p.Len())
	for i := range glyphs {
		glyphs[i] = GlyphOf(p.At(i))
	}
	return Frame{Version: version, Density: p.Len(), Glyphs: glyphs}
}
