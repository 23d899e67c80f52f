// Package window renders a field in a desktop window through ebiten
package window

import (
	"errors"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"go.uber.org/zap"

	"github.com/lixenwraith/pawfield/clock"
	"github.com/lixenwraith/pawfield/config"
	"github.com/lixenwraith/pawfield/field"
	"github.com/lixenwraith/pawfield/keyframe"
	"github.com/lixenwraith/pawfield/status"
	"github.com/lixenwraith/pawfield/viewport"
	"github.com/lixenwraith/pawfield/window/shape"
)

var background = keyframe.Wash(color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})

// Game implements ebiten.Game over a mounted field
type Game struct {
	field  *field.Field
	signal *viewport.Signal
	clock  clock.Clock
	reg    *status.Registry
	log    *zap.Logger

	width, height int
	showStatus    bool
}

// NewGame binds a field to its viewport signal; reg and log may be nil
func NewGame(f *field.Field, sig *viewport.Signal, clk clock.Clock, reg *status.Registry, log *zap.Logger) *Game {
	if clk == nil {
		clk = clock.NewReal()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Game{field: f, signal: sig, clock: clk, reg: reg, log: log}
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyQ) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) && g.reg != nil {
		g.showStatus = !g.showStatus
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(background)

	now := g.clock.Now()
	w, h := float64(g.width), float64(g.height)
	for _, gl := range g.field.Snapshot().Glyphs {
		e := keyframe.At(gl, now)
		if e.Scale <= 0 || e.Opacity <= 0 {
			continue
		}
		// Positions anchor the top-left corner of the icon box
		t := shape.Transform{
			CX:       gl.X/100*w + gl.Size/2,
			CY:       gl.Y/100*h + gl.Size/2,
			Size:     gl.Size,
			Scale:    e.Scale,
			Rotation: e.Rotation,
		}
		drawGlyph(screen, gl.Kind, t, tint(keyframe.ColorOf(gl.Kind), e.Opacity))
	}

	if g.showStatus {
		ebitenutil.DebugPrintAt(screen, g.reg.Line(), 8, g.height-20)
	}
}

// Layout follows the window so percent positions track its size
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.width {
		g.log.Debug("window resized", zap.Int("width", outsideWidth), zap.Int("height", outsideHeight))
		g.signal.Set(outsideWidth)
	}
	g.width, g.height = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}

func drawGlyph(dst *ebiten.Image, k field.Kind, t shape.Transform, c color.Color) {
	if k == field.KindBone {
		shaft, knobs := shape.Bone(t)
		vector.StrokeLine(dst, float32(shaft.X0), float32(shaft.Y0), float32(shaft.X1), float32(shaft.Y1),
			float32(shaft.Width), c, true)
		for _, kn := range knobs {
			vector.DrawFilledCircle(dst, float32(kn.X), float32(kn.Y), float32(kn.R), c, true)
		}
		return
	}
	for _, d := range shape.Paw(t) {
		vector.DrawFilledCircle(dst, float32(d.X), float32(d.Y), float32(d.R), c, true)
	}
}

// tint applies opacity as straight alpha
func tint(c color.RGBA, opacity float64) color.NRGBA {
	a := min(max(opacity, 0), 1)
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(a*255 + 0.5)}
}

// Run opens the window and blocks until it is closed; the field is mounted for the duration
func Run(cfg config.WindowConfig, f *field.Field, sig *viewport.Signal, reg *status.Registry, log *zap.Logger) error {
	sig.Set(cfg.Width)
	if err := f.Mount(); err != nil {
		return err
	}
	defer f.Unmount()

	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	g := NewGame(f, sig, nil, reg, log)
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}
