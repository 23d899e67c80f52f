package terminal

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/lixenwraith/pawfield/clock"
	"github.com/lixenwraith/pawfield/config"
	"github.com/lixenwraith/pawfield/core"
	"github.com/lixenwraith/pawfield/field"
	"github.com/lixenwraith/pawfield/status"
	"github.com/lixenwraith/pawfield/viewport"
)

// Toggler flips a feature and reports its new state
type Toggler interface {
	Toggle() bool
}

// App drives a field on a tcell screen
type App struct {
	screen   tcell.Screen
	field    *field.Field
	signal   *viewport.Signal
	cfg      config.TerminalConfig
	iconSize float64
	clock    clock.Clock
	reg      *status.Registry
	sound    Toggler
	log      *zap.Logger

	showStatus bool
	statFPS    *status.Gauge
}

// NewApp wires a screen to a field; sound may be nil
func NewApp(screen tcell.Screen, f *field.Field, sig *viewport.Signal, cfg config.TerminalConfig,
	clk clock.Clock, reg *status.Registry, sound Toggler, log *zap.Logger) *App {
	if clk == nil {
		clk = clock.NewReal()
	}
	if reg == nil {
		reg = status.NewRegistry()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &App{
		screen:     screen,
		field:      f,
		signal:     sig,
		cfg:        cfg,
		iconSize:   f.Params().IconSize,
		clock:      clk,
		reg:        reg,
		sound:      sound,
		log:        log,
		showStatus: cfg.ShowStatus,
		statFPS:    reg.Floats.Get(status.KeyFrameRate),
	}
}

// PublishSize pushes the current screen width to the viewport signal
func (a *App) PublishSize() {
	w, _ := a.screen.Size()
	a.signal.Set(w * a.cfg.CellWidthPx)
}

// HandleEvent applies one input event, returning false when the app should exit
func (a *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case 's':
				a.showStatus = !a.showStatus
			case 'p':
				if a.sound != nil {
					on := a.sound.Toggle()
					a.log.Info("audio toggled", zap.Bool("enabled", on))
				}
			}
		}

	case *tcell.EventResize:
		a.screen.Sync()
		w, h := ev.Size()
		a.log.Debug("terminal resized", zap.Int("cols", w), zap.Int("rows", h))
		a.signal.Set(w * a.cfg.CellWidthPx)
	}
	return true
}

// Draw renders one frame at now
func (a *App) Draw(now time.Time) int {
	a.screen.Clear()
	rows := 0
	if a.showStatus {
		rows = 1
	}
	drawn := DrawFrame(a.screen, a.field.Snapshot(), now, a.iconSize, rows)
	if a.showStatus {
		DrawStatus(a.screen, a.reg.Line())
	}
	a.screen.Show()
	return drawn
}

// Run mounts the field and loops until ctx ends or the user quits; the field is unmounted on return
func (a *App) Run(ctx context.Context) error {
	a.PublishSize()
	if err := a.field.Mount(); err != nil {
		return err
	}
	defer a.field.Unmount()

	events := make(chan tcell.Event, 64)
	quit := make(chan struct{})
	defer close(quit)

	// Input polling uses its own goroutine; PollEvent returns nil once the screen is finalized
	core.Go(func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	})

	interval := time.Second / time.Duration(a.cfg.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	frames := 0
	window := a.clock.Now()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-events:
			if !a.HandleEvent(ev) {
				return nil
			}

		case <-ticker.C:
			now := a.clock.Now()
			a.Draw(now)

			frames++
			if elapsed := now.Sub(window); elapsed >= time.Second {
				a.statFPS.Set(float64(frames) / elapsed.Seconds())
				frames = 0
				window = now
			}
		}
	}
}
