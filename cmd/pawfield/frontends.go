package main

import (
	"fmt"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lixenwraith/pawfield/audio"
	"github.com/lixenwraith/pawfield/clock"
	"github.com/lixenwraith/pawfield/core"
	"github.com/lixenwraith/pawfield/field"
	"github.com/lixenwraith/pawfield/server"
	"github.com/lixenwraith/pawfield/terminal"
	"github.com/lixenwraith/pawfield/viewport"
	"github.com/lixenwraith/pawfield/window"
)

// openSound returns nil when the device cannot be opened; audio is never fatal
func openSound(rt *runtime, clk clock.Clock) *audio.SoundManager {
	sm := audio.NewSoundManager(rt.cfg.Audio, clk)
	if err := sm.Initialize(); err != nil {
		rt.log.Warn("audio unavailable, continuing without sound", zap.Error(err))
		return nil
	}
	return sm
}

func newField(rt *runtime, clk clock.Clock, sig *viewport.Signal, sound *audio.SoundManager) (*field.Field, error) {
	opts := []field.Option{field.WithLogger(rt.log), field.WithRegistry(rt.reg)}
	if sound != nil {
		opts = append(opts, field.WithObserver(sound.Observe))
	}
	return field.New(rt.cfg.FieldParams(), clk, sig, opts...)
}

func runTerm(cmd *cobra.Command, o *options) error {
	rt, err := setup(cmd, o)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.cfg.Terminal.ColorMode == "256" {
		os.Setenv("TCELL_TRUECOLOR", "disable")
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	core.SetCrashHandler(screen.Fini)
	defer screen.Fini()

	clk := clock.NewReal()
	sound := openSound(rt, clk)
	var toggler terminal.Toggler
	if sound != nil {
		defer sound.Close()
		toggler = sound
	}

	sig := viewport.NewSignal()
	f, err := newField(rt, clk, sig, sound)
	if err != nil {
		return err
	}

	app := terminal.NewApp(screen, f, sig, rt.cfg.Terminal, clk, rt.reg, toggler, rt.log)
	return app.Run(cmd.Context())
}

func runServe(cmd *cobra.Command, o *options) error {
	rt, err := setup(cmd, o)
	if err != nil {
		return err
	}
	defer rt.Close()

	clk := clock.NewReal()
	opts := []server.Option{
		server.WithClock(clk),
		server.WithRegistry(rt.reg),
		server.WithLogger(rt.log),
	}
	// Host-side pops only when asked for; a headless server usually has no audio device
	if rt.cfg.Audio.Enabled {
		if sound := openSound(rt, clk); sound != nil {
			defer sound.Close()
			opts = append(opts, server.WithObserver(sound.Observe))
		}
	}
	srv := server.New(rt.cfg.Server, rt.cfg.FieldParams(), opts...)

	fmt.Fprintf(cmd.OutOrStdout(), "serving on %s\n", rt.cfg.Server.Addr)
	return srv.ListenAndServe(cmd.Context())
}

func runWindow(cmd *cobra.Command, o *options) error {
	rt, err := setup(cmd, o)
	if err != nil {
		return err
	}
	defer rt.Close()

	clk := clock.NewReal()
	sound := openSound(rt, clk)
	if sound != nil {
		defer sound.Close()
	}

	sig := viewport.NewSignal()
	f, err := newField(rt, clk, sig, sound)
	if err != nil {
		return err
	}
	return window.Run(rt.cfg.Window, f, sig, rt.reg, rt.log)
}
