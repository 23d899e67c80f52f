package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lixenwraith/pawfield/config"
	"github.com/lixenwraith/pawfield/core"
	"github.com/lixenwraith/pawfield/logging"
	"github.com/lixenwraith/pawfield/status"
)

// options holds the persistent flags; zero values mean "use the config file"
type options struct {
	configPath string
	density    int
	speed      float64
	iconSize   float64
	seed       uint64
	debug      bool
	addr       string
}

// runtime is what every frontend needs once flags and config are resolved
type runtime struct {
	cfg      *config.Config
	log      *zap.Logger
	reg      *status.Registry
	closeLog func() error
}

func (rt *runtime) Close() {
	_ = rt.closeLog()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:   "pawfield",
		Short: "Decorative field of popping paws and bones",
		Long: `pawfield fills a surface with paw and bone icons that pop in and out,
each slot regenerating on its own timer while keeping clear of its neighbours.

Run without a subcommand to draw in the terminal.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTerm(cmd, o)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&o.configPath, "config", "c", "", "YAML config file")
	pf.IntVar(&o.density, "density", 0, "icon count before responsive scaling")
	pf.Float64Var(&o.speed, "speed", 0, "animation speed multiplier")
	pf.Float64Var(&o.iconSize, "icon-size", 0, "base icon size in px")
	pf.Uint64Var(&o.seed, "seed", 0, "random seed, 0 seeds from the clock")
	pf.BoolVar(&o.debug, "debug", false, "enable debug logging to the configured log file")

	termCmd := &cobra.Command{
		Use:   "term",
		Short: "Draw the field in the terminal",
		Long: `Draws the field with tcell. Keys:
  q, Esc, Ctrl-C  quit
  s               toggle the status line
  p               toggle audio pops`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTerm(cmd, o)
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the field to browsers over a websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, o)
		},
	}
	serveCmd.Flags().StringVar(&o.addr, "addr", "", "listen address, overrides server.addr")

	windowCmd := &cobra.Command{
		Use:   "window",
		Short: "Draw the field in a desktop window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWindow(cmd, o)
		},
	}

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "Write the effective configuration as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, o)
			if err != nil {
				return err
			}
			if err := cfg.Save(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}

	root.AddCommand(termCmd, serveCmd, windowCmd, configCmd)
	return root
}

// changed reports whether the user set flag name on the command line
func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flag(name)
	return f != nil && f.Changed
}

// resolveConfig loads the config file and applies explicit flags over it
func resolveConfig(cmd *cobra.Command, o *options) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	if changed(cmd, "density") {
		cfg.Field.Density = o.density
	}
	if changed(cmd, "speed") {
		cfg.Field.Speed = o.speed
	}
	if changed(cmd, "icon-size") {
		cfg.Field.IconSize = o.iconSize
	}
	if changed(cmd, "seed") {
		cfg.Field.Seed = o.seed
	}
	if changed(cmd, "addr") {
		cfg.Server.Addr = o.addr
	}
	if o.debug {
		cfg.Logging.Enabled = true
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup resolves config and opens the logger; callers must Close the runtime
func setup(cmd *cobra.Command, o *options) (*runtime, error) {
	cfg, err := resolveConfig(cmd, o)
	if err != nil {
		return nil, err
	}

	log, closeLog, err := logging.Setup(cfg.Logging)
	if err != nil {
		return nil, err
	}
	core.SetCrashLogger(log)

	log.Info("pawfield starting",
		zap.String("command", cmd.Name()),
		zap.Int("density", cfg.Field.Density),
		zap.Uint64("seed", cfg.Field.Seed))

	return &runtime{cfg: cfg, log: log, reg: status.NewRegistry(), closeLog: closeLog}, nil
}
