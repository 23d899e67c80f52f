package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/pawfield/field"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all pawfield configuration
type Config struct {
	Field    FieldConfig    `yaml:"field"`
	Terminal TerminalConfig `yaml:"terminal"`
	Server   ServerConfig   `yaml:"server"`
	Window   WindowConfig   `yaml:"window"`
	Audio    AudioConfig    `yaml:"audio"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// FieldConfig configures the icon generator
type FieldConfig struct {
	Density        int           `yaml:"density"`
	Speed          float64       `yaml:"speed"`
	IconSize       float64       `yaml:"icon_size"`
	MinDistance    float64       `yaml:"min_distance"`
	MaxAttempts    int           `yaml:"max_attempts"`
	MarginMin      float64       `yaml:"margin_min"` // percent
	MarginMax      float64       `yaml:"margin_max"` // percent
	DurationLow    time.Duration `yaml:"duration_low"`
	DurationRange  time.Duration `yaml:"duration_range"`
	DelayMax       time.Duration `yaml:"delay_max"`
	RegenMin       time.Duration `yaml:"regen_min"`
	RegenMax       time.Duration `yaml:"regen_max"`
	ResizeDebounce time.Duration `yaml:"resize_debounce"`
	Seed           uint64        `yaml:"seed"`
}

// TerminalConfig configures the tcell frontend
type TerminalConfig struct {
	CellWidthPx int    `yaml:"cell_width_px"` // logical pixels per column for breakpoint mapping
	FPS         int    `yaml:"fps"`
	ColorMode   string `yaml:"color_mode"` // auto, truecolor, 256
	ShowStatus  bool   `yaml:"show_status"`
}

// ServerConfig configures the websocket frontend
type ServerConfig struct {
	Addr          string        `yaml:"addr"`
	FrameInterval time.Duration `yaml:"frame_interval"`
	PingInterval  time.Duration `yaml:"ping_interval"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	MaxClients    int           `yaml:"max_clients"`
}

// WindowConfig configures the ebiten frontend
type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

// AudioConfig configures regeneration pops
type AudioConfig struct {
	Enabled bool          `yaml:"enabled"`
	Volume  float64       `yaml:"volume"` // linear gain, 0..1
	MinGap  time.Duration `yaml:"min_gap"`
}

// LoggingConfig configures the zap file sink
type LoggingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Level     string `yaml:"level"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// Default returns the stock configuration
func Default() *Config {
	p := field.DefaultParams()
	return &Config{
		Field: FieldConfig{
			Density:        p.Density,
			Speed:          p.Speed,
			IconSize:       p.IconSize,
			MinDistance:    p.MinDistance,
			MaxAttempts:    p.MaxAttempts,
			MarginMin:      p.Bounds.Min,
			MarginMax:      p.Bounds.Max,
			DurationLow:    p.DurationLow,
			DurationRange:  p.DurationRange,
			DelayMax:       p.DelayMax,
			RegenMin:       p.RegenMin,
			RegenMax:       p.RegenMax,
			ResizeDebounce: p.ResizeDebounce,
		},
		Terminal: TerminalConfig{
			CellWidthPx: 8,
			FPS:         30,
			ColorMode:   "auto",
		},
		Server: ServerConfig{
			Addr:          ":8080",
			FrameInterval: 100 * time.Millisecond,
			PingInterval:  20 * time.Second,
			WriteTimeout:  5 * time.Second,
			MaxClients:    64,
		},
		Window: WindowConfig{
			Width:  1024,
			Height: 640,
			Title:  "pawfield",
		},
		Audio: AudioConfig{
			Volume: 0.3,
			MinGap: 80 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Path:      "logs/pawfield.log",
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// Load reads path over the defaults; an empty path returns the defaults
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// FieldParams converts the field section to generator params
func (c *Config) FieldParams() field.Params {
	f := c.Field
	return field.Params{
		Density:        f.Density,
		Speed:          f.Speed,
		IconSize:       f.IconSize,
		MinDistance:    f.MinDistance,
		MaxAttempts:    f.MaxAttempts,
		Bounds:         field.Bounds{Min: f.MarginMin, Max: f.MarginMax},
		DurationLow:    f.DurationLow,
		DurationRange:  f.DurationRange,
		DelayMax:       f.DelayMax,
		RegenMin:       f.RegenMin,
		RegenMax:       f.RegenMax,
		ResizeDebounce: f.ResizeDebounce,
		Seed:           f.Seed,
	}
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.FieldParams().Validate(); err != nil {
		return fmt.Errorf("%w: field: %w", ErrInvalidConfig, err)
	}
	switch {
	case c.Terminal.CellWidthPx <= 0:
		return fmt.Errorf("%w: terminal.cell_width_px must be > 0", ErrInvalidConfig)
	case c.Terminal.FPS <= 0 || c.Terminal.FPS > 240:
		return fmt.Errorf("%w: terminal.fps %d out of range 1-240", ErrInvalidConfig, c.Terminal.FPS)
	case c.Server.FrameInterval <= 0:
		return fmt.Errorf("%w: server.frame_interval must be > 0", ErrInvalidConfig)
	case c.Server.MaxClients < 0:
		return fmt.Errorf("%w: server.max_clients must be >= 0", ErrInvalidConfig)
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Window.Width, c.Window.Height)
	case c.Audio.Volume < 0 || c.Audio.Volume > 1:
		return fmt.Errorf("%w: audio.volume %g out of range 0-1", ErrInvalidConfig, c.Audio.Volume)
	}
	switch c.Terminal.ColorMode {
	case "auto", "truecolor", "256":
	default:
		return fmt.Errorf("%w: terminal.color_mode %q", ErrInvalidConfig, c.Terminal.ColorMode)
	}
	return nil
}
