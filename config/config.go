// Package config holds every user-facing setting, loaded from defaults, a
// YAML file, a named preset and finally command-line flags.
package config

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/log"

	"asciireel/convert"
	"asciireel/frame"
	"asciireel/ramp"
)

// Config holds all asciireel options
type Config struct {
	// Conversion
	Width         int     `yaml:"width"` // 0 = terminal width
	FPS           float64 `yaml:"fps"`
	Color         bool    `yaml:"color"`
	Invert        bool    `yaml:"invert"`
	Edge          bool    `yaml:"edge"`
	EdgeThreshold float64 `yaml:"edge_threshold"`
	Charset       string  `yaml:"charset"` // built-in name or custom ramp
	AspectRatio   float64 `yaml:"aspect_ratio"`
	Workers       int     `yaml:"workers"` // 0 = one per CPU
	CRTFilter     bool    `yaml:"crt_filter"`

	// Playback
	Speed     float64 `yaml:"speed"`
	Loop      bool    `yaml:"loop"`
	Progress  bool    `yaml:"progress"`
	Scheme    string  `yaml:"scheme"` // "", "crt" or "c64"
	Subtitles string  `yaml:"subtitles"`
	Audio     string  `yaml:"audio"`

	// Cache
	CacheDir     string `yaml:"cache_dir"` // empty = user cache dir
	NoCache      bool   `yaml:"no_cache"`
	RequireCache bool   `yaml:"require_cache"`

	// Tools
	FFmpeg  string `yaml:"ffmpeg"`
	FFprobe string `yaml:"ffprobe"`

	LogLevel string `yaml:"log_level"`

	Export ExportConfig `yaml:"export"`
	Serve  ServeConfig  `yaml:"serve"`
}

// ExportConfig holds video export settings
type ExportConfig struct {
	Codec    string  `yaml:"codec"` // h265 or prores422
	FontSize float64 `yaml:"font_size"`
}

// ServeConfig holds SSH server settings
type ServeConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	HostKey     string `yaml:"host_key"`
	MetricsAddr string `yaml:"metrics_addr"` // empty disables /metrics
}

// DefaultConfig returns the classic preset with no colour scheme.
func DefaultConfig() *Config {
	return &Config{
		Width:         160,
		FPS:           12,
		EdgeThreshold: 0.15,
		Charset:       ramp.DefaultName,
		AspectRatio:   2.0,
		Speed:         1.0,
		LogLevel:      "info",
		Export: ExportConfig{
			Codec:    "h265",
			FontSize: 20,
		},
		Serve: ServeConfig{
			Host:    "localhost",
			Port:    23234,
			HostKey: ".ssh/id_ed25519",
		},
	}
}

// Copy returns an independent copy of c.
func (c *Config) Copy() *Config {
	cp := *c
	return &cp
}

// Settings builds the conversion settings. Width must already be resolved.
func (c *Config) Settings() (convert.Settings, error) {
	r, err := ramp.Parse(c.Charset)
	if err != nil {
		return convert.Settings{}, err
	}
	s := convert.Settings{
		Width:         c.Width,
		AspectRatio:   c.AspectRatio,
		Ramp:          r,
		Invert:        c.Invert,
		Edge:          c.Edge,
		EdgeThreshold: c.EdgeThreshold,
		Color:         c.Color,
	}
	return s, s.Validate()
}

// ColorScheme returns the configured scheme, or nil for none.
func (c *Config) ColorScheme() *frame.Scheme {
	s, ok := frame.LookupScheme(c.Scheme)
	if !ok {
		return nil
	}
	return &s
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Preset bundles conversion settings with an optional colour scheme.
type Preset struct {
	Width     int
	FPS       float64
	Charset   string
	Color     bool
	Invert    bool
	Edge      bool
	Scheme    string
	CRTFilter bool
}

var presets = map[string]Preset{
	"classic": {Width: 160, FPS: 12, Charset: "classic"},
	"crt":     {Width: 80, FPS: 12, Charset: "classic", Color: true, Scheme: "crt", CRTFilter: true},
	"c64":     {Width: 40, FPS: 12, Charset: "petscii", Color: true, Scheme: "c64", CRTFilter: true},
	"sketch":  {Width: 160, FPS: 12, Charset: "classic", Invert: true, Edge: true},
	"minimal": {Width: 120, FPS: 10, Charset: "simple"},
}

// PresetNames lists the presets in alphabetical order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LookupPreset returns a preset by name.
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// ApplyPreset overwrites every field the named preset defines.
func (c *Config) ApplyPreset(name string) error {
	p, ok := presets[name]
	if !ok {
		return fmt.Errorf("%w: unknown preset %q (available: %v)", frame.ErrInvalidSettings, name, PresetNames())
	}
	c.Width = p.Width
	c.FPS = p.FPS
	c.Charset = p.Charset
	c.Color = p.Color
	c.Invert = p.Invert
	c.Edge = p.Edge
	c.Scheme = p.Scheme
	c.CRTFilter = p.CRTFilter
	return nil
}
