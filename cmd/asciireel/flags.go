package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"asciireel/config"
)

// addConversionFlags registers the options that shape converted frames.
// Defaults shown in help come from config.DefaultConfig; a flag only takes
// effect when it is set explicitly.
func addConversionFlags(fs *pflag.FlagSet) {
	def := config.DefaultConfig()
	fs.IntP("width", "w", def.Width, "Frame width in characters (0 = terminal width)")
	fs.Float64("fps", def.FPS, "Extraction frame rate")
	fs.Bool("color", def.Color, "Keep per-character colour")
	fs.Bool("invert", def.Invert, "Invert brightness")
	fs.Bool("edge", def.Edge, "Draw Sobel edges instead of brightness")
	fs.Float64("edge-threshold", def.EdgeThreshold, "Edge magnitude threshold in [0, 1]")
	fs.String("charset", def.Charset, "Character ramp: classic, blocks, braille, dense, simple, petscii or a custom ramp")
	fs.Float64("aspect-ratio", def.AspectRatio, "Character cell height/width ratio")
	fs.Int("workers", def.Workers, "Conversion workers (0 = one per CPU)")
	fs.Bool("crt-filter", def.CRTFilter, "Apply the CRT look filter during extraction")
	fs.String("scheme", def.Scheme, "Colour scheme: crt or c64")
	fs.String("cache-dir", def.CacheDir, "Frame cache root (default: user cache dir)")
	fs.Bool("no-cache", def.NoCache, "Discard the cache entry when done")
	fs.Bool("require-cache", def.RequireCache, "Fail instead of falling back to memory when the cache is unusable")
	fs.String("ffmpeg", def.FFmpeg, "ffmpeg binary (default: from PATH)")
	fs.String("ffprobe", def.FFprobe, "ffprobe binary (default: from PATH)")
}

// addPlaybackFlags registers the options of a playback session.
func addPlaybackFlags(fs *pflag.FlagSet) {
	def := config.DefaultConfig()
	fs.Float64("speed", def.Speed, "Playback speed multiplier")
	fs.Bool("loop", def.Loop, "Loop until interrupted")
	fs.Bool("progress", def.Progress, "Show a progress bar")
	fs.String("subtitles", def.Subtitles, "SRT subtitle file")
}

// applyFlags copies every explicitly set flag onto cfg.
func applyFlags(fs *pflag.FlagSet, cfg *config.Config) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		err = applyFlag(fs, f.Name, cfg)
	})
	return err
}

func applyFlag(fs *pflag.FlagSet, name string, cfg *config.Config) (err error) {
	switch name {
	case "width":
		cfg.Width, err = fs.GetInt(name)
	case "fps":
		cfg.FPS, err = fs.GetFloat64(name)
	case "color":
		cfg.Color, err = fs.GetBool(name)
	case "invert":
		cfg.Invert, err = fs.GetBool(name)
	case "edge":
		cfg.Edge, err = fs.GetBool(name)
	case "edge-threshold":
		cfg.EdgeThreshold, err = fs.GetFloat64(name)
	case "charset":
		cfg.Charset, err = fs.GetString(name)
	case "aspect-ratio":
		cfg.AspectRatio, err = fs.GetFloat64(name)
	case "workers":
		cfg.Workers, err = fs.GetInt(name)
	case "crt-filter":
		cfg.CRTFilter, err = fs.GetBool(name)
	case "scheme":
		cfg.Scheme, err = fs.GetString(name)
	case "cache-dir":
		cfg.CacheDir, err = fs.GetString(name)
	case "no-cache":
		cfg.NoCache, err = fs.GetBool(name)
	case "require-cache":
		cfg.RequireCache, err = fs.GetBool(name)
	case "ffmpeg":
		cfg.FFmpeg, err = fs.GetString(name)
	case "ffprobe":
		cfg.FFprobe, err = fs.GetString(name)
	case "speed":
		cfg.Speed, err = fs.GetFloat64(name)
	case "loop":
		cfg.Loop, err = fs.GetBool(name)
	case "progress":
		cfg.Progress, err = fs.GetBool(name)
	case "subtitles":
		cfg.Subtitles, err = fs.GetString(name)
	case "audio":
		cfg.Audio, err = fs.GetString(name)
	case "codec":
		cfg.Export.Codec, err = fs.GetString(name)
	case "font-size":
		cfg.Export.FontSize, err = fs.GetFloat64(name)
	case "host":
		cfg.Serve.Host, err = fs.GetString(name)
	case "port":
		cfg.Serve.Port, err = fs.GetInt(name)
	case "host-key":
		cfg.Serve.HostKey, err = fs.GetString(name)
	case "metrics-addr":
		cfg.Serve.MetricsAddr, err = fs.GetString(name)
	}
	if err != nil {
		return fmt.Errorf("flag --%s: %w", name, err)
	}
	return nil
}

// loadConfig resolves the effective configuration: defaults, then the
// config file, then the preset, then explicit flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	fs := cmd.Flags()
	path, _ := fs.GetString("config")
	cfg, found, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if preset, _ := fs.GetString("preset"); preset != "" {
		if err := cfg.ApplyPreset(preset); err != nil {
			return nil, err
		}
	}
	if err := applyFlags(fs, cfg); err != nil {
		return nil, err
	}
	if verbose, _ := fs.GetBool("verbose"); verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.Level())
	if found != "" {
		logger.Debug("loaded config", "path", found)
	}
	return cfg, nil
}
