package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/term"

	"asciireel/cache"
	"asciireel/config"
	"asciireel/dispatch"
	"asciireel/metrics"
	"asciireel/pipeline"
	"asciireel/source"
	"asciireel/subtitle"
)

const (
	// fallbackWidth is used when stdout is not a terminal.
	fallbackWidth = 80
	// decodeScale is the decoded pixel width per output column. The
	// converter averages blocks, so a few pixels per cell is plenty.
	decodeScale = 4
)

// terminalWidth reports the width of fd, or fallbackWidth.
func terminalWidth(fd int) int {
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return fallbackWidth
	}
	return w
}

// resolveWidth replaces a zero width with the terminal's.
func resolveWidth(cfg *config.Config) {
	if cfg.Width == 0 {
		cfg.Width = terminalWidth(int(os.Stdout.Fd()))
		logger.Debug("using terminal width", "width", cfg.Width)
	}
}

// sourceID identifies input for the cache. The CRT filter changes the
// decoded pixels, so it is part of the identity.
func sourceID(cfg *config.Config, input string) (cache.SourceID, error) {
	id, err := cache.Identify(input, cfg.FPS)
	if err != nil {
		return cache.SourceID{}, fmt.Errorf("cannot read input: %w", err)
	}
	if cfg.CRTFilter {
		id.Filter = source.CRTFilter
	}
	return id, nil
}

// opener picks the frame source for input: a directory of numbered PNGs or
// anything ffmpeg can decode.
func opener(cfg *config.Config, input string) (pipeline.Opener, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("cannot read input: %w", err)
	}
	maxWidth := cfg.Width * decodeScale

	if info.IsDir() {
		return func(context.Context) (dispatch.Source, error) {
			dir, err := source.OpenPNGDir(input, maxWidth)
			if err != nil {
				return nil, err
			}
			return dir, nil
		}, nil
	}
	return func(ctx context.Context) (dispatch.Source, error) {
		f := &source.FFmpeg{
			Input:       input,
			FPS:         cfg.FPS,
			Width:       maxWidth,
			FFmpegPath:  cfg.FFmpeg,
			FFprobePath: cfg.FFprobe,
			Logger:      logger,
		}
		if cfg.CRTFilter {
			f.Filters = []string{source.CRTFilter}
		}
		if err := f.Open(ctx); err != nil {
			return nil, err
		}
		return f, nil
	}, nil
}

// convertInput runs the conversion pipeline for input under cfg.
func convertInput(ctx context.Context, cfg *config.Config, input string, m *metrics.Metrics) (*pipeline.Result, error) {
	resolveWidth(cfg)
	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}
	id, err := sourceID(cfg, input)
	if err != nil {
		return nil, err
	}
	open, err := opener(cfg, input)
	if err != nil {
		return nil, err
	}

	res, err := pipeline.Run(ctx, id, open, pipeline.Options{
		Settings:     settings,
		FPS:          cfg.FPS,
		Workers:      cfg.Workers,
		CacheRoot:    cfg.CacheDir,
		NoCache:      cfg.NoCache,
		RequireCache: cfg.RequireCache,
		Metrics:      m,
		Logger:       logger,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, errInterrupted
		}
		return nil, err
	}
	return res, nil
}

// release drops the result, logging rather than failing on cleanup errors.
func release(res *pipeline.Result) {
	if err := res.Release(); err != nil {
		logger.Warn("failed to release frames", "err", err)
	}
}

// loadSubtitles parses path into a track; an empty path means none.
func loadSubtitles(path string) (*subtitle.Track, error) {
	if path == "" {
		return nil, nil
	}
	cues, err := subtitle.ParseFile(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded subtitles", "path", path, "cues", len(cues))
	return subtitle.NewTrack(cues), nil
}
