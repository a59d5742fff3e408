package source

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"asciireel/frame"
)

// Extract dumps a video into numbered PNG frames that OpenPNGDir can read
// back later without ffmpeg.
type Extract struct {
	Input string
	Dir   string
	FPS   float64
	// Width scales frames down to this many pixels; zero keeps the source.
	Width int
	Gray  bool

	FFmpegPath string
	Logger     *log.Logger
}

// Pattern is the ffmpeg output pattern, out0001.png onwards.
func (e *Extract) Pattern() string {
	return filepath.Join(e.Dir, "out%04d.png")
}

// Args returns the ffmpeg arguments.
func (e *Extract) Args() []string {
	filters := []string{fmt.Sprintf("fps=%g", e.FPS)}
	if e.Width > 0 {
		filters = append(filters, fmt.Sprintf("scale='min(%d,iw)':-2:flags=lanczos", e.Width))
	}
	if e.Gray {
		filters = append(filters, "format=gray")
	}
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostdin",
		"-y",
		"-i", e.Input,
		"-vf", strings.Join(filters, ","),
		e.Pattern(),
	}
}

// Run extracts every frame and returns how many were written.
func (e *Extract) Run(ctx context.Context) (int, error) {
	if !(e.FPS > 0) {
		return 0, fmt.Errorf("%w: fps must be positive, got %v", frame.ErrInvalidSettings, e.FPS)
	}
	if _, err := os.Stat(e.Input); err != nil {
		return 0, fmt.Errorf("video file %s not found: %w", e.Input, err)
	}
	bin := e.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return 0, fmt.Errorf("ffmpeg is required but not found in PATH: %w", err)
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return 0, fmt.Errorf("error creating frames directory: %w", err)
	}

	logger := e.Logger
	if logger == nil {
		logger = log.Default()
	}
	stderr := &tail{max: 4096}
	cmd := exec.CommandContext(ctx, bin, e.Args()...)
	cmd.Stderr = stderr
	logger.Debug("running ffmpeg", "cmd", cmd.String())
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("error running ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	dir, err := OpenPNGDir(e.Dir, 0)
	if err != nil {
		return 0, err
	}
	logger.Info("frame extraction complete", "dir", e.Dir, "frames", dir.Len())
	return dir.Len(), nil
}
