package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"

	"asciireel/frame"
)

// Codec selects the ffmpeg encoder for video export.
type Codec string

const (
	CodecH265   Codec = "h265"
	CodecProRes Codec = "prores422"
)

// ParseCodec accepts a codec name, case-insensitively.
func ParseCodec(s string) (Codec, error) {
	switch c := Codec(strings.ToLower(s)); c {
	case CodecH265, CodecProRes:
		return c, nil
	case "":
		return CodecH265, nil
	}
	return "", fmt.Errorf("%w: unknown codec %q (want h265 or prores422)", frame.ErrInvalidSettings, s)
}

func (c Codec) args() []string {
	if c == CodecProRes {
		return []string{"-c:v", "prores_ks", "-profile:v", "hq", "-pix_fmt", "yuv422p10le"}
	}
	return []string{"-c:v", "libx265", "-tag:v", "hvc1", "-pix_fmt", "yuv420p", "-crf", "18", "-preset", "medium"}
}

var errPipe = errors.New("writing to ffmpeg")

// Video renders frames through a Rasterizer and pipes raw RGBA to ffmpeg.
type Video struct {
	Output     string
	FPS        float64
	Codec      Codec
	FontSize   float64
	Scheme     *frame.Scheme
	FFmpegPath string
	Logger     *log.Logger
}

// Args returns the ffmpeg arguments for a w x h RGBA stream on stdin.
func (v *Video) Args(w, h int) []string {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "rawvideo", "-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", w, h),
		"-r", fmt.Sprintf("%g", v.FPS),
		"-i", "pipe:0",
	}
	args = append(args, v.Codec.args()...)
	return append(args, v.Output)
}

// Export encodes every frame in order.
func (v *Video) Export(ctx context.Context, frames Frames) error {
	logger := v.Logger
	if logger == nil {
		logger = log.Default()
	}
	if !(v.FPS > 0) {
		return fmt.Errorf("%w: fps must be positive, got %v", frame.ErrInvalidSettings, v.FPS)
	}
	if frames.Len() == 0 {
		return fmt.Errorf("%w: nothing to export", frame.ErrInvalidSettings)
	}
	size := v.FontSize
	if size == 0 {
		size = DefaultFontSize
	}
	r, err := NewRasterizer(size, v.Scheme)
	if err != nil {
		return err
	}
	first, err := frames.Frame(0)
	if err != nil {
		return err
	}
	w, h := r.Size(first.Rows, first.Cols)

	bin := v.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}
	if bin, err = exec.LookPath(bin); err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}

	args := v.Args(w, h)
	logger.Debug("starting ffmpeg", "args", strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting ffmpeg: %w", err)
	}

	werr := v.feed(stdin, r, frames, w, h, logger)
	stdin.Close()
	waitErr := cmd.Wait()
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case werr != nil && !errors.Is(werr, errPipe):
		return werr
	case waitErr != nil:
		return fmt.Errorf("ffmpeg failed: %w: %s", waitErr, strings.TrimSpace(stderr.String()))
	case werr != nil:
		return werr
	}
	logger.Info("video exported", "path", v.Output, "frames", frames.Len(), "size", fmt.Sprintf("%dx%d", w, h), "codec", v.Codec)
	return nil
}

func (v *Video) feed(w io.Writer, r *Rasterizer, frames Frames, width, height int, logger *log.Logger) error {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	n := frames.Len()
	for i := 0; i < n; i++ {
		f, err := frames.Frame(i)
		if err != nil {
			return err
		}
		if err := r.Draw(img, f); err != nil {
			return frame.AtIndex(i, err)
		}
		if _, err := w.Write(img.Pix); err != nil {
			return frame.AtIndex(i, fmt.Errorf("%w: %v", errPipe, err))
		}
		if (i+1)%100 == 0 {
			logger.Debug("rendered frames", "done", i+1, "total", n)
		}
	}
	return nil
}
