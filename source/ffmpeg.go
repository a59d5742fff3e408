package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"asciireel/frame"
)

// CRTFilter sharpens and boosts contrast for the phosphor presets.
const CRTFilter = "unsharp=5:5:1.5:5:5:0.0"

// FFmpeg decodes a video file into raw RGB frames at a fixed rate by piping
// ffmpeg's rawvideo output.
type FFmpeg struct {
	Input string
	FPS   float64
	// Width is the decoded pixel width. Zero keeps the source width; larger
	// values are clamped to it.
	Width int
	// Filters are appended to the video filter chain.
	Filters []string

	FFmpegPath  string
	FFprobePath string
	Logger      *log.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stderr *tail
	reader *rawReader
	width  int
	height int
}

// OutputSize returns the decoded frame size for a srcW x srcH video scaled to
// width pixels. Both sides are even, as most ffmpeg pixel paths require.
func OutputSize(srcW, srcH, width int) (int, int) {
	w := srcW
	if width > 0 && width < srcW {
		w = width
	}
	w = max(2, w&^1)
	h := int(float64(srcH)*float64(w)/float64(srcW) + 0.5)
	h = max(2, h&^1)
	return w, h
}

// Args returns the ffmpeg arguments for a w x h output.
func (f *FFmpeg) Args(w, h int) []string {
	filters := []string{
		fmt.Sprintf("fps=%g", f.FPS),
		fmt.Sprintf("scale=%d:%d:flags=area", w, h),
	}
	filters = append(filters, f.Filters...)
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostdin",
		"-i", f.Input,
		"-vf", strings.Join(filters, ","),
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	}
}

// Open probes the input and starts the decoder.
func (f *FFmpeg) Open(ctx context.Context) error {
	if !(f.FPS > 0) {
		return fmt.Errorf("%w: fps must be positive, got %v", frame.ErrInvalidSettings, f.FPS)
	}
	probe, err := Probe(ctx, f.FFprobePath, f.Input)
	if err != nil {
		return err
	}
	video, err := probe.Video()
	if err != nil {
		return fmt.Errorf("%s: %w", f.Input, err)
	}
	f.width, f.height = OutputSize(video.Width, video.Height, f.Width)

	bin := f.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("ffmpeg is required but not found in PATH: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, f.Args(f.width, f.height)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	f.stderr = &tail{max: 4096}
	cmd.Stderr = f.stderr

	f.logger().Debug("starting ffmpeg", "cmd", cmd.String())
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("error running ffmpeg: %w", err)
	}

	f.mu.Lock()
	f.cmd = cmd
	f.reader = newRawReader(stdout, f.width, f.height)
	f.mu.Unlock()
	return nil
}

// Size returns the decoded frame size. Valid after Open.
func (f *FFmpeg) Size() (int, int) { return f.width, f.height }

// Next returns the next decoded frame, or io.EOF once ffmpeg exits cleanly.
func (f *FFmpeg) Next(ctx context.Context) (*frame.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.reader == nil {
		return nil, errors.New("ffmpeg source not opened")
	}
	raw, err := f.reader.Next()
	if errors.Is(err, io.EOF) {
		if werr := f.wait(); werr != nil {
			return nil, werr
		}
		return nil, io.EOF
	}
	return raw, err
}

func (f *FFmpeg) wait() error {
	f.mu.Lock()
	cmd := f.cmd
	f.cmd = nil
	f.mu.Unlock()
	if cmd == nil {
		return nil
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(f.stderr.String()))
	}
	return nil
}

// Close stops ffmpeg if it is still running.
func (f *FFmpeg) Close() error {
	f.mu.Lock()
	cmd := f.cmd
	f.cmd = nil
	f.mu.Unlock()
	if cmd == nil {
		return nil
	}
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	_ = cmd.Wait()
	return nil
}

func (f *FFmpeg) logger() *log.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return log.Default()
}

// rawReader cuts a packed rgb24 stream into frames.
type rawReader struct {
	r      *bufio.Reader
	width  int
	height int
	next   int
}

func newRawReader(r io.Reader, width, height int) *rawReader {
	return &rawReader{r: bufio.NewReaderSize(r, width*height*3), width: width, height: height}
}

func (rr *rawReader) Next() (*frame.RawFrame, error) {
	buf := make([]byte, rr.width*rr.height*3)
	_, err := io.ReadFull(rr.r, buf)
	switch {
	case errors.Is(err, io.EOF):
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return nil, frame.AtIndex(rr.next, fmt.Errorf("%w: truncated frame", frame.ErrInvalidFrame))
	case err != nil:
		return nil, frame.AtIndex(rr.next, err)
	}
	raw := &frame.RawFrame{Index: rr.next, Width: rr.width, Height: rr.height, Pix: buf}
	rr.next++
	return raw, nil
}

// tail keeps the last max bytes written to it.
type tail struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
