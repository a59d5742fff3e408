// Package export writes converted frame sequences to formats that play
// back without asciireel: a self-contained bash script and a video file.
package export

import (
	"bufio"
	_ "embed"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"

	"asciireel/frame"
)

// FrameSeparator precedes every encoded frame line in an exported script.
const FrameSeparator = "---FRAME---"

//go:embed player.sh
var playerSource string

var playerTemplate = template.Must(template.New("player").Parse(playerSource))

// Frames is an ordered, random-access frame sequence.
type Frames interface {
	Len() int
	Frame(i int) (*frame.AsciiFrame, error)
}

// ScriptOptions control the player header of an exported script.
type ScriptOptions struct {
	FPS float64
	// CRT turns the scheme colours on by default; --crt enables them at
	// play time either way.
	CRT    bool
	Scheme *frame.Scheme
	Logger *log.Logger
}

type playerHeader struct {
	FPS        string
	CRT        int
	Frames     int
	Tint       string
	Background string
}

func escape(sgr string, c frame.RGB) string {
	return fmt.Sprintf(`\033[%s;2;%d;%d;%dm`, sgr, c.R, c.G, c.B)
}

// WriteScript writes the player header followed by one gzip+base64 line per
// frame. Each line decodes to the frame's Text() blob.
func WriteScript(w io.Writer, frames Frames, opts ScriptOptions) error {
	if !(opts.FPS > 0) {
		return fmt.Errorf("%w: fps must be positive, got %v", frame.ErrInvalidSettings, opts.FPS)
	}
	scheme := opts.Scheme
	if scheme == nil {
		scheme = &frame.SchemeCRT
	}
	hdr := playerHeader{
		FPS:        fmt.Sprintf("%g", opts.FPS),
		Frames:     frames.Len(),
		Tint:       escape("38", scheme.Tint),
		Background: escape("48", scheme.Background),
	}
	if opts.CRT {
		hdr.CRT = 1
	}

	bw := bufio.NewWriter(w)
	if err := playerTemplate.Execute(bw, hdr); err != nil {
		return fmt.Errorf("writing player header: %w", err)
	}
	for i := 0; i < frames.Len(); i++ {
		f, err := frames.Frame(i)
		if err != nil {
			return err
		}
		if err := writeFrame(bw, f); err != nil {
			return frame.AtIndex(i, err)
		}
	}
	return bw.Flush()
}

func writeFrame(w *bufio.Writer, f *frame.AsciiFrame) error {
	if _, err := w.WriteString(FrameSeparator + "\n"); err != nil {
		return err
	}
	enc := base64.NewEncoder(base64.StdEncoding, w)
	zw := gzip.NewWriter(enc)
	if _, err := io.WriteString(zw, f.Text()); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return w.WriteByte('\n')
}

// ExportScript writes an executable player script to path.
func ExportScript(path string, frames Frames, opts ScriptOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("creating script: %w", err)
	}
	if err := WriteScript(out, frames, opts); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing script: %w", err)
	}
	// O_CREATE honours the umask; the player must be executable.
	if err := os.Chmod(path, 0o755); err != nil {
		return fmt.Errorf("chmod script: %w", err)
	}

	if fi, err := os.Stat(path); err == nil {
		logger.Info("script exported", "path", path, "frames", frames.Len(),
			"fps", opts.FPS, "size_mb", fmt.Sprintf("%.2f", float64(fi.Size())/(1<<20)))
	}
	return nil
}
