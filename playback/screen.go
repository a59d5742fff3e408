package playback

import (
	"bufio"
	"io"

	"github.com/muesli/termenv"

	"asciireel/frame"
)

// Screen draws scenes in place on a terminal. Begin hides the cursor and
// clears the screen; End restores the cursor and default attributes.
type Screen struct {
	w      *bufio.Writer
	out    *termenv.Output
	layout Layout
	begun  bool
}

// NewScreen returns a Screen writing to w. The colour profile is detected
// from w and the environment unless overridden with termenv.WithProfile.
func NewScreen(w io.Writer, scheme *frame.Scheme, opts ...termenv.OutputOption) *Screen {
	bw := bufio.NewWriterSize(w, 64*1024)
	out := termenv.NewOutput(bw, opts...)
	return &Screen{
		w:      bw,
		out:    out,
		layout: Layout{Profile: out.Profile, Scheme: scheme},
	}
}

// Layout returns the layout the screen renders with.
func (s *Screen) Layout() Layout { return s.layout }

func (s *Screen) Begin() error {
	s.begun = true
	s.out.HideCursor()
	if s.layout.Scheme != nil {
		if bg := s.layout.Profile.Color(s.layout.Scheme.Background.Hex()); bg != nil {
			if seq := bg.Sequence(true); seq != "" {
				s.out.WriteString(termenv.CSI + seq + "m")
			}
		}
	}
	s.out.ClearScreen()
	return s.w.Flush()
}

func (s *Screen) Render(sc Scene) error {
	s.out.MoveCursor(1, 1)
	for i, line := range s.layout.Lines(sc) {
		if i > 0 {
			s.out.WriteString("\n")
		}
		s.out.WriteString(line)
		s.out.ClearLineRight()
	}
	return s.w.Flush()
}

func (s *Screen) End() error {
	if !s.begun {
		return nil
	}
	s.begun = false
	s.out.Reset()
	s.out.ShowCursor()
	s.out.WriteString("\n")
	return s.w.Flush()
}
