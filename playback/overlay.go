package playback

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"

	"asciireel/frame"
)

const progressWidth = 40

// ProgressBar formats "[====    ]  NN% (i/n)" for the given position.
func ProgressBar(current, total, width int) string {
	if total <= 0 {
		total = 1
	}
	current = max(0, min(current, total))
	filled := current * width / total
	pct := current * 100 / total
	return fmt.Sprintf("[%s%s] %3d%% (%d/%d)",
		strings.Repeat("=", filled), strings.Repeat(" ", width-filled), pct, current, total)
}

// Layout turns scenes into terminal lines.
type Layout struct {
	// Profile downsamples cell colours to what the terminal supports.
	Profile termenv.Profile
	// Scheme, when set, tints every cell.
	Scheme *frame.Scheme
}

// Lines renders sc: the grid rows, with subtitle lines centred over the
// bottom rows, then the progress line if any.
func (l Layout) Lines(sc Scene) []string {
	f := sc.Frame
	lines := make([]string, f.Rows, f.Rows+1)
	for r := range lines {
		lines[r] = l.row(f, r)
	}

	sub := fitSubtitle(sc.Subtitle, f.Cols, f.Rows)
	for k, text := range sub {
		lines[f.Rows-len(sub)+k] = l.tint(Center(text, f.Cols))
	}

	if sc.Progress != "" {
		lines = append(lines, l.tint(sc.Progress))
	}
	return lines
}

// String joins Lines with newlines.
func (l Layout) String(sc Scene) string {
	return strings.Join(l.Lines(sc), "\n")
}

func (l Layout) row(f *frame.AsciiFrame, r int) string {
	if !f.HasColor() {
		return l.tint(f.Row(r))
	}
	var sb strings.Builder
	for c := 0; c < f.Cols; c++ {
		ch, col, _ := f.Cell(r, c)
		if l.Scheme != nil {
			col = l.Scheme.Apply(col)
		}
		seq := l.sequence(col)
		if seq == "" {
			sb.WriteRune(ch)
			continue
		}
		sb.WriteString(seq)
		sb.WriteRune(ch)
		sb.WriteString(termenv.CSI + termenv.ResetSeq + "m")
	}
	return sb.String()
}

func (l Layout) tint(s string) string {
	if l.Scheme == nil {
		return s
	}
	seq := l.sequence(l.Scheme.Tint)
	if seq == "" {
		return s
	}
	return seq + s + termenv.CSI + termenv.ResetSeq + "m"
}

func (l Layout) sequence(c frame.RGB) string {
	color := l.Profile.Color(c.Hex())
	if color == nil {
		return ""
	}
	seq := color.Sequence(false)
	if seq == "" {
		return ""
	}
	return termenv.CSI + seq + "m"
}

// fitSubtitle wraps subtitle lines to cols cells and keeps at most rows of
// them, preferring the last ones.
func fitSubtitle(lines []string, cols, rows int) []string {
	var out []string
	for _, line := range lines {
		wrapped := runewidth.Wrap(strings.TrimSpace(line), cols)
		for _, w := range strings.Split(wrapped, "\n") {
			if w == "" {
				continue
			}
			out = append(out, runewidth.Truncate(w, cols, ""))
		}
	}
	if len(out) > rows {
		out = out[len(out)-rows:]
	}
	return out
}

// Center pads s on both sides to exactly width display cells.
func Center(s string, width int) string {
	pad := (width - runewidth.StringWidth(s)) / 2
	if pad < 0 {
		pad = 0
	}
	return runewidth.FillRight(strings.Repeat(" ", pad)+s, width)
}
