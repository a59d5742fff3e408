// Package frame holds the data that flows through the conversion pipeline:
// decoded pixel buffers on the way in and character grids on the way out.
package frame

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	sgrReset = "\x1b[0m"
)

// RGB is a 24-bit colour.
type RGB struct {
	R, G, B uint8
}

// Invert returns the channel-wise negative of c.
func (c RGB) Invert() RGB {
	return RGB{255 - c.R, 255 - c.G, 255 - c.B}
}

// RawFrame is one decoded video frame. Pix holds RGB triples, row-major.
type RawFrame struct {
	Index  int
	Width  int
	Height int
	Pix    []byte
}

// Validate checks the frame geometry against its buffer.
func (f *RawFrame) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", ErrInvalidFrame)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return &IndexError{Index: f.Index, Err: fmt.Errorf("%w: size %dx%d", ErrInvalidFrame, f.Width, f.Height)}
	}
	if want := f.Width * f.Height * 3; len(f.Pix) != want {
		return &IndexError{Index: f.Index, Err: fmt.Errorf("%w: buffer is %d bytes, want %d", ErrInvalidFrame, len(f.Pix), want)}
	}
	return nil
}

// At returns the pixel at column x, row y.
func (f *RawFrame) At(x, y int) RGB {
	o := (y*f.Width + x) * 3
	return RGB{f.Pix[o], f.Pix[o+1], f.Pix[o+2]}
}

// AsciiFrame is a fixed-size character grid. Colors is either nil or holds
// one entry per cell, in the same row-major order as Chars.
type AsciiFrame struct {
	Rows   int
	Cols   int
	Chars  []rune
	Colors []RGB
}

// NewAsciiFrame allocates an empty grid.
func NewAsciiFrame(rows, cols int, color bool) *AsciiFrame {
	f := &AsciiFrame{
		Rows:  rows,
		Cols:  cols,
		Chars: make([]rune, rows*cols),
	}
	if color {
		f.Colors = make([]RGB, rows*cols)
	}
	return f
}

// HasColor reports whether cells carry colours.
func (f *AsciiFrame) HasColor() bool {
	return f.Colors != nil
}

// Cell returns the character and colour at row r, column c.
func (f *AsciiFrame) Cell(r, c int) (rune, RGB, bool) {
	i := r*f.Cols + c
	if f.Colors == nil {
		return f.Chars[i], RGB{}, false
	}
	return f.Chars[i], f.Colors[i], true
}

// Row returns the characters of row r without colour codes.
func (f *AsciiFrame) Row(r int) string {
	return string(f.Chars[r*f.Cols : (r+1)*f.Cols])
}

// Lines returns every row without colour codes.
func (f *AsciiFrame) Lines() []string {
	lines := make([]string, f.Rows)
	for r := range lines {
		lines[r] = f.Row(r)
	}
	return lines
}

// Text serialises the frame the way exporters embed it: rows joined by
// newlines, with a 24-bit foreground code around every cell when the frame
// carries colour.
func (f *AsciiFrame) Text() string {
	var sb strings.Builder
	if f.Colors == nil {
		sb.Grow(f.Rows * (f.Cols + 1))
	} else {
		sb.Grow(f.Rows * f.Cols * 24)
	}
	for r := 0; r < f.Rows; r++ {
		if r > 0 {
			sb.WriteByte('\n')
		}
		if f.Colors == nil {
			sb.WriteString(f.Row(r))
			continue
		}
		for c := 0; c < f.Cols; c++ {
			ch, col, _ := f.Cell(r, c)
			WriteForeground(&sb, col)
			sb.WriteRune(ch)
			sb.WriteString(sgrReset)
		}
	}
	return sb.String()
}

// Equal reports whether two frames are cell-for-cell identical.
func (f *AsciiFrame) Equal(o *AsciiFrame) bool {
	if f == nil || o == nil {
		return f == o
	}
	if f.Rows != o.Rows || f.Cols != o.Cols || (f.Colors == nil) != (o.Colors == nil) {
		return false
	}
	for i := range f.Chars {
		if f.Chars[i] != o.Chars[i] {
			return false
		}
	}
	for i := range f.Colors {
		if f.Colors[i] != o.Colors[i] {
			return false
		}
	}
	return true
}

// WriteForeground writes a 24-bit SGR foreground sequence for c.
func WriteForeground(sb *strings.Builder, c RGB) {
	sb.WriteString("\x1b[38;2;")
	sb.WriteString(strconv.Itoa(int(c.R)))
	sb.WriteByte(';')
	sb.WriteString(strconv.Itoa(int(c.G)))
	sb.WriteByte(';')
	sb.WriteString(strconv.Itoa(int(c.B)))
	sb.WriteByte('m')
}

// Sequence is an in-memory, ordered run of converted frames.
type Sequence []*AsciiFrame

// Len returns the number of frames.
func (s Sequence) Len() int { return len(s) }

// Frame returns frame i.
func (s Sequence) Frame(i int) (*AsciiFrame, error) {
	if i < 0 || i >= len(s) {
		return nil, fmt.Errorf("frame %d out of range [0,%d)", i, len(s))
	}
	return s[i], nil
}
