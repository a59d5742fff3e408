// Package convert turns decoded frames into character grids.
package convert

import (
	"math"

	"asciireel/frame"
)

// Rec. 601 luma weights, per mille.
const (
	weightR = 299
	weightG = 587
	weightB = 114
)

// Converter applies one validated Settings value to any number of frames.
// It holds no mutable state and is safe for concurrent use.
type Converter struct {
	settings Settings
}

// New validates s and returns a converter for it.
func New(s Settings) (*Converter, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Converter{settings: s}, nil
}

// Settings returns the settings the converter was built with.
func (c *Converter) Settings() Settings {
	return c.settings
}

// Convert maps raw to a character grid. Identical inputs always produce
// identical output.
func (c *Converter) Convert(raw *frame.RawFrame) (*frame.AsciiFrame, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	s := c.settings
	cols := s.Width
	rows := s.Rows(raw.Width, raw.Height)

	xs := spans(raw.Width, cols)
	ys := spans(raw.Height, rows)

	out := frame.NewAsciiFrame(rows, cols, s.Color)
	lum := make([]float64, rows*cols)
	for r, ySpan := range ys {
		for col, xSpan := range xs {
			i := r*cols + col
			avg := average(raw, xSpan, ySpan)
			lum[i] = luminance(avg)
			if s.Color {
				if s.Invert {
					avg = avg.Invert()
				}
				out.Colors[i] = avg
			}
		}
	}

	if s.Edge {
		edges := DetectEdges(lum, cols, rows, s.EdgeThreshold)
		on := s.Ramp.Lookup(1, s.Invert)
		off := s.Ramp.Lookup(0, s.Invert)
		for i, e := range edges {
			if e {
				out.Chars[i] = on
			} else {
				out.Chars[i] = off
			}
		}
		return out, nil
	}

	for i, b := range lum {
		out.Chars[i] = s.Ramp.Lookup(b, s.Invert)
	}
	return out, nil
}

// Convert is a one-shot helper around New and Converter.Convert.
func Convert(raw *frame.RawFrame, s Settings) (*frame.AsciiFrame, error) {
	c, err := New(s)
	if err != nil {
		return nil, err
	}
	return c.Convert(raw)
}

// span is the run of source pixels covering one output cell along one
// axis, with each pixel's fractional coverage.
type span struct {
	lo      int
	weights []float64
}

func spans(src, dst int) []span {
	scale := float64(src) / float64(dst)
	out := make([]span, dst)
	for i := range out {
		a := float64(i) * scale
		b := float64(i+1) * scale
		lo := int(math.Floor(a))
		hi := int(math.Ceil(b))
		if hi > src {
			hi = src
		}
		if hi <= lo {
			hi = lo + 1
		}
		w := make([]float64, hi-lo)
		for p := lo; p < hi; p++ {
			w[p-lo] = math.Min(b, float64(p+1)) - math.Max(a, float64(p))
		}
		out[i] = span{lo: lo, weights: w}
	}
	return out
}

// average box-filters the source area under one cell and quantises the
// result back to 8 bits per channel.
func average(raw *frame.RawFrame, xs, ys span) frame.RGB {
	var r, g, b, total float64
	for dy, wy := range ys.weights {
		if wy <= 0 {
			continue
		}
		row := (ys.lo + dy) * raw.Width
		for dx, wx := range xs.weights {
			w := wy * wx
			if w <= 0 {
				continue
			}
			o := (row + xs.lo + dx) * 3
			r += w * float64(raw.Pix[o])
			g += w * float64(raw.Pix[o+1])
			b += w * float64(raw.Pix[o+2])
			total += w
		}
	}
	if total == 0 {
		return frame.RGB{}
	}
	return frame.RGB{R: quantise(r / total), G: quantise(g / total), B: quantise(b / total)}
}

func quantise(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// luminance returns perceptual brightness in [0,1].
func luminance(c frame.RGB) float64 {
	return float64(weightR*int(c.R)+weightG*int(c.G)+weightB*int(c.B)) / (1000 * 255)
}
