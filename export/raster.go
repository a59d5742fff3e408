package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"asciireel/frame"
)

// DefaultFontSize is the glyph size in points at 72 DPI.
const DefaultFontSize = 20

// Rasterizer draws character frames onto RGBA images using Go Mono.
type Rasterizer struct {
	ctx    *freetype.Context
	scheme *frame.Scheme
	cellW  int
	cellH  int
	ascent int
	brush  map[frame.RGB]*image.Uniform
}

// NewRasterizer prepares glyph metrics for the given size. A nil scheme
// draws monochrome frames white on black.
func NewRasterizer(size float64, scheme *frame.Scheme) (*Rasterizer, error) {
	if !(size > 0) {
		return nil, fmt.Errorf("%w: font size must be positive, got %v", frame.ErrInvalidSettings, size)
	}
	ttf, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	face := truetype.NewFace(ttf, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	defer face.Close()

	adv, ok := face.GlyphAdvance('M')
	if !ok {
		return nil, fmt.Errorf("font has no glyph for M")
	}
	m := face.Metrics()

	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(ttf)
	c.SetFontSize(size)
	c.SetHinting(font.HintingFull)

	return &Rasterizer{
		ctx:    c,
		scheme: scheme,
		cellW:  adv.Ceil(),
		cellH:  m.Height.Ceil(),
		ascent: m.Ascent.Ceil(),
		brush:  make(map[frame.RGB]*image.Uniform),
	}, nil
}

// Cell returns the pixel size of one character cell.
func (r *Rasterizer) Cell() (w, h int) { return r.cellW, r.cellH }

// Size returns the image size for a rows x cols frame, rounded up to even
// dimensions for 4:2:0 encoders.
func (r *Rasterizer) Size(rows, cols int) (w, h int) {
	return even(cols * r.cellW), even(rows * r.cellH)
}

func even(n int) int {
	if n%2 != 0 {
		return n + 1
	}
	return n
}

func (r *Rasterizer) background() frame.RGB {
	if r.scheme != nil {
		return r.scheme.Background
	}
	return frame.RGB{}
}

// Draw renders f onto dst, which should be at least Size(f.Rows, f.Cols).
func (r *Rasterizer) Draw(dst *image.RGBA, f *frame.AsciiFrame) error {
	draw.Draw(dst, dst.Bounds(), r.uniform(r.background()), image.Point{}, draw.Src)
	r.ctx.SetDst(dst)
	r.ctx.SetClip(dst.Bounds())

	for row := 0; row < f.Rows; row++ {
		for col := 0; col < f.Cols; col++ {
			ch, c, hasColor := f.Cell(row, col)
			if ch == ' ' {
				continue
			}
			r.ctx.SetSrc(r.uniform(r.ink(c, hasColor)))
			pt := freetype.Pt(col*r.cellW, row*r.cellH+r.ascent)
			if _, err := r.ctx.DrawString(string(ch), pt); err != nil {
				return fmt.Errorf("drawing cell %d,%d: %w", row, col, err)
			}
		}
	}
	return nil
}

// Image allocates a fresh canvas and draws f on it.
func (r *Rasterizer) Image(f *frame.AsciiFrame) (*image.RGBA, error) {
	w, h := r.Size(f.Rows, f.Cols)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if err := r.Draw(img, f); err != nil {
		return nil, err
	}
	return img, nil
}

func (r *Rasterizer) ink(c frame.RGB, hasColor bool) frame.RGB {
	if !hasColor {
		if r.scheme != nil {
			return r.scheme.Tint
		}
		return frame.RGB{R: 255, G: 255, B: 255}
	}
	if r.scheme != nil {
		c = r.scheme.Apply(c)
	}
	return boost(c)
}

// boost lifts dark cell colours so thin glyph strokes stay visible once
// encoded, keeping the channel ratios.
func boost(c frame.RGB) frame.RGB {
	if c == (frame.RGB{}) {
		return c
	}
	scale := func(k, add float64) frame.RGB {
		ch := func(v uint8) uint8 {
			x := float64(v)*k + add
			if x > 255 {
				return 255
			}
			return uint8(x)
		}
		return frame.RGB{R: ch(c.R), G: ch(c.G), B: ch(c.B)}
	}
	brightness := (float64(c.R) + float64(c.G) + float64(c.B)) / 3
	switch {
	case brightness < 30:
		return scale(4.5, 0)
	case brightness < 64:
		return scale(3.5, 0)
	case brightness < 128:
		return scale(2.2, 0)
	}
	return scale(1.2, 20)
}

func (r *Rasterizer) uniform(c frame.RGB) *image.Uniform {
	u, ok := r.brush[c]
	if !ok {
		u = image.NewUniform(color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
		r.brush[c] = u
	}
	return u
}
