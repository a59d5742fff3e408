package source

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/draw"

	"asciireel/frame"
)

// PNGDir reads numbered PNG frames (out0001.png, frame_000001.png, ...) from
// a directory, in numeric order.
type PNGDir struct {
	dir      string
	files    []string
	maxWidth int
	next     int
}

// OpenPNGDir lists the frames in dir. Frames wider than maxWidth are
// downscaled on read; zero disables scaling.
func OpenPNGDir(dir string, maxWidth int) (*PNGDir, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading frames directory: %w", err)
	}

	type numbered struct {
		name string
		num  int
	}
	var found []numbered
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}
		if num, ok := extractFrameNumber(entry.Name()); ok {
			found = append(found, numbered{entry.Name(), num})
		}
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("no numbered png frames in %s", dir)
	}
	sort.Slice(found, func(i, j int) bool { return found[i].num < found[j].num })

	files := make([]string, len(found))
	for i, f := range found {
		files[i] = filepath.Join(dir, f.name)
	}
	return &PNGDir{dir: dir, files: files, maxWidth: maxWidth}, nil
}

// extractFrameNumber pulls the trailing number out of names like
// "out0001.png" or "frame_000001.png".
func extractFrameNumber(name string) (int, bool) {
	base := strings.TrimSuffix(name, ".png")
	i := len(base)
	for i > 0 && base[i-1] >= '0' && base[i-1] <= '9' {
		i--
	}
	if i == len(base) {
		return 0, false
	}
	num, err := strconv.Atoi(base[i:])
	return num, err == nil
}

// Dir returns the directory being read.
func (p *PNGDir) Dir() string { return p.dir }

// Len returns the number of frames.
func (p *PNGDir) Len() int { return len(p.files) }

// Next decodes the next frame or returns io.EOF.
func (p *PNGDir) Next(ctx context.Context) (*frame.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.next >= len(p.files) {
		return nil, io.EOF
	}
	i := p.next
	p.next++

	img, err := decodePNG(p.files[i])
	if err != nil {
		return nil, frame.AtIndex(i, fmt.Errorf("%w: %w", frame.ErrInvalidFrame, err))
	}
	return toRaw(i, img, p.maxWidth), nil
}

func decodePNG(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return png.Decode(file)
}

// toRaw flattens img into packed RGB, downscaling it to maxWidth first when
// it is wider.
func toRaw(index int, img image.Image, maxWidth int) *frame.RawFrame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if maxWidth > 0 && w > maxWidth {
		w, h = OutputSize(b.Dx(), b.Dy(), maxWidth)
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	} else {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	}

	pix := make([]byte, 0, w*h*3)
	for y := 0; y < h; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for x := 0; x < len(row); x += 4 {
			pix = append(pix, row[x], row[x+1], row[x+2])
		}
	}
	return &frame.RawFrame{Index: index, Width: w, Height: h, Pix: pix}
}
