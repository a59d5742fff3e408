package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Binary layout of one frame:
//
//	magic "ARF" | version u8 | flags u8 | rows u32 | cols u32 | cells
//
// Each cell is its rune as a little-endian u32, followed by three RGB bytes
// when flagColor is set.
const (
	codecVersion = 1
	flagColor    = 1 << 0
	headerSize   = 3 + 1 + 1 + 4 + 4
)

var codecMagic = [3]byte{'A', 'R', 'F'}

var errCorrupt = errors.New("corrupt frame encoding")

// MarshalBinary encodes the frame in a self-contained form.
func (f *AsciiFrame) MarshalBinary() ([]byte, error) {
	if len(f.Chars) != f.Rows*f.Cols {
		return nil, fmt.Errorf("frame has %d cells, want %dx%d", len(f.Chars), f.Rows, f.Cols)
	}
	if f.Colors != nil && len(f.Colors) != len(f.Chars) {
		return nil, fmt.Errorf("frame has %d colours for %d cells", len(f.Colors), len(f.Chars))
	}
	cell := 4
	var flags byte
	if f.Colors != nil {
		cell += 3
		flags |= flagColor
	}
	buf := make([]byte, headerSize, headerSize+len(f.Chars)*cell)
	copy(buf, codecMagic[:])
	buf[3] = codecVersion
	buf[4] = flags
	binary.LittleEndian.PutUint32(buf[5:], uint32(f.Rows))
	binary.LittleEndian.PutUint32(buf[9:], uint32(f.Cols))
	for i, ch := range f.Chars {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(ch))
		if f.Colors != nil {
			c := f.Colors[i]
			buf = append(buf, c.R, c.G, c.B)
		}
	}
	return buf, nil
}

// UnmarshalBinary decodes a frame written by MarshalBinary.
func (f *AsciiFrame) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize || [3]byte(data[:3]) != codecMagic {
		return errCorrupt
	}
	if data[3] != codecVersion {
		return fmt.Errorf("%w: version %d", errCorrupt, data[3])
	}
	color := data[4]&flagColor != 0
	rows := int(binary.LittleEndian.Uint32(data[5:]))
	cols := int(binary.LittleEndian.Uint32(data[9:]))
	cell := 4
	if color {
		cell += 3
	}
	body := data[headerSize:]
	if rows < 0 || cols < 0 || len(body) != rows*cols*cell {
		return fmt.Errorf("%w: %d bytes for %dx%d cells", errCorrupt, len(body), rows, cols)
	}
	*f = *NewAsciiFrame(rows, cols, color)
	for i := range f.Chars {
		o := i * cell
		f.Chars[i] = rune(binary.LittleEndian.Uint32(body[o:]))
		if color {
			f.Colors[i] = RGB{body[o+4], body[o+5], body[o+6]}
		}
	}
	return nil
}
