// Package source adapts external frame producers (ffmpeg, directories of
// extracted PNGs, in-memory buffers) to the ordered RawFrame stream the
// dispatcher consumes.
package source

import (
	"context"
	"io"

	"asciireel/frame"
)

// Slice replays frames held in memory.
type Slice struct {
	frames []*frame.RawFrame
	next   int
}

// NewSlice returns a source over frames, in order.
func NewSlice(frames ...*frame.RawFrame) *Slice {
	return &Slice{frames: frames}
}

// Len returns the number of frames.
func (s *Slice) Len() int { return len(s.frames) }

// Next returns the next frame or io.EOF.
func (s *Slice) Next(ctx context.Context) (*frame.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}
