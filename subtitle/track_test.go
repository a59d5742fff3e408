package subtitle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackLookup(t *testing.T) {
	track := NewTrack([]Cue{
		{ID: 2, Start: 3 * time.Second, End: 4 * time.Second, Text: "b"},
		{ID: 1, Start: 1 * time.Second, End: 2 * time.Second, Text: "a"},
	})
	require.Equal(t, 2, track.Len())
	assert.Equal(t, 1, track.Cues()[0].ID)

	tests := []struct {
		at   time.Duration
		want string
	}{
		{at: 0},
		{at: time.Second, want: "a"},
		{at: 1999 * time.Millisecond, want: "a"},
		{at: 2 * time.Second},
		{at: 3500 * time.Millisecond, want: "b"},
		{at: 4 * time.Second},
	}
	for _, tt := range tests {
		c, ok := track.At(tt.at)
		assert.Equal(t, tt.want != "", ok, "at %v", tt.at)
		assert.Equal(t, tt.want, c.Text, "at %v", tt.at)
	}
}

func TestTrackClampsOverlaps(t *testing.T) {
	track := NewTrack([]Cue{
		{Start: 0, End: 3 * time.Second, Text: "long"},
		{Start: 2 * time.Second, End: 4 * time.Second, Text: "next"},
		{Start: 2 * time.Second, End: 2 * time.Second, Text: "empty"},
	})
	c, ok := track.At(2500 * time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, "next", c.Text)
	c, ok = track.At(1999 * time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, "long", c.Text)
}

func TestForFrame(t *testing.T) {
	track := NewTrack([]Cue{{Start: 300 * time.Millisecond, End: 600 * time.Millisecond, Text: "x"}})

	_, ok := track.ForFrame(2, 10)
	assert.False(t, ok)
	_, ok = track.ForFrame(3, 10)
	assert.True(t, ok, "frame 3 at 10fps is media time 300ms")
	_, ok = track.ForFrame(6, 10)
	assert.False(t, ok)
	_, ok = track.ForFrame(3, 0)
	assert.False(t, ok)

	var nilTrack *Track
	_, ok = nilTrack.ForFrame(3, 10)
	assert.False(t, ok)
}

func TestMediaTime(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, MediaTime(6, 24))
	assert.Equal(t, time.Duration(0), MediaTime(0, 30))
}
