package audio

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asciireel/playback"
)

type fakePlayer struct {
	src    io.Reader
	active bool
	ended  bool
	plays  int
	seeks  []int64
	closed bool
}

func (p *fakePlayer) Play()           { p.active = true; p.plays++ }
func (p *fakePlayer) Pause()          { p.active = false }
func (p *fakePlayer) IsPlaying() bool { return p.active && !p.ended }
func (p *fakePlayer) Close() error    { p.closed = true; return nil }

func (p *fakePlayer) Seek(offset int64, whence int) (int64, error) {
	p.seeks = append(p.seeks, offset)
	return p.src.(io.Seeker).Seek(offset, whence)
}

type fakeDevice struct {
	player *fakePlayer
}

func (d *fakeDevice) NewPlayer(r io.Reader) Player {
	d.player = &fakePlayer{src: r}
	return d.player
}

func newTrack(t *testing.T) (*Soundtrack, *fakePlayer) {
	t.Helper()
	dev := &fakeDevice{}
	s := New(dev, bytes.NewReader(make([]byte, 4096)), nil)
	require.NotNil(t, dev.player)
	return s, dev.player
}

func TestPauseResume(t *testing.T) {
	s, p := newTrack(t)
	assert.False(t, s.IsPlaying())

	s.Play()
	s.Play()
	assert.True(t, s.IsPlaying())
	assert.Equal(t, 1, p.plays)

	s.Pause()
	assert.True(t, s.IsPaused())
	assert.False(t, s.IsPlaying())
	assert.False(t, p.active)

	s.Resume()
	assert.True(t, s.IsPlaying())
	assert.Equal(t, 2, p.plays)
}

func TestStopRewinds(t *testing.T) {
	s, p := newTrack(t)
	s.Stop()
	assert.Empty(t, p.seeks, "stop before play is a no-op")

	s.Play()
	s.Stop()
	assert.False(t, s.IsPlaying())
	assert.False(t, p.active)
	assert.Equal(t, []int64{0}, p.seeks)
}

func TestStreamEndCountsAsStopped(t *testing.T) {
	s, p := newTrack(t)
	s.Play()
	p.ended = true
	assert.False(t, s.IsPlaying())
	assert.False(t, s.IsPaused())
}

func TestFollowScheduler(t *testing.T) {
	s, p := newTrack(t)

	s.Follow(playback.Idle, playback.Playing)
	assert.True(t, s.IsPlaying())

	s.Follow(playback.Playing, playback.Looping)
	assert.True(t, s.IsPlaying(), "audio keeps going until the next iteration starts")

	s.Follow(playback.Looping, playback.Playing)
	assert.True(t, s.IsPlaying())
	assert.Equal(t, []int64{0}, p.seeks)
	assert.Equal(t, 2, p.plays)

	s.Follow(playback.Playing, playback.Cancelled)
	assert.False(t, s.IsPlaying())
	assert.Len(t, p.seeks, 2)
}

func TestCloseIsFinal(t *testing.T) {
	s, p := newTrack(t)
	s.Play()
	require.NoError(t, s.Close())
	assert.True(t, p.closed)
	assert.False(t, s.IsPlaying())

	s.Play()
	s.Stop()
	assert.NoError(t, s.Close())
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.mp3"), nil)
	assert.ErrorContains(t, err, "opening audio file")

	empty := filepath.Join(t.TempDir(), "empty.mp3")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = Open(empty, nil)
	assert.ErrorContains(t, err, "decoding")
}
