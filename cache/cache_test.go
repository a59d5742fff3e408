package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asciireel/convert"
	"asciireel/frame"
	"asciireel/ramp"
)

func testFrame(seed int, color bool) *frame.AsciiFrame {
	f := frame.NewAsciiFrame(3, 4, color)
	chars := []rune(" .:-=+*#%@")
	for i := range f.Chars {
		f.Chars[i] = chars[(i+seed)%len(chars)]
		if color {
			f.Colors[i] = frame.RGB{R: uint8(i * seed), G: uint8(seed), B: uint8(255 - i)}
		}
	}
	return f
}

func openTemp(t *testing.T) *Handle {
	t.Helper()
	h, err := Open(t.TempDir(), "abc123")
	require.NoError(t, err)
	return h
}

func TestWriteReadRoundTrip(t *testing.T) {
	h := openTemp(t)
	for i, color := range []bool{false, true} {
		want := testFrame(i+1, color)
		require.NoError(t, h.Write(i, want))
		got, err := h.Read(i)
		require.NoError(t, err)
		assert.True(t, want.Equal(got))
		assert.Equal(t, want.Text(), got.Text())
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	h := openTemp(t)
	require.NoError(t, h.Write(0, testFrame(1, false)))
	require.NoError(t, h.Seal(Manifest{Frames: 1}))

	entries, err := os.ReadDir(h.Dir())
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "leftover %s", e.Name())
	}
	assert.ElementsMatch(t, []string{"frame_000000.zst", "manifest.yaml"}, names)
}

func TestCompleteRequiresManifestAndAllFrames(t *testing.T) {
	h := openTemp(t)
	_, ok := h.Complete()
	assert.False(t, ok, "empty entry")

	for i := 0; i < 3; i++ {
		require.NoError(t, h.Write(i, testFrame(i, false)))
	}
	_, ok = h.Complete()
	assert.False(t, ok, "unsealed entry")

	require.NoError(t, h.Seal(Manifest{Frames: 3, Rows: 3, Cols: 4, FPS: 12}))
	m, ok := h.Complete()
	require.True(t, ok)
	assert.Equal(t, 3, m.Frames)
	assert.Equal(t, "abc123", m.Fingerprint)
	assert.Equal(t, 3, h.Len())

	require.NoError(t, os.Remove(filepath.Join(h.Dir(), "frame_000001.zst")))
	_, ok = h.Complete()
	assert.False(t, ok, "missing frame file")
}

func TestManifestSurvivesReopen(t *testing.T) {
	root := t.TempDir()
	h, err := Open(root, "fp")
	require.NoError(t, err)
	require.NoError(t, h.Write(0, testFrame(0, true)))
	require.NoError(t, h.Seal(Manifest{Frames: 1, FPS: 24, Color: true}))

	again, err := Open(root, "fp")
	require.NoError(t, err)
	m, ok := again.Complete()
	require.True(t, ok)
	assert.Equal(t, 24.0, m.FPS)
	assert.True(t, m.Color)

	f, err := again.Frame(0)
	require.NoError(t, err)
	assert.True(t, testFrame(0, true).Equal(f))
	_, err = again.Frame(1)
	assert.Error(t, err)
}

func TestReadMissingFrame(t *testing.T) {
	h := openTemp(t)
	_, err := h.Read(5)
	require.ErrorIs(t, err, frame.ErrCacheIO)
	idx, ok := frame.FailedIndex(err)
	require.True(t, ok)
	assert.Equal(t, 5, idx)
	assert.False(t, h.Has(5))
}

func TestReadCorruptFrame(t *testing.T) {
	h := openTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(h.Dir(), "frame_000000.zst"), []byte("garbage"), 0o644))
	_, err := h.Read(0)
	assert.ErrorIs(t, err, frame.ErrCacheIO)
}

func TestRemove(t *testing.T) {
	h := openTemp(t)
	require.NoError(t, h.Write(0, testFrame(0, false)))
	require.NoError(t, h.Remove())
	_, err := os.Stat(h.Dir())
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, h.Remove(), "removing twice is fine")
}

func TestOpenUnwritableRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(root, nil, 0o644))
	_, err := Open(root, "fp")
	assert.ErrorIs(t, err, frame.ErrCacheIO)
}

func TestFingerprint(t *testing.T) {
	id := SourceID{Path: "/videos/a.mp4", Size: 10, ModTime: time.Unix(100, 0), Rate: 12}
	s := convert.DefaultSettings()

	base := Fingerprint(id, s)
	assert.Equal(t, base, Fingerprint(id, s), "stable")
	assert.Len(t, base, 32)

	changed := []func() (SourceID, convert.Settings){
		func() (SourceID, convert.Settings) { i := id; i.ModTime = time.Unix(101, 0); return i, s },
		func() (SourceID, convert.Settings) { i := id; i.Rate = 24; return i, s },
		func() (SourceID, convert.Settings) { i := id; i.Filter = "crt"; return i, s },
		func() (SourceID, convert.Settings) { c := s; c.Width = 80; return id, c },
		func() (SourceID, convert.Settings) { c := s; c.Invert = true; return id, c },
		func() (SourceID, convert.Settings) { c := s; c.Edge = true; return id, c },
		func() (SourceID, convert.Settings) { c := s; c.EdgeThreshold = 0.3; return id, c },
		func() (SourceID, convert.Settings) { c := s; c.Color = true; return id, c },
		func() (SourceID, convert.Settings) { c := s; c.AspectRatio = 1.2; return id, c },
		func() (SourceID, convert.Settings) { c := s; c.Ramp = ramp.MustParse("blocks"); return id, c },
	}
	for i, mutate := range changed {
		assert.NotEqual(t, base, Fingerprint(mutate()), "mutation %d", i)
	}
}

func TestIdentify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("not really a video"), 0o644))
	id, err := Identify(path, 12)
	require.NoError(t, err)
	assert.Equal(t, int64(18), id.Size)
	assert.True(t, filepath.IsAbs(id.Path))
	assert.Equal(t, 12.0, id.Rate)

	_, err = Identify(filepath.Join(t.TempDir(), "missing.mp4"), 12)
	assert.Error(t, err)
}
