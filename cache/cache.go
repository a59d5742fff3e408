// Package cache persists converted frames on disk, one directory per
// fingerprint and one file per frame, so later runs can skip conversion.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"asciireel/frame"
)

const (
	formatVersion = 1
	manifestName  = "manifest.yaml"
)

// Manifest describes a sealed cache entry.
type Manifest struct {
	Version     int       `yaml:"version"`
	Fingerprint string    `yaml:"fingerprint"`
	Source      string    `yaml:"source"`
	Frames      int       `yaml:"frames"`
	Rows        int       `yaml:"rows"`
	Cols        int       `yaml:"cols"`
	FPS         float64   `yaml:"fps"`
	Color       bool      `yaml:"color"`
	Created     time.Time `yaml:"created"`
}

// Handle is an explicitly owned cache entry. The caller decides when it is
// populated, sealed and removed.
type Handle struct {
	root        string
	fingerprint string
	dir         string

	mu       sync.Mutex
	manifest *Manifest
}

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

func codec() (*zstd.Encoder, *zstd.Decoder, error) {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if codecErr != nil {
			return
		}
		decoder, codecErr = zstd.NewReader(nil)
	})
	return encoder, decoder, codecErr
}

// DefaultRoot returns the per-user scratch directory for cache entries.
func DefaultRoot() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "asciireel")
	}
	return filepath.Join(os.TempDir(), "asciireel")
}

// Open creates (if needed) and returns the entry for fingerprint under root.
func Open(root, fingerprint string) (*Handle, error) {
	if fingerprint == "" {
		return nil, fmt.Errorf("%w: empty fingerprint", frame.ErrCacheIO)
	}
	dir := filepath.Join(root, fingerprint)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", frame.ErrCacheIO, dir, err)
	}
	return &Handle{root: root, fingerprint: fingerprint, dir: dir}, nil
}

// Dir returns the entry's directory.
func (h *Handle) Dir() string { return h.dir }

// Fingerprint returns the fingerprint the entry was opened for.
func (h *Handle) Fingerprint() string { return h.fingerprint }

func (h *Handle) path(i int) string {
	return filepath.Join(h.dir, fmt.Sprintf("frame_%06d.zst", i))
}

// Write persists frame i. The file appears under its final name only once
// it is completely written.
func (h *Handle) Write(i int, f *frame.AsciiFrame) error {
	enc, _, err := codec()
	if err != nil {
		return fmt.Errorf("%w: %w", frame.ErrCacheIO, err)
	}
	raw, err := f.MarshalBinary()
	if err != nil {
		return frame.AtIndex(i, err)
	}
	if err := writeAtomic(h.dir, h.path(i), enc.EncodeAll(raw, nil)); err != nil {
		return frame.AtIndex(i, fmt.Errorf("%w: %w", frame.ErrCacheIO, err))
	}
	return nil
}

// Read loads frame i.
func (h *Handle) Read(i int) (*frame.AsciiFrame, error) {
	_, dec, err := codec()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", frame.ErrCacheIO, err)
	}
	data, err := os.ReadFile(h.path(i))
	if err != nil {
		return nil, frame.AtIndex(i, fmt.Errorf("%w: %w", frame.ErrCacheIO, err))
	}
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, frame.AtIndex(i, fmt.Errorf("%w: decompress: %w", frame.ErrCacheIO, err))
	}
	var f frame.AsciiFrame
	if err := f.UnmarshalBinary(raw); err != nil {
		return nil, frame.AtIndex(i, fmt.Errorf("%w: %w", frame.ErrCacheIO, err))
	}
	return &f, nil
}

// Has reports whether frame i has been persisted.
func (h *Handle) Has(i int) bool {
	_, err := os.Stat(h.path(i))
	return err == nil
}

// Seal records the manifest, marking the entry reusable.
func (h *Handle) Seal(m Manifest) error {
	m.Version = formatVersion
	m.Fingerprint = h.fingerprint
	if m.Created.IsZero() {
		m.Created = time.Now().UTC()
	}
	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("%w: encode manifest: %w", frame.ErrCacheIO, err)
	}
	if err := writeAtomic(h.dir, filepath.Join(h.dir, manifestName), data); err != nil {
		return fmt.Errorf("%w: %w", frame.ErrCacheIO, err)
	}
	h.mu.Lock()
	h.manifest = &m
	h.mu.Unlock()
	return nil
}

// Manifest reads the entry's manifest.
func (h *Handle) Manifest() (Manifest, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.manifest != nil {
		return *h.manifest, nil
	}
	data, err := os.ReadFile(filepath.Join(h.dir, manifestName))
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: parse manifest: %w", frame.ErrCacheIO, err)
	}
	if m.Version != formatVersion || m.Fingerprint != h.fingerprint {
		return Manifest{}, fmt.Errorf("%w: manifest does not match entry", frame.ErrCacheIO)
	}
	h.manifest = &m
	return m, nil
}

// Complete reports whether the entry is sealed and every frame file the
// manifest promises is present.
func (h *Handle) Complete() (Manifest, bool) {
	m, err := h.Manifest()
	if err != nil || m.Frames <= 0 {
		return Manifest{}, false
	}
	for i := 0; i < m.Frames; i++ {
		if !h.Has(i) {
			return Manifest{}, false
		}
	}
	return m, true
}

// Len returns the sealed frame count, or 0 before Seal.
func (h *Handle) Len() int {
	m, err := h.Manifest()
	if err != nil {
		return 0
	}
	return m.Frames
}

// Frame reads frame i of a sealed entry.
func (h *Handle) Frame(i int) (*frame.AsciiFrame, error) {
	if n := h.Len(); i < 0 || i >= n {
		return nil, fmt.Errorf("frame %d out of range [0,%d)", i, n)
	}
	return h.Read(i)
}

// Remove deletes the entry from disk.
func (h *Handle) Remove() error {
	h.mu.Lock()
	h.manifest = nil
	h.mu.Unlock()
	if err := os.RemoveAll(h.dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %w", frame.ErrCacheIO, h.dir, err)
	}
	return nil
}

func writeAtomic(dir, dst string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, dst); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}
