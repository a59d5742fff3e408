package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"asciireel/convert"
)

// SourceID identifies the input a cache entry was built from.
type SourceID struct {
	Path    string
	Size    int64
	ModTime time.Time
	// Rate is the extraction frame rate; the same file sampled at a
	// different rate yields a different frame sequence.
	Rate float64
	// Filter names any pre-scale filter applied at extraction.
	Filter string
}

// Identify stats path and builds its SourceID.
func Identify(path string, rate float64) (SourceID, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return SourceID{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return SourceID{}, err
	}
	return SourceID{Path: abs, Size: info.Size(), ModTime: info.ModTime(), Rate: rate}, nil
}

// Fingerprint hashes the source identity together with every conversion
// setting. Equal fingerprints mean equal frame sequences.
func Fingerprint(id SourceID, s convert.Settings) string {
	h := sha256.New()
	fmt.Fprintf(h, "v%d\n", formatVersion)
	fmt.Fprintf(h, "path=%s\nsize=%d\nmtime=%d\nrate=%g\nfilter=%q\n", id.Path, id.Size, id.ModTime.UnixNano(), id.Rate, id.Filter)
	fmt.Fprintf(h, "width=%d\naspect=%g\ncharset=%q\ninvert=%t\nedge=%t\nthreshold=%g\ncolor=%t\n",
		s.Width, s.AspectRatio, s.Ramp.String(), s.Invert, s.Edge, s.EdgeThreshold, s.Color)
	return hex.EncodeToString(h.Sum(nil))[:32]
}
