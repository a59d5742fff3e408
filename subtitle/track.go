package subtitle

import (
	"math"
	"sort"
	"time"
)

// Track is a time-ordered, non-overlapping set of cues.
type Track struct {
	cues []Cue
}

// NewTrack sorts cues by start time and trims any cue that runs into the
// next one. Cues that end up empty are dropped.
func NewTrack(cues []Cue) *Track {
	sorted := make([]Cue, 0, len(cues))
	for _, c := range cues {
		if c.End > c.Start {
			sorted = append(sorted, c)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	kept := sorted[:0]
	for i, c := range sorted {
		if i+1 < len(sorted) && c.End > sorted[i+1].Start {
			c.End = sorted[i+1].Start
		}
		if c.End > c.Start {
			kept = append(kept, c)
		}
	}
	return &Track{cues: kept}
}

// Len returns the number of cues.
func (t *Track) Len() int {
	if t == nil {
		return 0
	}
	return len(t.cues)
}

// Cues returns the ordered cues.
func (t *Track) Cues() []Cue {
	if t == nil {
		return nil
	}
	return t.cues
}

// At returns the cue visible at media time d.
func (t *Track) At(d time.Duration) (Cue, bool) {
	if t == nil {
		return Cue{}, false
	}
	i := sort.Search(len(t.cues), func(i int) bool { return t.cues[i].End > d })
	if i < len(t.cues) && t.cues[i].Start <= d {
		return t.cues[i], true
	}
	return Cue{}, false
}

// ForFrame returns the cue visible on frame i of a sequence played at fps.
func (t *Track) ForFrame(i int, fps float64) (Cue, bool) {
	if fps <= 0 {
		return Cue{}, false
	}
	return t.At(MediaTime(i, fps))
}

// MediaTime is the presentation time of frame i: i/fps.
func MediaTime(i int, fps float64) time.Duration {
	return time.Duration(math.Round(float64(i) * float64(time.Second) / fps))
}
