package convert

import (
	"fmt"
	"strings"

	"asciireel/frame"
	"asciireel/ramp"
)

// Settings fixes every parameter of one conversion run. A Settings value is
// never mutated once a run starts.
type Settings struct {
	Width         int
	AspectRatio   float64
	Ramp          ramp.Ramp
	Invert        bool
	Edge          bool
	EdgeThreshold float64
	Color         bool
}

// DefaultSettings mirrors the classic preset.
func DefaultSettings() Settings {
	return Settings{
		Width:         160,
		AspectRatio:   2.0,
		Ramp:          ramp.MustParse(ramp.DefaultName),
		EdgeThreshold: 0.15,
	}
}

// Validate reports every out-of-range value at once.
func (s Settings) Validate() error {
	var problems []string
	if s.Width <= 0 {
		problems = append(problems, fmt.Sprintf("width must be positive, got %d", s.Width))
	}
	if !(s.AspectRatio > 0) {
		problems = append(problems, fmt.Sprintf("aspect ratio must be positive, got %v", s.AspectRatio))
	}
	if s.Ramp.Len() < 2 {
		problems = append(problems, "charset must have at least 2 characters")
	}
	if !(s.EdgeThreshold >= 0 && s.EdgeThreshold <= 1) {
		problems = append(problems, fmt.Sprintf("edge threshold must be within [0, 1], got %v", s.EdgeThreshold))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", frame.ErrInvalidSettings, strings.Join(problems, "; "))
	}
	return nil
}

// Rows returns the output row count for a source of srcW x srcH pixels.
func (s Settings) Rows(srcW, srcH int) int {
	rows := int(float64(s.Width)*float64(srcH)/float64(srcW)/s.AspectRatio + 0.5)
	if rows < 1 {
		rows = 1
	}
	return rows
}
