package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/log"

	"asciireel/export"
	"asciireel/frame"
	"asciireel/ramp"
)

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// Validate checks every option and reports all problems in one error
// wrapping frame.ErrInvalidSettings.
func (c *Config) Validate() error {
	var problems []string

	if c.Width < 0 {
		problems = append(problems, "width cannot be negative (use 0 for terminal width)")
	}
	if !positive(c.FPS) {
		problems = append(problems, fmt.Sprintf("fps must be positive, got %v", c.FPS))
	}
	if !positive(c.Speed) {
		problems = append(problems, fmt.Sprintf("speed must be positive, got %v", c.Speed))
	}
	if !positive(c.AspectRatio) {
		problems = append(problems, fmt.Sprintf("aspect ratio must be positive, got %v", c.AspectRatio))
	}
	if !(c.EdgeThreshold >= 0 && c.EdgeThreshold <= 1) {
		problems = append(problems, fmt.Sprintf("edge threshold must be within [0, 1], got %v", c.EdgeThreshold))
	}
	if _, err := ramp.Parse(c.Charset); err != nil {
		problems = append(problems, fmt.Sprintf("charset: %v", strings.TrimPrefix(err.Error(), frame.ErrInvalidSettings.Error()+": ")))
	}
	if c.Workers < 0 {
		problems = append(problems, "workers cannot be negative (use 0 for one per CPU)")
	}
	if c.Scheme != "" {
		if _, ok := frame.LookupScheme(c.Scheme); !ok {
			problems = append(problems, fmt.Sprintf("unknown colour scheme %q (want crt or c64)", c.Scheme))
		}
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("invalid log level %q", c.LogLevel))
	}
	if _, err := export.ParseCodec(c.Export.Codec); err != nil {
		problems = append(problems, fmt.Sprintf("unknown export codec %q", c.Export.Codec))
	}
	if !positive(c.Export.FontSize) {
		problems = append(problems, "export font size must be positive")
	}
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		problems = append(problems, fmt.Sprintf("serve port out of range: %d", c.Serve.Port))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w:\n  - %s", frame.ErrInvalidSettings, strings.Join(problems, "\n  - "))
	}
	return nil
}
