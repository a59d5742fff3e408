// Package ramp maps normalised brightness to display characters.
package ramp

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"asciireel/frame"
)

// DefaultName is the ramp used when none is configured.
const DefaultName = "classic"

// Built-in ramps, sparsest glyph first.
var builtin = map[string]string{
	"classic": " .:-=+*#%@",
	"blocks":  " ░▒▓█",
	"braille": " ⠁⠂⠃⠄⠅⠆⠇⠈⠉⠊⠋⠌⠍⠎⠏⠐⠑⠒⠓⠔⠕⠖⠗⠘⠙⠚⠛⠜⠝⠞⠟⠠⠡⠢⠣⠤⠥⠦⠧⠨⠩⠪⠫⠬⠭⠮⠯⠰⠱⠲⠳⠴⠵⠶⠷⠸⠹⠺⠻⠼⠽⠾⠿",
	"dense":   " .'`^\",:;Il!i><~+_-?][}{1)(|\\/tfjrxnuvczXYUJCLQ0OZmwqpdbkhao*#MW&8%B@$",
	"simple":  " .oO0",
	// PETSCII-style block graphics ordered by coverage.
	"petscii": " ░▁▏▔▎▂▕▍▃▌▄▒▓▗▖▘▝▚▙▛▜▉▊▋▆▇▅█",
}

// Ramp is an ordered lookup table: index 0 is used for the darkest
// luminance, the last index for the brightest.
type Ramp struct {
	name  string
	chars []rune
}

// Names lists the built-in ramps in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for n := range builtin {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Parse resolves a built-in ramp by name (case-insensitive) or accepts
// the argument verbatim as a custom ramp.
func Parse(s string) (Ramp, error) {
	if chars, ok := builtin[strings.ToLower(s)]; ok {
		return Ramp{name: strings.ToLower(s), chars: []rune(chars)}, nil
	}
	return New(s)
}

// MustParse is Parse for known-good input.
func MustParse(s string) Ramp {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

// New builds a custom ramp from chars.
func New(chars string) (Ramp, error) {
	runes := []rune(chars)
	if len(runes) < 2 {
		return Ramp{}, fmt.Errorf("%w: charset %q needs at least 2 characters", frame.ErrInvalidSettings, chars)
	}
	seen := make(map[rune]struct{}, len(runes))
	for _, r := range runes {
		if r == '\n' || r == '\r' || unicode.IsControl(r) {
			return Ramp{}, fmt.Errorf("%w: charset contains control character %U", frame.ErrInvalidSettings, r)
		}
		if _, dup := seen[r]; dup {
			return Ramp{}, fmt.Errorf("%w: charset repeats %q", frame.ErrInvalidSettings, r)
		}
		seen[r] = struct{}{}
	}
	return Ramp{name: "custom", chars: runes}, nil
}

// Name returns the built-in name or "custom".
func (r Ramp) Name() string { return r.name }

// Len returns the number of characters.
func (r Ramp) Len() int { return len(r.chars) }

// IsZero reports whether r was never initialised.
func (r Ramp) IsZero() bool { return len(r.chars) == 0 }

// String returns the characters in order.
func (r Ramp) String() string { return string(r.chars) }

// Char returns the character at index i.
func (r Ramp) Char(i int) rune { return r.chars[i] }

// Index maps b in [0,1] to floor(b*(N-1)), clamped; invert mirrors it.
func (r Ramp) Index(b float64, invert bool) int {
	n := len(r.chars)
	idx := 0
	if !math.IsNaN(b) {
		idx = int(math.Floor(b * float64(n-1)))
	}
	if idx < 0 {
		idx = 0
	} else if idx > n-1 {
		idx = n - 1
	}
	if invert {
		return n - 1 - idx
	}
	return idx
}

// Lookup returns the character for brightness b.
func (r Ramp) Lookup(b float64, invert bool) rune {
	return r.chars[r.Index(b, invert)]
}
