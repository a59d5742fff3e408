// Package subtitle parses SRT files and answers which cue is on screen at a
// given media time.
package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Cue is a single subtitle entry. It is visible on [Start, End).
type Cue struct {
	ID    int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Lines splits the cue text on its line breaks.
func (c Cue) Lines() []string {
	return strings.Split(c.Text, "\n")
}

// ParseFile opens and parses an SRT file.
func ParseFile(path string) ([]Cue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open srt file: %w", err)
	}
	defer f.Close()
	return ParseSRT(f)
}

// ParseSRT reads SRT blocks from r. Blocks with a malformed timing line or
// no text are skipped.
func ParseSRT(r io.Reader) ([]Cue, error) {
	var cues []Cue
	scanner := bufio.NewScanner(r)
	var current Cue
	var step int

	flush := func() {
		if step == 2 && current.Text != "" {
			cues = append(cues, current)
		}
		current = Cue{}
		step = 0
	}

	first := true
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}

		switch step {
		case 0:
			id, err := strconv.Atoi(strings.TrimSpace(line))
			if err == nil {
				current.ID = id
				step++
			}
		case 1:
			start, end, err := parseTiming(line)
			if err != nil {
				// not a cue after all
				current = Cue{}
				step = 0
				continue
			}
			current.Start, current.End = start, end
			step++
		case 2:
			if strings.TrimSpace(line) == "" {
				flush()
				continue
			}
			if current.Text != "" {
				current.Text += "\n"
			}
			current.Text += strings.TrimSpace(line)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading srt file: %w", err)
	}
	return cues, nil
}

func parseTiming(line string) (time.Duration, time.Duration, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	start, err := parseSRTTime(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	// Position hints may follow the end timestamp.
	endField := strings.Fields(parts[1])
	if len(endField) == 0 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	end, err := parseSRTTime(endField[0])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseSRTTime parses HH:MM:SS,mmm. A dot is accepted in place of the comma.
func parseSRTTime(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid time format %q", s)
	}
	secMs := strings.FieldsFunc(parts[2], func(r rune) bool { return r == ',' || r == '.' })
	if len(secMs) != 2 {
		return 0, fmt.Errorf("invalid time format %q", s)
	}

	var fields [4]int
	for i, p := range []string{parts[0], parts[1], secMs[0], secMs[1]} {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid time format %q", s)
		}
		fields[i] = v
	}

	return time.Hour*time.Duration(fields[0]) +
		time.Minute*time.Duration(fields[1]) +
		time.Second*time.Duration(fields[2]) +
		time.Millisecond*time.Duration(fields[3]), nil
}
