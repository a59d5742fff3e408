package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Stream is the subset of ffprobe's stream description we rely on.
type Stream struct {
	Index        int    `json:"index"`
	CodecName    string `json:"codec_name"`
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	AvgFrameRate string `json:"avg_frame_rate,omitempty"`
	RFrameRate   string `json:"r_frame_rate,omitempty"`
	NbFrames     string `json:"nb_frames,omitempty"`
	Duration     string `json:"duration,omitempty"`
}

// Format is the container description.
type Format struct {
	Filename string `json:"filename"`
	Duration string `json:"duration"`
}

// ProbeResult holds what ffprobe reported about a media file.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Video returns the first video stream.
func (pr *ProbeResult) Video() (Stream, error) {
	for _, s := range pr.Streams {
		if s.CodecType == "video" {
			if s.Width <= 0 || s.Height <= 0 {
				return Stream{}, fmt.Errorf("video stream %d has no dimensions", s.Index)
			}
			return s, nil
		}
	}
	return Stream{}, errors.New("no video stream")
}

// HasSubtitles reports whether the file carries a subtitle stream.
func (pr *ProbeResult) HasSubtitles() bool {
	for _, s := range pr.Streams {
		if s.CodecType == "subtitle" {
			return true
		}
	}
	return false
}

// Duration returns the container duration in seconds.
func (pr *ProbeResult) Duration() (float64, error) {
	if pr.Format.Duration == "" {
		return 0, errors.New("duration not available in format metadata")
	}
	d, err := strconv.ParseFloat(pr.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration '%s': %w", pr.Format.Duration, err)
	}
	return d, nil
}

// FrameRate returns the stream's average frame rate, falling back to the
// nominal one.
func (s Stream) FrameRate() (float64, error) {
	for _, r := range []string{s.AvgFrameRate, s.RFrameRate} {
		if fps, err := parseRate(r); err == nil && fps > 0 {
			return fps, nil
		}
	}
	return 0, fmt.Errorf("stream %d has no usable frame rate", s.Index)
}

// parseRate parses "30000/1001" or "25".
func parseRate(s string) (float64, error) {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, err
	}
	if !found {
		return n, nil
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return 0, errors.New("zero denominator")
	}
	return n / d, nil
}

// Probe runs ffprobe on path.
func Probe(ctx context.Context, ffprobe, path string) (*ProbeResult, error) {
	if path == "" {
		return nil, errors.New("source path cannot be empty")
	}
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseProbe(output)
}

func parseProbe(data []byte) (*ProbeResult, error) {
	var result ProbeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe JSON output: %w", err)
	}
	return &result, nil
}
