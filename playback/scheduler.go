// Package playback paces a converted frame sequence against the clock and
// draws it to a terminal.
package playback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"asciireel/frame"
	"asciireel/subtitle"
)

// Frames is a random-access, ordered frame sequence. frame.Sequence and
// cache handles both satisfy it.
type Frames interface {
	Len() int
	Frame(i int) (*frame.AsciiFrame, error)
}

// Scene is everything drawn for one frame.
type Scene struct {
	Index     int
	Total     int
	Iteration int
	Frame     *frame.AsciiFrame
	// Subtitle holds the active cue's lines, nil when none is active.
	Subtitle []string
	// Progress is the formatted progress bar, empty when disabled.
	Progress string
}

// Renderer draws scenes. End is always called once Begin has succeeded,
// whatever way the session ends.
type Renderer interface {
	Begin() error
	Render(Scene) error
	End() error
}

// Options tune a playback session.
type Options struct {
	FPS       float64
	Speed     float64
	Loop      bool
	Progress  bool
	Subtitles *subtitle.Track
	Clock     Clock
	Logger    *log.Logger
}

// Scheduler plays one session. It is not reusable.
type Scheduler struct {
	frames   Frames
	renderer Renderer
	opts     Options
	clock    Clock
	logger   *log.Logger

	mu        sync.Mutex
	state     State
	listeners []Listener
}

// New validates opts and returns an idle scheduler.
func New(frames Frames, r Renderer, opts Options) (*Scheduler, error) {
	var problems []string
	if !(opts.FPS > 0) || math.IsInf(opts.FPS, 0) {
		problems = append(problems, fmt.Sprintf("fps must be positive, got %v", opts.FPS))
	}
	if !(opts.Speed > 0) || math.IsInf(opts.Speed, 0) {
		problems = append(problems, fmt.Sprintf("speed must be positive, got %v", opts.Speed))
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", frame.ErrInvalidSettings, strings.Join(problems, "; "))
	}
	if frames == nil || r == nil {
		return nil, errors.New("playback: frames and renderer are required")
	}
	s := &Scheduler{
		frames:   frames,
		renderer: r,
		opts:     opts,
		clock:    opts.Clock,
		logger:   opts.Logger,
	}
	if s.clock == nil {
		s.clock = WallClock{}
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s, nil
}

// OnStateChange registers l for every later transition.
func (s *Scheduler) OnStateChange(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) setState(to State) {
	s.mu.Lock()
	from := s.state
	if from == to || !canTransition(from, to) {
		s.mu.Unlock()
		return
	}
	s.state = to
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	s.logger.Debug("playback state", "from", from, "to", to)
	for _, l := range listeners {
		l(from, to)
	}
}

// offset is the target time of frame i relative to the session start.
func (s *Scheduler) offset(i int) time.Duration {
	return time.Duration(math.Round(float64(i) * float64(time.Second) / (s.opts.FPS * s.opts.Speed)))
}

// Run plays the sequence until it ends, or forever when looping, or until
// ctx is cancelled. Cancellation ends in the Cancelled state with a nil
// error. The renderer's End runs on every path once Begin succeeded.
func (s *Scheduler) Run(ctx context.Context) (_ State, err error) {
	if st := s.State(); st != Idle {
		return st, fmt.Errorf("playback: session already %s", st)
	}
	if err := s.renderer.Begin(); err != nil {
		return Idle, fmt.Errorf("playback: begin: %w", err)
	}
	defer func() {
		if endErr := s.renderer.End(); endErr != nil && err == nil {
			err = fmt.Errorf("playback: end: %w", endErr)
		}
	}()

	total := s.frames.Len()
	if total == 0 {
		s.setState(Stopped)
		return Stopped, nil
	}

	frameTime := s.offset(1)
	start := s.clock.Now()
	s.setState(Playing)

	for iteration := 0; ; iteration++ {
		for i := 0; i < total; i++ {
			if ctx.Err() != nil {
				return s.cancel(i), nil
			}
			if werr := s.clock.WaitUntil(ctx, start.Add(s.offset(i))); werr != nil {
				if ctx.Err() != nil {
					return s.cancel(i), nil
				}
				s.setState(Stopped)
				return Stopped, werr
			}
			if rerr := s.show(i, total, iteration); rerr != nil {
				s.setState(Stopped)
				return Stopped, rerr
			}
		}

		if !s.opts.Loop {
			s.setState(Stopped)
			return Stopped, nil
		}
		s.setState(Looping)

		end := start.Add(s.offset(total))
		now := s.clock.Now()
		if lag := now.Sub(end); lag > frameTime {
			s.logger.Debug("playback fell behind, re-anchoring", "lag", lag)
			start = now
		} else {
			start = end
		}
		s.setState(Playing)
	}
}

func (s *Scheduler) cancel(i int) State {
	s.logger.Debug("playback cancelled", "frame", i)
	s.setState(Cancelled)
	return Cancelled
}

func (s *Scheduler) show(i, total, iteration int) error {
	f, err := s.frames.Frame(i)
	if err != nil {
		return frame.AtIndex(i, err)
	}
	scene := Scene{
		Index:     i,
		Total:     total,
		Iteration: iteration,
		Frame:     f,
	}
	if cue, ok := s.opts.Subtitles.ForFrame(i, s.opts.FPS); ok {
		scene.Subtitle = cue.Lines()
	}
	if s.opts.Progress {
		scene.Progress = ProgressBar(i+1, total, progressWidth)
	}
	if err := s.renderer.Render(scene); err != nil {
		return frame.AtIndex(i, fmt.Errorf("render: %w", err))
	}
	return nil
}
