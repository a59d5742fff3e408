// Package serve hosts interactive playback: a Bubble Tea model for a local
// terminal and an SSH server that gives every session its own player.
package serve

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"asciireel/audio"
	"asciireel/frame"
	"asciireel/metrics"
	"asciireel/playback"
	"asciireel/subtitle"
)

const (
	minSpeed     = 0.25
	maxSpeed     = 8
	// The key help stays up this long after playback starts.
	introSeconds = 3.0
	helpText     = "[space] pause | [r] restart | [s] subs | [l] loop | [+/-] speed | [q] quit"
)

// Options configure an interactive player.
type Options struct {
	FPS       float64
	Speed     float64
	Loop      bool
	Progress  bool
	Subtitles *subtitle.Track
	Scheme    *frame.Scheme
	// Renderer decides the colour profile; nil means the local terminal.
	Renderer *lipgloss.Renderer
	// Audio, when set, follows play, pause and restart.
	Audio   *audio.Soundtrack
	Metrics *metrics.Metrics
	Logger  *log.Logger
	Now     func() time.Time
}

// Model is a Bubble Tea player over a converted frame sequence. Frame
// selection is derived from elapsed wall time, so a slow terminal drops
// frames instead of drifting.
type Model struct {
	frames playback.Frames
	opts   Options
	layout playback.Layout
	status lipgloss.Style
	help   lipgloss.Style

	speed    float64
	loop     bool
	showSubs bool
	playing  bool
	finished bool

	// base is the frame position reached at segStart.
	base      float64
	segStart  time.Time
	index     int
	iteration int
	gen       int

	width int
}

type tickMsg struct {
	gen int
}

func validRate(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// NewModel returns a model that starts playing as soon as it is run.
func NewModel(frames playback.Frames, opts Options) (Model, error) {
	if !validRate(opts.FPS) {
		return Model{}, fmt.Errorf("%w: fps must be positive, got %v", frame.ErrInvalidSettings, opts.FPS)
	}
	if opts.Speed == 0 {
		opts.Speed = 1
	}
	if !validRate(opts.Speed) {
		return Model{}, fmt.Errorf("%w: speed must be positive, got %v", frame.ErrInvalidSettings, opts.Speed)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	r := opts.Renderer
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}

	status := r.NewStyle().Bold(true)
	if opts.Scheme != nil {
		status = status.Foreground(lipgloss.Color(opts.Scheme.Tint.Hex()))
	}
	return Model{
		frames:   frames,
		opts:     opts,
		layout:   playback.Layout{Profile: r.ColorProfile(), Scheme: opts.Scheme},
		status:   status,
		help:     r.NewStyle().Faint(true),
		speed:    opts.Speed,
		loop:     opts.Loop,
		showSubs: opts.Subtitles != nil,
		playing:  true,
		segStart: opts.Now(),
		width:    80,
	}, nil
}

// Init starts the clock and the soundtrack.
func (m Model) Init() tea.Cmd {
	if m.opts.Audio != nil {
		m.opts.Audio.Play()
	}
	return m.tick(0)
}

func (m Model) tick(d time.Duration) tea.Cmd {
	gen := m.gen
	if d <= 0 {
		return func() tea.Msg { return tickMsg{gen: gen} }
	}
	return tea.Tick(d, func(time.Time) tea.Msg { return tickMsg{gen: gen} })
}

func (m Model) rate() float64 {
	return m.opts.FPS * m.speed
}

func (m Model) position(now time.Time) float64 {
	if !m.playing {
		return m.base
	}
	return m.base + now.Sub(m.segStart).Seconds()*m.rate()
}

// Update handles key presses, resizes and clock ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.key(msg.String())

	case tickMsg:
		if msg.gen != m.gen || !m.playing {
			return m, nil
		}
		return m.advance()
	}
	return m, nil
}

func (m Model) key(k string) (tea.Model, tea.Cmd) {
	now := m.opts.Now()
	switch k {
	case "q", "ctrl+c", "esc":
		if m.opts.Audio != nil {
			m.opts.Audio.Stop()
		}
		return m, tea.Quit

	case " ":
		switch {
		case m.finished:
			return m.restart(now)
		case m.playing:
			m.base = m.position(now)
			m.playing = false
			m.gen++
			if m.opts.Audio != nil {
				m.opts.Audio.Pause()
			}
			return m, nil
		default:
			m.segStart = now
			m.playing = true
			m.gen++
			if m.opts.Audio != nil {
				m.opts.Audio.Resume()
			}
			return m, m.tick(0)
		}

	case "r":
		return m.restart(now)

	case "s":
		m.showSubs = !m.showSubs && m.opts.Subtitles != nil
		return m, nil

	case "l":
		m.loop = !m.loop
		return m, nil

	case "+", "=":
		return m.setSpeed(now, m.speed*2)

	case "-", "_":
		return m.setSpeed(now, m.speed/2)
	}
	return m, nil
}

func (m Model) restart(now time.Time) (tea.Model, tea.Cmd) {
	m.base = 0
	m.index = 0
	m.iteration = 0
	m.finished = false
	m.playing = true
	m.segStart = now
	m.gen++
	if m.opts.Audio != nil {
		m.opts.Audio.Stop()
		m.opts.Audio.Play()
	}
	return m, m.tick(0)
}

func (m Model) setSpeed(now time.Time, speed float64) (tea.Model, tea.Cmd) {
	speed = math.Max(minSpeed, math.Min(maxSpeed, speed))
	if speed == m.speed {
		return m, nil
	}
	m.base = m.position(now)
	m.segStart = now
	m.speed = speed
	m.gen++
	if !m.playing {
		return m, nil
	}
	return m, m.tick(0)
}

// advance moves to the frame the clock says is current and schedules the
// next tick at the following frame boundary.
func (m Model) advance() (tea.Model, tea.Cmd) {
	total := m.frames.Len()
	if total == 0 {
		m.playing, m.finished = false, true
		return m, nil
	}
	pos := m.position(m.opts.Now())
	idx := int(pos)
	if idx >= total {
		if !m.loop {
			m.index = total - 1
			m.base = float64(total)
			m.playing = false
			m.finished = true
			if m.opts.Audio != nil {
				m.opts.Audio.Stop()
			}
			m.opts.Logger.Debug("playback finished", "frames", total)
			return m, nil
		}
		wraps := idx / total
		m.base -= float64(wraps * total)
		pos -= float64(wraps * total)
		idx -= wraps * total
		m.iteration += wraps
		if m.opts.Audio != nil {
			m.opts.Audio.Stop()
			m.opts.Audio.Play()
		}
	}
	if idx != m.index {
		m.opts.Metrics.FrameRendered()
	}
	m.index = idx

	wait := time.Duration((float64(idx+1) - pos) / m.rate() * float64(time.Second))
	return m, m.tick(wait)
}

func (m Model) scene() (playback.Scene, error) {
	total := m.frames.Len()
	f, err := m.frames.Frame(m.index)
	if err != nil {
		return playback.Scene{}, err
	}
	sc := playback.Scene{Index: m.index, Total: total, Iteration: m.iteration, Frame: f}
	if m.showSubs {
		if cue, ok := m.opts.Subtitles.ForFrame(m.index, m.opts.FPS); ok {
			sc.Subtitle = cue.Lines()
		}
	}
	if m.opts.Progress {
		sc.Progress = playback.ProgressBar(m.index+1, total, 40)
	}
	return sc, nil
}

func (m Model) statusLine() string {
	state := "playing"
	switch {
	case m.finished:
		state = "finished"
	case !m.playing:
		state = "paused"
	}
	parts := []string{state, fmt.Sprintf("%gx", m.speed)}
	if m.loop {
		parts = append(parts, "loop")
	}
	if m.showSubs {
		parts = append(parts, "subs")
	}
	return m.status.Render(strings.Join(parts, " · "))
}

// View renders the current frame with overlays, a status line and, early
// on or while stopped, the key help.
func (m Model) View() string {
	var b strings.Builder
	if m.frames.Len() == 0 {
		b.WriteString("No frames to play.\n")
	} else if sc, err := m.scene(); err != nil {
		fmt.Fprintf(&b, "Error reading frame %d: %v\n", m.index, err)
	} else {
		b.WriteString(m.layout.String(sc))
		b.WriteByte('\n')
	}

	b.WriteString(m.statusLine())
	intro := m.iteration == 0 && float64(m.index) < introSeconds*m.opts.FPS
	if !m.playing || intro {
		b.WriteByte('\n')
		b.WriteString(m.help.Width(m.width).Align(lipgloss.Center).Render(helpText))
	}
	return b.String()
}
