package playback

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asciireel/frame"
)

func TestScreenLifecycle(t *testing.T) {
	var buf bytes.Buffer
	s := NewScreen(&buf, nil, termenv.WithProfile(termenv.TrueColor))

	require.NoError(t, s.Begin())
	assert.Contains(t, buf.String(), "\x1b[?25l")
	assert.Contains(t, buf.String(), "\x1b[2J")

	buf.Reset()
	require.NoError(t, s.Render(Scene{Frame: gridFrame(2, 3, '#')}))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\x1b[1;1H"))
	assert.Contains(t, out, "###\x1b[0K\n###\x1b[0K")

	buf.Reset()
	require.NoError(t, s.End())
	assert.Contains(t, buf.String(), "\x1b[0m")
	assert.Contains(t, buf.String(), "\x1b[?25h")

	buf.Reset()
	require.NoError(t, s.End())
	assert.Empty(t, buf.String(), "End is idempotent")
}

func TestScreenSchemeBackground(t *testing.T) {
	var buf bytes.Buffer
	scheme := frame.SchemeC64
	s := NewScreen(&buf, &scheme, termenv.WithProfile(termenv.TrueColor))
	require.NoError(t, s.Begin())
	assert.Contains(t, buf.String(), "\x1b[48;2;53;40;121m")
}

func TestCancelledPlaybackLeavesCursorVisible(t *testing.T) {
	var buf bytes.Buffer
	screen := NewScreen(&buf, nil, termenv.WithProfile(termenv.TrueColor))
	clock := newFakeClock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var rendered int
	counting := &renderHook{Screen: screen, hook: func(sc Scene) {
		rendered++
		if sc.Index == 10 {
			cancel()
		}
	}}

	s, err := New(sequence(100), counting, Options{FPS: 30, Speed: 1, Clock: clock})
	require.NoError(t, err)
	state, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Cancelled, state)
	assert.Equal(t, 11, rendered)

	out := buf.String()
	hide := strings.LastIndex(out, "\x1b[?25l")
	show := strings.LastIndex(out, "\x1b[?25h")
	require.NotEqual(t, -1, show)
	assert.Greater(t, show, hide)
	assert.True(t, strings.HasSuffix(out, "\x1b[0m\x1b[?25h\n"))
}

type renderHook struct {
	*Screen
	hook func(Scene)
}

func (r *renderHook) Render(sc Scene) error {
	if err := r.Screen.Render(sc); err != nil {
		return err
	}
	r.hook(sc)
	return nil
}
