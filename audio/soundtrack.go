// Package audio plays an MP3 soundtrack in step with a playback session.
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/go-mp3"

	"asciireel/playback"
)

// go-mp3 always decodes to signed 16-bit little-endian stereo.
const (
	channels       = 2
	bytesPerSample = 2
)

// Player is one stream on an output device.
type Player interface {
	Play()
	Pause()
	IsPlaying() bool
	Seek(offset int64, whence int) (int64, error)
	Close() error
}

// Device creates players for 16-bit stereo PCM streams.
type Device interface {
	NewPlayer(r io.Reader) Player
}

type otoDevice struct {
	ctx *oto.Context
}

func (d otoDevice) NewPlayer(r io.Reader) Player {
	return d.ctx.NewPlayer(r)
}

var (
	deviceOnce sync.Once
	device     Device
	deviceRate int
	deviceErr  error
)

// SystemDevice opens the system audio output. oto allows one context per
// process, so the first sample rate requested is the only one available.
func SystemDevice(sampleRate int) (Device, error) {
	deviceOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			deviceErr = fmt.Errorf("opening audio output: %w", err)
			return
		}
		<-ready
		device, deviceRate = otoDevice{ctx: ctx}, sampleRate
	})
	if deviceErr != nil {
		return nil, deviceErr
	}
	if sampleRate != deviceRate {
		return nil, fmt.Errorf("audio output is open at %d Hz, soundtrack needs %d Hz", deviceRate, sampleRate)
	}
	return device, nil
}

// Soundtrack manages one audio stream with pause and rewind.
type Soundtrack struct {
	mu      sync.Mutex
	player  Player
	closer  io.Closer
	playing bool
	paused  bool
	logger  *log.Logger
}

// Open decodes the MP3 file at path and attaches it to the system output.
func Open(path string, logger *log.Logger) (*Soundtrack, error) {
	if logger == nil {
		logger = log.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audio file: %w", err)
	}
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	dev, err := SystemDevice(dec.SampleRate())
	if err != nil {
		f.Close()
		return nil, err
	}

	s := New(dev, dec, logger)
	s.closer = f
	length := time.Duration(0)
	if n := dec.Length(); n > 0 {
		length = time.Duration(n) * time.Second / time.Duration(dec.SampleRate()*channels*bytesPerSample)
	}
	logger.Info("soundtrack loaded", "path", path, "sample_rate", dec.SampleRate(), "length", length.Round(time.Millisecond))
	return s, nil
}

// New plays pcm on dev. pcm must be an io.Seeker for Stop to rewind.
func New(dev Device, pcm io.Reader, logger *log.Logger) *Soundtrack {
	if logger == nil {
		logger = log.Default()
	}
	return &Soundtrack{player: dev.NewPlayer(pcm), logger: logger}
}

// Play starts playback from the current position.
func (s *Soundtrack) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player == nil || s.playing {
		return
	}
	s.playing = true
	s.paused = false
	s.player.Play()
}

// Pause holds playback at the current position.
func (s *Soundtrack) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player == nil || !s.playing || s.paused {
		return
	}
	s.paused = true
	s.player.Pause()
}

// Resume continues after Pause.
func (s *Soundtrack) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player == nil || !s.playing || !s.paused {
		return
	}
	s.paused = false
	s.player.Play()
}

// Stop halts playback and rewinds to the beginning.
func (s *Soundtrack) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player == nil || !s.playing {
		return
	}
	s.playing = false
	s.paused = false
	s.player.Pause()
	if _, err := s.player.Seek(0, io.SeekStart); err != nil {
		s.logger.Warn("could not rewind soundtrack", "err", err)
	}
}

// IsPlaying reports whether audio is audible right now. A stream that ran
// out counts as stopped.
func (s *Soundtrack) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playing && !s.paused && !s.player.IsPlaying() {
		s.playing = false
	}
	return s.playing && !s.paused
}

// IsPaused reports whether playback is held by Pause.
func (s *Soundtrack) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing && s.paused
}

// Follow keeps the soundtrack in step with a scheduler. It is a
// playback.Listener: each loop iteration restarts the audio from the top.
func (s *Soundtrack) Follow(from, to playback.State) {
	switch to {
	case playback.Playing:
		if from == playback.Looping {
			s.Stop()
		}
		s.Play()
	case playback.Stopped, playback.Cancelled:
		s.Stop()
	}
}

// Close releases the player and the underlying file.
func (s *Soundtrack) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playing = false
	s.paused = false
	var errs []error
	if s.player != nil {
		errs = append(errs, s.player.Close())
		s.player = nil
	}
	if s.closer != nil {
		errs = append(errs, s.closer.Close())
		s.closer = nil
	}
	return errors.Join(errs...)
}
