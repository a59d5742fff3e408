package serve

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"asciireel/metrics"
	"asciireel/playback"
)

const shutdownTimeout = 30 * time.Second

// ServerOptions configure the SSH front-end.
type ServerOptions struct {
	Host    string
	Port    int
	HostKey string
	// MetricsAddr, when set, also serves Prometheus metrics over HTTP.
	MetricsAddr string
	IdleTimeout time.Duration
	// Player is copied into every session. Audio is ignored: sessions
	// are remote.
	Player Options
}

// Server streams playback to every SSH client that connects.
type Server struct {
	frames   playback.Frames
	opts     ServerOptions
	logger   *log.Logger
	ssh      *ssh.Server
	exporter *metrics.Exporter
}

// NewServer prepares, but does not start, the SSH server.
func NewServer(frames playback.Frames, opts ServerOptions) (*Server, error) {
	logger := opts.Player.Logger
	if logger == nil {
		logger = log.Default()
	}
	opts.Player.Logger = logger
	opts.Player.Audio = nil
	if opts.MetricsAddr != "" && opts.Player.Metrics == nil {
		opts.Player.Metrics = metrics.New()
	}

	// Fail before accepting anyone if the player options are unusable.
	if _, err := NewModel(frames, opts.Player); err != nil {
		return nil, err
	}

	s := &Server{frames: frames, opts: opts, logger: logger}
	sshOpts := []ssh.Option{
		wish.WithAddress(s.Addr()),
		wish.WithHostKeyPath(opts.HostKey),
		wish.WithMiddleware(
			bubbletea.Middleware(s.teaHandler),
			activeterm.Middleware(), // Bubble Tea apps usually require a PTY.
			logging.StructuredMiddlewareWithLogger(logger, log.InfoLevel),
		),
	}
	if opts.IdleTimeout > 0 {
		sshOpts = append(sshOpts, wish.WithIdleTimeout(opts.IdleTimeout))
	}
	srv, err := wish.NewServer(sshOpts...)
	if err != nil {
		return nil, err
	}
	s.ssh = srv
	if opts.MetricsAddr != "" {
		s.exporter = metrics.NewExporter(opts.MetricsAddr, opts.Player.Metrics)
	}
	return s, nil
}

// Addr is the SSH listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
}

// teaHandler gives each session its own model sized to the client's PTY
// and coloured for the client's terminal.
func (s *Server) teaHandler(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
	id := uuid.NewString()
	logger := s.logger.With("session", id, "user", sess.User())

	opts := s.opts.Player
	opts.Logger = logger
	opts.Renderer = bubbletea.MakeRenderer(sess)
	m, err := NewModel(s.frames, opts)
	if err != nil {
		// Options were validated in NewServer.
		logger.Error("could not create player", "err", err)
		return nil, nil
	}
	if pty, _, ok := sess.Pty(); ok {
		m.width = pty.Window.Width
	}

	done := opts.Metrics.SessionStarted()
	go func() {
		<-sess.Context().Done()
		done()
		logger.Info("session closed")
	}()
	logger.Info("session started")
	return m, []tea.ProgramOption{tea.WithAltScreen()}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Starting SSH server", "addr", s.Addr())
		if err := s.ssh.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			return err
		}
		return nil
	})
	if s.exporter != nil {
		g.Go(func() error {
			s.logger.Info("Serving metrics", "addr", s.opts.MetricsAddr)
			return s.exporter.ListenAndServe()
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Stopping SSH server")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		if err := s.ssh.Shutdown(sctx); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			errs = append(errs, err)
		}
		if s.exporter != nil {
			errs = append(errs, s.exporter.Shutdown(sctx))
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}
