package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"
)

const defaultReadHeaderTimeout = 10 * time.Second

// Exporter serves /metrics and /health over HTTP.
type Exporter struct {
	addr   string
	server *http.Server

	mu      sync.Mutex
	running bool
}

// NewExporter returns an exporter for m listening on addr.
func NewExporter(addr string, m *Metrics) *Exporter {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &Exporter{
		addr: addr,
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: defaultReadHeaderTimeout,
		},
	}
}

// Serve accepts connections on l until Shutdown. It returns nil after a
// graceful shutdown, including one that happened before Serve was called.
func (e *Exporter) Serve(l net.Listener) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errors.New("metrics exporter already running")
	}
	e.running = true
	e.mu.Unlock()

	if err := e.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on the exporter's address and serves.
func (e *Exporter) ListenAndServe() error {
	l, err := net.Listen("tcp", e.addr)
	if err != nil {
		return err
	}
	return e.Serve(l)
}

// Shutdown gracefully stops the exporter. An exporter cannot be restarted.
func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.server.Shutdown(ctx)
}
