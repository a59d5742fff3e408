package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.FrameConverted(2 * time.Millisecond)
	m.FrameConverted(3 * time.Millisecond)
	m.CacheLookup(CacheHit)
	m.CacheLookup(CacheMiss)
	m.CacheLookup(CacheMiss)
	m.CacheWrite(nil)
	m.CacheWrite(errors.New("disk full"))
	m.FrameRendered()
	m.ConversionFailed("invalid_frame")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.framesConverted))
	assert.Equal(t, 1, testutil.CollectAndCount(m.convertDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues(CacheHit)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues(CacheMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheWrites.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheWrites.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framesRendered))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conversionErrors.WithLabelValues("invalid_frame")))
}

func TestSessionGauge(t *testing.T) {
	m := New()
	done1 := m.SessionStarted()
	done2 := m.SessionStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionsActive))
	done1()
	done2()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.sessionsActive))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FrameConverted(time.Millisecond)
		m.CacheLookup(CacheHit)
		m.CacheWrite(nil)
		m.FrameRendered()
		m.ConversionFailed("x")
		m.SessionStarted()()
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.FrameRendered()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "asciireel_frames_rendered_total 1")
}

func TestExporter(t *testing.T) {
	m := New()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	e := NewExporter(l.Addr().String(), m)
	done := make(chan error, 1)
	go func() { done <- e.Serve(l) }()

	base := "http://" + l.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && string(body) == "ok"
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.True(t, strings.Contains(string(body), "asciireel_sessions_active"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, e.Shutdown(ctx))
	assert.NoError(t, <-done)
}

func TestExporterShutdownBeforeServe(t *testing.T) {
	e := NewExporter("127.0.0.1:0", New())
	require.NoError(t, e.Shutdown(context.Background()))

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	assert.NoError(t, e.Serve(l), "a stopped exporter returns at once")
}
