// Package pipeline runs the conversion phase: it looks the run up in the
// frame cache, converts whatever is missing through the dispatcher while
// streaming results to disk, and hands back an ordered frame sequence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"asciireel/cache"
	"asciireel/convert"
	"asciireel/dispatch"
	"asciireel/frame"
	"asciireel/metrics"
)

// Opener starts the raw frame source. It is only called when frames
// actually need converting.
type Opener func(ctx context.Context) (dispatch.Source, error)

// Options configure one conversion run.
type Options struct {
	Settings convert.Settings
	// FPS is recorded in the cache manifest.
	FPS     float64
	Workers int
	// CacheRoot defaults to cache.DefaultRoot().
	CacheRoot string
	// NoCache removes the cache entry when the result is released.
	NoCache bool
	// RequireCache turns cache failures into run failures instead of
	// falling back to memory.
	RequireCache bool
	Metrics      *metrics.Metrics
	Logger       *log.Logger
}

// Result is the ordered output of a run.
type Result struct {
	frames    *store
	handle    *cache.Handle
	noCache   bool
	logger    *log.Logger
	Hit       bool
	Converted int
	Resumed   int
}

// Len returns the number of frames.
func (r *Result) Len() int { return r.frames.Len() }

// Frame returns frame i.
func (r *Result) Frame(i int) (*frame.AsciiFrame, error) { return r.frames.Frame(i) }

// Cache returns the backing cache entry, or nil when running from memory.
func (r *Result) Cache() *cache.Handle { return r.handle }

// Release ends the run's ownership of its cache entry, deleting it when the
// run opted out of retention.
func (r *Result) Release() error {
	if r.handle == nil {
		return nil
	}
	if r.noCache {
		r.logger.Debug("removing cache entry", "dir", r.handle.Dir())
		return r.handle.Remove()
	}
	r.logger.Info("cache retained", "dir", r.handle.Dir())
	return nil
}

// Run converts the source identified by id, reusing the cache when it can.
func Run(ctx context.Context, id cache.SourceID, open Opener, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	conv, err := convert.New(opts.Settings)
	if err != nil {
		return nil, err
	}

	root := opts.CacheRoot
	if root == "" {
		root = cache.DefaultRoot()
	}
	fp := cache.Fingerprint(id, opts.Settings)
	h, err := cache.Open(root, fp)
	if err != nil {
		if opts.RequireCache {
			return nil, err
		}
		logger.Warn("cache unavailable, converting in memory", "err", err)
		opts.Metrics.CacheLookup(metrics.CacheBypass)
		h = nil
	}

	res := &Result{handle: h, noCache: opts.NoCache, logger: logger}

	if h != nil {
		if m, ok := h.Complete(); ok {
			logger.Info("cache hit", "fingerprint", fp, "frames", m.Frames)
			opts.Metrics.CacheLookup(metrics.CacheHit)
			res.Hit = true
			res.frames = &store{handle: h, mem: make([]*frame.AsciiFrame, m.Frames)}
			return res, nil
		}
		if h.Has(0) {
			logger.Info("resuming partial cache", "fingerprint", fp)
			opts.Metrics.CacheLookup(metrics.CachePartial)
		} else {
			logger.Debug("cache miss", "fingerprint", fp)
			opts.Metrics.CacheLookup(metrics.CacheMiss)
		}
	}

	src, err := open(ctx)
	if err != nil {
		return nil, err
	}
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}

	st := &store{handle: h}
	var fromCache sync.Map
	convertOne := func(seq int, raw *frame.RawFrame) (*frame.AsciiFrame, error) {
		if h != nil && h.Has(seq) {
			if f, err := h.Read(seq); err == nil {
				fromCache.Store(seq, true)
				return f, nil
			}
		}
		start := time.Now()
		f, err := conv.Convert(raw)
		if err == nil {
			opts.Metrics.FrameConverted(time.Since(start))
		}
		return f, err
	}
	sink := func(seq int, f *frame.AsciiFrame) error {
		if _, ok := fromCache.LoadAndDelete(seq); ok {
			res.Resumed++
			st.mem = append(st.mem, nil)
			return nil
		}
		if st.handle != nil && !st.degraded {
			werr := st.handle.Write(seq, f)
			opts.Metrics.CacheWrite(werr)
			if werr == nil {
				st.mem = append(st.mem, nil)
				return nil
			}
			if opts.RequireCache {
				return werr
			}
			logger.Warn("cache write failed, keeping frames in memory", "frame", seq, "err", werr)
			st.degraded = true
		}
		st.mem = append(st.mem, f)
		return nil
	}

	d := &dispatch.Dispatcher{Workers: opts.Workers, Logger: logger}
	n, err := d.Run(ctx, src, convertOne, sink)
	if err != nil {
		opts.Metrics.ConversionFailed(Kind(err))
		if h != nil && opts.NoCache {
			_ = h.Remove()
		}
		return nil, err
	}
	res.Converted = n - res.Resumed
	res.frames = st

	if st.sealable() && n > 0 {
		first, err := st.Frame(0)
		if err != nil {
			return nil, err
		}
		err = h.Seal(cache.Manifest{
			Source: id.Path,
			Frames: n,
			Rows:   first.Rows,
			Cols:   first.Cols,
			FPS:    opts.FPS,
			Color:  first.HasColor(),
		})
		if err != nil {
			if opts.RequireCache {
				return nil, err
			}
			logger.Warn("could not seal cache entry", "err", err)
		}
	}
	if st.degraded && h != nil && !opts.NoCache {
		logger.Warn("cache entry left incomplete", "dir", h.Dir())
	}
	logger.Info("conversion finished", "frames", n, "converted", res.Converted, "resumed", res.Resumed)
	return res, nil
}

// store serves frames from memory where held and from the cache otherwise.
type store struct {
	handle   *cache.Handle
	mem      []*frame.AsciiFrame
	degraded bool
}

func (s *store) sealable() bool { return s.handle != nil && !s.degraded }

func (s *store) Len() int { return len(s.mem) }

func (s *store) Frame(i int) (*frame.AsciiFrame, error) {
	if i < 0 || i >= len(s.mem) {
		return nil, fmt.Errorf("frame %d out of range [0,%d)", i, len(s.mem))
	}
	if f := s.mem[i]; f != nil {
		return f, nil
	}
	if s.handle == nil {
		return nil, frame.AtIndex(i, fmt.Errorf("%w: frame not held", frame.ErrCacheIO))
	}
	return s.handle.Read(i)
}

// Kind names the error class of err, for logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, frame.ErrInvalidSettings):
		return "invalid_settings"
	case errors.Is(err, frame.ErrInvalidFrame):
		return "invalid_frame"
	case errors.Is(err, frame.ErrCacheIO):
		return "cache_io"
	case errors.Is(err, frame.ErrConversion):
		return "conversion"
	}
	return "other"
}
