// Package dispatch fans frame conversion out to a worker pool and hands the
// results back in source order.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"asciireel/frame"
)

// Source yields raw frames in strictly increasing index order and returns
// io.EOF once exhausted.
type Source interface {
	Next(ctx context.Context) (*frame.RawFrame, error)
}

// ConvertFunc converts the raw frame at stream position seq. It must not
// touch shared mutable state.
type ConvertFunc func(seq int, raw *frame.RawFrame) (*frame.AsciiFrame, error)

// Sink receives converted frames strictly in order, seq 0 first.
type Sink func(seq int, f *frame.AsciiFrame) error

// Dispatcher runs conversions concurrently. The zero value uses one worker
// per available CPU.
type Dispatcher struct {
	Workers int
	Logger  *log.Logger
}

type task struct {
	seq int
	raw *frame.RawFrame
}

type result struct {
	seq   int
	frame *frame.AsciiFrame
}

func (d *Dispatcher) workers() int {
	if d.Workers > 0 {
		return d.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (d *Dispatcher) logger() *log.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return log.Default()
}

// Run converts every frame of src and passes the results to sink in order.
// The first failure cancels all outstanding work and is returned tagged
// with its frame index. Run returns the number of frames handed to sink.
func (d *Dispatcher) Run(ctx context.Context, src Source, conv ConvertFunc, sink Sink) (int, error) {
	workers := d.workers()
	window := workers * 2

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	tasks := make(chan task, workers)
	results := make(chan result, window)
	// A slot is held from the moment a frame is read until it reaches the
	// sink, which bounds both the queue and the reorder arena.
	slots := make(chan struct{}, window)

	d.logger().Debug("dispatch started", "workers", workers, "window", window)

	g.Go(func() error {
		defer close(tasks)
		last := -1
		for seq := 0; ; seq++ {
			select {
			case slots <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			raw, err := src.Next(gctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return frame.AtIndex(last+1, fmt.Errorf("read source: %w", err))
			}
			if raw.Index <= last {
				return &frame.IndexError{
					Index: raw.Index,
					Err:   fmt.Errorf("%w: index does not follow %d", frame.ErrInvalidFrame, last),
				}
			}
			last = raw.Index
			select {
			case tasks <- task{seq: seq, raw: raw}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for t := range tasks {
				if err := gctx.Err(); err != nil {
					return err
				}
				out, err := conv(t.seq, t.raw)
				if err != nil {
					return failure(t.raw, err)
				}
				if out == nil {
					return failure(t.raw, errors.New("converter returned no frame"))
				}
				select {
				case results <- result{seq: t.seq, frame: out}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	arena := make([]*frame.AsciiFrame, window)
	next := 0
	var sinkErr error
	for r := range results {
		if sinkErr != nil {
			continue
		}
		arena[r.seq%window] = r.frame
		for arena[next%window] != nil {
			f := arena[next%window]
			arena[next%window] = nil
			if err := sink(next, f); err != nil {
				sinkErr = frame.AtIndex(next, err)
				cancel()
				break
			}
			next++
			<-slots
		}
	}

	err := g.Wait()
	if sinkErr != nil {
		return next, sinkErr
	}
	if err != nil {
		return next, err
	}
	d.logger().Debug("dispatch finished", "frames", next)
	return next, nil
}

// failure tags err with the frame index, classifying untyped errors as
// conversion failures.
func failure(raw *frame.RawFrame, err error) error {
	if _, ok := frame.FailedIndex(err); ok {
		return err
	}
	return &frame.IndexError{Index: raw.Index, Err: fmt.Errorf("%w: %w", frame.ErrConversion, err)}
}

// Collect runs the dispatcher and gathers the ordered output in memory.
func (d *Dispatcher) Collect(ctx context.Context, src Source, conv ConvertFunc) (frame.Sequence, error) {
	var out frame.Sequence
	_, err := d.Run(ctx, src, conv, func(_ int, f *frame.AsciiFrame) error {
		out = append(out, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
