// Package poller runs a task on a fixed interval for as long as its context
// lives. The first run starts immediately. A tick that fires while the
// previous run is still in flight is skipped rather than queued.
package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is the dashboard refresh period
const DefaultInterval = 30 * time.Second

// Poll outcomes reported to the observer
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// Task is one poll. It must honour ctx cancellation.
type Task func(ctx context.Context) error

// Observer receives one event per tick
type Observer interface {
	ObservePoll(poller, outcome string, duration time.Duration)
}

// Poller drives a Task on a fixed interval
type Poller struct {
	name     string
	interval time.Duration
	task     Task
	observer Observer
	logger   zerolog.Logger

	running atomic.Bool
	runs    atomic.Int64
	skipped atomic.Int64
	wg      sync.WaitGroup
}

type Option func(*Poller)

func WithObserver(o Observer) Option {
	return func(p *Poller) { p.observer = o }
}

// New creates a poller. A non-positive interval falls back to DefaultInterval.
func New(name string, interval time.Duration, task Task, logger zerolog.Logger, opts ...Option) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p := &Poller{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger.With().Str("component", "poller").Str("poller", name).Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls until ctx is cancelled, then waits for the in-flight run to
// return. It always returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer p.wg.Wait()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if !p.running.CompareAndSwap(false, true) {
		p.skipped.Add(1)
		p.observe(OutcomeSkipped, 0)
		p.logger.Debug().Msg("previous poll still running, skipping tick")
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.running.Store(false)

		start := time.Now()
		err := p.task(ctx)
		p.runs.Add(1)

		switch {
		case err == nil:
			p.observe(OutcomeOK, time.Since(start))
		case errors.Is(err, context.Canceled) || ctx.Err() != nil:
			// unsubscribed mid-run
		default:
			p.observe(OutcomeError, time.Since(start))
			p.logger.Warn().Err(err).Msg("poll failed")
		}
	}()
}

func (p *Poller) observe(outcome string, d time.Duration) {
	if p.observer != nil {
		p.observer.ObservePoll(p.name, outcome, d)
	}
}

// Runs returns how many polls have completed
func (p *Poller) Runs() int64 {
	return p.runs.Load()
}

// Skipped returns how many ticks were dropped
func (p *Poller) Skipped() int64 {
	return p.skipped.Load()
}

// Deliver sends v on out unless ctx is done first. It reports whether the
// value was delivered, so a cancelled subscriber never receives results.
func Deliver[T any](ctx context.Context, out chan<- T, v T) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case out <- v:
		return true
	}
}
