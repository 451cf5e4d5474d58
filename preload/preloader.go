// Package preload warms image references ahead of their use. Every reference
// is fetched at most once successfully, concurrent requests for the same
// reference never produce parallel fetches and each attempt is bounded by a
// timeout.
package preload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DefaultTimeout bounds single attempt when Options do not specify one.
const DefaultTimeout = 10 * time.Second

var ErrTimeout = errors.New("preload attempt timed out")

// Loader performs actual image load. Implementations should honor context
// cancellation but are not required to.
type Loader interface {
	Load(ctx context.Context, ref string) error
}

// LoaderFunc adapts function to Loader.
type LoaderFunc func(ctx context.Context, ref string) error

func (f LoaderFunc) Load(ctx context.Context, ref string) error {
	return f(ctx, ref)
}

// State of a single reference.
type State int

const (
	StateNotStarted State = iota
	StateInFlight
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateInFlight:
		return "in-flight"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options of a single Preload call.
type Options struct {
	// Priority requests Preload to return only after every started attempt
	// settled. Otherwise Preload returns immediately.
	Priority bool
	// Timeout for every attempt, DefaultTimeout when not positive.
	Timeout time.Duration
}

// Stats accumulates outcome of settled attempts.
type Stats struct {
	Loaded   int
	Failed   int
	TimedOut int
	LoadTime time.Duration
}

// AverageLoadTime of successful attempts.
func (s Stats) AverageLoadTime() time.Duration {
	if s.Loaded == 0 {
		return 0
	}
	return s.LoadTime / time.Duration(s.Loaded)
}

// Preloader owns state of every reference it was asked to preload. State is
// created on first request for a reference and kept until ClearCache.
type Preloader struct {
	loader  Loader
	log     *zap.Logger
	metrics *metrics
	reg     prometheus.Registerer

	mu      sync.Mutex
	records map[string]State
	// bumped by ClearCache, attempts started before that do not touch records
	epoch uint64
	stats Stats

	background sync.WaitGroup
}

type Option func(*Preloader)

// WithRegisterer exposes preloader metrics through reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(p *Preloader) {
		p.reg = reg
	}
}

func New(loader Loader, log *zap.Logger, opts ...Option) *Preloader {
	p := &Preloader{
		loader:  loader,
		log:     log.Named("preload"),
		metrics: newMetrics(),
		records: make(map[string]State),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.reg != nil {
		if err := p.metrics.register(p.reg); err != nil {
			p.log.Warn("Unable to register preload metrics", zap.Error(err))
		}
	}
	return p
}

// Preload starts attempts for every reference which is neither completed nor
// in flight. References already in flight are skipped and the call does not
// wait for them. Nothing is ever returned to the caller: failures are logged
// and leave the reference available for retry.
//
// Attempt which loses the race against its timeout is abandoned, underlying
// load is not cancelled and its result is ignored.
func (p *Preloader) Preload(ctx context.Context, refs []string, opts Options) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	batch, err := uuid.NewV7()
	if err != nil {
		batch = uuid.New()
	}
	log := p.log.With(zap.Stringer("batch", batch), zap.Bool("priority", opts.Priority))

	started, epoch := p.claim(refs)
	if len(started) == 0 {
		log.Debug("Nothing to preload", zap.Int("requested", len(refs)))
		return
	}
	log.Debug("Preload starting", zap.Int("requested", len(refs)), zap.Int("started", len(started)), zap.Duration("timeout", timeout))

	if !opts.Priority {
		// caller is not waiting, its cancellation must not abort the work
		ctx = context.WithoutCancel(ctx)
	}

	var wg sync.WaitGroup
	for _, ref := range started {
		wg.Add(1)
		p.background.Add(1)
		go func() {
			defer p.background.Done()
			defer wg.Done()
			p.attempt(ctx, ref, timeout, epoch, log)
		}()
	}
	if opts.Priority {
		wg.Wait()
		log.Debug("Preload completed")
	}
}

// claim is the check-and-mark step: it marks every startable reference as
// in flight and returns them.
func (p *Preloader) claim(refs []string) ([]string, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	started := make([]string, 0, len(refs))
	for _, ref := range refs {
		switch p.records[ref] {
		case StateCompleted:
			p.metrics.skipped.WithLabelValues("completed").Inc()
			continue
		case StateInFlight:
			p.metrics.skipped.WithLabelValues("in-flight").Inc()
			continue
		}
		p.records[ref] = StateInFlight
		p.metrics.inflight.Inc()
		started = append(started, ref)
	}
	return started, p.epoch
}

func (p *Preloader) attempt(ctx context.Context, ref string, timeout time.Duration, epoch uint64, log *zap.Logger) {
	start := time.Now()

	// buffered, so abandoned load does not block forever
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("loader panic: %v", r)
			}
		}()
		done <- p.loader.Load(ctx, ref)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var err error
	select {
	case err = <-done:
	case <-timer.C:
		err = ErrTimeout
	case <-ctx.Done():
		err = ctx.Err()
	}
	elapsed := time.Since(start)
	p.settle(ref, err, elapsed, epoch)

	if err != nil {
		log.Warn("Unable to preload image", zap.String("ref", ref), zap.Duration("elapsed", elapsed), zap.Error(err))
		return
	}
	log.Debug("Image preloaded", zap.String("ref", ref), zap.Duration("elapsed", elapsed))
}

func (p *Preloader) settle(ref string, err error, elapsed time.Duration, epoch uint64) {
	result := "loaded"
	switch {
	case errors.Is(err, ErrTimeout):
		result = "timeout"
	case err != nil:
		result = "failed"
	}
	p.metrics.attempts.WithLabelValues(result).Inc()
	p.metrics.duration.WithLabelValues(result).Observe(elapsed.Seconds())

	p.mu.Lock()
	defer p.mu.Unlock()

	switch result {
	case "loaded":
		p.stats.Loaded++
		p.stats.LoadTime += elapsed
	case "timeout":
		p.stats.TimedOut++
	default:
		p.stats.Failed++
	}

	if epoch != p.epoch {
		// cache was cleared while attempt was running
		return
	}
	p.metrics.inflight.Dec()
	if err != nil {
		p.records[ref] = StateFailed
		return
	}
	p.records[ref] = StateCompleted
}

// State returns current state of the reference.
func (p *Preloader) State(ref string) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.records[ref]
}

// IsPreloaded reports whether reference has been loaded successfully.
func (p *Preloader) IsPreloaded(ref string) bool {
	return p.State(ref) == StateCompleted
}

func (p *Preloader) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Wait blocks until every attempt started so far has settled. It should not
// be called concurrently with Preload.
func (p *Preloader) Wait() {
	p.background.Wait()
}

// ClearCache forgets state of every reference. Attempts still running will
// not affect state after this call. Stats are kept.
func (p *Preloader) ClearCache() {
	p.mu.Lock()
	defer p.mu.Unlock()

	clear(p.records)
	p.epoch++
	p.metrics.inflight.Set(0)
	p.log.Debug("Preload cache cleared")
}
