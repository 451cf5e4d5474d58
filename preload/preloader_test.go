package preload

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"
)

// countingLoader counts calls per reference and delegates to fn.
type countingLoader struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(ctx context.Context, ref string) error
}

func newCountingLoader(fn func(ctx context.Context, ref string) error) *countingLoader {
	return &countingLoader{calls: make(map[string]int), fn: fn}
}

func (l *countingLoader) Load(ctx context.Context, ref string) error {
	l.mu.Lock()
	l.calls[ref]++
	l.mu.Unlock()
	if l.fn == nil {
		return nil
	}
	return l.fn(ctx, ref)
}

func (l *countingLoader) count(ref string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[ref]
}

func TestPreload_Scenario(t *testing.T) {
	loader := newCountingLoader(func(context.Context, string) error {
		time.Sleep(10 * time.Millisecond)
		return nil
	})
	p := New(loader, zaptest.NewLogger(t))

	p.Preload(context.Background(), []string{"/images/hero.jpg"}, Options{Priority: true, Timeout: 5 * time.Second})
	if !p.IsPreloaded("/images/hero.jpg") {
		t.Fatalf("expected reference to be preloaded, state %s", p.State("/images/hero.jpg"))
	}

	p.Preload(context.Background(), []string{"/images/hero.jpg"}, Options{Priority: true})
	if n := loader.count("/images/hero.jpg"); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}
}

func TestPreload_Idempotent(t *testing.T) {
	loader := newCountingLoader(nil)
	p := New(loader, zaptest.NewLogger(t))

	refs := []string{"a", "b", "a"}
	for range 3 {
		p.Preload(context.Background(), refs, Options{Priority: true})
	}
	for _, ref := range []string{"a", "b"} {
		if n := loader.count(ref); n != 1 {
			t.Errorf("loader called %d times for %q, want 1", n, ref)
		}
	}
	if s := p.Stats(); s.Loaded != 2 {
		t.Errorf("stats loaded = %d, want 2", s.Loaded)
	}
}

func TestPreload_ConcurrentCallersSingleAttempt(t *testing.T) {
	release := make(chan struct{})
	loader := newCountingLoader(func(context.Context, string) error {
		<-release
		return nil
	})
	p := New(loader, zaptest.NewLogger(t))

	var wg sync.WaitGroup
	for range 16 {
		wg.Go(func() {
			p.Preload(context.Background(), []string{"x"}, Options{})
		})
	}
	wg.Wait()
	close(release)
	p.Wait()

	if n := loader.count("x"); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}
	if !p.IsPreloaded("x") {
		t.Errorf("expected completed, got %s", p.State("x"))
	}
}

func TestPreload_Timeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	loader := newCountingLoader(func(context.Context, string) error {
		<-release
		return nil
	})
	p := New(loader, zaptest.NewLogger(t))

	start := time.Now()
	p.Preload(context.Background(), []string{"slow"}, Options{Priority: true, Timeout: 50 * time.Millisecond})
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("priority preload took %s despite 50ms timeout", elapsed)
	}
	if st := p.State("slow"); st != StateFailed {
		t.Fatalf("state = %s, want %s", st, StateFailed)
	}
	if s := p.Stats(); s.TimedOut != 1 {
		t.Errorf("timed out = %d, want 1", s.TimedOut)
	}

	// failed reference may be attempted again
	p.Preload(context.Background(), []string{"slow"}, Options{Priority: true, Timeout: 10 * time.Millisecond})
	if n := loader.count("slow"); n != 2 {
		t.Errorf("loader called %d times, want 2", n)
	}
}

func TestPreload_FireAndForget(t *testing.T) {
	release := make(chan struct{})
	var finished atomic.Bool
	loader := newCountingLoader(func(context.Context, string) error {
		<-release
		finished.Store(true)
		return nil
	})
	p := New(loader, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	p.Preload(ctx, []string{"bg"}, Options{})
	// returned before the load could finish
	if finished.Load() {
		t.Fatal("non-priority preload waited for loader")
	}
	if st := p.State("bg"); st != StateInFlight {
		t.Errorf("state = %s, want %s", st, StateInFlight)
	}

	// caller cancellation does not abort background work
	cancel()
	close(release)
	p.Wait()

	if !p.IsPreloaded("bg") {
		t.Errorf("state = %s, want %s", p.State("bg"), StateCompleted)
	}
}

func TestPreload_InFlightIsNoop(t *testing.T) {
	release := make(chan struct{})
	loader := newCountingLoader(func(context.Context, string) error {
		<-release
		return nil
	})
	p := New(loader, zaptest.NewLogger(t))

	p.Preload(context.Background(), []string{"r"}, Options{})

	done := make(chan struct{})
	go func() {
		p.Preload(context.Background(), []string{"r"}, Options{Priority: true})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("priority call waited for attempt started by another caller")
	}

	close(release)
	p.Wait()
	if n := loader.count("r"); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}
}

func TestPreload_FailureAllowsRetry(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	loader := newCountingLoader(func(context.Context, string) error {
		if fail.Load() {
			return errors.New("boom")
		}
		return nil
	})
	p := New(loader, zaptest.NewLogger(t))

	p.Preload(context.Background(), []string{"f"}, Options{Priority: true})
	if st := p.State("f"); st != StateFailed {
		t.Fatalf("state = %s, want %s", st, StateFailed)
	}

	fail.Store(false)
	p.Preload(context.Background(), []string{"f"}, Options{Priority: true})
	if !p.IsPreloaded("f") {
		t.Errorf("state = %s, want %s", p.State("f"), StateCompleted)
	}
	if s := p.Stats(); s.Failed != 1 || s.Loaded != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestPreload_LoaderPanic(t *testing.T) {
	p := New(LoaderFunc(func(context.Context, string) error {
		panic("broken loader")
	}), zaptest.NewLogger(t))

	p.Preload(context.Background(), []string{"p"}, Options{})
	p.Wait()
	if st := p.State("p"); st != StateFailed {
		t.Errorf("state = %s, want %s", st, StateFailed)
	}
}

func TestPreload_PriorityContextCanceled(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	p := New(LoaderFunc(func(context.Context, string) error {
		<-release
		return nil
	}), zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Preload(ctx, []string{"c"}, Options{Priority: true})
	if st := p.State("c"); st != StateFailed {
		t.Errorf("state = %s, want %s", st, StateFailed)
	}
}

func TestClearCache(t *testing.T) {
	loader := newCountingLoader(nil)
	p := New(loader, zaptest.NewLogger(t))

	p.Preload(context.Background(), []string{"a"}, Options{Priority: true})
	p.ClearCache()
	if st := p.State("a"); st != StateNotStarted {
		t.Fatalf("state = %s, want %s", st, StateNotStarted)
	}
	p.Preload(context.Background(), []string{"a"}, Options{Priority: true})
	if n := loader.count("a"); n != 2 {
		t.Errorf("loader called %d times, want 2", n)
	}
}

func TestClearCache_StaleAttempt(t *testing.T) {
	release := make(chan struct{})
	p := New(LoaderFunc(func(context.Context, string) error {
		<-release
		return nil
	}), zaptest.NewLogger(t))

	p.Preload(context.Background(), []string{"s"}, Options{})
	p.ClearCache()
	close(release)
	p.Wait()

	if st := p.State("s"); st != StateNotStarted {
		t.Errorf("attempt started before ClearCache changed state to %s", st)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	p := New(LoaderFunc(func(_ context.Context, ref string) error {
		if ref == "bad" {
			return errors.New("bad")
		}
		return nil
	}), zaptest.NewLogger(t), WithRegisterer(reg))

	p.Preload(context.Background(), []string{"good", "bad"}, Options{Priority: true})
	p.Preload(context.Background(), []string{"good"}, Options{Priority: true})

	if v := testutil.ToFloat64(p.metrics.attempts.WithLabelValues("loaded")); v != 1 {
		t.Errorf("loaded attempts = %v, want 1", v)
	}
	if v := testutil.ToFloat64(p.metrics.attempts.WithLabelValues("failed")); v != 1 {
		t.Errorf("failed attempts = %v, want 1", v)
	}
	if v := testutil.ToFloat64(p.metrics.skipped.WithLabelValues("completed")); v != 1 {
		t.Errorf("skipped completed = %v, want 1", v)
	}
	if v := testutil.ToFloat64(p.metrics.inflight); v != 0 {
		t.Errorf("in flight = %v, want 0", v)
	}
	n, err := testutil.GatherAndCount(reg, "tripimg_preload_duration_seconds")
	if err != nil {
		t.Fatalf("unable to gather metrics: %v", err)
	}
	if n != 2 {
		t.Errorf("duration series = %d, want 2", n)
	}

	// second registration on the same registry is logged, not fatal
	_ = New(LoaderFunc(func(context.Context, string) error { return nil }), zaptest.NewLogger(t), WithRegisterer(reg))
}

func TestStats_AverageLoadTime(t *testing.T) {
	s := Stats{Loaded: 4, LoadTime: 2 * time.Second}
	if got := s.AverageLoadTime(); got != 500*time.Millisecond {
		t.Errorf("average = %s", got)
	}
	if got := (Stats{}).AverageLoadTime(); got != 0 {
		t.Errorf("empty average = %s", got)
	}
}
