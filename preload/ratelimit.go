package preload

import (
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	minLimit  = 0.1
	backOffBy = 2.0
	recoverBy = 1.5
)

// hostLimiters keeps token bucket per host. Limit for a host is halved when
// it answers with 429 and slowly restored after successful requests.
type hostLimiters struct {
	rps   float64
	burst int
	log   *zap.Logger

	mu      sync.Mutex
	perHost map[string]*rate.Limiter
}

func newHostLimiters(rps float64, burst int, log *zap.Logger) *hostLimiters {
	return &hostLimiters{
		rps:     rps,
		burst:   max(burst, 1),
		log:     log,
		perHost: make(map[string]*rate.Limiter),
	}
}

func (l *hostLimiters) clip(limit float64) float64 {
	return min(max(limit, minLimit), l.rps)
}

func (l *hostLimiters) limiter(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	rl, ok := l.perHost[host]
	if !ok {
		rl = rate.NewLimiter(rate.Limit(l.rps), l.burst)
		l.perHost[host] = rl
	}
	return rl
}

func (l *hostLimiters) adjust(host string, by float64) {
	rl := l.limiter(host)

	l.mu.Lock()
	defer l.mu.Unlock()

	old := float64(rl.Limit())
	limit := l.clip(old * by)
	if limit != old {
		l.log.Debug("Changing rate limit", zap.String("host", host), zap.Float64("limit", limit))
		rl.SetLimit(rate.Limit(limit))
	}
}

func (l *hostLimiters) backOff(host string) {
	l.adjust(host, 1/backOffBy)
}

func (l *hostLimiters) restore(host string) {
	l.adjust(host, recoverBy)
}

// RoundTripper wraps next with rate limiting. Zero rps disables limiting.
func (l *hostLimiters) RoundTripper(next http.RoundTripper) http.RoundTripper {
	if l.rps <= 0 {
		return next
	}
	return &limitedTransport{limiters: l, next: next}
}

type limitedTransport struct {
	limiters *hostLimiters
	next     http.RoundTripper
}

func (t *limitedTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	host := r.URL.Host
	// Wait errors out early if request cannot be processed within deadline
	if err := t.limiters.limiter(host).Wait(r.Context()); err != nil {
		return nil, fmt.Errorf("rate limited: %w", err)
	}
	resp, err := t.next.RoundTrip(r)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		t.limiters.backOff(host)
	} else if resp.StatusCode < http.StatusBadRequest {
		t.limiters.restore(host)
	}
	return resp, nil
}
