package trends

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Pacing multiplier escalates once the observed request rate crosses
// these thresholds (requests per minute).
const (
	rateThresholdModerate = 5.0
	rateThresholdHigh     = 10.0
)

// Limiter paces upstream requests and computes post-error backoff.
// Exactly one instance must own the pacing state per process: a second
// instance silently resets the rate budget. Share it by reference.
type Limiter struct {
	minInterval time.Duration
	baseDelay   time.Duration
	maxDelay    time.Duration

	mu           sync.Mutex
	lastRequest  time.Time
	requestCount int
	windowStart  time.Time
	rng          *rand.Rand
	now          func() time.Time
}

type LimiterStats struct {
	RequestsInWindow     int           `json:"requests_in_window"`
	MinInterval          time.Duration `json:"min_interval"`
	TimeSinceLastRequest time.Duration `json:"time_since_last_request"`
}

func NewLimiter(minInterval, baseDelay, maxDelay time.Duration) *Limiter {
	now := time.Now()
	return &Limiter{
		minInterval: minInterval,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		windowStart: now,
		rng:         rand.New(rand.NewSource(now.UnixNano())),
		now:         time.Now,
	}
}

var (
	defaultLimiter     *Limiter
	defaultLimiterOnce sync.Once
)

// DefaultLimiter returns the shared process-wide limiter. The first
// call constructs it with the given pacing parameters; every later
// call hands back that same instance regardless of arguments, so all
// call sites draw from a single rate budget. Tests that need isolated
// pacing state construct their own via NewLimiter.
func DefaultLimiter(minInterval, baseDelay, maxDelay time.Duration) *Limiter {
	defaultLimiterOnce.Do(func() {
		defaultLimiter = NewLimiter(minInterval, baseDelay, maxDelay)
	})
	return defaultLimiter
}

// WaitForSlot blocks until the next upstream request is allowed. The
// effective interval is the base interval scaled by the adaptive
// multiplier, with uniform jitter so concurrent callers desynchronize.
func (l *Limiter) WaitForSlot(ctx context.Context) error {
	l.mu.Lock()

	interval := time.Duration(float64(l.minInterval) * l.pacingMultiplier())
	jitter := 0.5 + l.rng.Float64() // uniform in [0.5, 1.5)
	target := time.Duration(float64(interval) * jitter)

	elapsed := l.now().Sub(l.lastRequest)
	wait := target - elapsed

	if wait > 0 {
		slog.Debug("Rate limiter pacing", "wait", wait.Round(time.Millisecond).String())
		l.mu.Unlock()
		if err := sleepContext(ctx, wait); err != nil {
			return err
		}
		l.mu.Lock()
	}

	l.lastRequest = l.now()
	l.requestCount++
	l.mu.Unlock()

	return nil
}

// BackoffOnRateLimit sleeps the exponential backoff delay for the given
// attempt and reports whether the caller should retry. The rolling rate
// window is reset so subsequent pacing de-escalates.
func (l *Limiter) BackoffOnRateLimit(ctx context.Context, attempt, maxAttempts int) (bool, error) {
	if attempt >= maxAttempts-1 {
		slog.Warn("Rate limit retries exhausted", "attempt", attempt+1, "max_attempts", maxAttempts)
		return false, nil
	}

	delay := l.backoffDelay(attempt)
	slog.Warn("Rate limited by upstream, backing off", "attempt", attempt+1, "delay", delay.Round(time.Millisecond).String())

	if err := sleepContext(ctx, delay); err != nil {
		return false, err
	}

	l.mu.Lock()
	l.requestCount = 0
	l.windowStart = l.now()
	l.mu.Unlock()

	return true, nil
}

// backoffDelay computes base * 2^attempt with jitter in [0.8, 1.2],
// capped at the configured maximum.
func (l *Limiter) backoffDelay(attempt int) time.Duration {
	l.mu.Lock()
	jitter := 0.8 + 0.4*l.rng.Float64()
	l.mu.Unlock()

	delay := time.Duration(float64(l.baseDelay) * math.Pow(2, float64(attempt)) * jitter)
	if delay > l.maxDelay {
		delay = l.maxDelay
	}
	return delay
}

// pacingMultiplier escalates the base interval as the observed request
// rate grows. Caller must hold l.mu.
func (l *Limiter) pacingMultiplier() float64 {
	elapsed := l.now().Sub(l.windowStart).Seconds()
	if elapsed <= 0 {
		return 1.0
	}

	requestsPerMinute := float64(l.requestCount) * 60 / elapsed
	switch {
	case requestsPerMinute > rateThresholdHigh:
		return 2.0
	case requestsPerMinute > rateThresholdModerate:
		return 1.5
	}
	return 1.0
}

func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastRequest = time.Time{}
	l.requestCount = 0
	l.windowStart = l.now()
}

func (l *Limiter) Stats() LimiterStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := LimiterStats{
		RequestsInWindow: l.requestCount,
		MinInterval:      l.minInterval,
	}
	if !l.lastRequest.IsZero() {
		stats.TimeSinceLastRequest = l.now().Sub(l.lastRequest)
	}
	return stats
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
