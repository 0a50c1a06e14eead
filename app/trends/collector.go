package trends

import (
	"context"
	"errors"
	"log/slog"
)

// Retry loop states. The loop below is a plain state machine: Pacing
// sleeps the rate limiter slot, Requesting performs the upstream call,
// Backoff sleeps the post-error delay, Exhausted triggers the mock
// fallback.
type collectorState int

const (
	stateIdle collectorState = iota
	statePacing
	stateRequesting
	stateBackoff
	stateExhausted
)

// Collector wraps the upstream client with pacing, retries, and the
// synthetic-data fallback. Worst-case latency per keyword is bounded by
// retries x max backoff delay.
type Collector struct {
	client     *Client
	limiter    *Limiter
	mock       *MockGenerator
	retries    int
	preferMock bool
}

type CollectorOption func(*Collector)

// WithRetries overrides the number of upstream attempts per keyword.
func WithRetries(n int) CollectorOption {
	return func(c *Collector) {
		if n > 0 {
			c.retries = n
		}
	}
}

// WithMockMode skips the upstream API entirely and serves synthetic
// data. Used when the upstream quota should not be touched at all.
func WithMockMode(enabled bool) CollectorOption {
	return func(c *Collector) {
		c.preferMock = enabled
	}
}

func NewCollector(client *Client, limiter *Limiter, opts ...CollectorOption) *Collector {
	c := &Collector{
		client:  client,
		limiter: limiter,
		mock:    NewMockGenerator(42),
		retries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves trend data for a keyword. A blank keyword fetches the
// trending-searches listing instead. The returned result is always
// schema-valid: when retries are exhausted the deterministic mock
// generator supplies the payload, tagged source=mock.
func (c *Collector) Fetch(ctx context.Context, keyword, timeframe string) Result {
	if keyword == "" {
		return c.fetchTrending(ctx)
	}

	if c.preferMock {
		slog.Debug("Mock mode enabled, generating synthetic trends", "keyword", keyword)
		return MockResult(keyword, c.mock.GenerateTrends(keyword))
	}

	attempt := 0
	st := statePacing

	for {
		switch st {
		case statePacing:
			if err := c.limiter.WaitForSlot(ctx); err != nil {
				return ErrorResult(keyword, err)
			}
			st = stateRequesting

		case stateRequesting:
			payload, err := c.client.RelatedQueries(ctx, keyword, timeframe)
			if err == nil {
				slog.Debug("Fetched trend data", "keyword", keyword, "queries", len(payload.RelatedQueries))
				return SuccessResult(keyword, SourceAPI, payload)
			}

			var rateErr *RateLimitError
			var permErr *PermanentError
			switch {
			case errors.Is(err, ErrNoData):
				slog.Debug("No trend data for keyword", "keyword", keyword)
				return NoDataResult(keyword)
			case errors.As(err, &permErr):
				slog.Warn("Upstream rejected keyword", "keyword", keyword, "error", err)
				return NoDataResult(keyword)
			case errors.As(err, &rateErr):
				st = stateBackoff
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				return ErrorResult(keyword, err)
			default:
				st = stateBackoff
			}

		case stateBackoff:
			retry, err := c.limiter.BackoffOnRateLimit(ctx, attempt, c.retries)
			if err != nil {
				return ErrorResult(keyword, err)
			}
			if !retry {
				st = stateExhausted
				continue
			}
			attempt++
			c.client.CloseIdleConnections()
			st = statePacing

		case stateExhausted:
			slog.Info("Upstream retries exhausted, falling back to synthetic data", "keyword", keyword)
			return MockResult(keyword, c.mock.GenerateTrends(keyword))
		}
	}
}

func (c *Collector) fetchTrending(ctx context.Context) Result {
	if c.preferMock {
		return MockResult(TrendingKeyword, c.mock.GenerateTrendingSearches())
	}

	if err := c.limiter.WaitForSlot(ctx); err != nil {
		return ErrorResult(TrendingKeyword, err)
	}

	payload, err := c.client.TrendingSearches(ctx, "")
	if err != nil {
		slog.Warn("Trending searches fetch failed, falling back to synthetic data", "error", err)
		return MockResult(TrendingKeyword, c.mock.GenerateTrendingSearches())
	}

	return SuccessResult(TrendingKeyword, SourceAPI, payload)
}
