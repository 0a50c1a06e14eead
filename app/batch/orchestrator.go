package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lysyi3m/trend-comb/app/cache"
	"github.com/lysyi3m/trend-comb/app/trends"
)

const defaultBatchSize = 5

// Cache coordinates shared by everything that reads or writes trend
// entries. Offline marking and cache admin must use the same values or
// they will miss every entry the pipeline stores.
const (
	DefaultTimeframe = "today 12-m"
	DefaultDataType  = "trends"
)

// Orchestrator runs keyword lists through the cache and the collector.
// Output order matches input order, duplicates are computed once and
// fanned out, and any per-keyword failure is isolated into that
// keyword's result.
type Orchestrator struct {
	store        *cache.Store
	collector    *trends.Collector
	batchSize    int
	timeframe    string
	dataType     string
	forceRefresh bool
	workers      int
}

type Option func(*Orchestrator)

func WithBatchSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

func WithTimeframe(timeframe string) Option {
	return func(o *Orchestrator) {
		o.timeframe = timeframe
	}
}

// WithForceRefresh bypasses cache reads; fresh results are still
// written back.
func WithForceRefresh(enabled bool) Option {
	return func(o *Orchestrator) {
		o.forceRefresh = enabled
	}
}

// WithUnsafeWorkers enables the experimental concurrent mode with a
// fixed-size worker pool. The rate limiter's pacing state is not
// coordinated across workers, so this must stay opt-in.
func WithUnsafeWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 1 {
			o.workers = n
		}
	}
}

func NewOrchestrator(store *cache.Store, collector *trends.Collector, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     store,
		collector: collector,
		batchSize: defaultBatchSize,
		timeframe: DefaultTimeframe,
		dataType:  DefaultDataType,
		workers:   1,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process collects trend data for every keyword in the list. Blank
// entries are dropped with a warning; everything else yields exactly
// one result at its input position. No failure escapes this method.
func (o *Orchestrator) Process(ctx context.Context, keywords []string) *Report {
	summary := Summary{Total: len(keywords), ErrorDetails: map[string]string{}}

	// Trim and drop blanks, preserving input order. Dedup works on the
	// trimmed form; case and whitespace variants of the same keyword
	// still converge on one cache entry through key canonicalization.
	pending := make([]string, 0, len(keywords))
	for _, raw := range keywords {
		display := strings.TrimSpace(raw)
		if display == "" {
			slog.Warn("Skipping blank keyword in batch input")
			summary.SkippedBlank++
			continue
		}
		pending = append(pending, display)
	}
	summary.Processed = len(pending)

	// Dedup: each keyword is resolved at most once.
	seen := make(map[string]struct{}, len(pending))
	unique := make([]string, 0, len(pending))
	for _, keyword := range pending {
		if _, ok := seen[keyword]; ok {
			summary.Duplicates++
			continue
		}
		seen[keyword] = struct{}{}
		unique = append(unique, keyword)
	}

	slog.Info("Processing keyword batch",
		"total", summary.Total,
		"unique", len(unique),
		"duplicates", summary.Duplicates,
		"force_refresh", o.forceRefresh)

	resolved := o.resolveAll(ctx, unique, &summary)

	// Fan resolved results back out to every occurrence, input order.
	results := make([]trends.Result, 0, len(pending))
	for _, keyword := range pending {
		r, ok := resolved[keyword]
		if !ok {
			// Should not happen; keep the batch whole regardless.
			r = trends.ErrorResult(keyword, fmt.Errorf("keyword was not resolved"))
		}
		r.Keyword = keyword
		results = append(results, r)
	}

	succeeded := 0
	for _, r := range results {
		switch r.Status {
		case trends.StatusSuccess:
			succeeded++
		case trends.StatusNoData:
			summary.NoData++
		case trends.StatusError:
			summary.Errors++
		}
	}

	if summary.Processed > 0 {
		summary.SuccessRate = float64(succeeded) / float64(summary.Processed) * 100
	}
	if lookups := summary.CacheHits + summary.Computed; lookups > 0 {
		summary.CacheHitRate = float64(summary.CacheHits) / float64(lookups) * 100
	}

	slog.Info("Batch complete",
		"succeeded", succeeded,
		"no_data", summary.NoData,
		"errors", summary.Errors,
		"cache_hits", summary.CacheHits,
		"computed", summary.Computed)

	return &Report{Results: results, Summary: summary}
}

// resolveAll resolves each unique keyword exactly once, batch by batch.
func (o *Orchestrator) resolveAll(ctx context.Context, unique []string, summary *Summary) map[string]trends.Result {
	resolved := make(map[string]trends.Result, len(unique))

	var mu sync.Mutex
	record := func(keyword string, r trends.Result, fromCache bool) {
		mu.Lock()
		defer mu.Unlock()
		resolved[keyword] = r
		if fromCache {
			summary.CacheHits++
		} else if r.Status == trends.StatusSuccess {
			summary.Computed++
		}
		if r.Status == trends.StatusError {
			summary.ErrorDetails[keyword] = r.Error
		}
	}

	for i := 0; i < len(unique); i += o.batchSize {
		end := i + o.batchSize
		if end > len(unique) {
			end = len(unique)
		}
		chunk := unique[i:end]
		summary.Batches++

		slog.Debug("Processing batch", "batch", summary.Batches, "size", len(chunk))

		if o.workers > 1 {
			o.resolveConcurrent(ctx, chunk, record)
			continue
		}
		for _, keyword := range chunk {
			r, fromCache := o.resolveOne(ctx, keyword)
			record(keyword, r, fromCache)
		}
	}

	return resolved
}

// resolveConcurrent is the experimental worker-pool path. Pacing
// accuracy degrades because all workers share one limiter without
// coordinated slots.
func (o *Orchestrator) resolveConcurrent(ctx context.Context, chunk []string, record func(string, trends.Result, bool)) {
	queue := make(chan string, len(chunk))
	for _, keyword := range chunk {
		queue <- keyword
	}
	close(queue)

	var wg sync.WaitGroup
	for w := 0; w < o.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for keyword := range queue {
				r, fromCache := o.resolveOne(ctx, keyword)
				record(keyword, r, fromCache)
			}
		}()
	}
	wg.Wait()
}

// resolveOne resolves a single keyword: cache first (unless force
// refresh), then the collector, writing fresh payloads back with a
// computed quality score. Panics from either layer are contained into
// an error result.
func (o *Orchestrator) resolveOne(ctx context.Context, keyword string) (result trends.Result, fromCache bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Keyword processing panicked", "keyword", keyword, "panic", r)
			result = trends.ErrorResult(keyword, fmt.Errorf("internal error: %v", r))
			fromCache = false
		}
	}()

	if !o.forceRefresh {
		if entry, ok := o.store.Get(keyword, o.timeframe, o.dataType); ok {
			return trends.SuccessResult(keyword, trends.SourceCache, entry.Payload), true
		}
	}

	result = o.collector.Fetch(ctx, keyword, o.timeframe)

	if result.Status == trends.StatusSuccess && result.Payload != nil {
		score := trends.QualityScore(result.Payload, time.Now())
		if ok := o.store.Set(keyword, result.Payload, o.timeframe, o.dataType, score); !ok {
			slog.Warn("Failed to cache fresh trend data", "keyword", keyword)
		}
	}

	return result, false
}
