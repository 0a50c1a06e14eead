package tasks

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/trend-comb/app/batch"
	"github.com/lysyi3m/trend-comb/app/cache"
	"github.com/lysyi3m/trend-comb/app/seeds"
	"github.com/lysyi3m/trend-comb/app/trends"
)

type MineSeedListTask struct {
	Task
	SeedList     *seeds.SeedList
	store        *cache.Store
	collector    *trends.Collector
	batchSize    int
	forceRefresh bool
	workers      int
}

func NewMineSeedListTask(listName string, seedList *seeds.SeedList, store *cache.Store, collector *trends.Collector, batchSize int, forceRefresh bool, workers int) *MineSeedListTask {
	return &MineSeedListTask{
		Task:         NewTask(TaskTypeMineSeedList, listName),
		SeedList:     seedList,
		store:        store,
		collector:    collector,
		batchSize:    batchSize,
		forceRefresh: forceRefresh,
		workers:      workers,
	}
}

func (t *MineSeedListTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.SeedList.Settings.Enabled {
		slog.Debug("Seed list disabled, skipping", "list", t.ListName)
		return nil
	}

	orchestrator := batch.NewOrchestrator(t.store, t.collector,
		batch.WithBatchSize(t.batchSize),
		batch.WithTimeframe(t.SeedList.Settings.Timeframe),
		batch.WithForceRefresh(t.SeedList.Settings.ForceRefresh || t.forceRefresh),
		batch.WithUnsafeWorkers(t.workers))

	report := orchestrator.Process(ctx, t.SeedList.Keywords)

	if ctx.Err() != nil {
		return ctx.Err()
	}

	slog.Info("Task completed",
		"type", "MineSeedList",
		"list", t.ListName,
		"duration", t.GetDuration(),
		"total", report.Summary.Total,
		"cache_hits", report.Summary.CacheHits,
		"computed", report.Summary.Computed,
		"duplicates", report.Summary.Duplicates,
		"errors", report.Summary.Errors)

	return nil
}
