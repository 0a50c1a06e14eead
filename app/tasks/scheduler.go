package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/trend-comb/app/cache"
	"github.com/lysyi3m/trend-comb/app/cfg"
	"github.com/lysyi3m/trend-comb/app/seeds"
	"github.com/lysyi3m/trend-comb/app/trends"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const backupInterval = 24 * time.Hour

type Scheduler struct {
	seedLists     map[string]*seeds.SeedList
	store         *cache.Store
	collector     *trends.Collector
	batchSize     int
	forceRefresh  bool
	miningWorkers int
	interval      time.Duration
	workerCount   int
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	taskQueue     chan TaskInterface

	mu         sync.Mutex
	lastRun    map[string]time.Time
	lastBackup time.Time
}

func NewScheduler(seedLists map[string]*seeds.SeedList, store *cache.Store, collector *trends.Collector) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	miningWorkers := 1
	if cfg.UnsafeConcurrency {
		miningWorkers = cfg.WorkerCount
	}

	return &Scheduler{
		seedLists:     seedLists,
		store:         store,
		collector:     collector,
		batchSize:     cfg.BatchSize,
		forceRefresh:  cfg.ForceRefresh,
		miningWorkers: miningWorkers,
		interval:      time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount:   cfg.WorkerCount,
		ctx:           ctx,
		cancel:        cancel,
		taskQueue:     make(chan TaskInterface, 300),
		lastRun:       make(map[string]time.Time),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()

}

// Stop cancels all workers and waits for them, including pending retry
// goroutines. The queue channel is left open so a racing EnqueueTask
// can never send on a closed channel.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if s.ctx.Err() != nil {
		return s.ctx.Err()
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	if len(s.seedLists) == 0 {
		slog.Debug("No seed lists found")
		return
	}

	slog.Debug("Processing seed lists", "count", len(s.seedLists))

	for name, list := range s.seedLists {
		if !list.Settings.Enabled {
			slog.Debug("Seed list disabled, skipping MineSeedListTask", "list", name)
			continue
		}

		mineTask := NewMineSeedListTask(name, list, s.store, s.collector, s.batchSize, s.forceRefresh, s.miningWorkers)
		if err := s.EnqueueTask(mineTask); err != nil {
			slog.Warn("Failed to enqueue MineSeedListTask", "list", name, "error", err)
			continue
		}
		s.markRun(name)
	}
}

func (s *Scheduler) enqueueTasks() {
	now := time.Now().UTC()

	for name, list := range s.seedLists {
		if !list.Settings.Enabled {
			continue
		}

		if !s.isDue(name, list.Settings.GetRefreshInterval(), now) {
			slog.Debug("Seed list not due for mining yet", "list", name)
			continue
		}

		mineTask := NewMineSeedListTask(name, list, s.store, s.collector, s.batchSize, s.forceRefresh, s.miningWorkers)
		if err := s.EnqueueTask(mineTask); err != nil {
			slog.Warn("Failed to enqueue MineSeedListTask", "list", name, "error", err)
			continue
		}
		s.markRun(name)
	}

	s.mu.Lock()
	backupDue := now.Sub(s.lastBackup) >= backupInterval
	if backupDue {
		s.lastBackup = now
	}
	s.mu.Unlock()

	if backupDue {
		backupTask := NewBackupCacheTask(s.store)
		if err := s.EnqueueTask(backupTask); err != nil {
			slog.Warn("Failed to enqueue BackupCacheTask", "error", err)
		}
	}
}

func (s *Scheduler) isDue(name string, refreshInterval time.Duration, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.lastRun[name]
	if !ok {
		return true
	}
	return now.Sub(last) >= refreshInterval
}

func (s *Scheduler) markRun(name string) {
	s.mu.Lock()
	s.lastRun[name] = time.Now().UTC()
	s.mu.Unlock()
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 30*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "list", task.GetListName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()

				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				case <-time.After(retryDelay):
				}

				if retryErr := s.EnqueueTask(task); retryErr != nil {
					slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
