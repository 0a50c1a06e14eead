package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/trend-comb/app/cache"
)

// BackupCacheTask exports the cache index and stats to a timestamped
// JSON snapshot inside the cache directory.
type BackupCacheTask struct {
	Task
	store *cache.Store
}

func NewBackupCacheTask(store *cache.Store) *BackupCacheTask {
	return &BackupCacheTask{
		Task:  NewTask(TaskTypeCacheBackup, "cache"),
		store: store,
	}
}

func (t *BackupCacheTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	path, err := t.store.ExportBackup("")
	if err != nil {
		return fmt.Errorf("failed to export cache backup: %w", err)
	}

	slog.Info("Task completed",
		"type", "BackupCache",
		"duration", t.GetDuration(),
		"path", path)

	return nil
}
