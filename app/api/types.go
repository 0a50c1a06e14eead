package api

import (
	"github.com/lysyi3m/trend-comb/app/cache"
	"github.com/lysyi3m/trend-comb/app/seeds"
	"github.com/lysyi3m/trend-comb/app/tasks"
	"github.com/lysyi3m/trend-comb/app/trends"
)

type Handler struct {
	store        *cache.Store
	collector    *trends.Collector
	limiter      *trends.Limiter
	seedLists    map[string]*seeds.SeedList
	scheduler    tasks.TaskSchedulerInterface
	batchSize    int
	forceRefresh bool
	workers      int
}

// ProcessRequest is the body of POST /api/keywords/process
type ProcessRequest struct {
	Keywords     []string `json:"keywords" binding:"required"`
	ForceRefresh bool     `json:"force_refresh"`
}

// OfflineRequest is the body of POST /api/cache/offline. Timeframe and
// data type default to the pipeline's values when omitted.
type OfflineRequest struct {
	Keywords  []string `json:"keywords" binding:"required"`
	Timeframe string   `json:"timeframe"`
	DataType  string   `json:"data_type"`
}

// BackupRequest is the body of POST /api/cache/backup
type BackupRequest struct {
	Path string `json:"path"`
}
