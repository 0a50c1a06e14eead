package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/trend-comb/app/batch"
	"github.com/lysyi3m/trend-comb/app/cache"
	"github.com/lysyi3m/trend-comb/app/seeds"
	"github.com/lysyi3m/trend-comb/app/tasks"
	"github.com/lysyi3m/trend-comb/app/trends"
)

func NewHandler(store *cache.Store, collector *trends.Collector, limiter *trends.Limiter,
	seedLists map[string]*seeds.SeedList, scheduler tasks.TaskSchedulerInterface,
	batchSize int, forceRefresh bool, workers int) *Handler {
	return &Handler{
		store:        store,
		collector:    collector,
		limiter:      limiter,
		seedLists:    seedLists,
		scheduler:    scheduler,
		batchSize:    batchSize,
		forceRefresh: forceRefresh,
		workers:      workers,
	}
}

func (h *Handler) ProcessKeywords(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if len(req.Keywords) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one keyword is required"})
		return
	}

	orchestrator := batch.NewOrchestrator(h.store, h.collector,
		batch.WithBatchSize(h.batchSize),
		batch.WithForceRefresh(req.ForceRefresh || h.forceRefresh),
		batch.WithUnsafeWorkers(h.workers))

	report := orchestrator.Process(c.Request.Context(), req.Keywords)

	c.JSON(http.StatusOK, report)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if stats, err := h.store.Stats(); err == nil {
		health["cached_entries"] = stats.TotalEntries
	}

	health["loaded_seed_lists"] = len(h.seedLists)

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	cacheStats, err := h.store.Stats()
	if err != nil {
		slog.Error("Database error", "operation", "cache_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read cache stats"})
		return
	}

	limiterStats := h.limiter.Stats()

	c.JSON(http.StatusOK, gin.H{
		"cache":      cacheStats,
		"limiter":    limiterStats,
		"seed_lists": len(h.seedLists),
	})
}

func (h *Handler) APIClearCache(c *gin.Context) {
	if err := h.store.ClearAll(); err != nil {
		slog.Error("Failed to clear cache", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cache", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Cache cleared successfully",
	})
}

func (h *Handler) APIBackupCache(c *gin.Context) {
	var req BackupRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}

	path, err := h.store.ExportBackup(req.Path)
	if err != nil {
		slog.Error("Failed to export cache backup", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export backup", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"path":    path,
	})
}

func (h *Handler) APIEnableOfflineMode(c *gin.Context) {
	var req OfflineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if req.Timeframe == "" {
		req.Timeframe = batch.DefaultTimeframe
	}
	if req.DataType == "" {
		req.DataType = batch.DefaultDataType
	}

	report, err := h.store.EnableOfflineMode(req.Keywords, req.Timeframe, req.DataType)
	if err != nil {
		slog.Error("Failed to enable offline mode", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enable offline mode", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) APIListSeedLists(c *gin.Context) {
	lists := make([]map[string]interface{}, 0, len(h.seedLists))

	for name, list := range h.seedLists {
		lists = append(lists, map[string]interface{}{
			"name":             name,
			"keywords":         len(list.Keywords),
			"enabled":          list.Settings.Enabled,
			"timeframe":        list.Settings.Timeframe,
			"refresh_interval": list.Settings.GetRefreshInterval().String(),
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"seed_lists": lists,
		"total":      len(lists),
	})
}

func (h *Handler) APIMineSeedList(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing seed list name parameter"})
		return
	}

	list, ok := h.seedLists[name]
	if !ok {
		slog.Error("Seed list not found", "list", name)
		c.JSON(http.StatusNotFound, gin.H{"error": "Seed list not found"})
		return
	}

	mineTask := tasks.NewMineSeedListTask(name, list, h.store, h.collector, h.batchSize, h.forceRefresh, h.workers)
	if err := h.scheduler.EnqueueTask(mineTask); err != nil {
		slog.Error("Error enqueueing mine task", "list", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue mine task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Mining task enqueued successfully",
		"task": gin.H{
			"id":   mineTask.ID,
			"type": mineTask.Type,
		},
	})
}
