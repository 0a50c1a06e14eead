package cache

import (
	"time"

	"github.com/lysyi3m/trend-comb/app/trends"
)

// Entry is one cached trend payload plus its index metadata.
type Entry struct {
	Key              string
	Keyword          string
	Timeframe        string
	DataType         string
	FilePath         string
	SizeBytes        int64
	CreatedAt        time.Time
	LastAccessed     time.Time
	ExpiresAt        time.Time
	AccessCount      int
	QualityScore     float64
	OfflineAvailable bool

	Payload *trends.Payload
}

// DailyStats is one cache_stats row, keyed by calendar day.
type DailyStats struct {
	Date          string  `json:"date"`
	TotalRequests int     `json:"total_requests"`
	Hits          int     `json:"hits"`
	Misses        int     `json:"misses"`
	SizeMB        float64 `json:"size_mb"`
	Cleanups      int     `json:"cleanups"`
}

type KeywordCount struct {
	Keyword     string `json:"keyword"`
	AccessCount int    `json:"access_count"`
}

type Stats struct {
	TotalEntries    int            `json:"total_entries"`
	TotalSizeMB     float64        `json:"total_size_mb"`
	CacheDir        string         `json:"cache_dir"`
	Today           DailyStats     `json:"today"`
	TodayHitRate    float64        `json:"today_hit_rate"`
	PopularKeywords []KeywordCount `json:"popular_keywords"`
}

// OfflineReport summarizes which keywords are servable without the
// upstream API.
type OfflineReport struct {
	TotalKeywords int      `json:"total_keywords"`
	Cached        []string `json:"cached_keywords"`
	Missing       []string `json:"missing_keywords"`
	OfflineReady  bool     `json:"offline_ready"`
}

// payloadFile is the on-disk envelope around a cached payload.
type payloadFile struct {
	CachedAt     time.Time       `json:"cached_at"`
	CacheVersion string          `json:"cache_version"`
	Data         *trends.Payload `json:"data"`
}

const cacheFileVersion = "1.0"
