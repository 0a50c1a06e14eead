package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Cache configuration
	CacheDir       string `long:"cache-dir" env:"CACHE_DIR" default:"./data/trends_cache" description:"Directory for the trends cache index and payload files"`
	CacheTTLHours  int    `long:"cache-ttl" env:"CACHE_TTL_HOURS" default:"24" description:"Cache entry time-to-live in hours"`
	CacheMaxSizeMB int    `long:"cache-max-size" env:"CACHE_MAX_SIZE_MB" default:"500" description:"Maximum cache size in megabytes"`

	// Collector configuration
	UpstreamURL        string  `long:"upstream-url" env:"UPSTREAM_URL" default:"https://trends.googleapis.com" description:"Base URL of the upstream trend query API"`
	MinRequestInterval float64 `long:"min-request-interval" env:"MIN_REQUEST_INTERVAL" default:"3.0" description:"Minimum interval between upstream requests in seconds"`
	BaseBackoffDelay   float64 `long:"base-backoff-delay" env:"BASE_BACKOFF_DELAY" default:"15.0" description:"Base delay after a rate limit error in seconds"`
	MaxBackoffDelay    float64 `long:"max-backoff-delay" env:"MAX_BACKOFF_DELAY" default:"120.0" description:"Maximum backoff delay in seconds"`
	RetryCount         int     `long:"retry-count" env:"RETRY_COUNT" default:"3" description:"Number of upstream fetch attempts per keyword"`
	RequestTimeout     int     `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"30" description:"Upstream request timeout in seconds"`
	MockMode           bool    `long:"mock-mode" env:"MOCK_MODE" description:"Skip the upstream API and serve deterministic synthetic data"`

	// Batch processing configuration
	BatchSize         int  `long:"batch-size" env:"BATCH_SIZE" default:"5" description:"Number of unique keywords per upstream batch"`
	ForceRefresh      bool `long:"force-refresh" env:"FORCE_REFRESH" description:"Bypass cache reads and always fetch fresh data"`
	UnsafeConcurrency bool `long:"unsafe-concurrency" env:"UNSAFE_CONCURRENCY" description:"EXPERIMENTAL: fetch keywords concurrently; rate limiter pacing is not coordinated across workers"`

	// Application configuration
	SeedsDir          string `long:"seeds-dir" env:"SEEDS_DIR" default:"./seeds" description:"Directory containing seed keyword list files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers for seed list mining"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Trend Comb/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		CacheDir:           raw.CacheDir,
		CacheTTLHours:      raw.CacheTTLHours,
		CacheMaxSizeMB:     raw.CacheMaxSizeMB,
		UpstreamURL:        raw.UpstreamURL,
		MinRequestInterval: raw.MinRequestInterval,
		BaseBackoffDelay:   raw.BaseBackoffDelay,
		MaxBackoffDelay:    raw.MaxBackoffDelay,
		RetryCount:         raw.RetryCount,
		RequestTimeout:     raw.RequestTimeout,
		MockMode:           raw.MockMode,
		BatchSize:          raw.BatchSize,
		ForceRefresh:       raw.ForceRefresh,
		UnsafeConcurrency:  raw.UnsafeConcurrency,
		SeedsDir:           raw.SeedsDir,
		Port:               raw.Port,
		WorkerCount:        raw.WorkerCount,
		SchedulerInterval:  raw.SchedulerInterval,
		APIAccessKey:       raw.APIAccessKey,
		UserAgent:          raw.UserAgent,
		Timezone:           raw.Timezone,
		Debug:              raw.Debug,
		Version:            GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
