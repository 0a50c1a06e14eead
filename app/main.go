package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/trend-comb/app/api"
	"github.com/lysyi3m/trend-comb/app/cache"
	"github.com/lysyi3m/trend-comb/app/cfg"
	"github.com/lysyi3m/trend-comb/app/seeds"
	"github.com/lysyi3m/trend-comb/app/tasks"
	"github.com/lysyi3m/trend-comb/app/trends"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Load configuration from environment variables and command-line flags
	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	if appCfg.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	log.Printf("Starting Trend Comb server (version %s)...", appCfg.Version)

	// Open the trends cache
	log.Printf("Opening trends cache at %s...", appCfg.CacheDir)
	store, err := cache.Open(appCfg.CacheDir, cache.Options{
		TTL:          time.Duration(appCfg.CacheTTLHours) * time.Hour,
		MaxSizeBytes: int64(appCfg.CacheMaxSizeMB) << 20,
	})
	if err != nil {
		log.Fatal("Failed to open trends cache:", err)
	}
	defer store.Close()
	log.Printf("Trends cache opened successfully")

	// Load seed keyword lists
	log.Printf("Loading seed lists from %s...", appCfg.SeedsDir)
	seedLoader := seeds.NewLoader(appCfg.SeedsDir)
	seedLists, err := seedLoader.LoadAll()
	if err != nil {
		log.Fatal("Failed to load seed lists:", err)
	}
	log.Printf("Loaded %d seed lists", len(seedLists))

	// Initialize collector components
	client := trends.NewClient(appCfg.UpstreamURL, appCfg.UserAgent,
		time.Duration(appCfg.RequestTimeout)*time.Second)
	limiter := trends.DefaultLimiter(
		secondsToDuration(appCfg.MinRequestInterval),
		secondsToDuration(appCfg.BaseBackoffDelay),
		secondsToDuration(appCfg.MaxBackoffDelay))
	collector := trends.NewCollector(client, limiter,
		trends.WithRetries(appCfg.RetryCount),
		trends.WithMockMode(appCfg.MockMode))

	if appCfg.MockMode {
		log.Printf("Mock mode enabled: upstream API will not be contacted")
	}

	miningWorkers := 1
	if appCfg.UnsafeConcurrency {
		miningWorkers = appCfg.WorkerCount
		log.Printf("WARNING: unsafe concurrency enabled with %d workers; rate limiter pacing is not coordinated across them", miningWorkers)
	}
	if appCfg.ForceRefresh {
		log.Printf("Force refresh enabled: cache reads are bypassed for every batch")
	}

	// Initialize and start scheduler
	log.Printf("Starting background scheduler with %d workers...", appCfg.WorkerCount)
	scheduler := tasks.NewScheduler(seedLists, store, collector)
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize HTTP server
	log.Println("Initializing HTTP server...")
	apiHandler := api.NewHandler(store, collector, limiter, seedLists, scheduler,
		appCfg.BatchSize, appCfg.ForceRefresh, miningWorkers)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	// Create HTTP server with timeouts
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start HTTP server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on port %s", appCfg.Port)
		log.Printf("Endpoints available:")
		log.Printf("  Health check:  http://localhost:%s/health", appCfg.Port)
		log.Printf("  Statistics:    http://localhost:%s/stats", appCfg.Port)

		if appCfg.APIAccessKey != "" {
			log.Printf("  Process:       http://localhost:%s/api/keywords/process (POST, requires API key)", appCfg.Port)
			log.Printf("  Seed lists:    http://localhost:%s/api/seeds (requires API key)", appCfg.Port)
			log.Printf("  Mine list:     http://localhost:%s/api/seeds/<name>/mine (POST, requires API key)", appCfg.Port)
			log.Printf("  Cache admin:   http://localhost:%s/api/cache/{clear,backup,offline} (POST, requires API key)", appCfg.Port)
		} else {
			log.Printf("  API endpoints: DISABLED (API_ACCESS_KEY not set)")
		}

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	log.Println("Trend Comb server started successfully!")
	log.Println("Press Ctrl+C to shutdown gracefully...")

	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
	case err := <-serverErrChan:
		log.Printf("Server error: %v", err)
	}

	// Graceful shutdown
	log.Println("Shutting down server gracefully...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	} else {
		log.Println("HTTP server stopped")
	}

	// Scheduler is stopped via defer
	log.Println("Background scheduler stopped")

	log.Println("Trend Comb server shutdown complete")
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
