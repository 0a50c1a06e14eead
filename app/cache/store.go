package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lysyi3m/trend-comb/app/trends"
	_ "modernc.org/sqlite"
)

const (
	defaultTTL     = 24 * time.Hour
	defaultMaxSize = 500 << 20 // 500 MB
)

type Options struct {
	TTL          time.Duration
	MaxSizeBytes int64
}

// Store is the persistent trend-data cache: a sqlite index plus one
// immutable payload file per entry. The store exclusively owns the
// payload files; nothing else writes them. Single-process ownership of
// the cache directory is assumed.
type Store struct {
	dir     string
	ttl     time.Duration
	maxSize int64
	db      *sql.DB
	now     func() time.Time
}

// Open opens and migrates a cache store rooted at dir.
func Open(dir string, opts Options) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dsn := filepath.Join(dir, "cache_index.db") +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache index: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping cache index: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	store := &Store{
		dir:     dir,
		ttl:     opts.TTL,
		maxSize: opts.MaxSizeBytes,
		db:      db,
		now:     time.Now,
	}
	if store.ttl <= 0 {
		store.ttl = defaultTTL
	}
	if store.maxSize <= 0 {
		store.maxSize = defaultMaxSize
	}

	slog.Debug("Cache store opened", "dir", dir, "ttl", store.ttl.String(), "max_size_mb", store.maxSize>>20)

	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get looks up a non-expired entry. An index row whose payload file is
// unreadable is invalid: the row is purged and the lookup is a miss.
// Cache failures never propagate; they degrade to a miss.
func (s *Store) Get(keyword, timeframe, dataType string) (*Entry, bool) {
	key := Key(keyword, timeframe, dataType)
	now := s.now()

	entry := Entry{Key: key}
	var createdAt, lastAccessed, expiresAt int64
	err := s.db.QueryRow(`
		SELECT keyword, timeframe, data_type, file_path, file_size,
		       created_at, last_accessed, expires_at, access_count,
		       data_quality_score, is_offline_available
		FROM cache_index
		WHERE cache_key = ? AND expires_at > ?
	`, key, now.UnixNano()).Scan(
		&entry.Keyword, &entry.Timeframe, &entry.DataType, &entry.FilePath,
		&entry.SizeBytes, &createdAt, &lastAccessed, &expiresAt,
		&entry.AccessCount, &entry.QualityScore, &entry.OfflineAvailable)

	if errors.Is(err, sql.ErrNoRows) {
		s.recordRequest(false)
		return nil, false
	}
	if err != nil {
		slog.Error("Cache index lookup failed", "keyword", keyword, "error", err)
		s.recordRequest(false)
		return nil, false
	}

	payload, err := s.loadPayloadFile(entry.FilePath)
	if err != nil {
		slog.Warn("Cache payload unreadable, purging index row", "keyword", keyword, "path", entry.FilePath, "error", err)
		s.deleteByKeys([]string{key})
		s.recordRequest(false)
		return nil, false
	}

	if _, err := s.db.Exec(`
		UPDATE cache_index
		SET last_accessed = ?, access_count = access_count + 1
		WHERE cache_key = ?
	`, now.UnixNano(), key); err != nil {
		slog.Error("Failed to update cache access stats", "keyword", keyword, "error", err)
	}

	entry.Payload = payload
	entry.CreatedAt = time.Unix(0, createdAt)
	entry.LastAccessed = now
	entry.ExpiresAt = time.Unix(0, expiresAt)
	entry.AccessCount++

	s.recordRequest(true)
	slog.Debug("Cache hit", "keyword", keyword)

	return &entry, true
}

// Set writes the payload to a new uniquely-named file and replaces the
// index row, then triggers eviction if the store is over budget.
// Returns false on I/O failure instead of raising; the caller treats
// that like a disabled cache.
func (s *Store) Set(keyword string, payload *trends.Payload, timeframe, dataType string, qualityScore float64) bool {
	key := Key(keyword, timeframe, dataType)
	now := s.now()

	// The write timestamp is part of the filename, so two writers of
	// the same key never collide on a payload file.
	filePath := filepath.Join(s.dir, fmt.Sprintf("%s_%d.json", key, now.UnixNano()))

	envelope := payloadFile{
		CachedAt:     now,
		CacheVersion: cacheFileVersion,
		Data:         payload,
	}
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		slog.Error("Failed to encode cache payload", "keyword", keyword, "error", err)
		return false
	}

	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		slog.Error("Failed to write cache payload file", "keyword", keyword, "error", err)
		return false
	}

	if err := s.replaceIndexRow(key, keyword, timeframe, dataType, filePath, int64(len(data)), now, qualityScore); err != nil {
		slog.Error("Failed to update cache index", "keyword", keyword, "error", err)
		os.Remove(filePath)
		return false
	}

	slog.Debug("Cache entry stored", "keyword", keyword, "size_bytes", len(data))

	s.cleanupIfNeeded()

	return true
}

func (s *Store) replaceIndexRow(key, keyword, timeframe, dataType, filePath string, size int64, now time.Time, qualityScore float64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var oldPath string
	err = tx.QueryRow(`SELECT file_path FROM cache_index WHERE cache_key = ?`, key).Scan(&oldPath)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check existing entry: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM cache_index WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete old entry: %w", err)
	}

	nanos := now.UnixNano()
	if _, err := tx.Exec(`
		INSERT INTO cache_index
		(cache_key, keyword, timeframe, data_type, file_path, file_size,
		 created_at, last_accessed, expires_at, data_quality_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, key, keyword, timeframe, dataType, filePath, size,
		nanos, nanos, now.Add(s.ttl).UnixNano(), qualityScore); err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	if oldPath != "" && oldPath != filePath {
		os.Remove(oldPath)
	}

	return nil
}

// cleanupIfNeeded runs the two-phase eviction: expired entries first,
// then least-used (access_count, then recency) until the store fits
// the size budget. The cache can transiently overshoot the budget by
// one entry between writes.
func (s *Store) cleanupIfNeeded() {
	removed := s.sweepExpired()

	total, err := s.totalSize()
	if err != nil {
		slog.Error("Failed to compute cache size", "error", err)
		return
	}

	if total > s.maxSize {
		slog.Info("Cache size over budget, evicting least-used entries",
			"size_mb", total>>20, "budget_mb", s.maxSize>>20)
		removed += s.evictLeastUsed(total)
	}

	if removed > 0 {
		s.recordCleanup(removed)
	}
}

func (s *Store) sweepExpired() int {
	now := s.now().UnixNano()

	rows, err := s.db.Query(`SELECT cache_key FROM cache_index WHERE expires_at < ?`, now)
	if err != nil {
		slog.Error("Failed to query expired entries", "error", err)
		return 0
	}

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			continue
		}
		keys = append(keys, key)
	}
	rows.Close()

	if len(keys) == 0 {
		return 0
	}

	removed := s.deleteByKeys(keys)
	if removed > 0 {
		slog.Info("Removed expired cache entries", "count", removed)
	}
	return removed
}

func (s *Store) evictLeastUsed(total int64) int {
	rows, err := s.db.Query(`
		SELECT cache_key, file_size FROM cache_index
		ORDER BY access_count ASC, last_accessed ASC
	`)
	if err != nil {
		slog.Error("Failed to query eviction candidates", "error", err)
		return 0
	}

	var victims []string
	for rows.Next() {
		if total <= s.maxSize {
			break
		}
		var key string
		var size int64
		if err := rows.Scan(&key, &size); err != nil {
			continue
		}
		victims = append(victims, key)
		total -= size
	}
	rows.Close()

	if len(victims) == 0 {
		return 0
	}

	removed := s.deleteByKeys(victims)
	if removed > 0 {
		slog.Info("Evicted least-used cache entries", "count", removed)
	}
	return removed
}

// deleteByKeys removes index rows and their payload files, returning
// the number of rows deleted.
func (s *Store) deleteByKeys(keys []string) int {
	removed := 0
	for _, key := range keys {
		var filePath string
		err := s.db.QueryRow(`SELECT file_path FROM cache_index WHERE cache_key = ?`, key).Scan(&filePath)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			slog.Error("Failed to look up entry for deletion", "key", key, "error", err)
			continue
		}

		if _, err := s.db.Exec(`DELETE FROM cache_index WHERE cache_key = ?`, key); err != nil {
			slog.Error("Failed to delete cache index row", "key", key, "error", err)
			continue
		}

		if filePath != "" {
			os.Remove(filePath)
		}
		removed++
	}
	return removed
}

// ClearAll removes every cache entry, payload file, and stats row.
func (s *Store) ClearAll() error {
	rows, err := s.db.Query(`SELECT file_path FROM cache_index`)
	if err != nil {
		return fmt.Errorf("failed to list cache files: %w", err)
	}
	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			continue
		}
		paths = append(paths, path)
	}
	rows.Close()

	for _, path := range paths {
		os.Remove(path)
	}

	if _, err := s.db.Exec(`DELETE FROM cache_index`); err != nil {
		return fmt.Errorf("failed to clear cache index: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM cache_stats`); err != nil {
		return fmt.Errorf("failed to clear cache stats: %w", err)
	}

	slog.Info("Cleared all cache entries", "count", len(paths))
	return nil
}

func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{CacheDir: s.dir}

	var totalSize sql.NullInt64
	err := s.db.QueryRow(`SELECT COUNT(*), SUM(file_size) FROM cache_index`).Scan(&stats.TotalEntries, &totalSize)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache totals: %w", err)
	}
	stats.TotalSizeMB = float64(totalSize.Int64) / (1 << 20)

	today := s.today()
	err = s.db.QueryRow(`
		SELECT date, total_requests, cache_hits, cache_misses, cache_size_mb, cleanup_count
		FROM cache_stats WHERE date = ?
	`, today).Scan(&stats.Today.Date, &stats.Today.TotalRequests, &stats.Today.Hits,
		&stats.Today.Misses, &stats.Today.SizeMB, &stats.Today.Cleanups)
	if errors.Is(err, sql.ErrNoRows) {
		stats.Today.Date = today
	} else if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}

	if stats.Today.TotalRequests > 0 {
		stats.TodayHitRate = float64(stats.Today.Hits) / float64(stats.Today.TotalRequests) * 100
	}

	rows, err := s.db.Query(`
		SELECT keyword, access_count FROM cache_index
		ORDER BY access_count DESC LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query popular keywords: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kc KeywordCount
		if err := rows.Scan(&kc.Keyword, &kc.AccessCount); err != nil {
			continue
		}
		stats.PopularKeywords = append(stats.PopularKeywords, kc)
	}

	return stats, nil
}

// EnableOfflineMode checks which of the given keywords are servable
// from cache and marks them offline-available, reporting the split.
// Timeframe and dataType must match the values the entries were stored
// under; a lookup under different coordinates is a different cache key.
func (s *Store) EnableOfflineMode(keywords []string, timeframe, dataType string) (*OfflineReport, error) {
	report := &OfflineReport{TotalKeywords: len(keywords)}
	now := s.now().UnixNano()

	var cachedKeys []string
	for _, keyword := range keywords {
		key := Key(keyword, timeframe, dataType)

		var filePath string
		err := s.db.QueryRow(`
			SELECT file_path FROM cache_index
			WHERE cache_key = ? AND expires_at > ?
		`, key, now).Scan(&filePath)

		if err == nil {
			if _, statErr := os.Stat(filePath); statErr == nil {
				report.Cached = append(report.Cached, keyword)
				cachedKeys = append(cachedKeys, key)
				continue
			}
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to check offline availability: %w", err)
		}
		report.Missing = append(report.Missing, keyword)
	}

	for _, key := range cachedKeys {
		if _, err := s.db.Exec(`UPDATE cache_index SET is_offline_available = 1 WHERE cache_key = ?`, key); err != nil {
			return nil, fmt.Errorf("failed to mark entry offline available: %w", err)
		}
	}

	report.OfflineReady = len(report.Missing) == 0

	slog.Info("Offline mode prepared", "cached", len(report.Cached), "missing", len(report.Missing))

	return report, nil
}

type backupFile struct {
	BackupTime time.Time     `json:"backup_time"`
	Stats      *Stats        `json:"cache_stats"`
	Index      []backupEntry `json:"cache_index"`
}

type backupEntry struct {
	CacheKey         string  `json:"cache_key"`
	Keyword          string  `json:"keyword"`
	Timeframe        string  `json:"timeframe"`
	DataType         string  `json:"data_type"`
	FilePath         string  `json:"file_path"`
	FileSize         int64   `json:"file_size"`
	CreatedAt        int64   `json:"created_at"`
	LastAccessed     int64   `json:"last_accessed"`
	ExpiresAt        int64   `json:"expires_at"`
	AccessCount      int     `json:"access_count"`
	QualityScore     float64 `json:"data_quality_score"`
	OfflineAvailable bool    `json:"is_offline_available"`
}

// ExportBackup writes a JSON snapshot of the cache index and stats.
// An empty path defaults to a timestamped file inside the cache dir.
func (s *Store) ExportBackup(path string) (string, error) {
	if path == "" {
		path = filepath.Join(s.dir, fmt.Sprintf("cache_backup_%s.json", s.now().Format("20060102_150405")))
	}

	stats, err := s.Stats()
	if err != nil {
		return "", err
	}

	backup := backupFile{
		BackupTime: s.now(),
		Stats:      stats,
	}

	rows, err := s.db.Query(`
		SELECT cache_key, keyword, timeframe, data_type, file_path, file_size,
		       created_at, last_accessed, expires_at, access_count,
		       data_quality_score, is_offline_available
		FROM cache_index
	`)
	if err != nil {
		return "", fmt.Errorf("failed to read cache index: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e backupEntry
		if err := rows.Scan(&e.CacheKey, &e.Keyword, &e.Timeframe, &e.DataType,
			&e.FilePath, &e.FileSize, &e.CreatedAt, &e.LastAccessed,
			&e.ExpiresAt, &e.AccessCount, &e.QualityScore, &e.OfflineAvailable); err != nil {
			return "", fmt.Errorf("failed to scan cache index row: %w", err)
		}
		backup.Index = append(backup.Index, e)
	}

	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode backup: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write backup file: %w", err)
	}

	slog.Info("Cache backup exported", "path", path)
	return path, nil
}

func (s *Store) loadPayloadFile(path string) (*trends.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var envelope payloadFile
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("corrupt payload file: %w", err)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("payload file has no data")
	}

	return envelope.Data, nil
}

func (s *Store) totalSize() (int64, error) {
	var total sql.NullInt64
	if err := s.db.QueryRow(`SELECT SUM(file_size) FROM cache_index`).Scan(&total); err != nil {
		return 0, err
	}
	return total.Int64, nil
}

func (s *Store) today() string {
	return s.now().Format("2006-01-02")
}

func (s *Store) recordRequest(hit bool) {
	hits, misses := 0, 1
	if hit {
		hits, misses = 1, 0
	}

	if _, err := s.db.Exec(`
		INSERT INTO cache_stats (date, total_requests, cache_hits, cache_misses)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			total_requests = total_requests + 1,
			cache_hits = cache_hits + excluded.cache_hits,
			cache_misses = cache_misses + excluded.cache_misses
	`, s.today(), hits, misses); err != nil {
		slog.Error("Failed to record cache request stats", "error", err)
	}
}

func (s *Store) recordCleanup(removed int) {
	total, err := s.totalSize()
	if err != nil {
		total = 0
	}
	sizeMB := float64(total) / (1 << 20)

	if _, err := s.db.Exec(`
		INSERT INTO cache_stats (date, cache_size_mb, cleanup_count)
		VALUES (?, ?, 1)
		ON CONFLICT(date) DO UPDATE SET
			cache_size_mb = excluded.cache_size_mb,
			cleanup_count = cleanup_count + 1
	`, s.today(), sizeMB); err != nil {
		slog.Error("Failed to record cache cleanup stats", "error", err)
	}

	slog.Debug("Cache cleanup recorded", "removed", removed, "size_mb", sizeMB)
}
