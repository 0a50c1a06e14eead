package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lysyi3m/trend-comb/app/trends"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()

	store, err := Open(t.TempDir(), opts)
	if err != nil {
		t.Fatalf("Failed to open cache store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Failed to close store: %v", err)
		}
	})
	return store
}

func testPayload(keyword string) *trends.Payload {
	return &trends.Payload{
		Keyword:         keyword,
		AverageInterest: 55,
		PeakInterest:    90,
		TrendDirection:  trends.TrendRising,
		RelatedQueries: []trends.RelatedQuery{
			{Query: keyword + " free", Value: 90, Growth: "150%"},
			{Query: "best " + keyword, Value: 20, Growth: "40%"},
		},
	}
}

func TestStore_SetAndGet(t *testing.T) {
	store := newTestStore(t, Options{})

	if ok := store.Set("ai tool", testPayload("ai tool"), "today 12-m", "trends", 85); !ok {
		t.Fatal("Set failed")
	}

	entry, ok := store.Get("ai tool", "today 12-m", "trends")
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if entry.Keyword != "ai tool" {
		t.Errorf("Unexpected keyword: %s", entry.Keyword)
	}
	if entry.Payload == nil || len(entry.Payload.RelatedQueries) != 2 {
		t.Error("Payload not round-tripped")
	}
	if entry.QualityScore != 85 {
		t.Errorf("Expected quality score 85, got %.1f", entry.QualityScore)
	}
	if entry.AccessCount != 1 {
		t.Errorf("Expected access count 1 after first hit, got %d", entry.AccessCount)
	}
	if !entry.ExpiresAt.After(entry.CreatedAt) {
		t.Error("Entry must expire after its creation time")
	}
}

func TestStore_GetMiss(t *testing.T) {
	store := newTestStore(t, Options{})

	if _, ok := store.Get("never stored", "", ""); ok {
		t.Error("Expected miss for unknown keyword")
	}
}

func TestStore_KeyIsCaseAndWhitespaceInsensitive(t *testing.T) {
	store := newTestStore(t, Options{})

	store.Set("ai tool", testPayload("ai tool"), "", "", 50)

	if _, ok := store.Get("  AI   Tool ", "", ""); !ok {
		t.Error("Lookup should normalize case and whitespace")
	}
}

func TestStore_IdempotentOverwrite(t *testing.T) {
	store := newTestStore(t, Options{})

	first := testPayload("ai tool")
	store.Set("ai tool", first, "", "", 50)

	second := testPayload("ai tool")
	second.PeakInterest = 999
	store.Set("ai tool", second, "", "", 60)

	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM cache_index`).Scan(&count); err != nil {
		t.Fatalf("Count query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected exactly one index row after overwrite, got %d", count)
	}

	entry, ok := store.Get("ai tool", "", "")
	if !ok {
		t.Fatal("Expected hit")
	}
	if entry.Payload.PeakInterest != 999 {
		t.Errorf("Get should return the latest payload, got peak %d", entry.Payload.PeakInterest)
	}
}

func TestStore_TTLExpiry(t *testing.T) {
	store := newTestStore(t, Options{TTL: 50 * time.Millisecond})

	store.Set("x", testPayload("x"), "", "", 50)

	if _, ok := store.Get("x", "", ""); !ok {
		t.Fatal("Entry should be available before expiry")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := store.Get("x", "", ""); ok {
		t.Error("Expired entry must be a miss")
	}

	// The next write sweeps the expired row away.
	store.Set("y", testPayload("y"), "", "", 50)

	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM cache_index WHERE keyword = 'x'`).Scan(&count); err != nil {
		t.Fatalf("Count query failed: %v", err)
	}
	if count != 0 {
		t.Error("Cleanup sweep should remove the expired row")
	}
}

func TestStore_CorruptPayloadPurgedOnAccess(t *testing.T) {
	store := newTestStore(t, Options{})

	store.Set("ai tool", testPayload("ai tool"), "", "", 50)

	var filePath string
	if err := store.db.QueryRow(`SELECT file_path FROM cache_index`).Scan(&filePath); err != nil {
		t.Fatalf("Failed to read file path: %v", err)
	}
	if err := os.WriteFile(filePath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("Failed to corrupt payload: %v", err)
	}

	if _, ok := store.Get("ai tool", "", ""); ok {
		t.Error("Corrupt payload must be a miss")
	}

	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM cache_index`).Scan(&count); err != nil {
		t.Fatalf("Count query failed: %v", err)
	}
	if count != 0 {
		t.Error("Stale index row should be purged when its payload is unreadable")
	}
}

func TestStore_MissingPayloadFileIsMiss(t *testing.T) {
	store := newTestStore(t, Options{})

	store.Set("ai tool", testPayload("ai tool"), "", "", 50)

	var filePath string
	if err := store.db.QueryRow(`SELECT file_path FROM cache_index`).Scan(&filePath); err != nil {
		t.Fatalf("Failed to read file path: %v", err)
	}
	os.Remove(filePath)

	if _, ok := store.Get("ai tool", "", ""); ok {
		t.Error("Entry without a readable payload must be a miss")
	}
}

func TestStore_EvictionUnderPressure(t *testing.T) {
	const budget = 4096
	store := newTestStore(t, Options{MaxSizeBytes: budget})

	if ok := store.Set("alpha", testPayload("alpha"), "", "", 50); !ok {
		t.Fatal("Set alpha failed")
	}
	// Bump access counts before any eviction can run so "alpha" stays hot.
	store.Get("alpha", "", "")
	store.Get("alpha", "", "")

	for i := 0; i < 30; i++ {
		kw := fmt.Sprintf("filler-%02d", i)
		if ok := store.Set(kw, testPayload(kw), "", "", 50); !ok {
			t.Fatalf("Set %s failed", kw)
		}
	}

	total, err := store.totalSize()
	if err != nil {
		t.Fatalf("totalSize failed: %v", err)
	}
	if total > budget {
		t.Errorf("Cache size %d exceeds budget after eviction", total)
	}

	// The hot entry survives; cold entries were evicted first.
	if _, ok := store.Get("alpha", "", ""); !ok {
		t.Error("Most-accessed entry should survive eviction")
	}
}

func TestStore_ClearAll(t *testing.T) {
	store := newTestStore(t, Options{})

	store.Set("a", testPayload("a"), "", "", 50)
	store.Set("b", testPayload("b"), "", "", 50)

	if err := store.ClearAll(); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}

	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM cache_index`).Scan(&count); err != nil {
		t.Fatalf("Count query failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected empty index, got %d rows", count)
	}

	if _, ok := store.Get("a", "", ""); ok {
		t.Error("Expected miss after ClearAll")
	}
}

func TestStore_StatsCounters(t *testing.T) {
	store := newTestStore(t, Options{})

	store.Set("ai tool", testPayload("ai tool"), "", "", 50)

	store.Get("ai tool", "", "") // hit
	store.Get("unknown", "", "") // miss
	store.Get("ai tool", "", "") // hit

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.TotalEntries != 1 {
		t.Errorf("Expected 1 entry, got %d", stats.TotalEntries)
	}
	if stats.Today.Hits != 2 {
		t.Errorf("Expected 2 hits, got %d", stats.Today.Hits)
	}
	if stats.Today.Misses != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Today.Misses)
	}
	if stats.Today.TotalRequests != 3 {
		t.Errorf("Expected 3 total requests, got %d", stats.Today.TotalRequests)
	}
	if stats.TodayHitRate < 66 || stats.TodayHitRate > 67 {
		t.Errorf("Expected ~66.7%% hit rate, got %.1f", stats.TodayHitRate)
	}
	if len(stats.PopularKeywords) != 1 || stats.PopularKeywords[0].Keyword != "ai tool" {
		t.Error("Popular keywords should list the accessed entry")
	}
}

func TestStore_EnableOfflineMode(t *testing.T) {
	store := newTestStore(t, Options{})

	// Stored under the same coordinates the processing pipeline uses.
	store.Set("cached one", testPayload("cached one"), "today 12-m", "trends", 50)

	report, err := store.EnableOfflineMode([]string{"cached one", "missing one"}, "today 12-m", "trends")
	if err != nil {
		t.Fatalf("EnableOfflineMode failed: %v", err)
	}

	if len(report.Cached) != 1 || report.Cached[0] != "cached one" {
		t.Errorf("Unexpected cached list: %v", report.Cached)
	}
	if len(report.Missing) != 1 || report.Missing[0] != "missing one" {
		t.Errorf("Unexpected missing list: %v", report.Missing)
	}
	if report.OfflineReady {
		t.Error("Offline mode should not be ready with missing keywords")
	}

	var offline bool
	if err := store.db.QueryRow(`SELECT is_offline_available FROM cache_index WHERE keyword = 'cached one'`).Scan(&offline); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if !offline {
		t.Error("Cached keyword should be marked offline available")
	}
}

func TestStore_EnableOfflineMode_TimeframeMismatch(t *testing.T) {
	store := newTestStore(t, Options{})

	store.Set("ai tool", testPayload("ai tool"), "today 12-m", "trends", 50)

	report, err := store.EnableOfflineMode([]string{"ai tool"}, "today 3-m", "trends")
	if err != nil {
		t.Fatalf("EnableOfflineMode failed: %v", err)
	}

	// Different timeframe means a different cache key, so the keyword
	// must be reported missing rather than silently matched.
	if len(report.Cached) != 0 {
		t.Errorf("Expected no cached keywords under a different timeframe, got %v", report.Cached)
	}
	if len(report.Missing) != 1 {
		t.Errorf("Expected keyword reported missing, got %v", report.Missing)
	}
}

func TestStore_ExportBackup(t *testing.T) {
	store := newTestStore(t, Options{})

	store.Set("ai tool", testPayload("ai tool"), "", "", 85)

	path := filepath.Join(t.TempDir(), "backup.json")
	got, err := store.ExportBackup(path)
	if err != nil {
		t.Fatalf("ExportBackup failed: %v", err)
	}
	if got != path {
		t.Errorf("Expected backup at %s, got %s", path, got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read backup: %v", err)
	}
	if len(data) == 0 {
		t.Error("Backup file is empty")
	}
}

func TestNormalizeKeyword(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"AI Tool", "ai tool"},
		{"  ai tool  ", "ai tool"},
		{"ai    tool", "ai tool"},
		{"AI\tTool", "ai tool"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeKeyword(tt.input); got != tt.expected {
			t.Errorf("NormalizeKeyword(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestKey_Deterministic(t *testing.T) {
	a := Key("AI Tool", "today 12-m", "trends")
	b := Key("ai tool ", "today 12-m", "trends")
	if a != b {
		t.Error("Keys must be stable under case and whitespace variation")
	}

	c := Key("ai tool", "today 3-m", "trends")
	if a == c {
		t.Error("Different timeframes must produce different keys")
	}

	// Blank timeframe and data type fall back to defaults.
	d := Key("ai tool", "", "")
	e := Key("ai tool", "default", "trends")
	if d != e {
		t.Error("Blank timeframe/data type should use defaults")
	}
}
