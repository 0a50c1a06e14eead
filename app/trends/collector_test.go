package trends

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestLimiter() *Limiter {
	return NewLimiter(time.Millisecond, time.Millisecond, 5*time.Millisecond)
}

func TestCollector_FetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"keyword": "ai tool", "rising": [{"query": "ai tool free", "value": 90, "growth": "200%"}], "top": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test", time.Second)
	collector := NewCollector(client, newTestLimiter())

	result := collector.Fetch(context.Background(), "ai tool", "today 12-m")

	if result.Status != StatusSuccess {
		t.Fatalf("Expected success, got %s (%s)", result.Status, result.Error)
	}
	if result.Source != SourceAPI {
		t.Errorf("Expected source api, got %s", result.Source)
	}
	if result.Payload == nil || len(result.Payload.RelatedQueries) != 1 {
		t.Error("Expected payload with one related query")
	}
}

func TestCollector_FallbackAfterExhaustedRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test", time.Second)
	collector := NewCollector(client, newTestLimiter(), WithRetries(3))

	result := collector.Fetch(context.Background(), "ai tool", "")

	// The fallback guarantee: schema-valid payload tagged source=mock.
	if result.Status != StatusSuccess {
		t.Fatalf("Expected success via fallback, got %s", result.Status)
	}
	if result.Source != SourceMock {
		t.Errorf("Expected source mock, got %s", result.Source)
	}
	if result.Payload == nil {
		t.Fatal("Fallback payload must not be nil")
	}
	if !result.Payload.TrendDirection.Valid() {
		t.Errorf("Fallback payload has invalid trend direction: %s", result.Payload.TrendDirection)
	}
	if len(result.Payload.RelatedQueries) == 0 {
		t.Error("Fallback payload should carry related queries")
	}

	if got := calls.Load(); got != 3 {
		t.Errorf("Expected 3 upstream attempts, got %d", got)
	}
}

func TestCollector_PermanentErrorIsNoData(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test", time.Second)
	collector := NewCollector(client, newTestLimiter(), WithRetries(3))

	result := collector.Fetch(context.Background(), "ai tool", "")

	if result.Status != StatusNoData {
		t.Errorf("Expected no_data for permanent upstream error, got %s", result.Status)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("Permanent errors must not be retried, got %d attempts", got)
	}
}

func TestCollector_EmptyUpstreamIsNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"keyword": "obscure", "rising": [], "top": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test", time.Second)
	collector := NewCollector(client, newTestLimiter())

	result := collector.Fetch(context.Background(), "obscure", "")
	if result.Status != StatusNoData {
		t.Errorf("Expected no_data, got %s", result.Status)
	}
}

func TestCollector_MockMode(t *testing.T) {
	// No server at all: mock mode must never touch the upstream.
	client := NewClient("http://127.0.0.1:0", "test", time.Second)
	collector := NewCollector(client, newTestLimiter(), WithMockMode(true))

	result := collector.Fetch(context.Background(), "ai tool", "")

	if result.Status != StatusSuccess || result.Source != SourceMock {
		t.Fatalf("Expected mock success, got status=%s source=%s", result.Status, result.Source)
	}
}

func TestCollector_BlankKeywordFetchesTrending(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/trending_searches" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"geo": "US", "trending": [{"query": "ai news", "value": 100, "growth": "Trending"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test", time.Second)
	collector := NewCollector(client, newTestLimiter())

	result := collector.Fetch(context.Background(), "", "")

	if result.Status != StatusSuccess {
		t.Fatalf("Expected success, got %s", result.Status)
	}
	if result.Keyword != TrendingKeyword {
		t.Errorf("Expected keyword %q, got %q", TrendingKeyword, result.Keyword)
	}
}

func TestCollector_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test", time.Second)
	limiter := NewLimiter(time.Millisecond, 10*time.Second, time.Minute)
	collector := NewCollector(client, limiter, WithRetries(3))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result := collector.Fetch(ctx, "ai tool", "")
	if result.Status != StatusError {
		t.Errorf("Expected error result on cancellation, got %s", result.Status)
	}
}
