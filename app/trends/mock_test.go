package trends

import (
	"reflect"
	"testing"
)

func TestMockGenerator_Deterministic(t *testing.T) {
	a := NewMockGenerator(42).GenerateTrends("ai tool")
	b := NewMockGenerator(42).GenerateTrends("ai tool")

	if !reflect.DeepEqual(a, b) {
		t.Error("Same seed and keyword must produce identical payloads")
	}

	c := NewMockGenerator(7).GenerateTrends("ai tool")
	if reflect.DeepEqual(a, c) {
		t.Error("Different seeds should produce different payloads")
	}
}

func TestMockGenerator_SchemaValid(t *testing.T) {
	payload := NewMockGenerator(42).GenerateTrends("ai tool")

	if payload.Keyword != "ai tool" {
		t.Errorf("Unexpected keyword: %s", payload.Keyword)
	}
	if !payload.TrendDirection.Valid() {
		t.Errorf("Invalid trend direction: %s", payload.TrendDirection)
	}
	if n := len(payload.RelatedQueries); n < 10 || n > 50 {
		t.Errorf("Expected 10-50 related queries, got %d", n)
	}
	for i, q := range payload.RelatedQueries {
		if q.Query == "" {
			t.Errorf("Query %d is empty", i)
		}
		if q.Value < 10 || q.Value > 1000 {
			t.Errorf("Query %d: value %d out of range", i, q.Value)
		}
	}
	if payload.PeakInterest <= 0 {
		t.Error("Peak interest should be positive")
	}
	if payload.AverageInterest <= 0 {
		t.Error("Average interest should be positive")
	}
	if float64(payload.PeakInterest) < payload.AverageInterest {
		t.Error("Peak interest cannot be below the average")
	}
}

func TestMockGenerator_TrendingSearches(t *testing.T) {
	payload := NewMockGenerator(42).GenerateTrendingSearches()

	if payload.Keyword != TrendingKeyword {
		t.Errorf("Expected keyword %q, got %q", TrendingKeyword, payload.Keyword)
	}
	if len(payload.RelatedQueries) == 0 {
		t.Fatal("Expected trending entries")
	}
	// Ranked descending from 100.
	if payload.RelatedQueries[0].Value != 100 {
		t.Errorf("Expected top entry value 100, got %d", payload.RelatedQueries[0].Value)
	}
	for i := 1; i < len(payload.RelatedQueries); i++ {
		if payload.RelatedQueries[i].Value >= payload.RelatedQueries[i-1].Value {
			t.Errorf("Entry %d breaks the descending ranking", i)
		}
	}
}
