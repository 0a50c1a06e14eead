package trends

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

var mockQuerySuffixes = []string{
	"tutorial", "guide", "tips", "best", "free", "online", "tool", "software",
	"review", "comparison", "alternative", "price", "cost", "download",
}

var mockQueryPrefixes = []string{"best", "free", "top", "how to"}

var mockTrendingTopics = []string{
	"ai image generator", "ai writing assistant", "chatgpt alternatives",
	"ai video editor", "machine learning course", "ai resume builder",
	"ai logo maker", "text to speech ai", "ai code assistant",
	"ai music generator", "prompt engineering", "ai photo enhancer",
}

// MockGenerator produces deterministic synthetic trend payloads. The
// same keyword and seed always yield the same payload, so the fallback
// path stays reproducible across runs and in tests.
type MockGenerator struct {
	seed int64
}

func NewMockGenerator(seed int64) *MockGenerator {
	return &MockGenerator{seed: seed}
}

// GenerateTrends synthesizes a related-query payload for a keyword,
// schema-compatible with real API results.
func (g *MockGenerator) GenerateTrends(keyword string) *Payload {
	rng := g.rngFor(keyword)

	n := 10 + rng.Intn(41) // 10-50 related queries
	queries := make([]RelatedQuery, 0, n)
	hasGrowth := rng.Float64() > 0.3

	for i := 0; i < n; i++ {
		var query string
		if rng.Float64() > 0.5 {
			query = fmt.Sprintf("%s %s", keyword, mockQuerySuffixes[rng.Intn(len(mockQuerySuffixes))])
		} else {
			query = fmt.Sprintf("%s %s", mockQueryPrefixes[rng.Intn(len(mockQueryPrefixes))], keyword)
		}

		growth := "0%"
		if hasGrowth {
			growth = fmt.Sprintf("%d%%", -50+rng.Intn(551)) // -50% to +500%
		}

		queries = append(queries, RelatedQuery{
			Query:  query,
			Value:  10 + rng.Intn(991), // 10-1000
			Growth: growth,
		})
	}

	return mockPayload(keyword, queries)
}

// GenerateTrendingSearches synthesizes a trending-searches listing for
// the no-keyword path. Values descend from 100 matching the upstream
// ranking convention.
func (g *MockGenerator) GenerateTrendingSearches() *Payload {
	rng := g.rngFor(TrendingKeyword)

	topics := make([]string, len(mockTrendingTopics))
	copy(topics, mockTrendingTopics)
	rng.Shuffle(len(topics), func(i, j int) {
		topics[i], topics[j] = topics[j], topics[i]
	})

	queries := make([]RelatedQuery, 0, len(topics))
	for i, topic := range topics {
		queries = append(queries, RelatedQuery{
			Query:  topic,
			Value:  100 - i,
			Growth: "Trending",
		})
	}

	return mockPayload(TrendingKeyword, queries)
}

func (g *MockGenerator) rngFor(keyword string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(keyword))
	return rand.New(rand.NewSource(g.seed ^ int64(h.Sum64())))
}

func mockPayload(keyword string, queries []RelatedQuery) *Payload {
	sum := 0
	peak := 0
	for _, q := range queries {
		sum += q.Value
		if q.Value > peak {
			peak = q.Value
		}
	}

	avg := 0.0
	if len(queries) > 0 {
		avg = float64(sum) / float64(len(queries))
	}

	return &Payload{
		Keyword:         keyword,
		AverageInterest: avg,
		PeakInterest:    peak,
		TrendDirection:  deriveDirection(queries),
		RelatedQueries:  queries,
	}
}
