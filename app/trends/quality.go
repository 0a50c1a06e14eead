package trends

import "time"

// QualityScore rates a payload 0-100 from field completeness, related
// query count, freshness, and trend-direction validity. Used when
// writing entries back to the cache so reporting can rank what is
// worth keeping.
func QualityScore(p *Payload, fetchedAt time.Time) float64 {
	if p == nil {
		return 0
	}

	score := 0.0

	// Field completeness: up to 40 points.
	if p.Keyword != "" {
		score += 10
	}
	if p.AverageInterest > 0 {
		score += 15
	}
	if p.PeakInterest > 0 {
		score += 15
	}

	// Related query coverage: up to 30 points, saturating at 25 queries.
	count := len(p.RelatedQueries)
	if count > 25 {
		count = 25
	}
	score += float64(count) / 25 * 30

	// Freshness: up to 20 points, decaying linearly over 24 hours.
	age := time.Since(fetchedAt)
	if age < 0 {
		age = 0
	}
	if age < 24*time.Hour {
		score += 20 * (1 - age.Hours()/24)
	}

	// Trend direction validity: 10 points.
	if p.TrendDirection.Valid() {
		score += 10
	}

	return score
}
