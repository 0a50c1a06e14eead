package batch

import (
	"github.com/lysyi3m/trend-comb/app/trends"
)

// Summary is the processing_summary block attached to every batch run.
type Summary struct {
	Total        int               `json:"total"`
	Processed    int               `json:"processed"`
	CacheHits    int               `json:"cache_hits"`
	Computed     int               `json:"computed"`
	Duplicates   int               `json:"duplicates"`
	NoData       int               `json:"no_data"`
	Errors       int               `json:"errors"`
	SkippedBlank int               `json:"skipped_blank"`
	Batches      int               `json:"batches"`
	SuccessRate  float64           `json:"success_rate"`
	CacheHitRate float64           `json:"cache_hit_rate"`
	ErrorDetails map[string]string `json:"error_details,omitempty"`
}

// Report is the public output of a batch run: one result per surviving
// input keyword, in input order, plus the summary.
type Report struct {
	Results []trends.Result `json:"results"`
	Summary Summary         `json:"processing_summary"`
}
