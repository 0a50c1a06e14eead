package trends

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNoData signals that the upstream answered but had no related
// queries for the keyword. Not retryable.
var ErrNoData = errors.New("no trend data for keyword")

// RateLimitError covers quota exhaustion and server-side failures.
// Retryable with backoff.
type RateLimitError struct {
	StatusCode int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("upstream rate limited (status %d)", e.StatusCode)
}

// PermanentError covers non-retryable client errors and malformed
// responses.
type PermanentError struct {
	StatusCode int
	Reason     string
}

func (e *PermanentError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream rejected request (status %d): %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("upstream response invalid: %s", e.Reason)
}

// Client queries the upstream trend API for related queries and
// trending searches.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type wireQuery struct {
	Query  string `json:"query"`
	Value  int    `json:"value"`
	Growth string `json:"growth"`
}

type relatedQueriesResponse struct {
	Keyword string      `json:"keyword"`
	Rising  []wireQuery `json:"rising"`
	Top     []wireQuery `json:"top"`
}

type trendingSearchesResponse struct {
	Geo      string      `json:"geo"`
	Trending []wireQuery `json:"trending"`
}

// RelatedQueries fetches the ranked related-query table for a seed
// keyword. Rising queries are preferred; top queries are the fallback
// with growth zeroed out.
func (c *Client) RelatedQueries(ctx context.Context, keyword, timeframe string) (*Payload, error) {
	q := url.Values{}
	q.Set("keyword", keyword)
	if timeframe != "" {
		q.Set("timeframe", timeframe)
	}

	var resp relatedQueriesResponse
	if err := c.getJSON(ctx, "/api/related_queries?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	queries := resp.Rising
	if len(queries) == 0 && len(resp.Top) > 0 {
		queries = make([]wireQuery, len(resp.Top))
		copy(queries, resp.Top)
		for i := range queries {
			queries[i].Growth = "0%"
		}
	}

	if len(queries) == 0 {
		return nil, ErrNoData
	}

	return buildPayload(keyword, queries), nil
}

// TrendingSearches fetches the trending-searches list used when no
// seed keyword is given.
func (c *Client) TrendingSearches(ctx context.Context, geo string) (*Payload, error) {
	q := url.Values{}
	if geo != "" {
		q.Set("geo", geo)
	}

	var resp trendingSearchesResponse
	if err := c.getJSON(ctx, "/api/trending_searches?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	if len(resp.Trending) == 0 {
		return nil, ErrNoData
	}

	return buildPayload(TrendingKeyword, resp.Trending), nil
}

// CloseIdleConnections drops pooled upstream connections so the next
// request starts fresh after a rate limit error.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failures are treated like server errors: worth a retry.
		return &RateLimitError{StatusCode: 0}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &RateLimitError{StatusCode: resp.StatusCode}
	case resp.StatusCode >= 400:
		return &PermanentError{StatusCode: resp.StatusCode, Reason: http.StatusText(resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &RateLimitError{StatusCode: 0}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &PermanentError{Reason: "malformed response body"}
	}

	return nil
}

// TrendingKeyword is the synthetic keyword under which trending-search
// listings are cached.
const TrendingKeyword = "trending_searches"

// buildPayload normalizes a ranked query table into the fixed payload
// schema.
func buildPayload(keyword string, queries []wireQuery) *Payload {
	related := make([]RelatedQuery, 0, len(queries))
	sum := 0
	peak := 0
	for _, q := range queries {
		related = append(related, RelatedQuery{Query: q.Query, Value: q.Value, Growth: q.Growth})
		sum += q.Value
		if q.Value > peak {
			peak = q.Value
		}
	}

	avg := 0.0
	if len(related) > 0 {
		avg = float64(sum) / float64(len(related))
	}

	return &Payload{
		Keyword:         keyword,
		AverageInterest: avg,
		PeakInterest:    peak,
		TrendDirection:  deriveDirection(related),
		RelatedQueries:  related,
	}
}

// deriveDirection classifies the trend from the average growth rate of
// the related queries. Growth values look like "150%" or "-20%";
// unparseable values count as flat.
func deriveDirection(queries []RelatedQuery) TrendDirection {
	if len(queries) == 0 {
		return TrendStable
	}

	sum := 0.0
	for _, q := range queries {
		sum += parseGrowth(q.Growth)
	}
	avg := sum / float64(len(queries))

	switch {
	case avg > 10:
		return TrendRising
	case avg < -10:
		return TrendDeclining
	}
	return TrendStable
}

func parseGrowth(growth string) float64 {
	s := strings.TrimSuffix(strings.TrimSpace(growth), "%")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
