package trends

// Trend payload types

type TrendDirection string

const (
	TrendRising    TrendDirection = "rising"
	TrendStable    TrendDirection = "stable"
	TrendDeclining TrendDirection = "declining"
)

func (d TrendDirection) Valid() bool {
	switch d {
	case TrendRising, TrendStable, TrendDeclining:
		return true
	}
	return false
}

type RelatedQuery struct {
	Query  string `json:"query"`
	Value  int    `json:"value"`
	Growth string `json:"growth,omitempty"`
}

// Payload is the fixed schema shared by the API and mock data paths.
// Both sources must produce this shape so cached entries never drift.
type Payload struct {
	Keyword         string         `json:"keyword"`
	AverageInterest float64        `json:"average_interest"`
	PeakInterest    int            `json:"peak_interest"`
	TrendDirection  TrendDirection `json:"trend_direction"`
	RelatedQueries  []RelatedQuery `json:"related_queries"`
}

// Result types

type Source string

const (
	SourceCache Source = "cache"
	SourceAPI   Source = "api"
	SourceMock  Source = "mock"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusNoData  Status = "no_data"
	StatusError   Status = "error"
)

// Result is the per-keyword outcome of a collection attempt. Callers
// branch on Status/Source instead of inspecting ad-hoc string fields.
type Result struct {
	Keyword string   `json:"keyword"`
	Status  Status   `json:"status"`
	Source  Source   `json:"source,omitempty"`
	Payload *Payload `json:"payload,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func SuccessResult(keyword string, source Source, payload *Payload) Result {
	return Result{Keyword: keyword, Status: StatusSuccess, Source: source, Payload: payload}
}

func MockResult(keyword string, payload *Payload) Result {
	return Result{Keyword: keyword, Status: StatusSuccess, Source: SourceMock, Payload: payload}
}

func NoDataResult(keyword string) Result {
	return Result{Keyword: keyword, Status: StatusNoData}
}

func ErrorResult(keyword string, err error) Result {
	r := Result{Keyword: keyword, Status: StatusError}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
