package model

import "time"

// Trend directions reported by the trend summary.
const (
	TrendRising    = "rising"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// KeywordPerformance summarizes search interest for one keyword.
type KeywordPerformance struct {
	AverageInterest float64 `json:"average_interest"`
	PeakInterest    int     `json:"peak_interest"`
	Trend           string  `json:"trend"`
}

// RelatedQuery is one related search query with its provider-reported value
// (0-100 for top queries, percent growth for rising ones).
type RelatedQuery struct {
	Query string `json:"query"`
	Value int    `json:"value"`
}

// TrendSummary is the normalized output of a trend lookup. Success=false
// carries the failure reason; trends are decoration, so callers treat that
// as degraded data rather than an error.
type TrendSummary struct {
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
	BusinessType string    `json:"business_type"`
	Location     string    `json:"location,omitempty"`
	Timeframe    string    `json:"timeframe,omitempty"`
	Keywords     []string  `json:"keywords_analyzed,omitempty"`
	Timestamp    time.Time `json:"timestamp"`

	InterestTrend    string                        `json:"interest_trend,omitempty"`
	AverageInterest  float64                       `json:"average_interest"`
	PeakInterest     int                           `json:"peak_interest"`
	ByKeyword        map[string]KeywordPerformance `json:"keywords_performance,omitempty"`
	RisingQueries    []RelatedQuery                `json:"related_rising_queries,omitempty"`
	TopQueries       []RelatedQuery                `json:"related_top_queries,omitempty"`
	TrendingSearches []string                      `json:"trending_searches,omitempty"`
}
