// Package trend turns raw search-interest data into a normalized summary
// for one business type. Trend data is decoration on top of the census
// analysis, so every failure degrades to a Success=false summary instead
// of an error.
package trend

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/bizsim/internal/model"
	"github.com/sells-group/bizsim/pkg/trends"
)

const (
	maxQueriesPerKeyword = 5
	maxTrendingSearches  = 10
	// How far the recent window must move against the early window before
	// interest counts as rising or declining.
	directionThreshold = 0.10
	directionWindow    = 7
)

// categoryKeywords maps recognized business types to the search terms that
// best proxy local demand for them. Order matters for substring fallback:
// the first category contained in the description wins. Unrecognized types
// fall back to the type itself plus a "near me" variant.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"coffee shop", []string{"coffee shop", "coffee near me", "cafe", "espresso", "cold brew"}},
	{"restaurant", []string{"restaurant", "restaurants near me", "food delivery", "takeout", "dinner reservations"}},
	{"bakery", []string{"bakery", "bakery near me", "fresh bread", "custom cakes", "pastries"}},
	{"gym", []string{"gym", "gym near me", "fitness classes", "personal trainer", "workout"}},
	{"salon", []string{"hair salon", "salon near me", "haircut", "hair color", "barber"}},
	{"bookstore", []string{"bookstore", "bookstore near me", "used books", "book club", "new releases books"}},
	{"bar", []string{"bar", "bars near me", "happy hour", "cocktails", "craft beer"}},
	{"retail", []string{"boutique", "shopping near me", "local shops", "clothing store", "gift shop"}},
}

// Service fetches and summarizes search trends.
type Service struct {
	client    trends.Client
	geo       string
	timeframe string
}

// NewService creates a trend service. geo is a provider region code such as
// "US-NY"; timeframe is a provider window such as "today 1-m".
func NewService(client trends.Client, geo, timeframe string) *Service {
	return &Service{client: client, geo: geo, timeframe: timeframe}
}

// Keywords returns the search terms used for a business type.
func Keywords(businessType string) []string {
	bt := strings.ToLower(strings.TrimSpace(businessType))
	for _, c := range categoryKeywords {
		if bt == c.category {
			return append([]string(nil), c.keywords...)
		}
	}
	for _, c := range categoryKeywords {
		if strings.Contains(bt, c.category) {
			return append([]string(nil), c.keywords...)
		}
	}
	return []string{bt, bt + " near me"}
}

// Fetch builds the trend summary for a business type. It never returns an
// error: if the provider is unreachable or the payload is unusable, the
// summary comes back with Success=false and the reason in Error.
func (s *Service) Fetch(ctx context.Context, businessType, location string) *model.TrendSummary {
	summary := &model.TrendSummary{
		BusinessType: businessType,
		Location:     location,
		Timeframe:    s.timeframe,
		Timestamp:    time.Now().UTC(),
	}

	keywords := Keywords(businessType)
	summary.Keywords = keywords

	payload, err := s.client.BuildPayload(ctx, keywords, s.geo, s.timeframe)
	if err != nil {
		return s.degrade(summary, "build payload", err)
	}
	// BuildPayload caps the keyword set; mirror what it actually used.
	summary.Keywords = payload.Keywords
	keywords = payload.Keywords

	points, err := s.client.InterestOverTime(ctx, payload)
	if err != nil {
		return s.degrade(summary, "interest over time", err)
	}
	if len(points) == 0 {
		return s.degrade(summary, "interest over time", errEmptyTimeline)
	}

	summary.ByKeyword = make(map[string]model.KeywordPerformance, len(keywords))
	var avgSum float64
	for i, kw := range keywords {
		perf := keywordPerformance(points, i)
		summary.ByKeyword[kw] = perf
		avgSum += perf.AverageInterest
		if perf.PeakInterest > summary.PeakInterest {
			summary.PeakInterest = perf.PeakInterest
		}
	}
	summary.AverageInterest = round2(avgSum / float64(len(keywords)))
	summary.InterestTrend = direction(points)

	// Related queries and trending searches are best effort on top of the
	// timeline; their failures do not fail the summary.
	if related, err := s.client.RelatedQueries(ctx, payload); err != nil {
		zap.L().Warn("trend: related queries unavailable", zap.Error(err))
	} else {
		summary.RisingQueries, summary.TopQueries = mergeRelated(keywords, related)
	}

	if trending, err := s.client.TrendingSearches(ctx, countryCode(s.geo)); err != nil {
		zap.L().Warn("trend: trending searches unavailable", zap.Error(err))
	} else {
		if len(trending) > maxTrendingSearches {
			trending = trending[:maxTrendingSearches]
		}
		summary.TrendingSearches = trending
	}

	summary.Success = true
	return summary
}

var errEmptyTimeline = errEmpty{}

type errEmpty struct{}

func (errEmpty) Error() string { return "empty timeline" }

func (s *Service) degrade(summary *model.TrendSummary, stage string, err error) *model.TrendSummary {
	zap.L().Warn("trend: lookup degraded",
		zap.String("business_type", summary.BusinessType),
		zap.String("stage", stage),
		zap.Error(err))
	summary.Success = false
	summary.Error = err.Error()
	return summary
}

func keywordPerformance(points []trends.TimelinePoint, idx int) model.KeywordPerformance {
	var sum, n float64
	peak := 0
	for _, p := range points {
		if idx >= len(p.Values) {
			continue
		}
		v := p.Values[idx]
		sum += float64(v)
		n++
		if v > peak {
			peak = v
		}
	}
	perf := model.KeywordPerformance{PeakInterest: peak}
	if n > 0 {
		perf.AverageInterest = round2(sum / n)
	}
	perf.Trend = directionForIndex(points, idx)
	return perf
}

// direction compares the mean interest across all keywords in the earliest
// window against the latest window.
func direction(points []trends.TimelinePoint) string {
	return compareWindows(points, func(p trends.TimelinePoint) float64 {
		if len(p.Values) == 0 {
			return 0
		}
		var sum float64
		for _, v := range p.Values {
			sum += float64(v)
		}
		return sum / float64(len(p.Values))
	})
}

func directionForIndex(points []trends.TimelinePoint, idx int) string {
	return compareWindows(points, func(p trends.TimelinePoint) float64 {
		if idx >= len(p.Values) {
			return 0
		}
		return float64(p.Values[idx])
	})
}

func compareWindows(points []trends.TimelinePoint, value func(trends.TimelinePoint) float64) string {
	if len(points) < 2 {
		return model.TrendStable
	}
	w := directionWindow
	if len(points) < 2*w {
		w = len(points) / 2
	}

	var early, recent float64
	for _, p := range points[:w] {
		early += value(p)
	}
	for _, p := range points[len(points)-w:] {
		recent += value(p)
	}
	early /= float64(w)
	recent /= float64(w)

	switch {
	case recent > early*(1+directionThreshold):
		return model.TrendRising
	case recent < early*(1-directionThreshold):
		return model.TrendDeclining
	default:
		return model.TrendStable
	}
}

// mergeRelated flattens per-keyword related queries into summary-level
// rising and top lists, keeping keyword order, capping each keyword's
// contribution, and dropping duplicate queries.
func mergeRelated(keywords []string, related map[string]trends.Related) (rising, top []model.RelatedQuery) {
	seenRising := make(map[string]bool)
	seenTop := make(map[string]bool)
	for _, kw := range keywords {
		rel, ok := related[kw]
		if !ok {
			continue
		}
		rising = appendRanked(rising, rel.Rising, seenRising)
		top = appendRanked(top, rel.Top, seenTop)
	}
	return rising, top
}

func appendRanked(dst []model.RelatedQuery, src []trends.RankedQuery, seen map[string]bool) []model.RelatedQuery {
	for i, q := range src {
		if i >= maxQueriesPerKeyword {
			break
		}
		key := strings.ToLower(q.Query)
		if seen[key] {
			continue
		}
		seen[key] = true
		dst = append(dst, model.RelatedQuery{Query: q.Query, Value: q.Value})
	}
	return dst
}

// countryCode reduces a region code like "US-NY" to its country part.
func countryCode(geo string) string {
	if i := strings.IndexByte(geo, '-'); i > 0 {
		return geo[:i]
	}
	return geo
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
