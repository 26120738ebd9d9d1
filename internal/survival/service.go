// Package survival answers questions about five-year establishment
// survival rates by county and industry, built on the 2017-cohort records
// loaded into the store.
package survival

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bizsim/internal/model"
)

// ErrNotFound indicates no survival record matched the lookup.
var ErrNotFound = eris.New("survival: no matching record")

// minFirmPool is the smallest 2017 cohort an industry needs before it
// counts toward the lowest-survival ranking. Tiny cohorts produce junk
// rates at the bottom of the table.
const minFirmPool = 10

// Default result limits when the caller passes limit <= 0.
const (
	defaultRankLimit       = 5
	defaultComparisonLimit = 10
)

// Source supplies survival records. The store satisfies it.
type Source interface {
	CountySurvival(ctx context.Context, county string) ([]model.SurvivalRecord, error)
	IndustrySurvival(ctx context.Context, naicsCode string) ([]model.SurvivalRecord, error)
}

// Service exposes survival-rate lookups and summaries.
type Service struct {
	src Source
}

// NewService creates a survival lookup service.
func NewService(src Source) *Service {
	return &Service{src: src}
}

// RateFor returns a county's record for an industry query. An exact NAICS
// code match wins; failing that, the query is matched as a case-insensitive
// substring of the industry label.
func (s *Service) RateFor(ctx context.Context, county, industry string) (*model.SurvivalRecord, error) {
	recs, err := s.src.CountySurvival(ctx, county)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		if recs[i].NAICSCode == industry {
			return &recs[i], nil
		}
	}
	needle := strings.ToLower(industry)
	for i := range recs {
		if strings.Contains(strings.ToLower(recs[i].IndustryLabel), needle) {
			return &recs[i], nil
		}
	}
	return nil, ErrNotFound
}

// RankedIndustries returns a county's industries ordered by survival rate,
// best first. The all-industries total row is excluded unless includeTotal
// is set.
func (s *Service) RankedIndustries(ctx context.Context, county string, includeTotal bool) ([]model.SurvivalRecord, error) {
	recs, err := s.src.CountySurvival(ctx, county)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}

	out := make([]model.SurvivalRecord, 0, len(recs))
	for _, r := range recs {
		if !includeTotal && r.IsTotal() {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SurvivalPct > out[j].SurvivalPct
	})
	return out, nil
}

// CountyAggregate returns the all-industries total row for a county.
func (s *Service) CountyAggregate(ctx context.Context, county string) (*model.SurvivalRecord, error) {
	return s.RateFor(ctx, county, model.TotalNAICSCode)
}

// CrossCountyComparison returns an industry's survival rate in each county
// that reports it, ordered best first. industry is an exact NAICS code or
// a case-insensitive label fragment. limit <= 0 selects the default of 10.
func (s *Service) CrossCountyComparison(ctx context.Context, industry string, limit int) ([]model.SurvivalRecord, error) {
	recs, err := s.src.IndustrySurvival(ctx, industry)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].SurvivalPct > recs[j].SurvivalPct
	})
	if limit <= 0 {
		limit = defaultComparisonLimit
	}
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// HighestSurvival returns a county's top industries by survival rate, best
// first. limit <= 0 selects the default of 5.
func (s *Service) HighestSurvival(ctx context.Context, county string, limit int) ([]model.SurvivalRecord, error) {
	return s.rankByRate(ctx, county, limit, false, false)
}

// LowestSurvival returns a county's riskiest industries by survival rate,
// worst first, skipping cohorts under minFirmPool firms. limit <= 0
// selects the default of 5.
func (s *Service) LowestSurvival(ctx context.Context, county string, limit int) ([]model.SurvivalRecord, error) {
	return s.rankByRate(ctx, county, limit, true, true)
}

func (s *Service) rankByRate(ctx context.Context, county string, limit int, worstFirst, poolFilter bool) ([]model.SurvivalRecord, error) {
	recs, err := s.src.CountySurvival(ctx, county)
	if err != nil {
		return nil, err
	}

	out := recs[:0:0]
	for _, r := range recs {
		if r.IsTotal() || (poolFilter && r.Firms2017 < minFirmPool) {
			continue
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}

	sort.SliceStable(out, func(i, j int) bool {
		if worstFirst {
			return out[i].SurvivalPct < out[j].SurvivalPct
		}
		return out[i].SurvivalPct > out[j].SurvivalPct
	})
	if limit <= 0 {
		limit = defaultRankLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Statistics summarizes the survival landscape of one county.
type Statistics struct {
	County        string                 `json:"county"`
	IndustryCount int                    `json:"industry_count"`
	MeanSurvival  float64                `json:"mean_survival"`
	MinSurvival   float64                `json:"min_survival"`
	MaxSurvival   float64                `json:"max_survival"`
	StrongCount   int                    `json:"strong_count"`
	WeakCount     int                    `json:"weak_count"`
	Strongest     []model.SurvivalRecord `json:"strongest"`
	Weakest       []model.SurvivalRecord `json:"weakest"`
}

// Statistics computes a county summary over its non-total industries:
// mean, extremes, counts of strong (>=70%) and weak (<60%) industries, and
// the three best and worst sectors. The worst list applies the firm-pool
// filter so micro-cohorts do not headline as the county's biggest risks.
func (s *Service) Statistics(ctx context.Context, county string) (*Statistics, error) {
	ranked, err := s.RankedIndustries(ctx, county, false)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, ErrNotFound
	}

	stats := &Statistics{
		County:        county,
		IndustryCount: len(ranked),
		MinSurvival:   ranked[len(ranked)-1].SurvivalPct,
		MaxSurvival:   ranked[0].SurvivalPct,
	}
	var sum float64
	for _, r := range ranked {
		sum += r.SurvivalPct
		if r.SurvivalPct >= 70 {
			stats.StrongCount++
		}
		if r.SurvivalPct < 60 {
			stats.WeakCount++
		}
	}
	stats.MeanSurvival = round2(sum / float64(len(ranked)))

	stats.Strongest, err = s.HighestSurvival(ctx, county, 3)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	// The pool filter can leave the weakest list empty even when the
	// county has industries; that is not an error for the summary.
	stats.Weakest, err = s.LowestSurvival(ctx, county, 3)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return stats, nil
}

// Outlook pairs a survival record with its plain-language reading.
type Outlook struct {
	Record         model.SurvivalRecord `json:"record"`
	Interpretation string               `json:"interpretation"`
	RiskLevel      string               `json:"risk_level"`
}

// keywordIndustries maps business-description keywords to NAICS sector
// labels. Order matters: the first keyword found in the description wins.
var keywordIndustries = []struct {
	keyword  string
	industry string
}{
	{"restaurant", "Accommodation and food services"},
	{"coffee", "Accommodation and food services"},
	{"cafe", "Accommodation and food services"},
	{"bakery", "Accommodation and food services"},
	// "barber" must outrank "bar" or barbershops turn into taverns.
	{"barber", "Other services (except public administration)"},
	{"bar", "Accommodation and food services"},
	{"food", "Accommodation and food services"},
	{"hotel", "Accommodation and food services"},
	{"retail", "Retail trade"},
	{"store", "Retail trade"},
	{"shop", "Retail trade"},
	{"boutique", "Retail trade"},
	{"grocery", "Retail trade"},
	{"construction", "Construction"},
	{"contractor", "Construction"},
	{"health", "Health care and social assistance"},
	{"medical", "Health care and social assistance"},
	{"clinic", "Health care and social assistance"},
	{"daycare", "Health care and social assistance"},
	{"tech", "Professional, scientific, and technical services"},
	{"software", "Professional, scientific, and technical services"},
	{"consulting", "Professional, scientific, and technical services"},
	{"law", "Professional, scientific, and technical services"},
	{"design", "Professional, scientific, and technical services"},
	{"salon", "Other services (except public administration)"},
	{"laundry", "Other services (except public administration)"},
	{"repair", "Other services (except public administration)"},
	{"real estate", "Real estate and rental and leasing"},
	{"manufacturing", "Manufacturing"},
	{"finance", "Finance and insurance"},
	{"insurance", "Finance and insurance"},
	{"transport", "Transportation and warehousing"},
	{"delivery", "Transportation and warehousing"},
	{"warehouse", "Transportation and warehousing"},
	{"gym", "Arts, entertainment, and recreation"},
	{"fitness", "Arts, entertainment, and recreation"},
	{"studio", "Arts, entertainment, and recreation"},
	{"school", "Educational services"},
	{"tutoring", "Educational services"},
}

// ByBusinessKeyword maps a free-form business description to an industry
// and returns its survival outlook in the county. Keyword matches resolve
// to a sector label; failing that, the description is matched against the
// county's own industry labels.
func (s *Service) ByBusinessKeyword(ctx context.Context, county, businessType string) (*Outlook, error) {
	recs, err := s.src.CountySurvival(ctx, county)
	if err != nil {
		return nil, err
	}

	desc := strings.ToLower(businessType)
	var targetLabel string
	for _, ki := range keywordIndustries {
		if strings.Contains(desc, ki.keyword) {
			targetLabel = ki.industry
			break
		}
	}

	for i := range recs {
		r := &recs[i]
		if r.IsTotal() {
			continue
		}
		label := strings.ToLower(r.IndustryLabel)
		if targetLabel != "" && label == strings.ToLower(targetLabel) {
			return s.outlook(r), nil
		}
		if targetLabel == "" && desc != "" && strings.Contains(label, desc) {
			return s.outlook(r), nil
		}
	}
	return nil, ErrNotFound
}

func (s *Service) outlook(r *model.SurvivalRecord) *Outlook {
	return &Outlook{
		Record:         *r,
		Interpretation: Interpretation(r.SurvivalPct),
		RiskLevel:      RiskLevel(r.SurvivalPct),
	}
}

// Interpretation translates a survival percentage into a plain-language
// band.
func Interpretation(pct float64) string {
	switch {
	case pct >= 80:
		return "excellent survival outlook"
	case pct >= 70:
		return "good survival outlook"
	case pct >= 60:
		return "moderate survival outlook"
	case pct >= 50:
		return "challenging survival outlook"
	default:
		return "high risk survival outlook"
	}
}

// RiskLevel translates a survival percentage into a risk grade.
func RiskLevel(pct float64) string {
	switch {
	case pct >= 75:
		return "LOW"
	case pct >= 65:
		return "MEDIUM"
	case pct >= 55:
		return "MEDIUM-HIGH"
	default:
		return "HIGH"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
