package model

// TotalNAICSCode marks the county-wide all-sectors aggregate row in the
// survival dataset. Ranking and statistics queries exclude it unless the
// caller asks for it.
const TotalNAICSCode = "00"

// SurvivalRecord is one row of the static 5-year business survival dataset
// (BDS 2017-2022): the share of firms started in 2017 in a county+industry
// still operating five years later.
type SurvivalRecord struct {
	CountyName    string  `json:"county_name"`
	NAICSCode     string  `json:"naics_code"`
	IndustryLabel string  `json:"industry"`
	Firms2017     int     `json:"firms_2017_start_pool"`
	SurvivalPct   float64 `json:"survival_rate_5_year"`
}

// IsTotal reports whether this is the county-wide aggregate row.
func (r SurvivalRecord) IsTotal() bool { return r.NAICSCode == TotalNAICSCode }
