package store

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bizsim/internal/model"
)

// Header aliases tolerated when reading reference CSVs. Exports of the
// survival dataset and the tract reference table have drifted over time.
var survivalHeaderAliases = map[string]string{
	"county":               "county",
	"county_name":          "county",
	"naics":                "naics",
	"naics_code":           "naics",
	"industry":             "industry",
	"industry_label":       "industry",
	"firms_2017":           "firms",
	"firms_2017_start":     "firms",
	"firms":                "firms",
	"survival_pct":         "survival",
	"survival_rate":        "survival",
	"survival_rate_5yr":    "survival",
	"survival_rate_5_year": "survival",
}

// ReadSurvivalCSV parses the survival-rate reference CSV. Rows with an
// unparsable rate are skipped with a warning rather than failing the load.
func ReadSurvivalCSV(r io.Reader) ([]model.SurvivalRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "store: read survival header")
	}
	idx, err := headerIndex(header, survivalHeaderAliases, []string{"county", "naics", "industry", "survival"})
	if err != nil {
		return nil, err
	}

	var out []model.SurvivalRecord
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, eris.Wrapf(err, "store: read survival row %d", line)
		}

		rec := model.SurvivalRecord{
			CountyName:    field(row, idx["county"]),
			NAICSCode:     field(row, idx["naics"]),
			IndustryLabel: field(row, idx["industry"]),
		}
		if rec.CountyName == "" || rec.NAICSCode == "" {
			zap.L().Warn("store: skipping survival row with missing key", zap.Int("line", line))
			continue
		}
		pct, err := strconv.ParseFloat(field(row, idx["survival"]), 64)
		if err != nil {
			zap.L().Warn("store: skipping survival row with bad rate",
				zap.Int("line", line), zap.String("value", field(row, idx["survival"])))
			continue
		}
		rec.SurvivalPct = pct
		if fi, ok := idx["firms"]; ok {
			if firms, err := strconv.Atoi(field(row, fi)); err == nil {
				rec.Firms2017 = firms
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

var tractHeaderAliases = map[string]string{
	"tract_key":               "tract_key",
	"geoid":                   "tract_key",
	"area_name":               "area_name",
	"nta_name":                "area_name",
	"cluster":                 "cluster",
	"population":              "population",
	"total_population":        "population",
	"median_age":              "median_age",
	"median_household_income": "median_household_income",
	"mhi":                     "median_household_income",
	"pct_bachelors":           "pct_bachelors",
	"pct_renters":             "pct_renters",
	"pct_poverty":             "pct_poverty",
	"workforce_jobs":          "workforce_jobs",
	"pct_jobs_young":          "pct_jobs_young",
	"pct_jobs_high_earn":      "pct_jobs_high_earn",
	"pct_jobs_prof_services":  "pct_jobs_prof_services",
	"pct_jobs_healthcare":     "pct_jobs_healthcare",
}

// ReadTractProfilesCSV parses the tract reference CSV. Numeric fields that
// fail to parse load as null, matching the table's nullable schema.
func ReadTractProfilesCSV(r io.Reader) ([]model.TractProfile, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "store: read tract header")
	}
	idx, err := headerIndex(header, tractHeaderAliases, []string{"tract_key"})
	if err != nil {
		return nil, err
	}

	var out []model.TractProfile
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, eris.Wrapf(err, "store: read tract row %d", line)
		}

		key := field(row, idx["tract_key"])
		if len(key) != 11 {
			zap.L().Warn("store: skipping tract row with bad key",
				zap.Int("line", line), zap.String("key", key))
			continue
		}
		p := model.TractProfile{TractKey: key}
		if i, ok := idx["area_name"]; ok {
			if name := field(row, i); name != "" {
				p.AreaName = &name
			}
		}
		p.Cluster = intField(row, idx, "cluster")
		p.Population = floatField(row, idx, "population")
		p.MedianAge = floatField(row, idx, "median_age")
		p.MedianHouseholdIncome = floatField(row, idx, "median_household_income")
		p.PctBachelors = floatField(row, idx, "pct_bachelors")
		p.PctRenters = floatField(row, idx, "pct_renters")
		p.PctPoverty = floatField(row, idx, "pct_poverty")
		p.WorkforceJobs = floatField(row, idx, "workforce_jobs")
		p.PctJobsYoung = floatField(row, idx, "pct_jobs_young")
		p.PctJobsHighEarn = floatField(row, idx, "pct_jobs_high_earn")
		p.PctJobsProfService = floatField(row, idx, "pct_jobs_prof_services")
		p.PctJobsHealthcare = floatField(row, idx, "pct_jobs_healthcare")
		out = append(out, p)
	}
	return out, nil
}

func headerIndex(header []string, aliases map[string]string, required []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if canonical, ok := aliases[key]; ok {
			idx[canonical] = i
		}
	}
	for _, req := range required {
		if _, ok := idx[req]; !ok {
			return nil, eris.Errorf("store: csv missing required column %q", req)
		}
	}
	return idx, nil
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func floatField(row []string, idx map[string]int, name string) *float64 {
	i, ok := idx[name]
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(field(row, i), 64)
	if err != nil {
		return nil
	}
	return &v
}

func intField(row []string, idx map[string]int, name string) *int64 {
	i, ok := idx[name]
	if !ok {
		return nil
	}
	v, err := strconv.ParseInt(field(row, i), 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
