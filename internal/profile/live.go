package profile

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bizsim/internal/model"
	"github.com/sells-group/bizsim/pkg/acs"
)

// Primary variable set: population, income, poverty, education, housing.
var standardVariables = []string{
	"B01001_001E", // total population
	"B01002_001E", // median age
	"B19013_001E", // median household income
	"B19301_001E", // per capita income
	"B17001_002E", // population below poverty level
	"B15003_001E", // population 25+
	"B15003_022E", // bachelor's degree
	"B15003_023E", // master's degree
	"B15003_025E", // doctorate degree
	"B25003_001E", // occupied housing units
	"B25003_002E", // owner occupied
	"B25003_003E", // renter occupied
	"B25031_001E", // median gross rent
	"B25077_001E", // median home value
}

// Secondary enrichment set, published a vintage behind the primary one:
// household income brackets and commuting.
var detailedVariables = []string{
	"B01003_001E", // total population
	"B19001_001E", // total households
	"B19001_013E", // households $75k-$100k
	"B19001_014E", // households $100k-$125k
	"B19001_015E", // households $125k-$150k
	"B19001_016E", // households $150k-$200k
	"B19001_017E", // households $200k+
	"B08301_001E", // workers 16+
	"B08301_010E", // public transit commuters
	"B08301_021E", // worked from home
}

// LiveSource builds profiles from the statistics API's primary variable
// set.
type LiveSource struct {
	client acs.Client
	year   int
}

// NewLiveSource creates the live profile source. year is the ACS 5-year
// vintage to query.
func NewLiveSource(client acs.Client, year int) *LiveSource {
	return &LiveSource{client: client, year: year}
}

func (s *LiveSource) Profile(ctx context.Context, geo model.GeoIdentifier) (*model.DemographicProfile, error) {
	tbl, err := s.client.TractTable(ctx, s.year, standardVariables, acs.Geography{
		State:  geo.State,
		County: geo.County,
		Tract:  geo.Tract,
	})
	if err != nil {
		return nil, eris.Wrap(err, "profile: fetch standard variables")
	}

	p := &model.DemographicProfile{TractKey: geo.TractKey()}
	p.Population = countValue(tbl, "B01001_001E")
	p.MedianAge = floatValue(tbl, "B01002_001E")
	p.MedianHouseholdIncome = countValue(tbl, "B19013_001E")
	p.PerCapitaIncome = countValue(tbl, "B19301_001E")
	p.PovertyPopulation = countValue(tbl, "B17001_002E")
	p.Pop25Plus = countValue(tbl, "B15003_001E")
	p.Bachelors = countValue(tbl, "B15003_022E")
	p.Masters = countValue(tbl, "B15003_023E")
	p.Doctorate = countValue(tbl, "B15003_025E")
	p.HousingUnits = countValue(tbl, "B25003_001E")
	p.OwnerOccupied = countValue(tbl, "B25003_002E")
	p.RenterOccupied = countValue(tbl, "B25003_003E")
	p.MedianGrossRent = countValue(tbl, "B25031_001E")
	p.MedianHomeValue = countValue(tbl, "B25077_001E")
	computeDerived(p)
	return p, nil
}

// DetailedSource builds enrichment profiles from the secondary variable
// set.
type DetailedSource struct {
	client acs.Client
	year   int
}

// NewDetailedSource creates the detailed enrichment source.
func NewDetailedSource(client acs.Client, year int) *DetailedSource {
	return &DetailedSource{client: client, year: year}
}

func (s *DetailedSource) Profile(ctx context.Context, geo model.GeoIdentifier) (*model.DemographicProfile, error) {
	tbl, err := s.client.TractTable(ctx, s.year, detailedVariables, acs.Geography{
		State:  geo.State,
		County: geo.County,
		Tract:  geo.Tract,
	})
	if err != nil {
		return nil, eris.Wrap(err, "profile: fetch detailed variables")
	}

	p := &model.DemographicProfile{TractKey: geo.TractKey()}
	p.Population = countValue(tbl, "B01003_001E")
	p.TotalHouseholds = countValue(tbl, "B19001_001E")
	p.HighIncomeHouseholds = sumCounts(tbl,
		"B19001_013E", "B19001_014E", "B19001_015E", "B19001_016E", "B19001_017E")
	p.Workers = countValue(tbl, "B08301_001E")
	p.PublicTransit = countValue(tbl, "B08301_010E")
	p.WorkFromHome = countValue(tbl, "B08301_021E")
	computeDerived(p)
	return p, nil
}

// countValue parses a count variable. Nulls, unparsable values, and the
// API's negative suppression sentinels all degrade to nil.
func countValue(tbl acs.Table, code string) *int64 {
	raw, ok := tbl[code]
	if !ok || raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		zap.L().Debug("profile: unusable variable value",
			zap.String("variable", code), zap.String("value", raw))
		return nil
	}
	return &v
}

func floatValue(tbl acs.Table, code string) *float64 {
	raw, ok := tbl[code]
	if !ok || raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		zap.L().Debug("profile: unusable variable value",
			zap.String("variable", code), zap.String("value", raw))
		return nil
	}
	return &v
}

// sumCounts adds the given count variables, treating missing values as
// zero. Returns nil only when every bracket is missing.
func sumCounts(tbl acs.Table, codes ...string) *int64 {
	var sum int64
	any := false
	for _, code := range codes {
		if v := countValue(tbl, code); v != nil {
			sum += *v
			any = true
		}
	}
	if !any {
		return nil
	}
	return &sum
}
