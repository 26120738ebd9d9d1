// Package profile builds tract-level demographic profiles. Two source
// strategies exist: live pulls from the statistics API, cached reads the
// preloaded tract reference table. The analyzer glues a source to the
// geography resolver and persists each analysis.
package profile

import (
	"context"
	"math"

	"github.com/sells-group/bizsim/internal/model"
)

// Source produces the demographic profile for a resolved tract.
type Source interface {
	Profile(ctx context.Context, geo model.GeoIdentifier) (*model.DemographicProfile, error)
}

// computeDerived fills a profile's derived ratios from its raw counts. A
// rate is 0 whenever its denominator is missing or zero.
func computeDerived(p *model.DemographicProfile) {
	d := &p.Derived

	d.PovertyRate = pctOf(p.PovertyPopulation, p.Population)
	d.RenterRate = pctOf(p.RenterOccupied, p.HousingUnits)
	d.WorkFromHomeRate = pctOf(p.WorkFromHome, p.Workers)

	if p.Bachelors != nil || p.Masters != nil || p.Doctorate != nil {
		count := intOrZero(p.Bachelors) + intOrZero(p.Masters) + intOrZero(p.Doctorate)
		d.BachelorPlusCount = count
		d.BachelorPlusRate = pctOf(&count, p.Pop25Plus)
	}

	if p.HighIncomeHouseholds != nil {
		d.HighIncomeCount = *p.HighIncomeHouseholds
		d.HighIncomeRate = pctOf(p.HighIncomeHouseholds, p.TotalHouseholds)
	}
}

func pctOf(num, den *int64) float64 {
	if num == nil || den == nil || *den == 0 {
		return 0
	}
	return round2(float64(*num) / float64(*den) * 100)
}

func intOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
