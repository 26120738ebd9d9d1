package profile

import (
	"context"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bizsim/internal/model"
)

// TractProfileReader looks up rows of the preloaded tract reference table.
// The store satisfies it.
type TractProfileReader interface {
	// TractProfile returns the reference row for an 11-character tract key,
	// or store.ErrTractNotFound.
	TractProfile(ctx context.Context, tractKey string) (*model.TractProfile, error)
}

// CachedSource builds profiles from the preloaded tract reference table
// instead of the statistics API. The reference schema carries fewer fields
// than the live source; everything it lacks stays null.
type CachedSource struct {
	reader TractProfileReader
}

// NewCachedSource creates the cached profile source.
func NewCachedSource(reader TractProfileReader) *CachedSource {
	return &CachedSource{reader: reader}
}

func (s *CachedSource) Profile(ctx context.Context, geo model.GeoIdentifier) (*model.DemographicProfile, error) {
	row, err := s.reader.TractProfile(ctx, geo.TractKey())
	if err != nil {
		return nil, eris.Wrap(err, "profile: cached lookup")
	}

	p := &model.DemographicProfile{
		TractKey: row.TractKey,
		AreaName: row.AreaName,
	}
	p.Population = floatToCount(row.Population)
	p.MedianAge = row.MedianAge
	p.MedianHouseholdIncome = floatToCount(row.MedianHouseholdIncome)

	// The reference table stores the ratios precomputed; copy them straight
	// into the derived block. The underlying counts are not available.
	if row.PctPoverty != nil {
		p.Derived.PovertyRate = round2(*row.PctPoverty)
	}
	if row.PctRenters != nil {
		p.Derived.RenterRate = round2(*row.PctRenters)
	}
	if row.PctBachelors != nil {
		p.Derived.BachelorPlusRate = round2(*row.PctBachelors)
	}
	return p, nil
}

func floatToCount(v *float64) *int64 {
	if v == nil {
		return nil
	}
	n := int64(math.Round(*v))
	return &n
}
