package profile

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bizsim/internal/model"
	"github.com/sells-group/bizsim/pkg/acs"
)

type fakeACS struct {
	tables map[int]acs.Table
	errs   map[int]error
	gotGeo acs.Geography
}

func (f *fakeACS) TractTable(_ context.Context, year int, _ []string, geo acs.Geography) (acs.Table, error) {
	f.gotGeo = geo
	if err := f.errs[year]; err != nil {
		return nil, err
	}
	return f.tables[year], nil
}

func testGeo() model.GeoIdentifier {
	return model.GeoIdentifier{State: "36", County: "081", Tract: "014700"}
}

func standardTable() acs.Table {
	return acs.Table{
		"B01001_001E": "45000",
		"B01002_001E": "36.2",
		"B19013_001E": "72500",
		"B19301_001E": "38900",
		"B17001_002E": "5400",
		"B15003_001E": "30000",
		"B15003_022E": "9000",
		"B15003_023E": "2500",
		"B15003_025E": "500",
		"B25003_001E": "18000",
		"B25003_002E": "6300",
		"B25003_003E": "11700",
		"B25031_001E": "1850",
		"B25077_001E": "615000",
	}
}

func TestLiveSourceProfile(t *testing.T) {
	fa := &fakeACS{tables: map[int]acs.Table{2022: standardTable()}}
	src := NewLiveSource(fa, 2022)

	p, err := src.Profile(context.Background(), testGeo())
	require.NoError(t, err)

	assert.Equal(t, "36081014700", p.TractKey)
	assert.Equal(t, acs.Geography{State: "36", County: "081", Tract: "014700"}, fa.gotGeo)

	require.NotNil(t, p.Population)
	assert.Equal(t, int64(45000), *p.Population)
	require.NotNil(t, p.MedianAge)
	assert.Equal(t, 36.2, *p.MedianAge)
	require.NotNil(t, p.MedianHomeValue)
	assert.Equal(t, int64(615000), *p.MedianHomeValue)

	// 5400/45000, 11700/18000, (9000+2500+500)/30000
	assert.Equal(t, 12.0, p.Derived.PovertyRate)
	assert.Equal(t, 65.0, p.Derived.RenterRate)
	assert.Equal(t, int64(12000), p.Derived.BachelorPlusCount)
	assert.Equal(t, 40.0, p.Derived.BachelorPlusRate)
}

func TestLiveSourceDegradesBadValues(t *testing.T) {
	tbl := standardTable()
	tbl["B19013_001E"] = "-666666666" // suppression sentinel
	tbl["B01002_001E"] = ""           // null
	delete(tbl, "B25077_001E")
	fa := &fakeACS{tables: map[int]acs.Table{2022: tbl}}
	src := NewLiveSource(fa, 2022)

	p, err := src.Profile(context.Background(), testGeo())
	require.NoError(t, err)
	assert.Nil(t, p.MedianHouseholdIncome)
	assert.Nil(t, p.MedianAge)
	assert.Nil(t, p.MedianHomeValue)
	// The rest still parsed.
	require.NotNil(t, p.Population)
}

func TestDetailedSourceProfile(t *testing.T) {
	fa := &fakeACS{tables: map[int]acs.Table{2021: {
		"B01003_001E": "45000",
		"B19001_001E": "18000",
		"B19001_013E": "2000",
		"B19001_014E": "1500",
		"B19001_015E": "1000",
		"B19001_016E": "750",
		"B19001_017E": "250",
		"B08301_001E": "22000",
		"B08301_010E": "13000",
		"B08301_021E": "2200",
	}}}
	src := NewDetailedSource(fa, 2021)

	p, err := src.Profile(context.Background(), testGeo())
	require.NoError(t, err)

	require.NotNil(t, p.HighIncomeHouseholds)
	assert.Equal(t, int64(5500), *p.HighIncomeHouseholds)
	assert.Equal(t, int64(5500), p.Derived.HighIncomeCount)
	// 5500/18000 = 30.555...
	assert.Equal(t, 30.56, p.Derived.HighIncomeRate)
	// 2200/22000
	assert.Equal(t, 10.0, p.Derived.WorkFromHomeRate)
}

func TestDerivedZeroDenominators(t *testing.T) {
	zero := int64(0)
	ten := int64(10)
	p := &model.DemographicProfile{
		Population:        &zero,
		PovertyPopulation: &ten,
	}
	computeDerived(p)
	assert.Zero(t, p.Derived.PovertyRate)
	assert.Zero(t, p.Derived.RenterRate)
	assert.Zero(t, p.Derived.BachelorPlusRate)
}

type fakeTractReader struct {
	rows map[string]*model.TractProfile
}

func (f *fakeTractReader) TractProfile(_ context.Context, tractKey string) (*model.TractProfile, error) {
	row, ok := f.rows[tractKey]
	if !ok {
		return nil, eris.New("tract not found")
	}
	return row, nil
}

func TestCachedSourceProfile(t *testing.T) {
	name := "Astoria"
	pop := 44873.0
	age := 36.2
	mhi := 72481.0
	pctBach := 41.3
	pctRent := 64.958
	pctPov := 11.9
	reader := &fakeTractReader{rows: map[string]*model.TractProfile{
		"36081014700": {
			TractKey:              "36081014700",
			AreaName:              &name,
			Population:            &pop,
			MedianAge:             &age,
			MedianHouseholdIncome: &mhi,
			PctBachelors:          &pctBach,
			PctRenters:            &pctRent,
			PctPoverty:            &pctPov,
		},
	}}
	src := NewCachedSource(reader)

	p, err := src.Profile(context.Background(), testGeo())
	require.NoError(t, err)

	require.NotNil(t, p.AreaName)
	assert.Equal(t, "Astoria", *p.AreaName)
	require.NotNil(t, p.Population)
	assert.Equal(t, int64(44873), *p.Population)
	require.NotNil(t, p.MedianHouseholdIncome)
	assert.Equal(t, int64(72481), *p.MedianHouseholdIncome)
	assert.Equal(t, 41.3, p.Derived.BachelorPlusRate)
	assert.Equal(t, 64.96, p.Derived.RenterRate)
	assert.Equal(t, 11.9, p.Derived.PovertyRate)

	// Fields the reference schema lacks stay null.
	assert.Nil(t, p.HousingUnits)
	assert.Nil(t, p.MedianGrossRent)
	assert.Zero(t, p.Derived.HighIncomeRate)
}

func TestCachedSourceMiss(t *testing.T) {
	src := NewCachedSource(&fakeTractReader{rows: map[string]*model.TractProfile{}})

	_, err := src.Profile(context.Background(), testGeo())
	require.Error(t, err)
}
