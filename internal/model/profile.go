package model

import "time"

// DerivedStats are ratios computed from raw profile counts, as percentages
// rounded to two decimals. A rate is 0 whenever its denominator is zero or
// missing.
type DerivedStats struct {
	PovertyRate      float64 `json:"poverty_rate"`
	RenterRate       float64 `json:"renter_rate"`
	BachelorPlusRate float64 `json:"bachelor_plus_rate"`
	HighIncomeRate   float64 `json:"high_income_households_rate"`
	WorkFromHomeRate float64 `json:"work_from_home_rate"`

	BachelorPlusCount int64 `json:"bachelor_plus_count"`
	HighIncomeCount   int64 `json:"high_income_count"`
}

// DemographicProfile is the canonical demographic/economic record for one
// census tract. Every numeric field is nullable: the live and cached sources
// populate different subsets and callers must tolerate gaps.
type DemographicProfile struct {
	TractKey string  `json:"tract_key"`
	AreaName *string `json:"area_name,omitempty"`

	// Population
	Population *int64   `json:"population,omitempty"`
	MedianAge  *float64 `json:"median_age,omitempty"`

	// Income
	MedianHouseholdIncome *int64 `json:"median_household_income,omitempty"`
	PerCapitaIncome       *int64 `json:"per_capita_income,omitempty"`
	TotalHouseholds       *int64 `json:"total_households,omitempty"`
	HighIncomeHouseholds  *int64 `json:"high_income_households,omitempty"`

	// Poverty
	PovertyPopulation *int64 `json:"poverty_population,omitempty"`

	// Education (population 25+)
	Pop25Plus *int64 `json:"pop_25_plus,omitempty"`
	Bachelors *int64 `json:"bachelors,omitempty"`
	Masters   *int64 `json:"masters,omitempty"`
	Doctorate *int64 `json:"doctorate,omitempty"`

	// Housing
	HousingUnits    *int64 `json:"housing_units,omitempty"`
	OwnerOccupied   *int64 `json:"owner_occupied,omitempty"`
	RenterOccupied  *int64 `json:"renter_occupied,omitempty"`
	MedianGrossRent *int64 `json:"median_gross_rent,omitempty"`
	MedianHomeValue *int64 `json:"median_home_value,omitempty"`

	// Commuting (workers 16+)
	Workers       *int64 `json:"workers,omitempty"`
	PublicTransit *int64 `json:"public_transit,omitempty"`
	WorkFromHome  *int64 `json:"work_from_home,omitempty"`

	Derived DerivedStats `json:"derived_statistics"`
}

// AreaAnalysis is one persisted launch-business analysis: the resolved
// geography plus the standard profile and, when the secondary enrichment
// succeeded, the detailed profile. Stored append-only; a repeat launch at
// the same tract inserts a new row.
type AreaAnalysis struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
	Geo       GeoIdentifier `json:"geo"`
	AreaName  *string       `json:"area_name,omitempty"`

	Profile  *DemographicProfile `json:"profile"`
	Detailed *DemographicProfile `json:"detailed,omitempty"`
}

// TractProfile is one row of the preloaded tract reference table: precomputed
// statistics for a tract, keyed by its 11-character FIPS key. Fields absent
// from the reference schema stay null under the cached profile strategy.
type TractProfile struct {
	TractKey string  `json:"tract_key"`
	AreaName *string `json:"area_name,omitempty"`
	Cluster  *int64  `json:"cluster,omitempty"`

	Population            *float64 `json:"population,omitempty"`
	MedianAge             *float64 `json:"median_age,omitempty"`
	MedianHouseholdIncome *float64 `json:"median_household_income,omitempty"`

	PctBachelors *float64 `json:"pct_bachelors,omitempty"`
	PctRenters   *float64 `json:"pct_renters,omitempty"`
	PctPoverty   *float64 `json:"pct_poverty,omitempty"`

	WorkforceJobs      *float64 `json:"workforce_jobs,omitempty"`
	PctJobsYoung       *float64 `json:"pct_jobs_young,omitempty"`
	PctJobsHighEarn    *float64 `json:"pct_jobs_high_earn,omitempty"`
	PctJobsProfService *float64 `json:"pct_jobs_prof_services,omitempty"`
	PctJobsHealthcare  *float64 `json:"pct_jobs_healthcare,omitempty"`
}
