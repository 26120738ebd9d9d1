package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bizsim/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func newSession(userID string) *model.Session {
	now := time.Now().UTC()
	return &model.Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		BusinessName: "Astoria Beans",
		BusinessType: "coffee shop",
		Industry:     "Accommodation and food services",
		Location: model.Location{
			Address:      "31-05 Ditmars Blvd",
			Neighborhood: "Astoria",
			County:       "Queens",
			Lat:          40.7769,
			Lng:          -73.9123,
		},
		InitialBudget: 50000,
		CurrentMonth:  1,
		CurrentYear:   2024,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// --- Users ---

func TestSQLite_CreateUser_Duplicate(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	u, err := st.CreateUser(ctx, "maria")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)

	_, err = st.CreateUser(ctx, "maria")
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestSQLite_UserByUsername(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateUser(ctx, "maria")
	require.NoError(t, err)

	got, err := st.UserByUsername(ctx, "maria")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = st.UserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestSQLite_TouchLastLogin(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	u, err := st.CreateUser(ctx, "maria")
	require.NoError(t, err)

	require.NoError(t, st.TouchLastLogin(ctx, u.ID))
	assert.ErrorIs(t, st.TouchLastLogin(ctx, "missing"), ErrUnknownUser)

	got, err := st.UserByUsername(ctx, "maria")
	require.NoError(t, err)
	assert.False(t, got.LastLogin.Before(u.LastLogin))
}

// --- Sessions ---

func TestSQLite_ReplaceSession_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	u, err := st.CreateUser(ctx, "maria")
	require.NoError(t, err)

	sess := newSession(u.ID)
	require.NoError(t, st.ReplaceSession(ctx, sess))

	got, err := st.SessionByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Astoria Beans", got.BusinessName)
	assert.Equal(t, "Queens", got.Location.County)
	assert.Equal(t, 1, got.CurrentMonth)
	assert.Equal(t, 2024, got.CurrentYear)

	byUser, err := st.SessionByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, byUser.ID)
}

func TestSQLite_ReplaceSession_CascadesHistory(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	u, err := st.CreateUser(ctx, "maria")
	require.NoError(t, err)

	first := newSession(u.ID)
	require.NoError(t, st.ReplaceSession(ctx, first))
	require.NoError(t, st.SaveMonthlyState(ctx, &model.MonthlyState{
		SessionID:  first.ID,
		Month:      1,
		Year:       2024,
		Financials: model.Financials{Revenue: 1200},
	}))

	// Starting over replaces the session and wipes its history.
	second := newSession(u.ID)
	require.NoError(t, st.ReplaceSession(ctx, second))

	_, err = st.SessionByID(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = st.MonthlyState(ctx, first.ID, 1, 2024)
	assert.ErrorIs(t, err, ErrNoState)

	history, err := st.MonthlyHistory(ctx, second.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSQLite_SessionMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.SessionByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNoSession)
}

// --- Monthly states ---

func TestSQLite_SaveMonthlyState_AdvancesPointer(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	u, err := st.CreateUser(ctx, "maria")
	require.NoError(t, err)
	sess := newSession(u.ID)
	require.NoError(t, st.ReplaceSession(ctx, sess))

	state := &model.MonthlyState{
		SessionID:       sess.ID,
		Month:           1,
		Year:            2024,
		Financials:      model.Financials{Revenue: 8200, Profit: 1400, Customers: 310, CashBalance: 51400},
		Agents:          model.AgentOutputs{EventsData: json.RawMessage(`{"events":[]}`)},
		PlayerDecisions: json.RawMessage(`{"price":4.5}`),
	}
	require.NoError(t, st.SaveMonthlyState(ctx, state))

	got, err := st.MonthlyState(ctx, sess.ID, 1, 2024)
	require.NoError(t, err)
	assert.Equal(t, 8200.0, got.Financials.Revenue)
	assert.JSONEq(t, `{"price":4.5}`, string(got.PlayerDecisions))
	assert.JSONEq(t, `{"events":[]}`, string(got.Agents.EventsData))

	// The pointer lands on the saved month itself.
	updated, err := st.SessionByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, state.Month, updated.CurrentMonth)
	assert.Equal(t, state.Year, updated.CurrentYear)
}

func TestSQLite_SaveMonthlyState_UpsertSecondWriteWins(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	u, err := st.CreateUser(ctx, "maria")
	require.NoError(t, err)
	sess := newSession(u.ID)
	require.NoError(t, st.ReplaceSession(ctx, sess))

	first := &model.MonthlyState{
		SessionID:  sess.ID,
		Month:      1,
		Year:       2024,
		Financials: model.Financials{Revenue: 100},
	}
	require.NoError(t, st.SaveMonthlyState(ctx, first))

	second := &model.MonthlyState{
		SessionID:  sess.ID,
		Month:      1,
		Year:       2024,
		Financials: model.Financials{Revenue: 999},
	}
	require.NoError(t, st.SaveMonthlyState(ctx, second))
	// The replay keeps the original row's id; the caller sees it.
	assert.Equal(t, first.ID, second.ID)

	got, err := st.MonthlyState(ctx, sess.ID, 1, 2024)
	require.NoError(t, err)
	assert.Equal(t, 999.0, got.Financials.Revenue)
	assert.Equal(t, first.ID, got.ID)

	history, err := st.MonthlyHistory(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSQLite_SaveMonthlyState_UnknownSession(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.SaveMonthlyState(context.Background(), &model.MonthlyState{
		SessionID: "ghost", Month: 1, Year: 2024,
	})
	require.Error(t, err)
}

func TestSQLite_MonthlyHistoryAndLatest(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	u, err := st.CreateUser(ctx, "maria")
	require.NoError(t, err)
	sess := newSession(u.ID)
	require.NoError(t, st.ReplaceSession(ctx, sess))

	// Save out of order across a year boundary.
	for _, my := range []struct{ m, y int }{{12, 2024}, {11, 2024}, {1, 2025}} {
		require.NoError(t, st.SaveMonthlyState(ctx, &model.MonthlyState{
			SessionID:  sess.ID,
			Month:      my.m,
			Year:       my.y,
			Financials: model.Financials{Revenue: float64(my.m)},
		}))
	}

	history, err := st.MonthlyHistory(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 11, history[0].Month)
	assert.Equal(t, 12, history[1].Month)
	assert.Equal(t, 2025, history[2].Year)

	latest, err := st.LatestMonthlyState(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, latest.Month)
	assert.Equal(t, 2025, latest.Year)

	_, err = st.LatestMonthlyState(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNoState)
}

// --- Survival reference ---

func loadQueensSurvival(t *testing.T, st *SQLiteStore) {
	t.Helper()
	n, err := st.LoadSurvivalRecords(context.Background(), []model.SurvivalRecord{
		{CountyName: "Queens", NAICSCode: "00", IndustryLabel: "Total for all sectors", Firms2017: 5000, SurvivalPct: 68.4},
		{CountyName: "Queens", NAICSCode: "72", IndustryLabel: "Accommodation and food services", Firms2017: 820, SurvivalPct: 58.2},
		{CountyName: "Kings", NAICSCode: "72", IndustryLabel: "Accommodation and food services", Firms2017: 1100, SurvivalPct: 61.0},
	})
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
}

func TestSQLite_SurvivalQueries(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	loadQueensSurvival(t, st)

	recs, err := st.CountySurvival(ctx, "queens") // case-insensitive
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	byNAICS, err := st.IndustrySurvival(ctx, "72")
	require.NoError(t, err)
	require.Len(t, byNAICS, 2)
	assert.Equal(t, "Kings", byNAICS[0].CountyName)

	counties, err := st.SurvivalCounties(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kings", "Queens"}, counties)
}

func TestSQLite_IndustrySurvival_LabelFallback(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	loadQueensSurvival(t, st)

	// No NAICS code matches, so the lookup falls back to the label.
	recs, err := st.IndustrySurvival(ctx, "accommodation")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, "72", r.NAICSCode)
	}

	// An exact code wins even when the query would also match a label.
	recs, err = st.IndustrySurvival(ctx, "72")
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = st.IndustrySurvival(ctx, "quantum mining")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSQLite_LoadSurvivalRecords_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	loadQueensSurvival(t, st)

	// Reloading with updated rates replaces in place.
	_, err := st.LoadSurvivalRecords(ctx, []model.SurvivalRecord{
		{CountyName: "Queens", NAICSCode: "72", IndustryLabel: "Accommodation and food services", Firms2017: 820, SurvivalPct: 59.9},
	})
	require.NoError(t, err)

	recs, err := st.CountySurvival(ctx, "Queens")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, r := range recs {
		if r.NAICSCode == "72" {
			assert.Equal(t, 59.9, r.SurvivalPct)
		}
	}
}

// --- Tract reference ---

func TestSQLite_TractProfiles(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	name := "Astoria"
	pop := 44873.0
	n, err := st.LoadTractProfiles(ctx, []model.TractProfile{
		{TractKey: "36081014700", AreaName: &name, Population: &pop},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	p, err := st.TractProfile(ctx, "36081014700")
	require.NoError(t, err)
	require.NotNil(t, p.AreaName)
	assert.Equal(t, "Astoria", *p.AreaName)
	require.NotNil(t, p.Population)
	assert.Equal(t, 44873.0, *p.Population)
	assert.Nil(t, p.MedianAge)

	_, err = st.TractProfile(ctx, "36081999999")
	assert.ErrorIs(t, err, ErrTractNotFound)
}

// --- Area analyses ---

func TestSQLite_AreaAnalyses_AppendOnly(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	pop := int64(44873)
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 2; i++ {
		require.NoError(t, st.SaveAreaAnalysis(ctx, &model.AreaAnalysis{
			ID:        uuid.NewString(),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Latitude:  40.7769,
			Longitude: -73.9123,
			Geo:       model.GeoIdentifier{State: "36", County: "081", Tract: "014700"},
			Profile:   &model.DemographicProfile{TractKey: "36081014700", Population: &pop},
		}))
	}

	recent, err := st.RecentAreaAnalyses(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	// Newest first.
	assert.True(t, recent[0].CreatedAt.After(recent[1].CreatedAt))
	require.NotNil(t, recent[0].Profile.Population)
	assert.Equal(t, int64(44873), *recent[0].Profile.Population)
	assert.Nil(t, recent[0].Detailed)

	got, err := st.AreaAnalysisByID(ctx, recent[1].ID)
	require.NoError(t, err)
	assert.Equal(t, recent[1].CreatedAt.Unix(), got.CreatedAt.Unix())
	assert.Equal(t, "36081014700", got.Geo.TractKey())

	_, err = st.AreaAnalysisByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNoAnalysis)
}
