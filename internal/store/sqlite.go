package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/bizsim/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path with WAL mode and
// foreign keys enabled. Cascading session replacement depends on the
// foreign_keys pragma.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	username   TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL,
	last_login DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
	business_name  TEXT NOT NULL,
	business_type  TEXT NOT NULL,
	industry       TEXT NOT NULL DEFAULT '',
	location       TEXT NOT NULL,
	initial_budget REAL NOT NULL DEFAULT 0,
	current_month  INTEGER NOT NULL DEFAULT 1,
	current_year   INTEGER NOT NULL,
	created_at     DATETIME NOT NULL,
	updated_at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS monthly_states (
	id               TEXT PRIMARY KEY,
	session_id       TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	month            INTEGER NOT NULL,
	year             INTEGER NOT NULL,
	financials       TEXT NOT NULL,
	agents           TEXT NOT NULL DEFAULT '{}',
	player_decisions TEXT,
	created_at       DATETIME NOT NULL,
	UNIQUE (session_id, month, year)
);

CREATE INDEX IF NOT EXISTS idx_monthly_states_session ON monthly_states(session_id, year, month);

CREATE TABLE IF NOT EXISTS survival_rates (
	county_name  TEXT NOT NULL,
	naics_code   TEXT NOT NULL,
	industry     TEXT NOT NULL,
	firms_2017   INTEGER NOT NULL DEFAULT 0,
	survival_pct REAL NOT NULL,
	PRIMARY KEY (county_name, naics_code)
);

CREATE INDEX IF NOT EXISTS idx_survival_rates_naics ON survival_rates(naics_code);

CREATE TABLE IF NOT EXISTS tract_profiles (
	tract_key               TEXT PRIMARY KEY,
	area_name               TEXT,
	cluster                 INTEGER,
	population              REAL,
	median_age              REAL,
	median_household_income REAL,
	pct_bachelors           REAL,
	pct_renters             REAL,
	pct_poverty             REAL,
	workforce_jobs          REAL,
	pct_jobs_young          REAL,
	pct_jobs_high_earn      REAL,
	pct_jobs_prof_services  REAL,
	pct_jobs_healthcare     REAL
);

CREATE TABLE IF NOT EXISTS area_analyses (
	id         TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL,
	latitude   REAL NOT NULL,
	longitude  REAL NOT NULL,
	state      TEXT NOT NULL,
	county     TEXT NOT NULL,
	tract      TEXT NOT NULL,
	block      TEXT NOT NULL DEFAULT '',
	area_name  TEXT,
	profile    TEXT NOT NULL,
	detailed   TEXT
);

CREATE INDEX IF NOT EXISTS idx_area_analyses_created ON area_analyses(created_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isSQLiteUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *SQLiteStore) CreateUser(ctx context.Context, username string) (*model.User, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, created_at, last_login) VALUES (?, ?, ?, ?)`,
		id, username, now, now,
	)
	if isSQLiteUniqueViolation(err) {
		return nil, ErrDuplicateUsername
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert user")
	}
	return &model.User{ID: id, Username: username, CreatedAt: now, LastLogin: now}, nil
}

func (s *SQLiteStore) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, created_at, last_login FROM users WHERE username = ?`,
		username,
	).Scan(&u.ID, &u.Username, &u.CreatedAt, &u.LastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get user %s", username)
	}
	return &u, nil
}

func (s *SQLiteStore) TouchLastLogin(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE id = ?`,
		time.Now().UTC(), userID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: touch last login %s", userID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrUnknownUser
	}
	return nil
}

func (s *SQLiteStore) ReplaceSession(ctx context.Context, session *model.Session) error {
	locJSON, err := json.Marshal(session.Location)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal location")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace session")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = ?`, session.UserID,
	); err != nil {
		return eris.Wrap(err, "sqlite: delete prior session")
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, business_name, business_type, industry, location,
			initial_budget, current_month, current_year, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.UserID, session.BusinessName, session.BusinessType, session.Industry,
		string(locJSON), session.InitialBudget, session.CurrentMonth, session.CurrentYear,
		session.CreatedAt, session.UpdatedAt,
	); err != nil {
		return eris.Wrap(err, "sqlite: insert session")
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit replace session")
}

func (s *SQLiteStore) scanSession(row *sql.Row) (*model.Session, error) {
	var sess model.Session
	var locJSON string
	err := row.Scan(&sess.ID, &sess.UserID, &sess.BusinessName, &sess.BusinessType, &sess.Industry,
		&locJSON, &sess.InitialBudget, &sess.CurrentMonth, &sess.CurrentYear,
		&sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan session")
	}
	if err := json.Unmarshal([]byte(locJSON), &sess.Location); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal location")
	}
	return &sess, nil
}

func (s *SQLiteStore) SessionByID(ctx context.Context, id string) (*model.Session, error) {
	return s.scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
}

func (s *SQLiteStore) SessionByUser(ctx context.Context, userID string) (*model.Session, error) {
	return s.scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ?`, userID))
}

func (s *SQLiteStore) SaveMonthlyState(ctx context.Context, state *model.MonthlyState) error {
	if state.ID == "" {
		state.ID = uuid.New().String()
	}
	if state.CreatedAt.IsZero() {
		state.CreatedAt = time.Now().UTC()
	}
	finJSON, err := json.Marshal(state.Financials)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal financials")
	}
	agentsJSON, err := json.Marshal(state.Agents)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal agent outputs")
	}
	var decisions any
	if len(state.PlayerDecisions) > 0 {
		decisions = string(state.PlayerDecisions)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save monthly state")
	}
	defer tx.Rollback() //nolint:errcheck

	// RETURNING id reports the surviving row's id: the fresh one on insert,
	// the original one when the month is replayed.
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO monthly_states (id, session_id, month, year, financials, agents, player_decisions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (session_id, month, year) DO UPDATE SET
			financials = excluded.financials,
			agents = excluded.agents,
			player_decisions = excluded.player_decisions
		 RETURNING id`,
		state.ID, state.SessionID, state.Month, state.Year,
		string(finJSON), string(agentsJSON), decisions, state.CreatedAt,
	).Scan(&state.ID); err != nil {
		return eris.Wrap(err, "sqlite: upsert monthly state")
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET current_month = ?, current_year = ?, updated_at = ? WHERE id = ?`,
		state.Month, state.Year, time.Now().UTC(), state.SessionID,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: advance session pointer")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNoSession
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save monthly state")
}

func scanSQLiteMonthlyState(scan func(dest ...any) error) (*model.MonthlyState, error) {
	var st model.MonthlyState
	var finJSON, agentsJSON string
	var decisions sql.NullString
	err := scan(&st.ID, &st.SessionID, &st.Month, &st.Year, &finJSON, &agentsJSON, &decisions, &st.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(finJSON), &st.Financials); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal financials")
	}
	if err := json.Unmarshal([]byte(agentsJSON), &st.Agents); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal agent outputs")
	}
	if decisions.Valid && decisions.String != "" {
		st.PlayerDecisions = json.RawMessage(decisions.String)
	}
	return &st, nil
}

func (s *SQLiteStore) MonthlyState(ctx context.Context, sessionID string, month, year int) (*model.MonthlyState, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+monthlyStateColumns+` FROM monthly_states
		 WHERE session_id = ? AND month = ? AND year = ?`,
		sessionID, month, year)
	st, err := scanSQLiteMonthlyState(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get monthly state")
	}
	return st, nil
}

func (s *SQLiteStore) LatestMonthlyState(ctx context.Context, sessionID string) (*model.MonthlyState, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+monthlyStateColumns+` FROM monthly_states
		 WHERE session_id = ? ORDER BY year DESC, month DESC LIMIT 1`,
		sessionID)
	st, err := scanSQLiteMonthlyState(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest monthly state")
	}
	return st, nil
}

func (s *SQLiteStore) MonthlyHistory(ctx context.Context, sessionID string) ([]model.MonthlyState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+monthlyStateColumns+` FROM monthly_states
		 WHERE session_id = ? ORDER BY year ASC, month ASC`,
		sessionID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: monthly history")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.MonthlyState
	for rows.Next() {
		st, err := scanSQLiteMonthlyState(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan monthly state")
		}
		out = append(out, *st)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: monthly history rows")
}

func (s *SQLiteStore) CountySurvival(ctx context.Context, county string) ([]model.SurvivalRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+survivalColumns+` FROM survival_rates
		 WHERE LOWER(county_name) = LOWER(?) ORDER BY naics_code`,
		county)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: county survival")
	}
	defer rows.Close() //nolint:errcheck
	return collectSQLiteSurvival(rows)
}

// IndustrySurvival matches an exact NAICS code first and falls back to a
// case-insensitive label substring when no code matches.
func (s *SQLiteStore) IndustrySurvival(ctx context.Context, industry string) ([]model.SurvivalRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+survivalColumns+` FROM survival_rates
		 WHERE naics_code = ? ORDER BY county_name`,
		industry)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: industry survival")
	}
	defer rows.Close() //nolint:errcheck
	out, err := collectSQLiteSurvival(rows)
	if err != nil || len(out) > 0 {
		return out, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT `+survivalColumns+` FROM survival_rates
		 WHERE LOWER(industry) LIKE '%' || LOWER(?) || '%' ORDER BY county_name`,
		industry)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: industry survival by label")
	}
	defer rows.Close() //nolint:errcheck
	return collectSQLiteSurvival(rows)
}

func collectSQLiteSurvival(rows *sql.Rows) ([]model.SurvivalRecord, error) {
	var out []model.SurvivalRecord
	for rows.Next() {
		var r model.SurvivalRecord
		if err := rows.Scan(&r.CountyName, &r.NAICSCode, &r.IndustryLabel, &r.Firms2017, &r.SurvivalPct); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan survival record")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: survival rows")
}

func (s *SQLiteStore) SurvivalCounties(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT county_name FROM survival_rates ORDER BY county_name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: survival counties")
	}
	defer rows.Close() //nolint:errcheck

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan county")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: county rows")
}

func (s *SQLiteStore) LoadSurvivalRecords(ctx context.Context, records []model.SurvivalRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin load survival")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO survival_rates (county_name, naics_code, industry, firms_2017, survival_pct)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (county_name, naics_code) DO UPDATE SET
			industry = excluded.industry,
			firms_2017 = excluded.firms_2017,
			survival_pct = excluded.survival_pct`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare load survival")
	}
	defer stmt.Close() //nolint:errcheck

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.CountyName, r.NAICSCode, r.IndustryLabel, r.Firms2017, r.SurvivalPct); err != nil {
			return 0, eris.Wrapf(err, "sqlite: load survival record %s/%s", r.CountyName, r.NAICSCode)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit load survival")
	}
	return int64(len(records)), nil
}

func (s *SQLiteStore) TractProfile(ctx context.Context, tractKey string) (*model.TractProfile, error) {
	var p model.TractProfile
	err := s.db.QueryRowContext(ctx,
		`SELECT `+tractProfileColumns+` FROM tract_profiles WHERE tract_key = ?`,
		tractKey,
	).Scan(&p.TractKey, &p.AreaName, &p.Cluster, &p.Population, &p.MedianAge,
		&p.MedianHouseholdIncome, &p.PctBachelors, &p.PctRenters, &p.PctPoverty,
		&p.WorkforceJobs, &p.PctJobsYoung, &p.PctJobsHighEarn, &p.PctJobsProfService,
		&p.PctJobsHealthcare)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTractNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get tract profile %s", tractKey)
	}
	return &p, nil
}

func (s *SQLiteStore) LoadTractProfiles(ctx context.Context, profiles []model.TractProfile) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin load tracts")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tract_profiles (tract_key, area_name, cluster, population, median_age,
			median_household_income, pct_bachelors, pct_renters, pct_poverty, workforce_jobs,
			pct_jobs_young, pct_jobs_high_earn, pct_jobs_prof_services, pct_jobs_healthcare)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tract_key) DO UPDATE SET
			area_name = excluded.area_name,
			cluster = excluded.cluster,
			population = excluded.population,
			median_age = excluded.median_age,
			median_household_income = excluded.median_household_income,
			pct_bachelors = excluded.pct_bachelors,
			pct_renters = excluded.pct_renters,
			pct_poverty = excluded.pct_poverty,
			workforce_jobs = excluded.workforce_jobs,
			pct_jobs_young = excluded.pct_jobs_young,
			pct_jobs_high_earn = excluded.pct_jobs_high_earn,
			pct_jobs_prof_services = excluded.pct_jobs_prof_services,
			pct_jobs_healthcare = excluded.pct_jobs_healthcare`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare load tracts")
	}
	defer stmt.Close() //nolint:errcheck

	for _, p := range profiles {
		if _, err := stmt.ExecContext(ctx, p.TractKey, p.AreaName, p.Cluster, p.Population,
			p.MedianAge, p.MedianHouseholdIncome, p.PctBachelors, p.PctRenters, p.PctPoverty,
			p.WorkforceJobs, p.PctJobsYoung, p.PctJobsHighEarn, p.PctJobsProfService,
			p.PctJobsHealthcare); err != nil {
			return 0, eris.Wrapf(err, "sqlite: load tract profile %s", p.TractKey)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit load tracts")
	}
	return int64(len(profiles)), nil
}

func (s *SQLiteStore) SaveAreaAnalysis(ctx context.Context, analysis *model.AreaAnalysis) error {
	profileJSON, err := json.Marshal(analysis.Profile)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal profile")
	}
	var detailed any
	if analysis.Detailed != nil {
		detailedJSON, err := json.Marshal(analysis.Detailed)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal detailed profile")
		}
		detailed = string(detailedJSON)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO area_analyses (id, created_at, latitude, longitude, state, county, tract, block,
			area_name, profile, detailed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		analysis.ID, analysis.CreatedAt, analysis.Latitude, analysis.Longitude,
		analysis.Geo.State, analysis.Geo.County, analysis.Geo.Tract, analysis.Geo.Block,
		analysis.AreaName, string(profileJSON), detailed,
	)
	return eris.Wrap(err, "sqlite: insert area analysis")
}

func (s *SQLiteStore) AreaAnalysisByID(ctx context.Context, id string) (*model.AreaAnalysis, error) {
	var a model.AreaAnalysis
	var profileJSON string
	var detailedJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, latitude, longitude, state, county, tract, block, area_name, profile, detailed
		 FROM area_analyses WHERE id = ?`,
		id,
	).Scan(&a.ID, &a.CreatedAt, &a.Latitude, &a.Longitude,
		&a.Geo.State, &a.Geo.County, &a.Geo.Tract, &a.Geo.Block,
		&a.AreaName, &profileJSON, &detailedJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoAnalysis
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get area analysis %s", id)
	}
	a.Profile = &model.DemographicProfile{}
	if err := json.Unmarshal([]byte(profileJSON), a.Profile); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal profile")
	}
	if detailedJSON.Valid && detailedJSON.String != "" {
		a.Detailed = &model.DemographicProfile{}
		if err := json.Unmarshal([]byte(detailedJSON.String), a.Detailed); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal detailed profile")
		}
	}
	return &a, nil
}

func (s *SQLiteStore) RecentAreaAnalyses(ctx context.Context, limit int) ([]model.AreaAnalysis, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, latitude, longitude, state, county, tract, block, area_name, profile, detailed
		 FROM area_analyses ORDER BY created_at DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: recent area analyses")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.AreaAnalysis
	for rows.Next() {
		var a model.AreaAnalysis
		var profileJSON string
		var detailedJSON sql.NullString
		if err := rows.Scan(&a.ID, &a.CreatedAt, &a.Latitude, &a.Longitude,
			&a.Geo.State, &a.Geo.County, &a.Geo.Tract, &a.Geo.Block,
			&a.AreaName, &profileJSON, &detailedJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan area analysis")
		}
		a.Profile = &model.DemographicProfile{}
		if err := json.Unmarshal([]byte(profileJSON), a.Profile); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal profile")
		}
		if detailedJSON.Valid && detailedJSON.String != "" {
			a.Detailed = &model.DemographicProfile{}
			if err := json.Unmarshal([]byte(detailedJSON.String), a.Detailed); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal detailed profile")
			}
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: area analysis rows")
}
