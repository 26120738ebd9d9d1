package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/bizsim/internal/db"
	"github.com/sells-group/bizsim/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access (e.g., bulk reference loads).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	username   TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_login TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sessions (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
	business_name  TEXT NOT NULL,
	business_type  TEXT NOT NULL,
	industry       TEXT NOT NULL DEFAULT '',
	location       JSONB NOT NULL,
	initial_budget DOUBLE PRECISION NOT NULL DEFAULT 0,
	current_month  INTEGER NOT NULL DEFAULT 1,
	current_year   INTEGER NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS monthly_states (
	id               TEXT PRIMARY KEY,
	session_id       TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	month            INTEGER NOT NULL,
	year             INTEGER NOT NULL,
	financials       JSONB NOT NULL,
	agents           JSONB NOT NULL DEFAULT '{}',
	player_decisions JSONB,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (session_id, month, year)
);

CREATE INDEX IF NOT EXISTS idx_monthly_states_session ON monthly_states(session_id, year, month);

CREATE TABLE IF NOT EXISTS survival_rates (
	county_name  TEXT NOT NULL,
	naics_code   TEXT NOT NULL,
	industry     TEXT NOT NULL,
	firms_2017   INTEGER NOT NULL DEFAULT 0,
	survival_pct DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (county_name, naics_code)
);

CREATE INDEX IF NOT EXISTS idx_survival_rates_naics ON survival_rates(naics_code);

CREATE TABLE IF NOT EXISTS tract_profiles (
	tract_key               TEXT PRIMARY KEY,
	area_name               TEXT,
	cluster                 INTEGER,
	population              DOUBLE PRECISION,
	median_age              DOUBLE PRECISION,
	median_household_income DOUBLE PRECISION,
	pct_bachelors           DOUBLE PRECISION,
	pct_renters             DOUBLE PRECISION,
	pct_poverty             DOUBLE PRECISION,
	workforce_jobs          DOUBLE PRECISION,
	pct_jobs_young          DOUBLE PRECISION,
	pct_jobs_high_earn      DOUBLE PRECISION,
	pct_jobs_prof_services  DOUBLE PRECISION,
	pct_jobs_healthcare     DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS area_analyses (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	latitude   DOUBLE PRECISION NOT NULL,
	longitude  DOUBLE PRECISION NOT NULL,
	state      TEXT NOT NULL,
	county     TEXT NOT NULL,
	tract      TEXT NOT NULL,
	block      TEXT NOT NULL DEFAULT '',
	area_name  TEXT,
	profile    JSONB NOT NULL,
	detailed   JSONB
);

CREATE INDEX IF NOT EXISTS idx_area_analyses_tract ON area_analyses(state, county, tract);
CREATE INDEX IF NOT EXISTS idx_area_analyses_created ON area_analyses(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresStore) CreateUser(ctx context.Context, username string) (*model.User, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, username, created_at, last_login) VALUES ($1, $2, $3, $4)`,
		id, username, now, now,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateUsername
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert user")
	}
	return &model.User{ID: id, Username: username, CreatedAt: now, LastLogin: now}, nil
}

func (s *PostgresStore) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, created_at, last_login FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.CreatedAt, &u.LastLogin)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get user %s", username)
	}
	return &u, nil
}

func (s *PostgresStore) TouchLastLogin(ctx context.Context, userID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET last_login = $1 WHERE id = $2`,
		time.Now().UTC(), userID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: touch last login %s", userID)
	}
	if tag.RowsAffected() == 0 {
		return ErrUnknownUser
	}
	return nil
}

func (s *PostgresStore) ReplaceSession(ctx context.Context, session *model.Session) error {
	locJSON, err := json.Marshal(session.Location)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal location")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace session")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// ON DELETE CASCADE wipes the old session's monthly history with it.
	if _, err := tx.Exec(ctx,
		`DELETE FROM sessions WHERE user_id = $1`, session.UserID,
	); err != nil {
		return eris.Wrap(err, "postgres: delete prior session")
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO sessions (id, user_id, business_name, business_type, industry, location,
			initial_budget, current_month, current_year, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		session.ID, session.UserID, session.BusinessName, session.BusinessType, session.Industry,
		locJSON, session.InitialBudget, session.CurrentMonth, session.CurrentYear,
		session.CreatedAt, session.UpdatedAt,
	); err != nil {
		return eris.Wrap(err, "postgres: insert session")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace session")
}

const sessionColumns = `id, user_id, business_name, business_type, industry, location,
	initial_budget, current_month, current_year, created_at, updated_at`

func (s *PostgresStore) scanSession(row pgx.Row) (*model.Session, error) {
	var sess model.Session
	var locJSON []byte
	err := row.Scan(&sess.ID, &sess.UserID, &sess.BusinessName, &sess.BusinessType, &sess.Industry,
		&locJSON, &sess.InitialBudget, &sess.CurrentMonth, &sess.CurrentYear,
		&sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan session")
	}
	if err := json.Unmarshal(locJSON, &sess.Location); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal location")
	}
	return &sess, nil
}

func (s *PostgresStore) SessionByID(ctx context.Context, id string) (*model.Session, error) {
	return s.scanSession(s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
}

func (s *PostgresStore) SessionByUser(ctx context.Context, userID string) (*model.Session, error) {
	return s.scanSession(s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1`, userID))
}

func (s *PostgresStore) SaveMonthlyState(ctx context.Context, state *model.MonthlyState) error {
	if state.ID == "" {
		state.ID = uuid.New().String()
	}
	if state.CreatedAt.IsZero() {
		state.CreatedAt = time.Now().UTC()
	}
	finJSON, err := json.Marshal(state.Financials)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal financials")
	}
	agentsJSON, err := json.Marshal(state.Agents)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal agent outputs")
	}
	var decisions []byte
	if len(state.PlayerDecisions) > 0 {
		decisions = state.PlayerDecisions
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save monthly state")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// RETURNING id reports the surviving row's id: the fresh one on insert,
	// the original one when the month is replayed.
	if err := tx.QueryRow(ctx,
		`INSERT INTO monthly_states (id, session_id, month, year, financials, agents, player_decisions, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (session_id, month, year) DO UPDATE SET
			financials = EXCLUDED.financials,
			agents = EXCLUDED.agents,
			player_decisions = EXCLUDED.player_decisions
		 RETURNING id`,
		state.ID, state.SessionID, state.Month, state.Year, finJSON, agentsJSON, decisions, state.CreatedAt,
	).Scan(&state.ID); err != nil {
		return eris.Wrap(err, "postgres: upsert monthly state")
	}

	tag, err := tx.Exec(ctx,
		`UPDATE sessions SET current_month = $1, current_year = $2, updated_at = $3 WHERE id = $4`,
		state.Month, state.Year, time.Now().UTC(), state.SessionID,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: advance session pointer")
	}
	if tag.RowsAffected() == 0 {
		return ErrNoSession
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit save monthly state")
}

const monthlyStateColumns = `id, session_id, month, year, financials, agents, player_decisions, created_at`

func scanMonthlyState(scan func(dest ...any) error) (*model.MonthlyState, error) {
	var st model.MonthlyState
	var finJSON, agentsJSON, decisions []byte
	err := scan(&st.ID, &st.SessionID, &st.Month, &st.Year, &finJSON, &agentsJSON, &decisions, &st.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(finJSON, &st.Financials); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal financials")
	}
	if err := json.Unmarshal(agentsJSON, &st.Agents); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal agent outputs")
	}
	if len(decisions) > 0 {
		st.PlayerDecisions = json.RawMessage(decisions)
	}
	return &st, nil
}

func (s *PostgresStore) MonthlyState(ctx context.Context, sessionID string, month, year int) (*model.MonthlyState, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+monthlyStateColumns+` FROM monthly_states
		 WHERE session_id = $1 AND month = $2 AND year = $3`,
		sessionID, month, year)
	st, err := scanMonthlyState(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get monthly state")
	}
	return st, nil
}

func (s *PostgresStore) LatestMonthlyState(ctx context.Context, sessionID string) (*model.MonthlyState, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+monthlyStateColumns+` FROM monthly_states
		 WHERE session_id = $1 ORDER BY year DESC, month DESC LIMIT 1`,
		sessionID)
	st, err := scanMonthlyState(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest monthly state")
	}
	return st, nil
}

func (s *PostgresStore) MonthlyHistory(ctx context.Context, sessionID string) ([]model.MonthlyState, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+monthlyStateColumns+` FROM monthly_states
		 WHERE session_id = $1 ORDER BY year ASC, month ASC`,
		sessionID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: monthly history")
	}
	defer rows.Close()

	var out []model.MonthlyState
	for rows.Next() {
		st, err := scanMonthlyState(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan monthly state")
		}
		out = append(out, *st)
	}
	return out, eris.Wrap(rows.Err(), "postgres: monthly history rows")
}

const survivalColumns = `county_name, naics_code, industry, firms_2017, survival_pct`

func (s *PostgresStore) CountySurvival(ctx context.Context, county string) ([]model.SurvivalRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+survivalColumns+` FROM survival_rates
		 WHERE LOWER(county_name) = LOWER($1) ORDER BY naics_code`,
		county)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: county survival")
	}
	defer rows.Close()
	return collectSurvival(rows)
}

// IndustrySurvival matches an exact NAICS code first and falls back to a
// case-insensitive label substring when no code matches.
func (s *PostgresStore) IndustrySurvival(ctx context.Context, industry string) ([]model.SurvivalRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+survivalColumns+` FROM survival_rates
		 WHERE naics_code = $1 ORDER BY county_name`,
		industry)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: industry survival")
	}
	defer rows.Close()
	out, err := collectSurvival(rows)
	if err != nil || len(out) > 0 {
		return out, err
	}

	rows, err = s.pool.Query(ctx,
		`SELECT `+survivalColumns+` FROM survival_rates
		 WHERE industry ILIKE '%' || $1 || '%' ORDER BY county_name`,
		industry)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: industry survival by label")
	}
	defer rows.Close()
	return collectSurvival(rows)
}

func collectSurvival(rows pgx.Rows) ([]model.SurvivalRecord, error) {
	var out []model.SurvivalRecord
	for rows.Next() {
		var r model.SurvivalRecord
		if err := rows.Scan(&r.CountyName, &r.NAICSCode, &r.IndustryLabel, &r.Firms2017, &r.SurvivalPct); err != nil {
			return nil, eris.Wrap(err, "postgres: scan survival record")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: survival rows")
}

func (s *PostgresStore) SurvivalCounties(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT county_name FROM survival_rates ORDER BY county_name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: survival counties")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, eris.Wrap(err, "postgres: scan county")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: county rows")
}

func (s *PostgresStore) LoadSurvivalRecords(ctx context.Context, records []model.SurvivalRecord) (int64, error) {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{r.CountyName, r.NAICSCode, r.IndustryLabel, r.Firms2017, r.SurvivalPct}
	}
	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "survival_rates",
		Columns:      []string{"county_name", "naics_code", "industry", "firms_2017", "survival_pct"},
		ConflictKeys: []string{"county_name", "naics_code"},
	}, rows)
}

const tractProfileColumns = `tract_key, area_name, cluster, population, median_age,
	median_household_income, pct_bachelors, pct_renters, pct_poverty, workforce_jobs,
	pct_jobs_young, pct_jobs_high_earn, pct_jobs_prof_services, pct_jobs_healthcare`

func (s *PostgresStore) TractProfile(ctx context.Context, tractKey string) (*model.TractProfile, error) {
	var p model.TractProfile
	err := s.pool.QueryRow(ctx,
		`SELECT `+tractProfileColumns+` FROM tract_profiles WHERE tract_key = $1`,
		tractKey,
	).Scan(&p.TractKey, &p.AreaName, &p.Cluster, &p.Population, &p.MedianAge,
		&p.MedianHouseholdIncome, &p.PctBachelors, &p.PctRenters, &p.PctPoverty,
		&p.WorkforceJobs, &p.PctJobsYoung, &p.PctJobsHighEarn, &p.PctJobsProfService,
		&p.PctJobsHealthcare)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTractNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get tract profile %s", tractKey)
	}
	return &p, nil
}

func (s *PostgresStore) LoadTractProfiles(ctx context.Context, profiles []model.TractProfile) (int64, error) {
	rows := make([][]any, len(profiles))
	for i, p := range profiles {
		rows[i] = []any{p.TractKey, p.AreaName, p.Cluster, p.Population, p.MedianAge,
			p.MedianHouseholdIncome, p.PctBachelors, p.PctRenters, p.PctPoverty,
			p.WorkforceJobs, p.PctJobsYoung, p.PctJobsHighEarn, p.PctJobsProfService,
			p.PctJobsHealthcare}
	}
	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table: "tract_profiles",
		Columns: []string{"tract_key", "area_name", "cluster", "population", "median_age",
			"median_household_income", "pct_bachelors", "pct_renters", "pct_poverty",
			"workforce_jobs", "pct_jobs_young", "pct_jobs_high_earn", "pct_jobs_prof_services",
			"pct_jobs_healthcare"},
		ConflictKeys: []string{"tract_key"},
	}, rows)
}

func (s *PostgresStore) SaveAreaAnalysis(ctx context.Context, analysis *model.AreaAnalysis) error {
	profileJSON, err := json.Marshal(analysis.Profile)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal profile")
	}
	var detailedJSON []byte
	if analysis.Detailed != nil {
		detailedJSON, err = json.Marshal(analysis.Detailed)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal detailed profile")
		}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO area_analyses (id, created_at, latitude, longitude, state, county, tract, block,
			area_name, profile, detailed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		analysis.ID, analysis.CreatedAt, analysis.Latitude, analysis.Longitude,
		analysis.Geo.State, analysis.Geo.County, analysis.Geo.Tract, analysis.Geo.Block,
		analysis.AreaName, profileJSON, detailedJSON,
	)
	return eris.Wrap(err, "postgres: insert area analysis")
}

func (s *PostgresStore) AreaAnalysisByID(ctx context.Context, id string) (*model.AreaAnalysis, error) {
	var a model.AreaAnalysis
	var profileJSON, detailedJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, created_at, latitude, longitude, state, county, tract, block, area_name, profile, detailed
		 FROM area_analyses WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.CreatedAt, &a.Latitude, &a.Longitude,
		&a.Geo.State, &a.Geo.County, &a.Geo.Tract, &a.Geo.Block,
		&a.AreaName, &profileJSON, &detailedJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoAnalysis
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get area analysis %s", id)
	}
	a.Profile = &model.DemographicProfile{}
	if err := json.Unmarshal(profileJSON, a.Profile); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal profile")
	}
	if len(detailedJSON) > 0 {
		a.Detailed = &model.DemographicProfile{}
		if err := json.Unmarshal(detailedJSON, a.Detailed); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal detailed profile")
		}
	}
	return &a, nil
}

func (s *PostgresStore) RecentAreaAnalyses(ctx context.Context, limit int) ([]model.AreaAnalysis, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, created_at, latitude, longitude, state, county, tract, block, area_name, profile, detailed
		 FROM area_analyses ORDER BY created_at DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: recent area analyses")
	}
	defer rows.Close()

	var out []model.AreaAnalysis
	for rows.Next() {
		var a model.AreaAnalysis
		var profileJSON, detailedJSON []byte
		if err := rows.Scan(&a.ID, &a.CreatedAt, &a.Latitude, &a.Longitude,
			&a.Geo.State, &a.Geo.County, &a.Geo.Tract, &a.Geo.Block,
			&a.AreaName, &profileJSON, &detailedJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan area analysis")
		}
		a.Profile = &model.DemographicProfile{}
		if err := json.Unmarshal(profileJSON, a.Profile); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal profile")
		}
		if len(detailedJSON) > 0 {
			a.Detailed = &model.DemographicProfile{}
			if err := json.Unmarshal(detailedJSON, a.Detailed); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal detailed profile")
			}
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: area analysis rows")
}
