// Package store persists simulation state and reference datasets behind a
// driver-agnostic interface. Two drivers exist: postgres for deployment and
// sqlite for local single-binary use.
package store

import (
	"context"
	"errors"

	"github.com/sells-group/bizsim/internal/model"
)

// Sentinel errors returned by lookups. Drivers translate their native
// not-found and constraint errors into these.
var (
	ErrDuplicateUsername = errors.New("store: username already taken")
	ErrUnknownUser       = errors.New("store: unknown user")
	ErrNoSession         = errors.New("store: no session")
	ErrNoState           = errors.New("store: no monthly state")
	ErrTractNotFound     = errors.New("store: tract not found")
	ErrNoAnalysis        = errors.New("store: no area analysis")
)

// Store defines the persistence interface for the simulation backend.
type Store interface {
	// Users
	CreateUser(ctx context.Context, username string) (*model.User, error)
	UserByUsername(ctx context.Context, username string) (*model.User, error)
	TouchLastLogin(ctx context.Context, userID string) error

	// Sessions (one per user; replacing cascades away monthly history)
	ReplaceSession(ctx context.Context, session *model.Session) error
	SessionByID(ctx context.Context, id string) (*model.Session, error)
	SessionByUser(ctx context.Context, userID string) (*model.Session, error)

	// Monthly states. SaveMonthlyState upserts the (session, month, year)
	// snapshot and moves the session pointer to the saved month in the same
	// transaction. The pointer always reflects the most recently saved
	// month; no sequence validation happens here. On a replayed month
	// state.ID is rewritten to the stored row's id.
	SaveMonthlyState(ctx context.Context, state *model.MonthlyState) error
	MonthlyState(ctx context.Context, sessionID string, month, year int) (*model.MonthlyState, error)
	LatestMonthlyState(ctx context.Context, sessionID string) (*model.MonthlyState, error)
	MonthlyHistory(ctx context.Context, sessionID string) ([]model.MonthlyState, error)

	// Survival reference data
	CountySurvival(ctx context.Context, county string) ([]model.SurvivalRecord, error)
	IndustrySurvival(ctx context.Context, naicsCode string) ([]model.SurvivalRecord, error)
	SurvivalCounties(ctx context.Context) ([]string, error)
	LoadSurvivalRecords(ctx context.Context, records []model.SurvivalRecord) (int64, error)

	// Tract reference data
	TractProfile(ctx context.Context, tractKey string) (*model.TractProfile, error)
	LoadTractProfiles(ctx context.Context, rows []model.TractProfile) (int64, error)

	// Area analyses (append only)
	SaveAreaAnalysis(ctx context.Context, analysis *model.AreaAnalysis) error
	AreaAnalysisByID(ctx context.Context, id string) (*model.AreaAnalysis, error)
	RecentAreaAnalyses(ctx context.Context, limit int) ([]model.AreaAnalysis, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
