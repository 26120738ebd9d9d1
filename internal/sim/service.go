// Package sim owns the business-simulation lifecycle: users, their single
// active session, and the month-by-month state history.
package sim

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bizsim/internal/model"
	"github.com/sells-group/bizsim/internal/store"
)

// ErrInvalidUsername rejects empty or whitespace-only usernames.
var ErrInvalidUsername = errors.New("sim: username must not be empty")

// ErrInvalidMonth rejects month values outside the calendar.
var ErrInvalidMonth = errors.New("sim: month must be between 1 and 12")

// defaultStartYear is the simulated calendar year new sessions begin in.
const defaultStartYear = 2024

// Store is the slice of the persistence interface the simulation needs.
type Store interface {
	CreateUser(ctx context.Context, username string) (*model.User, error)
	UserByUsername(ctx context.Context, username string) (*model.User, error)
	TouchLastLogin(ctx context.Context, userID string) error

	ReplaceSession(ctx context.Context, session *model.Session) error
	SessionByID(ctx context.Context, id string) (*model.Session, error)
	SessionByUser(ctx context.Context, userID string) (*model.Session, error)

	SaveMonthlyState(ctx context.Context, state *model.MonthlyState) error
	MonthlyState(ctx context.Context, sessionID string, month, year int) (*model.MonthlyState, error)
	LatestMonthlyState(ctx context.Context, sessionID string) (*model.MonthlyState, error)
	MonthlyHistory(ctx context.Context, sessionID string) ([]model.MonthlyState, error)
}

// Service implements user and session operations.
type Service struct {
	store     Store
	startYear int
}

// NewService creates a simulation service. startYear <= 0 selects the
// default.
func NewService(st Store, startYear int) *Service {
	if startYear <= 0 {
		startYear = defaultStartYear
	}
	return &Service{store: st, startYear: startYear}
}

// Register creates a new user. Returns store.ErrDuplicateUsername when the
// name is taken.
func (s *Service) Register(ctx context.Context, username string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrInvalidUsername
	}
	u, err := s.store.CreateUser(ctx, username)
	if err != nil {
		return nil, err
	}
	zap.L().Info("sim: user registered", zap.String("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

// LoginResult is everything a returning player needs to resume: the user,
// their session if one exists, and the most recent saved month.
type LoginResult struct {
	User        *model.User         `json:"user"`
	Session     *model.Session      `json:"session,omitempty"`
	LatestState *model.MonthlyState `json:"latest_state,omitempty"`
}

// Login looks up a user, stamps the login time, and loads their resume
// state. Session and LatestState are nil when absent; only an unknown
// username is an error.
func (s *Service) Login(ctx context.Context, username string) (*LoginResult, error) {
	u, err := s.store.UserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if err := s.store.TouchLastLogin(ctx, u.ID); err != nil {
		return nil, err
	}
	u.LastLogin = time.Now().UTC()

	result := &LoginResult{User: u}
	sess, err := s.store.SessionByUser(ctx, u.ID)
	if errors.Is(err, store.ErrNoSession) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	result.Session = sess

	latest, err := s.store.LatestMonthlyState(ctx, sess.ID)
	if err != nil && !errors.Is(err, store.ErrNoState) {
		return nil, err
	}
	result.LatestState = latest
	return result, nil
}

// NewSessionParams describes the business a player is founding.
type NewSessionParams struct {
	BusinessName  string         `json:"businessName"`
	BusinessType  string         `json:"businessType"`
	Industry      string         `json:"industry"`
	Location      model.Location `json:"location"`
	InitialBudget float64        `json:"initialBudget"`
}

// CreateSession starts a fresh simulation for the user at month 1 of the
// start year. Any existing session is replaced and its history removed.
func (s *Service) CreateSession(ctx context.Context, userID string, params NewSessionParams) (*model.Session, error) {
	if params.BusinessName == "" || params.BusinessType == "" {
		return nil, eris.New("sim: business name and type are required")
	}

	now := time.Now().UTC()
	sess := &model.Session{
		ID:            uuid.NewString(),
		UserID:        userID,
		BusinessName:  params.BusinessName,
		BusinessType:  params.BusinessType,
		Industry:      params.Industry,
		Location:      params.Location,
		InitialBudget: params.InitialBudget,
		CurrentMonth:  1,
		CurrentYear:   s.startYear,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.ReplaceSession(ctx, sess); err != nil {
		return nil, err
	}
	zap.L().Info("sim: session created",
		zap.String("session_id", sess.ID),
		zap.String("user_id", userID),
		zap.String("business_type", sess.BusinessType))
	return sess, nil
}

// Session loads a session by id.
func (s *Service) Session(ctx context.Context, id string) (*model.Session, error) {
	return s.store.SessionByID(ctx, id)
}

// PreviousState returns the snapshot of the month before the caller's
// current position, stepping to December of the prior year from January.
// A zero month defaults the position to the session pointer. Returns
// store.ErrNoState when that month was never saved.
func (s *Service) PreviousState(ctx context.Context, sessionID string, currentMonth, currentYear int) (*model.MonthlyState, error) {
	sess, err := s.store.SessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if currentMonth == 0 {
		currentMonth, currentYear = sess.CurrentMonth, sess.CurrentYear
	}
	if currentMonth < 1 || currentMonth > 12 {
		return nil, ErrInvalidMonth
	}
	month, year := currentMonth-1, currentYear
	if month < 1 {
		month, year = 12, year-1
	}
	return s.store.MonthlyState(ctx, sessionID, month, year)
}

// History returns every saved month of a session in chronological order.
func (s *Service) History(ctx context.Context, sessionID string) ([]model.MonthlyState, error) {
	if _, err := s.store.SessionByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.MonthlyHistory(ctx, sessionID)
}
