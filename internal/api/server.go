// Package api exposes the analysis and simulation services over HTTP.
// Every response uses the same envelope: {"success": bool, "message":
// string, "data": ...}.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/bizsim/internal/model"
	"github.com/sells-group/bizsim/internal/profile"
	"github.com/sells-group/bizsim/internal/resilience"
	"github.com/sells-group/bizsim/internal/sim"
	"github.com/sells-group/bizsim/internal/store"
	"github.com/sells-group/bizsim/internal/survival"
	"github.com/sells-group/bizsim/internal/trend"
	"github.com/sells-group/bizsim/pkg/acs"
	"github.com/sells-group/bizsim/pkg/censusgeo"
)

// AnalysisStore is the slice of the store the API reads directly.
type AnalysisStore interface {
	AreaAnalysisByID(ctx context.Context, id string) (*model.AreaAnalysis, error)
	RecentAreaAnalyses(ctx context.Context, limit int) ([]model.AreaAnalysis, error)
	SurvivalCounties(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

// Server wires the HTTP routes to the services.
type Server struct {
	analyzer *profile.Analyzer
	survival *survival.Service
	trends   *trend.Service
	sim      *sim.Service
	orch     *sim.Orchestrator
	store    AnalysisStore
	router   chi.Router
}

// Config collects the server's dependencies. Trends may be nil when no
// trend provider is configured.
type Config struct {
	Analyzer       *profile.Analyzer
	Survival       *survival.Service
	Trends         *trend.Service
	Sim            *sim.Service
	Orchestrator   *sim.Orchestrator
	Store          AnalysisStore
	AllowedOrigins []string
}

// NewServer builds the router.
func NewServer(cfg Config) *Server {
	s := &Server{
		analyzer: cfg.Analyzer,
		survival: cfg.Survival,
		trends:   cfg.Trends,
		sim:      cfg.Sim,
		orch:     cfg.Orchestrator,
		store:    cfg.Store,
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/launch-business", s.handleLaunchBusiness)
		r.Get("/area-overviews", s.handleAreaOverviews)
		r.Get("/area-overviews/{analysisID}", s.handleAreaOverview)

		r.Route("/survival", func(r chi.Router) {
			r.Get("/counties", s.handleSurvivalCounties)
			r.Get("/county/{county}", s.handleCountySurvival)
			r.Get("/county/{county}/rate", s.handleCountyRate)
			r.Get("/county/{county}/statistics", s.handleCountyStatistics)
			r.Get("/county/{county}/best", s.handleCountyBest)
			r.Get("/county/{county}/worst", s.handleCountyWorst)
			r.Get("/industry/{naics}", s.handleIndustrySurvival)
			r.Get("/outlook", s.handleSurvivalOutlook)
		})

		r.Get("/trends", s.handleTrends)

		r.Post("/users/register", s.handleRegister)
		r.Post("/users/login", s.handleLogin)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/{sessionID}", s.handleGetSession)
			r.Post("/{sessionID}/advance-month", s.handleAdvanceMonth)
			r.Get("/{sessionID}/previous-state", s.handlePreviousState)
			r.Get("/{sessionID}/history", s.handleHistory)
		})
	})

	s.router = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respond(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: status < 400, Message: message, Data: data}); err != nil {
		zap.L().Warn("api: write response", zap.Error(err))
	}
}

func fail(w http.ResponseWriter, status int, message string) {
	respond(w, status, message, nil)
}

// failFromError maps service errors to HTTP statuses: domain not-found
// conditions become 404, upstream blips 502, everything else 500.
func failFromError(w http.ResponseWriter, err error) {
	switch {
	case isNotFound(err):
		fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrDuplicateUsername):
		fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, sim.ErrInvalidUsername), errors.Is(err, sim.ErrInvalidMonth):
		fail(w, http.StatusBadRequest, err.Error())
	case isPersistFailure(err):
		zap.L().Error("api: analysis persistence failed", zap.Error(err))
		fail(w, http.StatusInternalServerError, "analysis could not be saved")
	case resilience.IsTransient(err):
		zap.L().Warn("api: upstream unavailable", zap.Error(err))
		fail(w, http.StatusBadGateway, "upstream data source unavailable")
	default:
		zap.L().Error("api: internal error", zap.Error(err))
		fail(w, http.StatusInternalServerError, "internal error")
	}
}

func isPersistFailure(err error) bool {
	var perr *profile.PersistenceError
	return errors.As(err, &perr)
}

func isNotFound(err error) bool {
	return errors.Is(err, censusgeo.ErrNotFound) ||
		errors.Is(err, acs.ErrNoData) ||
		errors.Is(err, survival.ErrNotFound) ||
		errors.Is(err, store.ErrUnknownUser) ||
		errors.Is(err, store.ErrNoSession) ||
		errors.Is(err, store.ErrNoState) ||
		errors.Is(err, store.ErrNoAnalysis) ||
		errors.Is(err, store.ErrTractNotFound)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			zap.L().Warn("api: health check store ping", zap.Error(err))
			respond(w, http.StatusServiceUnavailable, "store unavailable", map[string]string{"status": "degraded"})
			return
		}
	}
	respond(w, http.StatusOK, "", status)
}
