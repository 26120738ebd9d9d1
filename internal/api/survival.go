package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// limitParam reads an optional positive ?limit= query value. Zero means
// the caller left it out and the service default applies.
func limitParam(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func (s *Server) handleSurvivalCounties(w http.ResponseWriter, r *http.Request) {
	counties, err := s.store.SurvivalCounties(r.Context())
	if err != nil {
		failFromError(w, err)
		return
	}
	respond(w, http.StatusOK, "", counties)
}

func (s *Server) handleCountySurvival(w http.ResponseWriter, r *http.Request) {
	county := chi.URLParam(r, "county")
	includeTotal := r.URL.Query().Get("includeTotal") == "true"

	records, err := s.survival.RankedIndustries(r.Context(), county, includeTotal)
	if err != nil {
		failFromError(w, err)
		return
	}
	respond(w, http.StatusOK, "", records)
}

func (s *Server) handleCountyRate(w http.ResponseWriter, r *http.Request) {
	industry := r.URL.Query().Get("industry")
	if industry == "" {
		fail(w, http.StatusBadRequest, "industry is required")
		return
	}

	rec, err := s.survival.RateFor(r.Context(), chi.URLParam(r, "county"), industry)
	if err != nil {
		failFromError(w, err)
		return
	}
	respond(w, http.StatusOK, "", rec)
}

func (s *Server) handleCountyStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.survival.Statistics(r.Context(), chi.URLParam(r, "county"))
	if err != nil {
		failFromError(w, err)
		return
	}
	respond(w, http.StatusOK, "", stats)
}

func (s *Server) handleCountyBest(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(r)
	if !ok {
		fail(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	recs, err := s.survival.HighestSurvival(r.Context(), chi.URLParam(r, "county"), limit)
	if err != nil {
		failFromError(w, err)
		return
	}
	respond(w, http.StatusOK, "", recs)
}

func (s *Server) handleCountyWorst(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(r)
	if !ok {
		fail(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	recs, err := s.survival.LowestSurvival(r.Context(), chi.URLParam(r, "county"), limit)
	if err != nil {
		failFromError(w, err)
		return
	}
	respond(w, http.StatusOK, "", recs)
}

func (s *Server) handleIndustrySurvival(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(r)
	if !ok {
		fail(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	records, err := s.survival.CrossCountyComparison(r.Context(), chi.URLParam(r, "naics"), limit)
	if err != nil {
		failFromError(w, err)
		return
	}
	respond(w, http.StatusOK, "", records)
}

func (s *Server) handleSurvivalOutlook(w http.ResponseWriter, r *http.Request) {
	county := r.URL.Query().Get("county")
	businessType := r.URL.Query().Get("businessType")
	if county == "" || businessType == "" {
		fail(w, http.StatusBadRequest, "county and businessType are required")
		return
	}

	outlook, err := s.survival.ByBusinessKeyword(r.Context(), county, businessType)
	if err != nil {
		failFromError(w, err)
		return
	}
	respond(w, http.StatusOK, "", outlook)
}
