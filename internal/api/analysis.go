package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type launchBusinessRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (s *Server) handleLaunchBusiness(w http.ResponseWriter, r *http.Request) {
	var req launchBusinessRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		fail(w, http.StatusBadRequest, "coordinates out of range")
		return
	}

	analysis, err := s.analyzer.Analyze(r.Context(), req.Latitude, req.Longitude)
	if err != nil {
		failFromError(w, err)
		return
	}
	respond(w, http.StatusOK, "", analysis)
}

func (s *Server) handleAreaOverviews(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fail(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	analyses, err := s.store.RecentAreaAnalyses(r.Context(), limit)
	if err != nil {
		failFromError(w, err)
		return
	}
	respond(w, http.StatusOK, "", analyses)
}

func (s *Server) handleAreaOverview(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.store.AreaAnalysisByID(r.Context(), chi.URLParam(r, "analysisID"))
	if err != nil {
		failFromError(w, err)
		return
	}
	respond(w, http.StatusOK, "", analysis)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	businessType := r.URL.Query().Get("businessType")
	if businessType == "" {
		fail(w, http.StatusBadRequest, "businessType is required")
		return
	}
	if s.trends == nil {
		fail(w, http.StatusServiceUnavailable, "trend provider not configured")
		return
	}
	location := r.URL.Query().Get("location")

	// Fetch never fails hard; provider outages come back as a summary
	// with Success=false.
	summary := s.trends.Fetch(r.Context(), businessType, location)
	respond(w, http.StatusOK, "", summary)
}
