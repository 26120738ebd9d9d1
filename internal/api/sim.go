package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/bizsim/internal/sim"
)

type usernameRequest struct {
	Username string `json:"username"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req usernameRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := s.sim.Register(r.Context(), req.Username)
	if err != nil {
		failFromError(w, err)
		return
	}
	respond(w, http.StatusCreated, "user registered", user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req usernameRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.sim.Login(r.Context(), req.Username)
	if err != nil {
		failFromError(w, err)
		return
	}
	respond(w, http.StatusOK, "", result)
}

type createSessionRequest struct {
	UserID string `json:"userId"`
	sim.NewSessionParams
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		fail(w, http.StatusBadRequest, "userId is required")
		return
	}
	if req.BusinessName == "" || req.BusinessType == "" {
		fail(w, http.StatusBadRequest, "businessName and businessType are required")
		return
	}

	sess, err := s.sim.CreateSession(r.Context(), req.UserID, req.NewSessionParams)
	if err != nil {
		failFromError(w, err)
		return
	}
	respond(w, http.StatusCreated, "session created", sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sim.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		failFromError(w, err)
		return
	}
	respond(w, http.StatusOK, "", sess)
}

func (s *Server) handleAdvanceMonth(w http.ResponseWriter, r *http.Request) {
	var in sim.AdvanceInput
	if !decodeBody(w, r, &in) {
		return
	}

	result, err := s.orch.AdvanceMonth(r.Context(), chi.URLParam(r, "sessionID"), in)
	if err != nil {
		failFromError(w, err)
		return
	}
	respond(w, http.StatusOK, "month advanced", result)
}

// handlePreviousState steps back one month from ?month=&year=; without
// them the session pointer is the starting position.
func (s *Server) handlePreviousState(w http.ResponseWriter, r *http.Request) {
	var month, year int
	if raw := r.URL.Query().Get("month"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			fail(w, http.StatusBadRequest, "month must be an integer")
			return
		}
		month = n
		if raw := r.URL.Query().Get("year"); raw != "" {
			if year, err = strconv.Atoi(raw); err != nil {
				fail(w, http.StatusBadRequest, "year must be an integer")
				return
			}
		}
	}

	state, err := s.sim.PreviousState(r.Context(), chi.URLParam(r, "sessionID"), month, year)
	if err != nil {
		failFromError(w, err)
		return
	}
	respond(w, http.StatusOK, "", state)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	states, err := s.sim.History(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		failFromError(w, err)
		return
	}
	respond(w, http.StatusOK, "", states)
}
