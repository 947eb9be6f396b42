package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/entrhq/skiff/pkg/browser"
)

// errorBody is the wire shape of every failure response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if !s.runtime.Started() {
		status = "driver not running"
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]string{"status": status})
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	opts := s.cfg.DefaultSession
	if r.ContentLength != 0 {
		opts = browser.SessionOptions{}
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			respondError(w, http.StatusBadRequest, "bad_request", "invalid session options: "+err.Error())
			return
		}
	}

	session, err := s.runtime.Open(r.Context(), opts)
	if err != nil {
		s.respondRuntimeError(w, err)
		return
	}

	info, _ := s.runtime.Get(session.ID)
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"sessions": s.runtime.List()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.runtime.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondRuntimeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.runtime.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondRuntimeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var cmd browser.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid command: "+err.Error())
		return
	}
	if cmd.Kind == "" {
		respondError(w, http.StatusBadRequest, "bad_request", "command kind is required")
		return
	}

	id := chi.URLParam(r, "id")
	kind := string(cmd.Kind)

	start := time.Now()
	result, err := s.runtime.Execute(r.Context(), id, cmd)
	s.metrics.commandDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	s.metrics.commandsTotal.WithLabelValues(kind).Inc()

	if err != nil {
		s.metrics.commandErrors.WithLabelValues(kind, errorKind(err)).Inc()
		s.respondRuntimeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// respondRuntimeError maps typed runtime failures onto HTTP status codes.
func (s *Server) respondRuntimeError(w http.ResponseWriter, err error) {
	kind := errorKind(err)
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, browser.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, browser.ErrTooManySessions):
		status = http.StatusTooManyRequests
	default:
		var (
			launchErr  *browser.LaunchError
			navErr     *browser.NavigationError
			scriptErr  *browser.ScriptError
			timeoutErr *browser.TimeoutError
		)
		switch {
		case errors.As(err, &launchErr):
			status = http.StatusServiceUnavailable
		case errors.As(err, &navErr), errors.As(err, &scriptErr):
			status = http.StatusBadGateway
		case errors.As(err, &timeoutErr):
			status = http.StatusGatewayTimeout
		}
	}

	respondError(w, status, kind, err.Error())
}

// errorKind names the failure class for error bodies and metrics labels.
func errorKind(err error) string {
	var (
		launchErr  *browser.LaunchError
		navErr     *browser.NavigationError
		scriptErr  *browser.ScriptError
		timeoutErr *browser.TimeoutError
	)
	switch {
	case errors.Is(err, browser.ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, browser.ErrTooManySessions):
		return "too_many_sessions"
	case errors.As(err, &launchErr):
		return "launch_error"
	case errors.As(err, &navErr):
		return "navigation_error"
	case errors.As(err, &scriptErr):
		return "script_error"
	case errors.As(err, &timeoutErr):
		return "timeout"
	default:
		return "internal"
	}
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, kind, message string) {
	respondJSON(w, status, errorBody{Error: errorDetail{Kind: kind, Message: message}})
}
