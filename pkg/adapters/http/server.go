package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/servicedesk"
	"github.com/aretw0/servicedesk/internal/logging"
	"github.com/aretw0/servicedesk/pkg/domain"
	"github.com/aretw0/servicedesk/pkg/ports"
	"github.com/aretw0/servicedesk/pkg/runner"
	"github.com/aretw0/servicedesk/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server exposes the coordinator over JSON.
//
// Stateless hosts call POST /v1/bootstrap and POST /v1/turn and keep the slots
// themselves. When a session manager is configured the /v1/sessions routes
// keep the slots server-side instead.
type Server struct {
	Coordinator ports.Coordinator
	Sessions    *session.Manager
	Streams     *StreamManager
	metrics     http.Handler
	logger      *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithSessions enables the stateful /v1/sessions routes.
func WithSessions(m *session.Manager) Option {
	return func(s *Server) {
		s.Sessions = m
	}
}

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewHandler creates the HTTP handler for coordinator.
func NewHandler(coordinator ports.Coordinator, opts ...Option) http.Handler {
	s := &Server{
		Coordinator: coordinator,
		Streams:     NewStreamManager(),
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/bootstrap", s.Bootstrap)
		r.Post("/turn", s.Turn)

		if s.Sessions != nil {
			r.Get("/sessions", s.ListSessions)
			r.Route("/sessions/{id}", func(r chi.Router) {
				r.Get("/", s.GetSession)
				r.Delete("/", s.DeleteSession)
				r.Post("/start", s.StartSession)
				r.Post("/turn", s.SessionTurn)
				r.Post("/cancel", s.CancelSession)
				r.Get("/events", s.SubscribeEvents)
			})
		}
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.DebugContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type bootstrapRequest struct {
	SessionID string `json:"session_id"`
}

type bootstrapResponse struct {
	Events []domain.Event `json:"events"`
}

type sessionTurnRequest struct {
	Form      domain.FormName  `json:"form,omitempty"`
	Candidate domain.Candidate `json:"candidate"`
}

type sessionResponse struct {
	Session *domain.Session    `json:"session"`
	Started *bool              `json:"started,omitempty"`
	Result  *domain.TurnResult `json:"result,omitempty"`
}

// Bootstrap handles POST /v1/bootstrap.
func (s *Server) Bootstrap(w http.ResponseWriter, r *http.Request) {
	var body bootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SessionID == "" {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: session_id required"))
		return
	}

	s.writeJSON(w, r, bootstrapResponse{Events: s.Coordinator.Bootstrap(r.Context(), body.SessionID)})
}

// Turn handles POST /v1/turn.
func (s *Server) Turn(w http.ResponseWriter, r *http.Request) {
	var req domain.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	candidate, err := runner.SanitizeCandidate(req.Candidate)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("invalid input: %w", err))
		return
	}
	req.Candidate = candidate

	res, err := s.Coordinator.Turn(r.Context(), req)
	if err != nil {
		s.failFor(w, r, err)
		return
	}
	s.writeJSON(w, r, res)
}

// StartSession handles POST /v1/sessions/{id}/start.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, started, err := s.Sessions.Start(r.Context(), id)
	if err != nil {
		s.failFor(w, r, err)
		return
	}
	s.writeJSON(w, r, sessionResponse{Session: sess, Started: &started})
}

// SessionTurn handles POST /v1/sessions/{id}/turn.
func (s *Server) SessionTurn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body sessionTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	candidate, err := runner.SanitizeCandidate(body.Candidate)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("invalid input: %w", err))
		return
	}

	sess, res, err := s.Sessions.Turn(r.Context(), id, body.Form, candidate)
	if err != nil {
		s.failFor(w, r, err)
		return
	}

	if data, err := json.Marshal(res); err == nil {
		s.Streams.Broadcast(id, string(data))
	}
	s.writeJSON(w, r, sessionResponse{Session: sess, Result: res})
}

// CancelSession handles POST /v1/sessions/{id}/cancel.
func (s *Server) CancelSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.failFor(w, r, err)
		return
	}
	s.writeJSON(w, r, sessionResponse{Session: sess})
}

// GetSession handles GET /v1/sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.failFor(w, r, err)
		return
	}
	s.writeJSON(w, r, sessionResponse{Session: sess})
}

// DeleteSession handles DELETE /v1/sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.failFor(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSessions handles GET /v1/sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.failFor(w, r, err)
		return
	}
	s.writeJSON(w, r, map[string][]string{"sessions": ids})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, map[string]any{
		"app":      "servicedesk-http",
		"version":  strings.TrimSpace(servicedesk.Version),
		"sessions": s.Sessions != nil,
	})
}

// SubscribeEvents handles GET /v1/sessions/{id}/events (SSE).
// Every turn result of the session is pushed as one data frame.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.fail(w, r, http.StatusInternalServerError, errors.New("streaming not supported"))
		return
	}

	sessionID := chi.URLParam(r, "id")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	s.logger.InfoContext(r.Context(), "SSE: subscribed to session", "session_id", sessionID)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: turn\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.ErrorContext(r.Context(), "response encode failed", "path", r.URL.Path, "err", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
	} else {
		s.logger.WarnContext(r.Context(), "request rejected", "path", r.URL.Path, "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func (s *Server) failFor(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		s.fail(w, r, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrUnknownForm):
		s.fail(w, r, http.StatusBadRequest, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.fail(w, r, http.StatusServiceUnavailable, err)
	default:
		s.fail(w, r, http.StatusInternalServerError, err)
	}
}
