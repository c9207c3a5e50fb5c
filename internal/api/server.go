// Package api exposes the coaching pipeline over HTTP. The NATS
// handlers do the real-time work; these endpoints exist for dashboards
// and manual triggers.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/verbalize-ai/coachd/internal/coach"
	"github.com/verbalize-ai/coachd/internal/events"
	"github.com/verbalize-ai/coachd/internal/manager"
	"github.com/verbalize-ai/coachd/internal/memory"
	"github.com/verbalize-ai/coachd/internal/processor"
	"github.com/verbalize-ai/coachd/internal/store"
)

// Deps carries everything the handlers call into.
type Deps struct {
	Store     *store.Store
	Processor *processor.Processor
	Analyzer  *manager.Analyzer
	Briefs    *manager.BriefBuilder
	Briefings *coach.BriefingBuilder
	Digests   *coach.DigestBuilder
	Contexts  *memory.ContextBuilder
}

type Server struct {
	router *chi.Mux
	port   int
	deps   Deps
	logger *slog.Logger
}

func NewServer(port int, apiToken string, deps Deps, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		deps:   deps,
		logger: logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/coachd/status", s.status)

	router.Route("/api/v1", func(r chi.Router) {
		if apiToken == "" {
			logger.Warn("COACHD_API_TOKEN not set, API endpoints are unauthenticated")
		} else {
			r.Use(BearerAuthMiddleware(apiToken))
		}

		r.Post("/attempts/{attemptID}/score", s.scoreAttempt)
		r.Get("/orgs/{orgID}/analysis", s.teamAnalysis)
		r.Get("/orgs/{orgID}/insights", s.teamInsights)
		r.Get("/orgs/{orgID}/trainees/{userID}/brief", s.coachingBrief)
		r.Get("/orgs/{orgID}/trainees/{userID}/briefing", s.preCallBriefing)
		r.Get("/orgs/{orgID}/trainees/{userID}/digest", s.dailyDigest)
		r.Get("/orgs/{orgID}/trainees/{userID}/context", s.agentContext)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// BearerAuthMiddleware rejects requests without the configured token.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"agent":  "coachd",
		"status": "active",
	})
}

// scoreAttempt re-runs the scoring pipeline for one attempt. Useful
// when an event was lost or a rubric changed.
func (s *Server) scoreAttempt(w http.ResponseWriter, r *http.Request) {
	attemptID, err := uuid.Parse(chi.URLParam(r, "attemptID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid attempt id")
		return
	}

	attempt, err := s.deps.Store.GetAttempt(r.Context(), attemptID)
	if err != nil {
		writeError(w, http.StatusNotFound, "attempt not found")
		return
	}

	evt := events.AttemptCompleted{
		AttemptID: attempt.ID,
		OrgID:     attempt.OrgID,
		UserID:    attempt.UserID,
	}
	if err := s.deps.Processor.ScoreAttempt(r.Context(), evt); err != nil {
		s.logger.Error("manual scoring failed", "attempt_id", attemptID, "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"attempt_id": attemptID, "scored": true})
}

func (s *Server) teamAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.deps.Analyzer.Analyze(r.Context(), chi.URLParam(r, "orgID"))
	if err != nil {
		s.serverError(w, "team analysis failed", err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) teamInsights(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.deps.Analyzer.Analyze(r.Context(), chi.URLParam(r, "orgID"))
	if err != nil {
		s.serverError(w, "team analysis failed", err)
		return
	}
	insights := manager.GenerateInsights(analysis)
	writeJSON(w, http.StatusOK, map[string]any{
		"org_id":   analysis.OrgID,
		"insights": insights,
		"count":    len(insights),
	})
}

func (s *Server) coachingBrief(w http.ResponseWriter, r *http.Request) {
	brief, err := s.deps.Briefs.Build(r.Context(), chi.URLParam(r, "orgID"), chi.URLParam(r, "userID"))
	if err != nil {
		s.serverError(w, "coaching brief failed", err)
		return
	}
	writeJSON(w, http.StatusOK, brief)
}

func (s *Server) preCallBriefing(w http.ResponseWriter, r *http.Request) {
	scenarioID, err := uuid.Parse(r.URL.Query().Get("scenario_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "scenario_id query parameter required")
		return
	}

	briefing, err := s.deps.Briefings.Build(r.Context(), chi.URLParam(r, "orgID"), chi.URLParam(r, "userID"), scenarioID)
	if err != nil {
		s.serverError(w, "pre-call briefing failed", err)
		return
	}
	writeJSON(w, http.StatusOK, briefing)
}

func (s *Server) dailyDigest(w http.ResponseWriter, r *http.Request) {
	digest, err := s.deps.Digests.Build(r.Context(), chi.URLParam(r, "orgID"), chi.URLParam(r, "userID"))
	if err != nil {
		s.serverError(w, "digest failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"digest":  digest,
		"message": coach.FormatDigestMessage(digest),
	})
}

func (s *Server) agentContext(w http.ResponseWriter, r *http.Request) {
	memCtx, err := s.deps.Contexts.Build(r.Context(), chi.URLParam(r, "orgID"), chi.URLParam(r, "userID"))
	if err != nil {
		s.serverError(w, "context build failed", err)
		return
	}
	writeJSON(w, http.StatusOK, memCtx)
}

func (s *Server) serverError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
