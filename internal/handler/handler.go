package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pavelanni/examprep/internal/compose"
	"github.com/pavelanni/examprep/internal/grading"
	"github.com/pavelanni/examprep/internal/i18n"
	"github.com/pavelanni/examprep/internal/scoring"
	"github.com/pavelanni/examprep/internal/store"
)

// maxBody caps request bodies.
const maxBody = 10 << 20

// Config holds the exam settings the handlers apply.
type Config struct {
	Scoring    scoring.Config
	Blueprints map[string]compose.Blueprint
	// Lang is the fallback language for localized messages.
	Lang string
	// Timeout bounds each request, including oracle grading on submit.
	Timeout time.Duration
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	composer *compose.Composer
	grader   *grading.Orchestrator
	config   Config
	now      func() time.Time
}

// New creates a new Handler.
func New(s *store.Store, c *compose.Composer, g *grading.Orchestrator, cfg Config) *Handler {
	if cfg.Lang == "" {
		cfg.Lang = "en"
	}
	return &Handler{store: s, composer: c, grader: g, config: cfg, now: time.Now}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/normalize", h.handleNormalize)
		r.Get("/pools", h.handlePools)
		r.Post("/pools/{pool}/questions", h.handleImportQuestions)
		r.Post("/lessons/{section}", h.handleImportLessons)
		r.Get("/blueprints", h.handleBlueprints)
		r.Post("/exams", h.handleCreateExam)
		r.Get("/exams/{examID}", h.handleExam)
		r.Post("/exams/{examID}/submit", h.handleSubmit)
		r.Get("/exams/{examID}/snapshot", h.handleSnapshot)
	})
}

// Router wraps the routes in request logging, panic recovery, a request
// timeout and the per-request localizer.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if h.config.Timeout > 0 {
		r.Use(middleware.Timeout(h.config.Timeout))
	}
	r.Use(i18n.Middleware(h.config.Lang))
	h.Routes(r)
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.QuestionCount(r.Context())
	if err != nil {
		slog.Error("health check", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "questions": n, "languages": i18n.Languages()})
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError replies with the localized message msgID.
func writeError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	writeJSON(w, status, errorBody{Error: i18n.T(r.Context(), msgID), Code: msgID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
