package handler

import (
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/examprep/internal/compose"
	"github.com/pavelanni/examprep/internal/i18n"
	"github.com/pavelanni/examprep/internal/normalize"
	"github.com/pavelanni/examprep/internal/question"
)

// readDocuments decodes a JSON or YAML request body into raw documents. It
// writes the error reply itself and reports whether decoding succeeded.
func readDocuments(w http.ResponseWriter, r *http.Request) ([]normalize.Document, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeError(w, r, http.StatusRequestEntityTooLarge, "ErrBadRequest")
		return nil, false
	}
	docs, err := normalize.Decode(data)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "ErrBadRequest")
		return nil, false
	}
	return docs, true
}

func (h *Handler) handleNormalize(w http.ResponseWriter, r *http.Request) {
	docs, ok := readDocuments(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, normalize.NormalizeAll(docs, r.URL.Query().Get("category")))
}

func (h *Handler) handlePools(w http.ResponseWriter, r *http.Request) {
	pools, err := h.store.Pools(r.Context())
	if err != nil {
		slog.Error("list pools", "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	type poolView struct {
		Name  string `json:"name"`
		Size  int    `json:"size"`
		Label string `json:"label"`
	}
	out := make([]poolView, len(pools))
	for i, p := range pools {
		out[i] = poolView{Name: p.Name, Size: p.Size, Label: i18n.Tp(r.Context(), "QuestionsInPool", p.Size)}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleImportQuestions(w http.ResponseWriter, r *http.Request) {
	pool := chi.URLParam(r, "pool")
	docs, ok := readDocuments(w, r)
	if !ok {
		return
	}
	category := r.URL.Query().Get("category")
	if category == "" {
		category = pool
	}
	qs := normalize.NormalizeAll(docs, category)
	if err := h.store.SaveQuestions(r.Context(), pool, qs); err != nil {
		slog.Error("save questions", "pool", pool, "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	slog.Info("imported questions", "pool", pool, "count", len(qs))
	writeJSON(w, http.StatusCreated, map[string]any{
		"pool":     pool,
		"imported": len(qs),
		"message":  i18n.Tp(r.Context(), "QuestionsInPool", len(qs)),
	})
}

func (h *Handler) handleImportLessons(w http.ResponseWriter, r *http.Request) {
	section := question.Section(chi.URLParam(r, "section"))
	if !slices.Contains(question.Sections, section) {
		writeError(w, r, http.StatusNotFound, "ErrBadRequest")
		return
	}
	docs, ok := readDocuments(w, r)
	if !ok {
		return
	}
	lessons := make([]question.Lesson, len(docs))
	for i, d := range docs {
		lessons[i] = normalize.NormalizeLesson(d, section)
	}
	if err := h.store.SaveLessons(r.Context(), lessons); err != nil {
		slog.Error("save lessons", "section", section, "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"section": section, "imported": len(lessons)})
}

func (h *Handler) handleBlueprints(w http.ResponseWriter, r *http.Request) {
	out := make([]compose.Blueprint, 0, len(h.config.Blueprints))
	for _, bp := range h.config.Blueprints {
		out = append(out, bp)
	}
	slices.SortFunc(out, func(a, b compose.Blueprint) int { return strings.Compare(a.Name, b.Name) })
	writeJSON(w, http.StatusOK, out)
}
