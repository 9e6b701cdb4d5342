package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pavelanni/examprep/internal/compose"
	"github.com/pavelanni/examprep/internal/grading"
	"github.com/pavelanni/examprep/internal/i18n"
	"github.com/pavelanni/examprep/internal/question"
	"github.com/pavelanni/examprep/internal/scoring"
	"github.com/pavelanni/examprep/internal/store"
)

var errUnknownBlueprint = errors.New("unknown blueprint")

// createExamRequest names a configured blueprint or carries one inline.
type createExamRequest struct {
	Blueprint json.RawMessage `json:"blueprint"`
}

func (h *Handler) blueprint(raw json.RawMessage) (compose.Blueprint, error) {
	raw = bytes.TrimSpace(raw)
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		bp, ok := h.config.Blueprints[name]
		if !ok {
			return compose.Blueprint{}, fmt.Errorf("%w: %q", errUnknownBlueprint, name)
		}
		if bp.Name == "" {
			bp.Name = name
		}
		return bp, nil
	}
	var bp compose.Blueprint
	if err := json.Unmarshal(raw, &bp); err != nil {
		return compose.Blueprint{}, fmt.Errorf("%w: %v", compose.ErrInvalidBlueprint, err)
	}
	return bp, nil
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var req createExamRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}
	bp, err := h.blueprint(req.Blueprint)
	if err != nil {
		h.composeError(w, r, err)
		return
	}

	cat, err := h.store.Catalog(r.Context(), bp)
	if err != nil {
		slog.Error("load catalog", "blueprint", bp.Name, "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	exam, err := h.composer.Compose(bp, cat)
	if err != nil {
		h.composeError(w, r, err)
		return
	}
	if err := h.store.SaveExam(r.Context(), exam); err != nil {
		slog.Error("save exam", "exam", exam.ID, "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	slog.Info("composed exam", "exam", exam.ID, "blueprint", bp.Name, "items", len(exam.Items()))
	writeJSON(w, http.StatusCreated, exam)
}

func (h *Handler) composeError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Warn("compose exam", "error", err)
	switch {
	case errors.Is(err, errUnknownBlueprint):
		writeError(w, r, http.StatusNotFound, "ErrUnknownBlueprint")
	case errors.Is(err, compose.ErrInvalidBlueprint):
		writeError(w, r, http.StatusBadRequest, "ErrInvalidBlueprint")
	case errors.Is(err, compose.ErrEmptyPool):
		writeError(w, r, http.StatusUnprocessableEntity, "ErrEmptyPool")
	default:
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
	}
}

// loadExam resolves the examID route parameter. It writes the error reply
// itself and reports whether the exam was found.
func (h *Handler) loadExam(w http.ResponseWriter, r *http.Request) (compose.Exam, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "examID"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "ErrExamNotFound")
		return compose.Exam{}, false
	}
	exam, err := h.store.Exam(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "ErrExamNotFound")
		return compose.Exam{}, false
	}
	if err != nil {
		slog.Error("load exam", "exam", id, "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return compose.Exam{}, false
	}
	return exam, true
}

func (h *Handler) handleExam(w http.ResponseWriter, r *http.Request) {
	exam, ok := h.loadExam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, exam)
}

type submitRequest struct {
	Answers map[string]json.RawMessage `json:"answers"`
}

type submitResponse struct {
	ExamID   uuid.UUID         `json:"examId"`
	Summary  scoring.Summary   `json:"summary"`
	Results  []scoring.Result  `json:"results"`
	Failures []grading.Failure `json:"failures,omitempty"`
	Verdict  string            `json:"verdict"`
	Message  string            `json:"message"`
	Notice   string            `json:"notice,omitempty"`
}

// entries pairs every exam item with its answer and section weight.
// Missing answers stay nil and score as unanswered.
func (h *Handler) entries(exam compose.Exam, answers map[string]json.RawMessage) []grading.Entry {
	items := exam.Items()
	out := make([]grading.Entry, len(items))
	for i, it := range items {
		out[i] = grading.Entry{
			Question: it.Question,
			Answer:   question.DecodeAnswer(it.Question.Kind(), answers[it.Question.ID]),
			Context:  h.config.Scoring.For(it.Section),
		}
	}
	return out
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	exam, ok := h.loadExam(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}

	// Skip the oracle round trip for exams that are already closed.
	if _, err := h.store.Snapshot(r.Context(), exam.ID); err == nil {
		writeError(w, r, http.StatusConflict, "ErrAlreadySubmitted")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		slog.Error("load snapshot", "exam", exam.ID, "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}

	gctx, cancel := gradingContext(r.Context())
	report := h.grader.Evaluate(gctx, h.entries(exam, req.Answers))
	cancel()
	sum := scoring.Summarize(report.Results, h.config.Scoring.PassThreshold())

	// The result record is written even when the request is already done.
	sctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), persistTimeout)
	defer cancel()
	snap := store.NewSnapshot(exam, req.Answers, report, sum, h.now())
	if err := h.store.SaveSnapshot(sctx, snap); err != nil {
		if errors.Is(err, store.ErrAlreadySubmitted) {
			writeError(w, r, http.StatusConflict, "ErrAlreadySubmitted")
			return
		}
		slog.Error("save snapshot", "exam", exam.ID, "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	slog.Info("exam submitted", "exam", exam.ID, "earned", sum.Earned, "max", sum.Max, "passed", sum.Passed)

	ctx := r.Context()
	resp := submitResponse{
		ExamID:   exam.ID,
		Summary:  sum,
		Results:  report.Results,
		Failures: report.Failures,
		Verdict:  i18n.Verdict(ctx, sum.Passed),
		Message: i18n.Td(ctx, "ScoreSummary", map[string]any{
			"Earned":  formatPoints(sum.Earned),
			"Max":     formatPoints(sum.Max),
			"Percent": fmt.Sprintf("%.1f", sum.Percent),
		}),
	}
	if n := len(report.Failures); n > 0 {
		resp.Notice = i18n.Tp(ctx, "UngradedAnswers", n)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	exam, ok := h.loadExam(w, r)
	if !ok {
		return
	}
	snap, err := h.store.Snapshot(r.Context(), exam.ID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "ErrSnapshotNotFound")
		return
	}
	if err != nil {
		slog.Error("load snapshot", "exam", exam.ID, "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// persistTimeout bounds the snapshot write of a submission.
const persistTimeout = 10 * time.Second

// gradingContext ends grading ahead of the request deadline, keeping a fifth
// of the remaining time (at most five seconds) to store and return the result.
func gradingContext(ctx context.Context) (context.Context, context.CancelFunc) {
	dl, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	reserve := min(time.Until(dl)/5, 5*time.Second)
	return context.WithDeadline(ctx, dl.Add(-reserve))
}

// formatPoints drops the fraction from whole point values.
func formatPoints(v float64) string {
	return fmt.Sprintf("%g", v)
}
