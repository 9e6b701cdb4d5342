package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pavelanni/examprep/internal/compose"
	"github.com/pavelanni/examprep/internal/grading"
	"github.com/pavelanni/examprep/internal/i18n"
	"github.com/pavelanni/examprep/internal/question"
	"github.com/pavelanni/examprep/internal/scoring"
	"github.com/pavelanni/examprep/internal/store"
)

func newTestHandler(t *testing.T, oracle grading.Oracle) (*Handler, *store.Store) {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	basic := []question.Question{
		{ID: "q1", Prompt: "Πρωτεύουσα της Ελλάδας;", Ordinal: 1,
			Variant: question.SingleChoice{Options: []string{"Αθήνα", "Σπάρτη"}, CorrectIndex: 0}},
		{ID: "q2", Prompt: "Μεγαλύτερο νησί;", Ordinal: 2,
			Variant: question.SingleChoice{Options: []string{"Ρόδος", "Κρήτη"}, CorrectIndex: 1}},
	}
	if err := s.SaveQuestions(ctx, "basic", basic); err != nil {
		t.Fatalf("SaveQuestions: %v", err)
	}
	essays := []question.Question{
		{ID: "essay", Prompt: "Γράψτε για την οικογένειά σας.", Variant: question.OpenResponse{}},
	}
	if err := s.SaveQuestions(ctx, "essays", essays); err != nil {
		t.Fatalf("SaveQuestions: %v", err)
	}

	h := New(s, compose.New(nil), grading.New(oracle, grading.DefaultConfig()), Config{
		Scoring: scoring.DefaultConfig(),
		Blueprints: map[string]compose.Blueprint{
			"final": {Name: "final", Section: question.SectionTheory, Parts: []compose.Part{{Pool: "basic", Count: 2}}},
			"essay": {Name: "essay", Section: question.SectionWriting, Parts: []compose.Part{{Pool: "essays", Count: 1}}},
		},
	})
	return h, s
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func createExam(t *testing.T, router http.Handler, blueprint string) compose.Exam {
	t.Helper()
	w := do(t, router, http.MethodPost, "/api/exams", `{"blueprint":"`+blueprint+`"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create exam: status %d, body %s", w.Code, w.Body.String())
	}
	return decode[compose.Exam](t, w)
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	w := do(t, h.Router(), http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	got := decode[map[string]any](t, w)
	if got["status"] != "ok" || got["questions"] != float64(3) {
		t.Errorf("unexpected body %v", got)
	}
	if langs, _ := got["languages"].([]any); len(langs) != 2 {
		t.Errorf("languages = %v, want en and el", got["languages"])
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	router := h.Router()

	w := do(t, router, http.MethodPost, "/api/normalize?category=geo",
		`[{"question":"Πού;","options":["α","β"],"answer":"β"},{"question":"Περιγράψτε","type":"open"}]`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	qs := decode[[]question.Question](t, w)
	if len(qs) != 2 {
		t.Fatalf("got %d questions", len(qs))
	}
	sc, ok := qs[0].Variant.(question.SingleChoice)
	if !ok || sc.CorrectIndex != 1 || qs[0].Category != "geo" {
		t.Errorf("unexpected first question %+v", qs[0])
	}
	if qs[1].Kind() != question.KindOpenResponse {
		t.Errorf("second kind = %s", qs[1].Kind())
	}

	if w := do(t, router, http.MethodPost, "/api/normalize", "[]"); w.Code != http.StatusBadRequest {
		t.Errorf("empty input status = %d", w.Code)
	}
}

func TestImportAndListPools(t *testing.T) {
	h, s := newTestHandler(t, nil)
	router := h.Router()

	w := do(t, router, http.MethodPost, "/api/pools/history/questions",
		"- question: Πότε έγινε η μάχη του Μαραθώνα;\n  options: [490 π.Χ., 480 π.Χ.]\n  answer: a\n")
	if w.Code != http.StatusCreated {
		t.Fatalf("import status = %d, body %s", w.Code, w.Body.String())
	}
	body := decode[map[string]any](t, w)
	if body["imported"] != float64(1) || body["message"] != "1 question" {
		t.Errorf("unexpected import body %v", body)
	}

	qs, err := s.Pool(context.Background(), "history")
	if err != nil || len(qs) != 1 {
		t.Fatalf("Pool(history) = %v, %v", qs, err)
	}
	if qs[0].Category != "history" {
		t.Errorf("category = %q, want the pool name", qs[0].Category)
	}

	w = do(t, router, http.MethodGet, "/api/pools?lang=el", "")
	pools := decode[[]struct {
		Name  string `json:"name"`
		Size  int    `json:"size"`
		Label string `json:"label"`
	}](t, w)
	if len(pools) != 3 {
		t.Fatalf("got %d pools", len(pools))
	}
	for _, p := range pools {
		if p.Name == "basic" && (p.Size != 2 || p.Label != "2 ερωτήσεις") {
			t.Errorf("unexpected basic pool %+v", p)
		}
	}
}

func TestImportLessons(t *testing.T) {
	h, s := newTestHandler(t, nil)
	router := h.Router()

	doc := `{"id":"r1","title":"Στο χωριό","text":"Ο Νίκος μένει στο χωριό.","questions":[{"question":"Πού μένει;","options":["Χωριό","Πόλη"],"answer":0}]}`
	if w := do(t, router, http.MethodPost, "/api/lessons/reading", doc); w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	ls, err := s.Lessons(context.Background(), question.SectionReading)
	if err != nil || len(ls) != 1 || len(ls[0].Questions) != 1 {
		t.Fatalf("Lessons = %+v, %v", ls, err)
	}
	if w := do(t, router, http.MethodPost, "/api/lessons/cooking", doc); w.Code != http.StatusNotFound {
		t.Errorf("unknown section status = %d", w.Code)
	}
}

func TestCreateExamErrors(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	router := h.Router()

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"unknown name", `{"blueprint":"nope"}`, http.StatusNotFound, "ErrUnknownBlueprint"},
		{"invalid inline", `{"blueprint":{"name":"x","parts":[{"pool":"basic","count":0}]}}`, http.StatusBadRequest, "ErrInvalidBlueprint"},
		{"empty pool", `{"blueprint":{"name":"x","parts":[{"pool":"missing","count":3}]}}`, http.StatusUnprocessableEntity, "ErrEmptyPool"},
		{"bad json", `{"blueprint":`, http.StatusBadRequest, "ErrBadRequest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/api/exams", tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			if got := decode[errorBody](t, w); got.Code != tt.code || got.Error == "" {
				t.Errorf("error body = %+v, want code %s", got, tt.code)
			}
		})
	}
}

func TestInlineBlueprint(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	w := do(t, h.Router(), http.MethodPost, "/api/exams",
		`{"blueprint":{"name":"quick","section":"theory","parts":[{"pool":"basic","count":1,"minOrdinal":2}]}}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	exam := decode[compose.Exam](t, w)
	if len(exam.Questions) != 1 || exam.Questions[0].ID != "q2" {
		t.Errorf("unexpected questions %+v", exam.Questions)
	}
}

func TestExamLookup(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	router := h.Router()
	exam := createExam(t, router, "final")

	w := do(t, router, http.MethodGet, "/api/exams/"+exam.ID.String(), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decode[compose.Exam](t, w); got.ID != exam.ID || len(got.Questions) != 2 {
		t.Errorf("unexpected exam %+v", got)
	}

	for _, target := range []string{"/api/exams/not-a-uuid", "/api/exams/6f1c2c36-1d33-4b6e-9d5e-8a3c1b7f0a11"} {
		w := do(t, router, http.MethodGet, target, "")
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d", target, w.Code)
		}
		if got := decode[errorBody](t, w); got.Error != "Exam not found." {
			t.Errorf("%s: error = %q", target, got.Error)
		}
	}
}

func TestSubmitObjectiveExam(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	router := h.Router()
	exam := createExam(t, router, "final")
	base := "/api/exams/" + exam.ID.String()

	w := do(t, router, http.MethodGet, base+"/snapshot?lang=el", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("snapshot before submit: status = %d", w.Code)
	}
	if got := decode[errorBody](t, w); got.Error != "Η εξέταση δεν έχει υποβληθεί ακόμη." {
		t.Errorf("localized error = %q", got.Error)
	}

	// q1 right, q2 wrong.
	w = do(t, router, http.MethodPost, base+"/submit", `{"answers":{"q1":0,"q2":0}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("submit: status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decode[submitResponse](t, w)
	if resp.Summary.Earned != 1 || resp.Summary.Max != 2 || resp.Summary.Passed {
		t.Errorf("unexpected summary %+v", resp.Summary)
	}
	if resp.Verdict != "Not passed" {
		t.Errorf("verdict = %q", resp.Verdict)
	}
	if resp.Message != "You scored 1 of 2 points (50.0%)." {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.Notice != "" || len(resp.Results) != 2 {
		t.Errorf("unexpected response %+v", resp)
	}

	w = do(t, router, http.MethodPost, base+"/submit", `{"answers":{"q1":0,"q2":1}}`)
	if w.Code != http.StatusConflict {
		t.Errorf("second submit: status = %d", w.Code)
	}

	w = do(t, router, http.MethodGet, base+"/snapshot", "")
	if w.Code != http.StatusOK {
		t.Fatalf("snapshot: status = %d", w.Code)
	}
	snap := decode[store.Snapshot](t, w)
	if snap.ExamID != exam.ID || snap.PassVerdict || snap.Earned != 1 || len(snap.Scores) != 2 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if string(snap.Answers["q2"]) != "0" {
		t.Errorf("stored answer = %s", snap.Answers["q2"])
	}
}

func TestSubmitUnansweredAndLocalized(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	router := h.Router()
	exam := createExam(t, router, "final")

	req := httptest.NewRequest(http.MethodPost, "/api/exams/"+exam.ID.String()+"/submit",
		strings.NewReader(`{"answers":{"q1":"not an index"}}`))
	req.Header.Set("Accept-Language", "el-GR,el;q=0.9")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decode[submitResponse](t, w)
	if resp.Verdict != "Αποτυχία" || resp.Summary.Earned != 0 {
		t.Errorf("unexpected response %+v", resp)
	}
	for _, r := range resp.Results {
		if r.Detail != scoring.DetailUnanswered {
			t.Errorf("%s detail = %s, want unanswered", r.QuestionID, r.Detail)
		}
	}
}

func TestSubmitOpenResponse(t *testing.T) {
	var got grading.Request
	oracle := grading.OracleFunc(func(_ context.Context, req grading.Request) (grading.Response, error) {
		got = req
		return grading.Response{Score: 15, Feedback: "Καλή δουλειά"}, nil
	})
	h, _ := newTestHandler(t, oracle)
	router := h.Router()
	exam := createExam(t, router, "essay")

	w := do(t, router, http.MethodPost, "/api/exams/"+exam.ID.String()+"/submit",
		`{"answers":{"essay":"Έχω μια μεγάλη οικογένεια."}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decode[submitResponse](t, w)
	if got.AnswerText != "Έχω μια μεγάλη οικογένεια." || got.MaxPoints != 20 {
		t.Errorf("unexpected oracle request %+v", got)
	}
	if resp.Summary.Earned != 15 || resp.Summary.Max != 20 || !resp.Summary.Passed {
		t.Errorf("unexpected summary %+v", resp.Summary)
	}
	if resp.Verdict != "Passed" || resp.Results[0].Feedback != "Καλή δουλειά" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestSubmitOracleFailure(t *testing.T) {
	oracle := grading.OracleFunc(func(context.Context, grading.Request) (grading.Response, error) {
		return grading.Response{}, errors.New("provider down")
	})
	h, _ := newTestHandler(t, oracle)
	router := h.Router()
	exam := createExam(t, router, "essay")

	w := do(t, router, http.MethodPost, "/api/exams/"+exam.ID.String()+"/submit", `{"answers":{"essay":"Κείμενο"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decode[submitResponse](t, w)
	if len(resp.Failures) != 1 || resp.Results[0].Detail != scoring.DetailGradingUnavailable {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Notice != "1 answer could not be graded automatically." {
		t.Errorf("notice = %q", resp.Notice)
	}
}

func TestSubmitRecordsResultWhenGradingOutlivesRequest(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	stuck := grading.OracleFunc(func(context.Context, grading.Request) (grading.Response, error) {
		<-release
		return grading.Response{Score: 20}, nil
	})
	h, s := newTestHandler(t, nil)
	h.grader = grading.New(stuck, grading.Config{Timeout: 60 * time.Millisecond, MaxConcurrent: 1})
	h.config.Timeout = 150 * time.Millisecond

	essays := []question.Question{
		{ID: "essay", Prompt: "Γράψτε για την οικογένειά σας.", Variant: question.OpenResponse{}},
		{ID: "essay-2", Prompt: "Περιγράψτε το σπίτι σας.", Variant: question.OpenResponse{}},
		{ID: "essay-3", Prompt: "Τι κάνετε το Σαββατοκύριακο;", Variant: question.OpenResponse{}},
	}
	if err := s.SaveQuestions(context.Background(), "essays", essays); err != nil {
		t.Fatalf("SaveQuestions: %v", err)
	}
	h.config.Blueprints["essays"] = compose.Blueprint{Name: "essays", Section: question.SectionWriting,
		Parts: []compose.Part{{Pool: "essays", Count: 3}}}

	router := h.Router()
	exam := createExam(t, router, "essays")
	w := do(t, router, http.MethodPost, "/api/exams/"+exam.ID.String()+"/submit",
		`{"answers":{"essay":"α","essay-2":"β","essay-3":"γ"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if resp := decode[submitResponse](t, w); len(resp.Failures) != 3 {
		t.Errorf("failures = %+v, want all three essays", resp.Failures)
	}

	snap, err := s.Snapshot(context.Background(), exam.ID)
	if err != nil {
		t.Fatalf("no snapshot recorded after submit: %v", err)
	}
	if len(snap.Scores) != 3 {
		t.Fatalf("snapshot has %d scores", len(snap.Scores))
	}
	for _, sc := range snap.Scores {
		if sc.Detail != scoring.DetailGradingUnavailable {
			t.Errorf("%s detail = %s", sc.QuestionID, sc.Detail)
		}
	}
}

func TestGradingContextEndsBeforeRequest(t *testing.T) {
	req, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	gctx, gcancel := gradingContext(req)
	defer gcancel()

	rdl, _ := req.Deadline()
	gdl, ok := gctx.Deadline()
	if !ok || !gdl.Before(rdl) {
		t.Fatalf("grading deadline %v, request deadline %v", gdl, rdl)
	}
	if left := rdl.Sub(gdl); left < 10*time.Second || left > 13*time.Second {
		t.Errorf("reserve = %v, want about a fifth of a minute", left)
	}

	gctx, gcancel = gradingContext(context.Background())
	defer gcancel()
	if _, ok := gctx.Deadline(); ok {
		t.Error("no request deadline should add none")
	}
}

func TestBlueprintsListed(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	w := do(t, h.Router(), http.MethodGet, "/api/blueprints", "")
	got := decode[[]compose.Blueprint](t, w)
	if len(got) != 2 || got[0].Name != "essay" || got[1].Name != "final" {
		t.Errorf("unexpected blueprints %+v", got)
	}
}
