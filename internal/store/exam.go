package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/examprep/internal/compose"
	"github.com/pavelanni/examprep/internal/grading"
	"github.com/pavelanni/examprep/internal/question"
	"github.com/pavelanni/examprep/internal/scoring"
)

// ErrAlreadySubmitted is returned when an exam already has a snapshot.
var ErrAlreadySubmitted = errors.New("exam already submitted")

// Snapshot is the review record of one submitted exam. Answers are kept in
// their variant-shaped wire form, keyed by question id.
type Snapshot struct {
	ExamID      uuid.UUID                  `json:"examId"`
	Blueprint   string                     `json:"blueprint"`
	Questions   []question.Question        `json:"questions"`
	Answers     map[string]json.RawMessage `json:"answers"`
	Scores      []scoring.Result           `json:"scores"`
	Sections    []scoring.SectionTotals    `json:"sections,omitempty"`
	PassVerdict bool                       `json:"passVerdict"`
	Earned      float64                    `json:"earned"`
	Max         float64                    `json:"max"`
	Percent     float64                    `json:"percent"`
	Failures    []grading.Failure          `json:"failures,omitempty"`
	SubmittedAt time.Time                  `json:"submittedAt"`
}

// NewSnapshot assembles the review record of exam from its graded report.
func NewSnapshot(exam compose.Exam, answers map[string]json.RawMessage, report grading.Report, sum scoring.Summary, at time.Time) Snapshot {
	items := exam.Items()
	qs := make([]question.Question, len(items))
	for i, it := range items {
		qs[i] = it.Question
	}
	return Snapshot{
		ExamID:      exam.ID,
		Blueprint:   exam.Blueprint,
		Questions:   qs,
		Answers:     answers,
		Scores:      report.Results,
		Sections:    sum.Sections,
		PassVerdict: sum.Passed,
		Earned:      sum.Earned,
		Max:         sum.Max,
		Percent:     sum.Percent,
		Failures:    report.Failures,
		SubmittedAt: at.UTC(),
	}
}

// SaveExam stores a composed exam.
func (s *Store) SaveExam(ctx context.Context, exam compose.Exam) error {
	body, err := json.Marshal(exam)
	if err != nil {
		return fmt.Errorf("encode exam: %w", err)
	}
	return s.exec(ctx, s.db,
		`INSERT INTO exams (id, blueprint, section, created_at, body) VALUES (?, ?, ?, ?, ?)`,
		exam.ID.String(), exam.Blueprint, string(exam.Section), exam.CreatedAt, string(body),
	)
}

// Exam returns a composed exam by id.
func (s *Store) Exam(ctx context.Context, id uuid.UUID) (compose.Exam, error) {
	var body string
	err := s.queryRow(ctx, `SELECT body FROM exams WHERE id = ?`, id.String()).Scan(&body)
	if err != nil {
		return compose.Exam{}, notFound(err, "exam "+id.String())
	}
	var exam compose.Exam
	if err := json.Unmarshal([]byte(body), &exam); err != nil {
		return compose.Exam{}, fmt.Errorf("decode exam %s: %w", id, err)
	}
	return exam, nil
}

// ExamCount returns the number of composed exams.
func (s *Store) ExamCount(ctx context.Context) (int, error) {
	var count int
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM exams`).Scan(&count)
	return count, err
}

// SaveSnapshot stores the review record of a submission. An exam can be
// submitted once.
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	res, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO exam_snapshots (exam_id, passed, earned, max_points, percent, submitted_at, body)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (exam_id) DO NOTHING`),
		snap.ExamID.String(), snap.PassVerdict, snap.Earned, snap.Max, snap.Percent, snap.SubmittedAt, string(body),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("exam %s: %w", snap.ExamID, ErrAlreadySubmitted)
	}
	return nil
}

// Snapshot returns the review record of a submitted exam.
func (s *Store) Snapshot(ctx context.Context, examID uuid.UUID) (Snapshot, error) {
	var body string
	err := s.queryRow(ctx, `SELECT body FROM exam_snapshots WHERE exam_id = ?`, examID.String()).Scan(&body)
	if err != nil {
		return Snapshot{}, notFound(err, "snapshot "+examID.String())
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(body), &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot %s: %w", examID, err)
	}
	return snap, nil
}

// Snapshots returns every review record, oldest submission first.
func (s *Store) Snapshots(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.query(ctx, `SELECT body FROM exam_snapshots ORDER BY submitted_at, exam_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var snaps []Snapshot
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var snap Snapshot
		if err := json.Unmarshal([]byte(body), &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}
