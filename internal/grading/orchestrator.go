package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/pavelanni/examprep/internal/question"
	"github.com/pavelanni/examprep/internal/scoring"
)

var (
	// ErrTimeout is recorded when an oracle call exceeds its time budget.
	ErrTimeout = errors.New("grading timed out")
	// ErrNoOracle is recorded for open responses when no oracle is configured.
	ErrNoOracle = errors.New("no grading oracle configured")
)

// Config bounds oracle calls.
type Config struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
}

// DefaultConfig returns a 60 second per-call budget and four parallel calls.
func DefaultConfig() Config {
	return Config{Timeout: 60 * time.Second, MaxConcurrent: 4}
}

// Entry is one question of a submission with its answer and weight.
type Entry struct {
	Question question.Question
	Answer   question.Answer
	Context  scoring.GradingContext
}

// Failure records an open response the oracle could not grade.
type Failure struct {
	QuestionID string `json:"questionId"`
	Reason     string `json:"reason"`
}

// Report is the graded submission. Results are in entry order.
type Report struct {
	Results  []scoring.Result `json:"results"`
	Failures []Failure        `json:"failures,omitempty"`
}

// Orchestrator scores submissions and grades their open responses.
// MaxConcurrent bounds the oracle calls actually running across all
// submissions, including calls that already timed out and whose results
// will be dropped.
type Orchestrator struct {
	oracle Oracle
	cfg    Config
	slots  chan struct{}
}

// New creates an orchestrator. A nil oracle is allowed; open responses then
// degrade to grading_unavailable.
func New(oracle Oracle, cfg Config) *Orchestrator {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	return &Orchestrator{oracle: oracle, cfg: cfg, slots: make(chan struct{}, cfg.MaxConcurrent)}
}

type outcome struct {
	resp Response
	err  error
}

// Evaluate scores every entry, dispatches all open responses to the oracle
// concurrently and waits for every call to finish or time out. It never
// returns an error.
func (o *Orchestrator) Evaluate(ctx context.Context, entries []Entry) Report {
	results := make([]scoring.Result, len(entries))
	var pending []int
	for i, e := range entries {
		results[i] = scoring.Score(e.Question, e.Answer, e.Context)
		if results[i].Pending() {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return Report{Results: results}
	}

	// Each task writes only its own slot.
	outcomes := make([]outcome, len(entries))
	p := pool.New().WithMaxGoroutines(o.cfg.MaxConcurrent)
	for _, i := range pending {
		req := requestFor(entries[i], results[i])
		p.Go(func() {
			outcomes[i] = o.call(ctx, req)
		})
	}
	p.Wait()

	var report Report
	for _, i := range pending {
		out := outcomes[i]
		if out.err != nil {
			results[i] = scoring.Unavailable(results[i])
			report.Failures = append(report.Failures, Failure{QuestionID: results[i].QuestionID, Reason: out.err.Error()})
			slog.Warn("grading unavailable", "question_id", results[i].QuestionID, "section", results[i].Section, "error", out.err)
			continue
		}
		results[i] = scoring.FromOracle(results[i], entries[i].Context, out.resp.Score, out.resp.Feedback, out.resp.IsCorrect)
	}
	report.Results = results
	slog.Info("submission graded", "entries", len(entries), "open", len(pending), "failures", len(report.Failures))
	return report
}

// call runs one oracle request under the per-call timeout. A call that
// outlives the timeout keeps its slot until the oracle returns; its late
// result is dropped. Waiting for a free slot counts against the timeout.
func (o *Orchestrator) call(ctx context.Context, req Request) outcome {
	if o.oracle == nil {
		return outcome{err: ErrNoOracle}
	}
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		select {
		case o.slots <- struct{}{}:
		case <-ctx.Done():
			done <- outcome{err: ctx.Err()}
			return
		}
		defer func() { <-o.slots }()
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("oracle panic: %v", r)}
			}
		}()
		resp, err := o.oracle.Grade(ctx, req)
		done <- outcome{resp: resp, err: err}
	}()

	select {
	case out := <-done:
		return out
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return outcome{err: ErrTimeout}
		}
		return outcome{err: ctx.Err()}
	}
}

func requestFor(e Entry, r scoring.Result) Request {
	req := Request{Prompt: e.Question.Prompt, MaxPoints: r.Max, Section: r.Section}
	if a, ok := e.Answer.(question.TextAnswer); ok {
		req.AnswerText = a.Text
	}
	if or, ok := e.Question.Variant.(question.OpenResponse); ok {
		req.ReferenceAnswer = or.ModelAnswer
	}
	return req
}
