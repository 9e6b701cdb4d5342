// Package grading merges deterministic scores with an external grading
// oracle for open responses. One failing or slow oracle call degrades only its
// own item; a submission always produces a complete report.
package grading

import (
	"context"

	"github.com/pavelanni/examprep/internal/question"
)

// Request is one open response sent to the oracle.
type Request struct {
	Prompt          string           `json:"prompt"`
	AnswerText      string           `json:"answerText"`
	ReferenceAnswer string           `json:"referenceAnswer,omitempty"`
	MaxPoints       float64          `json:"maxPoints"`
	Section         question.Section `json:"section,omitempty"`
}

// Response is the oracle's verdict. Score is on the request's MaxPoints scale
// and is clamped by the caller.
type Response struct {
	Score     float64 `json:"score"`
	Feedback  string  `json:"feedback"`
	IsCorrect *bool   `json:"isCorrect,omitempty"`
}

// Oracle grades free text. Implementations may be slow or fail.
type Oracle interface {
	Grade(ctx context.Context, req Request) (Response, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, req Request) (Response, error)

// Grade calls f.
func (f OracleFunc) Grade(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
