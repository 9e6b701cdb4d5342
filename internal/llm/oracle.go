package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pavelanni/examprep/internal/grading"
	"github.com/pavelanni/examprep/internal/llm/prompts"
)

// gradeSchema is the structured reply every provider is asked for.
var gradeSchema = &Schema{
	Name:        "open-response-grade",
	Description: "Score and feedback for one open exam response",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score":      map[string]any{"type": "number"},
			"feedback":   map[string]any{"type": "string"},
			"is_correct": map[string]any{"type": "boolean"},
		},
		"required":             []any{"score", "feedback", "is_correct"},
		"additionalProperties": false,
	},
}

type gradeReply struct {
	Score     float64 `json:"score"`
	Feedback  string  `json:"feedback"`
	IsCorrect bool    `json:"is_correct"`
}

// Oracle grades open responses with a language model.
type Oracle struct {
	provider    Provider
	prompts     *prompts.Set
	variant     prompts.Variant
	maxTokens   int
	temperature float64
}

var _ grading.Oracle = (*Oracle)(nil)

// NewOracle builds an Oracle over provider with the grading prompt variant
// and sampling settings from cfg.
func NewOracle(provider Provider, cfg Config) (*Oracle, error) {
	set, err := prompts.Default()
	if err != nil {
		return nil, err
	}
	variant := prompts.Variant(cfg.Prompt)
	if variant == "" {
		variant = prompts.Standard
	}
	if !prompts.IsValidVariant(string(variant)) {
		return nil, fmt.Errorf("invalid grading prompt variant %q", cfg.Prompt)
	}
	return &Oracle{
		provider:    provider,
		prompts:     set,
		variant:     variant,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Grade implements grading.Oracle.
func (o *Oracle) Grade(ctx context.Context, req grading.Request) (grading.Response, error) {
	system, err := o.prompts.BuildGradePrompt(o.variant, prompts.GradeData{
		Section:         string(req.Section),
		Prompt:          req.Prompt,
		ReferenceAnswer: req.ReferenceAnswer,
		Answer:          req.AnswerText,
		MaxPoints:       req.MaxPoints,
	})
	if err != nil {
		return grading.Response{}, err
	}

	resp, err := o.provider.Generate(WithPurpose(ctx, "grade"), Request{
		System:      system,
		Messages:    []Message{{Role: RoleUser, Content: "Grade the answer and reply with the JSON object."}},
		Schema:      gradeSchema,
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
	})
	if err != nil {
		return grading.Response{}, err
	}

	var reply gradeReply
	if err := json.Unmarshal(resp.Content, &reply); err != nil {
		return grading.Response{}, &ErrInvalidResponse{Content: resp.Content, Err: err}
	}
	isCorrect := reply.IsCorrect
	return grading.Response{Score: reply.Score, Feedback: reply.Feedback, IsCorrect: &isCorrect}, nil
}
