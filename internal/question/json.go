package question

import (
	"encoding/json"
	"fmt"
)

// wireQuestion is the flat canonical exchange shape. Every field name here is
// also understood by the normalizer, which keeps re-normalization a no-op.
type wireQuestion struct {
	ID       string `json:"id"`
	Type     Kind   `json:"type"`
	Prompt   string `json:"prompt"`
	Media    string `json:"media,omitempty"`
	Category string `json:"category,omitempty"`
	Ordinal  int    `json:"ordinal,omitempty"`

	Options        []string         `json:"options,omitempty"`
	CorrectIndex   *int             `json:"correctIndex,omitempty"`
	CorrectIndices []int            `json:"correctIndices,omitempty"`
	Statements     []Statement      `json:"statements,omitempty"`
	Pairs          []Pair           `json:"pairs,omitempty"`
	Segments       []string         `json:"segments,omitempty"`
	WordBank       []string         `json:"wordBank,omitempty"`
	InlineChoices  map[int][]string `json:"inlineChoices,omitempty"`
	CorrectAnswers map[int]string   `json:"correctAnswers,omitempty"`
	Targets        []Target         `json:"targets,omitempty"`
	Tolerance      float64          `json:"tolerance,omitempty"`
	ModelAnswer    string           `json:"modelAnswer,omitempty"`
}

// MarshalJSON encodes q in the canonical exchange format.
func (q Question) MarshalJSON() ([]byte, error) {
	w := wireQuestion{
		ID:       q.ID,
		Type:     q.Kind(),
		Prompt:   q.Prompt,
		Media:    q.Media,
		Category: q.Category,
		Ordinal:  q.Ordinal,
	}
	switch v := q.Variant.(type) {
	case SingleChoice:
		idx := v.CorrectIndex
		w.Options = v.Options
		w.CorrectIndex = &idx
	case MultiChoice:
		w.Options = v.Options
		w.CorrectIndices = v.CorrectIndices
	case TrueFalse:
		w.Statements = v.Statements
	case Matching:
		w.Pairs = v.Pairs
	case FillGap:
		w.Segments = v.Segments
		w.WordBank = v.WordBank
		w.InlineChoices = v.InlineChoices
		w.CorrectAnswers = v.CorrectAnswers
	case GeoMap:
		w.Targets = v.Targets
		w.Tolerance = v.Tolerance
	case OpenResponse:
		w.ModelAnswer = v.ModelAnswer
	case nil:
		return nil, fmt.Errorf("question %q has no variant", q.ID)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the canonical exchange format strictly. Legacy or
// loosely shaped documents go through the normalizer instead.
func (q *Question) UnmarshalJSON(data []byte) error {
	var w wireQuestion
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := Question{
		ID:       w.ID,
		Prompt:   w.Prompt,
		Media:    w.Media,
		Category: w.Category,
		Ordinal:  w.Ordinal,
	}
	switch w.Type {
	case KindSingleChoice:
		sc := SingleChoice{Options: w.Options}
		if w.CorrectIndex != nil {
			sc.CorrectIndex = *w.CorrectIndex
		}
		out.Variant = sc
	case KindMultiChoice:
		out.Variant = MultiChoice{Options: w.Options, CorrectIndices: w.CorrectIndices}
	case KindTrueFalse:
		out.Variant = TrueFalse{Statements: w.Statements}
	case KindMatching:
		out.Variant = Matching{Pairs: w.Pairs}
	case KindFillGap:
		out.Variant = FillGap{
			Segments:       w.Segments,
			WordBank:       w.WordBank,
			InlineChoices:  w.InlineChoices,
			CorrectAnswers: w.CorrectAnswers,
		}
	case KindGeoMap:
		out.Variant = GeoMap{Targets: w.Targets, Tolerance: w.Tolerance}
	case KindOpenResponse:
		out.Variant = OpenResponse{ModelAnswer: w.ModelAnswer}
	default:
		return fmt.Errorf("unknown question type %q", w.Type)
	}
	*q = out
	return nil
}
