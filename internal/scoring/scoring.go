// Package scoring grades answers against canonical questions. Every variant
// except open responses is scored deterministically here; open responses are
// parked as pending and finished by the grading orchestrator.
package scoring

import (
	"math"

	"github.com/pavelanni/examprep/internal/geo"
	"github.com/pavelanni/examprep/internal/question"
)

// Detail explains how a result was reached.
type Detail string

const (
	// DetailCorrect is full credit.
	DetailCorrect Detail = "correct"
	// DetailPartial is some but not full credit.
	DetailPartial Detail = "partial"
	// DetailWrong is an answered question with no credit.
	DetailWrong Detail = "wrong"
	// DetailUnanswered is a missing, empty or mismatched answer.
	DetailUnanswered Detail = "unanswered"
	// DetailPendingGrading is an open response waiting for the oracle.
	DetailPendingGrading Detail = "pending_grading"
	// DetailGraded is an open response scored by the oracle.
	DetailGraded Detail = "graded"
	// DetailGradingUnavailable is an open response whose oracle call failed.
	DetailGradingUnavailable Detail = "grading_unavailable"
)

// Result is the score of one question.
type Result struct {
	QuestionID string           `json:"questionId"`
	Section    question.Section `json:"section,omitempty"`
	Earned     float64          `json:"earned"`
	Max        float64          `json:"max"`
	Correct    bool             `json:"correct"`
	Detail     Detail           `json:"detail"`
	Feedback   string           `json:"feedback,omitempty"`
}

// Pending reports whether the result still needs the grading oracle.
func (r Result) Pending() bool { return r.Detail == DetailPendingGrading }

// Score grades one answer. It never fails: a nil answer, or one of the wrong
// shape, scores zero.
func Score(q question.Question, a question.Answer, gc GradingContext) Result {
	r := Result{QuestionID: q.ID, Section: gc.Section, Max: gc.max(), Detail: DetailUnanswered}
	if a == nil || q.Variant == nil {
		return r
	}

	switch v := q.Variant.(type) {
	case question.SingleChoice:
		ans, ok := a.(question.SingleChoiceAnswer)
		if !ok {
			return r
		}
		if ans.Index == v.CorrectIndex {
			return r.fraction(1, 1)
		}
		return r.fraction(0, 1)

	case question.MultiChoice:
		ans, ok := a.(question.MultiChoiceAnswer)
		if !ok || len(ans.Indices) == 0 {
			return r
		}
		return r.fraction(countMulti(v.CorrectIndices, ans.Indices), len(v.CorrectIndices))

	case question.TrueFalse:
		ans, ok := a.(question.TrueFalseAnswer)
		if !ok || len(ans.Choices) == 0 {
			return r
		}
		hits := 0
		for i, st := range v.Statements {
			if chosen, ok := ans.Choices[i]; ok && chosen == st.IsTrue {
				hits++
			}
		}
		return r.fraction(hits, len(v.Statements))

	case question.Matching:
		ans, ok := a.(question.MatchingAnswer)
		if !ok || len(ans.Choices) == 0 {
			return r
		}
		hits := 0
		for i, p := range v.Pairs {
			if chosen, ok := ans.Choices[i]; ok && chosen == p.Right {
				hits++
			}
		}
		return r.fraction(hits, len(v.Pairs))

	case question.FillGap:
		ans, ok := a.(question.FillGapAnswer)
		if !ok || len(ans.Values) == 0 {
			return r
		}
		gaps := v.GappedSegments()
		hits := 0
		for _, i := range gaps {
			if got, ok := ans.Values[i]; ok && MatchText(got, v.CorrectAnswers[i]) {
				hits++
			}
		}
		return r.fraction(hits, len(gaps))

	case question.GeoMap:
		ans, ok := a.(question.GeoMapAnswer)
		if !ok || len(ans.Points) == 0 {
			return r
		}
		tol := geo.EffectiveTolerance(v.Tolerance)
		hits := 0
		// Points pair with targets by position, not by nearest target.
		for i, t := range v.Targets {
			if i < len(ans.Points) && geo.WithinTolerance(ans.Points[i], t.Point, tol) {
				hits++
			}
		}
		return r.fraction(hits, len(v.Targets))

	case question.OpenResponse:
		ans, ok := a.(question.TextAnswer)
		if !ok || isBlank(ans.Text) {
			return r
		}
		r.Detail = DetailPendingGrading
		return r
	}
	return r
}

// countMulti counts distinct chosen indices that are correct. Selections
// outside the correct set are not penalized.
func countMulti(correct, chosen []int) int {
	want := make(map[int]bool, len(correct))
	for _, i := range correct {
		want[i] = true
	}
	hits := 0
	for _, i := range chosen {
		if want[i] {
			hits++
			want[i] = false
		}
	}
	return hits
}

// fraction credits hits out of total and sets the detail accordingly.
func (r Result) fraction(hits, total int) Result {
	if total > 0 {
		r.Earned = clamp(r.Max*float64(hits)/float64(total), r.Max)
	}
	r.Correct = total > 0 && hits == total
	switch {
	case r.Correct:
		r.Earned = r.Max
		r.Detail = DetailCorrect
	case r.Earned > 0:
		r.Detail = DetailPartial
	default:
		r.Detail = DetailWrong
	}
	return r
}

// FromOracle completes a pending open-response result with the oracle's
// verdict. The score is clamped to [0, max]. When the oracle gives no
// correctness flag, the answer counts as correct if it reaches the pass
// threshold of its section.
func FromOracle(pending Result, gc GradingContext, score float64, feedback string, isCorrect *bool) Result {
	r := pending
	r.Earned = clamp(score, r.Max)
	r.Detail = DetailGraded
	r.Feedback = feedback
	if isCorrect != nil {
		r.Correct = *isCorrect
	} else {
		r.Correct = r.Max > 0 && r.Earned/r.Max*100 >= gc.PassPercent
	}
	return r
}

// Unavailable marks a pending result whose oracle call failed or timed out.
func Unavailable(pending Result) Result {
	r := pending
	r.Earned = 0
	r.Correct = false
	r.Detail = DetailGradingUnavailable
	return r
}

func clamp(v, limit float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}
