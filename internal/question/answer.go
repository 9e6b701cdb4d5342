package question

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/pavelanni/examprep/internal/geo"
)

// Answer is a user response shaped like its question's variant. A nil Answer
// means the question was left unanswered.
type Answer interface {
	AnswerKind() Kind
}

// SingleChoiceAnswer is the chosen option index.
type SingleChoiceAnswer struct{ Index int }

// MultiChoiceAnswer is the set of chosen option indices.
type MultiChoiceAnswer struct{ Indices []int }

// TrueFalseAnswer maps statement index to the chosen truth value.
type TrueFalseAnswer struct{ Choices map[int]bool }

// MatchingAnswer maps pair index to the chosen right-hand value.
type MatchingAnswer struct{ Choices map[int]string }

// FillGapAnswer maps segment index to the typed or picked text.
type FillGapAnswer struct{ Values map[int]string }

// GeoMapAnswer is the list of placed points in placement order.
type GeoMapAnswer struct{ Points []geo.Point }

// TextAnswer is free text: essay, transcript or short answer.
type TextAnswer struct{ Text string }

func (SingleChoiceAnswer) AnswerKind() Kind { return KindSingleChoice }
func (MultiChoiceAnswer) AnswerKind() Kind  { return KindMultiChoice }
func (TrueFalseAnswer) AnswerKind() Kind    { return KindTrueFalse }
func (MatchingAnswer) AnswerKind() Kind     { return KindMatching }
func (FillGapAnswer) AnswerKind() Kind      { return KindFillGap }
func (GeoMapAnswer) AnswerKind() Kind       { return KindGeoMap }
func (TextAnswer) AnswerKind() Kind         { return KindOpenResponse }

func (a SingleChoiceAnswer) MarshalJSON() ([]byte, error) { return json.Marshal(a.Index) }
func (a MultiChoiceAnswer) MarshalJSON() ([]byte, error) {
	if a.Indices == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a.Indices)
}
func (a TrueFalseAnswer) MarshalJSON() ([]byte, error) { return json.Marshal(a.Choices) }
func (a MatchingAnswer) MarshalJSON() ([]byte, error)  { return json.Marshal(a.Choices) }
func (a FillGapAnswer) MarshalJSON() ([]byte, error)   { return json.Marshal(a.Values) }
func (a GeoMapAnswer) MarshalJSON() ([]byte, error) {
	if a.Points == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a.Points)
}
func (a TextAnswer) MarshalJSON() ([]byte, error) { return json.Marshal(a.Text) }

// DecodeAnswer decodes a variant-shaped JSON answer for a question of the
// given kind. It returns nil when raw is empty, null or not decodable, which
// the scorer treats as unanswered.
func DecodeAnswer(kind Kind, raw json.RawMessage) Answer {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	switch kind {
	case KindSingleChoice:
		if idx, ok := decodeIndex(raw); ok {
			return SingleChoiceAnswer{Index: idx}
		}
	case KindMultiChoice:
		var idx []int
		if err := json.Unmarshal(raw, &idx); err == nil {
			return MultiChoiceAnswer{Indices: idx}
		}
	case KindTrueFalse:
		var m map[int]bool
		if err := json.Unmarshal(raw, &m); err == nil {
			return TrueFalseAnswer{Choices: m}
		}
		var list []bool
		if err := json.Unmarshal(raw, &list); err == nil {
			m = make(map[int]bool, len(list))
			for i, b := range list {
				m[i] = b
			}
			return TrueFalseAnswer{Choices: m}
		}
	case KindMatching:
		if m, ok := decodeStringMap(raw); ok {
			return MatchingAnswer{Choices: m}
		}
	case KindFillGap:
		if m, ok := decodeStringMap(raw); ok {
			return FillGapAnswer{Values: m}
		}
	case KindGeoMap:
		var pts []geo.Point
		if err := json.Unmarshal(raw, &pts); err == nil {
			return GeoMapAnswer{Points: pts}
		}
	case KindOpenResponse:
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return TextAnswer{Text: s}
		}
	}
	return nil
}

func decodeIndex(raw json.RawMessage) (int, bool) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
	}
	return 0, false
}

// decodeStringMap accepts either an index-keyed object or a positional array.
func decodeStringMap(raw json.RawMessage) (map[int]string, bool) {
	var m map[int]string
	if err := json.Unmarshal(raw, &m); err == nil {
		return m, true
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		m = make(map[int]string, len(list))
		for i, s := range list {
			m[i] = s
		}
		return m, true
	}
	return nil, false
}
