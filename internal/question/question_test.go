package question

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/pavelanni/examprep/internal/geo"
)

func sampleQuestions() []Question {
	return []Question{
		{ID: "sc", Prompt: "Capital?", Category: "geography", Ordinal: 3,
			Variant: SingleChoice{Options: []string{"Αθήνα", "Πάτρα"}, CorrectIndex: 0}},
		{ID: "mc", Prompt: "Pick two", Variant: MultiChoice{Options: []string{"a", "b", "c"}, CorrectIndices: []int{0, 2}}},
		{ID: "tf", Variant: TrueFalse{Statements: []Statement{{Text: "Sky is blue", IsTrue: true}, {Text: "Fire is cold"}}}},
		{ID: "m", Prompt: "Match", Variant: Matching{Pairs: []Pair{{Left: "1821", Right: "Revolution"}}}},
		{ID: "fg", Prompt: "Fill", Variant: FillGap{
			Segments:       []string{"The capital is ___", "Largest port ___"},
			WordBank:       []string{"Αθήνα", "Πειραιάς"},
			InlineChoices:  map[int][]string{1: {"Πειραιάς", "Βόλος"}},
			CorrectAnswers: map[int]string{0: "Αθήνα", 1: "Πειραιάς"},
		}},
		{ID: "geo", Prompt: "Place Crete", Media: "https://cdn/map.png",
			Variant: GeoMap{Targets: []Target{{Point: geo.Point{Lat: 100, Lng: 100}, Label: "Crete"}}, Tolerance: 25}},
		{ID: "open", Prompt: "Essay", Variant: OpenResponse{ModelAnswer: "..."}},
	}
}

func TestQuestionJSONRoundTrip(t *testing.T) {
	for _, q := range sampleQuestions() {
		t.Run(string(q.Kind()), func(t *testing.T) {
			data, err := json.Marshal(q)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if !strings.Contains(string(data), `"type":"`+string(q.Kind())+`"`) {
				t.Errorf("missing type tag in %s", data)
			}
			var got Question
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if !reflect.DeepEqual(got, q) {
				t.Errorf("round trip mismatch:\n got  %#v\n want %#v", got, q)
			}
		})
	}
}

func TestSingleChoiceZeroIndexIsEncoded(t *testing.T) {
	data, err := json.Marshal(sampleQuestions()[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"correctIndex":0`) {
		t.Errorf("correctIndex 0 dropped: %s", data)
	}
}

func TestUnmarshalUnknownType(t *testing.T) {
	var q Question
	if err := json.Unmarshal([]byte(`{"id":"x","type":"quiz"}`), &q); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestMarshalWithoutVariant(t *testing.T) {
	if _, err := json.Marshal(Question{ID: "empty"}); err == nil {
		t.Error("expected error for missing variant")
	}
}

func TestKindValid(t *testing.T) {
	if !KindGeoMap.Valid() {
		t.Error("geo_map should be valid")
	}
	if Kind("essay").Valid() {
		t.Error("essay should not be valid")
	}
}

func TestGappedSegments(t *testing.T) {
	f := FillGap{
		Segments:       []string{"a", "b", "c"},
		CorrectAnswers: map[int]string{0: "x", 2: "y", 7: "ignored"},
	}
	if got := f.GappedSegments(); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("GappedSegments() = %v", got)
	}
}

func TestDecodeAnswer(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		raw  string
		want Answer
	}{
		{"single index", KindSingleChoice, `2`, SingleChoiceAnswer{Index: 2}},
		{"single numeric string", KindSingleChoice, `"1"`, SingleChoiceAnswer{Index: 1}},
		{"single garbage", KindSingleChoice, `{"x":1}`, nil},
		{"multi", KindMultiChoice, `[0,2]`, MultiChoiceAnswer{Indices: []int{0, 2}}},
		{"true false object", KindTrueFalse, `{"0":true,"1":false}`, TrueFalseAnswer{Choices: map[int]bool{0: true, 1: false}}},
		{"true false list", KindTrueFalse, `[false]`, TrueFalseAnswer{Choices: map[int]bool{0: false}}},
		{"matching", KindMatching, `{"0":"Revolution"}`, MatchingAnswer{Choices: map[int]string{0: "Revolution"}}},
		{"fill gap list", KindFillGap, `["Αθήνα"]`, FillGapAnswer{Values: map[int]string{0: "Αθήνα"}}},
		{"geo", KindGeoMap, `[{"lat":1,"lng":2}]`, GeoMapAnswer{Points: []geo.Point{{Lat: 1, Lng: 2}}}},
		{"open", KindOpenResponse, `"my essay"`, TextAnswer{Text: "my essay"}},
		{"null", KindOpenResponse, `null`, nil},
		{"empty", KindSingleChoice, ``, nil},
		{"wrong shape", KindOpenResponse, `42`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeAnswer(tt.kind, json.RawMessage(tt.raw))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeAnswer(%s, %s) = %#v, want %#v", tt.kind, tt.raw, got, tt.want)
			}
		})
	}
}

func TestAnswerMarshalShape(t *testing.T) {
	tests := []struct {
		answer Answer
		want   string
	}{
		{SingleChoiceAnswer{Index: 1}, `1`},
		{MultiChoiceAnswer{}, `[]`},
		{TextAnswer{Text: "hi"}, `"hi"`},
		{GeoMapAnswer{Points: []geo.Point{{Lat: 1, Lng: 2}}}, `[{"lat":1,"lng":2}]`},
	}
	for _, tt := range tests {
		data, err := json.Marshal(tt.answer)
		if err != nil {
			t.Fatalf("Marshal(%#v): %v", tt.answer, err)
		}
		if string(data) != tt.want {
			t.Errorf("Marshal(%#v) = %s, want %s", tt.answer, data, tt.want)
		}
		if back := DecodeAnswer(tt.answer.AnswerKind(), data); back == nil {
			t.Errorf("DecodeAnswer could not read back %s", data)
		}
	}
}
