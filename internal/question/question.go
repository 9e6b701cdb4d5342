// Package question defines the canonical, variant-tagged exam question model
// shared by the normalizer, scorer, composer and storage layers.
package question

import "github.com/pavelanni/examprep/internal/geo"

// Kind names a question variant. The string values are the canonical type
// tags of the exchange format.
type Kind string

const (
	KindSingleChoice Kind = "single_choice"
	KindMultiChoice  Kind = "multi_choice"
	KindTrueFalse    Kind = "true_false"
	KindMatching     Kind = "matching"
	KindFillGap      Kind = "fill_gap"
	KindGeoMap       Kind = "geo_map"
	KindOpenResponse Kind = "open_response"
)

// Kinds lists every variant in a fixed order.
var Kinds = []Kind{
	KindSingleChoice,
	KindMultiChoice,
	KindTrueFalse,
	KindMatching,
	KindFillGap,
	KindGeoMap,
	KindOpenResponse,
}

// Valid reports whether k is one of the canonical kinds.
func (k Kind) Valid() bool {
	for _, c := range Kinds {
		if c == k {
			return true
		}
	}
	return false
}

// Question is one canonical exam item. Treat it as immutable once produced.
type Question struct {
	ID       string
	Prompt   string
	Media    string
	Category string
	// Ordinal is the authored position of the item inside its category; used
	// to pre-partition pools into sub-ranges.
	Ordinal int
	Variant Variant
}

// Kind returns the kind of the populated variant.
func (q Question) Kind() Kind {
	if q.Variant == nil {
		return ""
	}
	return q.Variant.Kind()
}

// Variant is the closed set of question bodies.
type Variant interface {
	Kind() Kind
	isVariant()
}

// SingleChoice has exactly one correct option.
type SingleChoice struct {
	Options      []string
	CorrectIndex int
}

// MultiChoice has a set of correct options, kept sorted and duplicate-free.
type MultiChoice struct {
	Options        []string
	CorrectIndices []int
}

// Statement is one true/false claim.
type Statement struct {
	Text   string `json:"text"`
	IsTrue bool   `json:"isTrue"`
}

// TrueFalse holds one or more statements judged independently.
type TrueFalse struct {
	Statements []Statement
}

// Pair links a left-hand item to its right-hand match.
type Pair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Matching asks the user to pick the right-hand value for each pair.
type Matching struct {
	Pairs []Pair
}

// FillGap is a list of text segments with one gap each. Keys of the maps are
// segment indices.
type FillGap struct {
	Segments       []string
	WordBank       []string
	InlineChoices  map[int][]string
	CorrectAnswers map[int]string
}

// Target is a labeled map location.
type Target struct {
	geo.Point
	Label string `json:"label,omitempty"`
}

// GeoMap asks the user to place points on a map, in target order.
type GeoMap struct {
	Targets   []Target
	Tolerance float64
}

// OpenResponse is graded by the external oracle.
type OpenResponse struct {
	ModelAnswer string
}

func (SingleChoice) Kind() Kind { return KindSingleChoice }
func (MultiChoice) Kind() Kind  { return KindMultiChoice }
func (TrueFalse) Kind() Kind    { return KindTrueFalse }
func (Matching) Kind() Kind     { return KindMatching }
func (FillGap) Kind() Kind      { return KindFillGap }
func (GeoMap) Kind() Kind       { return KindGeoMap }
func (OpenResponse) Kind() Kind { return KindOpenResponse }

func (SingleChoice) isVariant() {}
func (MultiChoice) isVariant()  {}
func (TrueFalse) isVariant()    {}
func (Matching) isVariant()     {}
func (FillGap) isVariant()      {}
func (GeoMap) isVariant()       {}
func (OpenResponse) isVariant() {}

// GappedSegments returns the indices of segments that carry a correct answer,
// in ascending order.
func (f FillGap) GappedSegments() []int {
	var idx []int
	for i := range f.Segments {
		if _, ok := f.CorrectAnswers[i]; ok {
			idx = append(idx, i)
		}
	}
	return idx
}
