package normalize

import (
	"strings"

	"github.com/pavelanni/examprep/internal/question"
)

// canonicalNames maps a squashed type string to its canonical kind, so
// "single_choice", "SingleChoice" and "single-choice" all resolve.
var canonicalNames = map[string]question.Kind{
	"singlechoice": question.KindSingleChoice,
	"multichoice":  question.KindMultiChoice,
	"truefalse":    question.KindTrueFalse,
	"matching":     question.KindMatching,
	"fillgap":      question.KindFillGap,
	"geomap":       question.KindGeoMap,
	"openresponse": question.KindOpenResponse,
}

func squash(s string) string {
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(s))
}

// typeString returns the document's lowercased type hint, if any.
func typeString(doc Document) string {
	return strings.ToLower(lookupString(doc, typeKeys))
}

// canonicalKind reports whether the document already declares a canonical type.
func canonicalKind(doc Document) (question.Kind, bool) {
	k, ok := canonicalNames[squash(lookupString(doc, typeKeys))]
	return k, ok
}

// Classify infers the variant of a raw document. The first matching rule
// wins; rules overlap, so their order is significant.
func Classify(doc Document) question.Kind {
	if k, ok := canonicalKind(doc); ok {
		return k
	}
	t := typeString(doc)

	if v, ok := lookup(doc, targetKeys); ok {
		if list, ok := toList(v); ok && len(list) > 0 {
			return question.KindGeoMap
		}
	}
	if has(doc, pairKeys) || strings.Contains(t, "match") {
		return question.KindMatching
	}
	if has(doc, []string{"sentences", "textParts", "text_parts"}) ||
		strings.Contains(t, "fill") || strings.Contains(t, "gap") {
		return question.KindFillGap
	}
	if strings.Contains(t, "true") || hasList(doc, statementKeys) {
		if isNotGiven(answerValue(doc)) {
			return question.KindSingleChoice
		}
		return question.KindTrueFalse
	}
	if strings.Contains(t, "open") || has(doc, modelAnswerKeys) {
		return question.KindOpenResponse
	}

	if len(parseOptions(doc)) == 0 {
		if _, ok := parseBoolLiteral(answerValue(doc)); ok {
			return question.KindTrueFalse
		}
	}
	if promotesToMulti(doc, t) {
		return question.KindMultiChoice
	}
	return question.KindSingleChoice
}

// promotesToMulti decides whether a choice question has several correct
// options: an explicit index set, or a type hint naming both "multiple" and a
// separate "multi", as in "multiple_choice_multi". The "multi" inside
// "multiple" does not count.
func promotesToMulti(doc Document, t string) bool {
	if has(doc, indicesKeys) {
		return true
	}
	return strings.Contains(t, "multiple") && strings.Contains(strings.ReplaceAll(t, "multiple", ""), "multi")
}

func hasList(doc Document, keys []string) bool {
	v, ok := lookup(doc, keys)
	if !ok {
		return false
	}
	_, ok = toList(v)
	return ok
}

func answerValue(doc Document) any {
	v, _ := lookup(doc, answerKeys)
	return v
}

var (
	trueLiterals  = []string{"true", "t", "yes", "σ", "σωστό", "σωστο", "αληθές", "αληθες", "ναι"}
	falseLiterals = []string{"false", "f", "no", "λ", "λάθος", "λαθος", "ψευδές", "ψευδες", "όχι", "οχι"}
	notGivenLits  = []string{"not given", "not_given", "notgiven", "ng", "n/g", "δεν αναφέρεται", "δεν αναφερεται", "δα", "δ.α."}
)

// parseBoolLiteral recognizes boolean values and boolean-like words,
// including the Greek single-letter Σ/Λ convention.
func parseBoolLiteral(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		for _, lit := range trueLiterals {
			if s == lit {
				return true, true
			}
		}
		for _, lit := range falseLiterals {
			if s == lit {
				return false, true
			}
		}
	}
	return false, false
}

func isNotGiven(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	s = strings.ToLower(strings.TrimSpace(s))
	for _, lit := range notGivenLits {
		if s == lit {
			return true
		}
	}
	return false
}
