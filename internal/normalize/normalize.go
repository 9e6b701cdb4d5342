// Package normalize turns heterogeneous, hand-authored question records into
// canonical questions. Normalization never fails: malformed input yields a
// best-effort question with placeholders where data is missing.
package normalize

import (
	"strings"

	"github.com/google/uuid"

	"github.com/pavelanni/examprep/internal/geo"
	"github.com/pavelanni/examprep/internal/question"
)

// CategoryTransformation is the authoring category whose fill-gap items are
// sentence transformations written as "source -> target".
const CategoryTransformation = "transformation"

// PlaceholderPrompt replaces a missing prompt on variants that need one.
const PlaceholderPrompt = "(question text missing)"

// idNamespace scopes name-based ids derived for records that carry none.
var idNamespace = uuid.MustParse("4f1f7d0e-6a43-4c55-9f2b-0c1e5d7a9b31")

// Normalize converts one raw document into a canonical question. category is
// the authoring category the document was read from; it selects the
// transformation rewrite and becomes the question's category when set.
func Normalize(doc Document, category string) question.Question {
	return normalize(doc, category, "")
}

func normalize(doc Document, category, fallbackID string) question.Question {
	if doc == nil {
		doc = Document{}
	}
	if category == "" {
		category = lookupString(doc, categoryKeys)
	}

	q := question.Question{
		Prompt:   lookupString(doc, promptKeys),
		Media:    lookupString(doc, mediaKeys),
		Category: category,
	}
	if v, ok := lookup(doc, ordinalKeys); ok {
		q.Ordinal, _ = toInt(v)
	}

	_, canonical := canonicalKind(doc)
	kind := Classify(doc)
	switch kind {
	case question.KindSingleChoice:
		q.Variant = buildSingleChoice(doc)
	case question.KindMultiChoice:
		opts := optionsOrPlaceholder(doc)
		q.Variant = question.MultiChoice{Options: opts, CorrectIndices: resolveIndices(doc, opts)}
	case question.KindTrueFalse:
		q.Variant = buildTrueFalse(doc, q.Prompt)
	case question.KindMatching:
		q.Variant = question.Matching{Pairs: parsePairs(doc)}
	case question.KindFillGap:
		if category == CategoryTransformation && !canonical {
			q.Prompt, q.Variant = rewriteTransformation(doc)
		} else {
			q.Variant = buildFillGap(doc)
		}
	case question.KindGeoMap:
		q.Variant = buildGeoMap(doc)
	case question.KindOpenResponse:
		q.Variant = question.OpenResponse{ModelAnswer: lookupString(doc, modelAnswerKeys)}
	}

	if q.Prompt == "" && needsPrompt(kind) {
		q.Prompt = PlaceholderPrompt
	}

	q.ID = lookupString(doc, idKeys)
	if q.ID == "" {
		q.ID = fallbackID
	}
	if q.ID == "" {
		q.ID = uuid.NewSHA1(idNamespace, []byte(q.Category+"\x00"+string(kind)+"\x00"+q.Prompt)).String()
	}
	return q
}

// needsPrompt reports whether the variant has no implicit stem.
func needsPrompt(k question.Kind) bool {
	return k != question.KindTrueFalse && k != question.KindFillGap
}

func buildSingleChoice(doc Document) question.SingleChoice {
	if isNotGiven(answerValue(doc)) {
		return notGivenChoice(doc)
	}
	opts := optionsOrPlaceholder(doc)
	return question.SingleChoice{Options: opts, CorrectIndex: resolveIndex(doc, opts)}
}

// notGivenOptions is the option list of a downgraded true/false/not-given item.
var notGivenOptions = []string{"True", "False", "Not given"}

// notGivenChoice collapses a true/false/not-given statement into a three-way
// single choice whose correct option is "not given".
func notGivenChoice(doc Document) question.SingleChoice {
	opts := parseOptions(doc)
	if len(opts) == 0 {
		return question.SingleChoice{Options: append([]string(nil), notGivenOptions...), CorrectIndex: 2}
	}
	for i, o := range opts {
		if isNotGiven(o) {
			return question.SingleChoice{Options: opts, CorrectIndex: i}
		}
	}
	return question.SingleChoice{Options: opts, CorrectIndex: len(opts) - 1}
}

func buildTrueFalse(doc Document, prompt string) question.TrueFalse {
	var stmts []question.Statement
	if v, ok := lookup(doc, statementKeys); ok {
		list, _ := toList(v)
		for _, e := range list {
			if m, ok := toMap(e); ok {
				st := question.Statement{Text: lookupString(m, elemTextKeys)}
				if tv, ok := lookup(m, elemTruthKeys); ok {
					st.IsTrue, _ = parseTruth(tv)
				}
				stmts = append(stmts, st)
			} else if s := toString(e); s != "" {
				stmts = append(stmts, question.Statement{Text: s})
			}
		}
	}
	if len(stmts) == 0 {
		truth, _ := parseTruth(answerValue(doc))
		stmts = []question.Statement{{Text: prompt, IsTrue: truth}}
	}
	return question.TrueFalse{Statements: stmts}
}

// parseTruth is parseBoolLiteral plus numeric 1/0.
func parseTruth(v any) (bool, bool) {
	if b, ok := parseBoolLiteral(v); ok {
		return b, true
	}
	if i, ok := toInt(v); ok && (i == 0 || i == 1) {
		return i == 1, true
	}
	return false, false
}

func parsePairs(doc Document) []question.Pair {
	var pairs []question.Pair
	if v, ok := lookup(doc, pairKeys); ok {
		if list, ok := toList(v); ok {
			for _, e := range list {
				if m, ok := toMap(e); ok {
					pairs = append(pairs, question.Pair{
						Left:  lookupString(m, elemLeftKeys),
						Right: lookupString(m, elemRightKeys),
					})
				} else if tuple, ok := toList(e); ok && len(tuple) == 2 {
					pairs = append(pairs, question.Pair{Left: toString(tuple[0]), Right: toString(tuple[1])})
				}
			}
		} else if m, ok := toMap(v); ok {
			for _, k := range sortedKeys(m) {
				pairs = append(pairs, question.Pair{Left: k, Right: toString(m[k])})
			}
		}
	}
	if len(pairs) == 0 {
		left, _ := lookup(doc, leftKeys)
		right, _ := lookup(doc, rightKeys)
		ls, rs := stringList(left), stringList(right)
		for i := 0; i < len(ls) && i < len(rs); i++ {
			pairs = append(pairs, question.Pair{Left: ls[i], Right: rs[i]})
		}
	}
	return pairs
}

func buildFillGap(doc Document) question.FillGap {
	var fg question.FillGap
	inline := map[int][]string{}
	answers := map[int]string{}

	if v, ok := lookup(doc, segmentKeys); ok {
		list, _ := toList(v)
		for i, e := range list {
			m, ok := toMap(e)
			if !ok {
				fg.Segments = append(fg.Segments, toString(e))
				continue
			}
			fg.Segments = append(fg.Segments, lookupString(m, elemTextKeys))
			if a := lookupString(m, elemAnswerKeys); a != "" {
				answers[i] = a
			}
			if c, ok := lookup(m, elemChoiceKeys); ok {
				if opts := stringList(c); len(opts) > 0 {
					inline[i] = opts
				}
			}
		}
	}

	if v, ok := lookup(doc, gapAnswerKeys); ok {
		for i, a := range indexedStrings(v) {
			answers[i] = a
		}
	} else if len(fg.Segments) == 1 && len(answers) == 0 {
		if a := lookupString(doc, answerKeys); a != "" {
			answers[0] = a
		}
	}
	if v, ok := lookup(doc, inlineKeys); ok {
		if m, ok := toMap(v); ok {
			for k, e := range m {
				if i, ok := toInt(k); ok {
					if opts := stringList(e); len(opts) > 0 {
						inline[i] = opts
					}
				}
			}
		}
	}
	if v, ok := lookup(doc, wordBankKeys); ok {
		fg.WordBank = stringList(v)
	}

	if len(answers) > 0 {
		fg.CorrectAnswers = answers
	}
	if len(inline) > 0 {
		fg.InlineChoices = inline
	}
	return fg
}

// rewriteTransformation splits "source -> target" on the first arrow. The
// source joins the instruction; the target becomes the single gapped
// segment. Without an arrow the whole field joins the instruction and the
// segment is empty.
func rewriteTransformation(doc Document) (string, question.FillGap) {
	instruction := lookupString(doc, instructionKeys)
	field := lookupString(doc, transformationKeys)

	source, target, found := strings.Cut(field, "->")
	source = strings.TrimSpace(source)
	target = strings.TrimSpace(target)
	if !found {
		source, target = field, ""
	}

	var parts []string
	for _, p := range []string{instruction, source} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	fg := question.FillGap{Segments: []string{target}}
	if a := lookupString(doc, answerKeys); a != "" {
		fg.CorrectAnswers = map[int]string{0: a}
	}
	return strings.Join(parts, "\n"), fg
}

func buildGeoMap(doc Document) question.GeoMap {
	gm := question.GeoMap{Tolerance: geo.DefaultTolerance}
	if v, ok := lookup(doc, toleranceKeys); ok {
		if f, ok := toFloat(v); ok {
			gm.Tolerance = geo.EffectiveTolerance(f)
		}
	}
	v, _ := lookup(doc, targetKeys)
	list, _ := toList(v)
	for _, e := range list {
		m, ok := toMap(e)
		if !ok {
			continue
		}
		latV, okLat := lookup(m, elemLatKeys)
		lngV, okLng := lookup(m, elemLngKeys)
		if !okLat || !okLng {
			continue
		}
		lat, okLat := toFloat(latV)
		lng, okLng := toFloat(lngV)
		if !okLat || !okLng {
			continue
		}
		gm.Targets = append(gm.Targets, question.Target{
			Point: geo.Point{Lat: lat, Lng: lng},
			Label: lookupString(m, elemLabelKeys),
		})
	}
	return gm
}
