package normalize

import (
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Document is one raw, loosely shaped question record as decoded from JSON,
// YAML or a document store.
type Document map[string]any

// Alias tables, one per concept. Canonical exchange names come first so that
// canonical documents resolve to themselves. New legacy shapes are added here.
var (
	idKeys          = []string{"id", "_id", "docId", "doc_id", "uid"}
	typeKeys        = []string{"type", "questionType", "question_type", "kind"}
	promptKeys      = []string{"prompt", "question", "question_text", "questionText", "statement", "text", "title"}
	mediaKeys       = []string{"media", "image", "imageUrl", "image_url", "audio", "audioUrl", "audio_url", "mediaUrl", "media_url"}
	categoryKeys    = []string{"category", "categoryId", "category_id"}
	ordinalKeys     = []string{"ordinal", "order", "number", "index", "position"}
	optionKeys      = []string{"options", "choices", "alternatives"}
	answerKeys      = []string{"answer", "correct", "correctAnswer", "correct_answer", "solution"}
	indexKeys       = []string{"correctIndex", "correct_index", "answerIndex", "answer_index"}
	indicesKeys     = []string{"correctIndices", "correct_indices", "answerIndices"}
	statementKeys   = []string{"statements"}
	pairKeys        = []string{"pairs"}
	leftKeys        = []string{"left", "leftItems", "left_items"}
	rightKeys       = []string{"right", "rightItems", "right_items"}
	segmentKeys     = []string{"segments", "sentences", "textParts", "text_parts"}
	wordBankKeys    = []string{"wordBank", "word_bank", "words", "bank"}
	inlineKeys      = []string{"inlineChoices", "inline_choices"}
	gapAnswerKeys   = []string{"correctAnswers", "correct_answers", "answers"}
	targetKeys      = []string{"targets", "points"}
	toleranceKeys   = []string{"tolerance", "radius"}
	modelAnswerKeys = []string{"modelAnswer", "model_answer", "sampleAnswer", "referenceAnswer", "reference_answer"}

	// Transformation category only.
	instructionKeys    = []string{"instruction", "instructions", "prompt", "question"}
	transformationKeys = []string{"sentence", "transformation", "text"}

	// Element-level aliases inside arrays of objects.
	elemTextKeys   = []string{"text", "statement", "sentence", "prompt", "label", "value"}
	elemTruthKeys  = []string{"isTrue", "is_true", "answer", "correct", "value"}
	elemLeftKeys   = []string{"left", "term", "question", "prompt", "key"}
	elemRightKeys  = []string{"right", "match", "answer", "value"}
	elemAnswerKeys = []string{"answer", "correct", "correctAnswer", "solution"}
	elemChoiceKeys = []string{"options", "choices"}
	elemLatKeys    = []string{"lat", "y"}
	elemLngKeys    = []string{"lng", "lon", "long", "x"}
	elemLabelKeys  = []string{"label", "name", "title"}

	// Discrete lettered option fields, in option order.
	letteredOptionKeys = [][]string{
		{"optionA", "option_a", "optionα"},
		{"optionB", "option_b", "optionβ"},
		{"optionC", "option_c", "optionγ"},
		{"optionD", "option_d", "optionδ"},
	}
)

// lookup returns the value of the first alias that is present and not blank.
func lookup(m map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// has reports whether any alias key is present at all, even if empty.
func has(m map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func lookupString(m map[string]any, keys []string) string {
	v, ok := lookup(m, keys)
	if !ok {
		return ""
	}
	return toString(v)
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any, []any:
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// toList coerces arrays of any element type into []any.
func toList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out, true
	}
	return nil, false
}

// toMap accepts both JSON-style and YAML-style decoded objects.
func toMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case Document:
		return t, true
	case map[any]any:
		m, err := cast.ToStringMapE(t)
		return m, err == nil
	}
	return nil, false
}

func toFloat(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

func toInt(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// sortedKeys orders map keys numerically when every key is an integer, and
// lexically otherwise.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	numeric := true
	for k := range m {
		keys = append(keys, k)
		if _, err := strconv.Atoi(k); err != nil {
			numeric = false
		}
	}
	if numeric {
		sort.Slice(keys, func(i, j int) bool {
			a, _ := strconv.Atoi(keys[i])
			b, _ := strconv.Atoi(keys[j])
			return a < b
		})
	} else {
		sort.Strings(keys)
	}
	return keys
}

// indexedStrings reads an index-keyed object (or positional array) of strings.
func indexedStrings(v any) map[int]string {
	out := map[int]string{}
	if list, ok := toList(v); ok {
		for i, e := range list {
			if s := toString(e); s != "" {
				out[i] = s
			}
		}
	} else if m, ok := toMap(v); ok {
		for k, e := range m {
			i, err := strconv.Atoi(k)
			if err != nil {
				continue
			}
			if s := toString(e); s != "" {
				out[i] = s
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func stringList(v any) []string {
	list, ok := toList(v)
	if !ok {
		return nil
	}
	var out []string
	for _, e := range list {
		if s := optionText(e); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// optionText reads an option entry that is either a scalar or an object with
// a text-like field.
func optionText(v any) string {
	if m, ok := toMap(v); ok {
		return lookupString(m, elemTextKeys)
	}
	return toString(v)
}
