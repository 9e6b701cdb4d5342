package normalize

import (
	"sort"
	"strings"
)

// placeholderOptions keeps choice questions indexable when the source has no
// usable option list.
var placeholderOptions = []string{"Option 1", "Option 2", "Option 3"}

// alphabet maps answer letters and digits to option indices. Each row is one
// option position: Latin, Greek, digit.
var alphabet = [][]string{
	{"a", "α", "1"},
	{"b", "β", "2"},
	{"c", "γ", "3"},
	{"d", "δ", "4"},
}

// parseOptions reads the option list from an array, a keyed object, or the
// discrete lettered fields, in that order. It returns nil when none is found.
func parseOptions(doc Document) []string {
	if v, ok := lookup(doc, optionKeys); ok {
		if list, ok := toList(v); ok {
			out := make([]string, 0, len(list))
			for _, e := range list {
				out = append(out, optionText(e))
			}
			if len(out) > 0 {
				return out
			}
		} else if m, ok := toMap(v); ok {
			var out []string
			for _, k := range sortedKeys(m) {
				if s := optionText(m[k]); s != "" {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}

	var out []string
	for _, keys := range letteredOptionKeys {
		if s := lookupString(doc, keys); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func optionsOrPlaceholder(doc Document) []string {
	if opts := parseOptions(doc); len(opts) > 0 {
		return opts
	}
	return append([]string(nil), placeholderOptions...)
}

// letterIndex resolves a letter, Greek letter or digit answer.
func letterIndex(token string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(token))
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimRight(s, ").: ")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "option"), "_")
	s = strings.TrimSpace(s)
	for i, row := range alphabet {
		for _, letter := range row {
			if s == letter {
				return i, true
			}
		}
	}
	return 0, false
}

// resolveToken maps one raw answer value to an option index: alphabet table
// first, then case-insensitive option text.
func resolveToken(v any, opts []string) (int, bool) {
	s := toString(v)
	if s == "" {
		return 0, false
	}
	if i, ok := letterIndex(s); ok && i < len(opts) {
		return i, true
	}
	for i, o := range opts {
		if strings.EqualFold(strings.TrimSpace(o), s) {
			return i, true
		}
	}
	return 0, false
}

// resolveIndex finds the correct option of a single-choice document. It never
// fails: unresolvable answers fall back to index 0.
func resolveIndex(doc Document, opts []string) int {
	if v, ok := lookup(doc, indexKeys); ok {
		if i, ok := toInt(v); ok && i >= 0 && i < len(opts) {
			return i
		}
	}
	if i, ok := resolveToken(answerValue(doc), opts); ok {
		return i
	}
	return 0
}

// resolveIndices finds the correct option set of a multi-choice document,
// sorted and duplicate-free. Unresolvable answers fall back to {0}.
func resolveIndices(doc Document, opts []string) []int {
	seen := map[int]bool{}
	if v, ok := lookup(doc, indicesKeys); ok {
		if list, ok := toList(v); ok {
			for _, e := range list {
				if i, ok := toInt(e); ok && i >= 0 && i < len(opts) {
					seen[i] = true
				}
			}
		}
	}
	if len(seen) == 0 {
		raw := answerValue(doc)
		if i, ok := resolveToken(raw, opts); ok {
			seen[i] = true
		} else {
			for _, tok := range answerTokens(raw) {
				if i, ok := resolveToken(tok, opts); ok {
					seen[i] = true
				}
			}
		}
	}
	if len(seen) == 0 {
		return []int{0}
	}
	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// answerTokens splits an answer that lists several choices, either as an
// array or as a separated string such as "a, c".
func answerTokens(v any) []any {
	if list, ok := toList(v); ok {
		return list
	}
	s := toString(v)
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '|' || r == '/'
	})
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
