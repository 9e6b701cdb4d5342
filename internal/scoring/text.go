package scoring

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MatchText compares a typed answer with the expected one after trimming,
// Unicode case folding and NFC composition. An answer typed without any
// accents also matches the accented form ("αθηνα" matches "Αθήνα"), but an
// accent in the wrong place does not ("Αθηνά" does not match "Αθήνα").
func MatchText(got, want string) bool {
	g, w := foldText(got), foldText(want)
	if g == w {
		return true
	}
	return !hasMarks(g) && g == stripMarks(w)
}

// foldText builds a new Caser per call; a Caser is not safe for concurrent use.
func foldText(s string) string {
	return norm.NFC.String(cases.Fold().String(strings.TrimSpace(s)))
}

func hasMarks(s string) bool {
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			return true
		}
	}
	return false
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
