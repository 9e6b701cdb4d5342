package scoring

import (
	"slices"

	"github.com/pavelanni/examprep/internal/question"
)

// Totals is an earned/max pair with its percentage.
type Totals struct {
	Earned  float64 `json:"earned"`
	Max     float64 `json:"max"`
	Percent float64 `json:"percent"`
	Count   int     `json:"count"`
}

func (t Totals) add(r Result) Totals {
	t.Earned += r.Earned
	t.Max += r.Max
	t.Count++
	return t
}

func (t Totals) withPercent() Totals {
	if t.Max > 0 {
		t.Percent = t.Earned / t.Max * 100
	}
	return t
}

// SectionTotals is the breakdown of one exam section.
type SectionTotals struct {
	Section question.Section `json:"section"`
	Totals
}

// Summary aggregates the results of one exam submission.
type Summary struct {
	Totals
	PassPercent float64         `json:"passPercent"`
	Passed      bool            `json:"passed"`
	Pending     int             `json:"pending"`
	Sections    []SectionTotals `json:"sections,omitempty"`
}

// Summarize folds results into exam totals and a per-section breakdown.
// An exam passes when it has a positive maximum and its percentage reaches
// passPercent. Sections are listed in the standard section order, followed by
// any others in order of first appearance.
func Summarize(results []Result, passPercent float64) Summary {
	var total Totals
	bySection := map[question.Section]Totals{}
	var order []question.Section
	pending := 0

	for _, r := range results {
		total = total.add(r)
		if r.Pending() {
			pending++
		}
		if _, seen := bySection[r.Section]; !seen {
			order = append(order, r.Section)
		}
		bySection[r.Section] = bySection[r.Section].add(r)
	}

	slices.SortStableFunc(order, func(a, b question.Section) int {
		return sectionRank(a) - sectionRank(b)
	})

	s := Summary{Totals: total.withPercent(), PassPercent: passPercent, Pending: pending}
	s.Passed = s.Max > 0 && s.Percent >= passPercent
	for _, sec := range order {
		s.Sections = append(s.Sections, SectionTotals{Section: sec, Totals: bySection[sec].withPercent()})
	}
	return s
}

func sectionRank(s question.Section) int {
	if i := slices.Index(question.Sections, s); i >= 0 {
		return i
	}
	return len(question.Sections)
}
