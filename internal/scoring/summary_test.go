package scoring

import (
	"testing"

	"github.com/pavelanni/examprep/internal/question"
)

func TestSummarize(t *testing.T) {
	results := []Result{
		{QuestionID: "w1", Section: question.SectionWriting, Earned: 12, Max: 20},
		{QuestionID: "t1", Section: question.SectionTheory, Earned: 1, Max: 1},
		{QuestionID: "t2", Section: question.SectionTheory, Earned: 0, Max: 1},
		{QuestionID: "x1", Section: "bonus", Earned: 2, Max: 2},
		{QuestionID: "s1", Section: question.SectionSpeaking, Max: 20, Detail: DetailPendingGrading},
	}

	s := Summarize(results, 50)
	if s.Earned != 15 || s.Max != 44 || s.Count != 5 {
		t.Errorf("totals = %+v", s.Totals)
	}
	if s.Passed {
		t.Errorf("15/44 should not pass at 50%%")
	}
	if s.Pending != 1 {
		t.Errorf("pending = %d, want 1", s.Pending)
	}

	wantOrder := []question.Section{question.SectionTheory, question.SectionWriting, question.SectionSpeaking, "bonus"}
	if len(s.Sections) != len(wantOrder) {
		t.Fatalf("sections = %+v", s.Sections)
	}
	for i, sec := range wantOrder {
		if s.Sections[i].Section != sec {
			t.Errorf("section %d = %s, want %s", i, s.Sections[i].Section, sec)
		}
	}
	if th := s.Sections[0]; th.Earned != 1 || th.Max != 2 || th.Percent != 50 || th.Count != 2 {
		t.Errorf("theory = %+v", th)
	}
}

func TestSummarizePassBoundary(t *testing.T) {
	results := []Result{{Earned: 3, Max: 5}}
	if s := Summarize(results, 60); !s.Passed || s.Percent != 60 {
		t.Errorf("exactly at threshold should pass: %+v", s)
	}
	if s := Summarize(nil, 0); s.Passed {
		t.Error("an empty exam never passes")
	}
}
