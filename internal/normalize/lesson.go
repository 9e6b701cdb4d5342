package normalize

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/pavelanni/examprep/internal/question"
)

var (
	lessonTitleKeys    = []string{"title", "name", "heading"}
	lessonPassageKeys  = []string{"passage", "text", "content", "transcript", "body"}
	lessonQuestionKeys = []string{"questions", "subQuestions", "sub_questions", "items"}
)

// NormalizeLesson converts a raw passage-based lesson and every one of its
// sub-questions. Sub-questions without an id get one derived from the
// lesson id and their position.
func NormalizeLesson(doc Document, section question.Section) question.Lesson {
	if doc == nil {
		doc = Document{}
	}
	l := question.Lesson{
		ID:      lookupString(doc, idKeys),
		Section: section,
		Title:   lookupString(doc, lessonTitleKeys),
		Passage: lookupString(doc, lessonPassageKeys),
		Media:   lookupString(doc, mediaKeys),
	}
	if l.Section == "" {
		l.Section = question.Section(lookupString(doc, []string{"section"}))
	}
	if l.ID == "" {
		l.ID = uuid.NewSHA1(idNamespace, []byte(string(l.Section)+"\x00"+l.Title+"\x00"+l.Passage)).String()
	}

	v, _ := lookup(doc, lessonQuestionKeys)
	list, _ := toList(v)
	for i, e := range list {
		m, ok := toMap(e)
		if !ok {
			continue
		}
		q := normalize(Document(m), string(l.Section), fmt.Sprintf("%s-%d", l.ID, i+1))
		l.Questions = append(l.Questions, q)
	}
	return l
}
