package question

// Section identifies an exam section. Each section carries its own point
// weights and pass threshold.
type Section string

const (
	SectionTheory    Section = "theory"
	SectionReading   Section = "reading"
	SectionListening Section = "listening"
	SectionWriting   Section = "writing"
	SectionSpeaking  Section = "speaking"
)

// Sections lists every section in display order.
var Sections = []Section{SectionTheory, SectionReading, SectionListening, SectionWriting, SectionSpeaking}

// PassageBased reports whether the section is built around one lesson
// (a passage, recording or speaking prompt) rather than a flat pool.
func (s Section) PassageBased() bool {
	switch s {
	case SectionReading, SectionListening, SectionSpeaking:
		return true
	}
	return false
}

// Lesson is a passage-based unit: the shared material plus its sub-questions.
type Lesson struct {
	ID        string     `json:"id"`
	Section   Section    `json:"section"`
	Title     string     `json:"title"`
	Passage   string     `json:"passage,omitempty"`
	Media     string     `json:"media,omitempty"`
	Questions []Question `json:"questions"`
}
