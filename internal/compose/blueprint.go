package compose

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/examprep/internal/question"
)

var (
	// ErrEmptyPool means a blueprint part or lesson section had nothing to
	// draw from.
	ErrEmptyPool = errors.New("empty pool")
	// ErrInvalidBlueprint means the blueprint itself is malformed.
	ErrInvalidBlueprint = errors.New("invalid blueprint")
)

// Part draws Count questions from one pool. A non-zero ordinal range
// narrows the pool to a sub-range before selection; zero bounds are open.
type Part struct {
	Name       string `json:"name" yaml:"name" mapstructure:"name"`
	Pool       string `json:"pool" yaml:"pool" mapstructure:"pool"`
	Count      int    `json:"count" yaml:"count" mapstructure:"count"`
	MinOrdinal int    `json:"minOrdinal,omitempty" yaml:"min_ordinal" mapstructure:"min_ordinal"`
	MaxOrdinal int    `json:"maxOrdinal,omitempty" yaml:"max_ordinal" mapstructure:"max_ordinal"`
}

// Blueprint describes how one exam is assembled.
type Blueprint struct {
	Name    string             `json:"name" yaml:"name" mapstructure:"name"`
	Section question.Section   `json:"section,omitempty" yaml:"section" mapstructure:"section"`
	Parts   []Part             `json:"parts" yaml:"parts" mapstructure:"parts"`
	Lessons []question.Section `json:"lessons,omitempty" yaml:"lessons" mapstructure:"lessons"`
}

// Validate checks the blueprint shape. It does not look at pool contents.
func (b Blueprint) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidBlueprint)
	}
	if len(b.Parts) == 0 && len(b.Lessons) == 0 {
		return fmt.Errorf("%w: %s has no parts or lessons", ErrInvalidBlueprint, b.Name)
	}
	for i, p := range b.Parts {
		switch {
		case p.Pool == "":
			return fmt.Errorf("%w: %s part %d has no pool", ErrInvalidBlueprint, b.Name, i)
		case p.Count <= 0:
			return fmt.Errorf("%w: %s part %d count must be positive", ErrInvalidBlueprint, b.Name, i)
		case p.MaxOrdinal > 0 && p.MinOrdinal > p.MaxOrdinal:
			return fmt.Errorf("%w: %s part %d ordinal range %d..%d", ErrInvalidBlueprint, b.Name, i, p.MinOrdinal, p.MaxOrdinal)
		}
	}
	for _, s := range b.Lessons {
		if !s.PassageBased() {
			return fmt.Errorf("%w: %s lists %q as a lesson section", ErrInvalidBlueprint, b.Name, s)
		}
	}
	return nil
}

func (p Part) label() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Pool
}

// Partition keeps the questions whose ordinal falls in [lo, hi]. A zero
// bound is open on that side.
func Partition(pool []question.Question, lo, hi int) []question.Question {
	if lo == 0 && hi == 0 {
		return pool
	}
	var out []question.Question
	for _, q := range pool {
		if lo > 0 && q.Ordinal < lo {
			continue
		}
		if hi > 0 && q.Ordinal > hi {
			continue
		}
		out = append(out, q)
	}
	return out
}

// Catalog is the material a blueprint is composed from.
type Catalog struct {
	Pools   map[string][]question.Question
	Lessons map[question.Section][]question.Lesson
}

// Exam is one composed exam instance. Treat it as immutable once built.
type Exam struct {
	ID        uuid.UUID           `json:"id"`
	Blueprint string              `json:"blueprint"`
	Section   question.Section    `json:"section,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
	Questions []question.Question `json:"questions"`
	Lessons   []question.Lesson   `json:"lessons,omitempty"`
}

// Item is one scorable question of an exam with the section it counts toward.
type Item struct {
	Question question.Question
	Section  question.Section
}

// Items flattens the exam: top-level questions first, then lesson
// sub-questions in lesson order.
func (e Exam) Items() []Item {
	items := make([]Item, 0, len(e.Questions))
	for _, q := range e.Questions {
		items = append(items, Item{Question: q, Section: e.Section})
	}
	for _, l := range e.Lessons {
		for _, q := range l.Questions {
			items = append(items, Item{Question: q, Section: l.Section})
		}
	}
	return items
}

// Composer builds exams from blueprints.
type Composer struct {
	src Source
	now func() time.Time
}

// New creates a Composer. A nil src uses the unseeded global generator.
func New(src Source) *Composer {
	if src == nil {
		src = Unseeded
	}
	return &Composer{src: src, now: time.Now}
}

// Compose draws every part of bp from cat in order, skipping questions an
// earlier part already took, then picks one lesson per listed section.
func (c *Composer) Compose(bp Blueprint, cat Catalog) (Exam, error) {
	if err := bp.Validate(); err != nil {
		return Exam{}, err
	}

	exam := Exam{
		ID:        uuid.New(),
		Blueprint: bp.Name,
		Section:   bp.Section,
		CreatedAt: c.now().UTC(),
	}

	taken := make(map[string]bool)
	for _, p := range bp.Parts {
		sub := Partition(cat.Pools[p.Pool], p.MinOrdinal, p.MaxOrdinal)
		if len(sub) == 0 {
			return Exam{}, fmt.Errorf("part %s of %s: pool %q: %w", p.label(), bp.Name, p.Pool, ErrEmptyPool)
		}
		fresh := make([]question.Question, 0, len(sub))
		for _, q := range sub {
			if !taken[q.ID] {
				fresh = append(fresh, q)
			}
		}
		for _, q := range SelectDiverse(fresh, p.Count, c.src) {
			taken[q.ID] = true
			exam.Questions = append(exam.Questions, q)
		}
	}

	for _, s := range bp.Lessons {
		l, ok := PickLesson(cat.Lessons[s], c.src)
		if !ok {
			return Exam{}, fmt.Errorf("lessons for %s in %s: %w", s, bp.Name, ErrEmptyPool)
		}
		exam.Lessons = append(exam.Lessons, l)
	}
	return exam, nil
}
