// Package prompts renders the grading prompts sent to the LLM oracle.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

//go:embed templates/*.txt
var embedded embed.FS

var (
	studentAnswerRegex      = regexp.MustCompile(`(?i)</?\s*student-answer\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

// maxAnswerRunes caps the answer text placed in a prompt.
const maxAnswerRunes = 10000

// Variant is a grading strictness level.
type Variant string

const (
	// Strict grading for certification-level sections.
	Strict Variant = "strict"
	// Standard is the default.
	Standard Variant = "standard"
	// Lenient grading for practice runs.
	Lenient Variant = "lenient"
)

// Variants lists every variant in increasing leniency.
var Variants = []Variant{Strict, Standard, Lenient}

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	for _, known := range Variants {
		if Variant(v) == known {
			return true
		}
	}
	return false
}

// GradeData is the template input for one open response.
type GradeData struct {
	Section         string
	Prompt          string
	ReferenceAnswer string
	Answer          string
	MaxPoints       float64
}

// Set holds one parsed grading template per variant.
type Set struct {
	grade map[Variant]*template.Template
}

// Load parses templates/grade_<variant>.txt for every variant from fsys.
func Load(fsys fs.FS) (*Set, error) {
	s := &Set{grade: make(map[Variant]*template.Template, len(Variants))}
	for _, v := range Variants {
		name := "templates/grade_" + string(v) + ".txt"
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read prompt file %s: %w", name, err)
		}
		tmpl, err := template.New(string(v)).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
		}
		s.grade[v] = tmpl
	}
	return s, nil
}

var (
	defaultOnce sync.Once
	defaultSet  *Set
	defaultErr  error
)

// Default returns the templates compiled into the binary.
func Default() (*Set, error) {
	defaultOnce.Do(func() {
		defaultSet, defaultErr = Load(embedded)
	})
	return defaultSet, defaultErr
}

// BuildGradePrompt renders the system prompt for one open response. The
// answer is sanitized before it is placed in the prompt.
func (s *Set) BuildGradePrompt(variant Variant, data GradeData) (string, error) {
	tmpl, ok := s.grade[variant]
	if !ok {
		return "", fmt.Errorf("invalid prompt variant: %q", variant)
	}
	data.Answer = SanitizeAnswer(data.Answer)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", variant, err)
	}
	return buf.String(), nil
}

// SanitizeAnswer strips tags that could break out of the answer block and
// truncates very long answers.
func SanitizeAnswer(answer string) string {
	answer = studentAnswerRegex.ReplaceAllString(answer, "")
	answer = systemInstructionsRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		answer = string(runes[:maxAnswerRunes]) + "\n\n[Answer truncated due to length]"
	}
	return answer
}
