package scoring

import "github.com/pavelanni/examprep/internal/question"

// DefaultPassPercent is the pass threshold used when none is configured.
const DefaultPassPercent = 60.0

// GradingContext carries the per-question weight of one exam section and the
// pass threshold that applies to it.
type GradingContext struct {
	Section     question.Section `json:"section" mapstructure:"section"`
	MaxPoints   float64          `json:"maxPoints" mapstructure:"max_points"`
	PassPercent float64          `json:"passPercent" mapstructure:"pass_percent"`
}

// max returns the weight, treating a non-positive one as a single point.
func (c GradingContext) max() float64 {
	if c.MaxPoints <= 0 {
		return 1
	}
	return c.MaxPoints
}

// Config is the full grading table: one context per section plus the
// fallbacks for sections it does not list.
type Config struct {
	Sections         map[question.Section]GradingContext `json:"sections" mapstructure:"sections"`
	DefaultMaxPoints float64                             `json:"defaultMaxPoints" mapstructure:"default_max_points"`
	PassPercent      float64                             `json:"passPercent" mapstructure:"pass_percent"`
}

// DefaultConfig weights objective sections at one point per question and
// free-production sections (writing, speaking) at twenty.
func DefaultConfig() Config {
	return Config{
		Sections: map[question.Section]GradingContext{
			question.SectionTheory:    {MaxPoints: 1},
			question.SectionReading:   {MaxPoints: 1},
			question.SectionListening: {MaxPoints: 1},
			question.SectionWriting:   {MaxPoints: 20},
			question.SectionSpeaking:  {MaxPoints: 20},
		},
		DefaultMaxPoints: 1,
		PassPercent:      DefaultPassPercent,
	}
}

// For returns the grading context of a section. Section entries without their
// own pass threshold inherit the table-wide one.
func (c Config) For(section question.Section) GradingContext {
	gc, ok := c.Sections[section]
	if !ok {
		gc = GradingContext{MaxPoints: c.DefaultMaxPoints}
	}
	gc.Section = section
	if gc.MaxPoints <= 0 {
		gc.MaxPoints = c.DefaultMaxPoints
	}
	if gc.PassPercent <= 0 {
		gc.PassPercent = c.PassThreshold()
	}
	return gc
}

// PassThreshold is the exam-wide pass percentage.
func (c Config) PassThreshold() float64 {
	if c.PassPercent <= 0 {
		return DefaultPassPercent
	}
	return c.PassPercent
}
