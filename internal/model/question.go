package model

import (
	"time"
)

// QuestionType enumerates the supported question variants.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeCoding         QuestionType = "CODING"
	QuestionTypeArchitecture   QuestionType = "ARCHITECTURE"
	QuestionTypeScreening      QuestionType = "SCREENING"
)

// questionDurations is the single dispatch table mapping type to its fixed
// time budget. Durations are a property of the type, never of the instance.
var questionDurations = map[QuestionType]time.Duration{
	QuestionTypeMultipleChoice: 30 * time.Second,
	QuestionTypeCoding:         600 * time.Second,
	QuestionTypeArchitecture:   120 * time.Second,
	QuestionTypeScreening:      120 * time.Second,
}

// Duration returns the fixed per-question budget for this type.
func (t QuestionType) Duration() time.Duration {
	if d, ok := questionDurations[t]; ok {
		return d
	}
	// Unknown types fall back to the multiple-choice budget.
	return questionDurations[QuestionTypeMultipleChoice]
}

// RequiresAnswer reports whether an empty answer blocks advance().
// Free-text types are mandatory; multiple-choice may be skipped.
func (t QuestionType) RequiresAnswer() bool {
	switch t {
	case QuestionTypeCoding, QuestionTypeArchitecture, QuestionTypeScreening:
		return true
	default:
		return false
	}
}

// Question is immutable once loaded. Main-sequence questions carry positive
// ids; screening questions are assigned synthetic negative ids (-1, -2, ...)
// so both share the answer namespace without collision.
type Question struct {
	ID          int               `json:"id"`
	Type        QuestionType      `json:"type"`
	Text        string            `json:"text"`
	Options     map[string]string `json:"options,omitempty"`     // multiple-choice
	Language    string            `json:"language,omitempty"`    // coding
	Constraints []string          `json:"constraints,omitempty"` // coding
	FocusAreas  []string          `json:"focus_areas,omitempty"` // architecture
}

// QuestionSet is the ordered question sequence produced by the loader:
// the main sequence followed logically by the screening sequence.
// Immutable after load; the navigator never reorders it.
type QuestionSet struct {
	AssessmentID string     `json:"assessment_id,omitempty"`
	Title        string     `json:"title,omitempty"`
	Skill        string     `json:"skill,omitempty"`
	Level        string     `json:"level,omitempty"`
	Main         []Question `json:"main"`
	Screening    []Question `json:"screening,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// MainLen returns the number of main-sequence questions.
func (s *QuestionSet) MainLen() int { return len(s.Main) }

// TotalLen returns the combined length of the main and screening sequences.
func (s *QuestionSet) TotalLen() int { return len(s.Main) + len(s.Screening) }

// At returns the question at the given combined index, main first.
// Returns nil for the terminal index (TotalLen) and out-of-range values.
func (s *QuestionSet) At(index int) *Question {
	if index < 0 {
		return nil
	}
	if index < len(s.Main) {
		return &s.Main[index]
	}
	if j := index - len(s.Main); j < len(s.Screening) {
		return &s.Screening[j]
	}
	return nil
}

// InitialBudget is the overall session budget: the sum of every question's
// fixed duration across the combined sequence.
func (s *QuestionSet) InitialBudget() time.Duration {
	var total time.Duration
	for i := 0; i < s.TotalLen(); i++ {
		total += s.At(i).Type.Duration()
	}
	return total
}
