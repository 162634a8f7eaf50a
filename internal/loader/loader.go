package loader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hirelens/hirelens-backend/internal/model"
)

// GeneratedSource produces a fresh question list for a topic/level pair.
type GeneratedSource interface {
	Generate(ctx context.Context, topic, level string, subtopics []string) ([]RawQuestion, error)
}

// PreAuthoredSource resolves an authored assessment by identifier.
type PreAuthoredSource interface {
	Fetch(ctx context.Context, assessmentID string, candidate model.CandidateInfo) (*RawAssessment, error)
}

// RawQuestion is the unnormalized upstream question shape. Type may be
// missing or spelled inconsistently; the loader normalizes it.
type RawQuestion struct {
	ID          int               `json:"id"`
	Type        string            `json:"question_type"`
	Text        string            `json:"question_text"`
	Options     map[string]string `json:"options,omitempty"`
	Language    string            `json:"language,omitempty"`
	Constraints []string          `json:"constraints,omitempty"`
	FocusAreas  []string          `json:"focus_areas,omitempty"`
}

// RawAssessment is the upstream authored-assessment shape. Questions is the
// authored set; DescriptorQuestions is the questions array embedded in the
// assessment descriptor, used as a documented fallback when the authored
// set resolves empty.
type RawAssessment struct {
	AssessmentID        string
	Title               string
	Skill               string
	Level               string
	Questions           []RawQuestion
	DescriptorQuestions []RawQuestion
	ScreeningQuestions  []string
}

// EmptyQuestionSetError means the source succeeded but yielded zero
// questions even after the descriptor fallback. It carries the assessment
// identifier for operator diagnosis; the engine must never render blank.
type EmptyQuestionSetError struct {
	AssessmentID string
}

func (e *EmptyQuestionSetError) Error() string {
	return fmt.Sprintf("assessment %s resolved to an empty question set", e.AssessmentID)
}

// Loader resolves either source into a normalized, ordered QuestionSet.
// The loader is the sole authority over question order; the navigator
// never reorders its output.
type Loader struct {
	generated GeneratedSource
	pre       PreAuthoredSource
	log       zerolog.Logger
}

// New creates a loader over the two question sources.
func New(generated GeneratedSource, pre PreAuthoredSource, log zerolog.Logger) *Loader {
	return &Loader{
		generated: generated,
		pre:       pre,
		log:       log.With().Str("component", "question_loader").Logger(),
	}
}

// LoadGenerated fetches a freshly generated set for topic/level/subtopics.
func (l *Loader) LoadGenerated(ctx context.Context, topic, level string, subtopics []string) (*model.QuestionSet, error) {
	if l.generated == nil {
		return nil, fmt.Errorf("no generated-question source is configured")
	}
	raw, err := l.generated.Generate(ctx, topic, level, subtopics)
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}
	if len(raw) == 0 {
		return nil, &EmptyQuestionSetError{AssessmentID: topic + "/" + level}
	}
	set := &model.QuestionSet{
		Skill:     topic,
		Level:     level,
		Main:      normalize(raw),
		CreatedAt: time.Now(),
	}
	l.log.Info().Str("skill", topic).Str("level", level).Int("count", set.MainLen()).Msg("Generated question set loaded")
	return set, nil
}

// LoadPreAuthored fetches an authored assessment. A zero-question result
// falls back to the descriptor-embedded questions array before failing
// with EmptyQuestionSetError.
func (l *Loader) LoadPreAuthored(ctx context.Context, assessmentID string, candidate model.CandidateInfo) (*model.QuestionSet, error) {
	raw, err := l.pre.Fetch(ctx, assessmentID, candidate)
	if err != nil {
		return nil, fmt.Errorf("fetch assessment %s: %w", assessmentID, err)
	}

	questions := raw.Questions
	if len(questions) == 0 && len(raw.DescriptorQuestions) > 0 {
		l.log.Warn().Str("assessment_id", assessmentID).Msg("Authored set empty, falling back to descriptor questions")
		questions = raw.DescriptorQuestions
	}
	if len(questions) == 0 {
		return nil, &EmptyQuestionSetError{AssessmentID: assessmentID}
	}

	set := &model.QuestionSet{
		AssessmentID: raw.AssessmentID,
		Title:        raw.Title,
		Skill:        raw.Skill,
		Level:        raw.Level,
		Main:         normalize(questions),
		Screening:    screeningQuestions(raw.ScreeningQuestions),
		CreatedAt:    time.Now(),
	}
	l.log.Info().
		Str("assessment_id", assessmentID).
		Int("main", set.MainLen()).
		Int("screening", len(set.Screening)).
		Msg("Pre-authored question set loaded")
	return set, nil
}

// normalize maps raw questions to the typed variant, assigning ordinal ids
// where the upstream carries none.
func normalize(raw []RawQuestion) []model.Question {
	out := make([]model.Question, 0, len(raw))
	for i, r := range raw {
		id := r.ID
		if id <= 0 {
			id = i + 1
		}
		out = append(out, model.Question{
			ID:          id,
			Type:        inferType(r),
			Text:        r.Text,
			Options:     r.Options,
			Language:    r.Language,
			Constraints: r.Constraints,
			FocusAreas:  r.FocusAreas,
		})
	}
	return out
}

// inferType resolves the upstream type string; a question without one is
// multiple-choice when it carries an options map, free-text otherwise.
func inferType(r RawQuestion) model.QuestionType {
	switch strings.ToUpper(strings.TrimSpace(r.Type)) {
	case "MULTIPLE_CHOICE", "MCQ", "CHOICE":
		return model.QuestionTypeMultipleChoice
	case "CODING", "CODE":
		return model.QuestionTypeCoding
	case "ARCHITECTURE", "SYSTEM_DESIGN":
		return model.QuestionTypeArchitecture
	case "SCREENING":
		return model.QuestionTypeScreening
	}
	if len(r.Options) > 0 {
		return model.QuestionTypeMultipleChoice
	}
	return model.QuestionTypeArchitecture
}

// screeningQuestions appends the trailing screening sequence with synthetic
// negative ids in ask order: -1 first, -2 second, and so on.
func screeningQuestions(texts []string) []model.Question {
	out := make([]model.Question, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		out = append(out, model.Question{
			ID:   -(len(out) + 1),
			Type: model.QuestionTypeScreening,
			Text: t,
		})
	}
	return out
}
