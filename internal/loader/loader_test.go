package loader

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hirelens/hirelens-backend/internal/model"
)

type stubGenerated struct {
	questions []RawQuestion
	err       error
}

func (s *stubGenerated) Generate(context.Context, string, string, []string) ([]RawQuestion, error) {
	return s.questions, s.err
}

type stubPreAuthored struct {
	assessment *RawAssessment
	err        error
}

func (s *stubPreAuthored) Fetch(context.Context, string, model.CandidateInfo) (*RawAssessment, error) {
	return s.assessment, s.err
}

func newTestLoader(gen GeneratedSource, pre PreAuthoredSource) *Loader {
	return New(gen, pre, zerolog.Nop())
}

func TestLoadGeneratedAssignsOrdinalIDs(t *testing.T) {
	gen := &stubGenerated{questions: []RawQuestion{
		{Type: "MCQ", Text: "q1", Options: map[string]string{"A": "a", "B": "b"}},
		{Type: "coding", Text: "q2", Language: "go"},
		{Text: "q3"},
	}}
	l := newTestLoader(gen, nil)

	set, err := l.LoadGenerated(context.Background(), "golang", "senior", nil)
	if err != nil {
		t.Fatalf("LoadGenerated: %v", err)
	}

	if set.MainLen() != 3 {
		t.Fatalf("main len = %d, want 3", set.MainLen())
	}
	for i, q := range set.Main {
		if q.ID != i+1 {
			t.Fatalf("question %d has id %d, want %d", i, q.ID, i+1)
		}
	}
	if set.Skill != "golang" || set.Level != "senior" {
		t.Fatalf("skill/level = %s/%s", set.Skill, set.Level)
	}
}

func TestLoadGeneratedEmptyFails(t *testing.T) {
	l := newTestLoader(&stubGenerated{}, nil)

	_, err := l.LoadGenerated(context.Background(), "golang", "junior", nil)
	var empty *EmptyQuestionSetError
	if !errors.As(err, &empty) {
		t.Fatalf("error = %v, want EmptyQuestionSetError", err)
	}
	if empty.AssessmentID != "golang/junior" {
		t.Fatalf("empty-set id = %q, want topic/level", empty.AssessmentID)
	}
}

func TestInferTypeSpellings(t *testing.T) {
	cases := []struct {
		raw  RawQuestion
		want model.QuestionType
	}{
		{RawQuestion{Type: "MULTIPLE_CHOICE"}, model.QuestionTypeMultipleChoice},
		{RawQuestion{Type: "mcq"}, model.QuestionTypeMultipleChoice},
		{RawQuestion{Type: " Choice "}, model.QuestionTypeMultipleChoice},
		{RawQuestion{Type: "CODE"}, model.QuestionTypeCoding},
		{RawQuestion{Type: "system_design"}, model.QuestionTypeArchitecture},
		{RawQuestion{Type: "SCREENING"}, model.QuestionTypeScreening},
		// No explicit type: options imply multiple choice, otherwise
		// generic free-text.
		{RawQuestion{Options: map[string]string{"A": "a"}}, model.QuestionTypeMultipleChoice},
		{RawQuestion{}, model.QuestionTypeArchitecture},
	}
	for _, tc := range cases {
		if got := inferType(tc.raw); got != tc.want {
			t.Errorf("inferType(%q/opts=%d) = %s, want %s", tc.raw.Type, len(tc.raw.Options), got, tc.want)
		}
	}
}

func TestLoadPreAuthoredWithScreening(t *testing.T) {
	pre := &stubPreAuthored{assessment: &RawAssessment{
		AssessmentID: "golang-backend-01",
		Title:        "Go Backend Assessment",
		Skill:        "golang",
		Level:        "senior",
		Questions: []RawQuestion{
			{ID: 7, Type: "MULTIPLE_CHOICE", Text: "q", Options: map[string]string{"A": "a"}},
		},
		ScreeningQuestions: []string{"Why this role?", "", "Notice period?"},
	}}
	l := newTestLoader(nil, pre)

	set, err := l.LoadPreAuthored(context.Background(), "golang-backend-01", model.CandidateInfo{})
	if err != nil {
		t.Fatalf("LoadPreAuthored: %v", err)
	}

	if set.Main[0].ID != 7 {
		t.Fatalf("authored id = %d, want 7 preserved", set.Main[0].ID)
	}
	// Blank screening entries are dropped; ids stay dense and negative in
	// ask order.
	if len(set.Screening) != 2 {
		t.Fatalf("screening len = %d, want 2", len(set.Screening))
	}
	if set.Screening[0].ID != -1 || set.Screening[1].ID != -2 {
		t.Fatalf("screening ids = %d,%d, want -1,-2", set.Screening[0].ID, set.Screening[1].ID)
	}
	if set.Screening[0].Text != "Why this role?" || set.Screening[1].Text != "Notice period?" {
		t.Fatalf("screening texts out of order: %+v", set.Screening)
	}
	if set.TotalLen() != 3 {
		t.Fatalf("total len = %d, want 3", set.TotalLen())
	}
}

func TestLoadPreAuthoredDescriptorFallback(t *testing.T) {
	pre := &stubPreAuthored{assessment: &RawAssessment{
		AssessmentID: "golang-backend-01",
		DescriptorQuestions: []RawQuestion{
			{Text: "fallback question"},
		},
	}}
	l := newTestLoader(nil, pre)

	set, err := l.LoadPreAuthored(context.Background(), "golang-backend-01", model.CandidateInfo{})
	if err != nil {
		t.Fatalf("LoadPreAuthored: %v", err)
	}
	if set.MainLen() != 1 || set.Main[0].Text != "fallback question" {
		t.Fatalf("main = %+v, want descriptor fallback", set.Main)
	}
}

func TestLoadPreAuthoredEmptyAfterFallback(t *testing.T) {
	pre := &stubPreAuthored{assessment: &RawAssessment{AssessmentID: "golang-backend-01"}}
	l := newTestLoader(nil, pre)

	_, err := l.LoadPreAuthored(context.Background(), "golang-backend-01", model.CandidateInfo{})
	var empty *EmptyQuestionSetError
	if !errors.As(err, &empty) {
		t.Fatalf("error = %v, want EmptyQuestionSetError", err)
	}
	if empty.AssessmentID != "golang-backend-01" {
		t.Fatalf("empty-set id = %q", empty.AssessmentID)
	}
}

func TestLoadPreAuthoredSourceError(t *testing.T) {
	sourceErr := errors.New("connection refused")
	l := newTestLoader(nil, &stubPreAuthored{err: sourceErr})

	_, err := l.LoadPreAuthored(context.Background(), "golang-backend-01", model.CandidateInfo{})
	if !errors.Is(err, sourceErr) {
		t.Fatalf("error = %v, want wrapped source error", err)
	}
}
