package submit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hirelens/hirelens-backend/internal/engine"
	"github.com/hirelens/hirelens-backend/internal/model"
)

// fakeService records submissions and can be told to fail.
type fakeService struct {
	mu         sync.Mutex
	failNext   bool
	submits    [][]model.AnswerItem
	sessionIDs []string
	screenings []ScreeningSubmission
	outcome    Outcome
}

func (f *fakeService) StartSession(context.Context, string, model.CandidateInfo) (string, error) {
	return "remote-1", nil
}

func (f *fakeService) Submit(_ context.Context, sessionID string, answers []model.AnswerItem, _ bool) (*Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, answers)
	f.sessionIDs = append(f.sessionIDs, sessionID)
	if f.failNext {
		f.failNext = false
		return nil, errors.New("upstream unavailable")
	}
	out := f.outcome
	return &out, nil
}

func (f *fakeService) SubmitScreening(_ context.Context, _ string, sub ScreeningSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.screenings = append(f.screenings, sub)
	return nil
}

func testSet() *model.QuestionSet {
	opts := map[string]string{"A": "a", "B": "b"}
	return &model.QuestionSet{
		AssessmentID: "golang-backend-01",
		Main: []model.Question{
			{ID: 1, Type: model.QuestionTypeMultipleChoice, Text: "q1", Options: opts},
			{ID: 2, Type: model.QuestionTypeMultipleChoice, Text: "q2", Options: opts},
			{ID: 3, Type: model.QuestionTypeMultipleChoice, Text: "q3", Options: opts},
		},
		Screening: []model.Question{
			{ID: -1, Type: model.QuestionTypeScreening, Text: "s1"},
			{ID: -2, Type: model.QuestionTypeScreening, Text: "s2"},
		},
	}
}

func TestBuildPayloadCoversEveryMainQuestion(t *testing.T) {
	set := testSet()
	answers := []engine.AnswerEntry{
		{QuestionID: 2, Value: "B"},
		{QuestionID: -1, Value: "screening text"},
	}

	payload := BuildPayload(set, answers)

	if len(payload) != set.MainLen() {
		t.Fatalf("payload length = %d, want %d (every main question exactly once)", len(payload), set.MainLen())
	}
	byID := make(map[int]string, len(payload))
	for _, item := range payload {
		byID[item.QuestionID] = item.Answer
	}
	if byID[1] != model.NotAnsweredSentinel {
		t.Fatalf("unanswered question 1 = %q, want sentinel", byID[1])
	}
	if byID[2] != "B" {
		t.Fatalf("answered question 2 = %q, want B", byID[2])
	}
	if byID[3] != model.NotAnsweredSentinel {
		t.Fatalf("unanswered question 3 = %q, want sentinel", byID[3])
	}
	// Screening answers never leak into the primary payload.
	if _, ok := byID[-1]; ok {
		t.Fatal("screening answer present in primary payload")
	}
}

func TestBuildPayloadEmptyValueBecomesSentinel(t *testing.T) {
	set := testSet()
	answers := []engine.AnswerEntry{{QuestionID: 1, Value: ""}}

	payload := BuildPayload(set, answers)

	if payload[0].Answer != model.NotAnsweredSentinel {
		t.Fatalf("reverted answer = %q, want sentinel", payload[0].Answer)
	}
}

func TestScreeningAnswersOrderedByAskOrder(t *testing.T) {
	answers := []engine.AnswerEntry{
		{QuestionID: 3, Value: "C"},
		{QuestionID: -2, Value: "second asked"},
		{QuestionID: -1, Value: "first asked"},
	}

	out := ScreeningAnswers(answers)

	if len(out) != 2 {
		t.Fatalf("screening answers = %d, want 2", len(out))
	}
	if out[0].QuestionID != -1 || out[1].QuestionID != -2 {
		t.Fatalf("order = %d,%d, want -1,-2", out[0].QuestionID, out[1].QuestionID)
	}
	if out[0].Answer != "first asked" {
		t.Fatalf("first screening answer = %q", out[0].Answer)
	}
}

func newSubmittingSession(t *testing.T, set *model.QuestionSet) *engine.Session {
	t.Helper()
	s := engine.NewSession(set, engine.Options{
		Candidate:       model.CandidateInfo{Email: "dev@example.com", Name: "Dev"},
		RemoteSessionID: "remote-1",
	})
	if err := s.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := s.SetAnswer("A"); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}
	s.ForceSubmit("candidate_request")
	return s
}

func TestRetryReplaysIdenticalPayload(t *testing.T) {
	svc := &fakeService{failNext: true, outcome: Outcome{ScorePercentage: 66.7, CorrectAnswers: 2}}
	c := NewCoordinator(svc, nil, nil, nil, zerolog.Nop())
	sess := newSubmittingSession(t, testSet())

	// First attempt fails; answers are preserved and the session is
	// retryable, not lost.
	result := c.Retry(context.Background(), sess)
	if result.Status != model.SubmissionStatusFailed {
		t.Fatalf("status = %s, want %s", result.Status, model.SubmissionStatusFailed)
	}
	if result.Error == "" {
		t.Fatal("failed result carries no error detail")
	}
	if got := sess.Phase(); got != model.PhaseFailed {
		t.Fatalf("phase = %s, want %s", got, model.PhaseFailed)
	}

	// The retry sends the same payload to the same remote session.
	result = c.Retry(context.Background(), sess)
	if result.Status != model.SubmissionStatusSubmitted {
		t.Fatalf("retry status = %s, want %s", result.Status, model.SubmissionStatusSubmitted)
	}
	if got := sess.Phase(); got != model.PhaseSubmitted {
		t.Fatalf("phase after retry = %s, want %s", got, model.PhaseSubmitted)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if len(svc.submits) != 2 {
		t.Fatalf("submit calls = %d, want 2", len(svc.submits))
	}
	if svc.sessionIDs[0] != svc.sessionIDs[1] {
		t.Fatalf("retry hit a different session: %q vs %q", svc.sessionIDs[0], svc.sessionIDs[1])
	}
	if len(svc.submits[0]) != len(svc.submits[1]) {
		t.Fatalf("retry payload size changed: %d vs %d", len(svc.submits[0]), len(svc.submits[1]))
	}
	for i := range svc.submits[0] {
		if svc.submits[0][i] != svc.submits[1][i] {
			t.Fatalf("retry payload differs at %d: %+v vs %+v", i, svc.submits[0][i], svc.submits[1][i])
		}
	}
}

func TestRunSubmitsScreeningOnSecondaryChannel(t *testing.T) {
	svc := &fakeService{outcome: Outcome{ScorePercentage: 100, CorrectAnswers: 3}}
	c := NewCoordinator(svc, nil, nil, nil, zerolog.Nop())

	set := testSet()
	s := engine.NewSession(set, engine.Options{
		Candidate:       model.CandidateInfo{Email: "dev@example.com"},
		RemoteSessionID: "remote-1",
	})
	if err := s.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	for _, answer := range []string{"A", "B", "C", "yes", "two weeks"} {
		if err := s.Advance(answer); err != nil {
			t.Fatalf("Advance(%q): %v", answer, err)
		}
	}

	result := c.Retry(context.Background(), s)
	if result.Status != model.SubmissionStatusSubmitted {
		t.Fatalf("status = %s", result.Status)
	}
	if result.ScorePercentage != 100 || result.CorrectCount != 3 {
		t.Fatalf("outcome not carried: %+v", result)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if len(svc.screenings) != 1 {
		t.Fatalf("screening submissions = %d, want 1", len(svc.screenings))
	}
	sub := svc.screenings[0]
	if sub.CandidateSessionID != "remote-1" {
		t.Fatalf("candidate session id = %q", sub.CandidateSessionID)
	}
	if len(sub.Answers) != 2 || sub.Answers[0].Answer != "yes" || sub.Answers[1].Answer != "two weeks" {
		t.Fatalf("screening answers = %+v", sub.Answers)
	}
}

func TestScreeningFailureDoesNotFailSubmission(t *testing.T) {
	svc := &screeningFailingService{fakeService{outcome: Outcome{ScorePercentage: 50}}}
	c := NewCoordinator(svc, nil, nil, nil, zerolog.Nop())

	set := testSet()
	s := engine.NewSession(set, engine.Options{RemoteSessionID: "remote-1"})
	if err := s.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	for _, answer := range []string{"A", "B", "C", "yes", "no"} {
		if err := s.Advance(answer); err != nil {
			t.Fatalf("Advance: %v", err)
		}
	}

	result := c.Retry(context.Background(), s)
	if result.Status != model.SubmissionStatusSubmitted {
		t.Fatalf("screening failure flipped the primary status: %s", result.Status)
	}
}

type screeningFailingService struct {
	fakeService
}

func (s *screeningFailingService) SubmitScreening(context.Context, string, ScreeningSubmission) error {
	return errors.New("screening endpoint down")
}
