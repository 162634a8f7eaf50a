package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hirelens/hirelens-backend/internal/model"
)

func mcq(id int) model.Question {
	return model.Question{
		ID:   id,
		Type: model.QuestionTypeMultipleChoice,
		Text: "pick one",
		Options: map[string]string{
			"A": "first", "B": "second", "C": "third", "D": "fourth",
		},
	}
}

func coding(id int) model.Question {
	return model.Question{ID: id, Type: model.QuestionTypeCoding, Text: "write code", Language: "go"}
}

func architecture(id int) model.Question {
	return model.Question{ID: id, Type: model.QuestionTypeArchitecture, Text: "design it"}
}

func screening(id int) model.Question {
	return model.Question{ID: id, Type: model.QuestionTypeScreening, Text: "tell us about yourself"}
}

// eventRecorder collects sink events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) sink(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func mustBegin(t *testing.T, s *Session) {
	t.Helper()
	if err := s.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
}

func tickN(s *Session, n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}

func TestBeginVisitsFirstQuestion(t *testing.T) {
	set := &model.QuestionSet{Main: []model.Question{mcq(1), coding(2)}}
	s := NewSession(set, Options{})

	if got := s.Phase(); got != model.PhasePreStart {
		t.Fatalf("phase before begin = %s, want %s", got, model.PhasePreStart)
	}

	mustBegin(t, s)

	if got := s.Phase(); got != model.PhaseRunning {
		t.Fatalf("phase = %s, want %s", got, model.PhaseRunning)
	}
	if got := s.Status(0); got != model.StatusNotAnswered {
		t.Fatalf("status[0] = %s, want %s", got, model.StatusNotAnswered)
	}
	if got := s.QuestionRemaining(); got != 30*time.Second {
		t.Fatalf("question remaining = %v, want 30s", got)
	}
	// Nothing is completed yet, so the full budget is available.
	if got, want := s.OverallRemaining(), set.InitialBudget(); got != want {
		t.Fatalf("overall remaining = %v, want %v", got, want)
	}
}

func TestBeginIsIdempotent(t *testing.T) {
	set := &model.QuestionSet{Main: []model.Question{mcq(1)}}
	s := NewSession(set, Options{})
	mustBegin(t, s)
	tickN(s, 5)

	mustBegin(t, s)

	if got := s.QuestionRemaining(); got != 25*time.Second {
		t.Fatalf("second Begin reset the question timer: remaining = %v, want 25s", got)
	}
}

func TestAdvanceRecordsAnswerAndChargesBudget(t *testing.T) {
	set := &model.QuestionSet{Main: []model.Question{mcq(1), mcq(2), coding(3)}}
	s := NewSession(set, Options{})
	mustBegin(t, s)

	if err := s.Advance("B"); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	if got := s.Status(0); got != model.StatusAnswered {
		t.Fatalf("status[0] = %s, want %s", got, model.StatusAnswered)
	}
	entries := s.Answers()
	if len(entries) != 1 || entries[0].QuestionID != 1 || entries[0].Value != "B" {
		t.Fatalf("answers = %+v, want [{1 B}]", entries)
	}
	// Only the completed question's fixed duration is charged.
	if got, want := s.OverallRemaining(), set.InitialBudget()-30*time.Second; got != want {
		t.Fatalf("overall remaining = %v, want %v", got, want)
	}
}

func TestAdvanceSkipsMultipleChoiceWithoutCharge(t *testing.T) {
	set := &model.QuestionSet{Main: []model.Question{mcq(1), mcq(2)}}
	s := NewSession(set, Options{})
	mustBegin(t, s)

	if err := s.Advance(""); err != nil {
		t.Fatalf("Advance with empty answer on multiple choice: %v", err)
	}

	if got := s.Status(0); got != model.StatusNotAnswered {
		t.Fatalf("status[0] = %s, want %s", got, model.StatusNotAnswered)
	}
	// A skipped question is not completed, so its slot stays available.
	if got, want := s.OverallRemaining(), set.InitialBudget(); got != want {
		t.Fatalf("overall remaining = %v, want %v", got, want)
	}
}

func TestAdvanceRequiresAnswerForFreeText(t *testing.T) {
	set := &model.QuestionSet{Main: []model.Question{coding(1), mcq(2)}}
	s := NewSession(set, Options{})
	mustBegin(t, s)

	err := s.Advance("")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Advance error = %v, want ValidationError", err)
	}
	if verr.QuestionID != 1 {
		t.Fatalf("validation question id = %d, want 1", verr.QuestionID)
	}
	if got := s.Phase(); got != model.PhaseRunning {
		t.Fatalf("phase after rejected advance = %s, want %s", got, model.PhaseRunning)
	}
}

func TestAnswerRevertToUnanswered(t *testing.T) {
	set := &model.QuestionSet{Main: []model.Question{mcq(1), mcq(2)}}
	s := NewSession(set, Options{})
	mustBegin(t, s)

	if err := s.SetAnswer("C"); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}
	if got := s.Status(0); got != model.StatusAnswered {
		t.Fatalf("status[0] = %s, want %s", got, model.StatusAnswered)
	}

	// Clearing the value reverts the status. Last write wins.
	if err := s.SetAnswer(""); err != nil {
		t.Fatalf("SetAnswer clear: %v", err)
	}
	if got := s.Status(0); got != model.StatusNotAnswered {
		t.Fatalf("status[0] after revert = %s, want %s", got, model.StatusNotAnswered)
	}
}

func TestQuestionExpiryLocksPermanently(t *testing.T) {
	rec := &eventRecorder{}
	set := &model.QuestionSet{Main: []model.Question{mcq(1), mcq(2)}}
	s := NewSession(set, Options{Sink: rec.sink})
	mustBegin(t, s)

	tickN(s, 30)

	if got := s.Status(0); got != model.StatusExpired {
		t.Fatalf("status[0] = %s, want %s", got, model.StatusExpired)
	}
	if got := s.Phase(); got != model.PhaseRunning {
		t.Fatalf("phase = %s, want %s", got, model.PhaseRunning)
	}
	entries := s.Answers()
	if len(entries) != 1 || entries[0].Value != model.NotAnsweredSentinel {
		t.Fatalf("answers = %+v, want sentinel for question 1", entries)
	}

	// The expired index can never be reopened.
	if err := s.NavigateTo(0); !errors.Is(err, ErrQuestionLocked) {
		t.Fatalf("NavigateTo(0) = %v, want ErrQuestionLocked", err)
	}
	if rec.count(EventLocked) != 1 {
		t.Fatalf("locked events = %d, want 1", rec.count(EventLocked))
	}
}

func TestForceAdvanceSkipsExpiredQuestion(t *testing.T) {
	set := &model.QuestionSet{Main: []model.Question{mcq(1), mcq(2), mcq(3)}}
	s := NewSession(set, Options{})
	mustBegin(t, s)

	if err := s.NavigateTo(1); err != nil {
		t.Fatalf("NavigateTo(1): %v", err)
	}
	tickN(s, 30) // Expire question 2; auto-advance lands on 3.
	if got := s.Project().CurrentIndex; got != 2 {
		t.Fatalf("current index after expiry = %d, want 2", got)
	}

	// Go back to the first question and advance past the locked slot.
	if err := s.NavigateTo(0); err != nil {
		t.Fatalf("NavigateTo(0): %v", err)
	}
	if err := s.Advance("A"); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	if got := s.Project().CurrentIndex; got != 2 {
		t.Fatalf("advance landed on index %d, want 2 (expired slot skipped)", got)
	}
	if got := s.QuestionRemaining(); got != 30*time.Second {
		t.Fatalf("question remaining = %v, want a fresh 30s on the open question", got)
	}
	if got := s.Status(1); got != model.StatusExpired {
		t.Fatalf("status[1] = %s, want %s", got, model.StatusExpired)
	}

	// Editing now targets the open question, never the locked one.
	if err := s.SetAnswer("B"); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}
	if got := s.Status(1); got != model.StatusExpired {
		t.Fatalf("status[1] after edit = %s, want %s", got, model.StatusExpired)
	}
	for _, e := range s.Answers() {
		if e.QuestionID == 2 && e.Value != model.NotAnsweredSentinel {
			t.Fatalf("expired question answer = %q, want sentinel", e.Value)
		}
	}
}

func TestAnswerOnLockedQuestionRejected(t *testing.T) {
	set := &model.QuestionSet{Main: []model.Question{architecture(1), mcq(2)}}
	s := NewSession(set, Options{})
	mustBegin(t, s)

	// Lock the current slot out from under the edit paths.
	s.st.ExpiredIndices[0] = true

	if err := s.SetAnswer("late answer"); !errors.Is(err, ErrQuestionLocked) {
		t.Fatalf("SetAnswer on locked question = %v, want ErrQuestionLocked", err)
	}
	if err := s.AppendTranscript("late transcript"); !errors.Is(err, ErrQuestionLocked) {
		t.Fatalf("AppendTranscript on locked question = %v, want ErrQuestionLocked", err)
	}
	if got := len(s.Answers()); got != 0 {
		t.Fatalf("answer entries = %d, want 0", got)
	}
}

func TestNavigateOutOfRange(t *testing.T) {
	set := &model.QuestionSet{Main: []model.Question{mcq(1)}}
	s := NewSession(set, Options{})
	mustBegin(t, s)

	if err := s.NavigateTo(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("NavigateTo(-1) = %v, want ErrIndexOutOfRange", err)
	}
	if err := s.NavigateTo(5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("NavigateTo(5) = %v, want ErrIndexOutOfRange", err)
	}
}

func TestSnappedBucketDoesNotBorrowElapsedTime(t *testing.T) {
	set := &model.QuestionSet{Main: []model.Question{mcq(1), coding(2), mcq(3)}}
	s := NewSession(set, Options{})
	mustBegin(t, s)

	if err := s.Advance("A"); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	// Spend only 5 of the coding question's 600 seconds.
	tickN(s, 5)
	if err := s.Advance("package main"); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	// Finishing early neither donates nor borrows: the bucket charges the
	// full fixed duration of each completed question.
	want := set.InitialBudget() - 30*time.Second - 600*time.Second
	if got := s.OverallRemaining(); got != want {
		t.Fatalf("overall remaining = %v, want %v", got, want)
	}
}

func TestRevisitingAnsweredQuestionKeepsCharge(t *testing.T) {
	set := &model.QuestionSet{Main: []model.Question{mcq(1), mcq(2), mcq(3)}}
	s := NewSession(set, Options{})
	mustBegin(t, s)

	if err := s.Advance("A"); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if err := s.NavigateTo(0); err != nil {
		t.Fatalf("NavigateTo(0): %v", err)
	}

	// While re-open, the answered slot is the current index and is excluded
	// from the spent sum.
	if got, want := s.OverallRemaining(), set.InitialBudget(); got != want {
		t.Fatalf("overall remaining on revisit = %v, want %v", got, want)
	}
	// The per-question timer starts fresh on every visit.
	if got := s.QuestionRemaining(); got != 30*time.Second {
		t.Fatalf("question remaining = %v, want 30s", got)
	}

	if err := s.NavigateTo(2); err != nil {
		t.Fatalf("NavigateTo(2): %v", err)
	}
	if got, want := s.OverallRemaining(), set.InitialBudget()-30*time.Second; got != want {
		t.Fatalf("overall remaining = %v, want %v", got, want)
	}
}

func TestScreeningSequenceFollowsMain(t *testing.T) {
	set := &model.QuestionSet{
		Main:      []model.Question{mcq(1)},
		Screening: []model.Question{screening(-1), screening(-2)},
	}
	s := NewSession(set, Options{})
	mustBegin(t, s)

	if err := s.Advance("A"); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if got := s.Phase(); got != model.PhaseScreening {
		t.Fatalf("phase = %s, want %s", got, model.PhaseScreening)
	}

	// Screening questions are mandatory.
	if err := s.Advance(""); err == nil {
		t.Fatal("Advance with empty screening answer succeeded, want validation error")
	}
	if err := s.Advance("five years of Go"); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if err := s.Advance("remote preferred"); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	if got := s.Phase(); got != model.PhaseSubmitting {
		t.Fatalf("phase = %s, want %s", got, model.PhaseSubmitting)
	}
}

func TestOverallExhaustionForcesSubmission(t *testing.T) {
	submissions := 0
	var mu sync.Mutex
	submit := func(*Session) {
		mu.Lock()
		submissions++
		mu.Unlock()
	}
	set := &model.QuestionSet{Main: []model.Question{mcq(1), mcq(2)}}
	s := NewSession(set, Options{Submit: submit})
	mustBegin(t, s)

	// 60 seconds total; never answer anything.
	tickN(s, 60)

	if got := s.Phase(); got != model.PhaseSubmitting {
		t.Fatalf("phase = %s, want %s", got, model.PhaseSubmitting)
	}
	if got := s.OverallRemaining(); got != 0 {
		t.Fatalf("overall remaining = %v, want 0", got)
	}

	// Further ticks and commands must be inert.
	tickN(s, 10)
	if err := s.Advance("A"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("Advance after submitting = %v, want ErrSessionClosed", err)
	}

	time.Sleep(20 * time.Millisecond) // Let the submit goroutine run.
	mu.Lock()
	defer mu.Unlock()
	if submissions != 1 {
		t.Fatalf("submit callbacks = %d, want 1", submissions)
	}
}

func TestForceSubmitFiresOnce(t *testing.T) {
	submissions := 0
	var mu sync.Mutex
	submit := func(*Session) {
		mu.Lock()
		submissions++
		mu.Unlock()
	}
	set := &model.QuestionSet{Main: []model.Question{mcq(1)}}
	s := NewSession(set, Options{Submit: submit})
	mustBegin(t, s)

	s.ForceSubmit("candidate_request")
	s.ForceSubmit("candidate_request")

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if submissions != 1 {
		t.Fatalf("submit callbacks = %d, want 1", submissions)
	}
}

func TestViolationDebounceAndLimit(t *testing.T) {
	clock := newFakeClock()
	rec := &eventRecorder{}
	set := &model.QuestionSet{Main: []model.Question{mcq(1)}}
	s := NewSession(set, Options{Sink: rec.sink, Now: clock.now, ViolationLimit: 2})
	mustBegin(t, s)

	// A fullscreen exit usually fires a visibility change too; within the
	// debounce window they count once.
	s.ReportViolation("fullscreen_exit")
	s.ReportViolation("visibility_hidden")

	if got := rec.count(EventViolation); got != 1 {
		t.Fatalf("violation events = %d, want 1", got)
	}
	if got := s.Phase(); got != model.PhaseRunning {
		t.Fatalf("phase after first violation = %s, want %s", got, model.PhaseRunning)
	}

	clock.advance(2 * time.Second)
	s.ReportViolation("fullscreen_exit")

	if got := rec.count(EventViolation); got != 2 {
		t.Fatalf("violation events = %d, want 2", got)
	}
	if got := s.Phase(); got != model.PhaseSubmitting {
		t.Fatalf("phase after limit = %s, want %s", got, model.PhaseSubmitting)
	}
}

func TestViolationIgnoredBeforeStartAndAfterEnd(t *testing.T) {
	clock := newFakeClock()
	set := &model.QuestionSet{Main: []model.Question{mcq(1)}}
	s := NewSession(set, Options{Now: clock.now})

	s.ReportViolation("fullscreen_exit")
	mustBegin(t, s)
	if got := s.Phase(); got != model.PhaseRunning {
		t.Fatalf("pre-start violation affected phase: %s", got)
	}

	s.ForceSubmit("candidate_request")
	clock.advance(2 * time.Second)
	s.ReportViolation("fullscreen_exit")
	// No panic, no state change past terminal.
	if got := s.Phase(); got != model.PhaseSubmitting {
		t.Fatalf("phase = %s, want %s", got, model.PhaseSubmitting)
	}
}

func TestMarkForReviewIsCosmetic(t *testing.T) {
	set := &model.QuestionSet{Main: []model.Question{mcq(1), mcq(2)}}
	s := NewSession(set, Options{})
	mustBegin(t, s)

	before := s.OverallRemaining()
	if err := s.MarkForReview(1, true); err != nil {
		t.Fatalf("MarkForReview: %v", err)
	}
	if got := s.OverallRemaining(); got != before {
		t.Fatalf("marking changed the budget: %v -> %v", before, got)
	}

	p := s.Project()
	if len(p.MarkedIndices) != 1 || p.MarkedIndices[0] != 1 {
		t.Fatalf("marked = %v, want [1]", p.MarkedIndices)
	}

	if err := s.MarkForReview(1, false); err != nil {
		t.Fatalf("MarkForReview unmark: %v", err)
	}
	if p := s.Project(); len(p.MarkedIndices) != 0 {
		t.Fatalf("marked after unmark = %v, want empty", p.MarkedIndices)
	}
}

func TestTranscriptAppendsToFreeText(t *testing.T) {
	set := &model.QuestionSet{Main: []model.Question{architecture(1), mcq(2)}}
	s := NewSession(set, Options{})
	mustBegin(t, s)

	if err := s.AppendTranscript("use a queue"); err != nil {
		t.Fatalf("AppendTranscript: %v", err)
	}
	if err := s.AppendTranscript("between the services"); err != nil {
		t.Fatalf("AppendTranscript: %v", err)
	}

	entries := s.Answers()
	if len(entries) != 1 || entries[0].Value != "use a queue between the services" {
		t.Fatalf("answers = %+v, want joined transcript", entries)
	}

	// Multiple choice ignores transcripts.
	if err := s.Advance("use a queue between the services"); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if err := s.AppendTranscript("option b maybe"); err != nil {
		t.Fatalf("AppendTranscript on mcq: %v", err)
	}
	if got := len(s.Answers()); got != 1 {
		t.Fatalf("answer entries = %d, want 1", got)
	}
}

func TestLowTimeWarningsFireOncePerThreshold(t *testing.T) {
	rec := &eventRecorder{}
	// Three architecture questions: 360s total, crossing the 300s mark.
	set := &model.QuestionSet{Main: []model.Question{architecture(1), architecture(2), architecture(3)}}
	s := NewSession(set, Options{Sink: rec.sink})
	mustBegin(t, s)

	tickN(s, 70)

	if got := rec.count(EventWarning); got != 1 {
		t.Fatalf("warning events after crossing 300s = %d, want 1", got)
	}
}

func TestNoWarningWhenBudgetStartsBelowThreshold(t *testing.T) {
	rec := &eventRecorder{}
	// Three multiple-choice questions: 90s total, already under the 300s
	// mark when the clock starts.
	set := &model.QuestionSet{Main: []model.Question{mcq(1), mcq(2), mcq(3)}}
	s := NewSession(set, Options{Sink: rec.sink})
	mustBegin(t, s)

	tickN(s, 5)

	if got := rec.count(EventWarning); got != 0 {
		t.Fatalf("warning events for a sub-threshold budget = %d, want 0", got)
	}
}

func TestCompleteSubmissionOutcomes(t *testing.T) {
	set := &model.QuestionSet{Main: []model.Question{mcq(1)}}
	s := NewSession(set, Options{})
	mustBegin(t, s)
	s.ForceSubmit("candidate_request")

	s.CompleteSubmission(&model.SubmissionResult{
		Status: model.SubmissionStatusFailed,
		Error:  "connection refused",
	})
	if got := s.Phase(); got != model.PhaseFailed {
		t.Fatalf("phase = %s, want %s", got, model.PhaseFailed)
	}

	// A retry that succeeds moves the session to its final phase.
	s.CompleteSubmission(&model.SubmissionResult{
		Status:          model.SubmissionStatusSubmitted,
		ScorePercentage: 80,
		CorrectCount:    4,
	})
	if got := s.Phase(); got != model.PhaseSubmitted {
		t.Fatalf("phase = %s, want %s", got, model.PhaseSubmitted)
	}
	if r := s.Result(); r == nil || r.ScorePercentage != 80 {
		t.Fatalf("result = %+v, want score 80", s.Result())
	}
}
