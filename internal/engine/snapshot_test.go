package engine

import (
	"testing"
	"time"

	"github.com/hirelens/hirelens-backend/internal/model"
)

func TestSnapshotCarriesFullProgress(t *testing.T) {
	set := &model.QuestionSet{
		AssessmentID: "golang-backend-01",
		Title:        "Go Backend Assessment",
		Main:         []model.Question{mcq(1), mcq(2), coding(3)},
	}
	s := NewSession(set, Options{
		Candidate:       model.CandidateInfo{Email: "dev@example.com", Name: "Dev"},
		RemoteSessionID: "remote-123",
	})
	mustBegin(t, s)

	if err := s.Advance("A"); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	tickN(s, 30) // Expire question 2.

	snap := s.Snapshot()

	if snap.CandidateEmail != "dev@example.com" {
		t.Fatalf("candidate email = %q", snap.CandidateEmail)
	}
	if snap.AssessmentID != "golang-backend-01" {
		t.Fatalf("assessment id = %q", snap.AssessmentID)
	}
	if snap.RemoteSessionID != "remote-123" {
		t.Fatalf("remote session id = %q", snap.RemoteSessionID)
	}
	if snap.CurrentIndex != 2 {
		t.Fatalf("current index = %d, want 2", snap.CurrentIndex)
	}
	if len(snap.ExpiredIndices) != 1 || snap.ExpiredIndices[0] != 1 {
		t.Fatalf("expired indices = %v, want [1]", snap.ExpiredIndices)
	}
	if snap.TotalQuestions != 3 {
		t.Fatalf("total questions = %d, want 3", snap.TotalQuestions)
	}
	if snap.IsCompleted {
		t.Fatal("snapshot marked completed for a running session")
	}
	// Two slots of 30s are charged from the 660s budget.
	if snap.RemainingSeconds != 600 {
		t.Fatalf("remaining seconds = %d, want 600", snap.RemainingSeconds)
	}
	if snap.InitialBudgetSeconds != 660 {
		t.Fatalf("initial budget seconds = %d, want 660", snap.InitialBudgetSeconds)
	}
}

func TestRestoreResumesWithSavedBudget(t *testing.T) {
	set := &model.QuestionSet{
		AssessmentID: "golang-backend-01",
		Main:         []model.Question{mcq(1), mcq(2), coding(3)},
	}

	first := NewSession(set, Options{Candidate: model.CandidateInfo{Email: "dev@example.com"}})
	mustBegin(t, first)
	if err := first.Advance("A"); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if err := first.SetAnswer("B"); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}
	tickN(first, 10)
	snap := first.Snapshot()

	// Simulate a reload: a fresh session hydrated from the snapshot.
	second := NewSession(set, Options{
		Candidate: model.CandidateInfo{Email: "dev@example.com"},
		Restore:   &snap,
	})
	mustBegin(t, second)

	if got := second.Phase(); got != model.PhaseRunning {
		t.Fatalf("phase = %s, want %s", got, model.PhaseRunning)
	}
	if got := second.Project().CurrentIndex; got != snap.CurrentIndex {
		t.Fatalf("current index = %d, want %d", got, snap.CurrentIndex)
	}
	// The saved budget is authoritative: resuming must not re-derive it
	// from the status map, which would hand back already-spent time.
	if got := second.OverallRemaining(); got != time.Duration(snap.RemainingSeconds)*time.Second {
		t.Fatalf("overall remaining = %v, want %ds", got, snap.RemainingSeconds)
	}

	entries := second.Answers()
	if len(entries) != 2 {
		t.Fatalf("restored answers = %+v, want 2 entries", entries)
	}
	if got := second.Status(0); got != model.StatusAnswered {
		t.Fatalf("status[0] = %s, want %s", got, model.StatusAnswered)
	}
}

func TestRestorePreservesExpiredLocks(t *testing.T) {
	set := &model.QuestionSet{Main: []model.Question{mcq(1), mcq(2), mcq(3)}}

	first := NewSession(set, Options{Candidate: model.CandidateInfo{Email: "dev@example.com"}})
	mustBegin(t, first)
	tickN(first, 30) // Expire question 1.
	snap := first.Snapshot()

	second := NewSession(set, Options{
		Candidate: model.CandidateInfo{Email: "dev@example.com"},
		Restore:   &snap,
	})
	mustBegin(t, second)

	if err := second.NavigateTo(0); err != ErrQuestionLocked {
		t.Fatalf("NavigateTo(0) after restore = %v, want ErrQuestionLocked", err)
	}
	if got := second.Status(0); got != model.StatusExpired {
		t.Fatalf("status[0] = %s, want %s", got, model.StatusExpired)
	}
}

func TestRestoreResumesPastExpiredSavedIndex(t *testing.T) {
	set := &model.QuestionSet{Main: []model.Question{mcq(1), mcq(2), mcq(3)}}
	snap := &Snapshot{
		CandidateEmail: "dev@example.com",
		CurrentIndex:   1,
		ExpiredIndices: []int{1},
		QuestionStatus: map[int]model.QuestionStatus{1: model.StatusExpired},
	}

	s := NewSession(set, Options{Restore: snap})
	mustBegin(t, s)

	// A snapshot pointing at a locked slot resumes on the next open one.
	if got := s.Project().CurrentIndex; got != 2 {
		t.Fatalf("current index = %d, want 2", got)
	}
	if got := s.Status(1); got != model.StatusExpired {
		t.Fatalf("status[1] = %s, want %s", got, model.StatusExpired)
	}
}

func TestRestoreClampsCorruptIndex(t *testing.T) {
	set := &model.QuestionSet{Main: []model.Question{mcq(1), mcq(2)}}
	snap := &Snapshot{
		CandidateEmail:   "dev@example.com",
		CurrentIndex:     99,
		RemainingSeconds: 45,
	}

	s := NewSession(set, Options{Restore: snap})
	mustBegin(t, s)

	if got := s.Project().CurrentIndex; got != 0 {
		t.Fatalf("current index = %d, want 0", got)
	}
	if got := s.OverallRemaining(); got != 45*time.Second {
		t.Fatalf("overall remaining = %v, want 45s", got)
	}
}
