package engine

import (
	"time"

	"github.com/hirelens/hirelens-backend/internal/model"
)

// warnThresholds are the overall-budget marks that emit a non-blocking
// low-time notification. Crossing a threshold never alters state.
var warnThresholds = []time.Duration{300 * time.Second, 60 * time.Second}

// Tick applies one scheduler second. Both budgets decrement from the same
// tick source but expire independently: a per-question exhaustion
// force-advances, an overall exhaustion enters submitting immediately and,
// being applied last, wins over any transition from the same tick.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.navigable() {
		return
	}

	prev := s.st.OverallRemaining
	s.st.OverallRemaining -= time.Second
	s.st.CurrentQuestionRemaining -= time.Second

	// Warnings fire on the downward crossing only: a set whose whole
	// budget starts below a threshold never crosses it.
	for _, th := range warnThresholds {
		if prev > th && s.st.OverallRemaining <= th && s.st.OverallRemaining > 0 && !s.warned[th] {
			s.warned[th] = true
			s.sink(Event{Kind: EventWarning, Payload: WarningPayload{
				OverallRemainingSeconds: int(s.st.OverallRemaining / time.Second),
			}})
		}
	}

	if s.st.CurrentQuestionRemaining <= 0 && s.st.OverallRemaining > 0 {
		s.expireCurrent()
	}

	if s.st.OverallRemaining <= 0 {
		s.st.OverallRemaining = 0
		s.enterSubmitting("overall budget exhausted")
		return
	}

	s.emitState()
}

// OverallRemaining returns the overall budget left.
func (s *Session) OverallRemaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.OverallRemaining
}

// QuestionRemaining returns the current question's budget left.
func (s *Session) QuestionRemaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.CurrentQuestionRemaining
}

// Status returns the recorded status for an index.
func (s *Session) Status(index int) model.QuestionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.QuestionStatus[index]
}
