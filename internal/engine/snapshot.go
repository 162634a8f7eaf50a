package engine

import (
	"sort"
	"time"

	"github.com/hirelens/hirelens-backend/internal/model"
)

// Snapshot is the crash-safe serialization of a session, keyed by candidate
// email in the progress store. It carries everything needed to resume at the
// same index with the same remaining budget.
type Snapshot struct {
	CandidateEmail       string                       `json:"candidate_email"`
	CandidateName        string                       `json:"candidate_name,omitempty"`
	SessionID            string                       `json:"session_id"`
	RemoteSessionID      string                       `json:"remote_session_id,omitempty"`
	AssessmentID         string                       `json:"assessment_id,omitempty"`
	Title                string                       `json:"title,omitempty"`
	Skill                string                       `json:"skill,omitempty"`
	Level                string                       `json:"level,omitempty"`
	CurrentIndex         int                          `json:"current_index"`
	Answers              []AnswerEntry                `json:"answers"`
	QuestionStatus       map[int]model.QuestionStatus `json:"question_status"`
	ExpiredIndices       []int                        `json:"expired_indices"`
	RemainingSeconds     int                          `json:"remaining_time_seconds"`
	InitialBudgetSeconds int                          `json:"initial_duration_seconds"`
	TotalQuestions       int                          `json:"total_questions"`
	IsCompleted          bool                         `json:"is_completed"`
	SavedAt              time.Time                    `json:"last_saved_at"`
}

// Snapshot serializes the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(s.st.Phase == model.PhaseSubmitted)
}

func (s *Session) snapshotLocked(completed bool) Snapshot {
	expired := make([]int, 0, len(s.st.ExpiredIndices))
	for i := range s.st.ExpiredIndices {
		expired = append(expired, i)
	}
	sort.Ints(expired)

	status := make(map[int]model.QuestionStatus, len(s.st.QuestionStatus))
	for i, st := range s.st.QuestionStatus {
		status[i] = st
	}

	return Snapshot{
		CandidateEmail:       s.Candidate.Email,
		CandidateName:        s.Candidate.Name,
		SessionID:            s.ID.String(),
		RemoteSessionID:      s.RemoteSessionID,
		AssessmentID:         s.set.AssessmentID,
		Title:                s.set.Title,
		Skill:                s.set.Skill,
		Level:                s.set.Level,
		CurrentIndex:         s.st.CurrentIndex,
		Answers:              s.answers.Entries(),
		QuestionStatus:       status,
		ExpiredIndices:       expired,
		RemainingSeconds:     int(s.st.OverallRemaining / time.Second),
		InitialBudgetSeconds: int(s.st.InitialBudget / time.Second),
		TotalQuestions:       s.set.TotalLen(),
		IsCompleted:          completed,
		SavedAt:              s.now(),
	}
}

// restore hydrates a session from a saved snapshot instead of starting at
// index zero. The only path that may raise OverallRemaining.
func (s *Session) restore(snap *Snapshot) {
	for _, e := range snap.Answers {
		s.answers.Set(e.QuestionID, e.Value)
	}
	for i, st := range snap.QuestionStatus {
		s.st.QuestionStatus[i] = st
	}
	for _, i := range snap.ExpiredIndices {
		s.st.ExpiredIndices[i] = true
	}
	if snap.RemainingSeconds > 0 {
		s.st.OverallRemaining = time.Duration(snap.RemainingSeconds) * time.Second
	}
	index := snap.CurrentIndex
	if index < 0 || index >= s.set.TotalLen() {
		index = 0
	}
	s.st.CurrentIndex = index
	if q := s.set.At(index); q != nil {
		s.st.CurrentQuestionRemaining = q.Type.Duration()
	}
	if snap.RemoteSessionID != "" {
		s.RemoteSessionID = snap.RemoteSessionID
	}
	s.restored = true
}
