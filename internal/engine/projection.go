package engine

import (
	"sort"
	"time"

	"github.com/hirelens/hirelens-backend/internal/model"
)

// QuestionView is the host-facing rendering contract of the current
// question: the question itself plus its re-hydrated stored answer.
// Correct answers never exist inside the engine, so none can leak.
type QuestionView struct {
	Index           int                `json:"index"`
	ID              int                `json:"id"`
	Type            model.QuestionType `json:"type"`
	Text            string             `json:"text"`
	Options         map[string]string  `json:"options,omitempty"`
	Language        string             `json:"language,omitempty"`
	Constraints     []string           `json:"constraints,omitempty"`
	FocusAreas      []string           `json:"focus_areas,omitempty"`
	DurationSeconds int                `json:"duration_seconds"`
	Answer          string             `json:"answer,omitempty"`
	Marked          bool               `json:"marked"`
}

// Projection is the read-only state exposed to the host UI. It is a copy:
// holding one never observes later mutations.
type Projection struct {
	SessionID                string                       `json:"session_id"`
	Phase                    model.Phase                  `json:"phase"`
	CurrentIndex             int                          `json:"current_index"`
	TotalQuestions           int                          `json:"total_questions"`
	MainQuestions            int                          `json:"main_questions"`
	OverallRemainingSeconds  int                          `json:"overall_remaining_seconds"`
	QuestionRemainingSeconds int                          `json:"question_remaining_seconds"`
	QuestionStatus           map[int]model.QuestionStatus `json:"question_status"`
	MarkedIndices            []int                        `json:"marked_indices"`
	ExpiredIndices           []int                        `json:"expired_indices"`
	ViolationCount           int                          `json:"violation_count"`
	Listening                bool                         `json:"listening"`
	Question                 *QuestionView                `json:"question,omitempty"`
	Result                   *model.SubmissionResult      `json:"result,omitempty"`
}

// Project returns the current read-only state projection.
func (s *Session) Project() Projection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectLocked()
}

func (s *Session) projectLocked() Projection {
	p := Projection{
		SessionID:                s.ID.String(),
		Phase:                    s.st.Phase,
		CurrentIndex:             s.st.CurrentIndex,
		TotalQuestions:           s.set.TotalLen(),
		MainQuestions:            s.set.MainLen(),
		OverallRemainingSeconds:  int(s.st.OverallRemaining / time.Second),
		QuestionRemainingSeconds: int(s.st.CurrentQuestionRemaining / time.Second),
		QuestionStatus:           make(map[int]model.QuestionStatus, len(s.st.QuestionStatus)),
		ViolationCount:           s.st.ViolationCount,
		Listening:                s.listening,
		Result:                   s.result,
	}
	for i, st := range s.st.QuestionStatus {
		p.QuestionStatus[i] = st
	}
	for i := range s.st.MarkedIndices {
		p.MarkedIndices = append(p.MarkedIndices, i)
	}
	for i := range s.st.ExpiredIndices {
		p.ExpiredIndices = append(p.ExpiredIndices, i)
	}
	sort.Ints(p.MarkedIndices)
	sort.Ints(p.ExpiredIndices)
	if q := s.set.At(s.st.CurrentIndex); q != nil && !s.st.Phase.Terminal() {
		answer, _ := s.answers.Get(q.ID)
		p.Question = &QuestionView{
			Index:           s.st.CurrentIndex,
			ID:              q.ID,
			Type:            q.Type,
			Text:            q.Text,
			Options:         q.Options,
			Language:        q.Language,
			Constraints:     q.Constraints,
			FocusAreas:      q.FocusAreas,
			DurationSeconds: int(q.Type.Duration() / time.Second),
			Answer:          answer,
			Marked:          s.st.MarkedIndices[s.st.CurrentIndex],
		}
	}
	return p
}
