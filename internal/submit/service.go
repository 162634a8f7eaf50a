package submit

import (
	"context"

	"github.com/hirelens/hirelens-backend/internal/model"
)

// Outcome is the submission service's grading response.
type Outcome struct {
	ScorePercentage float64 `json:"score_percentage"`
	CorrectAnswers  int     `json:"correct_answers"`
}

// ScreeningSubmission is the secondary-channel payload, addressed by
// assessment id rather than session id.
type ScreeningSubmission struct {
	Answers            []model.AnswerItem `json:"answers"`
	CandidateSessionID string             `json:"candidate_session_id"`
}

// Service is the external session/submission service port.
type Service interface {
	StartSession(ctx context.Context, questionSetID string, candidate model.CandidateInfo) (string, error)
	Submit(ctx context.Context, sessionID string, answers []model.AnswerItem, anonymous bool) (*Outcome, error)
	SubmitScreening(ctx context.Context, assessmentID string, sub ScreeningSubmission) error
}
