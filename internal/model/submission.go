package model

import "time"

// SubmissionStatus is the terminal outcome of the submit path.
type SubmissionStatus string

const (
	SubmissionStatusSubmitted SubmissionStatus = "SUBMITTED"
	SubmissionStatusFailed    SubmissionStatus = "SUBMISSION_FAILED"
)

// AnswerItem is one entry of the full-coverage submission payload.
// Unanswered questions carry the NOT_ANSWERED sentinel, never a gap.
type AnswerItem struct {
	QuestionID int    `json:"question_id"`
	Answer     string `json:"answer"`
}

// SubmissionResult is produced once by the submission coordinator and
// read-only downstream. Score fields are only meaningful on success.
type SubmissionResult struct {
	Status          SubmissionStatus `json:"status"`
	ScorePercentage float64          `json:"score_percentage,omitempty"`
	CorrectCount    int              `json:"correct_count,omitempty"`
	SubmittedAt     time.Time        `json:"submitted_at"`
	Error           string           `json:"error,omitempty"`
}
