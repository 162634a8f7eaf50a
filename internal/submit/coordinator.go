package submit

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/hirelens/hirelens-backend/internal/engine"
	"github.com/hirelens/hirelens-backend/internal/model"
	"github.com/hirelens/hirelens-backend/internal/progress"
)

// Coordinator assembles the final payload and drives the submit path,
// including the screening secondary channel and the idempotent retry.
type Coordinator struct {
	svc       Service
	persister *progress.Persister
	archive   ScreeningArchiver
	releaser  SessionReleaser
	timeout   time.Duration
	log       zerolog.Logger
}

// ScreeningArchiver records screening responses locally in addition to the
// secondary channel. Optional; failures are logged only.
type ScreeningArchiver interface {
	Archive(ctx context.Context, assessmentID, candidateSessionID string, answers []model.AnswerItem) error
}

// SessionReleaser clears the candidate's active-session lock once a
// submission succeeds, so a fresh session may be started.
type SessionReleaser interface {
	ReleaseSession(ctx context.Context, email string) error
}

// NewCoordinator creates the submission coordinator.
func NewCoordinator(svc Service, persister *progress.Persister, archive ScreeningArchiver, releaser SessionReleaser, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		svc:       svc,
		persister: persister,
		archive:   archive,
		releaser:  releaser,
		timeout:   30 * time.Second,
		log:       log.With().Str("component", "submission_coordinator").Logger(),
	}
}

// SubmitFunc returns the engine callback fired on entering the submitting
// phase.
func (c *Coordinator) SubmitFunc() engine.SubmitFunc {
	return func(s *engine.Session) {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		s.CompleteSubmission(c.run(ctx, s))
	}
}

// Retry replays the identical payload after a failed submission. Idempotent
// by session id on the submission service side.
func (c *Coordinator) Retry(ctx context.Context, s *engine.Session) *model.SubmissionResult {
	result := c.run(ctx, s)
	s.CompleteSubmission(result)
	return result
}

// run performs one submission attempt: primary payload, then the screening
// secondary channel, then progress completion. Only the primary call
// decides the result status.
func (c *Coordinator) run(ctx context.Context, s *engine.Session) *model.SubmissionResult {
	set := s.Set()
	answers := s.Answers()
	payload := BuildPayload(set, answers)

	log := c.log.With().Str("session_id", s.ID.String()).Logger()

	outcome, err := c.svc.Submit(ctx, s.RemoteSessionID, payload, s.Candidate.Email == "")
	if err != nil {
		log.Error().Err(err).Int("answers", len(payload)).Msg("Submission failed")
		return &model.SubmissionResult{
			Status:      model.SubmissionStatusFailed,
			SubmittedAt: time.Now(),
			Error:       err.Error(),
		}
	}

	log.Info().
		Float64("score", outcome.ScorePercentage).
		Int("correct", outcome.CorrectAnswers).
		Msg("Submission accepted")

	c.submitScreening(ctx, s, log)

	if s.Candidate.Email != "" {
		if c.persister != nil {
			c.persister.Complete(ctx, s.Candidate.Email)
		}
		if c.releaser != nil {
			if err := c.releaser.ReleaseSession(ctx, s.Candidate.Email); err != nil {
				log.Warn().Err(err).Msg("Active-session release failed")
			}
		}
	}

	return &model.SubmissionResult{
		Status:          model.SubmissionStatusSubmitted,
		ScorePercentage: outcome.ScorePercentage,
		CorrectCount:    outcome.CorrectAnswers,
		SubmittedAt:     time.Now(),
	}
}

// submitScreening sends the negative-id answers through the secondary
// channel. Its failure never flips the primary submission's status.
func (c *Coordinator) submitScreening(ctx context.Context, s *engine.Session, log zerolog.Logger) {
	set := s.Set()
	if set.AssessmentID == "" || len(set.Screening) == 0 {
		return
	}
	screening := ScreeningAnswers(s.Answers())
	if len(screening) == 0 {
		return
	}
	sub := ScreeningSubmission{
		Answers:            screening,
		CandidateSessionID: s.RemoteSessionID,
	}
	if err := c.svc.SubmitScreening(ctx, set.AssessmentID, sub); err != nil {
		log.Warn().Err(err).Str("assessment_id", set.AssessmentID).Msg("Screening submission failed")
	}
	if c.archive != nil {
		if err := c.archive.Archive(ctx, set.AssessmentID, s.RemoteSessionID, screening); err != nil {
			log.Warn().Err(err).Msg("Screening archive failed")
		}
	}
}

// BuildPayload produces the full-coverage answer list: every main-sequence
// question id appears exactly once, unanswered ones with the sentinel.
// Partial answer logs are never silently dropped or padded short.
func BuildPayload(set *model.QuestionSet, answers []engine.AnswerEntry) []model.AnswerItem {
	byID := make(map[int]string, len(answers))
	for _, e := range answers {
		byID[e.QuestionID] = e.Value
	}
	payload := make([]model.AnswerItem, 0, set.MainLen())
	for _, q := range set.Main {
		value, ok := byID[q.ID]
		if !ok || value == "" {
			value = model.NotAnsweredSentinel
		}
		payload = append(payload, model.AnswerItem{QuestionID: q.ID, Answer: value})
	}
	return payload
}

// ScreeningAnswers extracts the negative-id entries ordered by descending
// id, i.e. earliest-asked first (-1, -2, ...).
func ScreeningAnswers(answers []engine.AnswerEntry) []model.AnswerItem {
	var out []model.AnswerItem
	for _, e := range answers {
		if e.QuestionID < 0 {
			value := e.Value
			if value == "" {
				value = model.NotAnsweredSentinel
			}
			out = append(out, model.AnswerItem{QuestionID: e.QuestionID, Answer: value})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID > out[j].QuestionID })
	return out
}
