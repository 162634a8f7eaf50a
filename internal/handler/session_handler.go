package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hirelens/hirelens-backend/internal/engine"
	"github.com/hirelens/hirelens-backend/internal/loader"
	"github.com/hirelens/hirelens-backend/internal/middleware"
	"github.com/hirelens/hirelens-backend/internal/model"
	"github.com/hirelens/hirelens-backend/internal/progress"
	"github.com/hirelens/hirelens-backend/internal/questionsource"
	"github.com/hirelens/hirelens-backend/internal/response"
	"github.com/hirelens/hirelens-backend/internal/service"
	"github.com/hirelens/hirelens-backend/internal/submit"
	"github.com/hirelens/hirelens-backend/internal/validator"
)

// SessionHandler handles candidate-facing session endpoints.
type SessionHandler struct {
	appCtx      context.Context
	loader      *loader.Loader
	persister   *progress.Persister
	svc         submit.Service
	manager     *engine.Manager
	tokens      *service.TokenService
	coordinator *submit.Coordinator
	log         zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler. appCtx bounds the
// lifetime of session goroutines, not individual requests.
func NewSessionHandler(
	appCtx context.Context,
	ldr *loader.Loader,
	persister *progress.Persister,
	svc submit.Service,
	manager *engine.Manager,
	tokens *service.TokenService,
	coordinator *submit.Coordinator,
	log zerolog.Logger,
) *SessionHandler {
	return &SessionHandler{
		appCtx:      appCtx,
		loader:      ldr,
		persister:   persister,
		svc:         svc,
		manager:     manager,
		tokens:      tokens,
		coordinator: coordinator,
		log:         log.With().Str("component", "session_handler").Logger(),
	}
}

type startAssessmentRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required,min=1,max=120"`
}

type startGeneratedRequest struct {
	Topic     string   `json:"topic" binding:"required,min=1,max=120"`
	Level     string   `json:"level" binding:"required,oneof=junior mid senior"`
	Subtopics []string `json:"subtopics" binding:"omitempty,max=10,dive,min=1,max=80"`
	Email     string   `json:"email" binding:"omitempty,email"`
	Name      string   `json:"name" binding:"omitempty,max=120"`
}

type startSessionResponse struct {
	SessionID string            `json:"session_id"`
	Token     string            `json:"token"`
	Resumed   bool              `json:"resumed"`
	State     engine.Projection `json:"state"`
}

// StartPreAuthored godoc
// POST /api/v1/assessments/:assessment_id/start
// Loads a published assessment and opens a session for the candidate.
func (h *SessionHandler) StartPreAuthored(c *gin.Context) {
	assessmentID := c.Param("assessment_id")
	if assessmentID == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req startAssessmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	candidate := model.CandidateInfo{Email: req.Email, Name: req.Name}

	set, err := h.loader.LoadPreAuthored(c.Request.Context(), assessmentID, candidate)
	if err != nil {
		var empty *loader.EmptyQuestionSetError
		switch {
		case errors.As(err, &empty):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrEmptyQuestionSet)
		case errors.Is(err, questionsource.ErrAssessmentNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			h.log.Error().Err(err).Str("assessment_id", assessmentID).Msg("Load failed")
			response.Fail(c, http.StatusBadGateway, response.ErrLoadFailure)
		}
		return
	}

	restore := resumableSnapshot(h.persister.Restore(c.Request.Context(), candidate.Email), set)

	h.openSession(c, set, candidate, restore)
}

// StartGenerated godoc
// POST /api/v1/sessions/generated/start
// Generates a question set on the fly and opens a session. Anonymous
// candidates are allowed; their progress is not persisted.
func (h *SessionHandler) StartGenerated(c *gin.Context) {
	var req startGeneratedRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	candidate := model.CandidateInfo{Email: req.Email, Name: req.Name}

	set, err := h.loader.LoadGenerated(c.Request.Context(), req.Topic, req.Level, req.Subtopics)
	if err != nil {
		var empty *loader.EmptyQuestionSetError
		if errors.As(err, &empty) {
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrEmptyQuestionSet)
			return
		}
		h.log.Error().Err(err).Str("topic", req.Topic).Msg("Generation failed")
		response.Fail(c, http.StatusBadGateway, response.ErrLoadFailure)
		return
	}

	// Generated sets are unique per request, so no earlier snapshot can
	// describe these questions; sessions always open fresh.
	h.openSession(c, set, candidate, nil)
}

// resumableSnapshot filters a restored snapshot down to one that can
// hydrate a session over set. Only authored assessments resume: a
// snapshot from a different assessment, or any snapshot against a
// generated set (which carries no assessment id), would key answers to
// questions that do not exist here.
func resumableSnapshot(snap *engine.Snapshot, set *model.QuestionSet) *engine.Snapshot {
	if snap == nil || set.AssessmentID == "" || snap.AssessmentID != set.AssessmentID {
		return nil
	}
	return snap
}

func (h *SessionHandler) openSession(c *gin.Context, set *model.QuestionSet, candidate model.CandidateInfo, restore *engine.Snapshot) {
	// A resumed session keeps its remote counterpart.
	var remoteID string
	if restore != nil && restore.RemoteSessionID != "" {
		remoteID = restore.RemoteSessionID
	} else {
		var err error
		remoteID, err = h.svc.StartSession(c.Request.Context(), set.AssessmentID, candidate)
		if err != nil {
			h.log.Error().Err(err).Msg("Remote session start failed")
			response.Fail(c, http.StatusBadGateway, response.ErrLoadFailure)
			return
		}
	}

	sess := h.manager.StartSession(h.appCtx, set, candidate, remoteID, restore)

	token, err := h.tokens.Issue(c.Request.Context(), candidate.Email, candidate.Name, sess.ID)
	if err != nil {
		h.manager.Remove(sess.ID)
		if errors.Is(err, service.ErrSessionAlreadyActive) {
			response.Fail(c, http.StatusConflict, response.ErrSessionActive)
			return
		}
		h.log.Error().Err(err).Msg("Token issue failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, startSessionResponse{
		SessionID: sess.ID.String(),
		Token:     token,
		Resumed:   restore != nil,
		State:     sess.Project(),
	})
}

// Begin godoc
// POST /api/v1/sessions/:session_id/begin
// Starts (or resumes) the clock after the candidate confirms readiness.
func (h *SessionHandler) Begin(c *gin.Context) {
	sess := h.ownedSession(c)
	if sess == nil {
		return
	}

	if err := sess.Begin(); err != nil {
		response.Fail(c, http.StatusConflict, response.ErrSessionClosed)
		return
	}

	response.Success(c, http.StatusOK, sess.Project())
}

// GetState godoc
// GET /api/v1/sessions/:session_id/state
// Returns the candidate-safe view of the session.
func (h *SessionHandler) GetState(c *gin.Context) {
	sess := h.ownedSession(c)
	if sess == nil {
		return
	}

	response.Success(c, http.StatusOK, sess.Project())
}

type advanceRequest struct {
	Answer string `json:"answer"`
}

// Advance godoc
// POST /api/v1/sessions/:session_id/advance
// Records the current answer and moves to the next question.
func (h *SessionHandler) Advance(c *gin.Context) {
	sess := h.ownedSession(c)
	if sess == nil {
		return
	}

	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	if err := sess.Advance(req.Answer); err != nil {
		var verr *engine.ValidationError
		switch {
		case errors.As(err, &verr):
			response.FailWithFields(c, http.StatusBadRequest, response.ErrAnswerRequired, map[string]string{
				"answer": verr.Reason,
			})
		case errors.Is(err, engine.ErrSessionClosed):
			response.Fail(c, http.StatusConflict, response.ErrSessionClosed)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, sess.Project())
}

type navigateRequest struct {
	Index int `json:"index"`
}

// Navigate godoc
// POST /api/v1/sessions/:session_id/navigate
// Jumps to a question by index. Expired questions cannot be reopened.
func (h *SessionHandler) Navigate(c *gin.Context) {
	sess := h.ownedSession(c)
	if sess == nil {
		return
	}

	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	if err := sess.NavigateTo(req.Index); err != nil {
		switch {
		case errors.Is(err, engine.ErrQuestionLocked):
			response.Fail(c, http.StatusConflict, response.ErrQuestionLocked)
		case errors.Is(err, engine.ErrIndexOutOfRange):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		case errors.Is(err, engine.ErrSessionClosed):
			response.Fail(c, http.StatusConflict, response.ErrSessionClosed)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, sess.Project())
}

type markRequest struct {
	Index  int  `json:"index"`
	Marked bool `json:"marked"`
}

// Mark godoc
// POST /api/v1/sessions/:session_id/mark
// Toggles the mark-for-review flag on a question.
func (h *SessionHandler) Mark(c *gin.Context) {
	sess := h.ownedSession(c)
	if sess == nil {
		return
	}

	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	if err := sess.MarkForReview(req.Index, req.Marked); err != nil {
		switch {
		case errors.Is(err, engine.ErrIndexOutOfRange):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		case errors.Is(err, engine.ErrSessionClosed):
			response.Fail(c, http.StatusConflict, response.ErrSessionClosed)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, sess.Project())
}

// SubmitNow godoc
// POST /api/v1/sessions/:session_id/submit
// Submits the session immediately, regardless of remaining time.
func (h *SessionHandler) SubmitNow(c *gin.Context) {
	sess := h.ownedSession(c)
	if sess == nil {
		return
	}

	sess.ForceSubmit("candidate_request")

	response.Success(c, http.StatusAccepted, sess.Project())
}

// RetrySubmit godoc
// POST /api/v1/sessions/:session_id/retry-submit
// Replays the submission after a failure. The payload is identical, so
// the remote endpoint treats it idempotently.
func (h *SessionHandler) RetrySubmit(c *gin.Context) {
	sess := h.ownedSession(c)
	if sess == nil {
		return
	}

	if sess.Phase() != model.PhaseFailed {
		response.Fail(c, http.StatusConflict, response.ErrSessionClosed)
		return
	}

	result := h.coordinator.Retry(c.Request.Context(), sess)
	if result.Status == model.SubmissionStatusFailed {
		response.Fail(c, http.StatusBadGateway, response.ErrSubmissionFailed)
		return
	}

	response.Success(c, http.StatusOK, sess.Project())
}

// ownedSession resolves the path session and enforces that the token was
// issued for it. Writes the error response itself on failure.
func (h *SessionHandler) ownedSession(c *gin.Context) *engine.Session {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil
	}

	if claims.SessionID != sessionID.String() {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return nil
	}

	sess := h.manager.Get(sessionID)
	if sess == nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return nil
	}

	return sess
}
