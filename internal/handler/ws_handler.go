package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hirelens/hirelens-backend/internal/config"
	"github.com/hirelens/hirelens-backend/internal/engine"
	"github.com/hirelens/hirelens-backend/internal/middleware"
	ws "github.com/hirelens/hirelens-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams session state and accepts candidate actions over
// WebSocket.
type WSHandler struct {
	manager  *engine.Manager
	rdb      *redis.Client
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(manager *engine.Manager, rdb *redis.Client, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		manager:  manager,
		rdb:      rdb,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/:session_id/stream
// Upgrades to WebSocket for real-time session events and actions.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	// The token is bound to exactly one session.
	if claims.SessionID != sessionID.String() {
		c.JSON(http.StatusForbidden, gin.H{"error": "token not valid for this session"})
		return
	}

	sess := h.manager.Get(sessionID)
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("session_id", sessionID.String()).
		Str("candidate", claims.CandidateEmail).
		Logger()

	wsLog.Info().Msg("Candidate connected")

	// The engine emits events while holding the session lock, so they are
	// buffered here and written by a dedicated goroutine. A slow or dead
	// connection drops events rather than stalling the timer loop.
	out := make(chan ws.Envelope, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for env := range out {
			if err := ws.WriteTyped(conn, env); err != nil {
				return
			}
		}
	}()

	sess.SetSink(func(ev engine.Event) {
		select {
		case out <- ws.Envelope{Event: ws.Event(ev.Kind), Payload: ev.Payload}:
		default:
			wsLog.Warn().Str("event", string(ev.Kind)).Msg("Event buffer full, dropping")
		}
	})

	defer func() {
		sess.SetSink(nil)
		close(out)
		<-done
		wsLog.Info().Msg("Candidate disconnected")
	}()

	// Initial state so the client can render without a separate GET.
	out <- ws.Envelope{Event: ws.EventState, Payload: sess.Project()}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			h.sendError(out, "malformed message")
			continue
		}

		h.dispatch(sess, claims.CandidateEmail, wsLog, out, raw, envelope.Action)
	}
}

func (h *WSHandler) dispatch(sess *engine.Session, candidateEmail string, wsLog zerolog.Logger, out chan<- ws.Envelope, raw []byte, action ws.Action) {
	switch action {
	case ws.ActionAnswer:
		var req ws.AnswerRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			h.sendError(out, "invalid answer payload")
			return
		}
		if err := sess.SetAnswer(req.Answer); err != nil {
			h.sendError(out, err.Error())
		}

	case ws.ActionTranscript:
		var req ws.TranscriptRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			h.sendError(out, "invalid transcript payload")
			return
		}
		if err := sess.AppendTranscript(req.Transcript); err != nil {
			h.sendError(out, err.Error())
		}

	case ws.ActionAdvance:
		var req ws.AdvanceRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			h.sendError(out, "invalid advance payload")
			return
		}
		if err := sess.Advance(req.Answer); err != nil {
			var verr *engine.ValidationError
			if errors.As(err, &verr) {
				h.sendError(out, verr.Error())
				return
			}
			h.sendError(out, err.Error())
		}

	case ws.ActionNavigate:
		var req ws.NavigateRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			h.sendError(out, "invalid navigate payload")
			return
		}
		if err := sess.NavigateTo(req.Index); err != nil && !errors.Is(err, engine.ErrQuestionLocked) {
			// Locked navigation already produced a locked event via the sink.
			h.sendError(out, err.Error())
		}

	case ws.ActionMark:
		var req ws.MarkRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			h.sendError(out, "invalid mark payload")
			return
		}
		if err := sess.MarkForReview(req.Index, req.Marked); err != nil {
			h.sendError(out, err.Error())
		}

	case ws.ActionFullscreenExit, ws.ActionVisibilityHidden:
		var req ws.ViolationRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			h.sendError(out, "invalid violation payload")
			return
		}
		h.recordViolation(sess, candidateEmail, wsLog, string(action), req.Payload)
		sess.ReportViolation(string(action))

	case ws.ActionListeningStart:
		sess.StartListening()

	case ws.ActionListeningStop:
		sess.StopListening()

	case ws.ActionSubmit:
		sess.ForceSubmit("candidate_request")

	case ws.ActionPing:
		select {
		case out <- ws.Envelope{Event: ws.EventPong}:
		default:
		}

	default:
		wsLog.Warn().Str("action", string(action)).Msg("Unknown action")
		h.sendError(out, "unknown action: "+string(action))
	}
}

// recordViolation queues the raw event for the audit trail. Counting and
// forced submission live in the session engine.
func (h *WSHandler) recordViolation(sess *engine.Session, candidateEmail string, wsLog zerolog.Logger, source, payload string) {
	if payload == "" {
		payload = "{}"
	}
	data, _ := json.Marshal(map[string]interface{}{
		"session_id":      sess.ID.String(),
		"candidate_email": candidateEmail,
		"source":          source,
		"timestamp":       time.Now().Unix(),
		"payload":         payload,
	})
	if err := h.rdb.RPush(context.Background(), config.WorkerKey.PersistViolationsQueue, data).Err(); err != nil {
		wsLog.Error().Err(err).Msg("Violation queue error")
	}
}

func (h *WSHandler) sendError(out chan<- ws.Envelope, msg string) {
	select {
	case out <- ws.Envelope{Event: ws.EventError, Payload: map[string]string{"error": msg}}:
	default:
	}
}
