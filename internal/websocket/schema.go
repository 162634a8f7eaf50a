package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer           Action = "answer"
	ActionTranscript       Action = "speech_transcript"
	ActionAdvance          Action = "advance"
	ActionNavigate         Action = "navigate"
	ActionMark             Action = "mark"
	ActionFullscreenExit   Action = "fullscreen_exit"
	ActionVisibilityHidden Action = "visibility_hidden"
	ActionListeningStart   Action = "listening_start"
	ActionListeningStop    Action = "listening_stop"
	ActionSubmit           Action = "submit"
	ActionPing             Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest carries a live edit of the current question's answer.
type AnswerRequest struct {
	Action Action `json:"action"`
	Answer string `json:"answer"`
}

// TranscriptRequest appends a speech-to-text fragment to the current answer.
type TranscriptRequest struct {
	Action     Action `json:"action"`
	Transcript string `json:"transcript"`
}

// AdvanceRequest records the answer and moves to the next question.
type AdvanceRequest struct {
	Action Action `json:"action"`
	Answer string `json:"answer"`
}

// NavigateRequest jumps to a question by index.
type NavigateRequest struct {
	Action Action `json:"action"`
	Index  int    `json:"index"`
}

// MarkRequest toggles the review flag on a question.
type MarkRequest struct {
	Action Action `json:"action"`
	Index  int    `json:"index"`
	Marked bool   `json:"marked"`
}

// ViolationRequest reports an integrity event (fullscreen exit or tab
// visibility change). The payload is forwarded verbatim to the audit trail.
type ViolationRequest struct {
	Action  Action `json:"action"`
	Payload string `json:"payload"`
}

// SubmitRequest asks for immediate submission of the session.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState     Event = "state"
	EventWarning   Event = "warning"
	EventLocked    Event = "locked"
	EventViolation Event = "violation"
	EventSubmitted Event = "submitted"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// Envelope wraps every server-to-client message with its event kind.
type Envelope struct {
	Event   Event       `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
