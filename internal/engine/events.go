package engine

// EventKind identifies a push event emitted by a session towards the host UI.
type EventKind string

const (
	// EventState carries a full read-only projection. Emitted on every
	// transition and every tick so host timers never drift.
	EventState EventKind = "state"
	// EventWarning is the non-blocking low-time notification.
	EventWarning EventKind = "warning"
	// EventLocked reports rejected navigation to an expired question.
	EventLocked EventKind = "locked"
	// EventViolation reports an integrity violation increment.
	EventViolation EventKind = "violation"
	// EventSubmitting signals the transition into the submitting phase.
	EventSubmitting EventKind = "submitting"
	// EventSubmitted carries the final SubmissionResult.
	EventSubmitted EventKind = "submitted"
)

// Event is the envelope pushed to the host UI.
type Event struct {
	Kind    EventKind   `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// Sink receives session events. Implementations must not call back into the
// session: events are emitted while the state lock is held.
type Sink func(Event)

// WarningPayload accompanies EventWarning.
type WarningPayload struct {
	OverallRemainingSeconds int `json:"overall_remaining_seconds"`
}

// LockedPayload accompanies EventLocked.
type LockedPayload struct {
	Index  int    `json:"index"`
	Notice string `json:"notice"`
}

// ViolationPayload accompanies EventViolation.
type ViolationPayload struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
	Limit  int    `json:"limit"`
}
