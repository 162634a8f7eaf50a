package model

import "time"

// Phase enumerates the lifecycle of an assessment session.
type Phase string

const (
	PhaseLoading    Phase = "LOADING"
	PhasePreStart   Phase = "PRE_START"
	PhaseRunning    Phase = "RUNNING"
	PhaseScreening  Phase = "SCREENING_STEP"
	PhaseSubmitting Phase = "SUBMITTING"
	PhaseSubmitted  Phase = "SUBMITTED"
	PhaseFailed     Phase = "FAILED"
)

// Terminal reports whether no further navigation or ticks apply.
func (p Phase) Terminal() bool {
	return p == PhaseSubmitting || p == PhaseSubmitted || p == PhaseFailed
}

// QuestionStatus tracks per-index progress through the sequence.
type QuestionStatus string

const (
	StatusNotVisited  QuestionStatus = "NOT_VISITED"
	StatusNotAnswered QuestionStatus = "NOT_ANSWERED"
	StatusAnswered    QuestionStatus = "ANSWERED"
	StatusExpired     QuestionStatus = "EXPIRED"
)

// NotAnsweredSentinel is the placeholder submitted for any question without
// a recorded answer. The submission payload always covers every main id.
const NotAnsweredSentinel = "NOT_ANSWERED"

// CandidateInfo identifies the person taking the assessment. Email is the
// progress-store key; it must be stable across reloads.
type CandidateInfo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// SessionState is the mutable heart of the engine. It is owned by the
// session actor and mutated only under its lock; every other component sees
// read-only projections or snapshots.
type SessionState struct {
	Phase                    Phase
	CurrentIndex             int
	QuestionStatus           map[int]QuestionStatus
	ExpiredIndices           map[int]bool
	MarkedIndices            map[int]bool
	OverallRemaining         time.Duration
	CurrentQuestionRemaining time.Duration
	InitialBudget            time.Duration
	ViolationCount           int
	StartedAt                time.Time
}

// NewSessionState builds the initial state for a freshly loaded set.
func NewSessionState(set *QuestionSet) *SessionState {
	st := &SessionState{
		Phase:          PhasePreStart,
		CurrentIndex:   0,
		QuestionStatus: make(map[int]QuestionStatus, set.TotalLen()),
		ExpiredIndices: make(map[int]bool),
		MarkedIndices:  make(map[int]bool),
		InitialBudget:  set.InitialBudget(),
	}
	for i := 0; i < set.TotalLen(); i++ {
		st.QuestionStatus[i] = StatusNotVisited
	}
	st.OverallRemaining = st.InitialBudget
	if set.TotalLen() > 0 {
		st.CurrentQuestionRemaining = set.At(0).Type.Duration()
	}
	return st
}
