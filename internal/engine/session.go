package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hirelens/hirelens-backend/internal/model"
)

// SubmitFunc is invoked exactly once when a session enters the submitting
// phase. It runs on its own goroutine and must finish by calling
// CompleteSubmission on the session.
type SubmitFunc func(*Session)

// SaveFunc receives change-triggered snapshots. Calls are fire-and-forget;
// the engine never waits on persistence.
type SaveFunc func(Snapshot)

// Session is the assessment session actor. All transitions — ticks, user
// commands, host integrity events, submission completion — serialize on one
// mutex, so no two transitions interleave. A force-submit pending in the
// same tick as a manual advance is applied last and is final.
type Session struct {
	ID              uuid.UUID
	Candidate       model.CandidateInfo
	RemoteSessionID string

	mu        sync.Mutex
	set       *model.QuestionSet
	st        *model.SessionState
	answers   *AnswerLog
	listening bool
	warned    map[time.Duration]bool

	lastViolation  time.Time
	violationLimit int

	sink      Sink
	save      SaveFunc
	submit    SubmitFunc
	submitted bool
	restored  bool
	result    *model.SubmissionResult

	now func() time.Time
	log zerolog.Logger
}

// Options configures a new session.
type Options struct {
	Candidate       model.CandidateInfo
	RemoteSessionID string
	Sink            Sink
	Save            SaveFunc
	Submit          SubmitFunc
	ViolationLimit  int
	Now             func() time.Time
	Logger          zerolog.Logger
	Restore         *Snapshot
}

// NewSession builds a session in the pre-start phase, or hydrated from a
// restore snapshot if one is given.
func NewSession(set *model.QuestionSet, opts Options) *Session {
	s := &Session{
		ID:              uuid.New(),
		Candidate:       opts.Candidate,
		RemoteSessionID: opts.RemoteSessionID,
		set:             set,
		st:              model.NewSessionState(set),
		answers:         NewAnswerLog(),
		warned:          make(map[time.Duration]bool),
		violationLimit:  opts.ViolationLimit,
		sink:            opts.Sink,
		save:            opts.Save,
		submit:          opts.Submit,
		now:             opts.Now,
	}
	if s.violationLimit <= 0 {
		s.violationLimit = 2
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.sink == nil {
		s.sink = func(Event) {}
	}
	s.log = opts.Logger.With().Str("session_id", s.ID.String()).Logger()
	if opts.Restore != nil {
		s.restore(opts.Restore)
	}
	return s
}

// SetSink replaces the event sink, e.g. when the host UI (re)connects.
func (s *Session) SetSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sink == nil {
		sink = func(Event) {}
	}
	s.sink = sink
}

// Begin moves the session from pre-start to running and visits the first
// question. No-op if the session already started.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.Phase != model.PhasePreStart {
		if s.st.Phase.Terminal() {
			return ErrSessionClosed
		}
		return nil
	}
	s.st.StartedAt = s.now()
	if s.restored {
		// Resume exactly where the snapshot left off: the restored budgets
		// must not be recomputed, only an explicit restore may set them.
		s.resumeAt(s.st.CurrentIndex)
	} else {
		s.moveTo(s.st.CurrentIndex)
	}
	s.emitState()
	return nil
}

// resumeAt visits an index without resetting either timer. A snapshot
// whose saved index is locked resumes on the next open question instead.
func (s *Session) resumeAt(index int) {
	if s.st.ExpiredIndices[index] {
		s.moveTo(index + 1)
		return
	}
	s.st.CurrentIndex = index
	if index >= s.set.MainLen() {
		s.st.Phase = model.PhaseScreening
	} else {
		s.st.Phase = model.PhaseRunning
	}
	q := s.set.At(index)
	if s.st.QuestionStatus[index] == model.StatusNotVisited {
		if s.answers.HasAnswer(q.ID) {
			s.st.QuestionStatus[index] = model.StatusAnswered
		} else {
			s.st.QuestionStatus[index] = model.StatusNotAnswered
		}
	}
}

// SetAnswer records the answer value for the current question. Last write
// wins: an answered question revisited and left empty reverts to
// not-answered. Triggers a change snapshot.
func (s *Session) SetAnswer(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.navigable() {
		return ErrSessionClosed
	}
	if s.st.ExpiredIndices[s.st.CurrentIndex] {
		return ErrQuestionLocked
	}
	q := s.set.At(s.st.CurrentIndex)
	s.answers.Set(q.ID, value)
	if value != "" {
		s.st.QuestionStatus[s.st.CurrentIndex] = model.StatusAnswered
	} else {
		s.st.QuestionStatus[s.st.CurrentIndex] = model.StatusNotAnswered
	}
	s.persistChange()
	return nil
}

// AppendTranscript appends a speech-capture transcript chunk to the current
// free-text answer. Multiple-choice questions ignore transcripts.
func (s *Session) AppendTranscript(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.navigable() {
		return ErrSessionClosed
	}
	if s.st.ExpiredIndices[s.st.CurrentIndex] {
		return ErrQuestionLocked
	}
	q := s.set.At(s.st.CurrentIndex)
	if q.Type == model.QuestionTypeMultipleChoice || text == "" {
		return nil
	}
	existing, _ := s.answers.Get(q.ID)
	if existing != "" {
		existing += " "
	}
	s.answers.Set(q.ID, existing+text)
	s.st.QuestionStatus[s.st.CurrentIndex] = model.StatusAnswered
	s.persistChange()
	return nil
}

// Advance records the given answer (when non-empty), validates mandatory
// free-text questions, and moves to the next question. The last main
// question advances into the screening sequence if one exists, otherwise
// into submitting.
func (s *Session) Advance(answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.navigable() {
		return ErrSessionClosed
	}
	q := s.set.At(s.st.CurrentIndex)
	if answer != "" {
		s.answers.Set(q.ID, answer)
		s.st.QuestionStatus[s.st.CurrentIndex] = model.StatusAnswered
	}
	if q.Type.RequiresAnswer() && !s.answers.HasAnswer(q.ID) {
		return &ValidationError{QuestionID: q.ID, Reason: "an answer is required before moving on"}
	}
	if !s.answers.HasAnswer(q.ID) {
		s.st.QuestionStatus[s.st.CurrentIndex] = model.StatusNotAnswered
	}
	s.moveTo(s.st.CurrentIndex + 1)
	s.persistChange()
	s.emitState()
	return nil
}

// NavigateTo jumps to an arbitrary index. Navigation to an expired index is
// rejected with a locked notice; it never succeeds under any call ordering.
func (s *Session) NavigateTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.navigable() {
		return ErrSessionClosed
	}
	if index < 0 || index >= s.set.TotalLen() {
		return ErrIndexOutOfRange
	}
	if s.st.ExpiredIndices[index] {
		s.sink(Event{Kind: EventLocked, Payload: LockedPayload{
			Index:  index,
			Notice: "This question's time is over and it can no longer be opened.",
		}})
		return ErrQuestionLocked
	}
	s.moveTo(index)
	s.emitState()
	return nil
}

// MarkForReview toggles the review flag on an index. Purely cosmetic: it
// affects neither timers nor locking.
func (s *Session) MarkForReview(index int, marked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.Phase.Terminal() {
		return ErrSessionClosed
	}
	if index < 0 || index >= s.set.TotalLen() {
		return ErrIndexOutOfRange
	}
	if marked {
		s.st.MarkedIndices[index] = true
	} else {
		delete(s.st.MarkedIndices, index)
	}
	s.emitState()
	return nil
}

// ForceSubmit transitions directly to submitting from any state, bypassing
// per-question validation. Used by the integrity monitor, overall-timer
// exhaustion, and the explicit submit-now command.
func (s *Session) ForceSubmit(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enterSubmitting(reason)
}

// ReportViolation counts one integrity violation. Two signals from the same
// underlying user action within a second are debounced into one. Reaching
// the limit forces submission unconditionally.
func (s *Session) ReportViolation(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.Phase.Terminal() || s.st.Phase == model.PhasePreStart {
		return
	}
	now := s.now()
	if !s.lastViolation.IsZero() && now.Sub(s.lastViolation) < time.Second {
		return
	}
	s.lastViolation = now
	s.st.ViolationCount++
	s.log.Warn().
		Str("source", source).
		Int("count", s.st.ViolationCount).
		Msg("Integrity violation")
	s.sink(Event{Kind: EventViolation, Payload: ViolationPayload{
		Source: source,
		Count:  s.st.ViolationCount,
		Limit:  s.violationLimit,
	}})
	if s.st.ViolationCount >= s.violationLimit {
		s.enterSubmitting("integrity violation limit reached")
	}
}

// StartListening marks speech capture active. Pure passthrough state for the
// host UI projection.
func (s *Session) StartListening() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listening = true
	s.emitState()
}

// StopListening marks speech capture inactive.
func (s *Session) StopListening() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listening = false
	s.emitState()
}

// CompleteSubmission records the submission outcome and moves the session to
// its terminal phase. Called by the submission coordinator, including on
// manual retries after a failure.
func (s *Session) CompleteSubmission(result *model.SubmissionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = result
	if result.Status == model.SubmissionStatusSubmitted {
		s.st.Phase = model.PhaseSubmitted
	} else {
		s.st.Phase = model.PhaseFailed
	}
	s.sink(Event{Kind: EventSubmitted, Payload: result})
	s.emitState()
}

// Result returns the submission outcome, nil before a submit attempt ends.
func (s *Session) Result() *model.SubmissionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Set returns the immutable question set backing this session.
func (s *Session) Set() *model.QuestionSet { return s.set }

// Answers returns the current answer entries in first-write order.
func (s *Session) Answers() []AnswerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers.Entries()
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() model.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Phase
}

// ─── internal transitions (lock held) ───────────────────────────────

// navigable reports whether user navigation applies in the current phase.
func (s *Session) navigable() bool {
	return s.st.Phase == model.PhaseRunning || s.st.Phase == model.PhaseScreening
}

// moveTo positions the session on index, visits it, resets the per-question
// timer to the target's fixed duration and snaps the overall budget.
// Locked indices are skipped, so a force-advance from the middle of the
// sequence never lands on an expired question. index == TotalLen enters
// submitting.
func (s *Session) moveTo(index int) {
	for index < s.set.TotalLen() && s.st.ExpiredIndices[index] {
		index++
	}
	if index >= s.set.TotalLen() {
		s.enterSubmitting("sequence complete")
		return
	}
	s.st.CurrentIndex = index
	if index >= s.set.MainLen() {
		s.st.Phase = model.PhaseScreening
	} else {
		s.st.Phase = model.PhaseRunning
	}
	q := s.set.At(index)
	if s.st.QuestionStatus[index] == model.StatusNotVisited {
		if s.answers.HasAnswer(q.ID) {
			s.st.QuestionStatus[index] = model.StatusAnswered
		} else {
			s.st.QuestionStatus[index] = model.StatusNotAnswered
		}
	}
	s.st.CurrentQuestionRemaining = q.Type.Duration()
	s.snapOverall()
}

// snapOverall recomputes the overall budget as a snapped bucket: the initial
// budget minus the fixed durations of every completed (answered or expired)
// question. Deliberately not wall-clock elapsed time, so finishing a
// question early or late neither donates nor borrows time across slots.
func (s *Session) snapOverall() {
	var spent time.Duration
	for i := 0; i < s.set.TotalLen(); i++ {
		if i == s.st.CurrentIndex {
			continue
		}
		switch s.st.QuestionStatus[i] {
		case model.StatusAnswered, model.StatusExpired:
			spent += s.set.At(i).Type.Duration()
		}
	}
	s.st.OverallRemaining = s.st.InitialBudget - spent
}

// expireCurrent is invoked by the tick when the per-question budget runs
// out. The index is permanently locked, a sentinel answer is written if none
// exists, and the session force-advances without validation.
func (s *Session) expireCurrent() {
	index := s.st.CurrentIndex
	q := s.set.At(index)
	s.st.ExpiredIndices[index] = true
	s.st.QuestionStatus[index] = model.StatusExpired
	if _, ok := s.answers.Get(q.ID); !ok {
		s.answers.Set(q.ID, model.NotAnsweredSentinel)
	}
	s.log.Info().Int("index", index).Int("question_id", q.ID).Msg("Question expired")
	s.moveTo(index + 1)
	s.persistChange()
}

// enterSubmitting is the single entry into the submitting phase. Idempotent;
// the submit callback fires once, on its own goroutine, so network calls
// never block the tick or navigation.
func (s *Session) enterSubmitting(reason string) {
	if s.st.Phase.Terminal() {
		return
	}
	s.st.Phase = model.PhaseSubmitting
	s.log.Info().Str("reason", reason).Msg("Entering submission")
	s.sink(Event{Kind: EventSubmitting, Payload: map[string]string{"reason": reason}})
	s.emitState()
	if s.submit != nil && !s.submitted {
		s.submitted = true
		go s.submit(s)
	}
}

// persistChange hands a snapshot to the saver without waiting on it.
// Persistence must never block quiz progress.
func (s *Session) persistChange() {
	if s.save == nil {
		return
	}
	snap := s.snapshotLocked(false)
	go s.save(snap)
}

func (s *Session) emitState() {
	s.sink(Event{Kind: EventState, Payload: s.projectLocked()})
}
