package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hirelens/hirelens-backend/internal/model"
)

// Manager is the registry of live session actors. It owns the one-second
// tick source and the periodic snapshot loop per session; every other
// component reaches a session through Get. Sessions do not live forever:
// a pre-start session nobody begins is evicted, and a finished one stays
// addressable only for the retry window before it is dropped.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*managedSession

	tickInterval      time.Duration
	saveInterval      time.Duration
	preStartTimeout   time.Duration
	terminalRetention time.Duration
	save              SaveFunc
	submit            SubmitFunc
	violationLimit    int
	log               zerolog.Logger
}

// managedSession pairs a session with the cancel for its run goroutine,
// so Remove tears both down.
type managedSession struct {
	session *Session
	cancel  context.CancelFunc
}

// NewManager creates a session registry. save, submit and the violation
// limit are shared by all sessions it starts.
func NewManager(save SaveFunc, submit SubmitFunc, violationLimit int, log zerolog.Logger) *Manager {
	return &Manager{
		sessions:          make(map[uuid.UUID]*managedSession),
		tickInterval:      time.Second,
		saveInterval:      10 * time.Second,
		preStartTimeout:   10 * time.Minute,
		terminalRetention: 30 * time.Minute,
		save:              save,
		submit:            submit,
		violationLimit:    violationLimit,
		log:               log.With().Str("component", "session_manager").Logger(),
	}
}

// StartSession registers a new session for the set and begins driving its
// tick loop. A restore snapshot, when present, resumes the candidate where
// they left off instead of index zero.
func (m *Manager) StartSession(ctx context.Context, set *model.QuestionSet, candidate model.CandidateInfo, remoteSessionID string, restore *Snapshot) *Session {
	s := NewSession(set, Options{
		Candidate:       candidate,
		RemoteSessionID: remoteSessionID,
		Save:            m.save,
		Submit:          m.submit,
		ViolationLimit:  m.violationLimit,
		Logger:          m.log,
		Restore:         restore,
	})

	runCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.sessions[s.ID] = &managedSession{session: s, cancel: cancel}
	m.mu.Unlock()

	go m.run(runCtx, s)
	return s
}

// Get returns a live session by id, nil if unknown.
func (m *Manager) Get(id uuid.UUID) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[id]
	if !ok {
		return nil
	}
	return entry.session
}

// Remove drops a session from the registry and stops its goroutine.
func (m *Manager) Remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.sessions[id]; ok {
		entry.cancel()
		delete(m.sessions, id)
	}
}

// run drives one session: the shared 1s tick plus the 10s snapshot loop.
// The session leaves the registry when the goroutine exits.
func (m *Manager) run(ctx context.Context, s *Session) {
	defer m.Remove(s.ID)

	ticker := time.NewTicker(m.tickInterval)
	saver := time.NewTicker(m.saveInterval)
	defer ticker.Stop()
	defer saver.Stop()

	started := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
			switch {
			case s.Phase().Terminal():
				m.retire(ctx)
				return
			case s.Phase() == model.PhasePreStart && time.Since(started) > m.preStartTimeout:
				m.log.Info().Str("session_id", s.ID.String()).Msg("Evicting abandoned session")
				return
			}
		case <-saver.C:
			if p := s.Phase(); m.save != nil && (p == model.PhaseRunning || p == model.PhaseScreening) {
				m.save(s.Snapshot())
			}
		}
	}
}

// retire keeps a finished session addressable for the retry window, so the
// candidate can still fetch the outcome or retry a failed submission,
// then lets the deferred Remove drop it.
func (m *Manager) retire(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.terminalRetention):
	}
}
