package progress

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/hirelens/hirelens-backend/internal/engine"
)

// Persister wraps a Store with the engine's persistence policy: failures
// are swallowed — a broken progress store must never block quiz progress.
type Persister struct {
	store Store
	log   zerolog.Logger
}

// NewPersister creates the best-effort persistence layer.
func NewPersister(store Store, log zerolog.Logger) *Persister {
	return &Persister{
		store: store,
		log:   log.With().Str("component", "progress_persister").Logger(),
	}
}

// SaveFunc returns the engine callback for change-triggered and interval
// snapshots. Fire-and-forget: errors are logged at debug and dropped.
// Anonymous sessions have no progress identity to restore by, so their
// snapshots never reach the store.
func (p *Persister) SaveFunc() engine.SaveFunc {
	return func(snap engine.Snapshot) {
		if snap.CandidateEmail == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := p.store.Save(ctx, snap); err != nil {
			p.log.Debug().Err(err).Str("candidate", snap.CandidateEmail).Msg("Snapshot save failed")
		}
	}
}

// Restore attempts to load a resumable snapshot for the candidate.
// Best-effort: any store error reads as "no snapshot".
func (p *Persister) Restore(ctx context.Context, candidateEmail string) *engine.Snapshot {
	if candidateEmail == "" {
		return nil
	}
	snap, err := p.store.Load(ctx, candidateEmail)
	if err != nil {
		p.log.Debug().Err(err).Str("candidate", candidateEmail).Msg("Snapshot load failed")
		return nil
	}
	return snap
}

// Complete marks the candidate's progress entry finished after submission.
// Best-effort.
func (p *Persister) Complete(ctx context.Context, candidateEmail string) {
	if err := p.store.MarkComplete(ctx, candidateEmail); err != nil {
		p.log.Debug().Err(err).Str("candidate", candidateEmail).Msg("Mark complete failed")
	}
}
