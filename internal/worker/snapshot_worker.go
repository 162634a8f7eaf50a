package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hirelens/hirelens-backend/internal/config"
	"github.com/hirelens/hirelens-backend/internal/engine"
)

// SnapshotWorker consumes the progress queue and UPSERTs session snapshots
// to PostgreSQL, so a restore survives Redis eviction.
type SnapshotWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewSnapshotWorker creates a new SnapshotWorker.
func NewSnapshotWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SnapshotWorker {
	return &SnapshotWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "snapshot_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *SnapshotWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *SnapshotWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistProgressQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var snap engine.Snapshot
	if err := json.Unmarshal([]byte(result[1]), &snap); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.persistSnapshot(ctx, &snap, result[1]); err != nil {
		w.log.Error().Err(err).
			Str("candidate", snap.CandidateEmail).
			Str("session_id", snap.SessionID).
			Msg("Persist error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(ctx, config.WorkerKey.PersistProgressQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *SnapshotWorker) persistSnapshot(ctx context.Context, snap *engine.Snapshot, raw string) error {
	if snap.CandidateEmail == "" {
		// Anonymous sessions have nothing to resume against.
		return nil
	}

	// UPSERT keyed by candidate email — the latest snapshot always wins.
	_, err := w.pool.Exec(ctx,
		`INSERT INTO assessment_progress (candidate_email, session_id, assessment_id, snapshot, remaining_time_seconds, is_completed)
		 VALUES ($1, $2, $3, $4::jsonb, $5, $6)
		 ON CONFLICT (candidate_email) DO UPDATE
		 SET session_id = EXCLUDED.session_id,
		     assessment_id = EXCLUDED.assessment_id,
		     snapshot = EXCLUDED.snapshot,
		     remaining_time_seconds = EXCLUDED.remaining_time_seconds,
		     is_completed = EXCLUDED.is_completed,
		     updated_at = NOW()`,
		snap.CandidateEmail, snap.SessionID, snap.AssessmentID, raw, snap.RemainingSeconds, snap.IsCompleted,
	)
	return err
}

// drain processes all remaining items in the queue before shutdown.
func (w *SnapshotWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistProgressQueue).Result()
		if err != nil {
			break
		}

		var snap engine.Snapshot
		if err := json.Unmarshal([]byte(result), &snap); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.persistSnapshot(ctx, &snap, result); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistProgressQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
