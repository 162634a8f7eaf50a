package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hirelens/hirelens-backend/internal/config"
	"github.com/hirelens/hirelens-backend/internal/model"
)

// ScreeningWorker consumes archived screening responses and inserts them
// into PostgreSQL.
type ScreeningWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewScreeningWorker creates a new ScreeningWorker.
func NewScreeningWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ScreeningWorker {
	return &ScreeningWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "screening_worker").Logger(),
	}
}

type screeningPayload struct {
	AssessmentID       string             `json:"assessment_id"`
	CandidateSessionID string             `json:"candidate_session_id"`
	Answers            []model.AnswerItem `json:"answers"`
	RecordedAt         int64              `json:"recorded_at"`
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *ScreeningWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *ScreeningWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistScreeningQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var payload screeningPayload
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.persistScreening(ctx, &payload); err != nil {
		w.log.Error().Err(err).
			Str("assessment_id", payload.AssessmentID).
			Msg("Persist error, retrying in 5s")
		w.rdb.RPush(ctx, config.WorkerKey.PersistScreeningQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *ScreeningWorker) persistScreening(ctx context.Context, p *screeningPayload) error {
	answers, err := json.Marshal(p.Answers)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`INSERT INTO screening_responses (assessment_id, candidate_session_id, answers, recorded_at)
		 VALUES ($1, $2, $3::jsonb, $4)
		 ON CONFLICT (assessment_id, candidate_session_id) DO UPDATE
		 SET answers = EXCLUDED.answers, recorded_at = EXCLUDED.recorded_at`,
		p.AssessmentID, p.CandidateSessionID, answers, time.Unix(p.RecordedAt, 0),
	)
	return err
}

// drain processes all remaining items in the queue before shutdown.
func (w *ScreeningWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistScreeningQueue).Result()
		if err != nil {
			break
		}

		var payload screeningPayload
		if err := json.Unmarshal([]byte(result), &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.persistScreening(ctx, &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistScreeningQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
