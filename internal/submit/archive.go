package submit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hirelens/hirelens-backend/internal/config"
	"github.com/hirelens/hirelens-backend/internal/model"
)

// RedisArchive queues screening responses for write-behind into Postgres,
// keeping a local audit copy independent of the secondary channel.
type RedisArchive struct {
	rdb *redis.Client
}

// NewRedisArchive creates the queue-backed screening archive.
func NewRedisArchive(rdb *redis.Client) *RedisArchive {
	return &RedisArchive{rdb: rdb}
}

type screeningRecord struct {
	AssessmentID       string             `json:"assessment_id"`
	CandidateSessionID string             `json:"candidate_session_id"`
	Answers            []model.AnswerItem `json:"answers"`
	RecordedAt         int64              `json:"recorded_at"`
}

// Archive pushes one screening record onto the persistence queue.
func (a *RedisArchive) Archive(ctx context.Context, assessmentID, candidateSessionID string, answers []model.AnswerItem) error {
	rec := screeningRecord{
		AssessmentID:       assessmentID,
		CandidateSessionID: candidateSessionID,
		Answers:            answers,
		RecordedAt:         time.Now().Unix(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal screening record: %w", err)
	}
	if err := a.rdb.RPush(ctx, config.WorkerKey.PersistScreeningQueue, data).Err(); err != nil {
		return fmt.Errorf("queue screening record: %w", err)
	}
	return nil
}
