package answers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/prepline/prepline-backend/internal/config"
)

// RedisSink mirrors flushed answers into the attempt's Redis hash and queues
// each one for durable persistence by the autosave worker.
type RedisSink struct {
	rdb    *redis.Client
	userID int
	testID string
	module string
}

// NewRedisSink creates a sink bound to one (user, test, module) attempt.
func NewRedisSink(rdb *redis.Client, userID int, testID, module string) *RedisSink {
	return &RedisSink{rdb: rdb, userID: userID, testID: testID, module: module}
}

// Flush writes the dirty answers to the live hash and pushes persistence jobs
// in one pipeline round trip.
func (s *RedisSink) Flush(ctx context.Context, dirty map[string]string) error {
	key := config.CacheKey.AttemptAnswersKey(s.userID, s.testID, s.module)

	pipe := s.rdb.Pipeline()
	for qid, answer := range dirty {
		pipe.HSet(ctx, key, qid, answer)

		payload, _ := json.Marshal(map[string]interface{}{
			"user_id":     s.userID,
			"test_id":     s.testID,
			"module":      s.module,
			"question_id": qid,
			"answer":      answer,
		})
		pipe.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("flush answers: %w", err)
	}
	return nil
}

// Load rehydrates the live hash for the same attempt, used on reload.
func (s *RedisSink) Load(ctx context.Context) (map[string]string, error) {
	key := config.CacheKey.AttemptAnswersKey(s.userID, s.testID, s.module)
	saved, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	return saved, nil
}

// Drop deletes the live hash (explicit retake).
func (s *RedisSink) Drop(ctx context.Context) error {
	key := config.CacheKey.AttemptAnswersKey(s.userID, s.testID, s.module)
	return s.rdb.Del(ctx, key).Err()
}
