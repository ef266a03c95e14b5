package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepline/prepline-backend/internal/config"
	"github.com/prepline/prepline-backend/internal/repository"
	"github.com/prepline/prepline-backend/internal/service"
)

// EvaluationWorker consumes the evaluation result queue and writes examiner
// verdicts onto their attempts. The update is conditional: a verdict whose
// attempt was replaced by a retake is discarded, never re-applied.
type EvaluationWorker struct {
	sessionRepo *repository.SessionRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewEvaluationWorker creates a new EvaluationWorker.
func NewEvaluationWorker(sessionRepo *repository.SessionRepository, rdb *redis.Client, log zerolog.Logger) *EvaluationWorker {
	return &EvaluationWorker{
		sessionRepo: sessionRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "evaluation_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *EvaluationWorker) Start(ctx context.Context) {
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

func (w *EvaluationWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.EvaluationQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}
	w.applyVerdict(ctx, []byte(result[1]), true)
}

// applyVerdict persists one queued verdict. requeue controls whether a
// transient failure puts the item back for retry.
func (w *EvaluationWorker) applyVerdict(ctx context.Context, raw []byte, requeue bool) {
	var job service.EvaluationJob
	if err := json.Unmarshal(raw, &job); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	updated, err := w.sessionRepo.UpdateAttemptEvaluation(ctx, job.AttemptID, job.Band, job.Feedback)
	if err != nil {
		w.log.Error().Err(err).
			Str("attempt_id", job.AttemptID.String()).
			Msg("Verdict persist error, retrying in 5s")
		if requeue {
			w.rdb.RPush(ctx, config.WorkerKey.EvaluationQueue, raw)
			time.Sleep(5 * time.Second)
		}
		return
	}

	if !updated {
		w.log.Info().
			Str("attempt_id", job.AttemptID.String()).
			Msg("Discarded verdict for replaced attempt")
		return
	}

	w.log.Info().
		Str("attempt_id", job.AttemptID.String()).
		Float64("band", job.Band).
		Msg("Examiner verdict applied")
}

// drain processes all remaining items in the queue before shutdown.
func (w *EvaluationWorker) drain(ctx context.Context) {
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.EvaluationQueue).Result()
		if err != nil {
			return
		}
		w.applyVerdict(ctx, []byte(result), false)
	}
}
