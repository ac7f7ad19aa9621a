package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"codeforge_arena/internal/common"
	"codeforge_arena/internal/domain/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// releaseLockScript deletes the lock only while it still holds our value.
const releaseLockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end`

// Queue is the subset of the Redis client used by the worker.
type Queue interface {
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// EventHandler recomputes the statistic an event affects.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev model.SubmissionEvent) error
}

type TopicStatWorkerConfig struct {
	QueueName  string
	LockPrefix string
	LockTTL    time.Duration
	// PopTimeout bounds each BRPop so shutdown is noticed; zero blocks forever.
	PopTimeout time.Duration
	RetryDelay time.Duration
}

// TopicStatWorker consumes submission events and recomputes topic stats under a
// per-(user, topic) Redis lock, so several worker processes can share one queue.
type TopicStatWorker struct {
	rdb     Queue
	handler EventHandler
	cfg     TopicStatWorkerConfig
}

func NewTopicStatWorker(rdb Queue, handler EventHandler, cfg TopicStatWorkerConfig) *TopicStatWorker {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &TopicStatWorker{rdb: rdb, handler: handler, cfg: cfg}
}

// Start blocks until ctx is cancelled.
func (w *TopicStatWorker) Start(ctx context.Context) {
	log.Infof("Topic stat worker started, listening to queue: %s", w.cfg.QueueName)
	for {
		select {
		case <-ctx.Done():
			log.Info("Topic stat worker stopping...")
			return
		default:
		}

		res, err := w.rdb.BRPop(ctx, w.cfg.PopTimeout, w.cfg.QueueName).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			log.Errorf("ERROR: Failed to BRPop from Redis queue '%s': %v", w.cfg.QueueName, err)
			w.sleep(ctx, 5*w.cfg.RetryDelay)
			continue
		}

		// BRPop returns [queueName, value].
		if len(res) < 2 || res[1] == "" {
			log.Warn("WARN: BRPop returned an empty submission event.")
			continue
		}
		if err := w.Process(ctx, res[1]); err != nil {
			log.Errorf("ERROR: %v", err)
		}
	}
}

// Process handles one queued payload. Undecodable payloads are dropped; events whose
// topic lock is held elsewhere are pushed back for a later attempt.
func (w *TopicStatWorker) Process(ctx context.Context, payload string) error {
	var ev model.SubmissionEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return common.Errorf("dropping undecodable submission event: %w", err)
	}
	if ev.UserID == "" || ev.Topic == "" {
		return common.Errorf("dropping submission event %s without user or topic: %w", ev.SubmissionID, common.ErrValidation)
	}

	lockKey := w.lockKey(ev)
	lockValue := uuid.NewString()
	ok, err := w.rdb.SetNX(ctx, lockKey, lockValue, w.cfg.LockTTL).Result()
	if err != nil {
		w.requeue(ctx, ev.SubmissionID, payload)
		return common.Errorf("%w %s: %v", common.ErrTopicLockFailed, lockKey, err)
	}
	if !ok {
		log.Infof("INFO: Topic %s for user %s is busy, re-queueing event %s.", ev.Topic, ev.UserID, ev.SubmissionID)
		w.requeue(ctx, ev.SubmissionID, payload)
		w.sleep(ctx, w.cfg.RetryDelay)
		return nil
	}
	defer w.release(ctx, lockKey, lockValue)

	if err := w.handler.HandleEvent(ctx, ev); err != nil {
		return common.Errorf("failed to recompute topic %s for user %s: %w", ev.Topic, ev.UserID, err)
	}
	log.Debugf("Recomputed topic %s for user %s after submission %s.", ev.Topic, ev.UserID, ev.SubmissionID)
	return nil
}

func (w *TopicStatWorker) lockKey(ev model.SubmissionEvent) string {
	return w.cfg.LockPrefix + ":" + ev.UserID + ":" + ev.Topic
}

func (w *TopicStatWorker) release(ctx context.Context, key, value string) {
	deleted, err := w.rdb.Eval(ctx, releaseLockScript, []string{key}, value).Int64()
	if err != nil {
		log.Errorf("ERROR: Failed to release lock %s: %v", key, err)
		return
	}
	if deleted != 1 {
		log.Warnf("WARN: Lock %s expired or was taken over before release.", key)
	}
}

func (w *TopicStatWorker) requeue(ctx context.Context, id, payload string) {
	// LPush puts it behind everything already waiting, BRPop reads from the tail.
	if err := w.rdb.LPush(ctx, w.cfg.QueueName, payload).Err(); err != nil {
		log.Errorf("ERROR: Failed to re-queue submission event %s: %v", id, err)
	}
}

func (w *TopicStatWorker) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
