package service

import (
	"context"
	"encoding/json"

	"codeforge_arena/internal/common"
	"codeforge_arena/internal/domain/model"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// EventPublisher hands recorded submissions to whoever recomputes topic stats.
type EventPublisher interface {
	Publish(ctx context.Context, ev model.SubmissionEvent) error
}

// InlineEventPublisher recomputes the affected stat before returning.
type InlineEventPublisher struct {
	stats *TopicStatService
}

func NewInlineEventPublisher(stats *TopicStatService) *InlineEventPublisher {
	return &InlineEventPublisher{stats: stats}
}

func (p *InlineEventPublisher) Publish(ctx context.Context, ev model.SubmissionEvent) error {
	return p.stats.HandleEvent(ctx, ev)
}

type redisPusher interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RedisEventPublisher pushes events onto a list consumed by the topic stat worker.
type RedisEventPublisher struct {
	rdb   redisPusher
	queue string
}

func NewRedisEventPublisher(rdb redisPusher, queue string) *RedisEventPublisher {
	return &RedisEventPublisher{rdb: rdb, queue: queue}
}

func (p *RedisEventPublisher) Publish(ctx context.Context, ev model.SubmissionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return common.Errorf("failed to marshal submission event: %w", err)
	}
	if err := p.rdb.LPush(ctx, p.queue, payload).Err(); err != nil {
		return common.Errorf("failed to push submission event to Redis queue: %w", err)
	}
	log.Debugf("Submission event %s for topic %s enqueued.", ev.SubmissionID, ev.Topic)
	return nil
}
