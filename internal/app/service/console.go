package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// ConsoleCapacity is the number of lines a console keeps.
const ConsoleCapacity = 10

// ConsoleLog is a capped, most-recent-first log of user-visible events.
type ConsoleLog interface {
	Append(ctx context.Context, msg string)
	Lines(ctx context.Context) ([]string, error)
}

func formatConsoleLine(at time.Time, msg string) string {
	return fmt.Sprintf("[%s] %s", at.Format("15:04:05"), msg)
}

type MemoryConsoleLog struct {
	mu    sync.Mutex
	lines []string
	now   func() time.Time
}

func NewMemoryConsoleLog() *MemoryConsoleLog {
	return &MemoryConsoleLog{now: time.Now}
}

func (c *MemoryConsoleLog) Append(_ context.Context, msg string) {
	line := formatConsoleLine(c.now(), msg)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append([]string{line}, c.lines...)
	if len(c.lines) > ConsoleCapacity {
		c.lines = c.lines[:ConsoleCapacity]
	}
}

func (c *MemoryConsoleLog) Lines(_ context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.lines...), nil
}

type redisLister interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

// RedisConsoleLog shares the console between server instances.
type RedisConsoleLog struct {
	rdb redisLister
	key string
	now func() time.Time
}

func NewRedisConsoleLog(rdb redisLister, key string) *RedisConsoleLog {
	return &RedisConsoleLog{rdb: rdb, key: key, now: time.Now}
}

func (c *RedisConsoleLog) Append(ctx context.Context, msg string) {
	line := formatConsoleLine(c.now(), msg)
	if err := c.rdb.LPush(ctx, c.key, line).Err(); err != nil {
		log.Warnf("WARN: Failed to append console line: %v", err)
		return
	}
	if err := c.rdb.LTrim(ctx, c.key, 0, ConsoleCapacity-1).Err(); err != nil {
		log.Warnf("WARN: Failed to trim console log: %v", err)
	}
}

func (c *RedisConsoleLog) Lines(ctx context.Context) ([]string, error) {
	lines, err := c.rdb.LRange(ctx, c.key, 0, ConsoleCapacity-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read console log: %w", err)
	}
	return lines, nil
}
