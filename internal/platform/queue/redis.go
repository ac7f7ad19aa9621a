package queue

import (
	"context"

	"codeforge_arena/internal/common"
	"codeforge_arena/internal/platform/config"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RDB backs the submission event queue, topic locks, console log and duel leaderboard.
var RDB *redis.Client

// NewClient builds a client for cfg without dialing. Read timeouts are left to go-redis
// so blocking pops keep their own deadline.
func NewClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: cfg.RedisTimeout,
	})
}

// ConnectRedis dials Redis and sets RDB once a ping succeeds within the configured timeout.
func ConnectRedis(ctx context.Context) error {
	cfg := config.AppConfig
	client := NewClient(cfg)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.RedisTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return common.Errorf("could not connect to Redis at %s: %w", cfg.RedisAddr, err)
	}
	RDB = client
	log.Infof("INFO: Connected to Redis at %s (db %d)", cfg.RedisAddr, cfg.RedisDB)
	return nil
}

func CloseRedis() {
	if RDB == nil {
		return
	}
	if err := RDB.Close(); err != nil {
		log.Warnf("WARN: Closing Redis connection: %v", err)
	}
	RDB = nil
	log.Info("Redis connection closed.")
}
