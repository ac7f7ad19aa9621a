package queue

import (
	"context"
	"testing"
	"time"

	"codeforge_arena/internal/platform/config"
)

func TestNewClientUsesConfig(t *testing.T) {
	cfg := &config.Config{RedisAddr: "cache:6380", RedisPassword: "pw", RedisDB: 3, RedisTimeout: 2 * time.Second}
	client := NewClient(cfg)
	defer client.Close()

	opts := client.Options()
	if opts.Addr != "cache:6380" || opts.Password != "pw" || opts.DB != 3 || opts.DialTimeout != 2*time.Second {
		t.Fatalf("Unexpected options: addr=%s db=%d dial=%v", opts.Addr, opts.DB, opts.DialTimeout)
	}
}

func TestConnectRedisUnreachable(t *testing.T) {
	prev := config.AppConfig
	t.Cleanup(func() { config.AppConfig = prev })
	config.AppConfig = &config.Config{RedisAddr: "127.0.0.1:1", RedisTimeout: 200 * time.Millisecond}

	if err := ConnectRedis(context.Background()); err == nil {
		t.Fatal("Expected an error for an unreachable Redis")
	}
	if RDB != nil {
		t.Fatal("RDB must stay unset when the ping fails")
	}
	CloseRedis()
}
