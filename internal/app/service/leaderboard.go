package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"codeforge_arena/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

const DefaultLeaderboardLimit = 10

// DuelLeaderboard ranks users by their fastest duel victory.
type DuelLeaderboard interface {
	RecordVictory(ctx context.Context, userID string, seconds int) error
	Top(ctx context.Context, n int) ([]model.LeaderboardEntry, error)
}

type MemoryDuelLeaderboard struct {
	mu   sync.Mutex
	best map[string]int
}

func NewMemoryDuelLeaderboard() *MemoryDuelLeaderboard {
	return &MemoryDuelLeaderboard{best: make(map[string]int)}
}

func (l *MemoryDuelLeaderboard) RecordVictory(_ context.Context, userID string, seconds int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.best[userID]; !ok || seconds < cur {
		l.best[userID] = seconds
	}
	return nil
}

func (l *MemoryDuelLeaderboard) Top(_ context.Context, n int) ([]model.LeaderboardEntry, error) {
	if n <= 0 {
		n = DefaultLeaderboardLimit
	}
	l.mu.Lock()
	entries := make([]model.LeaderboardEntry, 0, len(l.best))
	for user, secs := range l.best {
		entries = append(entries, model.LeaderboardEntry{UserID: user, Seconds: secs})
	}
	l.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Seconds != entries[j].Seconds {
			return entries[i].Seconds < entries[j].Seconds
		}
		return entries[i].UserID < entries[j].UserID
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

type redisSortedSet interface {
	ZAddArgs(ctx context.Context, key string, args redis.ZAddArgs) *redis.IntCmd
	ZRangeWithScores(ctx context.Context, key string, start, stop int64) *redis.ZSliceCmd
}

// RedisDuelLeaderboard keeps best times in a sorted set; LT keeps only improvements.
type RedisDuelLeaderboard struct {
	rdb redisSortedSet
	key string
}

func NewRedisDuelLeaderboard(rdb redisSortedSet, key string) *RedisDuelLeaderboard {
	return &RedisDuelLeaderboard{rdb: rdb, key: key}
}

func (l *RedisDuelLeaderboard) RecordVictory(ctx context.Context, userID string, seconds int) error {
	err := l.rdb.ZAddArgs(ctx, l.key, redis.ZAddArgs{
		LT:      true,
		Members: []redis.Z{{Score: float64(seconds), Member: userID}},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to record duel victory: %w", err)
	}
	return nil
}

func (l *RedisDuelLeaderboard) Top(ctx context.Context, n int) ([]model.LeaderboardEntry, error) {
	if n <= 0 {
		n = DefaultLeaderboardLimit
	}
	members, err := l.rdb.ZRangeWithScores(ctx, l.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read duel leaderboard: %w", err)
	}
	entries := make([]model.LeaderboardEntry, 0, len(members))
	for i, m := range members {
		user, _ := m.Member.(string)
		entries = append(entries, model.LeaderboardEntry{Rank: i + 1, UserID: user, Seconds: int(m.Score)})
	}
	return entries, nil
}
