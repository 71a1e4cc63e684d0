package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each window as a sorted set scored by request time. Use
// this instead of MemoryStore when more than one process serves traffic;
// the in-memory window is only correct within a single process.
type RedisStore struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg Config) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func windowKey(key Key) string {
	return fmt.Sprintf("ratelimit:%s:%s", key.ClientID, key.Route)
}

// Allow implements Store. The request is recorded and counted in one
// transaction (add-then-check), so concurrent processes cannot both read a
// free slot and over-admit; a rejected request removes its own member. The
// key expires with the window so stale clients cost nothing.
func (s *RedisStore) Allow(ctx context.Context, key Key, budget Budget) (Decision, error) {
	k := windowKey(key)
	now := time.Now()
	windowStart := now.Add(-budget.Window)
	member := fmt.Sprintf("%d", now.UnixNano())

	pipe := s.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, k, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	pipe.ZAdd(ctx, k, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: member,
	})
	countCmd := pipe.ZCard(ctx, k)
	oldestCmd := pipe.ZRangeWithScores(ctx, k, 0, 0)
	pipe.PExpire(ctx, k, budget.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("ratelimit pipeline failed: %w", err)
	}

	// Count includes this request's own member.
	count := int(countCmd.Val())
	decision := Decision{Limit: budget.MaxRequests}

	if count > budget.MaxRequests {
		s.rdb.ZRem(ctx, k, member)
		decision.Limited = true
		decision.Remaining = 0
		if oldest := oldestCmd.Val(); len(oldest) > 0 {
			oldestAt := time.Unix(0, int64(oldest[0].Score))
			decision.ResetAt = oldestAt.Add(budget.Window)
			decision.RetryAfter = decision.ResetAt.Sub(now)
			if decision.RetryAfter < 0 {
				decision.RetryAfter = 0
			}
		}
		return decision, nil
	}

	decision.Remaining = budget.MaxRequests - count
	decision.ResetAt = now.Add(budget.Window)
	return decision, nil
}
