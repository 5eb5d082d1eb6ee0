package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kramikkk/vitalink-ai/internal/logger"
)

// DedupGate is a fast first-writer-wins gate in front of the alert dedup
// window. Acquire is SET NX with the window as TTL: the first evaluation of a
// (user, alert type) inside a window wins, every later one is told to
// suppress without touching the database.
type DedupGate interface {
	// Acquire returns true when the caller is first for the key within the
	// window.
	Acquire(ctx context.Context, key string, window time.Duration) (bool, error)
	// Release drops the key, re-opening the gate. Called whenever the gate
	// was taken but no alert was created, whether the database errored or
	// suppressed the duplicate.
	Release(ctx context.Context, key string) error
	Close() error
}

type dedupGate struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewDedupGate(log *logger.Logger, addr string) (DedupGate, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &dedupGate{log: log.With("service", "RedisDedupGate"), rdb: rdb}, nil
}

// NewDedupGateFromClient wraps an existing client. Test helper.
func NewDedupGateFromClient(log *logger.Logger, rdb *goredis.Client) DedupGate {
	return &dedupGate{log: log.With("service", "RedisDedupGate"), rdb: rdb}
}

func (g *dedupGate) Acquire(ctx context.Context, key string, window time.Duration) (bool, error) {
	ok, err := g.rdb.SetNX(ctx, key, 1, window).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (g *dedupGate) Release(ctx context.Context, key string) error {
	return g.rdb.Del(ctx, key).Err()
}

func (g *dedupGate) Close() error {
	return g.rdb.Close()
}
