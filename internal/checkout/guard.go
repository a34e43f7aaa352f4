package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// lockStore defines the operations used by the submit guard.
type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key string, value string) (bool, error)
	SubmitLockKey(token string) string
}

// SubmitGuard keeps a handoff from being placed twice concurrently.
type SubmitGuard interface {
	Acquire(ctx context.Context, token string) (release func(context.Context) error, ok bool, err error)
}

type redisGuard struct {
	store lockStore
	ttl   time.Duration
}

// NewSubmitGuard builds a Redis SETNX guard keyed per handoff token.
func NewSubmitGuard(store lockStore, ttl time.Duration) (SubmitGuard, error) {
	if store == nil {
		return nil, fmt.Errorf("redis store required for submit guard")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("submit lock ttl must be positive")
	}
	return &redisGuard{store: store, ttl: ttl}, nil
}

// Acquire owns the token's lock for the configured TTL. ok is false while another
// submission holds it.
func (g *redisGuard) Acquire(ctx context.Context, token string) (func(context.Context) error, bool, error) {
	key := g.store.SubmitLockKey(token)
	owner := uuid.NewString()
	ok, err := g.store.SetNX(ctx, key, owner, g.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("setnx: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return func(ctx context.Context) error {
		return g.release(ctx, key, owner)
	}, true, nil
}

// release frees the lock only if the owner value still matches; an expired
// lock taken over by another submission is left alone.
func (g *redisGuard) release(ctx context.Context, key, owner string) error {
	if _, err := g.store.DelIfValue(ctx, key, owner); err != nil {
		return fmt.Errorf("release submit lock: %w", err)
	}
	return nil
}
