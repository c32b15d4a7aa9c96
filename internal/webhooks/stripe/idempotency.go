package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aurelhart/scoreline-backend/pkg/redis"
)

const idempotencyScope = "stripe"

// IdempotencyGuard marks payment references as processed so that redelivered
// events do not create a second order or a second confirmation email. Marks
// expire after the configured TTL; a released mark (Release) lets a later
// redelivery retry the pipeline after a ledger write failure.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewIdempotencyGuard builds the guard over the shared redis store.
func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("idempotency ttl must be positive")
	}
	return &IdempotencyGuard{store: store, ttl: ttl}, nil
}

// CheckAndMark atomically marks the payment reference and reports whether it
// had already been marked by an earlier delivery.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, paymentReference string) (bool, error) {
	reference := strings.TrimSpace(paymentReference)
	if reference == "" {
		return false, errors.New("payment reference is required")
	}

	key := g.store.IdempotencyKey(idempotencyScope, reference)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("mark payment reference: %w", err)
	}
	return !set, nil
}

// Release drops the mark so the next delivery of the same reference is
// processed again.
func (g *IdempotencyGuard) Release(ctx context.Context, paymentReference string) error {
	reference := strings.TrimSpace(paymentReference)
	if reference == "" {
		return errors.New("payment reference is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(idempotencyScope, reference))
}
