package payments

import (
	"context"
	"time"
)

const guardTTL = 7 * 24 * time.Hour

type idempotencyStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// IdempotencyGuard suppresses duplicate webhook deliveries for a window.
// Replays inside the window short-circuit before touching the database;
// replays after it fall through to the verifier, which is itself idempotent.
type IdempotencyGuard struct {
	store idempotencyStore
}

// NewIdempotencyGuard builds a redis-backed guard.
func NewIdempotencyGuard(store idempotencyStore) *IdempotencyGuard {
	return &IdempotencyGuard{store: store}
}

// CheckAndMark reports whether the payment reference was already seen, and
// marks it seen if not.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, paymentRef string) (bool, error) {
	key := g.store.IdempotencyKey("payment-webhook", paymentRef)
	fresh, err := g.store.SetNX(ctx, key, "1", guardTTL)
	if err != nil {
		return false, err
	}
	return !fresh, nil
}

// Delete unmarks the reference so a failed delivery can be retried.
func (g *IdempotencyGuard) Delete(ctx context.Context, paymentRef string) error {
	return g.store.Del(ctx, g.store.IdempotencyKey("payment-webhook", paymentRef))
}
