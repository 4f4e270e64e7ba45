package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/safelink-ng/safelink-backend/pkg/errors"
	"github.com/safelink-ng/safelink-backend/pkg/redis"
)

type secretStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	DeliveryCodeKey(orderID string) string
}

// SecretCache holds raw delivery codes for their TTL-bound lifetime. Only the
// bcrypt hash is persisted on the order row; once the cache entry expires the
// code can no longer be read back, only verified.
type SecretCache struct {
	store secretStore
	ttl   time.Duration
}

func NewSecretCache(store secretStore, ttl time.Duration) (*SecretCache, error) {
	if store == nil {
		return nil, errors.New("orders: secret store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("orders: secret ttl must be positive")
	}
	return &SecretCache{store: store, ttl: ttl}, nil
}

// Put caches the raw delivery code for the order.
func (c *SecretCache) Put(ctx context.Context, orderID uuid.UUID, code string) error {
	return c.store.Set(ctx, c.store.DeliveryCodeKey(orderID.String()), code, c.ttl)
}

// Get returns the cached raw code, or a not-found error once it has expired
// or was never written.
func (c *SecretCache) Get(ctx context.Context, orderID uuid.UUID) (string, error) {
	code, err := c.store.Get(ctx, c.store.DeliveryCodeKey(orderID.String()))
	if errors.Is(err, redis.Nil) {
		return "", apperrors.New(apperrors.CodeNotFound, "delivery code is no longer available")
	}
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeDependency, err, "reading delivery code cache")
	}
	return code, nil
}

// Forget drops the cached code. Safe to call after settlement.
func (c *SecretCache) Forget(ctx context.Context, orderID uuid.UUID) error {
	return c.store.Del(ctx, c.store.DeliveryCodeKey(orderID.String()))
}
