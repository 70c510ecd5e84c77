package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"apexpulse/internal/engine/dto"
	"apexpulse/pkg/common"

	"github.com/redis/go-redis/v9"
)

// MarketSnapshot is the universe pricing of one batch run.
type MarketSnapshot struct {
	RunID      string           `json:"run_id"`
	ResolvedAt time.Time        `json:"resolved_at"`
	Quotes     []dto.PriceQuote `json:"quotes"`
}

// PriceCacheRepository stores the latest market snapshot and guards batch runs with a lock.
type PriceCacheRepository interface {
	SaveSnapshot(ctx context.Context, snapshot MarketSnapshot, ttl time.Duration) error
	GetSnapshot(ctx context.Context) (*MarketSnapshot, error)
	TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, token string) error
}

type priceCacheRepository struct {
	client *redis.Client
}

func NewPriceCacheRepository(client *redis.Client) PriceCacheRepository {
	return &priceCacheRepository{client: client}
}

func (r *priceCacheRepository) SaveSnapshot(ctx context.Context, snapshot MarketSnapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal market snapshot: %w", err)
	}
	return r.client.Set(ctx, common.RedisKeyMarketSnapshot, payload, ttl).Err()
}

func (r *priceCacheRepository) GetSnapshot(ctx context.Context) (*MarketSnapshot, error) {
	payload, err := r.client.Get(ctx, common.RedisKeyMarketSnapshot).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	var snapshot MarketSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal market snapshot: %w", err)
	}
	return &snapshot, nil
}

func (r *priceCacheRepository) TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, token, ttl).Result()
}

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Unlock releases the lock only if it is still held with token.
func (r *priceCacheRepository) Unlock(ctx context.Context, key, token string) error {
	return unlockScript.Run(ctx, r.client, []string{key}, token).Err()
}
