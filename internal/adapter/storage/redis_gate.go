package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	stockKeyPrefix = "stock:"
	requestKeyTTL  = 24 * time.Hour
)

var reserveStockScript = redis.NewScript(`
local key = KEYS[1]
local quantity = tonumber(ARGV[1])

local current = redis.call('GET', key)
if not current then
	return 1
end

current = tonumber(current)
if current >= quantity then
	redis.call('DECRBY', key, quantity)
	return 1
end

return 0
`)

// RedisGate is an advisory fast path in front of the authoritative
// SQLite state: it sheds placements that are obviously doomed and
// dedupes replayed requests. A product with no key in Redis is treated
// as unknown and waved through; correctness never depends on the gate.
type RedisGate struct {
	client *redis.Client
}

func NewRedisGate(client *redis.Client) *RedisGate {
	return &RedisGate{client: client}
}

func stockKey(productID int64) string {
	return fmt.Sprintf("%s%d", stockKeyPrefix, productID)
}

// SetStock mirrors a product's stock level into the gate.
func (g *RedisGate) SetStock(ctx context.Context, productID int64, stock int) error {
	return g.client.Set(ctx, stockKey(productID), stock, 0).Err()
}

// Reserve atomically claims quantity units, returning false when the
// mirrored stock cannot cover them.
func (g *RedisGate) Reserve(ctx context.Context, productID int64, quantity int) (bool, error) {
	result, err := reserveStockScript.Run(ctx, g.client, []string{stockKey(productID)}, quantity).Int()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

// Restore returns previously reserved units, used when the database
// rejects a placement after the gate admitted it.
func (g *RedisGate) Restore(ctx context.Context, productID int64, quantity int) error {
	return g.client.IncrBy(ctx, stockKey(productID), int64(quantity)).Err()
}

// MarkRequest sets an idempotency key, returning false if the request
// id was already seen.
func (g *RedisGate) MarkRequest(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, key, 1, requestKeyTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
