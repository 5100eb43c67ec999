package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Domenick1991/airline-ticketing/config"
	"github.com/Domenick1991/airline-ticketing/internal/domain"
)

// RedisCache stores flight search pages and short-lived job locks.
//
// Search pages are keyed by a generation counter. Any write that changes what a
// search could return bumps the counter, so stale pages simply stop being read
// and expire on their own.
type RedisCache struct {
	client     *redis.Client
	flightsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, flightsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		flightsTTL: flightsTTL,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// FlightsGeneration returns the current search generation. A missing counter is generation 0.
func (c *RedisCache) FlightsGeneration(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// GetFlightPage returns nil, nil on a cache miss.
func (c *RedisCache) GetFlightPage(ctx context.Context, generation int64, query string) (*domain.FlightPage, error) {
	data, err := c.client.Get(ctx, flightPageKey(generation, query)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var page domain.FlightPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *RedisCache) SetFlightPage(ctx context.Context, generation int64, query string, page *domain.FlightPage) error {
	if c.flightsTTL <= 0 {
		return nil
	}
	payload, err := json.Marshal(page)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flightPageKey(generation, query), payload, c.flightsTTL).Err()
}

func (c *RedisCache) InvalidateFlights(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey()).Err()
}

// releaseLockScript deletes the lock only while it still holds the caller's token.
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireJobLock returns the token identifying this holder; pass it to ReleaseJobLock.
func (c *RedisCache) AcquireJobLock(ctx context.Context, job string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := c.client.SetNX(ctx, jobLockKey(job), token, ttl).Result()
	if err != nil || !ok {
		return "", ok, err
	}
	return token, true, nil
}

// ReleaseJobLock is a no-op when the lock expired and was taken by another holder.
func (c *RedisCache) ReleaseJobLock(ctx context.Context, job, token string) error {
	return releaseLockScript.Run(ctx, c.client, []string{jobLockKey(job)}, token).Err()
}

func generationKey() string {
	return "cache:flights:gen"
}

func flightPageKey(generation int64, query string) string {
	return fmt.Sprintf("cache:flights:%d:%s", generation, query)
}

func jobLockKey(job string) string {
	return fmt.Sprintf("lock:job:%s", job)
}
