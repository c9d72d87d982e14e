package ratelimit

import (
	"context"
	"time"

	"github.com/Its-donkey/quill/logging"
	redis "github.com/redis/go-redis/v9"
)

const redisPrefix = "quill:ratelimit:"

// Redis is a Limiter shared across processes. Redis errors fail open.
type Redis struct {
	client  *redis.Client
	logger  *logging.Logger
	timeout time.Duration
}

// NewRedis connects to addr and verifies the connection with a PING.
func NewRedis(addr, password string, db int, logger *logging.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Redis{client: client, logger: logger, timeout: 250 * time.Millisecond}, nil
}

// Allow records one attempt for key.
func (r *Redis) Allow(key string, limit int, window time.Duration) Decision {
	if limit <= 0 {
		return Decision{Allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	redisKey := redisPrefix + key
	counter, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		r.logError("incr", err)
		return Decision{Allowed: true}
	}
	if counter == 1 {
		if err := r.client.Expire(ctx, redisKey, window).Err(); err != nil {
			r.logError("expire", err)
		}
	}
	ttl, err := r.client.TTL(ctx, redisKey).Result()
	if err != nil || ttl <= 0 {
		ttl = window
	}
	return Decision{
		Allowed:   int(counter) <= limit,
		Count:     int(counter),
		WindowEnd: time.Now().Add(ttl),
	}
}

// Close releases the Redis connection pool.
func (r *Redis) Close() {
	if r.client != nil {
		_ = r.client.Close()
	}
}

func (r *Redis) logError(op string, err error) {
	r.logger.Error("ratelimit", "redis limiter error", err, map[string]any{"op": op})
}
