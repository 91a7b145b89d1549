package webserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Limiter admits or rejects one request for key within bucket.
type Limiter interface {
	Allow(ctx context.Context, bucket, key string) (bool, error)
}

// MemoryLimiter is a process-local sliding window.
type MemoryLimiter struct {
	requests  map[string][]time.Time
	mu        sync.Mutex
	rate      int           // requests per window
	window    time.Duration // time window
	lastSweep time.Time
}

func NewMemoryLimiter(rate int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		requests: make(map[string][]time.Time),
		rate:     rate,
		window:   window,
	}
}

func (rl *MemoryLimiter) Allow(_ context.Context, bucket, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSweep) >= rl.window {
		rl.sweep(now)
	}

	k := bucket + ":" + key
	valid := prune(rl.requests[k], now, rl.window)
	if len(valid) >= rl.rate {
		rl.requests[k] = valid
		return false, nil
	}
	rl.requests[k] = append(valid, now)
	return true, nil
}

func (rl *MemoryLimiter) sweep(now time.Time) {
	for k, times := range rl.requests {
		if valid := prune(times, now, rl.window); len(valid) == 0 {
			delete(rl.requests, k)
		} else {
			rl.requests[k] = valid
		}
	}
	rl.lastSweep = now
}

func prune(times []time.Time, now time.Time, window time.Duration) []time.Time {
	valid := times[:0]
	for _, t := range times {
		if now.Sub(t) < window {
			valid = append(valid, t)
		}
	}
	return valid
}

// RedisLimiter is a sliding window shared by every gateway replica, kept
// as one ZSET per key.
type RedisLimiter struct {
	rdb    *redis.Client
	rate   int
	window time.Duration
}

func NewRedisLimiter(rdb *redis.Client, rate int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, rate: rate, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, bucket, key string) (bool, error) {
	now := time.Now().UnixMilli()
	start := now - l.window.Milliseconds()
	limitKey := fmt.Sprintf("bst:rl:%s:%s", bucket, key)
	member := fmt.Sprintf("%d-%s", now, uuid.NewString())

	pipe := l.rdb.TxPipeline()
	pipe.ZAdd(ctx, limitKey, redis.Z{Score: float64(now), Member: member})
	pipe.ZRemRangeByScore(ctx, limitKey, "0", fmt.Sprintf("%d", start))
	countCmd := pipe.ZCard(ctx, limitKey)
	pipe.Expire(ctx, limitKey, l.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	count, err := countCmd.Result()
	if err != nil {
		return false, err
	}
	if count > int64(l.rate) {
		l.rdb.ZRem(ctx, limitKey, member)
		return false, nil
	}
	return true, nil
}

// RateLimitMiddleware keys on the signed-in address, falling back to the
// client IP. Limiter errors let the request through.
func RateLimitMiddleware(limiter Limiter, bucket string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString("addr")
		if key == "" {
			key = c.ClientIP()
		}
		ok, err := limiter.Allow(c.Request.Context(), bucket, key)
		if err != nil {
			logrus.WithError(err).WithField("bucket", bucket).Warn("rate limiter unavailable")
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"err": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
