package middleware

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL       = 3 * time.Minute
	limiterCleanupPeriod = time.Minute
	redisLimiterTimeout  = 200 * time.Millisecond
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// IPRateLimiter keeps one token bucket per client in process memory.
type IPRateLimiter struct {
	ips  sync.Map
	mu   sync.Mutex
	r    rate.Limit
	b    int
	stop chan struct{}
	once sync.Once
}

type client struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

func (c *client) touch() {
	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()
}

func (c *client) idleFor() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastSeen)
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		r:    r,
		b:    b,
		stop: make(chan struct{}),
	}

	go i.cleanupLoop()

	return i
}

func (i *IPRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	return i.getLimiter(key).Allow(), nil
}

// Close stops the idle-client cleanup goroutine.
func (i *IPRateLimiter) Close() {
	i.once.Do(func() { close(i.stop) })
}

func (i *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	if v, ok := i.ips.Load(ip); ok {
		c := v.(*client)
		c.touch()
		return c.limiter
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if v, ok := i.ips.Load(ip); ok {
		c := v.(*client)
		c.touch()
		return c.limiter
	}

	limiter := rate.NewLimiter(i.r, i.b)
	i.ips.Store(ip, &client{limiter: limiter, lastSeen: time.Now()})

	return limiter
}

func (i *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(limiterCleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-i.stop:
			return
		case <-ticker.C:
			i.ips.Range(func(key, value any) bool {
				if value.(*client).idleFor() > limiterIdleTTL {
					i.ips.Delete(key)
				}
				return true
			})
		}
	}
}

// RedisRateLimiter counts requests per client in fixed one-second windows
// shared by every instance pointing at the same redis.
type RedisRateLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

// NewRedisRateLimiter allows max(burst, ceil(rps)) requests per second.
func NewRedisRateLimiter(client *redis.Client, prefix string, rps float64, burst int) *RedisRateLimiter {
	limit := int64(burst)
	if perSecond := int64(math.Ceil(rps)); perSecond > limit {
		limit = perSecond
	}
	return &RedisRateLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: time.Second,
	}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return allowByRedisWindow(ctx, l.client, l.prefix, key, l.limit, l.window)
}

func allowByRedisWindow(ctx context.Context, client *redis.Client, prefix, key string, limit int64, window time.Duration) (bool, error) {
	if client == nil || limit <= 0 || window <= 0 {
		return true, nil
	}

	slot := time.Now().UnixNano() / int64(window)
	redisKey := fmt.Sprintf("%s:ratelimit:%s:%d", prefix, key, slot)

	ctx, cancel := context.WithTimeout(ctx, redisLimiterTimeout)
	defer cancel()

	pipe := client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, 2*window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= limit, nil
}

// RateLimitMiddleware answers 429 when limiter refuses the client. Limiter
// errors are logged and the request is let through.
func RateLimitMiddleware(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Printf("request_id=%s rate_limit_error=%q", RequestIDFromContext(c), err.Error())
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}
