package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

func requestFrom(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = ip + ":1111"
	return req
}

func TestRateLimitMiddlewareBlocksBurst(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(0), 1)
	defer limiter.Close()

	router := newTestRouter(RateLimitMiddleware(limiter))
	router.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	mustStatus(t, serve(router, requestFrom("1.2.3.4")).Code, http.StatusOK)

	recorder := serve(router, requestFrom("1.2.3.4"))
	mustStatus(t, recorder.Code, http.StatusTooManyRequests)
	if body := decodeBody(t, recorder); body["success"] != false {
		t.Fatalf("unexpected body %v", body)
	}

	// Buckets are per client.
	mustStatus(t, serve(router, requestFrom("5.6.7.8")).Code, http.StatusOK)
}

func TestRateLimitMiddlewareNilLimiterAllows(t *testing.T) {
	router := newTestRouter(RateLimitMiddleware(nil))
	router.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		mustStatus(t, serve(router, requestFrom("1.2.3.4")).Code, http.StatusOK)
	}
}

func TestRedisRateLimiterLimitFromConfig(t *testing.T) {
	if got := NewRedisRateLimiter(nil, "p", 2.5, 1).limit; got != 3 {
		t.Fatalf("expected limit 3 from rps, got %d", got)
	}
	if got := NewRedisRateLimiter(nil, "p", 1, 10).limit; got != 10 {
		t.Fatalf("expected limit 10 from burst, got %d", got)
	}
}

func TestAllowByRedisWindowDisabledReturnsOK(t *testing.T) {
	ok, err := allowByRedisWindow(context.Background(), nil, "p", "1.2.3.4", 1, time.Second)
	if err != nil || !ok {
		t.Fatalf("expected ok without client, got ok=%v err=%v", ok, err)
	}
}

func TestAllowByRedisWindowUnavailableRedisReturnsError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
	})
	defer func() { _ = client.Close() }()

	ok, err := allowByRedisWindow(context.Background(), client, "p", "1.2.3.4", 1, time.Second)
	if err == nil || ok {
		t.Fatalf("expected redis error, got ok=%v err=%v", ok, err)
	}
}

func TestRateLimitMiddlewareFailsOpenOnRedisError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
	})
	defer func() { _ = client.Close() }()

	router := newTestRouter(RateLimitMiddleware(NewRedisRateLimiter(client, "p", 0, 1)))
	router.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		mustStatus(t, serve(router, requestFrom("1.2.3.4")).Code, http.StatusOK)
	}
}
