package monitoring

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

type httpStats struct {
	Active      int64
	Total       uint64
	ServerError uint64
	RateLimited uint64
}

type requestCounters struct {
	active      atomic.Int64
	total       atomic.Uint64
	serverError atomic.Uint64
	rateLimited atomic.Uint64
}

var httpRequests requestCounters

// RequestMetricsMiddleware counts in-flight and finished requests, and the
// responses that were rate limited or failed server side.
func RequestMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpRequests.active.Add(1)
		httpRequests.total.Add(1)
		defer httpRequests.active.Add(-1)

		c.Next()

		status := c.Writer.Status()
		if status == http.StatusTooManyRequests {
			httpRequests.rateLimited.Add(1)
		} else if status >= http.StatusInternalServerError {
			httpRequests.serverError.Add(1)
		}
	}
}

func getHTTPStats() httpStats {
	return httpStats{
		Active:      httpRequests.active.Load(),
		Total:       httpRequests.total.Load(),
		ServerError: httpRequests.serverError.Load(),
		RateLimited: httpRequests.rateLimited.Load(),
	}
}
