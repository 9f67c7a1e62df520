package middleware

import (
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDContextKey = "request_id"
	requestIDHeaderName = "X-Request-ID"
	maxRequestIDLength  = 128
)

func RequestIDFromContext(c *gin.Context) string {
	return c.GetString(requestIDContextKey)
}

// RequestIDMiddleware tags each request with an ID, echoes it in the response
// and writes one access log line once the handler chain is done.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id, ok := clientRequestID(c.GetHeader(requestIDHeaderName))
		if !ok {
			id = uuid.NewString()
		}
		c.Set(requestIDContextKey, id)
		c.Header(requestIDHeaderName, id)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		userID, _ := UserIDFromContext(c)

		log.Printf("request_id=%s method=%s path=%s status=%d bytes=%d latency_ms=%.2f client_ip=%s user_id=%d",
			id, c.Request.Method, route, c.Writer.Status(), max(c.Writer.Size(), 0),
			float64(time.Since(start).Microseconds())/1000, c.ClientIP(), userID)
	}
}

// clientRequestID accepts a caller supplied ID when it is printable ASCII
// without spaces, truncated to maxRequestIDLength.
func clientRequestID(raw string) (string, bool) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", false
	}
	if len(id) > maxRequestIDLength {
		id = id[:maxRequestIDLength]
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return "", false
		}
	}
	return id, true
}
