package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// slowRequest is the latency above which a request is flagged in the
// log. Synchronous document processing can legitimately approach it.
const slowRequest = 30 * time.Second

// RequestID injects an X-Request-ID header into the request and response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// Logger logs each request with method, path, status, and latency.
// Probe endpoints stay out of the log.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		if path == "/healthz" || path == "/readyz" {
			return
		}

		latency := time.Since(start)
		requestID, _ := c.Get("request_id")
		mark := ""
		if latency > slowRequest {
			mark = " SLOW"
		}
		log.Printf("[%s] %s %s %d %s%s",
			requestID,
			c.Request.Method,
			path,
			c.Writer.Status(),
			latency,
			mark,
		)
	}
}

// Recovery recovers from panics and returns a 500 error.
func Recovery() gin.HandlerFunc {
	return gin.Recovery()
}
