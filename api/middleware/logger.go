package middleware

import (
	"strings"
	"time"

	"github.com/OldStager01/streetlight-controller/internal/logger"
	"github.com/gin-gonic/gin"
)

// RequestLogger writes one structured line per request. Probe traffic on
// /health is logged at debug so it does not drown the control loop logs.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		fields := map[string]interface{}{
			"status":     status,
			"method":     c.Request.Method,
			"path":       path,
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
		}

		if query != "" {
			fields["query"] = query
		}
		if lightID := c.Param("id"); lightID != "" {
			fields["light_id"] = lightID
		}
		if traceID := GetTraceID(c); traceID != "" {
			fields["trace_id"] = traceID
		}
		if username := GetUsername(c); username != "" {
			fields["user"] = username
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		entry := logger.WithFields(fields)

		switch {
		case status >= 500:
			entry.Error("server error")
		case status >= 400:
			entry.Warn("client error")
		case strings.HasPrefix(path, "/health"):
			entry.Debug("probe completed")
		default:
			entry.Info("request completed")
		}
	}
}
