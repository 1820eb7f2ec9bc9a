package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"pgstay/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger logs each request and recovers from panics. A request id is
// taken from X-Request-ID or generated, and echoed back.
func RequestLogger(log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set("request_id", rid)
		c.Header(requestIDHeader, rid)

		defer func() {
			if recovered := recover(); recovered != nil {
				entry(log, c, start).
					WithField("panic", fmt.Sprintf("%v", recovered)).
					WithField("stack", string(debug.Stack())).
					Error("request panicked")
				response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
				c.Abort()
				return
			}

			e := entry(log, c, start)
			if len(c.Errors) > 0 {
				e = e.WithField("errors", c.Errors.String())
			}
			switch status := c.Writer.Status(); {
			case status >= http.StatusInternalServerError:
				e.Error("request failed")
			case status >= http.StatusBadRequest:
				e.Warn("request rejected")
			default:
				e.Info("request")
			}
		}()

		c.Next()
	}
}

func entry(log *logrus.Entry, c *gin.Context, start time.Time) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"status":     c.Writer.Status(),
		"latency":    time.Since(start).String(),
		"client_ip":  c.ClientIP(),
		"user_id":    c.GetInt64("user_id"),
		"role":       c.GetString("role"),
		"request_id": c.GetString("request_id"),
	})
}
