// Package handler provides HTTP handlers for platform-level endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// healthTimeout bounds the time spent on all dependency checks of one probe.
const healthTimeout = 2 * time.Second

// Check is a named dependency probe, such as a database or Redis ping.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Health returns the /healthz handler. The service is reported healthy when
// every check passes; a failing check yields 503 and is logged.
// Responses are never cached.
func Health(checks ...Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")

		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		status, body := http.StatusOK, gin.H{"status": "ok"}
		for _, check := range checks {
			if err := check.Ping(ctx); err != nil {
				slog.Error("health check failed", "check", check.Name, "error", err)
				status, body = http.StatusServiceUnavailable, gin.H{"status": "unavailable", "check": check.Name}
				break
			}
		}

		if c.Request.Method == http.MethodHead {
			c.Status(status)
			return
		}
		c.JSON(status, body)
	}
}
