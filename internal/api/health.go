package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck probes one backing dependency.
type HealthCheck func(ctx context.Context) error

const healthTimeout = 2 * time.Second

// HealthHandler answers /health. With no checks it always reports ok;
// otherwise any failing check turns the response into 503 "degraded" and
// names the failure.
func HealthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		status, code := "ok", http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status, code = "degraded", http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		body := gin.H{"status": status}
		if len(checks) > 0 {
			body["checks"] = results
		}
		c.JSON(code, body)
	}
}
