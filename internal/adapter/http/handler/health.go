package handler

import (
	"context"
	"net/http"
	"time"

	"solana-pay-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 5 * time.Second

// HealthCheck returns a handler that verifies every registered dependency.
// The gateway is stateless apart from the in-memory session store, so the
// only deep check is ledger reachability.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		deps := make(map[string]string, len(checkers))

		for _, checker := range checkers {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
			err := checker.Check(ctx)
			cancel()

			if err != nil {
				deps[checker.Name()] = "unreachable: " + err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			deps[checker.Name()] = "ok"
		}

		word := "healthy"
		if status != http.StatusOK {
			word = "degraded"
		}

		c.JSON(status, gin.H{
			"status":       word,
			"dependencies": deps,
			"timestamp":    time.Now().UTC().Format(time.RFC3339),
		})
	}
}
