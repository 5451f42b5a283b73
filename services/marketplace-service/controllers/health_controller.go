package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable.
type Pinger func(ctx context.Context) error

type HealthController struct {
	checks map[string]Pinger
}

func NewHealthController(checks map[string]Pinger) *HealthController {
	return &HealthController{checks: checks}
}

// Health reports "healthy" when every check passes and 503 otherwise.
func (ctrl *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code := "healthy", http.StatusOK
	deps := make(map[string]string, len(ctrl.checks))
	for name, ping := range ctrl.checks {
		if err := ping(ctx); err != nil {
			deps[name] = "down"
			status, code = "unhealthy", http.StatusServiceUnavailable
			continue
		}
		deps[name] = "up"
	}

	c.JSON(code, gin.H{
		"success": code == http.StatusOK,
		"data": gin.H{
			"status":       status,
			"timestamp":    time.Now().UTC(),
			"dependencies": deps,
		},
		"message": "Health check",
	})
}
