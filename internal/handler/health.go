package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Root answers Slack's URL verification pings and uptime probes.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{})
}

// Healthz reports the reachability of each configured dependency.
func (h *Handler) Healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, checker := range h.Health {
		ok := checker.Healthy(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}
