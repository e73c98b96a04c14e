package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ServiceStatus reports whether the proxy process is running.
func (h *Handlers) ServiceStatus(c *gin.Context) {
	status := h.proxy.Status(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"running":     status.Running,
		"pids":        status.PIDs,
		"processes":   status.Processes,
		"count":       status.Count,
		"service_dir": h.proxy.ServiceDir(),
		"binary_name": h.proxy.BinaryName(),
		"log_file":    h.proxy.LogFile(),
		"configured":  h.proxy.Configured(),
	})
}

// ServiceStart launches the proxy process.
func (h *Handlers) ServiceStart(c *gin.Context) {
	h.metrics.RecordServiceAction("start")
	status, err := h.proxy.Start(c.Request.Context())
	if err != nil {
		if status.Running {
			// Already-running is informational, not a failure.
			c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error(), "pids": status.PIDs})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "service started", "pids": status.PIDs})
}

// ServiceStop stops the proxy process.
func (h *Handlers) ServiceStop(c *gin.Context) {
	h.metrics.RecordServiceAction("stop")
	status, err := h.proxy.Stop(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "remaining_pids": status.PIDs})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "service stopped"})
}

// ServiceRestart stops then starts the proxy process.
func (h *Handlers) ServiceRestart(c *gin.Context) {
	h.metrics.RecordServiceAction("restart")
	status, err := h.proxy.Restart(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "service restarted", "pids": status.PIDs})
}
