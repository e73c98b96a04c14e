package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Logs returns a page of the proxy's log file.
func (h *Handlers) Logs(c *gin.Context) {
	if !h.logs.Configured() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "log file not configured"})
		return
	}

	lines := queryInt(c, "lines", 200)
	offset := queryInt(c, "offset", 0)

	view, err := h.logs.Read(lines, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

// LogsTail returns the last lines of the log for live refresh.
func (h *Handlers) LogsTail(c *gin.Context) {
	if !h.logs.Configured() {
		c.JSON(http.StatusOK, gin.H{"content": "", "lines": 0})
		return
	}

	lines := queryInt(c, "lines", 50)
	content, err := h.logs.Tail(lines)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": content, "lines": lines})
}

// LogsClear truncates the log file, optionally keeping a backup.
func (h *Handlers) LogsClear(c *gin.Context) {
	if !h.logs.Configured() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "log file not configured"})
		return
	}

	var req struct {
		Backup bool `json:"backup"`
	}
	_ = c.ShouldBindJSON(&req)

	backupPath, err := h.logs.Clear(req.Backup)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{"success": true, "message": "log cleared"}
	if backupPath != "" {
		resp["message"] = "log backed up to " + backupPath
		resp["backup_path"] = backupPath
	}
	c.JSON(http.StatusOK, resp)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
