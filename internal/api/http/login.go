package http

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/proxydash/proxydash/internal/login"
)

// oauthProvider maps a provider name to the proxy binary's login flag and
// the local callback port its flow listens on. Port 0 means a device-code
// flow with no callback listener.
type oauthProvider struct {
	Flag         string
	CallbackPort int
}

// oauthProviders is the fixed provider table. The core supervisor is
// agnostic to its contents; it only shapes the command line.
var oauthProviders = map[string]oauthProvider{
	"antigravity": {Flag: "-antigravity-login", CallbackPort: 51121},
	"gemini":      {Flag: "-login", CallbackPort: 8085},
	"codex":       {Flag: "-codex-login", CallbackPort: 1455},
	"claude":      {Flag: "-claude-login", CallbackPort: 54545},
	"qwen":        {Flag: "-qwen-login", CallbackPort: 0},
	"iflow":       {Flag: "-iflow-login", CallbackPort: 55998},
}

// urlWaitBudget bounds how long StartLogin waits for the CLI to print its
// authentication URL before answering with whatever state exists.
const urlWaitBudget = 3 * time.Second

// StartLogin launches an interactive OAuth login for a provider and waits
// briefly for the authentication URL to appear.
func (h *Handlers) StartLogin(c *gin.Context) {
	providerName := strings.ToLower(c.Param("provider"))

	provider, ok := oauthProviders[providerName]
	if !ok {
		supported := make([]string, 0, len(oauthProviders))
		for name := range oauthProviders {
			supported = append(supported, name)
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "unsupported provider: " + providerName,
			"supported": supported,
		})
		return
	}

	binaryPath := filepath.Join(h.cfg.Proxy.ServiceDir, h.cfg.Proxy.BinaryName)
	if _, err := os.Stat(binaryPath); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "proxy binary not found: " + binaryPath})
		return
	}

	session, err := h.sessions.Start(
		providerName,
		binaryPath,
		[]string{provider.Flag, "-no-browser"},
		h.cfg.Proxy.ServiceDir,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.metrics.RecordLoginStarted(providerName)

	// The CLI prints its URL within a second or two; poll so the response
	// can carry it directly instead of forcing an immediate status call.
	snapshot := session.Snapshot()
	deadline := time.Now().Add(urlWaitBudget)
	for snapshot.URL == "" && !snapshot.Completed && time.Now().Before(deadline) {
		time.Sleep(200 * time.Millisecond)
		snapshot = session.Snapshot()
	}

	if snapshot.URL != "" {
		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"url":           snapshot.URL,
			"state":         session.ID(),
			"provider":      providerName,
			"callback_port": provider.CallbackPort,
			"hint": fmt.Sprintf(
				"Open the URL in a browser to finish authentication. On a remote host forward the callback port first: ssh -L %d:localhost:%d user@server",
				provider.CallbackPort, provider.CallbackPort,
			),
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error":  "no authentication URL yet, check the session output",
		"state":  session.ID(),
		"output": snapshot.OutputTail,
	})
}

// LoginStatus reports a session's progress for pollers. Terminal `ok`
// sessions are removed once observed; error sessions stay until cancelled so
// the operator can inspect the output.
func (h *Handlers) LoginStatus(c *gin.Context) {
	state := c.Query("state")
	if state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state parameter required"})
		return
	}

	session, ok := h.sessions.Get(state)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"status": "unknown", "error": "session not found"})
		return
	}

	snapshot := session.Snapshot()
	switch snapshot.Status {
	case login.StatusOK:
		if _, removed := h.sessions.Remove(state); removed {
			h.metrics.RecordLoginFinished(snapshot.Provider, "ok")
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case login.StatusError:
		c.JSON(http.StatusOK, gin.H{"status": "error", "error": snapshot.Error})
	case login.StatusNeedsInput:
		c.JSON(http.StatusOK, gin.H{
			"status":       "wait",
			"needs_input":  true,
			"input_prompt": snapshot.InputPrompt,
			"detail":       snapshot.OutputTail,
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"status": "wait",
			"url":    snapshot.URL,
			"detail": snapshot.OutputTail,
		})
	}
}

// LoginOutput returns a session's entire cleaned output.
func (h *Handlers) LoginOutput(c *gin.Context) {
	state := c.Query("state")
	session, ok := h.sessions.Get(state)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state, "output": session.FullOutput()})
}

// LoginInput relays user-supplied text into the session's terminal.
func (h *Handlers) LoginInput(c *gin.Context) {
	var req struct {
		State string `json:"state" binding:"required"`
		Text  string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state parameter required"})
		return
	}

	session, ok := h.sessions.Get(req.State)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	if err := session.SendInput(req.Text); err != nil {
		if errors.Is(err, login.ErrSessionCompleted) {
			c.JSON(http.StatusConflict, gin.H{"error": "session already completed"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// LoginCancel terminates a session. Cancelling an unknown session still
// succeeds so the operation is idempotent.
func (h *Handlers) LoginCancel(c *gin.Context) {
	state := c.Query("state")
	if state == "" {
		var req struct {
			State string `json:"state"`
		}
		if err := c.ShouldBindJSON(&req); err == nil {
			state = req.State
		}
	}
	if state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state parameter required"})
		return
	}

	if session, ok := h.sessions.Remove(state); ok {
		session.Cancel()
		h.metrics.RecordLoginFinished(session.Provider(), "cancelled")
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "session cancelled"})
}
