// Package ws streams live login-session output to the dashboard frontend.
package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/proxydash/proxydash/internal/login"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the dashboard binds to localhost
	},
}

// Handler manages WebSocket connections watching login sessions.
type Handler struct {
	sessions *login.Registry
	logger   *zap.Logger
}

// NewHandler creates a WebSocket handler.
func NewHandler(sessions *login.Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: sessions, logger: logger}
}

// event is one message pushed to the client.
type event struct {
	Type        string `json:"type"`
	Status      string `json:"status,omitempty"`
	URL         string `json:"url,omitempty"`
	Output      string `json:"output,omitempty"`
	InputPrompt string `json:"input_prompt,omitempty"`
	Error       string `json:"error,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Watch upgrades the connection and pushes session snapshots until the
// session completes or the client disconnects. The query parameter `state`
// selects the session.
func (h *Handler) Watch(c *gin.Context) {
	state := c.Query("state")
	session, ok := h.sessions.Get(state)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	logger := h.logger.With(zap.String("conn_id", connID), zap.String("session_id", state))
	logger.Debug("session watch started")

	_ = conn.WriteJSON(event{Type: "hello", Message: "watching session " + state})

	// Detect client disconnect; reads are otherwise unused.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var lastSent int
	for {
		select {
		case <-done:
			logger.Debug("client disconnected")
			return
		case <-ticker.C:
		}

		full := session.FullOutput()
		snapshot := session.Snapshot()

		msg := event{
			Type:        "update",
			Status:      string(snapshot.Status),
			URL:         snapshot.URL,
			InputPrompt: snapshot.InputPrompt,
			Error:       snapshot.Error,
		}
		if len(full) > lastSent {
			msg.Output = full[lastSent:]
			lastSent = len(full)
		}

		if err := conn.WriteJSON(msg); err != nil {
			logger.Debug("websocket write failed", zap.Error(err))
			return
		}

		if snapshot.Completed {
			_ = conn.WriteJSON(event{Type: "done", Status: string(snapshot.Status), Error: snapshot.Error})
			return
		}
	}
}
