// Package http contains the dashboard's HTTP handlers.
package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/proxydash/proxydash/internal/accounts"
	"github.com/proxydash/proxydash/internal/infrastructure/config"
	"github.com/proxydash/proxydash/internal/infrastructure/logging"
	"github.com/proxydash/proxydash/internal/infrastructure/monitoring"
	"github.com/proxydash/proxydash/internal/login"
	"github.com/proxydash/proxydash/internal/logview"
	"github.com/proxydash/proxydash/internal/proxyctl"
	"github.com/proxydash/proxydash/internal/quota"
)

// Handlers holds all HTTP handler dependencies.
type Handlers struct {
	cfg      *config.Config
	accounts *accounts.Service
	quota    *quota.Service
	proxy    *proxyctl.Controller
	logs     *logview.Viewer
	sessions *login.Registry
	metrics  *monitoring.Metrics
	logger   *logging.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(
	cfg *config.Config,
	accountSvc *accounts.Service,
	quotaSvc *quota.Service,
	proxy *proxyctl.Controller,
	logs *logview.Viewer,
	sessions *login.Registry,
	metrics *monitoring.Metrics,
	logger *logging.Logger,
) *Handlers {
	return &Handlers{
		cfg:      cfg,
		accounts: accountSvc,
		quota:    quotaSvc,
		proxy:    proxy,
		logs:     logs,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
	}
}

// Root handles the basic liveness check.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Credential Proxy Dashboard",
		"version": "0.3.0",
	})
}

// Health reports component health.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"mode":           h.accounts.Mode(),
		"auth_dir":       h.accounts.AuthDir(),
		"login_sessions": h.sessions.Count(),
		"proxy":          gin.H{"configured": h.proxy.Configured()},
	})
}

// GetConfig exposes the effective non-secret configuration.
func (h *Handlers) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"management_api_url": h.cfg.Management.URL,
		"has_api_key":        h.cfg.Management.Key != "",
		"auth_dir":           h.cfg.Proxy.AuthDir,
		"mode":               h.accounts.Mode(),
	})
}

// UsageGuide returns ready-to-paste client examples against the proxy's
// OpenAI-compatible endpoint.
func (h *Handlers) UsageGuide(c *gin.Context) {
	apiKey := "YOUR_API_KEY"
	host := "127.0.0.1"
	port := 8317
	var keys []string

	if h.cfg.Proxy.ServiceDir != "" {
		if pf, err := config.ReadProxyFile(h.cfg.Proxy.ServiceDir + "/config.yaml"); err == nil {
			if len(pf.APIKeys) > 0 {
				apiKey = pf.APIKeys[0]
				keys = pf.APIKeys
			}
			if pf.Port != 0 {
				port = pf.Port
			}
			if pf.Host != "" {
				host = pf.Host
			}
		}
	}
	baseURL := fmt.Sprintf("http://%s:%d", host, port)

	curlExample := fmt.Sprintf(`curl %s/v1/chat/completions \
  -H "Content-Type: application/json" \
  -H "Authorization: Bearer %s" \
  -d '{
    "model": "gemini-2.5-flash",
    "messages": [
      {"role": "user", "content": "Hello, how are you?"}
    ]
  }'`, baseURL, apiKey)

	pythonExample := fmt.Sprintf(`from openai import OpenAI

client = OpenAI(api_key=%q, base_url=%q)

response = client.chat.completions.create(
    model="gemini-2.5-flash",
    messages=[{"role": "user", "content": "Hello, how are you?"}],
)
print(response.choices[0].message.content)`, apiKey, baseURL+"/v1")

	c.JSON(http.StatusOK, gin.H{
		"base_url":     baseURL,
		"api_key":      apiKey,
		"all_api_keys": keys,
		"examples": gin.H{
			"curl":          curlExample,
			"python_openai": pythonExample,
		},
	})
}
