package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/proxydash/proxydash/internal/accounts"
	"github.com/proxydash/proxydash/internal/infrastructure/config"
	"github.com/proxydash/proxydash/internal/infrastructure/logging"
	"github.com/proxydash/proxydash/internal/infrastructure/monitoring"
	"github.com/proxydash/proxydash/internal/login"
	"github.com/proxydash/proxydash/internal/logview"
	"github.com/proxydash/proxydash/internal/proxyctl"
	"github.com/proxydash/proxydash/internal/quota"
)

// Metrics register against the global Prometheus registry, so the test
// binary shares one instance.
var (
	metricsOnce sync.Once
	testMetrics *monitoring.Metrics
)

func sharedMetrics() *monitoring.Metrics {
	metricsOnce.Do(func() { testMetrics = monitoring.NewMetrics() })
	return testMetrics
}

// fakeProxyScript stands in for the proxy binary during login tests: it
// prints an authentication URL and waits.
const fakeProxyScript = `#!/bin/sh
echo "Visit https://accounts.google.com/o/oauth2/v2/auth?state=fixture"
sleep 30
`

type fixture struct {
	handlers *Handlers
	router   *gin.Engine
	authDir  string
	sessions *login.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	authDir := t.TempDir()
	serviceDir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(serviceDir, "cliproxyd"), []byte(fakeProxyScript), 0o755))

	cfg := &config.Config{}
	cfg.Proxy.ServiceDir = serviceDir
	cfg.Proxy.BinaryName = "cliproxyd"
	cfg.Proxy.AuthDir = authDir
	cfg.Proxy.LogFile = filepath.Join(serviceDir, "cliproxyd.log")
	cfg.Management.URL = "http://127.0.0.1:1"

	accountSvc := accounts.NewService(
		accounts.NewManagementClient(cfg.Management.URL, ""),
		accounts.NewDiskStore(authDir, zap.NewNop()),
		zap.NewNop(),
	)
	quotaSvc := quota.NewService(
		quota.NewFetcher(zap.NewNop()),
		quota.NewCache(filepath.Join(t.TempDir(), "quota_cache.json"), zap.NewNop()),
		zap.NewNop(),
	)
	proxy := proxyctl.NewController(serviceDir, "cliproxyd-test-never-running", cfg.Proxy.LogFile, zap.NewNop())
	sessions := login.NewRegistry(zap.NewNop())
	t.Cleanup(sessions.CancelAll)

	h := NewHandlers(cfg, accountSvc, quotaSvc, proxy, logview.NewViewer(cfg.Proxy.LogFile), sessions, sharedMetrics(), &logging.Logger{Logger: zap.NewNop()})

	router := gin.New()
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	api := router.Group("/api")
	{
		api.GET("/accounts", h.ListAccounts)
		api.DELETE("/accounts/:name", h.DeleteAccount)
		api.POST("/accounts/:id/quota", h.RefreshQuota)
		api.POST("/accounts/quota/refresh-all", h.RefreshAllQuotas)
		api.POST("/accounts/auth/:provider", h.StartLogin)
		api.GET("/accounts/auth/status", h.LoginStatus)
		api.GET("/accounts/auth/output", h.LoginOutput)
		api.POST("/accounts/auth/input", h.LoginInput)
		api.POST("/accounts/auth/cancel", h.LoginCancel)
		api.GET("/config", h.GetConfig)
		api.GET("/usage-guide", h.UsageGuide)
	}

	return &fixture{handlers: h, router: router, authDir: authDir, sessions: sessions}
}

func (f *fixture) writeAccount(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.authDir, name), []byte(content), 0o600))
}

func (f *fixture) do(method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var decoded map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	return w, decoded
}

func TestRoot(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "online", body["status"])
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "local", body["mode"])
}

func TestListAccounts(t *testing.T) {
	f := newFixture(t)
	f.writeAccount(t, "alice.json", `{"type":"gemini","email":"alice@example.com"}`)

	w, body := f.do(http.MethodGet, "/api/accounts", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	list := body["accounts"].([]any)
	require.Len(t, list, 1)
	account := list[0].(map[string]any)
	assert.Equal(t, "alice", account["id"])
	assert.Equal(t, "gemini", account["type"])
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t)
	f.writeAccount(t, "alice.json", `{"type":"gemini"}`)

	w, _ := f.do(http.MethodDelete, "/api/accounts/alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = f.do(http.MethodDelete, "/api/accounts/alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefreshQuotaStatic(t *testing.T) {
	f := newFixture(t)
	f.writeAccount(t, "alice.json", `{"type":"gemini","email":"alice@example.com"}`)

	w, body := f.do(http.MethodPost, "/api/accounts/alice/quota", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	result := body["quota"].(map[string]any)
	assert.NotEmpty(t, result["models"])
}

func TestRefreshQuotaUnknownAccount(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(http.MethodPost, "/api/accounts/ghost/quota", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefreshQuotaUnsupportedProvider(t *testing.T) {
	f := newFixture(t)
	f.writeAccount(t, "odd.json", `{"type":"mystery"}`)

	w, _ := f.do(http.MethodPost, "/api/accounts/odd/quota", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshAllQuotas(t *testing.T) {
	f := newFixture(t)
	f.writeAccount(t, "alice.json", `{"type":"gemini"}`)
	f.writeAccount(t, "odd.json", `{"type":"mystery"}`)

	w, body := f.do(http.MethodPost, "/api/accounts/quota/refresh-all", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, float64(1), body["static"])
	assert.Equal(t, float64(1), body["skipped"])
}

func TestStartLoginUnsupportedProvider(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(http.MethodPost, "/api/accounts/auth/doesnotexist", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, body["supported"])
}

func TestStartLoginBinaryMissing(t *testing.T) {
	f := newFixture(t)
	f.handlers.cfg.Proxy.BinaryName = "absent-binary"

	w, body := f.do(http.MethodPost, "/api/accounts/auth/gemini", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "proxy binary not found")
}

func TestLoginFlow(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(http.MethodPost, "/api/accounts/auth/gemini", nil)
	require.Equal(t, http.StatusOK, w.Code, "body: %v", body)
	assert.Contains(t, body["url"], "accounts.google.com")
	assert.Equal(t, float64(8085), body["callback_port"])

	state := body["state"].(string)

	w, body = f.do(http.MethodGet, "/api/accounts/auth/status?state="+state, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "wait", body["status"])
	assert.Contains(t, body["url"], "accounts.google.com")

	w, body = f.do(http.MethodGet, "/api/accounts/auth/output?state="+state, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body["output"], "accounts.google.com")

	w, body = f.do(http.MethodPost, "/api/accounts/auth/cancel?state="+state, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])

	// The session is gone after cancellation.
	w, _ = f.do(http.MethodGet, "/api/accounts/auth/status?state="+state, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoginStatusValidation(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(http.MethodGet, "/api/accounts/auth/status", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := f.do(http.MethodGet, "/api/accounts/auth/status?state=sess_unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "unknown", body["status"])
}

func TestLoginInputValidation(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(http.MethodPost, "/api/accounts/auth/input", map[string]any{"text": "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(http.MethodPost, "/api/accounts/auth/input", map[string]any{"state": "sess_unknown", "text": "1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoginCancelIdempotent(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(http.MethodPost, "/api/accounts/auth/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Cancelling an unknown session still succeeds.
	w, body := f.do(http.MethodPost, "/api/accounts/auth/cancel?state=sess_unknown", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])

	w, body = f.do(http.MethodPost, "/api/accounts/auth/cancel", map[string]any{"state": "sess_unknown"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
}

func TestGetConfig(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(http.MethodGet, "/api/config", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["has_api_key"])
	assert.Equal(t, f.authDir, body["auth_dir"])
}

func TestUsageGuide(t *testing.T) {
	f := newFixture(t)
	content := "port: 9000\nhost: 10.0.0.5\napi-keys:\n  - sk-test-key\n"
	require.NoError(t, os.WriteFile(
		filepath.Join(f.handlers.cfg.Proxy.ServiceDir, "config.yaml"), []byte(content), 0o644))

	w, body := f.do(http.MethodGet, "/api/usage-guide", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://10.0.0.5:9000", body["base_url"])
	assert.Equal(t, "sk-test-key", body["api_key"])

	examples := body["examples"].(map[string]any)
	assert.Contains(t, examples["curl"], "sk-test-key")
	assert.Contains(t, examples["python_openai"], "http://10.0.0.5:9000/v1")
}
