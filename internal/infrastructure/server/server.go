// Package server wires the dashboard's components into an HTTP server.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/proxydash/proxydash/internal/api/http"
	"github.com/proxydash/proxydash/internal/api/middleware"
	"github.com/proxydash/proxydash/internal/api/ws"

	"github.com/proxydash/proxydash/internal/accounts"
	"github.com/proxydash/proxydash/internal/infrastructure/config"
	"github.com/proxydash/proxydash/internal/infrastructure/logging"
	"github.com/proxydash/proxydash/internal/infrastructure/monitoring"
	"github.com/proxydash/proxydash/internal/login"
	"github.com/proxydash/proxydash/internal/logview"
	"github.com/proxydash/proxydash/internal/proxyctl"
	"github.com/proxydash/proxydash/internal/quota"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router   *gin.Engine
	http     *http.Server
	sessions *login.Registry
	logger   *logging.Logger
	config   *config.Config
}

// New builds the server from configuration.
func New(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}

	logger.Info("initializing dashboard",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.String("auth_dir", cfg.Proxy.AuthDir),
		zap.String("mode", mode(cfg)),
	)

	metrics := monitoring.NewMetrics()

	management := accounts.NewManagementClient(cfg.Management.URL, cfg.Management.Key)
	disk := accounts.NewDiskStore(cfg.Proxy.AuthDir, logger.Logger)
	accountSvc := accounts.NewService(management, disk, logger.Logger)

	cachePath := "quota_cache.json"
	quotaSvc := quota.NewService(
		quota.NewFetcher(logger.Logger),
		quota.NewCache(cachePath, logger.Logger),
		logger.Logger,
	)

	proxy := proxyctl.NewController(cfg.Proxy.ServiceDir, cfg.Proxy.BinaryName, cfg.Proxy.LogFile, logger.Logger)
	logs := logview.NewViewer(cfg.Proxy.LogFile)
	sessions := login.NewRegistry(logger.Logger)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS())
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(cfg, accountSvc, quotaSvc, proxy, logs, sessions, metrics, logger)
	wsHandler := ws.NewHandler(sessions, logger.Logger)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/accounts", handlers.ListAccounts)
		api.DELETE("/accounts/:name", handlers.DeleteAccount)
		api.POST("/accounts/:id/quota", handlers.RefreshQuota)
		api.POST("/accounts/quota/refresh-all", handlers.RefreshAllQuotas)

		api.POST("/accounts/auth/:provider", handlers.StartLogin)
		api.GET("/accounts/auth/status", handlers.LoginStatus)
		api.GET("/accounts/auth/output", handlers.LoginOutput)
		api.POST("/accounts/auth/input", handlers.LoginInput)
		api.POST("/accounts/auth/cancel", handlers.LoginCancel)
		api.GET("/accounts/auth/stream", wsHandler.Watch)

		api.GET("/service/status", handlers.ServiceStatus)
		api.POST("/service/start", handlers.ServiceStart)
		api.POST("/service/stop", handlers.ServiceStop)
		api.POST("/service/restart", handlers.ServiceRestart)

		api.GET("/logs", handlers.Logs)
		api.GET("/logs/tail", handlers.LogsTail)
		api.POST("/logs/clear", handlers.LogsClear)

		api.GET("/config", handlers.GetConfig)
		api.GET("/usage-guide", handlers.UsageGuide)
	}

	logger.Info("server initialized")

	return &Server{
		router:   router,
		sessions: sessions,
		logger:   logger,
		config:   cfg,
	}, nil
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("dashboard listening", zap.String("addr", addr))

	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // websocket streams stay open
	}
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts the server down and cancels all in-flight login sessions so no
// child process outlives the dashboard.
func (s *Server) Close() error {
	s.logger.Info("shutting down")
	s.sessions.CancelAll()

	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(ctx); err != nil {
			return err
		}
	}
	_ = s.logger.Sync()
	return nil
}

func mode(cfg *config.Config) string {
	if cfg.Management.Key != "" {
		return "api"
	}
	return "local"
}
