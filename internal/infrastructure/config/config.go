package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all dashboard configuration.
type Config struct {
	Server     ServerConfig
	Management ManagementConfig
	Proxy      ProxyConfig
	Logging    LogConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"5000"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// ManagementConfig holds the proxy's remote management API settings.
type ManagementConfig struct {
	URL string `envconfig:"MANAGEMENT_URL" default:"http://127.0.0.1:8317"`
	Key string `envconfig:"MANAGEMENT_KEY" default:""`
}

// ProxyConfig locates the supervised credential-proxy installation.
type ProxyConfig struct {
	ConfigPath string `envconfig:"PROXY_CONFIG_PATH" default:""`
	ServiceDir string `envconfig:"PROXY_SERVICE_DIR" default:""`
	BinaryName string `envconfig:"PROXY_BINARY_NAME" default:"cliproxyd"`
	LogFile    string `envconfig:"PROXY_LOG_FILE" default:""`
	AuthDir    string `envconfig:"PROXY_AUTH_DIR" default:""`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"50"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"100"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// ProxyFile is the subset of the proxy's own config.yaml the dashboard reads:
// the API port for the usage guide, the auth directory holding credential
// files, and the configured API keys.
type ProxyFile struct {
	Port    int      `yaml:"port"`
	Host    string   `yaml:"host"`
	AuthDir string   `yaml:"auth-dir"`
	APIKeys []string `yaml:"api-keys"`
}

// Load reads configuration from environment variables and, when available,
// fills in defaults from the proxy's config.yaml.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("DASHBOARD", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.applyProxyFile()
	return &cfg, nil
}

// applyProxyFile resolves settings the operator did not override from the
// proxy's own config.yaml, mirroring how the proxy itself is configured.
func (c *Config) applyProxyFile() {
	path := c.Proxy.ConfigPath
	if path == "" {
		path = findProxyConfig()
	}
	if path == "" {
		c.fillProxyDefaults()
		return
	}

	if c.Proxy.ServiceDir == "" {
		c.Proxy.ServiceDir = filepath.Dir(path)
	}

	pf, err := ReadProxyFile(path)
	if err == nil && c.Proxy.AuthDir == "" && pf.AuthDir != "" {
		c.Proxy.AuthDir = expandHome(pf.AuthDir)
	}
	c.fillProxyDefaults()
}

func (c *Config) fillProxyDefaults() {
	if c.Proxy.AuthDir == "" {
		c.Proxy.AuthDir = expandHome("~/.cli-proxy-api")
	}
	if c.Proxy.LogFile == "" && c.Proxy.ServiceDir != "" {
		c.Proxy.LogFile = filepath.Join(c.Proxy.ServiceDir, c.Proxy.BinaryName+".log")
	}
}

// ReadProxyFile parses the proxy's config.yaml.
func ReadProxyFile(path string) (*ProxyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read proxy config: %w", err)
	}
	var pf ProxyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse proxy config: %w", err)
	}
	return &pf, nil
}

// findProxyConfig walks up from the working directory looking for the
// proxy's config.yaml, matching how operators usually run the dashboard from
// inside the proxy installation.
func findProxyConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for i := 0; i < 5; i++ {
		candidate := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func expandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
