// Package proxyctl starts, stops and inspects the credential-proxy service
// process. The proxy runs as a plain background binary, so control goes
// through pgrep/ps/pkill rather than an init system.
package proxyctl

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ProcessInfo describes one running proxy process.
type ProcessInfo struct {
	PID  string `json:"pid"`
	Info string `json:"info"`
}

// Status reports whether the proxy is running and which processes belong
// to it.
type Status struct {
	Running   bool          `json:"running"`
	PIDs      []string      `json:"pids"`
	Processes []ProcessInfo `json:"processes"`
	Count     int           `json:"count"`
}

// Controller manages the proxy binary in ServiceDir.
type Controller struct {
	serviceDir string
	binaryName string
	logFile    string
	logger     *zap.Logger
}

// NewController creates a controller for the proxy installation.
func NewController(serviceDir, binaryName, logFile string, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		serviceDir: serviceDir,
		binaryName: binaryName,
		logFile:    logFile,
		logger:     logger,
	}
}

// ServiceDir returns the configured proxy directory.
func (c *Controller) ServiceDir() string { return c.serviceDir }

// BinaryName returns the proxy binary name.
func (c *Controller) BinaryName() string { return c.binaryName }

// LogFile returns the proxy's log file path.
func (c *Controller) LogFile() string { return c.logFile }

// Configured reports whether the service directory exists.
func (c *Controller) Configured() bool {
	if c.serviceDir == "" {
		return false
	}
	_, err := os.Stat(c.serviceDir)
	return err == nil
}

// Status finds proxy processes by binary name. pgrep returning nothing is a
// clean "not running", not an error.
func (c *Controller) Status(ctx context.Context) Status {
	out, err := exec.CommandContext(ctx, "pgrep", "-f", c.binaryName).Output()
	if err != nil {
		return Status{PIDs: []string{}, Processes: []ProcessInfo{}}
	}

	var pids []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			pids = append(pids, line)
		}
	}
	if len(pids) == 0 {
		return Status{PIDs: []string{}, Processes: []ProcessInfo{}}
	}

	processes := make([]ProcessInfo, 0, len(pids))
	for _, pid := range pids {
		info := ProcessInfo{PID: pid}
		psOut, err := exec.CommandContext(ctx, "ps", "-p", pid, "-o", "pid,ppid,%cpu,%mem,etime,command").Output()
		if err == nil {
			lines := strings.Split(strings.TrimSpace(string(psOut)), "\n")
			if len(lines) > 1 {
				info.Info = strings.TrimSpace(lines[1])
			}
		}
		processes = append(processes, info)
	}

	return Status{Running: true, PIDs: pids, Processes: processes, Count: len(pids)}
}

// Start launches the proxy detached with output redirected to its log file.
// Returns the post-start status so callers can verify the process came up.
func (c *Controller) Start(ctx context.Context) (Status, error) {
	if !c.Configured() {
		return Status{}, fmt.Errorf("service directory not configured or missing: %s", c.serviceDir)
	}
	binaryPath := filepath.Join(c.serviceDir, c.binaryName)
	if _, err := os.Stat(binaryPath); err != nil {
		return Status{}, fmt.Errorf("proxy binary not found: %s", binaryPath)
	}

	if status := c.Status(ctx); status.Running {
		return status, fmt.Errorf("service already running (pids %s)", strings.Join(status.PIDs, ","))
	}

	logFile := c.logFile
	if logFile == "" {
		logFile = filepath.Join(c.serviceDir, c.binaryName+".log")
	}

	shellCmd := fmt.Sprintf("cd %q && nohup ./%s > %q 2>&1 &", c.serviceDir, c.binaryName, logFile)
	cmd := exec.CommandContext(ctx, "sh", "-c", shellCmd)
	if err := cmd.Run(); err != nil {
		return Status{}, fmt.Errorf("failed to launch proxy: %w", err)
	}

	// Give the process a moment before verifying.
	time.Sleep(1 * time.Second)
	status := c.Status(ctx)
	if !status.Running {
		return status, fmt.Errorf("proxy did not start, check %s", logFile)
	}
	c.logger.Info("proxy service started", zap.Strings("pids", status.PIDs))
	return status, nil
}

// Stop terminates the proxy via pkill, escalating to SIGKILL if it is still
// alive shortly after. Stopping an already-stopped service succeeds.
func (c *Controller) Stop(ctx context.Context) (Status, error) {
	before := c.Status(ctx)
	if !before.Running {
		return before, nil
	}

	_ = exec.CommandContext(ctx, "pkill", "-f", c.binaryName).Run()
	time.Sleep(500 * time.Millisecond)

	status := c.Status(ctx)
	if status.Running {
		_ = exec.CommandContext(ctx, "pkill", "-9", "-f", c.binaryName).Run()
		time.Sleep(300 * time.Millisecond)
		status = c.Status(ctx)
		if status.Running {
			return status, fmt.Errorf("proxy still running after SIGKILL (pids %s)", strings.Join(status.PIDs, ","))
		}
	}
	c.logger.Info("proxy service stopped", zap.Strings("killed_pids", before.PIDs))
	return status, nil
}

// Restart stops then starts the proxy.
func (c *Controller) Restart(ctx context.Context) (Status, error) {
	if _, err := c.Stop(ctx); err != nil {
		return Status{}, fmt.Errorf("restart: %w", err)
	}
	time.Sleep(500 * time.Millisecond)
	return c.Start(ctx)
}
