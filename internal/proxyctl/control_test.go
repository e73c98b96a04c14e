package proxyctl

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestConfigured(t *testing.T) {
	assert.False(t, NewController("", "cliproxyd", "", zap.NewNop()).Configured())
	assert.False(t, NewController("/nonexistent/dir", "cliproxyd", "", zap.NewNop()).Configured())
	assert.True(t, NewController(t.TempDir(), "cliproxyd", "", zap.NewNop()).Configured())
}

func TestStatusNotRunning(t *testing.T) {
	// No process ever carries this name, so pgrep finds nothing.
	c := NewController(t.TempDir(), "proxyctl-test-fixture-binary", "", zap.NewNop())

	status := c.Status(t.Context())
	assert.False(t, status.Running)
	assert.Empty(t, status.PIDs)
	assert.Zero(t, status.Count)
}

func TestStartUnconfigured(t *testing.T) {
	c := NewController("/nonexistent/dir", "cliproxyd", "", zap.NewNop())

	_, err := c.Start(t.Context())
	assert.ErrorContains(t, err, "not configured")
}

func TestStartBinaryMissing(t *testing.T) {
	dir := t.TempDir()
	c := NewController(dir, "proxyctl-test-fixture-binary", "", zap.NewNop())

	_, err := c.Start(t.Context())
	assert.ErrorContains(t, err, "proxy binary not found")
	assert.Contains(t, err.Error(), filepath.Join(dir, "proxyctl-test-fixture-binary"))
}

func TestStopAlreadyStopped(t *testing.T) {
	c := NewController(t.TempDir(), "proxyctl-test-fixture-binary", "", zap.NewNop())

	status, err := c.Stop(t.Context())
	assert.NoError(t, err)
	assert.False(t, status.Running)
}
