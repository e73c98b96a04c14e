package logview

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLog(t *testing.T, lines int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "proxy.log")
	var b strings.Builder
	for i := 1; i <= lines; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestViewerConfigured(t *testing.T) {
	assert.False(t, NewViewer("").Configured())
	assert.True(t, NewViewer("/tmp/x.log").Configured())
}

func TestReadTail(t *testing.T) {
	v := NewViewer(writeLog(t, 10))

	view, err := v.Read(3, 0)
	require.NoError(t, err)

	assert.True(t, view.Exists)
	assert.Equal(t, 3, view.Lines)
	assert.Equal(t, 10, view.TotalLines)
	assert.Equal(t, "line 8\nline 9\nline 10\n", view.Content)
	assert.NotZero(t, view.Size)
}

func TestReadWindow(t *testing.T) {
	v := NewViewer(writeLog(t, 10))

	view, err := v.Read(2, 4)
	require.NoError(t, err)
	assert.Equal(t, "line 5\nline 6\n", view.Content)

	// Offset past the end clamps to an empty window.
	view, err = v.Read(5, 100)
	require.NoError(t, err)
	assert.Empty(t, view.Content)
}

func TestReadMissingFile(t *testing.T) {
	v := NewViewer(filepath.Join(t.TempDir(), "absent.log"))

	view, err := v.Read(10, 0)
	require.NoError(t, err)
	assert.False(t, view.Exists)
	assert.Empty(t, view.Content)
}

func TestTail(t *testing.T) {
	v := NewViewer(writeLog(t, 10))

	out, err := v.Tail(2)
	require.NoError(t, err)
	assert.Equal(t, "line 9\nline 10\n", out)
}

func TestClear(t *testing.T) {
	path := writeLog(t, 5)
	v := NewViewer(path)

	backupPath, err := v.Clear(false)
	require.NoError(t, err)
	assert.Empty(t, backupPath)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestClearWithBackup(t *testing.T) {
	path := writeLog(t, 5)
	v := NewViewer(path)

	backupPath, err := v.Clear(true)
	require.NoError(t, err)
	require.NotEmpty(t, backupPath)

	backed, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	assert.Contains(t, string(backed), "line 5")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512.0 B", humanSize(512))
	assert.Equal(t, "1.5 KB", humanSize(1536))
	assert.Equal(t, "2.0 MB", humanSize(2*1024*1024))
}
