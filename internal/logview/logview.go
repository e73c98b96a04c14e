// Package logview reads and maintains the proxy's log file.
package logview

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// View is one page of log content.
type View struct {
	Content    string `json:"content"`
	Lines      int    `json:"lines"`
	TotalLines int    `json:"total_lines,omitempty"`
	Size       int64  `json:"size"`
	SizeHuman  string `json:"size_human,omitempty"`
	Exists     bool   `json:"exists"`
	Path       string `json:"path"`
}

// Viewer reads one configured log file.
type Viewer struct {
	path string
}

// NewViewer creates a viewer over the given log file path.
func NewViewer(path string) *Viewer {
	return &Viewer{path: path}
}

// Configured reports whether a log file path is set.
func (v *Viewer) Configured() bool { return v.path != "" }

// Path returns the log file path.
func (v *Viewer) Path() string { return v.path }

// Read returns lines from the log. With offset 0 the last `lines` lines are
// returned; otherwise a window starting at offset.
func (v *Viewer) Read(lines, offset int) (View, error) {
	info, err := os.Stat(v.path)
	if err != nil {
		return View{Path: v.path}, nil
	}

	data, err := os.ReadFile(v.path)
	if err != nil {
		return View{}, fmt.Errorf("failed to read log: %w", err)
	}

	allLines := strings.SplitAfter(string(data), "\n")
	if len(allLines) > 0 && allLines[len(allLines)-1] == "" {
		allLines = allLines[:len(allLines)-1]
	}
	total := len(allLines)

	var window []string
	if offset == 0 {
		if lines < total {
			window = allLines[total-lines:]
		} else {
			window = allLines
		}
	} else {
		if offset > total {
			offset = total
		}
		end := offset + lines
		if end > total {
			end = total
		}
		window = allLines[offset:end]
	}

	return View{
		Content:    strings.Join(window, ""),
		Lines:      len(window),
		TotalLines: total,
		Size:       info.Size(),
		SizeHuman:  humanSize(info.Size()),
		Exists:     true,
		Path:       v.path,
	}, nil
}

// Tail returns the last n lines, shelling out to tail so large files are not
// read fully into memory on every poll.
func (v *Viewer) Tail(n int) (string, error) {
	if _, err := os.Stat(v.path); err != nil {
		return "", nil
	}
	out, err := exec.Command("tail", fmt.Sprintf("-%d", n), v.path).Output()
	if err != nil {
		return "", fmt.Errorf("tail failed: %w", err)
	}
	return string(out), nil
}

// Clear truncates the log. With backup set the current file is renamed with
// a timestamp suffix first; the returned string is the backup path.
func (v *Viewer) Clear(backup bool) (string, error) {
	if _, err := os.Stat(v.path); err != nil {
		return "", nil
	}

	backupPath := ""
	if backup {
		backupPath = fmt.Sprintf("%s.%d.bak", v.path, time.Now().Unix())
		if err := os.Rename(v.path, backupPath); err != nil {
			return "", fmt.Errorf("failed to back up log: %w", err)
		}
	}
	if err := os.WriteFile(v.path, nil, 0o644); err != nil {
		return backupPath, fmt.Errorf("failed to truncate log: %w", err)
	}
	return backupPath, nil
}

func humanSize(size int64) string {
	value := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if value < 1024 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
		value /= 1024
	}
	return fmt.Sprintf("%.1f TB", value)
}
