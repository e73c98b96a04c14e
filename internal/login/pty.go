package login

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/creack/pty"
)

// Terminal dimensions handed to every login child. The provider CLIs only
// print line-oriented output, so a fixed size is enough.
const (
	ptyCols = 120
	ptyRows = 32
)

// startChild spawns the command attached to a freshly allocated
// pseudo-terminal and returns the terminal master. The slave end is bound to
// the child's stdin/stdout/stderr and closed in the parent by pty.Start, so
// no descriptor survives a failed spawn.
func startChild(command string, args []string, workingDir string) (*os.File, *exec.Cmd, error) {
	cmd := exec.Command(command, args...)
	if workingDir != "" {
		cmd.Dir = workingDir
	}
	cmd.Env = append(os.Environ(), "TERM=xterm-256color", "NO_COLOR=1")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: ptyRows,
		Cols: ptyCols,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start %s: %w", command, err)
	}

	return ptmx, cmd, nil
}
