package login

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Status is the observable state of a login session.
type Status string

const (
	StatusStarting        Status = "starting"
	StatusRunning         Status = "running"
	StatusWaitingCallback Status = "waiting_callback"
	StatusNeedsInput      Status = "needs_input"
	StatusOK              Status = "ok"
	StatusError           Status = "error"
)

var (
	// ErrSessionCompleted is returned when input is sent to a session whose
	// child has already exited or been cancelled.
	ErrSessionCompleted = errors.New("session already completed")
)

// Polling and teardown cadence.
const (
	readPollInterval = 100 * time.Millisecond
	termGracePeriod  = 500 * time.Millisecond
	snapshotTailSize = 2000
)

// Snapshot is a consistent point-in-time copy of session state for pollers.
type Snapshot struct {
	ID          string `json:"id"`
	Provider    string `json:"provider"`
	Status      Status `json:"status"`
	URL         string `json:"url,omitempty"`
	Error       string `json:"error,omitempty"`
	OutputTail  string `json:"output_tail"`
	NeedsInput  bool   `json:"needs_input"`
	InputPrompt string `json:"input_prompt,omitempty"`
	Completed   bool   `json:"completed"`
}

// Session owns one supervised login attempt: the child process, its terminal
// master and the classification state derived from its output. All mutable
// fields are guarded by mu; callers only interact through the synchronized
// methods.
type Session struct {
	id       string
	provider string
	rules    Rules
	logger   *zap.Logger

	cmd       *exec.Cmd
	ptmx      *os.File
	waitCh    chan error
	closeOnce sync.Once

	mu          sync.RWMutex
	status      Status
	raw         []byte
	detectedURL string
	inputPrompt string
	errMsg      string
	completed   bool
	// inputMark is the cleaned-output length at the last input delivery.
	// Prompt text printed before this point has been answered and must not
	// re-trigger needs_input.
	inputMark int
}

// StartSession launches the command on a pseudo-terminal and begins the
// reader loop. On spawn failure no session exists and no resources leak.
func StartSession(id, provider, command string, args []string, workingDir string, rules Rules, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ptmx, cmd, err := startChild(command, args, workingDir)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:       id,
		provider: provider,
		rules:    rules,
		logger:   logger.With(zap.String("session_id", id), zap.String("provider", provider)),
		cmd:      cmd,
		ptmx:     ptmx,
		waitCh:   make(chan error, 1),
		status:   StatusStarting,
	}

	// Reap the child exactly once; the reader loop observes the result
	// without blocking.
	go func() {
		s.waitCh <- cmd.Wait()
	}()

	s.mu.Lock()
	s.status = StatusRunning
	s.mu.Unlock()

	go s.readLoop()

	s.logger.Info("login session started",
		zap.String("command", command),
		zap.Int("pid", cmd.Process.Pid),
	)
	return s, nil
}

// ID returns the session's registry key.
func (s *Session) ID() string { return s.id }

// Provider returns which provider CLI this session drives.
func (s *Session) Provider() string { return s.provider }

// readLoop runs until the session completes. Each iteration first checks
// whether the child exited, then waits a bounded interval for terminal
// output, appends whatever arrived and reclassifies the whole buffer.
func (s *Session) readLoop() {
	defer s.closeMaster()

	buf := make([]byte, 4096)
	for {
		if s.isCompleted() {
			return
		}

		select {
		case err := <-s.waitCh:
			// The child may have exited between reads with output still
			// buffered in the terminal; collect it before finalizing.
			s.drainMaster(buf)
			s.finalizeExit(err)
			return
		default:
		}

		// Bounded read so the exit check above re-runs at a fixed cadence
		// even when the child prints nothing.
		_ = s.ptmx.SetReadDeadline(time.Now().Add(readPollInterval))
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			s.ingest(buf[:n])
		}
		if err != nil {
			if os.IsTimeout(err) {
				continue
			}
			// EIO from the master means the slave side is gone, i.e. the
			// child exited. Wait for its status; any other read error is
			// transient and logged.
			if errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed) {
				s.finalizeExit(<-s.waitCh)
				return
			}
			s.logger.Warn("terminal read error", zap.Error(err))
		}
	}
}

// drainMaster reads whatever the terminal still buffers after the child has
// exited. Buffered data returns immediately; a timeout or EIO means nothing
// is left.
func (s *Session) drainMaster(buf []byte) {
	for {
		_ = s.ptmx.SetReadDeadline(time.Now().Add(readPollInterval))
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			s.ingest(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

// ingest appends a chunk of raw terminal output and updates classification
// state under the write lock.
func (s *Session) ingest(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completed {
		return
	}

	s.raw = append(s.raw, chunk...)
	clean := s.cleanOutputLocked()

	lower := strings.ToLower(clean)
	for _, phrase := range s.rules.Success {
		if strings.Contains(lower, phrase) {
			s.status = StatusOK
			s.completed = true
			s.inputPrompt = ""
			s.logger.Info("login succeeded", zap.String("marker", phrase))
			return
		}
	}

	if prompt, _ := s.rules.matchPrompt(lower, s.inputMark); prompt != "" {
		s.status = StatusNeedsInput
		s.inputPrompt = prompt
		return
	}

	if url := s.rules.longestURL(clean); url != "" && len(url) > len(s.detectedURL) {
		s.detectedURL = url
		if s.status == StatusRunning || s.status == StatusStarting {
			s.status = StatusWaitingCallback
		}
		s.logger.Info("authentication url detected", zap.String("url", url))
	}
}

// finalizeExit records the terminal status derived from the child's exit.
// A session already marked ok (success phrase seen) stays ok regardless of
// the exit code.
func (s *Session) finalizeExit(waitErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.completed {
		if waitErr == nil {
			s.status = StatusOK
		} else {
			s.status = StatusError
			s.errMsg = fmt.Sprintf("login process failed: %v", waitErr)
			s.logger.Warn("login process exited with error", zap.Error(waitErr))
		}
		s.completed = true
		return
	}

	if s.status != StatusOK && s.status != StatusError {
		s.status = StatusError
		if waitErr != nil {
			s.errMsg = fmt.Sprintf("login process failed: %v", waitErr)
		}
	}
}

// Snapshot returns a consistent copy of the session's observable state with
// a bounded output tail.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clean := s.cleanOutputLocked()
	tail := clean
	if len(tail) > snapshotTailSize {
		tail = tail[len(tail)-snapshotTailSize:]
	}

	return Snapshot{
		ID:          s.id,
		Provider:    s.provider,
		Status:      s.status,
		URL:         s.detectedURL,
		Error:       s.errMsg,
		OutputTail:  tail,
		NeedsInput:  s.status == StatusNeedsInput,
		InputPrompt: s.inputPrompt,
		Completed:   s.completed,
	}
}

// FullOutput returns the entire cleaned output accumulated so far.
func (s *Session) FullOutput() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cleanOutputLocked()
}

// cleanOutputLocked decodes the raw buffer permissively and strips control
// sequences. Stripping the whole buffer on each pass keeps classification
// identical regardless of how escape sequences were split across reads.
func (s *Session) cleanOutputLocked() string {
	return StripControl(strings.ToValidUTF8(string(s.raw), "�"))
}

// SendInput relays caller-supplied text into the child's terminal. Empty text
// means "press enter". On success the pending prompt is cleared and the
// session returns to running.
func (s *Session) SendInput(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completed {
		return ErrSessionCompleted
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if _, err := s.ptmx.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write input: %w", err)
	}

	s.inputPrompt = ""
	s.inputMark = len(s.cleanOutputLocked())
	if s.status == StatusNeedsInput {
		s.status = StatusRunning
	}
	return nil
}

// Cancel terminates the session: the reader loop stops, the child receives
// SIGTERM and, if still alive after the grace period, SIGKILL. Safe to call
// multiple times and after natural exit.
func (s *Session) Cancel() {
	s.mu.Lock()
	alreadyDone := s.completed
	if !s.completed {
		s.completed = true
		s.status = StatusError
		s.errMsg = "session cancelled"
	}
	proc := s.cmd.Process
	s.mu.Unlock()

	if !alreadyDone && proc != nil {
		// Graceful first; a CLI ignoring SIGTERM gets SIGKILL after the
		// grace period. ESRCH just means it already exited.
		_ = proc.Signal(syscall.SIGTERM)

		deadline := time.Now().Add(termGracePeriod)
		for time.Now().Before(deadline) {
			if proc.Signal(syscall.Signal(0)) != nil {
				break
			}
			time.Sleep(50 * time.Millisecond)
		}
		if proc.Signal(syscall.Signal(0)) == nil {
			_ = proc.Kill()
		}
	}

	s.closeMaster()
}

// closeMaster releases the terminal master exactly once. Both the reader
// loop's natural exit and explicit cancellation funnel through here.
func (s *Session) closeMaster() {
	s.closeOnce.Do(func() {
		if err := s.ptmx.Close(); err != nil {
			s.logger.Debug("terminal master close", zap.Error(err))
		}
	})
}

func (s *Session) isCompleted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completed
}
