package login

import (
	"sync"

	"go.uber.org/zap"

	"github.com/proxydash/proxydash/internal/shared/id"
)

// Registry tracks in-flight login sessions by ID. It only owns the mapping;
// session internals stay behind the Session's own synchronized methods, and
// removal never implicitly terminates a session.
type Registry struct {
	sessions sync.Map // map[string]*Session
	logger   *zap.Logger
}

// NewRegistry creates an empty session registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{logger: logger}
}

// Start launches a new login session and registers it. On spawn failure no
// session is registered and the error describes the cause.
func (r *Registry) Start(provider, command string, args []string, workingDir string) (*Session, error) {
	sessionID := string(id.NewSessionID())

	session, err := StartSession(sessionID, provider, command, args, workingDir, DefaultRules(), r.logger)
	if err != nil {
		return nil, err
	}

	r.sessions.Store(sessionID, session)
	return session, nil
}

// Get looks up a session by ID.
func (r *Registry) Get(sessionID string) (*Session, bool) {
	value, ok := r.sessions.Load(sessionID)
	if !ok {
		return nil, false
	}
	return value.(*Session), true
}

// Remove deletes a session from the registry and returns it if present.
// Callers that observed a terminal status are responsible for cancellation.
func (r *Registry) Remove(sessionID string) (*Session, bool) {
	value, ok := r.sessions.LoadAndDelete(sessionID)
	if !ok {
		return nil, false
	}
	return value.(*Session), true
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	count := 0
	r.sessions.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

// CancelAll cancels and removes every registered session. Used during
// shutdown so no child process outlives the dashboard.
func (r *Registry) CancelAll() {
	r.sessions.Range(func(key, value interface{}) bool {
		value.(*Session).Cancel()
		r.sessions.Delete(key)
		return true
	})
}
