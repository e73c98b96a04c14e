// Package login supervises interactive OAuth login flows driven through an
// external provider CLI.
//
// Each login attempt runs the provider binary attached to a pseudo-terminal
// so the CLI behaves as if a user were sitting in front of it. A dedicated
// reader goroutine scans the terminal output for semantic events (the
// authentication URL, a request for user input, a success or failure marker)
// and keeps a thread-safe session snapshot that the HTTP layer polls.
// Caller-supplied input is relayed back into the child's terminal, which is
// how choices like project IDs or callback URLs reach the CLI.
//
// Components:
//   - pty.go: pseudo-terminal child launcher
//   - classifier.go: rule-driven output classification (success / prompt / URL)
//   - session.go: per-attempt state machine, input relay and teardown
//   - registry.go: concurrent session registry keyed by session ID
//
// Lifecycle:
//
//	starting → running → {waiting_callback, needs_input} ⇄ running → {ok, error}
//
// Sessions are purely in-memory; a process restart abandons all in-flight
// login attempts. Termination escalates from SIGTERM to SIGKILL after a
// bounded grace period, and the terminal master is closed exactly once under
// every exit path.
package login
