package render

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// ManagerOptions configures a session manager.
type ManagerOptions struct {
	Launcher Launcher
	Config   LaunchConfig
	Logger   *log.Logger
}

// SessionManager owns at most one live rendering session, recreating it on
// demand when absent or disconnected. Creation is serialized behind a mutex
// so concurrent acquirers never race two launches.
type SessionManager struct {
	launcher Launcher
	config   LaunchConfig
	logger   *log.Logger

	mu      sync.Mutex
	session Session
}

// NewSessionManager creates a session manager.
func NewSessionManager(opts ManagerOptions) (*SessionManager, error) {
	if opts.Launcher == nil {
		return nil, fmt.Errorf("launcher is required")
	}
	return &SessionManager{
		launcher: opts.Launcher,
		config:   opts.Config,
		logger:   opts.Logger,
	}, nil
}

// Acquire returns a connected session, launching a new one if none is cached
// or the cached one has disconnected. Launch failures propagate and leave
// nothing cached.
func (m *SessionManager) Acquire(ctx context.Context) (Session, error) {
	m.mu.Lock()
	if m.session != nil {
		if m.session.Connected() {
			session := m.session
			m.mu.Unlock()
			return session, nil
		}
		m.logf("cached session disconnected, relaunching")
		_ = m.session.Close()
		m.session = nil
	}

	launchCtx, cancel := context.WithTimeout(ctx, m.config.launchTimeout())
	created, err := m.launcher.Launch(launchCtx, m.config)
	cancel()
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("launch render session: %w", err)
	}
	m.session = created
	m.mu.Unlock()

	// A session that dropped before the observer registers fires the callback
	// immediately on this goroutine, and forget takes m.mu, so registration
	// must happen with the lock released.
	created.OnDisconnect(func() {
		m.forget(created)
	})
	m.probe(ctx, created)
	return created, nil
}

// probe opens and immediately closes a throwaway page. A probe failure is
// logged but does not abort session creation.
func (m *SessionManager) probe(ctx context.Context, session Session) {
	page, err := session.NewPage(ctx)
	if err != nil {
		m.logf("session health probe failed: %v", err)
		return
	}
	if err := page.Close(); err != nil {
		m.logf("close health probe page: %v", err)
	}
}

// Invalidate clears the cached session if it reports disconnected, so the
// next Acquire relaunches. A still-connected session is left in place.
func (m *SessionManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil && !m.session.Connected() {
		m.session = nil
	}
}

// Teardown closes the cached session if connected and clears the cache
// regardless of whether close succeeds. Safe to call at any time, including
// when no session exists.
func (m *SessionManager) Teardown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return
	}
	if m.session.Connected() {
		if err := m.session.Close(); err != nil {
			m.logf("close render session: %v", err)
		}
	}
	m.session = nil
}

func (m *SessionManager) forget(session Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == session {
		m.session = nil
	}
}

func (m *SessionManager) logf(format string, args ...any) {
	if m == nil || m.logger == nil {
		return
	}
	m.logger.Printf(format, args...)
}
