package render

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakePage struct {
	mu       sync.Mutex
	closed   bool
	viewport bool

	contentErr error
	pdfErr     error
	pdf        []byte
	closeErr   error
}

func (p *fakePage) SetViewport(width, height int, scale float64) error {
	p.viewport = true
	return nil
}

func (p *fakePage) SetContent(ctx context.Context, markup string, timeout time.Duration) error {
	return p.contentErr
}

func (p *fakePage) PDF(ctx context.Context, opts PDFOptions) ([]byte, error) {
	if p.pdfErr != nil {
		return nil, p.pdfErr
	}
	return p.pdf, nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.closeErr
}

func (p *fakePage) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type fakeSession struct {
	mu        sync.Mutex
	connected bool
	closed    bool
	callbacks []func()

	newPageErr error
	// nextPages is consumed one page per NewPage call; when empty a plain
	// successful page is returned.
	nextPages []*fakePage
	pages     []*fakePage
}

func newFakeSession() *fakeSession {
	return &fakeSession{connected: true}
}

func (s *fakeSession) NewPage(ctx context.Context) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.newPageErr != nil {
		return nil, s.newPageErr
	}
	var page *fakePage
	if len(s.nextPages) > 0 {
		page = s.nextPages[0]
		s.nextPages = s.nextPages[1:]
	} else {
		page = &fakePage{pdf: []byte("%PDF-fake")}
	}
	s.pages = append(s.pages, page)
	return page, nil
}

func (s *fakeSession) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeSession) OnDisconnect(callback func()) {
	s.mu.Lock()
	down := !s.connected
	if !down {
		s.callbacks = append(s.callbacks, callback)
	}
	s.mu.Unlock()
	if down {
		callback()
	}
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.connected = false
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) disconnect() {
	s.mu.Lock()
	s.connected = false
	callbacks := s.callbacks
	s.callbacks = nil
	s.mu.Unlock()
	for _, callback := range callbacks {
		callback()
	}
}

func (s *fakeSession) pageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

type fakeLauncher struct {
	mu       sync.Mutex
	launches int
	err      error
	sessions []*fakeSession
	// next is returned by the upcoming Launch; when nil a fresh connected
	// session is created.
	next *fakeSession
}

func (l *fakeLauncher) Launch(ctx context.Context, cfg LaunchConfig) (Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches++
	if l.err != nil {
		return nil, l.err
	}
	session := l.next
	l.next = nil
	if session == nil {
		session = newFakeSession()
	}
	l.sessions = append(l.sessions, session)
	return session, nil
}

func (l *fakeLauncher) launchCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}

func newTestManager(t *testing.T, launcher *fakeLauncher) *SessionManager {
	t.Helper()
	manager, err := NewSessionManager(ManagerOptions{Launcher: launcher})
	if err != nil {
		t.Fatalf("new session manager: %v", err)
	}
	return manager
}

func TestSessionManager_AcquireCachesSession(t *testing.T) {
	launcher := &fakeLauncher{}
	manager := newTestManager(t, launcher)

	first, err := manager.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	second, err := manager.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire again: %v", err)
	}
	if first != second {
		t.Fatal("expected cached session to be reused")
	}
	if launcher.launchCount() != 1 {
		t.Fatalf("expected 1 launch, got %d", launcher.launchCount())
	}
}

func TestSessionManager_DisconnectedSessionNeverReused(t *testing.T) {
	launcher := &fakeLauncher{}
	manager := newTestManager(t, launcher)

	first, err := manager.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	first.(*fakeSession).mu.Lock()
	first.(*fakeSession).connected = false
	first.(*fakeSession).mu.Unlock()

	second, err := manager.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire after disconnect: %v", err)
	}
	if first == second {
		t.Fatal("expected a new session after disconnection")
	}
	if launcher.launchCount() != 2 {
		t.Fatalf("expected 2 launches, got %d", launcher.launchCount())
	}
}

func TestSessionManager_LaunchFailureCachesNothing(t *testing.T) {
	launcher := &fakeLauncher{err: errors.New("boom")}
	manager := newTestManager(t, launcher)

	if _, err := manager.Acquire(context.Background()); err == nil {
		t.Fatal("expected launch failure")
	}

	launcher.mu.Lock()
	launcher.err = nil
	launcher.mu.Unlock()

	if _, err := manager.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire after failure: %v", err)
	}
	if launcher.launchCount() != 2 {
		t.Fatalf("expected a fresh launch after failure, got %d", launcher.launchCount())
	}
}

func TestSessionManager_HealthProbeFailureTolerated(t *testing.T) {
	session := newFakeSession()
	session.newPageErr = errors.New("probe refused")
	launcher := &fakeLauncher{next: session}
	manager := newTestManager(t, launcher)

	acquired, err := manager.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire with failing probe: %v", err)
	}
	if acquired != session {
		t.Fatal("expected the launched session despite probe failure")
	}
}

func TestSessionManager_HealthProbeClosesPage(t *testing.T) {
	launcher := &fakeLauncher{}
	manager := newTestManager(t, launcher)

	acquired, err := manager.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	session := acquired.(*fakeSession)
	if session.pageCount() != 1 {
		t.Fatalf("expected one probe page, got %d", session.pageCount())
	}
	if !session.pages[0].isClosed() {
		t.Fatal("expected probe page to be closed")
	}
}

func TestSessionManager_DisconnectCallbackClearsCache(t *testing.T) {
	launcher := &fakeLauncher{}
	manager := newTestManager(t, launcher)

	acquired, err := manager.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	acquired.(*fakeSession).disconnect()

	if _, err := manager.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire after disconnect callback: %v", err)
	}
	if launcher.launchCount() != 2 {
		t.Fatalf("expected relaunch after disconnect callback, got %d launches", launcher.launchCount())
	}
}

func TestSessionManager_SessionDownBeforeObserverRegistered(t *testing.T) {
	// The browser can die between Launch returning and the disconnect
	// observer registering, which invokes the callback synchronously on the
	// acquiring goroutine. Acquire must still return and leave nothing
	// cached.
	launcher := &fakeLauncher{next: &fakeSession{}}
	manager := newTestManager(t, launcher)

	if _, err := manager.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire dead-at-launch session: %v", err)
	}

	second, err := manager.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire after dead-at-launch session: %v", err)
	}
	if !second.Connected() {
		t.Fatal("expected a fresh connected session")
	}
	if launcher.launchCount() != 2 {
		t.Fatalf("expected relaunch after dead-at-launch session, got %d launches", launcher.launchCount())
	}
}

func TestSessionManager_TeardownIsIdempotent(t *testing.T) {
	launcher := &fakeLauncher{}
	manager := newTestManager(t, launcher)

	// Safe with no session at all.
	manager.Teardown()

	acquired, err := manager.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	session := acquired.(*fakeSession)

	manager.Teardown()
	manager.Teardown()

	session.mu.Lock()
	closed := session.closed
	session.mu.Unlock()
	if !closed {
		t.Fatal("expected teardown to close the session")
	}
	if _, err := manager.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire after teardown: %v", err)
	}
	if launcher.launchCount() != 2 {
		t.Fatalf("expected relaunch after teardown, got %d launches", launcher.launchCount())
	}
}

func TestSessionManager_InvalidateKeepsConnectedSession(t *testing.T) {
	launcher := &fakeLauncher{}
	manager := newTestManager(t, launcher)

	acquired, err := manager.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	manager.Invalidate()

	again, err := manager.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire after invalidate: %v", err)
	}
	if acquired != again {
		t.Fatal("expected invalidate to keep a connected session")
	}
}
