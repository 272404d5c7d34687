package interview

import (
	"context"
	"sync"
)

// Handle is how the tracker stops a live session.
type Handle struct {
	Cancel func()
}

// Tracker keeps the live interview sessions of this process for graceful shutdown.
type Tracker struct {
	mu       sync.Mutex
	sessions map[string]*trackedSession
	wg       sync.WaitGroup
}

type trackedSession struct {
	handle Handle
	once   sync.Once
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{sessions: make(map[string]*trackedSession)}
}

// Register adds a live session. It returns false when the id is already live.
func (t *Tracker) Register(sessionID string, h Handle) (unregister func(), ok bool) {
	entry := &trackedSession{handle: h}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sessions == nil {
		t.sessions = make(map[string]*trackedSession)
	}
	if _, exists := t.sessions[sessionID]; exists {
		return func() {}, false
	}
	t.sessions[sessionID] = entry
	t.wg.Add(1)
	return func() { t.unregister(sessionID, entry) }, true
}

func (t *Tracker) unregister(sessionID string, entry *trackedSession) {
	entry.once.Do(func() {
		t.mu.Lock()
		if t.sessions[sessionID] == entry {
			delete(t.sessions, sessionID)
		}
		t.mu.Unlock()
		t.wg.Done()
	})
}

// Count returns the number of live sessions.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// CancelAll asks every live session to close.
func (t *Tracker) CancelAll() (canceled int) {
	var cancels []func()
	t.mu.Lock()
	for _, entry := range t.sessions {
		if entry.handle.Cancel != nil {
			cancels = append(cancels, entry.handle.Cancel)
		}
	}
	t.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
		canceled++
	}
	return canceled
}

// Wait blocks until every session has unregistered or ctx ends.
func (t *Tracker) Wait(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		defer close(done)
		t.wg.Wait()
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
