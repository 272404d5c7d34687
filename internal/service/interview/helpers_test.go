package interview

import (
	"context"
	"sync"
	"testing"
	"time"

	interviewmodel "github.com/zhouzirui/z-interview/backend/internal/model/interview"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// scriptedGenerator replies by call index; gated calls wait for their channel.
type scriptedGenerator struct {
	mu       sync.Mutex
	replies  []*TurnResult
	gates    map[int]chan struct{}
	requests []TurnRequest
}

func (g *scriptedGenerator) Generate(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	g.mu.Lock()
	idx := len(g.requests)
	g.requests = append(g.requests, req)
	result := &TurnResult{Text: "ok"}
	if idx < len(g.replies) {
		result = g.replies[idx]
	}
	gate := g.gates[idx]
	g.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return result, nil
}

func (g *scriptedGenerator) Requests() []TurnRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]TurnRequest(nil), g.requests...)
}

type countingTerminator struct {
	mu    sync.Mutex
	calls []string
}

func (c *countingTerminator) Terminate(sessionID string) {
	c.mu.Lock()
	c.calls = append(c.calls, sessionID)
	c.mu.Unlock()
}

func (c *countingTerminator) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func reply(text string, tools ...string) *TurnResult {
	return &TurnResult{Text: text, ToolCalls: tools}
}

func phase(name string, questions ...string) interviewmodel.Phase {
	p := interviewmodel.Phase{Name: name, Goal: name + " goal"}
	for _, q := range questions {
		p.Questions = append(p.Questions, interviewmodel.Question{Text: q, Intent: "intent"})
	}
	return p
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitTranscript(t *testing.T, s *Session, n int) {
	t.Helper()
	waitFor(t, "transcript entries", func() bool {
		return len(s.Snapshot().Transcript) >= n
	})
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("session did not finish: %v", err)
	}
}

func assertMonotonicTimestamps(t *testing.T, transcript []interviewmodel.TranscriptEntry) {
	t.Helper()
	for i := 1; i < len(transcript); i++ {
		if transcript[i].Timestamp.Before(transcript[i-1].Timestamp) {
			t.Fatalf("timestamp %d goes backwards: %s < %s", i, transcript[i].Timestamp, transcript[i-1].Timestamp)
		}
	}
}

func assertUniqueContext(t *testing.T, req TurnRequest) {
	t.Helper()
	seen := make(map[string]bool, len(req.Context))
	for i, turn := range req.Context {
		if seen[turn.ID] {
			t.Fatalf("agent %s context has duplicate turn %s", req.AgentName, turn.ID)
		}
		seen[turn.ID] = true
		if turn.Handoff {
			t.Fatalf("agent %s context carries a handoff call", req.AgentName)
		}
		if turn.Role == TurnSystem && i != 0 {
			t.Fatalf("agent %s context carries foreign instructions at %d", req.AgentName, i)
		}
	}
}

func contextTexts(req TurnRequest) []string {
	texts := make([]string, 0, len(req.Context))
	for _, turn := range req.Context {
		if turn.Role == TurnSystem {
			continue
		}
		texts = append(texts, turn.Text)
	}
	return texts
}
