package interview

import (
	"context"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

func texts(turns []Turn) []string {
	out := make([]string, 0, len(turns))
	for _, turn := range turns {
		out = append(out, turn.Text)
	}
	return out
}

func TestCarryoverTakesTailWithoutInstructionsOrHandoff(t *testing.T) {
	handoff := newTurn(TurnTool, "")
	handoff.Command = CommandAdvance
	handoff.Handoff = true
	prev := []Turn{
		newTurn(TurnSystem, "A instructions"),
		newTurn(TurnAssistant, "a0"),
		newTurn(TurnUser, "u1"),
		newTurn(TurnAssistant, "a1"),
		handoff,
	}
	current := []Turn{newTurn(TurnSystem, "B instructions")}

	got := Carryover(prev, current, 2)
	if want := []string{"B instructions", "u1", "a1"}; !reflect.DeepEqual(texts(got), want) {
		t.Fatalf("Carryover = %v, want %v", texts(got), want)
	}
	if len(current) != 1 {
		t.Fatal("Carryover must not modify current")
	}
}

func TestCarryoverSkipsExistingIDs(t *testing.T) {
	shared := newTurn(TurnUser, "shared")
	prev := []Turn{newTurn(TurnSystem, "A"), shared, newTurn(TurnAssistant, "fresh")}
	current := []Turn{newTurn(TurnSystem, "B"), shared}

	got := Carryover(prev, current, 8)
	if want := []string{"B", "shared", "fresh"}; !reflect.DeepEqual(texts(got), want) {
		t.Fatalf("Carryover = %v, want %v", texts(got), want)
	}
}

func TestCarryoverDisabled(t *testing.T) {
	prev := []Turn{newTurn(TurnUser, "u")}
	current := []Turn{newTurn(TurnSystem, "B")}
	if got := Carryover(prev, current, 0); len(got) != 1 {
		t.Fatalf("expected no carryover, got %v", texts(got))
	}
}

type watchedStub struct {
	last     time.Time
	done     chan struct{}
	signaled atomic.Int32
}

func (w *watchedStub) ID() string              { return "stub" }
func (w *watchedStub) LastActivity() time.Time { return w.last }
func (w *watchedStub) Done() <-chan struct{}   { return w.done }
func (w *watchedStub) OnInactivityExceeded()   { w.signaled.Add(1) }

func TestSupervisorSignalsOnce(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	target := &watchedStub{last: now.Add(-time.Hour), done: make(chan struct{})}
	sv := Supervisor{Interval: time.Millisecond, Threshold: time.Minute, Now: func() time.Time { return now }}

	finished := make(chan struct{})
	go func() {
		sv.Watch(context.Background(), target)
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not return after signalling")
	}
	if target.signaled.Load() != 1 {
		t.Fatalf("expected one signal, got %d", target.signaled.Load())
	}
}

func TestSupervisorStopsWhenDone(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	target := &watchedStub{last: now, done: make(chan struct{})}
	sv := Supervisor{Interval: time.Millisecond, Threshold: time.Minute, Now: func() time.Time { return now }}

	finished := make(chan struct{})
	go func() {
		sv.Watch(context.Background(), target)
		close(finished)
	}()
	close(target.done)
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop")
	}
	if target.signaled.Load() != 0 {
		t.Fatal("active target must not be signalled")
	}
}
