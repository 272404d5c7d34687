package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	interviewService "github.com/zhouzirui/z-interview/backend/internal/service/interview"
	"github.com/zhouzirui/z-interview/backend/internal/storage"
	"github.com/zhouzirui/z-interview/backend/internal/storage/memory"
)

func TestRunConsoleEndsOnQuit(t *testing.T) {
	store := memory.NewStore()
	var out bytes.Buffer
	writer := &syncWriter{w: &out}

	generator := interviewService.GeneratorFunc(func(ctx context.Context, req interviewService.TurnRequest) (*interviewService.TurnResult, error) {
		return &interviewService.TurnResult{Text: "Tell me more."}, nil
	})
	session, err := interviewService.NewSession(
		interviewService.SessionConfig{SessionID: "console_1", CandidateName: "Ada"},
		interviewService.Deps{Generator: generator, Store: store, Notifier: consoleNotifier(writer)},
		interviewService.Options{InactivityTimeout: -1},
	)
	if err != nil {
		t.Fatalf("NewSession err: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := runConsole(ctx, session, strings.NewReader("I build compilers\n/quit\n")); err != nil {
		t.Fatalf("runConsole err: %v", err)
	}

	artifact, err := storage.LoadSession(context.Background(), store, "console_1")
	if err != nil {
		t.Fatalf("LoadSession err: %v", err)
	}
	if artifact.CloseReason != interviewService.ReasonEarlyExit {
		t.Fatalf("expected early exit, got %q", artifact.CloseReason)
	}

	writer.mu.Lock()
	printed := out.String()
	writer.mu.Unlock()
	if !strings.Contains(printed, "user> I build compilers") || !strings.Contains(printed, "session closed: early_exit") {
		t.Fatalf("unexpected console output:\n%s", printed)
	}
}

func TestRunConsoleClosesOnEOF(t *testing.T) {
	store := memory.NewStore()
	generator := interviewService.GeneratorFunc(func(ctx context.Context, req interviewService.TurnRequest) (*interviewService.TurnResult, error) {
		return &interviewService.TurnResult{Text: "Hello"}, nil
	})
	session, err := interviewService.NewSession(
		interviewService.SessionConfig{SessionID: "console_2"},
		interviewService.Deps{Generator: generator, Store: store},
		interviewService.Options{InactivityTimeout: -1},
	)
	if err != nil {
		t.Fatalf("NewSession err: %v", err)
	}

	if err := runConsole(context.Background(), session, strings.NewReader("")); err != nil {
		t.Fatalf("runConsole err: %v", err)
	}
	if artifact := session.Artifact(); artifact == nil || artifact.CloseReason != interviewService.ReasonDisconnected {
		t.Fatalf("unexpected artifact: %+v", artifact)
	}
}

func TestDispatchLineCommands(t *testing.T) {
	store := memory.NewStore()
	generator := interviewService.GeneratorFunc(func(ctx context.Context, req interviewService.TurnRequest) (*interviewService.TurnResult, error) {
		return &interviewService.TurnResult{}, nil
	})
	session, err := interviewService.NewSession(
		interviewService.SessionConfig{SessionID: "console_3"},
		interviewService.Deps{Generator: generator, Store: store},
		interviewService.Options{InactivityTimeout: -1},
	)
	if err != nil {
		t.Fatalf("NewSession err: %v", err)
	}
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}

	dispatchLine(session, "/note github.com/ada")
	dispatchLine(session, "/end")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := session.Wait(ctx); err != nil {
		t.Fatalf("Wait err: %v", err)
	}
	artifact := session.Artifact()
	if artifact.CloseReason != interviewService.ReasonCompleted {
		t.Fatalf("expected completed, got %q", artifact.CloseReason)
	}
	found := false
	for _, entry := range artifact.Transcript {
		if strings.Contains(entry.Text, "github.com/ada") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected note in transcript: %+v", artifact.Transcript)
	}
}
