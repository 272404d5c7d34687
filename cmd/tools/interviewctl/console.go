package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	interviewService "github.com/zhouzirui/z-interview/backend/internal/service/interview"
	"github.com/zhouzirui/z-interview/backend/internal/storage"
)

const consoleHelp = `Type your answers and press enter.
  /note <text>  send a written note
  /next         move to the next phase
  /end          finish the interview
  /quit         leave early`

func consoleCmd(a *app) *cobra.Command {
	var (
		sessionID string
		name      string
	)
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Run an interview in the terminal using text in place of voice",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.svc.Generator == nil {
				return fmt.Errorf("interview requires a configured chat model")
			}

			cfg := interviewService.SessionConfig{
				SessionID:     sessionID,
				CandidateName: name,
				ModelProvider: a.cfg.Interview.ModelProvider,
			}
			record, err := storage.LoadPrep(cmd.Context(), a.svc.Store, sessionID)
			switch {
			case err == nil:
				if cfg.CandidateName == "" {
					cfg.CandidateName = record.CandidateName
				}
				cfg.Plan = record.Plan
				cfg.Briefing = record.Briefing
			case errors.Is(err, storage.ErrNotFound):
				fmt.Fprintf(cmd.ErrOrStderr(), "no prep found for %s, using the fallback briefing\n", sessionID)
			default:
				return err
			}

			out := &syncWriter{w: cmd.OutOrStdout()}
			session, err := interviewService.NewSession(cfg, interviewService.Deps{
				Generator: a.svc.Generator,
				Store:     a.svc.Store,
				Prompts:   a.svc.Prompts,
				Extractor: a.svc.Extractor,
				Notifier:  consoleNotifier(out),
				Terminator: interviewService.TerminatorFunc(func(id string) {
					log.Printf("[console] session=%s terminated", id)
				}),
			}, consoleOptions(a))
			if err != nil {
				return err
			}

			fmt.Fprintln(out, consoleHelp)
			return runConsole(cmd.Context(), session, cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id whose prep drives the interview")
	cmd.Flags().StringVar(&name, "name", "", "Candidate name (defaults to the prep record)")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func consoleOptions(a *app) interviewService.Options {
	opts := bootstrapOptions(a)
	// typing is slower than talking
	opts.InactivityTimeout = -1
	return opts
}

// runConsole feeds stdin lines into session until it finalizes.
func runConsole(ctx context.Context, session *interviewService.Session, in io.Reader) error {
	if err := session.Start(ctx); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-session.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-session.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				session.Close(interviewService.ReasonDisconnected)
				waitCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
				defer cancel()
				return session.Wait(waitCtx)
			}
			dispatchLine(session, line)
		}
	}
}

func dispatchLine(session *interviewService.Session, line string) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
	case strings.HasPrefix(line, "/note "):
		session.OnUserNote(strings.TrimPrefix(line, "/note "))
	case line == "/next":
		session.OnPhaseAdvance()
	case line == "/end":
		session.OnNormalEnd()
	case line == "/quit":
		session.OnEarlyExit()
	default:
		session.OnUserUtterance(line, true)
	}
}

func consoleNotifier(out io.Writer) interviewService.Notifier {
	return interviewService.NotifierFunc(func(ev interviewService.Event) {
		switch ev.Type {
		case interviewService.EventTranscript:
			fmt.Fprintf(out, "%s> %s\n", ev.Role, ev.Text)
		case interviewService.EventPhaseChanged:
			fmt.Fprintf(out, "--- phase %d: %s ---\n", ev.PhaseIndex+1, ev.PhaseName)
		case interviewService.EventClosed:
			fmt.Fprintf(out, "session closed: %s\n", ev.Reason)
		case interviewService.EventError:
			fmt.Fprintf(out, "error: %s\n", ev.Error)
		}
	})
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
