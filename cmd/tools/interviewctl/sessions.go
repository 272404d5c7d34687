package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/z-interview/backend/internal/bootstrap"
	"github.com/zhouzirui/z-interview/backend/internal/service/enhancement"
	interviewService "github.com/zhouzirui/z-interview/backend/internal/service/interview"
	"github.com/zhouzirui/z-interview/backend/internal/storage"
)

func bootstrapOptions(a *app) interviewService.Options {
	return bootstrap.InterviewOptions(a.cfg.Interview)
}

func sessionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect stored interview sessions",
	}
	cmd.AddCommand(sessionsListCmd(a), sessionsShowCmd(a), sessionsEnhanceCmd(a))
	return cmd
}

func sessionsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List finished sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := a.svc.Store.ListSessions(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SESSION\tCANDIDATE\tDURATION\tREASON\tTURNS")
			for _, id := range ids {
				artifact, err := storage.LoadSession(cmd.Context(), a.svc.Store, id)
				if err != nil {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", artifact.SessionID, artifact.CandidateName,
					artifact.Duration.Formatted, artifact.CloseReason, len(artifact.Transcript))
			}
			return tw.Flush()
		},
	}
}

func sessionsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a session artifact as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			artifact, err := storage.LoadSession(cmd.Context(), a.svc.Store, args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(artifact)
		},
	}
}

func sessionsEnhanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "enhance <session-id>",
		Short: "Merge the stored resume and interview into an enhanced resume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.svc.Enhancer.Enabled() {
				return enhancement.ErrDisabled
			}
			artifact, err := storage.LoadSession(cmd.Context(), a.svc.Store, args[0])
			if err != nil {
				return err
			}

			req := enhancement.Request{
				Transcript: artifact.Transcript,
				Basics:     enhancement.Basics{Name: artifact.CandidateName},
			}
			record, err := storage.LoadPrep(cmd.Context(), a.svc.Store, args[0])
			switch {
			case err == nil:
				req.Resume = record.Resume
				req.Analysis = record.Analysis
			case !errors.Is(err, storage.ErrNotFound):
				return err
			}

			resume, err := a.svc.Enhancer.Enhance(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := storage.SaveEnhancedResume(cmd.Context(), a.svc.Store, args[0], resume); err != nil {
				return fmt.Errorf("persist enhanced resume: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resume)
		},
	}
}
