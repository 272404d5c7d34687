package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/model/tenant"
	prepService "github.com/zhouzirui/z-interview/backend/internal/service/prep"
	"github.com/zhouzirui/z-interview/backend/internal/storage"
)

func prepCmd(a *app) *cobra.Command {
	var (
		resumePath string
		sessionID  string
		name       string
		lifeStage  string
		tenantID   string
		positionID string
	)
	cmd := &cobra.Command{
		Use:   "prep",
		Short: "Run the preparation pipeline for a parsed resume",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.svc.Pipeline == nil {
				return fmt.Errorf("preparation pipeline requires a configured chat model")
			}

			resume, err := loadResume(resumePath)
			if err != nil {
				return err
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			t := tenant.Lookup(a.svc.Tenants, tenantID)
			tenantCtx := tenant.Resolve(t, positionID)
			req := prepService.Request{
				SessionID:     sessionID,
				CandidateName: name,
				LifeStage:     interview.ParseLifeStage(lifeStage),
				ResumeData:    resume,
				Tenant:        &tenantCtx,
			}

			result := a.svc.Pipeline.RunObserved(cmd.Context(), req, func(ev prepService.Event) {
				if ev.Type == prepService.EventStageStarted {
					fmt.Fprintf(cmd.ErrOrStderr(), "running %s...\n", ev.Stage)
				}
			})

			record := &storage.PrepRecord{
				SessionID:     sessionID,
				CandidateName: name,
				LifeStage:     result.LifeStage,
				TenantID:      t.ID,
				Plan:          result.Plan,
				Briefing:      result.Briefing,
				Analysis:      result.Analysis,
				Resume:        resume,
				Errors:        result.Errors,
				UsedFallback:  result.UsedFallback,
			}
			if err := storage.SavePrep(cmd.Context(), a.svc.Store, record); err != nil {
				return fmt.Errorf("persist prep: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&resumePath, "resume", "", "Path to the parsed resume JSON")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id (generated when empty)")
	cmd.Flags().StringVar(&name, "name", "", "Candidate name")
	cmd.Flags().StringVar(&lifeStage, "life-stage", string(interview.Professional), "student or professional")
	cmd.Flags().StringVar(&tenantID, "tenant", tenant.DefaultID, "Tenant id")
	cmd.Flags().StringVar(&positionID, "position", "", "Position id within the tenant")
	_ = cmd.MarkFlagRequired("resume")
	return cmd
}

func loadResume(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resume: %w", err)
	}
	var resume map[string]any
	if err := json.Unmarshal(data, &resume); err != nil {
		return nil, fmt.Errorf("parse resume %s: %w", path, err)
	}
	return resume, nil
}
