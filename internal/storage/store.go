// Package storage defines the artifact store used to persist interview sessions.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
)

// ErrNotFound is returned when a session or artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// Artifact kinds stored per session.
const (
	KindSession       = "session"
	KindInterviewPrep = "interview_prep"
	KindPipelineTrace = "pipeline_trace"
	KindAudio         = "audio"
	KindEnhanced      = "enhanced_resume"
)

// Store is a key-value blob/JSON store keyed by session id.
type Store interface {
	SaveJSON(ctx context.Context, sessionID, kind string, payload any) error
	LoadJSON(ctx context.Context, sessionID, kind string, out any) error
	SaveArtifact(ctx context.Context, sessionID, kind string, data []byte) error
	LoadArtifact(ctx context.Context, sessionID, kind string) ([]byte, error)
	ListSessions(ctx context.Context) ([]string, error)
}

// PrepRecord is the persisted output of the preparation pipeline.
type PrepRecord struct {
	SessionID     string                     `json:"session_id"`
	CandidateName string                     `json:"candidate_name"`
	LifeStage     interview.LifeStage        `json:"life_stage"`
	TenantID      string                     `json:"tenant_id,omitempty"`
	Plan          *interview.InterviewPlan   `json:"interview_plan,omitempty"`
	Briefing      *interview.Briefing        `json:"interview_briefing,omitempty"`
	Analysis      *interview.ProfileAnalysis `json:"profile_analysis,omitempty"`
	Resume        map[string]any             `json:"resume,omitempty"`
	Errors        []string                   `json:"errors"`
	UsedFallback  bool                       `json:"used_fallback"`
}

// SaveSession persists the finalized session artifact.
func SaveSession(ctx context.Context, s Store, artifact *interview.SessionArtifact) error {
	if artifact == nil || artifact.SessionID == "" {
		return fmt.Errorf("session artifact requires a session id")
	}
	return s.SaveJSON(ctx, artifact.SessionID, KindSession, artifact)
}

// LoadSession reads a finalized session artifact.
func LoadSession(ctx context.Context, s Store, sessionID string) (*interview.SessionArtifact, error) {
	var artifact interview.SessionArtifact
	if err := s.LoadJSON(ctx, sessionID, KindSession, &artifact); err != nil {
		return nil, err
	}
	return &artifact, nil
}

// SavePrep persists a pipeline result so a later interview can pick it up.
func SavePrep(ctx context.Context, s Store, record *PrepRecord) error {
	if record == nil || record.SessionID == "" {
		return fmt.Errorf("prep record requires a session id")
	}
	return s.SaveJSON(ctx, record.SessionID, KindInterviewPrep, record)
}

// LoadPrep reads a pipeline result.
func LoadPrep(ctx context.Context, s Store, sessionID string) (*PrepRecord, error) {
	var record PrepRecord
	if err := s.LoadJSON(ctx, sessionID, KindInterviewPrep, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// SaveEnhancedResume persists the resume produced after an interview.
func SaveEnhancedResume(ctx context.Context, s Store, sessionID string, resume interview.EnhancedResume) error {
	if sessionID == "" {
		return fmt.Errorf("enhanced resume requires a session id")
	}
	return s.SaveJSON(ctx, sessionID, KindEnhanced, resume)
}

// LoadEnhancedResume reads a previously generated enhanced resume.
func LoadEnhancedResume(ctx context.Context, s Store, sessionID string) (interview.EnhancedResume, error) {
	var resume interview.EnhancedResume
	if err := s.LoadJSON(ctx, sessionID, KindEnhanced, &resume); err != nil {
		return nil, err
	}
	return resume, nil
}
