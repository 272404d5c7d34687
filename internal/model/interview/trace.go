package interview

import "time"

// StageTrace records the outcome of one pipeline stage.
type StageTrace struct {
	Name       string `json:"name"`
	DurationMs int64  `json:"duration_ms"`
	Success    bool   `json:"success"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Error      string `json:"error,omitempty"`
}

// PipelineTrace is the write-once observability record of a preparation run.
type PipelineTrace struct {
	SessionID     string       `json:"session_id"`
	PipelineName  string       `json:"pipeline_name"`
	CandidateName string       `json:"candidate_name"`
	LifeStage     LifeStage    `json:"life_stage"`
	StartedAt     time.Time    `json:"started_at"`
	TotalMs       int64        `json:"total_ms"`
	Stages        []StageTrace `json:"stages"`
	Errors        []string     `json:"errors"`
	UsedFallback  bool         `json:"used_fallback"`
}
