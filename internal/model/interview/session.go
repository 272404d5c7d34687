package interview

import (
	"fmt"
	"math"
	"time"
)

// Role identifies who produced a transcript entry.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// TranscriptEntry is one append-only transcript line.
type TranscriptEntry struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	IsFinal   bool      `json:"is_final"`
}

// Usage accumulates model token counters.
type Usage struct {
	InputTokens       int `json:"input_tokens"`
	OutputTokens      int `json:"output_tokens"`
	TotalTokens       int `json:"total_tokens"`
	AudioInputTokens  int `json:"audio_input_tokens"`
	AudioOutputTokens int `json:"audio_output_tokens"`
	TextInputTokens   int `json:"text_input_tokens"`
	TextOutputTokens  int `json:"text_output_tokens"`
	CachedTokens      int `json:"cached_tokens"`
}

// Add returns the element-wise sum of two usage records.
func (u Usage) Add(o Usage) Usage {
	sum := Usage{
		InputTokens:       u.InputTokens + o.InputTokens,
		OutputTokens:      u.OutputTokens + o.OutputTokens,
		AudioInputTokens:  u.AudioInputTokens + o.AudioInputTokens,
		AudioOutputTokens: u.AudioOutputTokens + o.AudioOutputTokens,
		TextInputTokens:   u.TextInputTokens + o.TextInputTokens,
		TextOutputTokens:  u.TextOutputTokens + o.TextOutputTokens,
		CachedTokens:      u.CachedTokens + o.CachedTokens,
	}
	sum.TotalTokens = sum.InputTokens + sum.OutputTokens
	return sum
}

// LatencyStats summarizes response latency measurements.
type LatencyStats struct {
	AvgMs        float64 `json:"avg_ms"`
	MinMs        float64 `json:"min_ms"`
	MaxMs        float64 `json:"max_ms"`
	Measurements int     `json:"measurements"`
}

// SummarizeLatency reduces raw samples to rounded millisecond statistics.
func SummarizeLatency(samples []time.Duration) *LatencyStats {
	if len(samples) == 0 {
		return nil
	}
	var total time.Duration
	minD, maxD := samples[0], samples[0]
	for _, s := range samples {
		total += s
		if s < minD {
			minD = s
		}
		if s > maxD {
			maxD = s
		}
	}
	ms := func(d time.Duration) float64 { return math.Round(float64(d) / float64(time.Millisecond)) }
	return &LatencyStats{
		AvgMs:        ms(total / time.Duration(len(samples))),
		MinMs:        ms(minD),
		MaxMs:        ms(maxD),
		Measurements: len(samples),
	}
}

// Duration is a session duration in seconds plus a HH:MM:SS rendering.
type Duration struct {
	Seconds   float64 `json:"seconds"`
	Formatted string  `json:"formatted"`
}

// NewDuration rounds to centiseconds and formats the value.
func NewDuration(d time.Duration) Duration {
	return Duration{
		Seconds:   math.Round(d.Seconds()*100) / 100,
		Formatted: FormatDuration(d),
	}
}

// FormatDuration renders d as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// Profile is the free-form profile extracted from a finished transcript.
type Profile map[string]any

// EnhancedResume is the parsed resume merged with what the candidate said in the interview.
type EnhancedResume map[string]any

// PhaseTransition records a handoff between two phases.
type PhaseTransition struct {
	From int       `json:"from"`
	To   int       `json:"to"`
	At   time.Time `json:"at"`
}

// SessionArtifact is the finalized record persisted when a session closes.
type SessionArtifact struct {
	SessionID        string            `json:"session_id"`
	CandidateName    string            `json:"candidate_name"`
	Timestamp        time.Time         `json:"timestamp"`
	ModelProvider    string            `json:"model_provider,omitempty"`
	MultiAgent       bool              `json:"multi_agent"`
	Phases           []string          `json:"phases"`
	CloseReason      string            `json:"close_reason"`
	Duration         Duration          `json:"duration"`
	Latency          *LatencyStats     `json:"latency,omitempty"`
	TokenUsage       Usage             `json:"token_usage"`
	AudioFile        string            `json:"audio_file,omitempty"`
	Transcript       []TranscriptEntry `json:"transcript"`
	ExtractedProfile Profile           `json:"extracted_profile"`
	FinalPhaseIndex  int               `json:"final_phase_index"`
	PhaseTransitions []PhaseTransition `json:"phase_transitions,omitempty"`
}
