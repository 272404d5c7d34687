package interview

import (
	"fmt"
	"strings"
)

// LifeStage is the candidate's career stage.
type LifeStage string

const (
	Student      LifeStage = "student"
	Professional LifeStage = "professional"
)

// ParseLifeStage normalizes free-form input, defaulting to professional.
func ParseLifeStage(raw string) LifeStage {
	if strings.EqualFold(strings.TrimSpace(raw), string(Student)) {
		return Student
	}
	return Professional
}

// Valid reports whether the stage is a known value.
func (s LifeStage) Valid() bool {
	return s == Student || s == Professional
}

// Strength is a resume strength with supporting evidence.
type Strength struct {
	Area       string   `json:"area"`
	Evidence   []string `json:"evidence"`
	Confidence string   `json:"confidence,omitempty"`
}

// Gap is missing information worth exploring in the interview.
type Gap struct {
	Area     string `json:"area"`
	Reason   string `json:"reason"`
	Priority string `json:"priority,omitempty"`
}

// Hook is an interesting topic worth a deeper question.
type Hook struct {
	Topic          string `json:"topic"`
	Reason         string `json:"reason"`
	SuggestedAngle string `json:"suggested_angle,omitempty"`
}

// SoftSkill is a soft skill inferred from resume actions.
type SoftSkill struct {
	Skill      string `json:"skill"`
	Evidence   string `json:"evidence"`
	Confidence string `json:"confidence,omitempty"`
}

// ProfileAnalysis is the analyzer stage output consumed by the planner.
type ProfileAnalysis struct {
	LifeStage      LifeStage   `json:"life_stage"`
	Domain         string      `json:"domain"`
	Summary        string      `json:"profile_summary"`
	Strengths      []Strength  `json:"strengths"`
	Gaps           []Gap       `json:"gaps"`
	Hooks          []Hook      `json:"interesting_hooks"`
	SoftSkills     []SoftSkill `json:"soft_skills_inference"`
	KeyExperiences []string    `json:"key_experiences"`
	AvoidTopics    []string    `json:"avoid_topics"`
}

var confidenceLevels = map[string]bool{"": true, "high": true, "medium": true, "low": true}

// Validate enforces the analyzer output schema.
func (a *ProfileAnalysis) Validate() error {
	if a == nil {
		return fmt.Errorf("profile analysis is empty")
	}
	if !a.LifeStage.Valid() {
		return fmt.Errorf("life_stage must be student or professional, got %q", a.LifeStage)
	}
	if strings.TrimSpace(a.Domain) == "" {
		return fmt.Errorf("domain is required")
	}
	if strings.TrimSpace(a.Summary) == "" {
		return fmt.Errorf("profile_summary is required")
	}
	for i, s := range a.Strengths {
		if strings.TrimSpace(s.Area) == "" {
			return fmt.Errorf("strengths[%d]: area is required", i)
		}
		if !confidenceLevels[strings.ToLower(s.Confidence)] {
			return fmt.Errorf("strengths[%d]: invalid confidence %q", i, s.Confidence)
		}
	}
	for i, g := range a.Gaps {
		if strings.TrimSpace(g.Area) == "" {
			return fmt.Errorf("gaps[%d]: area is required", i)
		}
		if !confidenceLevels[strings.ToLower(g.Priority)] {
			return fmt.Errorf("gaps[%d]: invalid priority %q", i, g.Priority)
		}
	}
	for i, h := range a.Hooks {
		if strings.TrimSpace(h.Topic) == "" {
			return fmt.Errorf("interesting_hooks[%d]: topic is required", i)
		}
	}
	for i, s := range a.SoftSkills {
		if strings.TrimSpace(s.Skill) == "" {
			return fmt.Errorf("soft_skills_inference[%d]: skill is required", i)
		}
		if !confidenceLevels[strings.ToLower(s.Confidence)] {
			return fmt.Errorf("soft_skills_inference[%d]: invalid confidence %q", i, s.Confidence)
		}
	}
	return nil
}
