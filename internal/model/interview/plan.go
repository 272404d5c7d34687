package interview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// QuestionID accepts both string and numeric identifiers from generated plans.
type QuestionID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *QuestionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = QuestionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("question id must be string or number: %w", err)
	}
	*id = QuestionID(n.String())
	return nil
}

// Question is a single prompt the interviewer asks during a phase.
type Question struct {
	ID               QuestionID `json:"id"`
	Text             string     `json:"question"`
	Intent           string     `json:"intent"`
	Priority         string     `json:"priority,omitempty"`
	FollowUpIf       string     `json:"follow_up_if,omitempty"`
	FollowUpQuestion string     `json:"follow_up_question,omitempty"`
	ResumeContext    string     `json:"context_from_resume,omitempty"`
}

// Phase groups ordered questions under a named goal.
type Phase struct {
	Name              string     `json:"phase_name"`
	Goal              string     `json:"phase_goal"`
	EstimatedDuration string     `json:"estimated_duration"`
	Questions         []Question `json:"questions"`
	IsTerminal        bool       `json:"is_terminal,omitempty"`
}

// Key returns the normalized phase name used to identify agents.
func (p Phase) Key() string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(p.Name)), " ", "_")
}

// InterviewPlan is the ordered phase schedule produced by the preparation pipeline.
type InterviewPlan struct {
	TotalEstimatedDuration string   `json:"total_estimated_duration"`
	Phases                 []Phase  `json:"phases"`
	AdaptiveNotes          []string `json:"adaptive_notes"`
}

// QuestionCount returns the number of questions across all phases.
func (p *InterviewPlan) QuestionCount() int {
	if p == nil {
		return 0
	}
	total := 0
	for _, phase := range p.Phases {
		total += len(phase.Questions)
	}
	return total
}

// PhaseNames lists phase names in order.
func (p *InterviewPlan) PhaseNames() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.Phases))
	for _, phase := range p.Phases {
		names = append(names, phase.Name)
	}
	return names
}

// Normalized returns a deep copy whose last phase, and only the last phase, is terminal.
func (p *InterviewPlan) Normalized() *InterviewPlan {
	if p == nil {
		return nil
	}
	out := &InterviewPlan{
		TotalEstimatedDuration: p.TotalEstimatedDuration,
		Phases:                 make([]Phase, len(p.Phases)),
		AdaptiveNotes:          append([]string(nil), p.AdaptiveNotes...),
	}
	for i, phase := range p.Phases {
		phase.Questions = append([]Question(nil), phase.Questions...)
		phase.IsTerminal = i == len(p.Phases)-1
		if strings.TrimSpace(phase.Name) == "" {
			phase.Name = "phase_" + strconv.Itoa(i)
		}
		out.Phases[i] = phase
	}
	return out
}

// Validate checks the structural requirements of a generated plan.
func (p *InterviewPlan) Validate() error {
	if p == nil {
		return fmt.Errorf("interview plan is empty")
	}
	if len(p.Phases) == 0 {
		return fmt.Errorf("interview plan has no phases")
	}
	for i, phase := range p.Phases {
		if strings.TrimSpace(phase.Name) == "" {
			return fmt.Errorf("phase %d: phase_name is required", i)
		}
		if strings.TrimSpace(phase.Goal) == "" {
			return fmt.Errorf("phase %q: phase_goal is required", phase.Name)
		}
		for j, q := range phase.Questions {
			if strings.TrimSpace(q.Text) == "" {
				return fmt.Errorf("phase %q question %d: question text is required", phase.Name, j)
			}
			if strings.TrimSpace(q.Intent) == "" {
				return fmt.Errorf("phase %q question %d: intent is required", phase.Name, j)
			}
		}
	}
	if p.QuestionCount() == 0 {
		return fmt.Errorf("interview plan has no questions")
	}
	return nil
}

// ScriptItem is one entry of a briefing's ordered question script.
type ScriptItem struct {
	Question         string `json:"question"`
	Notes            string `json:"notes,omitempty"`
	TransitionToNext string `json:"transition_to_next,omitempty"`
}

// Guidelines is conversation guidance that generators return either as text or as an object.
type Guidelines string

// UnmarshalJSON flattens object-shaped guidelines into "key: value" lines.
func (g *Guidelines) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*g = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*g = Guidelines(s)
		return nil
	case '{':
		var obj map[string]any
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("%s: %v", k, obj[k]))
		}
		*g = Guidelines(strings.Join(lines, "\n"))
		return nil
	default:
		return fmt.Errorf("conversation_guidelines must be a string or an object")
	}
}

// Briefing is the single-agent representation of an interview.
type Briefing struct {
	CandidateContext     string       `json:"candidate_context"`
	Guidelines           Guidelines   `json:"conversation_guidelines"`
	QuestionsScript      []ScriptItem `json:"questions_script"`
	TopicsToAvoid        []string     `json:"topics_to_avoid"`
	PersonalizationHints []string     `json:"personalization_hints"`
}

// Validate checks the briefing has enough content to drive an interview.
func (b *Briefing) Validate() error {
	if b == nil {
		return fmt.Errorf("briefing is empty")
	}
	if strings.TrimSpace(b.CandidateContext) == "" {
		return fmt.Errorf("candidate_context is required")
	}
	if len(b.QuestionsScript) == 0 {
		return fmt.Errorf("questions_script is required")
	}
	for i, item := range b.QuestionsScript {
		if strings.TrimSpace(item.Question) == "" {
			return fmt.Errorf("questions_script[%d]: question is required", i)
		}
	}
	return nil
}

// AsPhase converts the briefing script into a single terminal phase.
func (b *Briefing) AsPhase() Phase {
	phase := Phase{
		Name:       "interview",
		Goal:       "Conduct the full interview following the script",
		IsTerminal: true,
	}
	if b == nil {
		return phase
	}
	for i, item := range b.QuestionsScript {
		phase.Questions = append(phase.Questions, Question{
			ID:     QuestionID(strconv.Itoa(i + 1)),
			Text:   item.Question,
			Intent: item.Notes,
		})
	}
	return phase
}
