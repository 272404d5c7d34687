package tenant

import (
	"fmt"
	"strings"
)

// DefaultID names the tenant used when a requested tenant is unknown.
const DefaultID = "default"

// Position is a role a tenant recruits for.
type Position struct {
	ID                 string   `json:"id" yaml:"id"`
	Title              string   `json:"title" yaml:"title"`
	FocusArea          string   `json:"focusArea" yaml:"focus_area"`
	CustomInstructions string   `json:"customInstructions,omitempty" yaml:"custom_instructions"`
	MustVerify         []string `json:"mustVerify,omitempty" yaml:"must_verify"`
}

// Tenant captures a recruiter's interview preferences.
type Tenant struct {
	ID          string     `json:"id" yaml:"tenant_id"`
	CompanyName string     `json:"companyName" yaml:"company_name"`
	Tone        string     `json:"tone" yaml:"tone"`
	Positions   []Position `json:"positions,omitempty" yaml:"positions"`
}

// Default returns the built-in tenant used when no configuration is present.
func Default() Tenant {
	return Tenant{
		ID:          DefaultID,
		CompanyName: "",
		Tone:        "supportive",
	}
}

// Context is the tenant/position data appended to pipeline prompts.
type Context struct {
	TenantID           string   `json:"tenantId"`
	CompanyName        string   `json:"companyName,omitempty"`
	Tone               string   `json:"tone,omitempty"`
	FocusArea          string   `json:"focusArea"`
	CustomInstructions string   `json:"customInstructions,omitempty"`
	PositionID         string   `json:"positionId,omitempty"`
	PositionTitle      string   `json:"positionTitle,omitempty"`
	MustVerify         []string `json:"mustVerify,omitempty"`
}

// Resolve picks the requested position, falling back to the tenant's first one.
func Resolve(t Tenant, positionID string) Context {
	var position *Position
	if positionID != "" {
		for i := range t.Positions {
			if t.Positions[i].ID == positionID {
				position = &t.Positions[i]
				break
			}
		}
	}
	if position == nil && len(t.Positions) > 0 {
		position = &t.Positions[0]
	}

	ctx := Context{
		TenantID:    t.ID,
		CompanyName: t.CompanyName,
		Tone:        t.Tone,
		FocusArea:   "General Professional Development",
	}
	if position != nil {
		ctx.FocusArea = position.FocusArea
		ctx.CustomInstructions = position.CustomInstructions
		ctx.PositionID = position.ID
		ctx.PositionTitle = position.Title
		ctx.MustVerify = append([]string(nil), position.MustVerify...)
	}
	return ctx
}

// PromptBlock renders the context as a plain-text block for prompt augmentation.
func (c *Context) PromptBlock() string {
	if c == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("Recruiter Context:\n")
	if c.CompanyName != "" {
		fmt.Fprintf(&b, "- Company: %s\n", c.CompanyName)
	}
	if c.PositionTitle != "" {
		fmt.Fprintf(&b, "- Position: %s\n", c.PositionTitle)
	}
	if c.Tone != "" {
		fmt.Fprintf(&b, "- Tone: %s\n", c.Tone)
	}
	fmt.Fprintf(&b, "- Focus Area: %s\n", c.FocusArea)
	if len(c.MustVerify) > 0 {
		fmt.Fprintf(&b, "- Must Verify: %s\n", strings.Join(c.MustVerify, "; "))
	}
	if c.CustomInstructions != "" {
		fmt.Fprintf(&b, "- Instructions: %s\n", c.CustomInstructions)
	}
	return strings.TrimRight(b.String(), "\n")
}
