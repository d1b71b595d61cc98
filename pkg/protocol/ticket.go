package protocol

import (
	"errors"
	"strings"
)

// Priority is the ticket priority as assigned by the pipeline.
// Values outside the known set are preserved verbatim.
type Priority string

const (
	PriorityLowest  Priority = "Lowest"
	PriorityLow     Priority = "Low"
	PriorityMedium  Priority = "Medium"
	PriorityHigh    Priority = "High"
	PriorityHighest Priority = "Highest"
)

// Known reports whether p is one of the standard priorities.
func (p Priority) Known() bool {
	switch p {
	case PriorityLowest, PriorityLow, PriorityMedium, PriorityHigh, PriorityHighest:
		return true
	}
	return false
}

// TestPlan is the QA output attached to a ticket.
type TestPlan struct {
	Scenarios []string `json:"scenarios"`
	EdgeCases []string `json:"edge_cases,omitempty"`
}

// Ticket is the structured work item produced by the pipeline.
// Summary doubles as the identifier in delete and trace lookups.
type Ticket struct {
	ID          string    `json:"id,omitempty"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	StoryPoints int       `json:"story_points"`
	Labels      []string  `json:"labels"`
	Priority    Priority  `json:"priority"`
	TestPlan    *TestPlan `json:"test_plan,omitempty"`
}

// Validate checks the fields a ticket cannot be used without.
func (t *Ticket) Validate() error {
	if t == nil {
		return errors.New("ticket is nil")
	}
	if strings.TrimSpace(t.Summary) == "" {
		return errors.New("ticket summary is required")
	}
	return nil
}

// HasLabel reports whether the ticket carries label (case-insensitive).
func (t *Ticket) HasLabel(label string) bool {
	for _, l := range t.Labels {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}

// SummaryKey normalises a summary the way the backend matches it: lowercase,
// trimmed, spaces as underscores. Summaries with equal keys name the same
// ticket.
func SummaryKey(summary string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(summary)), " ", "_")
}

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	BrainDump string `json:"brain_dump"`
}

// GenerateResult is the response of POST /api/generate: the ticket with its
// identifiers, plus the trace of the run when the backend embeds it.
type GenerateResult struct {
	Ticket
	Trace *Trace `json:"trace,omitempty"`
}

// Validate checks that the result carries a usable ticket. A nil result is
// an error, since a 2xx body of null decodes to one.
func (r *GenerateResult) Validate() error {
	if r == nil {
		return errors.New("generate result is empty")
	}
	return r.Ticket.Validate()
}

// ContextDocument is the single project-context string fed to every generation.
type ContextDocument struct {
	Content string `json:"content"`
}
