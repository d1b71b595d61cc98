package protocol

import "errors"

// UserStory is the Product Owner stage output.
type UserStory struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	Priority           Priority `json:"priority"`
}

// TechEstimate is the Tech Lead stage output.
type TechEstimate struct {
	StoryPoints    int      `json:"story_points"`
	Complexity     string   `json:"complexity"`
	TechnicalNotes string   `json:"technical_notes"`
	Dependencies   []string `json:"dependencies"`
}

// Security review verdicts.
const (
	ApprovalApproved      = "Approved"
	ApprovalRejected      = "Rejected"
	ApprovalNeedsRevision = "Needs Revision"
)

// SecurityReview is the SecOps stage output.
type SecurityReview struct {
	OWASPRisks           []string `json:"owasp_risks"`
	MitigationStrategies []string `json:"mitigation_strategies"`
	ApprovalStatus       string   `json:"approval_status"`
	Comments             string   `json:"comments"`
}

// Trace records every pipeline stage output for one ticket.
type Trace struct {
	BrainDump      string          `json:"brain_dump"`
	UserStory      *UserStory      `json:"user_story"`
	TechEstimate   *TechEstimate   `json:"tech_estimate"`
	SecurityReview *SecurityReview `json:"security_review"`
	TestPlan       *TestPlan       `json:"test_plan"`
	FinalTicket    *Ticket         `json:"final_ticket"`
}

// Validate rejects a trace that records nothing: nil, or no brain dump and
// no stage output at all.
func (t *Trace) Validate() error {
	if t == nil {
		return errors.New("trace is empty")
	}
	if t.BrainDump == "" && t.UserStory == nil && t.TechEstimate == nil &&
		t.SecurityReview == nil && t.TestPlan == nil && t.FinalTicket == nil {
		return errors.New("trace has no brain dump and no stage output")
	}
	return nil
}
