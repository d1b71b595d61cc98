// Package pipeline turns a brain dump into a ticket by running it through a
// fixed set of LLM-backed roles: product owner, then tech lead, security and
// QA in parallel, then a gatekeeper that writes the final ticket.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/provider"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

// BlockedLabel marks tickets whose security review was rejected.
const BlockedLabel = "BLOCKED"

const defaultAttempts = 2

// ErrEmptyBrainDump is returned when Run is given blank input.
var ErrEmptyBrainDump = errors.New("pipeline: brain dump is empty")

// Pipeline runs the ticket-writing roles against a single provider.
type Pipeline struct {
	provider provider.Provider
	model    string
	attempts int
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithModel overrides the provider's default model for every stage.
func WithModel(model string) Option {
	return func(p *Pipeline) { p.model = model }
}

// WithAttempts sets how many times a stage is tried when its output does not
// decode. Values below 1 are ignored.
func WithAttempts(n int) Option {
	return func(p *Pipeline) {
		if n >= 1 {
			p.attempts = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a pipeline backed by prov.
func New(prov provider.Provider, opts ...Option) *Pipeline {
	p := &Pipeline{
		provider: prov,
		attempts: defaultAttempts,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run produces a ticket from brainDump. projectContext, when non-empty, is
// given to every stage. The returned trace holds every stage's output with
// the ticket in FinalTicket.
func (p *Pipeline) Run(ctx context.Context, brainDump, projectContext string) (*protocol.Trace, error) {
	if strings.TrimSpace(brainDump) == "" {
		return nil, ErrEmptyBrainDump
	}
	tr := &protocol.Trace{BrainDump: brainDump}

	story, err := runStage[protocol.UserStory](ctx, p, "product_owner", productOwnerInstructions, projectContext, brainDump)
	if err != nil {
		return nil, err
	}
	tr.UserStory = story

	storyJSON, _ := json.MarshalIndent(story, "", "  ")
	if err := p.runSpecialists(ctx, tr, projectContext, "User Story:\n"+string(storyJSON)); err != nil {
		return nil, err
	}

	ticket, err := runStage[protocol.Ticket](ctx, p, "gatekeeper", gatekeeperInstructions, projectContext, gatekeeperInput(tr))
	if err != nil {
		return nil, err
	}
	finalize(ticket, tr)
	if err := ticket.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: gatekeeper: %w", err)
	}
	tr.FinalTicket = ticket

	p.logger.Info("ticket generated",
		"summary", ticket.Summary,
		"story_points", ticket.StoryPoints,
		"approval", tr.SecurityReview.ApprovalStatus,
	)
	return tr, nil
}

// runSpecialists runs the tech lead, security and QA stages concurrently.
// The first failure cancels the others.
func (p *Pipeline) runSpecialists(ctx context.Context, tr *protocol.Trace, projectContext, input string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		est, err := runStage[protocol.TechEstimate](ctx, p, "tech_lead", techLeadInstructions, projectContext, input)
		if err != nil {
			fail(err)
			return
		}
		tr.TechEstimate = est
	}()
	go func() {
		defer wg.Done()
		rev, err := runStage[protocol.SecurityReview](ctx, p, "secops", secOpsInstructions, projectContext, input)
		if err != nil {
			fail(err)
			return
		}
		tr.SecurityReview = rev
	}()
	go func() {
		defer wg.Done()
		plan, err := runStage[protocol.TestPlan](ctx, p, "qa", qaInstructions, projectContext, input)
		if err != nil {
			fail(err)
			return
		}
		tr.TestPlan = plan
	}()
	wg.Wait()

	return firstErr
}

func gatekeeperInput(tr *protocol.Trace) string {
	var sb strings.Builder
	section := func(title string, v any) {
		b, _ := json.MarshalIndent(v, "", "  ")
		sb.WriteString(title)
		sb.WriteString(":\n")
		sb.Write(b)
		sb.WriteString("\n\n")
	}
	section("User Story", tr.UserStory)
	section("Technical Estimate", tr.TechEstimate)
	section("Security Review", tr.SecurityReview)
	return strings.TrimSpace(sb.String())
}

// finalize applies the rules the gatekeeper is asked to follow but may not.
func finalize(t *protocol.Ticket, tr *protocol.Trace) {
	t.ID = ""
	t.Summary = strings.TrimSpace(t.Summary)
	if t.Labels == nil {
		t.Labels = []string{}
	}
	if tr.SecurityReview != nil && strings.EqualFold(tr.SecurityReview.ApprovalStatus, protocol.ApprovalRejected) && !t.HasLabel(BlockedLabel) {
		t.Labels = append(t.Labels, BlockedLabel)
	}
	if t.StoryPoints == 0 && tr.TechEstimate != nil {
		t.StoryPoints = tr.TechEstimate.StoryPoints
	}
	if t.Priority == "" && tr.UserStory != nil {
		t.Priority = tr.UserStory.Priority
	}
	t.TestPlan = tr.TestPlan
}
