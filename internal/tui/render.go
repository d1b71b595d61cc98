package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/generate"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

// EmptyListMarker is shown for an empty ticket collection.
const EmptyListMarker = "No tickets yet."

// StepLabels names the four steps of the generation indicator.
var StepLabels = [4]string{
	"Refining requirements",
	"Estimating & security review",
	"Writing test plan",
	"Ticket ready",
}

// StepLine is the plain one-line form of a step, e.g. "[2/4] Estimating & security review".
func StepLine(step int) string {
	if step < 1 || step > len(StepLabels) {
		return ""
	}
	return fmt.Sprintf("[%d/%d] %s", step, len(StepLabels), StepLabels[step-1])
}

// Steps renders the step indicator. The current step shows spin while
// processing; earlier steps are checked.
func (s Styles) Steps(step int, processing bool, spin string) string {
	var sb strings.Builder
	for i, label := range StepLabels {
		n := i + 1
		switch {
		case n < step || (n == step && !processing):
			sb.WriteString(s.Done.Render("✓ " + label))
		case n == step:
			sb.WriteString(s.Active.Render(spin + " " + label))
		default:
			sb.WriteString(s.Faint.Render("· " + label))
		}
		if n < len(StepLabels) {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// TicketList renders one line per ticket, or the empty marker.
func (s Styles) TicketList(tickets []protocol.Ticket) string {
	if len(tickets) == 0 {
		return s.Faint.Render(EmptyListMarker)
	}
	lines := make([]string, len(tickets))
	for i := range tickets {
		t := &tickets[i]
		line := fmt.Sprintf("%s  %s", s.Label.Render(t.Summary), s.Faint.Render(meta(t)))
		if len(t.Labels) > 0 {
			line += "  " + s.labels(t)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// Ticket renders a full ticket.
func (s Styles) Ticket(t *protocol.Ticket) string {
	var sb strings.Builder
	sb.WriteString(s.Title.Render(t.Summary))
	sb.WriteString("\n")
	sb.WriteString(s.Faint.Render(meta(t)))
	if len(t.Labels) > 0 {
		sb.WriteString("  " + s.labels(t))
	}
	if t.ID != "" {
		sb.WriteString("\n" + s.Faint.Render("id "+t.ID))
	}
	if d := strings.TrimSpace(t.Description); d != "" {
		sb.WriteString("\n\n" + d)
	}
	if tp := t.TestPlan; tp != nil && (len(tp.Scenarios) > 0 || len(tp.EdgeCases) > 0) {
		sb.WriteString("\n\n" + s.Label.Render("Test plan"))
		for _, sc := range tp.Scenarios {
			sb.WriteString("\n  - " + sc)
		}
		if len(tp.EdgeCases) > 0 {
			sb.WriteString("\n" + s.Label.Render("Edge cases"))
			for _, ec := range tp.EdgeCases {
				sb.WriteString("\n  - " + ec)
			}
		}
	}
	return sb.String()
}

// Trace renders a trace as indented JSON, syntax highlighted when the
// styles carry color.
func (s Styles) Trace(tr *protocol.Trace) (string, error) {
	data, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render trace: %w", err)
	}
	if !s.color {
		return string(data), nil
	}
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, string(data), "json", "terminal256", "monokai"); err != nil {
		return string(data), nil
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// FailureBox renders the dismissible failure notice.
func (s Styles) FailureBox(err error) string {
	body := s.Warn.Render(generate.FailureMessage)
	if err != nil {
		body += "\n" + s.Faint.Render(err.Error())
	}
	body += "\n\n" + s.Faint.Render("press enter to dismiss")
	return s.Failure.Render(body)
}

func (s Styles) labels(t *protocol.Ticket) string {
	out := make([]string, len(t.Labels))
	for i, l := range t.Labels {
		if strings.EqualFold(l, "BLOCKED") {
			out[i] = s.Warn.Render(l)
		} else {
			out[i] = s.Tag.Render(l)
		}
	}
	return strings.Join(out, " ")
}

func meta(t *protocol.Ticket) string {
	p := string(t.Priority)
	if p == "" {
		p = "-"
	}
	return fmt.Sprintf("[%s] %d pts", p, t.StoryPoints)
}
