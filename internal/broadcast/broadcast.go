// Package broadcast announces newly generated tickets to chat platforms.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

// Announcer publishes a ticket somewhere people will see it.
type Announcer interface {
	Announce(ctx context.Context, t *protocol.Ticket) error
	Name() string
}

// Multi announces to every wrapped announcer, joining their errors.
type Multi []Announcer

func (m Multi) Name() string { return "multi" }

func (m Multi) Announce(ctx context.Context, t *protocol.Ticket) error {
	var errs []error
	for _, a := range m {
		if err := a.Announce(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// PlainText renders the announcement without markup.
func PlainText(t *protocol.Ticket) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "New ticket: %s\n", t.Summary)
	fmt.Fprintf(&sb, "Priority: %s | Story points: %d", orDash(string(t.Priority)), t.StoryPoints)
	if len(t.Labels) > 0 {
		fmt.Fprintf(&sb, "\nLabels: %s", strings.Join(t.Labels, ", "))
	}
	return sb.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
