// Package store persists generated tickets, their traces and the project
// context document.
package store

import (
	"errors"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

// ErrNotFound is returned when no ticket or trace matches a summary.
var ErrNotFound = errors.New("not found")

// Store is the persistence interface for the ticket backend.
type Store interface {
	// SaveGenerated stores a ticket and its trace atomically. A ticket whose
	// slug already exists is replaced together with its trace.
	SaveGenerated(ticket *protocol.Ticket, trace *protocol.Trace) error
	// ListTickets returns every ticket, newest first.
	ListTickets() ([]*protocol.Ticket, error)
	// DeleteTicket removes a ticket and its trace by summary.
	DeleteTicket(summary string) error
	// GetTrace returns the trace recorded for a ticket summary.
	GetTrace(summary string) (*protocol.Trace, error)
	// GetContext returns the context document (empty if never saved).
	GetContext() (protocol.ContextDocument, error)
	// SaveContext replaces the context document.
	SaveContext(doc protocol.ContextDocument) error
}

// Slug turns a summary into its storage key: lowercase, spaces as
// underscores. Summaries that differ only in case or spacing collide.
func Slug(summary string) string {
	return protocol.SummaryKey(summary)
}
