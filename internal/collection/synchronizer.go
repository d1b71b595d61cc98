// Package collection keeps the client's view of the ticket list and the
// project context document in step with the backend.
//
// The view only changes after the backend confirms: a list refresh replaces
// it wholesale, a confirmed delete removes the matching entries, and a
// failure of either leaves it exactly as it was.
package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/notice"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

// ErrNotConfirmed is returned when the user declines a delete.
var ErrNotConfirmed = errors.New("collection: delete not confirmed")

// Notice texts.
const (
	MsgListFailed    = "Failed to load tickets"
	MsgDeleteFailed  = "Failed to delete ticket"
	MsgContextFailed = "Failed to load project context"
	MsgSaveFailed    = "Failed to save project context"
	MsgSaved         = "Project context saved"
)

// Backend is the subset of the transport the synchronizer needs.
type Backend interface {
	ListTickets(ctx context.Context) ([]protocol.Ticket, error)
	DeleteTicket(ctx context.Context, summary string) error
	FetchContext(ctx context.Context) (*protocol.ContextDocument, error)
	SaveContext(ctx context.Context, doc protocol.ContextDocument) error
}

// Synchronizer holds the local ticket view and context document.
type Synchronizer struct {
	backend  Backend
	confirm  notice.Confirmer
	notifier notice.Notifier
	logger   *slog.Logger

	mu            sync.Mutex
	tickets       []protocol.Ticket
	ticketsLoaded bool
	doc           protocol.ContextDocument
	docLoaded     bool
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithConfirmer sets who approves deletes. The default declines everything.
func WithConfirmer(c notice.Confirmer) Option {
	return func(s *Synchronizer) { s.confirm = c }
}

// WithNotifier sets where notices go.
func WithNotifier(n notice.Notifier) Option {
	return func(s *Synchronizer) { s.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Synchronizer) { s.logger = l }
}

// New creates a Synchronizer with an empty, unloaded view.
func New(b Backend, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		backend:  b,
		confirm:  notice.Never,
		notifier: notice.Discard,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh fetches the full ticket list and replaces the local view with it.
// Call it whenever the ticket view becomes active.
func (s *Synchronizer) Refresh(ctx context.Context) ([]protocol.Ticket, error) {
	tickets, err := s.backend.ListTickets(ctx)
	if err != nil {
		s.logger.Warn("ticket list failed", "error", err)
		s.notifier.Notify(notice.Notice{Kind: notice.Failure, Message: MsgListFailed, Err: err})
		return nil, err
	}

	s.mu.Lock()
	s.tickets = append([]protocol.Ticket(nil), tickets...)
	s.ticketsLoaded = true
	out := s.copyTicketsLocked()
	s.mu.Unlock()

	s.logger.Debug("ticket list refreshed", "count", len(out))
	return out, nil
}

// Tickets returns a copy of the local view in backend order.
func (s *Synchronizer) Tickets() []protocol.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyTicketsLocked()
}

// Loaded reports whether a refresh has succeeded at least once.
func (s *Synchronizer) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticketsLoaded
}

func (s *Synchronizer) copyTicketsLocked() []protocol.Ticket {
	out := make([]protocol.Ticket, len(s.tickets))
	copy(out, s.tickets)
	return out
}

// Delete asks for confirmation, then deletes the ticket identified by
// summary. Only after the backend confirms are the entries it matched
// removed from the local view; matching ignores case and surrounding
// space, as the backend's does.
func (s *Synchronizer) Delete(ctx context.Context, summary string) error {
	if !s.confirm.Confirm(ctx, fmt.Sprintf("Are you sure you want to delete %q?", summary)) {
		return ErrNotConfirmed
	}

	if err := s.backend.DeleteTicket(ctx, summary); err != nil {
		s.logger.Warn("ticket delete failed", "summary", summary, "error", err)
		s.notifier.Notify(notice.Notice{Kind: notice.Failure, Message: MsgDeleteFailed, Err: err})
		return err
	}

	key := protocol.SummaryKey(summary)
	s.mu.Lock()
	kept := make([]protocol.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		if protocol.SummaryKey(t.Summary) != key {
			kept = append(kept, t)
		}
	}
	removed := len(s.tickets) - len(kept)
	s.tickets = kept
	s.mu.Unlock()

	s.logger.Info("ticket deleted", "summary", summary, "removed", removed)
	return nil
}

// FetchContext loads the project context document.
// Call it when the settings view becomes active.
func (s *Synchronizer) FetchContext(ctx context.Context) (protocol.ContextDocument, error) {
	doc, err := s.backend.FetchContext(ctx)
	if err != nil {
		s.logger.Warn("context fetch failed", "error", err)
		s.notifier.Notify(notice.Notice{Kind: notice.Failure, Message: MsgContextFailed, Err: err})
		return protocol.ContextDocument{}, err
	}

	s.mu.Lock()
	s.doc = *doc
	s.docLoaded = true
	s.mu.Unlock()
	return *doc, nil
}

// Context returns the last loaded or saved context document.
func (s *Synchronizer) Context() (protocol.ContextDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc, s.docLoaded
}

// SaveContext replaces the backend's context document with content.
// Concurrent saves from other clients are not reconciled: the last write wins.
func (s *Synchronizer) SaveContext(ctx context.Context, content string) error {
	doc := protocol.ContextDocument{Content: content}
	if err := s.backend.SaveContext(ctx, doc); err != nil {
		s.logger.Warn("context save failed", "error", err)
		s.notifier.Notify(notice.Notice{Kind: notice.Failure, Message: MsgSaveFailed, Err: err})
		return err
	}

	s.mu.Lock()
	s.doc = doc
	s.docLoaded = true
	s.mu.Unlock()

	s.notifier.Notify(notice.Notice{Kind: notice.Info, Message: MsgSaved})
	return nil
}
