// Package trace fetches a ticket's pipeline provenance on demand.
// Nothing is cached: every Open goes to the backend.
package trace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/client"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/notice"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

// ErrNoTrace means the backend holds no trace for the ticket. It is an
// expected outcome (tickets may predate trace capture), not a failure.
var ErrNoTrace = errors.New("trace: no trace available")

const (
	MsgNoTrace    = "No trace available for this ticket"
	MsgLoadFailed = "Failed to load trace"
)

// Fetcher is the transport call the viewer wraps.
type Fetcher interface {
	FetchTrace(ctx context.Context, summary string) (*protocol.Trace, error)
}

// Viewer binds trace lookups to user notices.
type Viewer struct {
	fetcher  Fetcher
	notifier notice.Notifier
	logger   *slog.Logger
}

// NewViewer creates a Viewer. notifier and logger may be nil.
func NewViewer(f Fetcher, notifier notice.Notifier, logger *slog.Logger) *Viewer {
	if notifier == nil {
		notifier = notice.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Viewer{fetcher: f, notifier: notifier, logger: logger}
}

// Open fetches the trace of the ticket identified by summary.
// A missing trace returns an error matching ErrNoTrace and an Info notice;
// any other error sends a Failure notice.
func (v *Viewer) Open(ctx context.Context, summary string) (*protocol.Trace, error) {
	tr, err := v.fetcher.FetchTrace(ctx, summary)
	switch {
	case errors.Is(err, client.ErrNotFound):
		v.logger.Debug("no trace", "summary", summary)
		v.notifier.Notify(notice.Notice{Kind: notice.Info, Message: MsgNoTrace})
		return nil, fmt.Errorf("%w for %q", ErrNoTrace, summary)
	case err != nil:
		v.logger.Warn("trace fetch failed", "summary", summary, "error", err)
		v.notifier.Notify(notice.Notice{Kind: notice.Failure, Message: MsgLoadFailed, Err: err})
		return nil, err
	}
	return tr, nil
}
