// Package notice carries user-facing signals out of the client core.
//
// Validation rejections are silent; every other failure reaches the user
// through a Notifier exactly once.
package notice

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Kind distinguishes blocking failures from informational messages.
type Kind int

const (
	// Failure is a blocking, dismissible error notice.
	Failure Kind = iota
	// Info is a non-blocking informational notice.
	Info
)

func (k Kind) String() string {
	switch k {
	case Failure:
		return "failure"
	case Info:
		return "info"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Notice is one message for the user.
type Notice struct {
	Kind    Kind
	Message string
	Err     error // underlying cause, may be nil
}

func (n Notice) String() string {
	if n.Err != nil {
		return fmt.Sprintf("%s: %v", n.Message, n.Err)
	}
	return n.Message
}

// Notifier surfaces notices to the user.
type Notifier interface {
	Notify(n Notice)
}

// Func adapts a function to Notifier.
type Func func(Notice)

func (f Func) Notify(n Notice) { f(n) }

// Discard drops every notice.
var Discard Notifier = Func(func(Notice) {})

// Writer prints notices as single lines, failures prefixed with "error:".
type Writer struct {
	mu sync.Mutex
	W  io.Writer
}

func (w *Writer) Notify(n Notice) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch n.Kind {
	case Failure:
		fmt.Fprintf(w.W, "error: %s\n", n)
	default:
		fmt.Fprintln(w.W, n.String())
	}
}

// Recorder keeps every notice it receives. Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// Notices returns a copy of everything recorded so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Failures counts recorded Failure notices.
func (r *Recorder) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, x := range r.notices {
		if x.Kind == Failure {
			n++
		}
	}
	return n
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// Always approves every prompt (for --yes style flags).
var Always Confirmer = ConfirmFunc(func(context.Context, string) bool { return true })

// Never declines every prompt.
var Never Confirmer = ConfirmFunc(func(context.Context, string) bool { return false })
