// Package generate drives a single ticket-generation request from submit to
// success or failure, with a simulated step indicator while it waits.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/notice"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/progress"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

// Steps of the progress indicator. Steps 2 and 3 are only ever reached by
// the simulator; StepDone only by a successful response.
const (
	StepIdle      = 0
	StepSubmitted = 1
	StepDone      = 4
)

// FailureMessage is the notice text shown when an attempt fails.
const FailureMessage = "Error generating ticket. Please check the backend logs."

var (
	// ErrEmptyInput rejects a blank brain dump before any backend call.
	ErrEmptyInput = errors.New("generate: brain dump is empty")
	// ErrInFlight rejects a submit while another attempt is processing.
	ErrInFlight = errors.New("generate: a request is already in flight")
)

// Phase is the lifecycle position of the current attempt.
type Phase int

const (
	Idle Phase = iota
	Processing
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Processing:
		return "processing"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Generator is the backend call the orchestrator wraps.
type Generator interface {
	Generate(ctx context.Context, brainDump string) (*protocol.GenerateResult, error)
}

// State is a consistent snapshot of the orchestrator.
type State struct {
	Phase  Phase
	Step   int
	Result *protocol.GenerateResult // set only when Succeeded
	Err    error                    // set only when Failed
}

// Orchestrator owns the single-flight generation lifecycle.
type Orchestrator struct {
	gen      Generator
	interval time.Duration
	notifier notice.Notifier
	observer func(State)
	logger   *slog.Logger

	// emitMu orders observer deliveries so they never go backwards.
	emitMu sync.Mutex

	mu     sync.Mutex
	phase  Phase
	result *protocol.GenerateResult
	err    error
	step   progress.Counter
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithInterval sets the simulated step interval.
func WithInterval(d time.Duration) Option {
	return func(o *Orchestrator) { o.interval = d }
}

// WithNotifier sets where failure notices go.
func WithNotifier(n notice.Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithObserver registers fn to receive a fresh State after every
// transition and every simulated step. fn must not call Submit.
func WithObserver(fn func(State)) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an idle Orchestrator around gen.
func New(gen Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gen:      gen,
		interval: progress.DefaultInterval,
		notifier: notice.Discard,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current snapshot.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() State {
	return State{
		Phase:  o.phase,
		Step:   o.step.Value(),
		Result: o.result,
		Err:    o.err,
	}
}

// Submit runs one generation attempt and blocks until it resolves.
// Blank input and a concurrent attempt are rejected with ErrEmptyInput and
// ErrInFlight without touching state or the backend. Any other error means
// the attempt failed: state is Failed at step 0 and a failure notice has
// been sent.
func (o *Orchestrator) Submit(ctx context.Context, brainDump string) (*protocol.GenerateResult, error) {
	if strings.TrimSpace(brainDump) == "" {
		return nil, ErrEmptyInput
	}

	o.mu.Lock()
	if o.phase == Processing {
		o.mu.Unlock()
		return nil, ErrInFlight
	}
	o.phase = Processing
	o.result = nil
	o.err = nil
	o.step.Set(StepSubmitted)
	o.mu.Unlock()

	o.logger.Debug("generation submitted", "chars", len(brainDump))
	o.emit()

	// The simulator must be stopped before o.mu is taken for the terminal
	// write, so the final step is always the resolution's.
	sim := progress.Start(&o.step, o.interval, func(step int) {
		o.logger.Debug("generation step", "step", step)
		o.emit()
	})
	defer sim.Stop()

	res, err := o.gen.Generate(ctx, brainDump)
	if err == nil {
		if verr := res.Validate(); verr != nil {
			err = fmt.Errorf("generate: invalid response: %w", verr)
		}
	}

	sim.Stop()

	o.mu.Lock()
	if err != nil {
		o.phase = Failed
		o.result = nil
		o.err = err
		o.step.Set(StepIdle)
	} else {
		o.phase = Succeeded
		o.result = res
		o.step.Set(StepDone)
	}
	o.mu.Unlock()

	o.emit()

	if err != nil {
		o.logger.Warn("generation failed", "error", err)
		o.notifier.Notify(notice.Notice{Kind: notice.Failure, Message: FailureMessage, Err: err})
		return nil, err
	}
	o.logger.Info("ticket generated", "summary", res.Summary)
	return res, nil
}

// Reset returns a finished orchestrator to Idle, dropping any result.
// It fails with ErrInFlight while an attempt is processing.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	if o.phase == Processing {
		o.mu.Unlock()
		return ErrInFlight
	}
	o.phase = Idle
	o.result = nil
	o.err = nil
	o.step.Set(StepIdle)
	o.mu.Unlock()
	o.emit()
	return nil
}

func (o *Orchestrator) emit() {
	if o.observer == nil {
		return
	}
	o.emitMu.Lock()
	defer o.emitMu.Unlock()
	o.observer(o.State())
}
