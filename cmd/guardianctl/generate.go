package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/generate"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/tui"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

func (a *app) cmdGenerate(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	plain := fs.Bool("plain", false, "Print steps as lines instead of the interactive view")
	asJSON := fs.Bool("json", false, "Print the ticket as JSON")
	interval := fs.Duration("interval", envDuration("GUARDIAN_STEP_INTERVAL", defaultStepInterval), "Progress step interval")
	pos := parseArgs(fs, args)

	text, err := a.readInput(pos)
	if err != nil {
		return a.fail("%v", err)
	}
	if strings.TrimSpace(text) == "" {
		return a.fail("brain dump is empty")
	}

	var res *protocol.GenerateResult
	if !*plain && !*asJSON && isTerminal(a.out) {
		res, err = a.generateInteractive(ctx, text, *interval)
	} else {
		res, err = a.generatePlain(ctx, text, *interval)
	}
	if err != nil {
		if code := a.exitCode(); code != 0 {
			fmt.Fprintln(a.errOut, "Run `guardianctl logs --level warn` for backend details.")
			return code
		}
		return a.fail("%v", err)
	}

	switch {
	case *asJSON:
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return a.fail("%v", err)
		}
	case *plain || !isTerminal(a.out):
		styles := tui.PlainStyles()
		if !*plain {
			styles = tui.TerminalStyles(a.out)
		}
		fmt.Fprintln(a.out, styles.Ticket(&res.Ticket))
	}
	return 0
}

// generatePlain prints each step reached on stderr.
func (a *app) generatePlain(ctx context.Context, text string, interval time.Duration) (*protocol.GenerateResult, error) {
	last := generate.StepIdle
	orch := generate.New(a.client,
		generate.WithInterval(interval),
		generate.WithNotifier(a.notifier),
		generate.WithLogger(a.logger),
		generate.WithObserver(func(s generate.State) {
			if s.Phase == generate.Failed || s.Step <= last {
				return
			}
			last = s.Step
			fmt.Fprintln(a.errOut, tui.StepLine(s.Step))
		}),
	)
	return orch.Submit(ctx, text)
}

// generateInteractive runs the bubbletea view. The final frame, ticket or
// failure box, stays on screen after the program exits.
func (a *app) generateInteractive(ctx context.Context, text string, interval time.Duration) (*protocol.GenerateResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := a.logger
	if !a.debug {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	p := tea.NewProgram(tui.NewGenerateModel(tui.TerminalStyles(a.out)),
		tea.WithContext(ctx),
		tea.WithOutput(a.out),
	)
	orch := generate.New(a.client,
		generate.WithInterval(interval),
		generate.WithNotifier(a.recorder),
		generate.WithLogger(logger),
		generate.WithObserver(func(s generate.State) { p.Send(tui.StateMsg(s)) }),
	)

	go func() {
		res, err := orch.Submit(ctx, text)
		p.Send(tui.DoneMsg{Result: res, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m := final.(tui.GenerateModel)
	if m.Interrupted() {
		return nil, context.Canceled
	}
	return m.Result(), m.Err()
}
