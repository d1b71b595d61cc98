package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/client"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/collection"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/notice"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/pagefetch"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/trace"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/tui"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

func (a *app) synchronizer(opts ...collection.Option) *collection.Synchronizer {
	opts = append([]collection.Option{
		collection.WithNotifier(a.notifier),
		collection.WithLogger(a.logger),
	}, opts...)
	return collection.New(a.client, opts...)
}

func (a *app) styles(plain bool) tui.Styles {
	if plain {
		return tui.PlainStyles()
	}
	return tui.TerminalStyles(a.out)
}

// --- tickets ---

func (a *app) cmdTicketsList(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("tickets list", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print tickets as JSON")
	plain := fs.Bool("plain", false, "Disable colors")
	parseArgs(fs, args)

	tickets, err := a.synchronizer().Refresh(ctx)
	if err != nil {
		return a.exitCode()
	}
	if *asJSON {
		out, _ := json.MarshalIndent(tickets, "", "  ")
		fmt.Fprintln(a.out, string(out))
		return 0
	}
	fmt.Fprintln(a.out, a.styles(*plain).TicketList(tickets))
	return 0
}

func (a *app) cmdTicketsDelete(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("tickets delete", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Delete without asking")
	pos := parseArgs(fs, args)
	if len(pos) == 0 {
		fmt.Fprintln(a.errOut, "usage: guardianctl tickets delete <summary> [--yes]")
		return 1
	}
	summary := strings.Join(pos, " ")

	confirm := a.confirmer()
	if *yes {
		confirm = notice.Always
	}
	err := a.synchronizer(collection.WithConfirmer(confirm)).Delete(ctx, summary)
	switch {
	case errors.Is(err, collection.ErrNotConfirmed):
		fmt.Fprintln(a.errOut, "Cancelled.")
		return 0
	case err != nil:
		return a.exitCode()
	}
	fmt.Fprintln(a.out, "Ticket deleted successfully")
	return 0
}

// --- trace ---

func (a *app) cmdTraceShow(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("trace show", flag.ExitOnError)
	plain := fs.Bool("plain", false, "Disable syntax highlighting")
	pos := parseArgs(fs, args)
	if len(pos) == 0 {
		fmt.Fprintln(a.errOut, "usage: guardianctl trace show <summary>")
		return 1
	}
	summary := strings.Join(pos, " ")

	tr, err := trace.NewViewer(a.client, a.notifier, a.logger).Open(ctx, summary)
	switch {
	case errors.Is(err, trace.ErrNoTrace):
		return 0
	case err != nil:
		return a.exitCode()
	}
	out, err := a.styles(*plain).Trace(tr)
	if err != nil {
		return a.fail("%v", err)
	}
	fmt.Fprintln(a.out, out)
	return 0
}

// --- context ---

func (a *app) cmdContextShow(ctx context.Context) int {
	doc, err := a.synchronizer().FetchContext(ctx)
	if err != nil {
		return a.exitCode()
	}
	if strings.TrimSpace(doc.Content) == "" {
		fmt.Fprintln(a.errOut, "No project context set.")
		return 0
	}
	fmt.Fprintln(a.out, doc.Content)
	return 0
}

func (a *app) cmdContextSet(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("context set", flag.ExitOnError)
	file := fs.String("file", "", "Read the context from a file")
	pos := parseArgs(fs, args)

	var content string
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			return a.fail("read %s: %v", *file, err)
		}
		content = string(data)
	} else {
		var err error
		if content, err = a.readInput(pos); err != nil {
			return a.fail("%v", err)
		}
	}

	if err := a.synchronizer().SaveContext(ctx, content); err != nil {
		return a.exitCode()
	}
	return 0
}

func (a *app) cmdContextImport(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(a.errOut, "usage: guardianctl context import <url>")
		return 1
	}
	page, err := pagefetch.New(nil).Fetch(ctx, args[0])
	if err != nil {
		return a.fail("%v", err)
	}
	if err := a.synchronizer().SaveContext(ctx, page.Document()); err != nil {
		return a.exitCode()
	}
	msg := fmt.Sprintf("Imported %d words from %s", page.Words(), page.URL)
	if page.Truncated {
		msg += " (truncated)"
	}
	fmt.Fprintln(a.errOut, msg)
	return 0
}

// --- logs ---

func (a *app) cmdLogs(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	level := fs.String("level", "info", "Minimum level: debug, info, warn or error")
	limit := fs.Int("limit", 50, "Max records")
	since := fs.Duration("since", 0, "Only records newer than this, e.g. 10m")
	grep := fs.String("grep", "", "Only records mentioning this text")
	asJSON := fs.Bool("json", false, "Print records as JSON")
	parseArgs(fs, args)

	q := client.LogQuery{Level: *level, Limit: *limit, Contains: *grep}
	if *since > 0 {
		q.Since = time.Now().Add(-*since)
	}
	entries, err := a.client.Logs(ctx, q)
	if err != nil {
		return a.fail("%v", err)
	}
	if *asJSON {
		out, _ := json.MarshalIndent(entries, "", "  ")
		fmt.Fprintln(a.out, string(out))
		return 0
	}
	for _, e := range entries {
		fmt.Fprintln(a.out, formatLogEntry(e))
	}
	return 0
}

// formatLogEntry renders "15:04:05 WARN  message key=value ..." with
// attrs in key order.
func formatLogEntry(e protocol.LogEntry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %-5s %s", e.Time.Local().Format("15:04:05"), e.Level, e.Message)
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, e.Attrs[k])
	}
	return sb.String()
}
