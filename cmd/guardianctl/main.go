package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/client"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/notice"
)

const defaultStepInterval = 2 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	var code int
	switch os.Args[1] {
	case "generate":
		code = a.cmdGenerate(ctx, os.Args[2:])
	case "health":
		code = a.cmdHealth(ctx)
	case "logs":
		code = a.cmdLogs(ctx, os.Args[2:])
	case "tickets":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: guardianctl tickets <list|delete>")
			os.Exit(1)
		}
		switch os.Args[2] {
		case "list":
			code = a.cmdTicketsList(ctx, os.Args[3:])
		case "delete":
			code = a.cmdTicketsDelete(ctx, os.Args[3:])
		default:
			fmt.Fprintf(os.Stderr, "unknown tickets subcommand: %s\n", os.Args[2])
			os.Exit(1)
		}
	case "trace":
		if len(os.Args) < 3 || os.Args[2] != "show" {
			fmt.Fprintln(os.Stderr, "usage: guardianctl trace show <summary>")
			os.Exit(1)
		}
		code = a.cmdTraceShow(ctx, os.Args[3:])
	case "context":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: guardianctl context <show|set|import>")
			os.Exit(1)
		}
		switch os.Args[2] {
		case "show":
			code = a.cmdContextShow(ctx)
		case "set":
			code = a.cmdContextSet(ctx, os.Args[3:])
		case "import":
			code = a.cmdContextImport(ctx, os.Args[3:])
		default:
			fmt.Fprintf(os.Stderr, "unknown context subcommand: %s\n", os.Args[2])
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	os.Exit(code)
}

// app carries what every command needs. Notices go to stderr and are
// recorded so any failure turns into exit status 1.
type app struct {
	client   *client.Client
	recorder *notice.Recorder
	notifier notice.Notifier
	logger   *slog.Logger
	debug    bool

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	debug := os.Getenv("GUARDIAN_DEBUG") != ""
	logLevel := slog.LevelWarn
	if debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: logLevel}))

	rec := &notice.Recorder{}
	w := &notice.Writer{W: errOut}
	return &app{
		client: client.New(
			client.WithBaseURL(envOr("GUARDIAN_API_URL", client.DefaultBaseURL)),
			client.WithAPIKey(os.Getenv("GUARDIAN_API_KEY")),
			client.WithLogger(logger),
		),
		recorder: rec,
		notifier: notice.Func(func(n notice.Notice) {
			rec.Notify(n)
			w.Notify(n)
		}),
		logger: logger,
		debug:  debug,
		in:     in,
		out:    out,
		errOut: errOut,
	}
}

// exitCode is 1 once any failure notice was raised.
func (a *app) exitCode() int {
	if a.recorder.Failures() > 0 {
		return 1
	}
	return 0
}

func (a *app) fail(format string, args ...any) int {
	fmt.Fprintf(a.errOut, "error: "+format+"\n", args...)
	return 1
}

// confirmer asks on stderr and reads the answer from stdin.
func (a *app) confirmer() notice.Confirmer {
	r := bufio.NewReader(a.in)
	return notice.ConfirmFunc(func(_ context.Context, prompt string) bool {
		fmt.Fprintf(a.errOut, "%s [y/N] ", prompt)
		line, _ := r.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	})
}

func (a *app) cmdHealth(ctx context.Context) int {
	if err := a.client.Health(ctx); err != nil {
		return a.fail("%v", err)
	}
	fmt.Fprintln(a.out, "ok")
	return 0
}

// --- Helpers ---

// parseArgs parses fs over args with flags allowed anywhere before a "--"
// terminator and returns the positional arguments.
func parseArgs(fs *flag.FlagSet, args []string) []string {
	var pos []string
	for {
		fs.Parse(args)
		rest := fs.Args()
		if len(rest) == 0 {
			return pos
		}
		// After "--" everything is positional.
		if n := len(args) - len(rest); n > 0 && args[n-1] == "--" {
			return append(pos, rest...)
		}
		pos = append(pos, rest[0])
		args = rest[1:]
	}
}

// readInput returns the joined positional text, or stdin when there is
// none or it is "-".
func (a *app) readInput(pos []string) (string, error) {
	if len(pos) > 0 && !(len(pos) == 1 && pos[0] == "-") {
		return strings.Join(pos, " "), nil
	}
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintln(a.errOut, "Reading from stdin, finish with Ctrl-D.")
	}
	data, err := io.ReadAll(a.in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func printUsage() {
	fmt.Println("guardianctl - turn brain dumps into sprint-ready tickets")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  generate [text|-]              Generate a ticket (--plain, --json, --interval)")
	fmt.Println("  tickets list                   List tickets, newest first")
	fmt.Println("  tickets delete <summary>       Delete a ticket (--yes skips the prompt)")
	fmt.Println("  trace show <summary>           Show how a ticket was generated")
	fmt.Println("  context show                   Print the project context")
	fmt.Println("  context set [text|--file f|-]  Replace the project context")
	fmt.Println("  context import <url>           Replace the project context with a web page")
	fmt.Println("  logs                           Show recent daemon logs (--level, --since, --grep)")
	fmt.Println("  health                         Check daemon health")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  GUARDIAN_API_URL        Daemon URL (default: http://localhost:8000)")
	fmt.Println("  GUARDIAN_API_KEY        API key for authentication")
	fmt.Println("  GUARDIAN_STEP_INTERVAL  Progress step interval (default: 2s)")
	fmt.Println("  GUARDIAN_DEBUG          Any value enables debug logging")
}
