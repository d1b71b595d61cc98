package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/api"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/broadcast"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/config"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/logbuf"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/pipeline"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/provider"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/scheduler"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (JSONC or YAML)")
	configURL := flag.String("config-url", os.Getenv("GUARDIAN_CONFIG_URL"), "URL to fetch config from")
	configKey := flag.String("config-key", os.Getenv("GUARDIAN_CONFIG_KEY"), "Bearer token for -config-url")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logs := logbuf.New(logbuf.DefaultSize)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logbuf.NewHandler(jsonHandler, logs, logLevel))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load config (3 modes: file, url, env)
	var cfg *config.Config
	var err error
	switch {
	case *configPath != "":
		cfg, err = config.Load(*configPath)
	case *configURL != "":
		logger.Info("loading config from url", "url", *configURL)
		cfg, err = config.LoadFromURL(ctx, *configURL, *configKey)
	default:
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, logger, logs); err != nil {
		logger.Error("guardiand failed", "error", err)
		os.Exit(1)
	}
	logger.Info("guardiand stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, logs *logbuf.Buffer) error {
	logger.Info("guardiand starting", "data_dir", cfg.DataDir, "provider", cfg.Pipeline.Provider)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 1. Provider + pipeline
	pcfg := cfg.Providers[cfg.Pipeline.Provider]
	prov := newProvider(pcfg)
	logger.Info("provider initialized", "name", cfg.Pipeline.Provider, "type", pcfg.Type, "model", pcfg.Model)

	pipe := pipeline.New(prov,
		pipeline.WithAttempts(cfg.Pipeline.Attempts),
		pipeline.WithLogger(logger.With("component", "pipeline")),
	)

	// 2. Store
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	st, err := store.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	logger.Info("store opened", "path", cfg.DBPath())

	// 3. Broadcast
	announcers, err := newAnnouncers(cfg.Broadcast, logger)
	if err != nil {
		return err
	}
	var announcer api.Announcer
	if len(announcers) > 0 {
		announcer = announcers
	}

	var wg sync.WaitGroup
	goSafe := func(name string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			safeGo(logger, name, fn)
		}()
	}

	// 4. Scheduled export
	if cfg.Export.Schedule != "" {
		sched := scheduler.New(logger.With("component", "scheduler"))
		exp := scheduler.NewExporter(st, cfg.Export.Dir, logger.With("component", "export"))
		if err := sched.AddJob(scheduler.ExportJobName, cfg.Export.Schedule, exp.Run); err != nil {
			return err
		}
		goSafe("scheduler", func() { sched.Start(ctx) })
		logger.Info("ticket export scheduled", "schedule", cfg.Export.Schedule, "dir", cfg.Export.Dir)
	}

	// 5. API server
	srv := api.NewServer(st, pipe, api.Config{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		Key:       cfg.Server.APIKey,
		StaticDir: cfg.Server.StaticDir,
		Logs:      logs,
	}, logger.With("component", "api"), announcer)

	errCh := make(chan error, 1)
	goSafe("api-server", func() { errCh <- srv.Start(ctx) })

	select {
	case err = <-errCh:
	case <-ctx.Done():
		logger.Info("shutting down")
	}
	cancel()
	wg.Wait()
	if err == nil {
		select {
		case err = <-errCh:
		default:
		}
	}
	return err
}

func newProvider(pcfg config.ProviderConfig) provider.Provider {
	var opts []provider.Option
	if pcfg.BaseURL != "" {
		opts = append(opts, provider.WithBaseURL(pcfg.BaseURL))
	}
	if pcfg.Model != "" {
		opts = append(opts, provider.WithModel(pcfg.Model))
	}
	switch pcfg.Type {
	case config.ProviderAnthropic:
		return provider.NewAnthropic(pcfg.APIKey, opts...)
	case config.ProviderGemini:
		return provider.NewGemini(pcfg.APIKey, opts...)
	default:
		return provider.NewOpenAI(pcfg.APIKey, opts...)
	}
}

func newAnnouncers(cfg config.BroadcastConfig, logger *slog.Logger) (broadcast.Multi, error) {
	var out broadcast.Multi
	if sc := cfg.Slack; sc != nil {
		s, err := broadcast.NewSlack(broadcast.SlackConfig{
			Token:   sc.Token,
			Channel: sc.Channel,
		}, logger.With("broadcast", "slack"))
		if err != nil {
			return nil, fmt.Errorf("init slack: %w", err)
		}
		out = append(out, s)
		logger.Info("slack broadcast enabled", "channel", sc.Channel)
	}
	if tc := cfg.Telegram; tc != nil {
		t, err := broadcast.NewTelegram(broadcast.TelegramConfig{
			Token:  tc.Token,
			ChatID: tc.ChatID,
		}, logger.With("broadcast", "telegram"))
		if err != nil {
			return nil, fmt.Errorf("init telegram: %w", err)
		}
		out = append(out, t)
		logger.Info("telegram broadcast enabled", "chat_id", tc.ChatID)
	}
	return out, nil
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}
