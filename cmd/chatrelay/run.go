package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"hungrycoders/chatrelay/pkg/chat"
	"hungrycoders/chatrelay/pkg/config"
	"hungrycoders/chatrelay/pkg/conversation"
	"hungrycoders/chatrelay/pkg/prompt"
	"hungrycoders/chatrelay/pkg/providerfactory"
	"hungrycoders/chatrelay/pkg/providers"
	"hungrycoders/chatrelay/pkg/router"
	"hungrycoders/chatrelay/pkg/server"
	"hungrycoders/chatrelay/pkg/telemetry/logging"
	"hungrycoders/chatrelay/pkg/telemetry/metrics"
	"hungrycoders/chatrelay/pkg/tokenizer"
	"hungrycoders/chatrelay/pkg/usage"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the ChatRelay server",
	Long: `Start the ChatRelay server with the specified configuration.

Examples:
  # Start with default config
  chatrelay run

  # Start with custom config
  chatrelay run --config /etc/chatrelay/chatrelay.yaml

  # Override listen address
  chatrelay run --listen 0.0.0.0:8080

  # Validate config without starting the server
  chatrelay run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := logging.Setup(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	})
	if err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Println("configuration valid")
		return nil
	}

	logger.Info("starting chatrelay",
		"version", Version,
		"config", cfgFile,
	)

	backends, err := providerfactory.BuildAll(cfg.Providers)
	if err != nil {
		return err
	}

	rt, err := router.New(backends, cfg.Chat.DefaultProvider)
	if err != nil {
		_ = closeBackends(backends)
		return err
	}
	defer rt.Close()

	usageStore, retention, err := buildUsage(cfg)
	if err != nil {
		return err
	}
	if usageStore != nil {
		defer usageStore.Close()
	}
	if retention != nil {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := retention.Start(ctx); err != nil {
			logger.Warn("failed to start usage retention", "error", err)
		} else {
			defer retention.Stop()
		}
	}

	renderer, err := buildRenderer(cfg)
	if err != nil {
		return err
	}

	watcher, err := config.NewWatcher(cfgFile, 0)
	if err != nil {
		logger.Warn("config watcher unavailable", "error", err)
	} else {
		watchCtx, cancelWatch := context.WithCancel(context.Background())
		defer cancelWatch()
		go func() {
			err := watcher.Watch(watchCtx, func() error {
				return reloadConfig(cfgFile)
			})
			if err != nil {
				logger.Warn("config watcher stopped", "error", err)
			}
		}()
		defer watcher.Stop()
	}

	store := conversation.NewStore(tokenizer.NewHeuristicEstimator())
	m := metrics.New()

	orch := chat.New(store, rt, m, usageStore, chat.Config{
		HistoryBudget:  cfg.Chat.HistoryBudget,
		RequestTimeout: cfg.Chat.RequestTimeout,
	})

	srv := server.New(cfg, orch, store, rt, renderer, m)
	return srv.Start(cmd.Context())
}

func buildUsage(cfg *config.Config) (usage.Storage, *usage.Retention, error) {
	if !cfg.Usage.Enabled {
		return nil, nil, nil
	}

	var store usage.Storage
	switch cfg.Usage.Backend {
	case "sqlite":
		s, err := usage.NewSQLiteStorage(cfg.Usage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open usage storage: %w", err)
		}
		store = s
	default:
		store = usage.NewMemoryStorage()
	}

	retention := usage.NewRetention(store, usage.RetentionConfig{
		RetentionDays: cfg.Usage.RetentionDays,
		Schedule:      cfg.Usage.PruneSchedule,
	})
	return store, retention, nil
}

// reloadConfig re-reads the config after a file change. Providers and
// routes are fixed at startup; only the log level is applied live, but a
// broken edit is reported immediately instead of at the next restart.
func reloadConfig(path string) error {
	cfg, err := config.LoadWithEnvOverrides(path)
	if err != nil {
		return err
	}
	return logging.SetLevel(cfg.Telemetry.Logging.Level)
}

func buildRenderer(cfg *config.Config) (*prompt.Renderer, error) {
	if cfg.Prompts.Dir != "" {
		return prompt.NewRenderer(cfg.Prompts.Dir)
	}
	return prompt.NewRendererFromMap(prompt.DefaultTemplates()), nil
}

func closeBackends(backends map[string]providers.Provider) error {
	var firstErr error
	for _, b := range backends {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
