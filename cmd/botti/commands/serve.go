package commands

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bottihq/botti/pkg/botti/assistant"
	"github.com/bottihq/botti/pkg/botti/extract"
	"github.com/bottihq/botti/pkg/botti/gateway"
	"github.com/bottihq/botti/pkg/botti/llm"
	"github.com/bottihq/botti/pkg/botti/media"
	"github.com/bottihq/botti/pkg/botti/scenario"
	"github.com/bottihq/botti/pkg/botti/session"
	"github.com/bottihq/botti/pkg/botti/store"
)

// newServeCmd creates the `botti serve` command that starts the daemon.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the WhatsApp assistant daemon",
		Long: `Start Botti as a daemon: connect to WhatsApp, log in via QR code
on first run, and process incoming messages.

Examples:
  botti serve
  botti serve --scenario bookstore
  botti serve --config ./config.yaml`,
		RunE: runServe,
	}

	cmd.Flags().String("scenario", "", "scenario override (base, hairdresser, car_parts_retailer, bookstore)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	if override, _ := cmd.Flags().GetString("scenario"); override != "" {
		cfg.Scenario = override
	}

	logger := newLogger(cmd, cfg.LogLevel)

	if cfg.LLM.APIKey == "" {
		logger.Warn("no API key configured",
			"hint", "run 'botti setup' or set BOTTI_API_KEY")
	}

	// ---------- Storage ----------
	st, err := store.OpenSQLite(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("opening conversation store: %w", err)
	}
	defer st.Close()

	sessions := session.NewStore(cfg.RateLimit, logger)
	if err := sessions.StartPruning(cfg.SessionPruneSchedule, cfg.SessionMaxIdle); err != nil {
		logger.Warn("session pruning disabled", "error", err)
	}

	// ---------- Transport ----------
	wa := gateway.NewWhatsApp(cfg.WhatsApp, logger)
	wa.QRFunc = func(code string) {
		fmt.Println()
		fmt.Println("WhatsApp login required. Open WhatsApp on your phone,")
		fmt.Println("go to Linked Devices, and scan the QR for this code:")
		fmt.Println()
		fmt.Println("  " + code)
		fmt.Println()
	}

	// ---------- Services ----------
	completer := llm.NewClient(cfg.LLM, logger)
	mediaGen := media.New(cfg.Media, logger)
	extractor := extract.New(logger)
	registry := scenario.NewRegistry(scenario.NewBackend())

	bot, err := assistant.New(cfg, wa, st, sessions,
		completer, mediaGen, extractor, registry, logger)
	if err != nil {
		return fmt.Errorf("creating assistant: %w", err)
	}

	// ---------- Run until signalled ----------
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- bot.Run(ctx) }()

	logger.Info("botti running, press Ctrl+C to stop",
		"scenario", cfg.Scenario,
		"database", cfg.Database,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received, stopping...")
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	}

	cancel()
	bot.Stop()

	select {
	case <-errCh:
		logger.Info("shutdown complete")
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out after 10s, forcing exit")
	}

	return nil
}

// newLogger builds the process logger from the configured level and the
// --verbose flag.
func newLogger(cmd *cobra.Command, level string) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	logLevel := slog.LevelInfo
	switch {
	case verbose, strings.EqualFold(level, "debug"):
		logLevel = slog.LevelDebug
	case strings.EqualFold(level, "warn"):
		logLevel = slog.LevelWarn
	case strings.EqualFold(level, "error"):
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// resolveConfig loads config from file, offering interactive setup when
// no config file exists yet.
func resolveConfig(cmd *cobra.Command) (*assistant.Config, error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")

	if configPath != "" {
		cfg, err := assistant.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}

	if found := assistant.FindConfigFile(); found != "" {
		cfg, err := assistant.LoadConfig(found)
		if err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", found, err)
		}
		slog.Info("config loaded", "path", found)
		return cfg, nil
	}

	// No config file anywhere. Offer setup before connecting.
	fmt.Println()
	fmt.Println("No configuration file found.")
	fmt.Println("Botti needs a config.yaml before connecting to WhatsApp.")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Run interactive setup now? (y/n) [y]: ")
	answer, _ := reader.ReadString('\n')
	if a := strings.TrimSpace(answer); a != "" && !strings.EqualFold(a, "y") {
		fmt.Println()
		fmt.Println("Run 'botti setup' to create the configuration.")
		return nil, fmt.Errorf("configuration required before starting")
	}

	if err := runInteractiveSetup(); err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}

	if found := assistant.FindConfigFile(); found != "" {
		cfg, err := assistant.LoadConfig(found)
		if err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", found, err)
		}
		slog.Info("config loaded after setup", "path", found)
		return cfg, nil
	}
	return nil, fmt.Errorf("setup completed but no config.yaml was found")
}
