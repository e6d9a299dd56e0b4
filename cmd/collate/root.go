package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/collate/internal/collate"
	"github.com/kingrea/collate/internal/config"
	"github.com/kingrea/collate/internal/examples"
	"github.com/kingrea/collate/internal/logbook"
	"github.com/kingrea/collate/internal/logging"
	"github.com/kingrea/collate/internal/metrics"
	"github.com/kingrea/collate/internal/session"
	"github.com/kingrea/collate/internal/tui"
)

var rootCmd = &cobra.Command{
	Use:   "collate",
	Short: "Compare witness texts with a collation engine",
	Long: `collate sends two or more witness texts to a collation engine and shows
the variant graph, alignment table, DOT, GraphML and TEI renderings side by side.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// Interrupts cancel the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("dir", ".", "Project directory holding .collate/")
	rootCmd.PersistentFlags().String("base-url", "", "Collation engine base URL (overrides config and COLLATE_BASE_URL)")
	rootCmd.Flags().Int("example", 0, "Load example N (1-based) on start and collate it")
}

// env is everything a command needs, built from flags and config.
type env struct {
	config  *config.Config
	logger  *logging.Logger
	logbook *logbook.Logbook
	session *session.Session
	metrics *metrics.Server
}

func bootstrap(cmd *cobra.Command) (*env, error) {
	dir, _ := cmd.Flags().GetString("dir")
	projectDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve project dir: %w", err)
	}
	if err := config.InitCollateDir(projectDir); err != nil {
		return nil, fmt.Errorf("initialize %s: %w", config.CollateDir, err)
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}
	if baseURL, _ := cmd.Flags().GetString("base-url"); baseURL != "" {
		if err := cfg.SetBaseURL(baseURL); err != nil {
			return nil, err
		}
	}

	logger, err := logging.New(cfg.LogsDir(), cfg.LogLevel())
	if err != nil {
		return nil, err
	}
	book, err := logbook.New(filepath.Join(cfg.LogsDir(), logbook.FileName))
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	presets, err := examples.Load(cfg.ExamplesPath())
	if err != nil {
		logger.Warn("examples unavailable, using built-in set", "path", cfg.ExamplesPath(), "error", err)
		presets = examples.Builtin()
	}
	client, err := collate.NewClient(cfg.BaseURL(), collate.WithTimeout(cfg.Timeout()))
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	recorder := metrics.NewRecorder()
	rt := &env{
		config:  cfg,
		logger:  logger,
		logbook: book,
		metrics: metrics.NewServer(metrics.SettingsFromConfig(cfg), recorder, metrics.WithLogger(logger)),
		session: session.New(cfg, client,
			session.WithLogger(logger),
			session.WithLogbook(book),
			session.WithObserver(recorder),
			session.WithPresets(presets),
		),
	}
	logger.Info("session opened", "project", projectDir, "endpoint", client.Endpoint())
	return rt, nil
}

// startMetrics serves /metrics when enabled; a disabled endpoint is not an error.
func (rt *env) startMetrics(ctx context.Context) {
	if err := rt.metrics.Start(ctx); err != nil {
		if !errors.Is(err, metrics.ErrDisabled) {
			rt.logger.Warn("metrics endpoint unavailable", "error", err)
		}
		return
	}
	rt.logbook.Info("metrics available at %s/metrics", rt.metrics.BaseURL())
}

func (rt *env) close() {
	_ = rt.metrics.Shutdown(context.Background())
	rt.logger.Info("session closed")
	_ = rt.logger.Close()
}

func runTUI(cmd *cobra.Command, _ []string) error {
	rt, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	rt.startMetrics(ctx)

	opts := []tui.AppOption{tui.WithContext(ctx)}
	if n, _ := cmd.Flags().GetInt("example"); n > 0 {
		if n > len(rt.session.Presets) {
			return fmt.Errorf("example %d does not exist (have %d)", n, len(rt.session.Presets))
		}
		opts = append(opts, tui.WithInitialPreset(n-1))
	}

	p := tea.NewProgram(tui.NewApp(rt.session, opts...), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run terminal UI: %w", err)
	}
	return nil
}
