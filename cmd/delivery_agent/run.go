package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/license-delivery/internal/accounts"
	"github.com/jonathan/license-delivery/internal/clock"
	"github.com/jonathan/license-delivery/internal/config"
	"github.com/jonathan/license-delivery/internal/db"
	"github.com/jonathan/license-delivery/internal/housekeeping"
	"github.com/jonathan/license-delivery/internal/notify"
	"github.com/jonathan/license-delivery/internal/observability"
	"github.com/jonathan/license-delivery/internal/pipeline"
	"github.com/jonathan/license-delivery/internal/tracker"
	"github.com/jonathan/license-delivery/internal/transfer"
	"github.com/jonathan/license-delivery/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run one delivery cycle",
	Long: `Discovers delivery tickets, enriches them from the account spreadsheet, then runs
the transfer phase (SFTP upload + ticket update) and/or the notification phase
(customer email + ticket update) depending on --mode.

A run is recorded per day; a second run on the same day exits without doing
anything unless --force is given.`,
	RunE: runDeliveryCmd,
}

var (
	runConfigPath string
	runMode       string
	runForce      bool
	runConsole    bool
	runVerbose    bool
)

func init() {
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config file (.json, .yaml or .yml)")
	runCommand.Flags().StringVarP(&runMode, "mode", "m", "", "Run mode: transfer|notification|both or 1|2|3 (overrides config)")
	runCommand.Flags().BoolVar(&runForce, "force", false, "Run even if a run was already recorded today")
	runCommand.Flags().BoolVar(&runConsole, "console", false, "Also write log entries to stderr")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Debug logging and a run summary on stdout")

	rootCmd.AddCommand(runCommand)
}

func runDeliveryCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(runConfigPath, func(c *config.Config) {
		if cmd.Flags().Changed("mode") {
			c.Mode = runMode
		}
	})
	if err != nil {
		return err
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	now := time.Now().In(loc)

	// Step 1: One run per day
	guard, closeGuard, err := newGuard(ctx, cfg, runForce)
	if err != nil {
		return err
	}
	defer func() { _ = closeGuard() }()

	if err := guard.Acquire(ctx, now); err != nil {
		var ranErr *housekeeping.AlreadyRanError
		if errors.As(err, &ranErr) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Skipping: %v. Use --force to run again.\n", ranErr)
			return nil
		}
		return err
	}

	// Step 2: Logger
	level := cfg.Log.Level
	if runVerbose {
		level = "debug"
	}
	var console io.Writer
	if runConsole {
		console = cmd.ErrOrStderr()
	}
	logger, closeLog, err := observability.NewLogger(observability.LoggerOptions{
		Path:    housekeeping.LogPath(cfg.Log.Dir, cfg.Log.AppName, now),
		Level:   level,
		Console: console,
	})
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	// Step 3: Gateways
	deps, closeDeps, err := buildDependencies(cfg, logger)
	if err != nil {
		logger.Error("failed to initialise gateways", zap.Error(err))
		return err
	}
	defer closeDeps()

	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	if runVerbose {
		out := cmd.OutOrStdout()
		opts.OnProgress = func(e pipeline.ProgressEvent) {
			if e.TicketKey != "" {
				_, _ = fmt.Fprintf(out, "  [%s] %s %s %s\n", e.Phase, e.TicketKey, e.Status, e.Message)
				return
			}
			_, _ = fmt.Fprintf(out, "→ %s\n", e.Message)
		}
	}

	p, err := pipeline.New(opts, deps)
	if err != nil {
		return err
	}

	// Step 4: Run
	summary, runErr := p.Run(ctx)

	// Step 5: Report
	recordRun(ctx, cfg, logger, summary, runErr)
	if runVerbose {
		printer := observability.NewPrinter(cmd.OutOrStdout())
		printer.PrintRunSummary(summary)
		printer.PrintFailures(summary)
	}

	// Step 6: Housekeeping
	removed, err := housekeeping.PurgeLogs(cfg.Log.Dir, cfg.Log.Retention(), now)
	if err != nil {
		logger.Warn("log purge incomplete", zap.Error(err))
	}
	if len(removed) > 0 {
		logger.Info("purged old logs", zap.Int("count", len(removed)))
	}

	if runErr != nil {
		return fmt.Errorf("delivery run failed: %w", runErr)
	}
	return nil
}

// newGuard prefers the shared Redis marker when REDIS_ADDR is configured.
func newGuard(ctx context.Context, cfg *config.Config, force bool) (housekeeping.Guard, func() error, error) {
	if cfg.RedisAddr != "" {
		g, closeFn, err := housekeeping.NewRedisGuard(ctx, cfg.RedisAddr, cfg.Log.AppName, nil)
		if err != nil {
			return nil, nil, err
		}
		g.Force = force
		return g, closeFn, nil
	}
	return housekeeping.FileGuard{Dir: cfg.Log.Dir, AppName: cfg.Log.AppName, Force: force}, func() error { return nil }, nil
}

// buildDependencies opens the gateways the configured mode needs.
func buildDependencies(cfg *config.Config, logger *zap.Logger) (pipeline.Dependencies, func(), error) {
	mode, err := cfg.RunMode()
	if err != nil {
		return pipeline.Dependencies{}, nil, err
	}

	jiraClient, err := tracker.NewJiraClient(tracker.JiraOptions{
		BaseURL:        cfg.Jira.URL,
		User:           cfg.Jira.User,
		Token:          cfg.Jira.Token,
		StartDateField: cfg.Jira.StartDateField,
		EndDateField:   cfg.Jira.EndDateField,
		PageSize:       cfg.Jira.PageSize,
		Logger:         logger,
	})
	if err != nil {
		return pipeline.Dependencies{}, nil, err
	}

	workbook, err := accounts.OpenDir(cfg.Spreadsheet.Dir, cfg.Spreadsheet.Sheet, accounts.Columns{
		Key:            cfg.Spreadsheet.KeyColumn,
		MarketID:       cfg.Spreadsheet.MarketIDColumn,
		BeaconID:       cfg.Spreadsheet.BeaconIDColumn,
		DataContractID: cfg.Spreadsheet.DataContractIDColumn,
	})
	if err != nil {
		_ = jiraClient.Close()
		return pipeline.Dependencies{}, nil, err
	}
	logger.Info("account workbook opened", zap.String("path", workbook.Path()))

	deps := pipeline.Dependencies{
		Tracker:  jiraClient,
		Accounts: workbook,
		Clock:    clock.Real(),
		Logger:   logger,
	}
	if mode.IncludesTransfer() {
		deps.Dialer = &transfer.SFTPDialer{Logger: logger}
	}
	if mode.IncludesNotification() {
		deps.Mailer = notify.NewSMTPMailer(notify.SMTPOptions{
			Host:      cfg.Email.Host,
			Port:      cfg.Email.Port,
			TLSPolicy: cfg.Email.TLS,
			Username:  cfg.Email.Username,
			Password:  cfg.Email.Password,
			Timeout:   cfg.Email.Timeout(),
			Logger:    logger,
		})
	}

	closeFn := func() {
		if err := workbook.Close(); err != nil {
			logger.Warn("failed to close workbook", zap.Error(err))
		}
	}
	return deps, closeFn, nil
}

// recordRun writes the run to the ledger and pushes metrics when configured.
// Failures are logged; they never change the run's result.
func recordRun(ctx context.Context, cfg *config.Config, logger *zap.Logger, summary *types.RunSummary, runErr error) {
	if summary == nil {
		return
	}
	// Reporting must finish even if the run was interrupted.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if cfg.DatabaseURL != "" {
		if err := saveToLedger(ctx, cfg.DatabaseURL, logger, summary, runErr); err != nil {
			logger.Warn("failed to record run in ledger", zap.Error(err))
		}
	}

	if cfg.PushgatewayURL != "" {
		m := observability.NewRunMetrics()
		m.Observe(summary)
		if err := m.Push(ctx, cfg.PushgatewayURL, cfg.Log.AppName); err != nil {
			logger.Warn("failed to push run metrics", zap.Error(err))
		}
	}
}

func saveToLedger(ctx context.Context, url string, logger *zap.Logger, summary *types.RunSummary, runErr error) error {
	ledger, err := db.Connect(ctx, url)
	if err != nil {
		return err
	}
	defer ledger.Close()

	if err := ledger.EnsureSchema(ctx, logger); err != nil {
		return err
	}
	return ledger.SaveSummary(ctx, summary, runErr)
}
