package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/license-delivery/internal/config"
	"github.com/jonathan/license-delivery/internal/housekeeping"
)

var purgeLogsCommand = &cobra.Command{
	Use:   "purge-logs",
	Short: "Delete run logs older than the retention period",
	RunE:  runPurgeLogsCmd,
}

var (
	purgeConfigPath string
	purgeDays       int
)

func init() {
	purgeLogsCommand.Flags().StringVar(&purgeConfigPath, "config", "", "Path to config file")
	purgeLogsCommand.Flags().IntVar(&purgeDays, "days", 0, "Retention in days (overrides log.retention_days)")
	_ = purgeLogsCommand.MarkFlagRequired("config")

	rootCmd.AddCommand(purgeLogsCommand)
}

func runPurgeLogsCmd(cmd *cobra.Command, _ []string) error {
	// Only the log section matters here, so skip run validation.
	loaded, err := config.LoadConfig(purgeConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := loaded.MergeWithDefaults(config.Defaults())

	retention := cfg.Log.Retention()
	if cmd.Flags().Changed("days") {
		if purgeDays < 0 {
			return fmt.Errorf("--days must not be negative")
		}
		retention = time.Duration(purgeDays) * 24 * time.Hour
	}

	removed, err := housekeeping.PurgeLogs(cfg.Log.Dir, retention, time.Now())
	out := cmd.OutOrStdout()
	for _, path := range removed {
		_, _ = fmt.Fprintf(out, "removed %s\n", path)
	}
	_, _ = fmt.Fprintf(out, "%d log files removed from %s\n", len(removed), cfg.Log.Dir)
	return err
}
