package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/license-delivery/internal/config"
	"github.com/jonathan/license-delivery/internal/db"
)

var historyCommand = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded runs, or the ticket outcomes of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistoryCmd,
}

var (
	historyDatabaseURL string
	historyLimit       int
)

func init() {
	historyCommand.Flags().StringVar(&historyDatabaseURL, "db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL env var)")
	historyCommand.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to list")

	rootCmd.AddCommand(historyCommand)
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	url := historyDatabaseURL
	if url == "" {
		url = os.Getenv(config.EnvDatabaseURL)
	}
	if url == "" {
		return errors.New("no run ledger configured: pass --db-url or set " + config.EnvDatabaseURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ledger, err := db.Connect(ctx, url)
	if err != nil {
		return err
	}
	defer ledger.Close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	if len(args) == 1 {
		runID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}
		outcomes, err := ledger.ListOutcomes(ctx, runID)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, "PHASE\tPARENT\tCHILD\tSTATUS\tSTAGE\tERROR")
		for _, o := range outcomes {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				o.Phase, o.ParentKey, deref(o.ChildKey), o.Status, deref(o.Stage), deref(o.ErrorMessage))
		}
		return nil
	}

	runs, err := ledger.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, "RUN\tDATE\tMODE\tSTATUS\tDISCOVERED\tENRICHED")
	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			r.ID, r.RunDate.Format(time.DateOnly), r.Mode, r.Status, r.Discovered, r.Enriched)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
