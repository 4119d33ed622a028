package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/license-delivery/internal/config"
	"github.com/jonathan/license-delivery/internal/naming"
)

var normalizeCommand = &cobra.Command{
	Use:   "normalize <summary>",
	Short: "Show the customer name derived from a ticket summary",
	Long: `Tokenizes a parent ticket summary the way the run does and prints the tokens
and the canonical customer name. Naming rules come from --config when given,
otherwise the built-in rules apply.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runNormalizeCmd,
}

var normalizeConfigPath string

func init() {
	normalizeCommand.Flags().StringVar(&normalizeConfigPath, "config", "", "Config file supplying naming rules (optional)")

	rootCmd.AddCommand(normalizeCommand)
}

func runNormalizeCmd(cmd *cobra.Command, args []string) error {
	rules := naming.DefaultRules()
	if normalizeConfigPath != "" {
		loaded, err := config.LoadConfig(normalizeConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		merged := loaded.MergeWithDefaults(config.Defaults())
		rules = merged.Naming
	}

	summary := strings.Join(args, " ")
	tokens := naming.Tokenize(summary)

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Tokens: [%s]\n", strings.Join(tokens, ", "))

	name, err := naming.Normalize(tokens, rules)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Name:   %s\n", name)
	return nil
}
