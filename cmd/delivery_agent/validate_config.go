package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateConfigCommand = &cobra.Command{
	Use:   "validate-config",
	Short: "Check a config file against the schema and the run requirements",
	RunE:  runValidateConfigCmd,
}

var validateConfigPath string

func init() {
	validateConfigCommand.Flags().StringVar(&validateConfigPath, "config", "", "Path to config file")
	_ = validateConfigCommand.MarkFlagRequired("config")

	rootCmd.AddCommand(validateConfigCommand)
}

func runValidateConfigCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(validateConfigPath, nil)
	if err != nil {
		return err
	}

	mode, err := cfg.RunMode()
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid (mode: %s)\n", validateConfigPath, mode)
	return nil
}
