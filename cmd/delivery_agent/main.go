// Package main provides the entry point for the license delivery agent.
package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "delivery_agent",
	Short: "License data delivery agent",
	Long: `delivery_agent finds license delivery tickets in Jira, uploads each customer's
data file to the SFTP server, emails the customer the delivery details and
records every step back on the ticket.`,
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
