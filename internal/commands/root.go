// Package commands implements the zetsubou CLI commands.
package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zetsubou-life/zetsubou-go/internal/config"
)

// SetVersionInfo sets version information from main (populated by goreleaser).
func SetVersionInfo(version, commit, date string) {
	rootCmd.Version = version
	if commit != "" && commit != "none" {
		rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
}

// Persistent flags, shared by every command.
var (
	flagConfig  string
	flagJSON    bool
	flagTimeout int
)

var rootCmd = &cobra.Command{
	Use:   "zetsubou",
	Short: "Command line client for the Zetsubou.life API",
	Long: `Command line client for the Zetsubou.life creative platform.

Run processing tools, manage jobs and files, chat with local models,
and administer webhooks and API keys from the terminal.

Getting started:
  zetsubou init                    - Save your API key to ~/.zetsubou.yaml
  zetsubou tools list              - See what tools are available
  zetsubou tools run upscaler -f photo.png --wait

Configuration sources (later wins):
  ~/.zetsubou.yaml                 - Created by 'zetsubou init'
  .env                             - Loaded best-effort from the working directory
  ZETSUBOU_API_KEY / ZETSUBOU_BASE_URL environment variables
  --config / --timeout flags`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env before reading the environment, so env overlays see it.
		_ = godotenv.Load()
		if flagConfig != "" {
			config.SetPath(flagConfig)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file (default ~/.zetsubou.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().IntVar(&flagTimeout, "timeout", 0, "Request timeout in seconds (overrides config)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(webhooksCmd)
	rootCmd.AddCommand(accountCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
