package commands

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	zetsubou "github.com/zetsubou-life/zetsubou-go"
)

// CLI flags for account subcommands
var (
	accountUsagePeriod string
	accountUsageTool   string

	keysCreateExpires string
	keysCreateScopes  []string
	keysCreateBypass  bool
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Inspect your account, quota, and API keys",
}

var accountInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show account details",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		acct, err := client.Account.Get(ctx)
		if err != nil {
			return err
		}
		if jsonOutput(cfg) {
			printJSON(acct)
			return nil
		}
		fmt.Printf("%s (%s)\n", acct.Username, acct.Email)
		fmt.Printf("  tier: %s\n", acct.Tier)
		if !acct.CreatedAt.IsZero() {
			fmt.Printf("  member since: %s\n", acct.CreatedAt.Format("2006-01-02"))
		}
		return nil
	},
}

var accountQuotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show storage usage against your quota",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		quota, err := client.Account.StorageQuota(ctx)
		if err != nil {
			return err
		}
		if jsonOutput(cfg) {
			printJSON(quota)
			return nil
		}
		fmt.Printf("Storage: %s of %s (%.1f%%)\n",
			formatBytes(quota.UsedBytes), formatBytes(quota.QuotaBytes), quota.UsagePercent)
		fmt.Printf("  files: %d, folders: %d\n", quota.FileCount, quota.FolderCount)
		if quota.NearQuota() {
			fmt.Println("  warning: storage is nearly full")
		}
		return nil
	},
}

var accountUsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show job usage statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		stats, err := client.Account.UsageStats(ctx, zetsubou.UsageStatsOptions{
			Period: accountUsagePeriod,
			ToolID: accountUsageTool,
		})
		if err != nil {
			return err
		}
		fmt.Print(formatUsageOutput(stats, jsonOutput(cfg)))
		return nil
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your API keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		keys, err := client.Account.ListAPIKeys(ctx)
		if err != nil {
			return err
		}
		fmt.Print(formatAPIKeysOutput(keys, jsonOutput(cfg)))
		return nil
	},
}

var keysCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Issue a new API key",
	Long: `Issue a new API key.

The secret is printed once and never shown again. Store it somewhere
safe before closing the terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		key, err := client.Account.CreateAPIKey(ctx, zetsubou.CreateAPIKeyRequest{
			Name:        args[0],
			Scopes:      keysCreateScopes,
			ExpiresAt:   keysCreateExpires,
			DriveBypass: keysCreateBypass,
		})
		if err != nil {
			return err
		}
		if jsonOutput(cfg) {
			printJSON(key)
			return nil
		}
		fmt.Printf("Key %q created (id %d)\n", key.Name, key.ID)
		fmt.Printf("\n  %s\n\n", key.Key)
		fmt.Println("This secret will not be shown again.")
		return nil
	},
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete <key-id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("key id must be a number, got %q", args[0])
		}

		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		if err := client.Account.DeleteAPIKey(ctx, keyID); err != nil {
			return err
		}
		fmt.Printf("Key %d revoked\n", keyID)
		return nil
	},
}

func init() {
	accountCmd.AddCommand(accountInfoCmd)
	accountCmd.AddCommand(accountQuotaCmd)
	accountCmd.AddCommand(accountUsageCmd)
	accountCmd.AddCommand(keysCmd)

	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysCreateCmd)
	keysCmd.AddCommand(keysDeleteCmd)

	accountUsageCmd.Flags().StringVar(&accountUsagePeriod, "period", "", "Usage window: 7d, 30d, 90d, or 1y (default 30d)")
	accountUsageCmd.Flags().StringVar(&accountUsageTool, "tool", "", "Restrict to one tool id")

	keysCreateCmd.Flags().StringVar(&keysCreateExpires, "expires", "", "Expiry date like 2026-12-01 (empty = never)")
	keysCreateCmd.Flags().StringSliceVar(&keysCreateScopes, "scopes", nil, "Scopes to grant (comma-separated)")
	keysCreateCmd.Flags().BoolVar(&keysCreateBypass, "drive-bypass", false, "Allow reads without the drive encryption handshake")
}

// formatUsageOutput formats usage statistics for display.
func formatUsageOutput(stats *zetsubou.UsageStats, asJSON bool) string {
	if asJSON {
		return marshalJSONOrFallback(stats)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Usage over %s\n", stats.Period))
	sb.WriteString(fmt.Sprintf("  jobs: %d total, %d completed, %d failed\n",
		stats.TotalJobs, stats.CompletedJobs, stats.FailedJobs))
	if stats.ComputeSeconds > 0 {
		sb.WriteString(fmt.Sprintf("  compute: %.0fs\n", stats.ComputeSeconds))
	}
	if len(stats.ByTool) > 0 {
		tools := make([]string, 0, len(stats.ByTool))
		for tool := range stats.ByTool {
			tools = append(tools, tool)
		}
		sort.Strings(tools)

		sb.WriteString("\nBy tool:\n")
		for _, tool := range tools {
			sb.WriteString(fmt.Sprintf("  %s: %d\n", tool, stats.ByTool[tool]))
		}
	}
	return sb.String()
}

// formatAPIKeysOutput formats an API key listing for display.
func formatAPIKeysOutput(keys []zetsubou.APIKey, asJSON bool) string {
	if asJSON {
		return marshalJSONOrFallback(keys)
	}

	if len(keys) == 0 {
		return "No API keys\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("API KEYS: %d\n\n", len(keys)))
	for _, key := range keys {
		expiry := "never expires"
		if key.ExpiresAt != nil {
			expiry = "expires " + key.ExpiresAt.Format("2006-01-02")
		}
		sb.WriteString(fmt.Sprintf("  #%d  %s (%s) — created %s\n",
			key.ID, key.Name, expiry, formatTimeAgo(key.CreatedAt)))
	}
	return sb.String()
}
