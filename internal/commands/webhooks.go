package commands

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	zetsubou "github.com/zetsubou-life/zetsubou-go"
)

var (
	webhooksCreateEvents []string
	webhooksCreateSecret string
)

var webhooksCmd = &cobra.Command{
	Use:   "webhooks",
	Short: "Manage event webhooks",
	Long: `Manage event webhooks.

Webhooks deliver a signed POST to your URL when subscribed events fire.
Run 'zetsubou webhooks events' to see what you can subscribe to.

Examples:
  zetsubou webhooks create https://example.com/hook --events job.completed,job.failed
  zetsubou webhooks test 3`,
}

var webhooksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your webhooks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		hooks, err := client.Webhooks.List(ctx)
		if err != nil {
			return err
		}
		fmt.Print(formatWebhooksOutput(hooks, jsonOutput(cfg)))
		return nil
	},
}

var webhooksCreateCmd = &cobra.Command{
	Use:   "create <url>",
	Short: "Register a webhook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(webhooksCreateEvents) == 0 {
			return fmt.Errorf("pass --events with at least one event (see 'zetsubou webhooks events')")
		}

		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		hook, err := client.Webhooks.Create(ctx, zetsubou.CreateWebhookRequest{
			URL:    args[0],
			Events: webhooksCreateEvents,
			Secret: webhooksCreateSecret,
		})
		if err != nil {
			return err
		}
		if jsonOutput(cfg) {
			printJSON(hook)
			return nil
		}
		fmt.Printf("Webhook %d created for %s\n", hook.ID, hook.URL)
		fmt.Printf("Events: %s\n", strings.Join(hook.Events, ", "))
		return nil
	},
}

var webhooksDeleteCmd = &cobra.Command{
	Use:   "delete <webhook-id>",
	Short: "Delete a webhook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hookID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("webhook id must be a number, got %q", args[0])
		}

		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		if err := client.Webhooks.Delete(ctx, hookID); err != nil {
			return err
		}
		fmt.Printf("Webhook %d deleted\n", hookID)
		return nil
	},
}

var webhooksTestCmd = &cobra.Command{
	Use:   "test <webhook-id>",
	Short: "Fire a test delivery",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hookID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("webhook id must be a number, got %q", args[0])
		}

		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		result, err := client.Webhooks.Test(ctx, hookID)
		if err != nil {
			return err
		}
		if jsonOutput(cfg) {
			printJSON(result)
			return nil
		}
		if result.Success {
			fmt.Printf("Delivered: HTTP %d in %dms\n", result.StatusCode, result.DurationMS)
		} else {
			fmt.Printf("Delivery failed: HTTP %d in %dms\n", result.StatusCode, result.DurationMS)
			if result.Error != "" {
				fmt.Printf("  %s\n", result.Error)
			}
		}
		return nil
	},
}

var webhooksEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List subscribable events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		events, err := client.Webhooks.AvailableEvents(ctx)
		if err != nil {
			return err
		}
		if jsonOutput(cfg) {
			printJSON(events)
			return nil
		}

		names := make([]string, 0, len(events))
		for name := range events {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Printf("EVENTS: %d available\n\n", len(names))
		for _, name := range names {
			fmt.Printf("  %-24s %s\n", name, events[name])
		}
		return nil
	},
}

func init() {
	webhooksCmd.AddCommand(webhooksListCmd)
	webhooksCmd.AddCommand(webhooksCreateCmd)
	webhooksCmd.AddCommand(webhooksDeleteCmd)
	webhooksCmd.AddCommand(webhooksTestCmd)
	webhooksCmd.AddCommand(webhooksEventsCmd)

	webhooksCreateCmd.Flags().StringSliceVar(&webhooksCreateEvents, "events", nil, "Events to subscribe to (comma-separated)")
	webhooksCreateCmd.Flags().StringVar(&webhooksCreateSecret, "secret", "", "Signing secret for delivery verification")
}

// formatWebhooksOutput formats a webhook listing for display.
func formatWebhooksOutput(hooks []zetsubou.Webhook, asJSON bool) string {
	if asJSON {
		return marshalJSONOrFallback(hooks)
	}

	if len(hooks) == 0 {
		return "No webhooks\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("WEBHOOKS: %d\n\n", len(hooks)))
	for _, hook := range hooks {
		state := "enabled"
		if !hook.Enabled {
			state = "disabled"
		}
		sb.WriteString(fmt.Sprintf("  #%d  %s (%s)\n", hook.ID, hook.URL, state))
		sb.WriteString(fmt.Sprintf("      events: %s\n", strings.Join(hook.Events, ", ")))
		sb.WriteString(fmt.Sprintf("      deliveries: %d ok, %d failed\n", hook.SuccessCount, hook.FailureCount))
	}
	return sb.String()
}
