package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	zetsubou "github.com/zetsubou-life/zetsubou-go"
)

// CLI flags for chat subcommands
var (
	chatNewModel     string
	chatExportFormat string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the hosted chat models",
	Long: `Talk to the hosted chat models.

Conversations persist server-side; each one is tied to a single model.

Examples:
  zetsubou chat new "Trip planning" --model mistral
  zetsubou chat send 8 "What should I pack for Kyoto in May?"
  zetsubou chat export 8 --format md > trip.md`,
}

var chatListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your conversations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		convs, err := client.Chat.ListConversations(ctx, 0, 0)
		if err != nil {
			return err
		}
		fmt.Print(formatConversationsOutput(convs, jsonOutput(cfg)))
		return nil
	},
}

var chatNewCmd = &cobra.Command{
	Use:   "new <title>",
	Short: "Start a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		conv, err := client.Chat.CreateConversation(ctx, zetsubou.CreateConversationRequest{
			Title: args[0],
			Model: chatNewModel,
		})
		if err != nil {
			return err
		}
		if jsonOutput(cfg) {
			printJSON(conv)
			return nil
		}
		fmt.Printf("Conversation %d created (%s)\n", conv.ID, conv.Model)
		fmt.Printf("Send a message with: zetsubou chat send %d \"...\"\n", conv.ID)
		return nil
	},
}

var chatSendCmd = &cobra.Command{
	Use:   "send <conversation-id> <message>",
	Short: "Send a message and print the reply",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		convID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("conversation id must be a number, got %q", args[0])
		}

		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		reply, err := client.Chat.SendMessage(ctx, convID, args[1])
		if err != nil {
			return err
		}
		if jsonOutput(cfg) {
			printJSON(reply)
			return nil
		}
		fmt.Println(reply.Content)
		return nil
	},
}

var chatHistoryCmd = &cobra.Command{
	Use:   "history <conversation-id>",
	Short: "Print a conversation's messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		convID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("conversation id must be a number, got %q", args[0])
		}

		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		msgs, err := client.Chat.Messages(ctx, convID)
		if err != nil {
			return err
		}
		fmt.Print(formatMessagesOutput(msgs, jsonOutput(cfg)))
		return nil
	},
}

var chatExportCmd = &cobra.Command{
	Use:   "export <conversation-id>",
	Short: "Export a conversation to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		convID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("conversation id must be a number, got %q", args[0])
		}

		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		data, err := client.Chat.Export(ctx, convID, chatExportFormat)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		if len(data) > 0 && data[len(data)-1] != '\n' {
			fmt.Println()
		}
		return nil
	},
}

var chatDeleteCmd = &cobra.Command{
	Use:   "delete <conversation-id>",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		convID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("conversation id must be a number, got %q", args[0])
		}

		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		if err := client.Chat.DeleteConversation(ctx, convID); err != nil {
			return err
		}
		fmt.Printf("Conversation %d deleted\n", convID)
		return nil
	},
}

func init() {
	chatCmd.AddCommand(chatListCmd)
	chatCmd.AddCommand(chatNewCmd)
	chatCmd.AddCommand(chatSendCmd)
	chatCmd.AddCommand(chatHistoryCmd)
	chatCmd.AddCommand(chatExportCmd)
	chatCmd.AddCommand(chatDeleteCmd)

	chatNewCmd.Flags().StringVar(&chatNewModel, "model", "", "Model to chat with (default "+zetsubou.DefaultChatModel+")")
	chatExportCmd.Flags().StringVar(&chatExportFormat, "format", zetsubou.ExportFormatJSON, "Export format: json or md")
}

// formatConversationsOutput formats a conversation listing for display.
func formatConversationsOutput(convs []zetsubou.ChatConversation, asJSON bool) string {
	if asJSON {
		return marshalJSONOrFallback(convs)
	}

	if len(convs) == 0 {
		return "No conversations\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("CONVERSATIONS: %d\n\n", len(convs)))
	for _, conv := range convs {
		sb.WriteString(fmt.Sprintf("  #%d  %s (%s, %d messages) — %s\n",
			conv.ID, conv.Title, conv.Model, conv.MessageCount, formatTimeAgo(conv.UpdatedAt)))
	}
	return sb.String()
}

// formatMessagesOutput formats a message history for display.
func formatMessagesOutput(msgs []zetsubou.ChatMessage, asJSON bool) string {
	if asJSON {
		return marshalJSONOrFallback(msgs)
	}

	if len(msgs) == 0 {
		return "No messages\n"
	}

	var sb strings.Builder
	for _, msg := range msgs {
		sb.WriteString(fmt.Sprintf("[%s] %s\n", msg.Role, msg.Content))
	}
	return sb.String()
}
