package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	zetsubou "github.com/zetsubou-life/zetsubou-go"
)

// CLI flags for tools run
var (
	toolsRunFiles   []string
	toolsRunAudio   []string
	toolsRunOptions []string
	toolsRunWait    bool
	toolsRunBatch   bool
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Browse and run processing tools",
	Long: `Browse the tool catalog and run tools on your files.

The catalog is served by the API and varies by account tier; 'tools list'
shows which tools your key can use.

Examples:
  zetsubou tools list
  zetsubou tools show upscaler
  zetsubou tools run upscaler -f photo.png -o scale=4 --wait
  zetsubou tools run vocal-remover -f track1.wav -f track2.wav --batch`,
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available tools",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		tools, err := client.Tools.List(ctx)
		if err != nil {
			return err
		}
		fmt.Print(formatToolsListOutput(tools, jsonOutput(cfg)))
		return nil
	},
}

var toolsShowCmd = &cobra.Command{
	Use:   "show <tool-id>",
	Short: "Show one tool's details and options",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		tool, err := client.Tools.Get(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Print(formatToolOutput(tool, jsonOutput(cfg)))
		return nil
	},
}

var toolsRunCmd = &cobra.Command{
	Use:   "run <tool-id>",
	Short: "Run a tool on local files",
	Long: `Run a tool on one or more local files.

Files upload as part of the request; the server queues a job and returns
its ID. With --wait the command polls until the job finishes and reports
the outcome. Tool options are passed as repeated -o key=value flags and
checked against the tool's option schema before upload.

Examples:
  zetsubou tools run upscaler -f photo.png -o scale=4
  zetsubou tools run video-render -f clip.mp4 --audio track.wav --wait
  zetsubou tools run vocal-remover -f a.wav -f b.wav --batch --wait`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runToolsRun(cmd, args[0])
	},
}

func init() {
	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsShowCmd)
	toolsCmd.AddCommand(toolsRunCmd)

	toolsRunCmd.Flags().StringSliceVarP(&toolsRunFiles, "file", "f", nil, "Input file (repeatable)")
	toolsRunCmd.Flags().StringSliceVar(&toolsRunAudio, "audio", nil, "Audio input file for video tools (repeatable)")
	toolsRunCmd.Flags().StringSliceVarP(&toolsRunOptions, "option", "o", nil, "Tool option as key=value (repeatable)")
	toolsRunCmd.Flags().BoolVar(&toolsRunWait, "wait", false, "Poll until the job finishes")
	toolsRunCmd.Flags().BoolVar(&toolsRunBatch, "batch", false, "Batch mode: one job over all files")
}

func runToolsRun(cmd *cobra.Command, toolID string) error {
	client, cfg, err := loadClient()
	if err != nil {
		return err
	}
	if len(toolsRunFiles) == 0 {
		return fmt.Errorf("at least one -f file is required")
	}

	options, err := parseOptionFlags(toolsRunOptions)
	if err != nil {
		return err
	}

	files, err := readFileInputs(toolsRunFiles)
	if err != nil {
		return err
	}
	audio, err := readFileInputs(toolsRunAudio)
	if err != nil {
		return err
	}

	baseCtx := cmd.Context()

	// Fetch the schema so bad options fail before any upload.
	getCtx, cancel := opContext(baseCtx, cfg)
	tool, err := client.Tools.Get(getCtx, toolID)
	cancel()
	if err != nil {
		return err
	}

	opts := zetsubou.ExecuteOptions{
		Files:           files,
		AudioFiles:      audio,
		Options:         options,
		ValidateAgainst: tool,
	}

	execCtx, cancel := opContext(baseCtx, cfg)
	defer cancel()

	var job *zetsubou.Job
	if toolsRunBatch {
		job, err = client.Tools.BatchExecute(execCtx, toolID, opts)
	} else {
		job, err = client.Tools.Execute(execCtx, toolID, opts)
	}
	if err != nil {
		return err
	}

	if !toolsRunWait {
		if jsonOutput(cfg) {
			printJSON(job)
			return nil
		}
		fmt.Printf("Job %s queued\n", job.ID)
		fmt.Printf("Track it with: zetsubou jobs wait %s\n", job.ID)
		return nil
	}

	done, err := waitPrintingProgress(baseCtx, client, job.ID, zetsubou.PollConfig{})
	if err != nil {
		return err
	}
	fmt.Print(formatJobOutput(done, jsonOutput(cfg)))
	return nil
}

// waitPrintingProgress polls a job to completion, noting the wait on stderr
// so stdout stays clean for the result.
func waitPrintingProgress(ctx context.Context, client *zetsubou.Client, jobID string, cfg zetsubou.PollConfig) (*zetsubou.Job, error) {
	fmt.Fprintf(os.Stderr, "Waiting for job %s...\n", jobID)
	return client.Jobs.WaitForCompletion(ctx, jobID, cfg)
}

// parseOptionFlags turns repeated key=value flags into an options map.
// Values parse as bool or number when they look like one, else string.
func parseOptionFlags(flags []string) (map[string]any, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	options := make(map[string]any, len(flags))
	for _, kv := range flags {
		key, value, found := strings.Cut(kv, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("option %q must be key=value", kv)
		}
		options[key] = coerceOptionValue(value)
	}
	return options, nil
}

func coerceOptionValue(value string) any {
	switch value {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return n
	}
	return value
}

// readFileInputs buffers local files for upload.
func readFileInputs(paths []string) ([]zetsubou.FileInput, error) {
	var files []zetsubou.FileInput
	for _, path := range paths {
		file, err := zetsubou.FileFromPath(path)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

// formatToolsListOutput formats the tool catalog for display.
func formatToolsListOutput(tools []zetsubou.Tool, asJSON bool) string {
	if asJSON {
		return marshalJSONOrFallback(tools)
	}

	if len(tools) == 0 {
		return "No tools available\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("TOOLS: %d available\n\n", len(tools)))

	byCategory := map[string][]zetsubou.Tool{}
	var categories []string
	for _, tool := range tools {
		if _, seen := byCategory[tool.Category]; !seen {
			categories = append(categories, tool.Category)
		}
		byCategory[tool.Category] = append(byCategory[tool.Category], tool)
	}

	for _, category := range categories {
		sb.WriteString(fmt.Sprintf("%s:\n", strings.ToUpper(category)))
		for _, tool := range byCategory[category] {
			marker := " "
			if !tool.Accessible {
				marker = "*"
			}
			sb.WriteString(fmt.Sprintf(" %s %s - %s\n", marker, tool.ID, truncate(tool.Description, 60)))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Tools marked * need a higher tier.\n")

	return sb.String()
}

// formatToolOutput formats one tool's details for display.
func formatToolOutput(tool *zetsubou.Tool, asJSON bool) string {
	if asJSON {
		return marshalJSONOrFallback(tool)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s (%s)\n", tool.Name, tool.ID))
	if tool.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n", tool.Description))
	}
	sb.WriteString(fmt.Sprintf("\nCategory: %s\n", tool.Category))
	sb.WriteString(fmt.Sprintf("Input: %s -> %s\n", tool.InputType, tool.OutputType))
	sb.WriteString(fmt.Sprintf("Tier: %s", tool.RequiredTier))
	if !tool.Accessible {
		sb.WriteString(" (not available on your tier)")
	}
	sb.WriteString("\n")
	if tool.SupportsBatch {
		sb.WriteString("Supports: batch mode\n")
	}
	if tool.SupportsAudio {
		sb.WriteString("Supports: audio inputs\n")
	}

	if len(tool.Options) > 0 {
		sb.WriteString("\nOptions:\n")
		for name, spec := range tool.Options {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", name, describeOptionSpec(spec)))
		}
	}

	return sb.String()
}

// describeOptionSpec renders one option schema entry as a short hint.
func describeOptionSpec(spec any) string {
	m, ok := spec.(map[string]any)
	if !ok {
		return fmt.Sprintf("%v", spec)
	}

	var parts []string
	if t, ok := m["type"].(string); ok {
		parts = append(parts, t)
	}
	if values, ok := m["values"].([]any); ok {
		var opts []string
		for _, v := range values {
			opts = append(opts, fmt.Sprintf("%v", v))
		}
		parts = append(parts, "one of "+strings.Join(opts, ", "))
	}
	if def, ok := m["default"]; ok {
		parts = append(parts, fmt.Sprintf("default %v", def))
	}
	if req, ok := m["required"].(bool); ok && req {
		parts = append(parts, "required")
	}
	if len(parts) == 0 {
		return "see docs"
	}
	return strings.Join(parts, ", ")
}
