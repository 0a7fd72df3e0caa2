package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	zetsubou "github.com/zetsubou-life/zetsubou-go"
	"github.com/zetsubou-life/zetsubou-go/internal/config"
)

// CLI flags for jobs subcommands
var (
	jobsListStatus string
	jobsListTool   string
	jobsListLimit  int
	jobsListOffset int

	jobsWaitInterval int
	jobsWaitTimeout  int

	jobsDownloadOut string
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and manage processing jobs",
	Long: `Inspect and manage processing jobs.

Jobs are created by 'tools run' and processed asynchronously. Results
stay available for download until the job is deleted.

Examples:
  zetsubou jobs list --status running
  zetsubou jobs wait j-123 --timeout 600
  zetsubou jobs watch j-123
  zetsubou jobs download j-123 -o results.zip`,
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		jobs, err := client.Jobs.List(ctx, zetsubou.ListJobsOptions{
			Status: zetsubou.JobStatus(jobsListStatus),
			ToolID: jobsListTool,
			Limit:  jobsListLimit,
			Offset: jobsListOffset,
		})
		if err != nil {
			return err
		}
		fmt.Print(formatJobsListOutput(jobs, jsonOutput(cfg)))
		return nil
	},
}

var jobsGetCmd = &cobra.Command{
	Use:   "get <job-id>",
	Short: "Show one job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		job, err := client.Jobs.Get(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Print(formatJobOutput(job, jsonOutput(cfg)))
		return nil
	},
}

var jobsWaitCmd = &cobra.Command{
	Use:   "wait <job-id>",
	Short: "Block until a job finishes",
	Long: `Block until a job reaches a terminal state, then print it.

Polls with exponential backoff. A failed or cancelled job is still a
normal result here; the command only errors when the job cannot be
observed or the deadline passes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}

		poll := zetsubou.PollConfig{}
		if jobsWaitInterval > 0 {
			poll.Interval = time.Duration(jobsWaitInterval) * time.Second
		}
		if jobsWaitTimeout > 0 {
			poll.Timeout = time.Duration(jobsWaitTimeout) * time.Second
		}

		job, err := waitPrintingProgress(cmd.Context(), client, args[0], poll)
		if err != nil {
			return err
		}
		fmt.Print(formatJobOutput(job, jsonOutput(cfg)))
		return nil
	},
}

var jobsWatchCmd = &cobra.Command{
	Use:   "watch <job-id>",
	Short: "Stream a job's progress events",
	Long: `Stream a job's progress events over a server connection.

Falls back to polling when the event stream cannot be opened. Exits
when the job reaches a terminal state.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		return runJobsWatch(cmd.Context(), client, cfg, args[0])
	},
}

var jobsCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a queued or running job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		if err := client.Jobs.Cancel(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Job %s cancelled\n", args[0])
		return nil
	},
}

var jobsRetryCmd = &cobra.Command{
	Use:   "retry <job-id>",
	Short: "Re-run a failed job as a new job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		job, err := client.Jobs.Retry(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput(cfg) {
			printJSON(job)
			return nil
		}
		fmt.Printf("Retry queued as job %s\n", job.ID)
		return nil
	},
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <job-id>",
	Short: "Delete a job and its results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		if err := client.Jobs.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Job %s deleted\n", args[0])
		return nil
	},
}

var jobsDownloadCmd = &cobra.Command{
	Use:   "download <job-id>",
	Short: "Download a completed job's results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := loadClient()
		if err != nil {
			return err
		}

		out := jobsDownloadOut
		if out == "" {
			out = args[0] + ".zip"
		}
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", out, err)
		}
		defer f.Close()

		// No per-request timeout: large result sets take as long as
		// they take. Ctrl-C still cancels through the context.
		n, err := client.Jobs.DownloadResults(cmd.Context(), args[0], f)
		if err != nil {
			_ = os.Remove(out)
			return err
		}
		fmt.Printf("Wrote %s (%s)\n", out, formatBytes(n))
		return nil
	},
}

func init() {
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsGetCmd)
	jobsCmd.AddCommand(jobsWaitCmd)
	jobsCmd.AddCommand(jobsWatchCmd)
	jobsCmd.AddCommand(jobsCancelCmd)
	jobsCmd.AddCommand(jobsRetryCmd)
	jobsCmd.AddCommand(jobsDeleteCmd)
	jobsCmd.AddCommand(jobsDownloadCmd)

	jobsListCmd.Flags().StringVar(&jobsListStatus, "status", "", "Filter by status (queued/running/completed/failed/cancelled)")
	jobsListCmd.Flags().StringVar(&jobsListTool, "tool", "", "Filter by tool id")
	jobsListCmd.Flags().IntVar(&jobsListLimit, "limit", 0, "Page size (default 50)")
	jobsListCmd.Flags().IntVar(&jobsListOffset, "offset", 0, "Page offset")

	jobsWaitCmd.Flags().IntVar(&jobsWaitInterval, "interval", 0, "Initial poll interval in seconds")
	jobsWaitCmd.Flags().IntVar(&jobsWaitTimeout, "timeout", 0, "Overall wait deadline in seconds")

	jobsDownloadCmd.Flags().StringVarP(&jobsDownloadOut, "output", "o", "", "Output path (default <job-id>.zip)")
}

// runJobsWatch streams events, falling back to polling when the stream
// cannot be opened.
func runJobsWatch(ctx context.Context, client *zetsubou.Client, cfg *config.Config, jobID string) error {
	events, err := client.Jobs.Watch(ctx, jobID)
	if err != nil {
		if zetsubou.IsNotFound(err) || zetsubou.IsAuthentication(err) || zetsubou.IsValidation(err) {
			return err
		}
		fmt.Fprintf(os.Stderr, "Event stream unavailable (%v), polling instead\n", err)
		job, werr := waitPrintingProgress(ctx, client, jobID, zetsubou.PollConfig{})
		if werr != nil {
			return werr
		}
		fmt.Print(formatJobOutput(job, jsonOutput(cfg)))
		return nil
	}

	var last *zetsubou.Job
	for event := range events {
		if event.Job != nil {
			last = event.Job
			fmt.Printf("[%s] %s\n", event.Job.Status, describeJobProgress(event.Job))
			continue
		}
		fmt.Printf("[%s] %s\n", event.Type, truncate(event.Raw, 120))
	}

	// Stream closed. If we never saw a terminal snapshot, fetch the final
	// state so the exit output is authoritative.
	if last == nil || !last.Status.Terminal() {
		getCtx, cancel := opContext(ctx, cfg)
		defer cancel()
		job, err := client.Jobs.Get(getCtx, jobID)
		if err != nil {
			return err
		}
		last = job
	}
	fmt.Print(formatJobOutput(last, jsonOutput(cfg)))
	return nil
}

func describeJobProgress(job *zetsubou.Job) string {
	if job.Progress > 0 {
		return fmt.Sprintf("%d%%", job.Progress)
	}
	return "working"
}

// formatJobsListOutput formats a job listing for display.
func formatJobsListOutput(jobs []zetsubou.Job, asJSON bool) string {
	if asJSON {
		return marshalJSONOrFallback(jobs)
	}

	if len(jobs) == 0 {
		return "No jobs\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("JOBS: %d\n\n", len(jobs)))
	for _, job := range jobs {
		sb.WriteString(fmt.Sprintf("  %s  %-9s  %s — %s\n",
			job.ID, job.Status, job.ToolID, formatTimeAgo(job.CreatedAt)))
	}
	return sb.String()
}

// formatJobOutput formats one job for display.
func formatJobOutput(job *zetsubou.Job, asJSON bool) string {
	if asJSON {
		return marshalJSONOrFallback(job)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Job %s\n", job.ID))
	sb.WriteString(fmt.Sprintf("  tool: %s\n", job.ToolID))
	sb.WriteString(fmt.Sprintf("  status: %s\n", job.Status))
	if job.Progress > 0 && !job.Status.Terminal() {
		sb.WriteString(fmt.Sprintf("  progress: %d%%\n", job.Progress))
	}
	if job.Error != "" {
		sb.WriteString(fmt.Sprintf("  error: %s\n", job.Error))
	}
	if len(job.Outputs) > 0 {
		sb.WriteString(fmt.Sprintf("  outputs: %d file(s)\n", len(job.Outputs)))
		for _, out := range job.Outputs {
			sb.WriteString(fmt.Sprintf("    %s\n", out))
		}
	}
	if !job.CreatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("  created: %s\n", formatTimeAgo(job.CreatedAt)))
	}
	if job.Status == zetsubou.JobStatusCompleted {
		sb.WriteString(fmt.Sprintf("\nDownload with: zetsubou jobs download %s\n", job.ID))
	}
	return sb.String()
}
