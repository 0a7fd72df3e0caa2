package commands

import (
	"context"
	"fmt"
	"time"

	zetsubou "github.com/zetsubou-life/zetsubou-go"
	"github.com/zetsubou-life/zetsubou-go/internal/config"
)

// loadClient builds an API client from the resolved configuration.
func loadClient() (*zetsubou.Client, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	opts := []zetsubou.Option{zetsubou.WithTimeout(requestTimeout(cfg))}
	if cfg.BaseURL != "" {
		opts = append(opts, zetsubou.WithBaseURL(cfg.BaseURL))
	}

	client, err := zetsubou.New(cfg.APIKey, opts...)
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

// requestTimeout resolves the per-request timeout: --timeout flag wins over
// the config file.
func requestTimeout(cfg *config.Config) time.Duration {
	if flagTimeout > 0 {
		return time.Duration(flagTimeout) * time.Second
	}
	return cfg.Timeout()
}

// opContext bounds a single API operation. Long-running commands (wait,
// watch, download) manage their own deadlines and skip this.
func opContext(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, requestTimeout(cfg))
}

// jsonOutput reports whether this invocation should print JSON.
func jsonOutput(cfg *config.Config) bool {
	return flagJSON || cfg.JSONOutput()
}

// formatBytes formats a byte count for human display.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// formatTimeAgo formats a timestamp as "X ago" for human-friendly display.
// The zero time renders as "-".
func formatTimeAgo(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	d := time.Since(ts)
	if d < 0 {
		d = 0
	}
	secs := int(d.Seconds())
	if secs < 60 {
		return fmt.Sprintf("%ds ago", secs)
	}
	mins := secs / 60
	if mins < 60 {
		return fmt.Sprintf("%dm ago", mins)
	}
	hours := mins / 60
	if hours < 48 {
		return fmt.Sprintf("%dh ago", hours)
	}
	days := hours / 24
	return fmt.Sprintf("%dd ago", days)
}

// truncate shortens s to max runes with an ellipsis.
func truncate(s string, max int) string {
	if max <= 3 {
		max = 3
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
