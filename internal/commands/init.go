package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	zetsubou "github.com/zetsubou-life/zetsubou-go"
	"github.com/zetsubou-life/zetsubou-go/internal/config"
)

// CLI flags for init command
var (
	initAPIKey  string
	initBaseURL string
	initOutput  string
	initForce   bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Save your API key to the config file",
	Long: `Save your Zetsubou.life API key to ~/.zetsubou.yaml.

The key is verified against the API before anything is written.

Key sources (in priority order):
1. --api-key flag
2. ZETSUBOU_API_KEY environment variable (.env is honored)
3. Interactive prompt with echo disabled (TTY mode only)

Get an API key from your account page at https://zetsubou.life/account.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(cmd.Context())
	},
}

func init() {
	initCmd.Flags().StringVar(&initAPIKey, "api-key", "", "API key (ztb_live_... or ztb_test_...)")
	initCmd.Flags().StringVar(&initBaseURL, "base-url", "", "API base URL (default "+config.DefaultBaseURL+")")
	initCmd.Flags().StringVar(&initOutput, "output", "", "Default output format (text or json)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reconfigure even if a config file exists")
}

// isTTY returns true if stdin is a terminal.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func runInit(ctx context.Context) error {
	// Already initialized: print info and exit unless forced or given a key.
	if _, err := os.Stat(config.GetPath()); err == nil && !initForce && initAPIKey == "" {
		cfg, loadErr := config.Load()
		if loadErr != nil {
			return fmt.Errorf("loading existing config: %w", loadErr)
		}
		fmt.Printf("Already configured at %s\n", config.GetPath())
		fmt.Printf("  api_key: %s\n", maskKey(cfg.APIKey))
		if cfg.BaseURL != "" {
			fmt.Printf("  base_url: %s\n", cfg.BaseURL)
		}
		if cfg.Output != "" {
			fmt.Printf("  output: %s\n", cfg.Output)
		}
		fmt.Println()
		fmt.Println("Use --force to reconfigure.")
		return nil
	}

	key := initAPIKey
	if key == "" {
		key = os.Getenv("ZETSUBOU_API_KEY")
	}
	if key == "" {
		if !isTTY() {
			return fmt.Errorf("no API key: pass --api-key or set ZETSUBOU_API_KEY")
		}
		prompted, err := promptForAPIKey()
		if err != nil {
			return err
		}
		key = prompted
	}

	cfg := &config.Config{
		APIKey:  strings.TrimSpace(key),
		BaseURL: initBaseURL,
		Output:  initOutput,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	acct, err := verifyAPIKey(ctx, cfg)
	if err != nil {
		return fmt.Errorf("verifying API key: %w", err)
	}

	if err := cfg.Save(); err != nil {
		return err
	}

	fmt.Printf("Authenticated as %s (%s tier)\n", acct.Username, acct.Tier)
	fmt.Printf("Config saved to %s\n", config.GetPath())
	return nil
}

// promptForAPIKey reads the key from the terminal with echo disabled.
func promptForAPIKey() (string, error) {
	fmt.Fprint(os.Stderr, "API key (input hidden): ")
	key, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading API key: %w", err)
	}
	return string(key), nil
}

// verifyAPIKey calls the account endpoint to prove the key works before it
// is persisted.
func verifyAPIKey(ctx context.Context, cfg *config.Config) (*zetsubou.Account, error) {
	opts := []zetsubou.Option{zetsubou.WithTimeout(requestTimeout(cfg))}
	if cfg.BaseURL != "" {
		opts = append(opts, zetsubou.WithBaseURL(cfg.BaseURL))
	}
	client, err := zetsubou.New(cfg.APIKey, opts...)
	if err != nil {
		return nil, err
	}

	vctx, cancel := opContext(ctx, cfg)
	defer cancel()
	return client.Account.Get(vctx)
}

// maskKey hides the middle of an API key for display.
func maskKey(key string) string {
	if len(key) <= 14 {
		return "ztb_..."
	}
	return key[:10] + "..." + key[len(key)-4:]
}
