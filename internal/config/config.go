// Package config handles the zetsubou CLI configuration file.
//
// The file lives at $HOME/.zetsubou.yaml and contains:
//
//	api_key: "ztb_live_..."          - API key (or ZETSUBOU_API_KEY)
//	base_url: "https://..."          - API base URL (or ZETSUBOU_BASE_URL)
//	timeout_seconds: 60              - Per-request timeout
//	output: "text"                   - Default output format (text or json)
//
// Environment variables always win over file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file under $HOME.
const FileName = ".zetsubou.yaml"

// DefaultBaseURL is used when neither the file nor the environment sets one.
const DefaultBaseURL = "https://zetsubou.life"

// DefaultTimeoutSeconds applies when timeout_seconds is unset.
const DefaultTimeoutSeconds = 30

// customPath holds an optional custom config file path.
// When empty, Load() uses $HOME/FileName.
var customPath string

// SetPath sets a custom config file path for Load() and Save() to use.
// Pass an empty string to reset to the default path.
func SetPath(path string) {
	customPath = path
}

// GetPath returns the current config file path. Returns the custom path if
// set, otherwise $HOME/FileName.
func GetPath() string {
	if customPath != "" {
		return customPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return FileName
	}
	return filepath.Join(home, FileName)
}

// Validation patterns. Key prefixes match the server's key issuance.
var (
	apiKeyPattern = regexp.MustCompile(`^ztb_(live|test)_[A-Za-z0-9]+$`)
	urlPattern    = regexp.MustCompile(`^https?://[^\s]+$`)
)

// Config represents the zetsubou CLI configuration.
type Config struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
	Output         string `yaml:"output,omitempty"`
}

// Timeout returns the configured per-request timeout.
func (c *Config) Timeout() time.Duration {
	secs := c.TimeoutSeconds
	if secs <= 0 {
		secs = DefaultTimeoutSeconds
	}
	return time.Duration(secs) * time.Second
}

// JSONOutput reports whether json output is the configured default.
func (c *Config) JSONOutput() bool {
	return c.Output == "json"
}

// Load reads the configuration file and applies the environment overlay.
// A missing file is not an error: the result is a zero config plus
// whatever the environment provides.
func Load() (*Config, error) {
	return LoadFrom(GetPath())
}

// LoadFrom reads a configuration file from a specific path and applies the
// environment overlay.
func LoadFrom(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// No file yet; env may still carry everything we need.
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	// Environment wins over the file.
	if key := os.Getenv("ZETSUBOU_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	if base := os.Getenv("ZETSUBOU_BASE_URL"); base != "" {
		cfg.BaseURL = base
	}

	return &cfg, nil
}

// Save writes the configuration to the config file with owner-only
// permissions.
func (c *Config) Save() error {
	path := GetPath()
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	header := "# Generated by: zetsubou init\n# Contains your API key - do not commit or share\n\n"
	content := header + string(data)

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}

// Validate checks that the configuration is usable for API calls.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required (run 'zetsubou init' or set ZETSUBOU_API_KEY)")
	}
	if !apiKeyPattern.MatchString(c.APIKey) {
		return fmt.Errorf("api_key must start with ztb_live_ or ztb_test_")
	}
	if c.BaseURL != "" && !urlPattern.MatchString(c.BaseURL) {
		return fmt.Errorf("base_url must be a valid HTTP(S) URL")
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must be positive")
	}
	switch c.Output {
	case "", "text", "json":
	default:
		return fmt.Errorf("output must be text or json, got %q", c.Output)
	}

	return nil
}
