package zetsubou

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// AccountService reads account state and manages API keys.
type AccountService struct {
	client *Client
}

// Get returns the authenticated account.
func (s *AccountService) Get(ctx context.Context) (*Account, error) {
	var acct Account
	if err := s.client.get(ctx, "/api/v2/account", nil, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// StorageQuota returns current storage consumption against the tier quota.
func (s *AccountService) StorageQuota(ctx context.Context) (*StorageQuota, error) {
	var quota StorageQuota
	if err := s.client.get(ctx, "/api/v2/storage/quota", nil, &quota); err != nil {
		return nil, err
	}
	return &quota, nil
}

// UsageStatsOptions filters UsageStats. Period is one of "7d", "30d",
// "90d", "1y" and defaults to "30d".
type UsageStatsOptions struct {
	Period string
	ToolID string
}

// UsageStats aggregates job activity over a period.
type UsageStats struct {
	Period         string           `json:"period"`
	TotalJobs      int              `json:"total_jobs"`
	CompletedJobs  int              `json:"completed_jobs"`
	FailedJobs     int              `json:"failed_jobs"`
	ComputeSeconds float64          `json:"compute_seconds"`
	ByTool         map[string]int   `json:"by_tool,omitempty"`
	ByDay          []map[string]any `json:"by_day,omitempty"`
}

// UsageStats returns aggregated job usage for the account.
func (s *AccountService) UsageStats(ctx context.Context, opts UsageStatsOptions) (*UsageStats, error) {
	if opts.Period == "" {
		opts.Period = "30d"
	}
	switch opts.Period {
	case "7d", "30d", "90d", "1y":
	default:
		return nil, &Error{
			Kind:    ErrorKindValidation,
			Message: fmt.Sprintf("invalid period %q (want 7d, 30d, 90d or 1y)", opts.Period),
		}
	}

	q := url.Values{}
	q.Set("period", opts.Period)
	if opts.ToolID != "" {
		q.Set("tool_id", opts.ToolID)
	}

	var stats UsageStats
	if err := s.client.get(ctx, "/api/v2/account/usage", q, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

type apiKeysEnvelope struct {
	APIKeys []APIKey `json:"api_keys"`
}

type apiKeyEnvelope struct {
	APIKey APIKey `json:"api_key"`
}

// ListAPIKeys returns the account's API keys. Secrets are not included.
func (s *AccountService) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	var resp apiKeysEnvelope
	if err := s.client.get(ctx, "/api/v2/account/api-keys", nil, &resp); err != nil {
		return nil, err
	}
	return resp.APIKeys, nil
}

// CreateAPIKeyRequest issues a new API key. An empty ExpiresAt (an ISO
// date) means the key never expires. DriveBypass keys may read files
// without the drive encryption handshake.
type CreateAPIKeyRequest struct {
	Name        string   `json:"name"`
	Scopes      []string `json:"scopes,omitempty"`
	ExpiresAt   string   `json:"expires_at,omitempty"`
	DriveBypass bool     `json:"drive_bypass"`
}

// CreateAPIKey issues a new key. The returned APIKey.Key holds the secret
// and is shown only once.
func (s *AccountService) CreateAPIKey(ctx context.Context, req CreateAPIKeyRequest) (*APIKey, error) {
	if req.Name == "" {
		return nil, &Error{Kind: ErrorKindValidation, Message: "api key name is required"}
	}

	var resp apiKeyEnvelope
	if err := s.client.post(ctx, "/api/v2/account/api-keys", req, &resp); err != nil {
		return nil, err
	}
	return &resp.APIKey, nil
}

// DeleteAPIKey revokes a key.
func (s *AccountService) DeleteAPIKey(ctx context.Context, keyID int) error {
	var resp successEnvelope
	if err := s.client.delete(ctx, "/api/v2/account/api-keys/"+strconv.Itoa(keyID), nil, &resp); err != nil {
		return err
	}
	return resp.check("delete api key")
}

// TierInfo is the subscription slice of the account record.
type TierInfo struct {
	Tier         string         `json:"tier"`
	Subscription map[string]any `json:"subscription,omitempty"`
	Features     map[string]any `json:"features,omitempty"`
}

// TierInfo returns the account's tier and subscription details. There is
// no dedicated endpoint; it is cut from the account record.
func (s *AccountService) TierInfo(ctx context.Context) (*TierInfo, error) {
	acct, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &TierInfo{
		Tier:         acct.Tier,
		Subscription: acct.Subscription,
		Features:     acct.Features,
	}, nil
}

// RateLimits reports the tier's job concurrency and request rate caps.
type RateLimits struct {
	MaxConcurrentJobs  int `json:"max_concurrent_jobs"`
	RateLimitPerMinute int `json:"rate_limit_per_minute"`
}

// RateLimits derives the account's limits from its feature set. Missing
// features fall back to the free tier caps.
func (s *AccountService) RateLimits(ctx context.Context) (*RateLimits, error) {
	acct, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &RateLimits{
		MaxConcurrentJobs:  featureInt(acct.Features, "max_concurrent_jobs", 1),
		RateLimitPerMinute: featureInt(acct.Features, "rate_limit_per_minute", 10),
	}, nil
}

// featureInt reads an integer feature flag, tolerating JSON numbers.
func featureInt(features map[string]any, key string, def int) int {
	switch n := features[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return def
}
