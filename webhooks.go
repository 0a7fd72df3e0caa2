package zetsubou

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
)

// Webhook event types.
const (
	EventJobCompleted         = "job.completed"
	EventJobFailed            = "job.failed"
	EventJobCancelled         = "job.cancelled"
	EventFileUploaded         = "file.uploaded"
	EventFileDownloaded       = "file.downloaded"
	EventStorageQuotaWarning  = "storage.quota_warning"
	EventStorageQuotaExceeded = "storage.quota_exceeded"
)

// knownWebhookEvents is the set of event names the service emits. Create
// and Update reject names outside it before any request is made.
var knownWebhookEvents = map[string]bool{
	EventJobCompleted:         true,
	EventJobFailed:            true,
	EventJobCancelled:         true,
	EventFileUploaded:         true,
	EventFileDownloaded:       true,
	EventStorageQuotaWarning:  true,
	EventStorageQuotaExceeded: true,
}

// WebhooksService manages event subscriptions.
type WebhooksService struct {
	client *Client
}

type webhooksEnvelope struct {
	Webhooks []Webhook `json:"webhooks"`
}

type webhookEnvelope struct {
	Webhook Webhook `json:"webhook"`
}

// List returns all webhooks registered on the account.
func (s *WebhooksService) List(ctx context.Context) ([]Webhook, error) {
	var resp webhooksEnvelope
	if err := s.client.get(ctx, "/api/v2/webhooks", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Webhooks, nil
}

// CreateWebhookRequest registers a delivery URL for a set of events. A
// non-empty Secret is used by the service to sign deliveries.
type CreateWebhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret,omitempty"`
}

func validateWebhookEvents(events []string) error {
	if len(events) == 0 {
		return &Error{Kind: ErrorKindValidation, Message: "at least one event is required"}
	}
	for _, ev := range events {
		if !knownWebhookEvents[ev] {
			return &Error{
				Kind:    ErrorKindValidation,
				Message: fmt.Sprintf("unknown webhook event %q", ev),
			}
		}
	}
	return nil
}

// Create registers a new webhook. The URL must be http or https and every
// event must be one of the Event constants.
func (s *WebhooksService) Create(ctx context.Context, req CreateWebhookRequest) (*Webhook, error) {
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &Error{
			Kind:    ErrorKindValidation,
			Message: fmt.Sprintf("webhook URL %q must be http(s)", req.URL),
		}
	}
	if err := validateWebhookEvents(req.Events); err != nil {
		return nil, err
	}

	var resp webhookEnvelope
	if err := s.client.post(ctx, "/api/v2/webhooks", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Webhook, nil
}

// Get fetches one webhook by ID.
func (s *WebhooksService) Get(ctx context.Context, webhookID int) (*Webhook, error) {
	var resp webhookEnvelope
	if err := s.client.get(ctx, "/api/v2/webhooks/"+strconv.Itoa(webhookID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Webhook, nil
}

// UpdateWebhookRequest changes webhook settings. Nil fields are left
// unchanged; a nil Events slice keeps the current subscription.
type UpdateWebhookRequest struct {
	URL     *string  `json:"url,omitempty"`
	Events  []string `json:"events,omitempty"`
	Secret  *string  `json:"secret,omitempty"`
	Enabled *bool    `json:"enabled,omitempty"`
}

// Update modifies a webhook's URL, events, signing secret, or enabled
// state.
func (s *WebhooksService) Update(ctx context.Context, webhookID int, req UpdateWebhookRequest) (*Webhook, error) {
	if req.URL == nil && req.Events == nil && req.Secret == nil && req.Enabled == nil {
		return nil, &Error{Kind: ErrorKindValidation, Message: "nothing to update"}
	}
	if req.Events != nil {
		if err := validateWebhookEvents(req.Events); err != nil {
			return nil, err
		}
	}

	var resp webhookEnvelope
	if err := s.client.put(ctx, "/api/v2/webhooks/"+strconv.Itoa(webhookID), req, &resp); err != nil {
		return nil, err
	}
	return &resp.Webhook, nil
}

// Delete removes a webhook.
func (s *WebhooksService) Delete(ctx context.Context, webhookID int) error {
	var resp successEnvelope
	if err := s.client.delete(ctx, "/api/v2/webhooks/"+strconv.Itoa(webhookID), nil, &resp); err != nil {
		return err
	}
	return resp.check("delete webhook")
}

// WebhookTestResult reports the outcome of a test delivery. Success being
// false means the endpoint was reached but responded badly.
type WebhookTestResult struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code"`
	DurationMS int    `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Test fires a test event at the webhook's URL and reports the delivery
// outcome.
func (s *WebhooksService) Test(ctx context.Context, webhookID int) (*WebhookTestResult, error) {
	var resp WebhookTestResult
	path := "/api/v2/webhooks/" + strconv.Itoa(webhookID) + "/test"
	if err := s.client.post(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WebhookStats summarizes recent deliveries for one webhook.
type WebhookStats struct {
	WebhookID        int              `json:"webhook_id"`
	Days             int              `json:"days"`
	TotalDeliveries  int              `json:"total_deliveries"`
	Succeeded        int              `json:"succeeded"`
	Failed           int              `json:"failed"`
	SuccessRate      float64          `json:"success_rate"`
	AvgResponseMS    float64          `json:"avg_response_ms"`
	RecentDeliveries []map[string]any `json:"recent_deliveries,omitempty"`
}

// Stats returns delivery statistics over the last days days (default 7).
func (s *WebhooksService) Stats(ctx context.Context, webhookID, days int) (*WebhookStats, error) {
	if days <= 0 {
		days = 7
	}
	q := url.Values{}
	q.Set("days", strconv.Itoa(days))

	var resp WebhookStats
	path := "/api/v2/webhooks/" + strconv.Itoa(webhookID) + "/stats"
	if err := s.client.get(ctx, path, q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type webhookEventsEnvelope struct {
	Events map[string]string `json:"events"`
}

// AvailableEvents returns every subscribable event with a short
// description.
func (s *WebhooksService) AvailableEvents(ctx context.Context) (map[string]string, error) {
	var resp webhookEventsEnvelope
	if err := s.client.get(ctx, "/api/v2/webhooks/events", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// CreateJobWebhook subscribes a URL to all job lifecycle events.
func (s *WebhooksService) CreateJobWebhook(ctx context.Context, deliveryURL string) (*Webhook, error) {
	return s.Create(ctx, CreateWebhookRequest{
		URL:    deliveryURL,
		Events: []string{EventJobCompleted, EventJobFailed, EventJobCancelled},
	})
}

// CreateFileWebhook subscribes a URL to file transfer events.
func (s *WebhooksService) CreateFileWebhook(ctx context.Context, deliveryURL string) (*Webhook, error) {
	return s.Create(ctx, CreateWebhookRequest{
		URL:    deliveryURL,
		Events: []string{EventFileUploaded, EventFileDownloaded},
	})
}

// CreateStorageWebhook subscribes a URL to storage quota events.
func (s *WebhooksService) CreateStorageWebhook(ctx context.Context, deliveryURL string) (*Webhook, error) {
	return s.Create(ctx, CreateWebhookRequest{
		URL:    deliveryURL,
		Events: []string{EventStorageQuotaWarning, EventStorageQuotaExceeded},
	})
}

// CreateAllEventsWebhook subscribes a URL to every event the service
// reports as available.
func (s *WebhooksService) CreateAllEventsWebhook(ctx context.Context, deliveryURL string) (*Webhook, error) {
	available, err := s.AvailableEvents(ctx)
	if err != nil {
		return nil, err
	}
	events := make([]string, 0, len(available))
	for ev := range available {
		events = append(events, ev)
	}
	sort.Strings(events)
	return s.Create(ctx, CreateWebhookRequest{URL: deliveryURL, Events: events})
}
