package zetsubou

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhooksList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/webhooks" {
			t.Errorf("Expected /api/v2/webhooks, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"webhooks": [
			{"id": 1, "url": "https://example.com/hook", "events": ["job.completed"], "enabled": true},
			{"id": 2, "url": "https://example.com/hook2", "events": ["file.uploaded"], "enabled": false}
		]}`))
	}))
	defer server.Close()

	c := testClient(t, server)
	hooks, err := c.Webhooks.List(context.Background())
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(hooks) != 2 {
		t.Fatalf("Expected 2 webhooks, got %d", len(hooks))
	}
	if hooks[1].Enabled {
		t.Error("Expected second webhook disabled")
	}
}

func TestWebhooksCreate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		var req CreateWebhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.URL != "https://example.com/hook" {
			t.Errorf("Unexpected URL: %s", req.URL)
		}
		if len(req.Events) != 2 {
			t.Errorf("Expected 2 events, got %d", len(req.Events))
		}
		if req.Secret != "sig-key" {
			t.Errorf("Expected secret in body, got %q", req.Secret)
		}
		w.Write([]byte(`{"webhook": {"id": 7, "url": "https://example.com/hook", "events": ["job.completed", "job.failed"], "enabled": true}}`))
	}))
	defer server.Close()

	c := testClient(t, server)
	hook, err := c.Webhooks.Create(context.Background(), CreateWebhookRequest{
		URL:    "https://example.com/hook",
		Events: []string{EventJobCompleted, EventJobFailed},
		Secret: "sig-key",
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if hook.ID != 7 {
		t.Errorf("Expected id 7, got %d", hook.ID)
	}
}

func TestWebhooksCreate_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  CreateWebhookRequest
	}{
		{"ftp scheme", CreateWebhookRequest{URL: "ftp://example.com/hook", Events: []string{EventJobCompleted}}},
		{"no host", CreateWebhookRequest{URL: "https://", Events: []string{EventJobCompleted}}},
		{"not a url", CreateWebhookRequest{URL: "not a url", Events: []string{EventJobCompleted}}},
		{"no events", CreateWebhookRequest{URL: "https://example.com/hook"}},
		{"unknown event", CreateWebhookRequest{URL: "https://example.com/hook", Events: []string{"job.exploded"}}},
	}

	server := failOnRequest(t)
	defer server.Close()
	c := testClient(t, server)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Webhooks.Create(context.Background(), tt.req)
			if !IsValidation(err) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestWebhooksGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/webhooks/42" {
			t.Errorf("Expected /api/v2/webhooks/42, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"webhook": {"id": 42, "url": "https://example.com/hook", "events": ["job.completed"], "enabled": true, "success_count": 10, "failure_count": 1}}`))
	}))
	defer server.Close()

	c := testClient(t, server)
	hook, err := c.Webhooks.Get(context.Background(), 42)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if hook.SuccessCount != 10 {
		t.Errorf("Expected 10 successes, got %d", hook.SuccessCount)
	}
}

func TestWebhooksUpdate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("Expected PUT, got %s", r.Method)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if body["enabled"] != false {
			t.Errorf("Expected enabled false, got %v", body["enabled"])
		}
		if _, ok := body["url"]; ok {
			t.Error("Expected url omitted from update body")
		}
		w.Write([]byte(`{"webhook": {"id": 42, "url": "https://example.com/hook", "events": ["job.completed"], "enabled": false}}`))
	}))
	defer server.Close()

	c := testClient(t, server)
	enabled := false
	hook, err := c.Webhooks.Update(context.Background(), 42, UpdateWebhookRequest{Enabled: &enabled})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if hook.Enabled {
		t.Error("Expected webhook disabled after update")
	}
}

func TestWebhooksUpdate_NothingToUpdate(t *testing.T) {
	server := failOnRequest(t)
	defer server.Close()

	c := testClient(t, server)
	_, err := c.Webhooks.Update(context.Background(), 42, UpdateWebhookRequest{})
	if !IsValidation(err) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestWebhooksUpdate_RejectsUnknownEvent(t *testing.T) {
	server := failOnRequest(t)
	defer server.Close()

	c := testClient(t, server)
	_, err := c.Webhooks.Update(context.Background(), 42, UpdateWebhookRequest{Events: []string{"nope"}})
	if !IsValidation(err) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestWebhooksDelete_Refused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "error": "webhook has pending deliveries"}`))
	}))
	defer server.Close()

	c := testClient(t, server)
	err := c.Webhooks.Delete(context.Background(), 42)
	if err == nil {
		t.Fatal("Expected error when server refuses delete")
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *Error, got %T", err)
	}
	if apiErr.Message != "webhook has pending deliveries" {
		t.Errorf("Expected server message, got %q", apiErr.Message)
	}
}

func TestWebhooksTest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/webhooks/42/test" {
			t.Errorf("Expected /api/v2/webhooks/42/test, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		w.Write([]byte(`{"success": false, "status_code": 500, "duration_ms": 123, "error": "endpoint returned 500"}`))
	}))
	defer server.Close()

	c := testClient(t, server)
	result, err := c.Webhooks.Test(context.Background(), 42)
	if err != nil {
		t.Fatalf("Test() error: %v", err)
	}
	if result.Success {
		t.Error("Expected failed delivery result")
	}
	if result.StatusCode != 500 {
		t.Errorf("Expected status 500, got %d", result.StatusCode)
	}
	if result.DurationMS != 123 {
		t.Errorf("Expected 123ms, got %d", result.DurationMS)
	}
}

func TestWebhooksStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/webhooks/42/stats" {
			t.Errorf("Expected /api/v2/webhooks/42/stats, got %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("days"); got != "30" {
			t.Errorf("Expected days 30, got %s", got)
		}
		w.Write([]byte(`{"webhook_id": 42, "days": 30, "total_deliveries": 100, "succeeded": 97, "failed": 3, "success_rate": 97.0, "avg_response_ms": 210.5}`))
	}))
	defer server.Close()

	c := testClient(t, server)
	stats, err := c.Webhooks.Stats(context.Background(), 42, 30)
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.TotalDeliveries != 100 {
		t.Errorf("Expected 100 deliveries, got %d", stats.TotalDeliveries)
	}
	if stats.SuccessRate != 97.0 {
		t.Errorf("Expected 97%% success rate, got %v", stats.SuccessRate)
	}
}

func TestWebhooksStats_DefaultDays(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("days"); got != "7" {
			t.Errorf("Expected default days 7, got %s", got)
		}
		w.Write([]byte(`{"webhook_id": 42, "days": 7}`))
	}))
	defer server.Close()

	c := testClient(t, server)
	if _, err := c.Webhooks.Stats(context.Background(), 42, 0); err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
}

func TestWebhooksAvailableEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/webhooks/events" {
			t.Errorf("Expected /api/v2/webhooks/events, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"events": {
			"job.completed": "A processing job finished successfully",
			"file.uploaded": "A file was uploaded to storage"
		}}`))
	}))
	defer server.Close()

	c := testClient(t, server)
	events, err := c.Webhooks.AvailableEvents(context.Background())
	if err != nil {
		t.Fatalf("AvailableEvents() error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[EventJobCompleted] != "A processing job finished successfully" {
		t.Errorf("Unexpected description: %q", events[EventJobCompleted])
	}
}

func TestWebhooksHelperConstructors(t *testing.T) {
	tests := []struct {
		name   string
		create func(c *Client) error
		events []string
	}{
		{
			name:   "jobs",
			create: func(c *Client) error { _, err := c.Webhooks.CreateJobWebhook(context.Background(), "https://example.com/h"); return err },
			events: []string{EventJobCompleted, EventJobFailed, EventJobCancelled},
		},
		{
			name:   "files",
			create: func(c *Client) error { _, err := c.Webhooks.CreateFileWebhook(context.Background(), "https://example.com/h"); return err },
			events: []string{EventFileUploaded, EventFileDownloaded},
		},
		{
			name:   "storage",
			create: func(c *Client) error { _, err := c.Webhooks.CreateStorageWebhook(context.Background(), "https://example.com/h"); return err },
			events: []string{EventStorageQuotaWarning, EventStorageQuotaExceeded},
		},
		{
			// Subscribes to whatever the events endpoint reports, sorted.
			name:   "all",
			create: func(c *Client) error { _, err := c.Webhooks.CreateAllEventsWebhook(context.Background(), "https://example.com/h"); return err },
			events: []string{
				EventFileDownloaded, EventFileUploaded,
				EventJobCancelled, EventJobCompleted, EventJobFailed,
				EventStorageQuotaExceeded, EventStorageQuotaWarning,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/api/v2/webhooks/events" {
					w.Write([]byte(`{"events": {
						"job.completed": "", "job.failed": "", "job.cancelled": "",
						"file.uploaded": "", "file.downloaded": "",
						"storage.quota_warning": "", "storage.quota_exceeded": ""
					}}`))
					return
				}
				var req CreateWebhookRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Fatalf("Failed to decode request: %v", err)
				}
				got = req.Events
				w.Write([]byte(`{"webhook": {"id": 1}}`))
			}))
			defer server.Close()

			c := testClient(t, server)
			if err := tt.create(c); err != nil {
				t.Fatalf("create error: %v", err)
			}
			if len(got) != len(tt.events) {
				t.Fatalf("Expected %d events, got %d", len(tt.events), len(got))
			}
			for i, ev := range tt.events {
				if got[i] != ev {
					t.Errorf("events[%d] = %q, want %q", i, got[i], ev)
				}
			}
		})
	}
}
