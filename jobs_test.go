package zetsubou

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestJobsGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/api/v2/jobs/job-1" {
			t.Errorf("Expected /api/v2/jobs/job-1, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"job": {"id": "job-1", "tool_id": "upscale", "status": "running", "progress": 62}}`))
	}))
	defer server.Close()

	c := testClient(t, server)
	job, err := c.Jobs.Get(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if job.ID != "job-1" {
		t.Errorf("Expected job-1, got %s", job.ID)
	}
	if job.Status != JobStatusRunning {
		t.Errorf("Expected running, got %s", job.Status)
	}
	if job.Progress != 62 {
		t.Errorf("Expected progress 62, got %d", job.Progress)
	}
}

func TestJobsList_QueryParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("limit") != "10" {
			t.Errorf("Expected limit 10, got %s", q.Get("limit"))
		}
		if q.Get("offset") != "5" {
			t.Errorf("Expected offset 5, got %s", q.Get("offset"))
		}
		if q.Get("status") != "running" {
			t.Errorf("Expected status running, got %s", q.Get("status"))
		}
		if q.Get("tool_id") != "upscale" {
			t.Errorf("Expected tool_id upscale, got %s", q.Get("tool_id"))
		}
		w.Write([]byte(`{"jobs": [{"id": "job-1", "status": "running"}, {"id": "job-2", "status": "running"}]}`))
	}))
	defer server.Close()

	c := testClient(t, server)
	jobs, err := c.Jobs.List(context.Background(), ListJobsOptions{
		Status: JobStatusRunning,
		ToolID: "upscale",
		Limit:  10,
		Offset: 5,
	})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(jobs))
	}
	if jobs[1].ID != "job-2" {
		t.Errorf("Expected job-2, got %s", jobs[1].ID)
	}
}

func TestJobsList_Defaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("limit") != "50" {
			t.Errorf("Expected default limit 50, got %s", q.Get("limit"))
		}
		if q.Has("status") {
			t.Errorf("Expected no status filter, got %s", q.Get("status"))
		}
		w.Write([]byte(`{"jobs": []}`))
	}))
	defer server.Close()

	c := testClient(t, server)
	if _, err := c.Jobs.List(context.Background(), ListJobsOptions{}); err != nil {
		t.Fatalf("List() error: %v", err)
	}
}

func TestJobsCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/v2/jobs/job-1/cancel" {
			t.Errorf("Expected /api/v2/jobs/job-1/cancel, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	c := testClient(t, server)
	if err := c.Jobs.Cancel(context.Background(), "job-1"); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
}

func TestJobsCancel_Refused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "error": "job already completed"}`))
	}))
	defer server.Close()

	c := testClient(t, server)
	err := c.Jobs.Cancel(context.Background(), "job-1")
	if err == nil {
		t.Fatal("Expected error when server refuses the cancel")
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *Error, got %T", err)
	}
	if apiErr.Message != "job already completed" {
		t.Errorf("Message = %q, want server refusal", apiErr.Message)
	}
}

func TestJobsRetry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/v2/jobs/job-1/retry" {
			t.Errorf("Expected /api/v2/jobs/job-1/retry, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"job": {"id": "job-7", "tool_id": "upscale", "status": "queued"}}`))
	}))
	defer server.Close()

	c := testClient(t, server)
	job, err := c.Jobs.Retry(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Retry() error: %v", err)
	}
	if job.ID != "job-7" {
		t.Errorf("Expected new job job-7, got %s", job.ID)
	}
	if job.Status != JobStatusQueued {
		t.Errorf("Expected queued, got %s", job.Status)
	}
}

func TestJobsDelete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("Expected DELETE, got %s", r.Method)
		}
		if r.URL.Path != "/api/v2/jobs/job-1" {
			t.Errorf("Expected /api/v2/jobs/job-1, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	c := testClient(t, server)
	if err := c.Jobs.Delete(context.Background(), "job-1"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
}

func TestJobsDownloadResults(t *testing.T) {
	payload := []byte("PK\x03\x04fake-zip-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/jobs/job-1/download" {
			t.Errorf("Expected /api/v2/jobs/job-1/download, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Accept"); got != "application/octet-stream" {
			t.Errorf("Expected Accept application/octet-stream, got %s", got)
		}
		w.Write(payload)
	}))
	defer server.Close()

	c := testClient(t, server)
	var buf bytes.Buffer
	n, err := c.Jobs.DownloadResults(context.Background(), "job-1", &buf)
	if err != nil {
		t.Fatalf("DownloadResults() error: %v", err)
	}
	if n != int64(len(payload)) {
		t.Errorf("Expected %d bytes, got %d", len(payload), n)
	}
	if !bytes.Equal(buf.Bytes(), payload) {
		t.Error("Downloaded bytes do not match")
	}
}

func TestJobsProgress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"job": {"id": "job-1", "status": "failed", "progress": 80, "error": "out of memory"}}`))
	}))
	defer server.Close()

	c := testClient(t, server)
	p, err := c.Jobs.Progress(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Progress() error: %v", err)
	}
	if p.JobID != "job-1" {
		t.Errorf("Expected job-1, got %s", p.JobID)
	}
	if p.Status != JobStatusFailed {
		t.Errorf("Expected failed, got %s", p.Status)
	}
	if p.Progress != 80 {
		t.Errorf("Expected progress 80, got %d", p.Progress)
	}
	if p.Error != "out of memory" {
		t.Errorf("Expected error message, got %q", p.Error)
	}
}

// End-to-end: the waiter polling through the real HTTP service.
func TestJobsWaitForCompletion_OverHTTP(t *testing.T) {
	var polls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		job := Job{ID: "job-1", ToolID: "upscale", Status: JobStatusRunning, Progress: 50}
		if polls.Add(1) >= 3 {
			job.Status = JobStatusCompleted
			job.Progress = 100
		}
		json.NewEncoder(w).Encode(map[string]Job{"job": job})
	}))
	defer server.Close()

	c := testClient(t, server)
	job, err := c.Jobs.WaitForCompletion(context.Background(), "job-1", PollConfig{
		Interval: time.Millisecond,
		Timeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("WaitForCompletion() error: %v", err)
	}
	if job.Status != JobStatusCompleted {
		t.Errorf("Expected completed, got %s", job.Status)
	}
	if got := polls.Load(); got != 3 {
		t.Errorf("Expected 3 polls, got %d", got)
	}
}
