package zetsubou

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestJobsWatch_StreamsSnapshots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/jobs/job-1/events" {
			t.Errorf("Expected /api/v2/jobs/job-1/events, got %s", r.URL.Path)
		}
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("Expected Accept: text/event-stream, got %s", r.Header.Get("Accept"))
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")

		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("Server doesn't support flushing")
		}

		fmt.Fprint(w, "event: progress\ndata: {\"id\":\"job-1\",\"status\":\"running\",\"progress\":40}\n\n")
		flusher.Flush()

		fmt.Fprint(w, "event: progress\ndata: {\"id\":\"job-1\",\"status\":\"completed\",\"progress\":100}\n\n")
		flusher.Flush()

		// Keep the connection open; the client hangs up after the
		// terminal snapshot.
		<-r.Context().Done()
	}))
	defer server.Close()

	c := testClient(t, server)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, err := c.Jobs.Watch(ctx, "job-1")
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	var received []JobEvent
	for event := range events {
		received = append(received, event)
	}

	if len(received) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(received))
	}
	if received[0].Type != "progress" {
		t.Errorf("Expected event type 'progress', got '%s'", received[0].Type)
	}
	if received[0].Job == nil {
		t.Fatal("Expected decoded job on first event")
	}
	if received[0].Job.Status != JobStatusRunning {
		t.Errorf("Expected running, got %s", received[0].Job.Status)
	}
	if received[1].Job == nil {
		t.Fatal("Expected decoded job on second event")
	}
	if received[1].Job.Status != JobStatusCompleted {
		t.Errorf("Expected completed, got %s", received[1].Job.Status)
	}
}

func TestJobsWatch_KeepaliveIgnored(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)

		// Keepalive comment, should be ignored
		fmt.Fprint(w, ": keepalive\n\n")
		flusher.Flush()

		fmt.Fprint(w, "event: progress\ndata: {\"id\":\"job-1\",\"status\":\"completed\"}\n\n")
		flusher.Flush()

		<-r.Context().Done()
	}))
	defer server.Close()

	c := testClient(t, server)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, err := c.Jobs.Watch(ctx, "job-1")
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	var received []JobEvent
	for event := range events {
		received = append(received, event)
	}

	if len(received) != 1 {
		t.Fatalf("Expected 1 event (keepalive filtered), got %d", len(received))
	}
	if received[0].Type != "progress" {
		t.Errorf("Expected event type 'progress', got '%s'", received[0].Type)
	}
}

func TestJobsWatch_DefaultEventType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)

		// Event without an explicit type
		fmt.Fprint(w, "data: {\"id\":\"job-1\",\"status\":\"completed\"}\n\n")
		flusher.Flush()

		<-r.Context().Done()
	}))
	defer server.Close()

	c := testClient(t, server)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, err := c.Jobs.Watch(ctx, "job-1")
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	var received []JobEvent
	for event := range events {
		received = append(received, event)
	}

	if len(received) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(received))
	}
	if received[0].Type != "message" {
		t.Errorf("Expected default event type 'message', got '%s'", received[0].Type)
	}
}

func TestJobsWatch_NonJobPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)

		// Multiple data lines concatenated; payload is not a job document
		fmt.Fprint(w, "event: log\ndata: line1\ndata: line2\n\n")
		flusher.Flush()

		fmt.Fprint(w, "data: {\"id\":\"job-1\",\"status\":\"failed\"}\n\n")
		flusher.Flush()

		<-r.Context().Done()
	}))
	defer server.Close()

	c := testClient(t, server)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, err := c.Jobs.Watch(ctx, "job-1")
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	var received []JobEvent
	for event := range events {
		received = append(received, event)
	}

	if len(received) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(received))
	}
	if received[0].Job != nil {
		t.Errorf("Expected nil job for non-job payload, got %+v", received[0].Job)
	}
	if received[0].Raw != "line1\nline2" {
		t.Errorf("Expected data 'line1\\nline2', got '%s'", received[0].Raw)
	}
	if received[1].Job == nil || received[1].Job.Status != JobStatusFailed {
		t.Errorf("Expected decoded failed job, got %+v", received[1].Job)
	}
}

func TestJobsWatch_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)

		for {
			select {
			case <-r.Context().Done():
				return
			default:
				fmt.Fprint(w, ": keepalive\n\n")
				flusher.Flush()
				time.Sleep(20 * time.Millisecond)
			}
		}
	}))
	defer server.Close()

	c := testClient(t, server)
	ctx, cancel := context.WithCancel(context.Background())

	events, err := c.Jobs.Watch(ctx, "job-1")
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	// Channel should close when the context is cancelled
	var count int
	for range events {
		count++
	}

	if count != 0 {
		t.Errorf("Expected no events (keepalives only), got %d", count)
	}
}

func TestJobsWatch_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "Job not found"}`))
	}))
	defer server.Close()

	c := testClient(t, server)
	_, err := c.Jobs.Watch(context.Background(), "job-missing")
	if err == nil {
		t.Fatal("Expected error for HTTP 404, got nil")
	}
	if !IsNotFound(err) {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestJobsWatch_LineTooLong(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)

		// A single line past the 64KB cap kills the stream
		longData := strings.Repeat("x", 100*1024)
		fmt.Fprintf(w, "data: %s\n\n", longData)
		flusher.Flush()
	}))
	defer server.Close()

	c := testClient(t, server)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, err := c.Jobs.Watch(ctx, "job-1")
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	var received []JobEvent
	for event := range events {
		received = append(received, event)
	}

	if len(received) > 0 {
		t.Errorf("Expected no events (line too long), got %d", len(received))
	}
}

func TestJobsWatch_OversizedEventDiscarded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)

		// First: an event whose data lines add up to 1.5MB
		chunk := strings.Repeat("y", 10*1024)
		fmt.Fprint(w, "event: oversized\n")
		for i := 0; i < 150; i++ {
			fmt.Fprintf(w, "data: %s\n", chunk)
		}
		fmt.Fprint(w, "\n")
		flusher.Flush()

		// Second: a normal event, proving the stream recovered
		fmt.Fprint(w, "event: recovered\ndata: success\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	c := testClient(t, server)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := c.Jobs.Watch(ctx, "job-1")
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	var received []JobEvent
	for event := range events {
		received = append(received, event)
	}

	if len(received) != 1 {
		t.Fatalf("Expected 1 event (recovered), got %d", len(received))
	}
	if received[0].Type != "recovered" {
		t.Errorf("Expected event type 'recovered', got '%s'", received[0].Type)
	}
	if received[0].Raw != "success" {
		t.Errorf("Expected data 'success', got '%s'", received[0].Raw)
	}
}

func TestJobsWatch_WithinLimits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)

		// 50KB across five data lines stays under the event cap
		chunk := strings.Repeat("z", 10*1024)
		fmt.Fprint(w, "event: log\n")
		for i := 0; i < 5; i++ {
			fmt.Fprintf(w, "data: %s\n", chunk)
		}
		fmt.Fprint(w, "\n")
		flusher.Flush()
	}))
	defer server.Close()

	c := testClient(t, server)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, err := c.Jobs.Watch(ctx, "job-1")
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	var received []JobEvent
	for event := range events {
		received = append(received, event)
	}

	if len(received) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(received))
	}
	// 5 chunks of 10KB joined by 4 newlines
	expectedSize := 5*10*1024 + 4
	if len(received[0].Raw) != expectedSize {
		t.Errorf("Expected data size %d, got %d", expectedSize, len(received[0].Raw))
	}
}
