package zetsubou

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const (
	// MaxStreamLineSize is the maximum size of a single event stream line
	// (64KB). A longer line closes the stream.
	MaxStreamLineSize = 64 * 1024

	// MaxStreamEventSize is the maximum accumulated size of one event's
	// data (1MB). Oversized events are discarded and the stream continues.
	MaxStreamEventSize = 1024 * 1024
)

// JobEvent is one server-sent event from a job's watch stream.
type JobEvent struct {
	// Type is the event type from the "event:" line. Defaults to
	// "message".
	Type string

	// Job is the decoded job snapshot, nil when the payload is not a job
	// document.
	Job *Job

	// Raw is the unparsed event payload.
	Raw string
}

// Watch subscribes to a job's server-sent event stream. The returned
// channel closes when the job reaches a terminal state, the stream ends,
// or ctx is cancelled.
func (s *JobsService) Watch(ctx context.Context, jobID string) (<-chan JobEvent, error) {
	resp, _, err := s.client.do(ctx, &request{
		method: http.MethodGet,
		path:   "/api/v2/jobs/" + url.PathEscape(jobID) + "/events",
		accept: "text/event-stream",
		stream: true,
	})
	if err != nil {
		return nil, err
	}

	events := make(chan JobEvent, 16)
	go s.client.readJobEvents(ctx, resp.Body, events)
	return events, nil
}

// readJobEvents parses the SSE body into JobEvents until the stream ends,
// ctx is cancelled, or a terminal job snapshot arrives.
func (c *Client) readJobEvents(ctx context.Context, body io.ReadCloser, events chan<- JobEvent) {
	defer close(events)
	defer func() { _ = body.Close() }()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, MaxStreamLineSize), MaxStreamLineSize)

	var (
		eventType string
		dataLines []string
		eventSize int
		oversized bool
	)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !scanner.Scan() {
			// EOF, read error, or a line past the cap.
			if err := scanner.Err(); err != nil && ctx.Err() == nil {
				c.logger.Warn("job event stream closed", slog.String("error", err.Error()))
			}
			return
		}

		line := scanner.Text()

		// Blank line terminates the pending event.
		if line == "" {
			if len(dataLines) > 0 && !oversized {
				ev := JobEvent{Type: eventType, Raw: strings.Join(dataLines, "\n")}
				if ev.Type == "" {
					ev.Type = "message"
				}
				var job Job
				if err := json.Unmarshal([]byte(ev.Raw), &job); err == nil && job.ID != "" {
					ev.Job = &job
				}

				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}

				// A terminal snapshot ends the stream on our side even if
				// the server keeps the connection open.
				if ev.Job != nil && ev.Job.Status.Terminal() {
					return
				}
			}
			eventType = ""
			dataLines = nil
			eventSize = 0
			oversized = false
			continue
		}

		// Comment lines are ignored.
		if strings.HasPrefix(line, ":") {
			continue
		}

		colon := strings.Index(line, ":")
		if colon == -1 {
			continue
		}
		field := line[:colon]
		value := strings.TrimPrefix(line[colon+1:], " ")

		switch field {
		case "event":
			eventType = value
		case "data":
			if oversized {
				continue
			}
			newSize := eventSize + len(value)
			if eventSize > 0 {
				newSize++ // joining newline
			}
			if newSize > MaxStreamEventSize {
				c.logger.Warn("discarding oversized stream event",
					slog.Int("bytes", newSize),
					slog.Int("limit", MaxStreamEventSize))
				oversized = true
				dataLines = nil
				continue
			}
			dataLines = append(dataLines, value)
			eventSize = newSize
			// "id" and "retry" fields are ignored.
		}
	}
}
