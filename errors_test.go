package zetsubou

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{400, ErrorKindValidation},
		{401, ErrorKindAuthentication},
		{403, ErrorKindAuthentication},
		{404, ErrorKindNotFound},
		{409, ErrorKindAPI},
		{422, ErrorKindValidation},
		{429, ErrorKindRateLimit},
		{500, ErrorKindServer},
		{502, ErrorKindServer},
		{503, ErrorKindServer},
	}

	for _, tt := range tests {
		if got := kindForStatus(tt.status); got != tt.want {
			t.Errorf("kindForStatus(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestAPIError_MessageEnvelope(t *testing.T) {
	body := []byte(`{"message": "tool not available on free tier", "code": "tier_required"}`)
	err := apiError(403, http.Header{}, body)

	if err.Kind != ErrorKindAuthentication {
		t.Errorf("Kind = %q, want %q", err.Kind, ErrorKindAuthentication)
	}
	if err.StatusCode != 403 {
		t.Errorf("StatusCode = %d, want 403", err.StatusCode)
	}
	if err.Message != "tool not available on free tier" {
		t.Errorf("Message = %q, want server message", err.Message)
	}
	if err.Code != "tier_required" {
		t.Errorf("Code = %q, want tier_required", err.Code)
	}
}

func TestAPIError_ErrorStringEnvelope(t *testing.T) {
	body := []byte(`{"success": false, "error": "project not found"}`)
	err := apiError(404, http.Header{}, body)

	if err.Message != "project not found" {
		t.Errorf("Message = %q, want 'project not found'", err.Message)
	}
}

func TestAPIError_NonJSONBody(t *testing.T) {
	err := apiError(502, http.Header{}, []byte("<html>bad gateway</html>"))

	if err.Kind != ErrorKindServer {
		t.Errorf("Kind = %q, want %q", err.Kind, ErrorKindServer)
	}
	if err.Message != http.StatusText(502) {
		t.Errorf("Message = %q, want %q", err.Message, http.StatusText(502))
	}
}

func TestAPIError_RetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{name: "header honored", header: "5", want: 5 * time.Second},
		{name: "missing header defaults", header: "", want: defaultRetryAfter},
		{name: "garbage header defaults", header: "soon", want: defaultRetryAfter},
		{name: "negative header defaults", header: "-1", want: defaultRetryAfter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Retry-After", tt.header)
			}
			err := apiError(429, h, nil)
			if err.RetryAfter != tt.want {
				t.Errorf("RetryAfter = %v, want %v", err.RetryAfter, tt.want)
			}
		})
	}
}

func TestAPIError_RetryAfterOnlyOn429(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "30")
	err := apiError(503, h, nil)
	if err.RetryAfter != 0 {
		t.Errorf("RetryAfter = %v on 503, want 0", err.RetryAfter)
	}
}

func TestError_String(t *testing.T) {
	withStatus := &Error{Kind: ErrorKindNotFound, StatusCode: 404, Message: "no such job"}
	if got := withStatus.Error(); got != "zetsubou: not_found error (status 404): no such job" {
		t.Errorf("Error() = %q", got)
	}

	noStatus := &Error{Kind: ErrorKindTimeout, Message: "deadline expired"}
	if got := noStatus.Error(); got != "zetsubou: timeout error: deadline expired" {
		t.Errorf("Error() = %q", got)
	}
}

func TestErrorKindHelpers(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		fn   func(error) bool
	}{
		{ErrorKindAuthentication, IsAuthentication},
		{ErrorKindValidation, IsValidation},
		{ErrorKindNotFound, IsNotFound},
		{ErrorKindRateLimit, IsRateLimit},
		{ErrorKindServer, IsServer},
		{ErrorKindTimeout, IsTimeout},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := &Error{Kind: tt.kind, Message: "x"}
			if !tt.fn(err) {
				t.Errorf("helper for %q did not match its own kind", tt.kind)
			}
			// Helpers must see through wrapping.
			if !tt.fn(fmt.Errorf("fetching job: %w", err)) {
				t.Errorf("helper for %q did not match wrapped error", tt.kind)
			}
			// And must not match a different kind.
			other := &Error{Kind: ErrorKindAPI, Message: "x"}
			if tt.fn(other) {
				t.Errorf("helper for %q matched kind api", tt.kind)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want bool
	}{
		{ErrorKindServer, true},
		{ErrorKindConnection, true},
		{ErrorKindRateLimit, false},
		{ErrorKindValidation, false},
		{ErrorKindAuthentication, false},
		{ErrorKindNotFound, false},
		{ErrorKindTimeout, false},
		{ErrorKindAPI, false},
	}

	for _, tt := range tests {
		err := &Error{Kind: tt.kind}
		if got := IsTransient(err); got != tt.want {
			t.Errorf("IsTransient(%q) = %v, want %v", tt.kind, got, tt.want)
		}
	}

	if IsTransient(fmt.Errorf("plain error")) {
		t.Error("IsTransient matched a non-API error")
	}
}
