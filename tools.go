package zetsubou

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// ToolsService exposes the dynamic tool catalog. Tools are registered
// server-side; the SDK never enumerates them at compile time.
type ToolsService struct {
	client *Client
}

type toolsEnvelope struct {
	Tools []Tool `json:"tools"`
}

// List returns the tool catalog, including tools above the account's tier
// (marked inaccessible).
func (s *ToolsService) List(ctx context.Context) ([]Tool, error) {
	var resp toolsEnvelope
	if err := s.client.get(ctx, "/api/v2/tools", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tools, nil
}

// Get fetches metadata for one tool, including its option schema.
func (s *ToolsService) Get(ctx context.Context, toolID string) (*Tool, error) {
	var resp Tool
	if err := s.client.get(ctx, "/api/v2/tools/"+url.PathEscape(toolID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExecuteOptions carries the inputs for one tool invocation.
type ExecuteOptions struct {
	// Files are the primary inputs, sent as multipart file_0..file_N.
	Files []FileInput

	// AudioFiles are optional secondary inputs for video tools, sent as
	// audio_0..audio_N.
	AudioFiles []FileInput

	// Options are tool-specific settings, JSON-encoded into the options
	// form field.
	Options map[string]any

	// ValidateAgainst optionally checks Options against this tool's
	// declared option schema before any network call.
	ValidateAgainst *Tool
}

// Execute invokes a tool with files and options. The server queues the work
// and returns the job to poll.
func (s *ToolsService) Execute(ctx context.Context, toolID string, opts ExecuteOptions) (*Job, error) {
	return s.execute(ctx, toolID, "/execute", opts)
}

// BatchExecute invokes a tool in batch mode over multiple files, producing
// a single job.
func (s *ToolsService) BatchExecute(ctx context.Context, toolID string, opts ExecuteOptions) (*Job, error) {
	return s.execute(ctx, toolID, "/batch", opts)
}

func (s *ToolsService) execute(ctx context.Context, toolID, suffix string, opts ExecuteOptions) (*Job, error) {
	if toolID == "" {
		return nil, &Error{Kind: ErrorKindValidation, Message: "tool id is required"}
	}
	if len(opts.Files) == 0 {
		return nil, &Error{Kind: ErrorKindValidation, Message: "at least one input file is required"}
	}
	if opts.ValidateAgainst != nil {
		if err := opts.ValidateAgainst.ValidateOptions(opts.Options); err != nil {
			return nil, err
		}
	}

	var parts []filePart
	for i, f := range opts.Files {
		parts = append(parts, filePart{field: fmt.Sprintf("file_%d", i), file: f})
	}
	for i, f := range opts.AudioFiles {
		parts = append(parts, filePart{field: fmt.Sprintf("audio_%d", i), file: f})
	}

	fields := map[string]string{}
	if len(opts.Options) > 0 {
		encoded, err := json.Marshal(opts.Options)
		if err != nil {
			return nil, fmt.Errorf("marshaling options: %w", err)
		}
		fields["options"] = string(encoded)
	}

	body, contentType, err := buildMultipart(parts, fields)
	if err != nil {
		return nil, err
	}

	var resp jobEnvelope
	path := "/api/v2/tools/" + url.PathEscape(toolID) + suffix
	if err := s.client.postMultipart(ctx, path, body, contentType, &resp); err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

// ValidateOptions checks an options map against the tool's declared option
// schema: unknown keys are rejected, typed entries are type-checked, enum
// entries must use an allowed value, and required options must be present.
// Schema entries with shapes the SDK does not understand are accepted.
func (t *Tool) ValidateOptions(options map[string]any) error {
	for key, val := range options {
		spec, ok := t.Options[key]
		if !ok {
			return &Error{
				Kind:    ErrorKindValidation,
				Message: fmt.Sprintf("tool %s does not recognize option %q", t.ID, key),
			}
		}
		specMap, ok := spec.(map[string]any)
		if !ok {
			continue
		}
		if err := checkOptionValue(key, val, specMap); err != nil {
			return err
		}
	}

	for key, spec := range t.Options {
		specMap, ok := spec.(map[string]any)
		if !ok {
			continue
		}
		if required, _ := specMap["required"].(bool); required {
			if _, present := options[key]; !present {
				return &Error{
					Kind:    ErrorKindValidation,
					Message: fmt.Sprintf("tool %s requires option %q", t.ID, key),
				}
			}
		}
	}
	return nil
}

func checkOptionValue(key string, val any, spec map[string]any) error {
	typ, _ := spec["type"].(string)
	switch typ {
	case "string":
		if _, ok := val.(string); !ok {
			return optionTypeError(key, "string")
		}
	case "int", "integer":
		if !isIntValue(val) {
			return optionTypeError(key, "integer")
		}
	case "number", "float":
		if !isNumberValue(val) {
			return optionTypeError(key, "number")
		}
	case "bool", "boolean":
		if _, ok := val.(bool); !ok {
			return optionTypeError(key, "boolean")
		}
	case "enum":
		values, _ := spec["values"].([]any)
		for _, allowed := range values {
			if fmt.Sprint(val) == fmt.Sprint(allowed) {
				return nil
			}
		}
		return &Error{
			Kind:    ErrorKindValidation,
			Message: fmt.Sprintf("option %q must be one of %v", key, values),
		}
	}
	return nil
}

func optionTypeError(key, want string) error {
	return &Error{
		Kind:    ErrorKindValidation,
		Message: fmt.Sprintf("option %q must be a %s", key, want),
	}
}

func isIntValue(val any) bool {
	switch v := val.(type) {
	case int, int32, int64:
		return true
	case float64:
		return v == float64(int64(v))
	}
	return false
}

func isNumberValue(val any) bool {
	switch val.(type) {
	case int, int32, int64, float32, float64:
		return true
	}
	return false
}

// ChainStep is one step of a tool chain.
type ChainStep struct {
	ToolID  string         `json:"tool_id"`
	Options map[string]any `json:"options,omitempty"`
}

// Chain is a stored multi-step processing pipeline.
type Chain struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Steps       []ChainStep `json:"steps,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// CreateChainRequest is the request body for POST /api/v2/chains.
type CreateChainRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Steps       []ChainStep `json:"steps"`
}

type chainsEnvelope struct {
	Chains []Chain `json:"chains"`
}

// CreateChain stores a tool chain for automated processing.
func (s *ToolsService) CreateChain(ctx context.Context, req CreateChainRequest) (*Chain, error) {
	if req.Name == "" {
		return nil, &Error{Kind: ErrorKindValidation, Message: "chain name is required"}
	}
	if len(req.Steps) == 0 {
		return nil, &Error{Kind: ErrorKindValidation, Message: "chain needs at least one step"}
	}
	var resp Chain
	if err := s.client.post(ctx, "/api/v2/chains", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListChains returns the account's tool chains.
func (s *ToolsService) ListChains(ctx context.Context) ([]Chain, error) {
	var resp chainsEnvelope
	if err := s.client.get(ctx, "/api/v2/chains", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Chains, nil
}

// GetChain fetches one chain.
func (s *ToolsService) GetChain(ctx context.Context, chainID int) (*Chain, error) {
	var resp Chain
	if err := s.client.get(ctx, "/api/v2/chains/"+strconv.Itoa(chainID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
