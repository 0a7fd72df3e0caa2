package zetsubou

import (
	"context"
	"encoding/json"
	"fmt"
)

// GraphQLService executes raw GraphQL documents against the experimental
// /api/graphql endpoint. The typed services cover the stable surface;
// this exists for queries they do not.
type GraphQLService struct {
	client *Client
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// GraphQLError is one entry of a GraphQL errors array.
type GraphQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// Query executes a GraphQL document and decodes the data object into out.
// A non-empty errors array surfaces as an API error carrying the first
// message; out may be nil to discard the data.
func (s *GraphQLService) Query(ctx context.Context, query string, variables map[string]any, out any) error {
	if query == "" {
		return &Error{Kind: ErrorKindValidation, Message: "graphql query is required"}
	}

	var resp graphqlResponse
	req := graphqlRequest{Query: query, Variables: variables}
	if err := s.client.post(ctx, "/api/graphql", req, &resp); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		return &Error{Kind: ErrorKindAPI, Message: resp.Errors[0].Message}
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decoding graphql data: %w", err)
	}
	return nil
}

// Mutate executes a mutation document. It is Query under a clearer name.
func (s *GraphQLService) Mutate(ctx context.Context, mutation string, variables map[string]any, out any) error {
	return s.Query(ctx, mutation, variables, out)
}

// Health runs the health query and returns the reported status string.
func (s *GraphQLService) Health(ctx context.Context) (string, error) {
	var out struct {
		Health string `json:"health"`
	}
	if err := s.Query(ctx, "{ health }", nil, &out); err != nil {
		return "", err
	}
	return out.Health, nil
}
