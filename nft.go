package zetsubou

import (
	"context"
	"net/url"
)

// NFTService manages generative NFT projects, their trait layers, and
// generation runs. Every endpoint in this group wraps its payload in a
// success flag; a false flag surfaces as an API error carrying the
// server's message.
type NFTService struct {
	client *Client
}

type nftProjectsResponse struct {
	successEnvelope
	Projects []NFTProject `json:"projects"`
}

type nftProjectResponse struct {
	successEnvelope
	Project NFTProject `json:"project"`
}

type nftLayersResponse struct {
	successEnvelope
	Layers []NFTLayer `json:"layers"`
}

type nftLayerResponse struct {
	successEnvelope
	Layer NFTLayer `json:"layer"`
}

type nftGenerationResponse struct {
	successEnvelope
	Generation NFTGeneration `json:"generation"`
}

type nftGenerationsResponse struct {
	successEnvelope
	Generations []NFTGeneration `json:"generations"`
}

// ListProjects returns the account's NFT projects. Archived projects are
// excluded unless includeArchived is set.
func (s *NFTService) ListProjects(ctx context.Context, includeArchived bool) ([]NFTProject, error) {
	var q url.Values
	if includeArchived {
		q = url.Values{"include_archived": {"true"}}
	}

	var resp nftProjectsResponse
	if err := s.client.get(ctx, "/api/v2/nft/projects", q, &resp); err != nil {
		return nil, err
	}
	if err := resp.check("list nft projects"); err != nil {
		return nil, err
	}
	return resp.Projects, nil
}

// GetProject fetches one project with its layers.
func (s *NFTService) GetProject(ctx context.Context, projectID string) (*NFTProject, error) {
	var resp nftProjectResponse
	if err := s.client.get(ctx, "/api/v2/nft/projects/"+url.PathEscape(projectID), nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.check("get nft project"); err != nil {
		return nil, err
	}
	return &resp.Project, nil
}

// CreateProjectRequest creates a new NFT project.
type CreateProjectRequest struct {
	Name             string         `json:"name"`
	Description      string         `json:"description,omitempty"`
	CollectionConfig map[string]any `json:"collection_config,omitempty"`
	GenerationConfig map[string]any `json:"generation_config,omitempty"`
}

// CreateProject creates a new NFT project.
func (s *NFTService) CreateProject(ctx context.Context, req CreateProjectRequest) (*NFTProject, error) {
	if req.Name == "" {
		return nil, &Error{Kind: ErrorKindValidation, Message: "project name is required"}
	}

	var resp nftProjectResponse
	if err := s.client.post(ctx, "/api/v2/nft/projects", req, &resp); err != nil {
		return nil, err
	}
	if err := resp.check("create nft project"); err != nil {
		return nil, err
	}
	return &resp.Project, nil
}

// UpdateProjectRequest changes project settings. Nil fields are left
// unchanged.
type UpdateProjectRequest struct {
	Name             *string        `json:"name,omitempty"`
	Description      *string        `json:"description,omitempty"`
	CollectionConfig map[string]any `json:"collection_config,omitempty"`
	GenerationConfig map[string]any `json:"generation_config,omitempty"`
	Archived         *bool          `json:"is_archived,omitempty"`
}

// UpdateProject modifies a project's name, description, configs, or
// archived state.
func (s *NFTService) UpdateProject(ctx context.Context, projectID string, req UpdateProjectRequest) (*NFTProject, error) {
	if req.Name == nil && req.Description == nil && req.CollectionConfig == nil &&
		req.GenerationConfig == nil && req.Archived == nil {
		return nil, &Error{Kind: ErrorKindValidation, Message: "nothing to update"}
	}

	var resp nftProjectResponse
	if err := s.client.patch(ctx, "/api/v2/nft/projects/"+url.PathEscape(projectID), req, &resp); err != nil {
		return nil, err
	}
	if err := resp.check("update nft project"); err != nil {
		return nil, err
	}
	return &resp.Project, nil
}

// DeleteProject archives a project, or deletes it permanently when purge
// is set.
func (s *NFTService) DeleteProject(ctx context.Context, projectID string, purge bool) error {
	var q url.Values
	if purge {
		q = url.Values{"permanent": {"true"}}
	}

	var resp successEnvelope
	if err := s.client.delete(ctx, "/api/v2/nft/projects/"+url.PathEscape(projectID), q, &resp); err != nil {
		return err
	}
	return resp.check("delete nft project")
}

// ListLayers returns a project's trait layers in stacking order. Traits
// are omitted unless includeTraits is set.
func (s *NFTService) ListLayers(ctx context.Context, projectID string, includeTraits bool) ([]NFTLayer, error) {
	var q url.Values
	if includeTraits {
		q = url.Values{"include_traits": {"true"}}
	}

	var resp nftLayersResponse
	path := "/api/v2/nft/projects/" + url.PathEscape(projectID) + "/layers"
	if err := s.client.get(ctx, path, q, &resp); err != nil {
		return nil, err
	}
	if err := resp.check("list nft layers"); err != nil {
		return nil, err
	}
	return resp.Layers, nil
}

// CreateLayerRequest adds a trait layer to a project.
type CreateLayerRequest struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// CreateLayer adds a trait layer to a project.
func (s *NFTService) CreateLayer(ctx context.Context, projectID string, req CreateLayerRequest) (*NFTLayer, error) {
	if req.Name == "" {
		return nil, &Error{Kind: ErrorKindValidation, Message: "layer name is required"}
	}

	var resp nftLayerResponse
	path := "/api/v2/nft/projects/" + url.PathEscape(projectID) + "/layers"
	if err := s.client.post(ctx, path, req, &resp); err != nil {
		return nil, err
	}
	if err := resp.check("create nft layer"); err != nil {
		return nil, err
	}
	return &resp.Layer, nil
}

// GenerateRequest starts a generation run. ConfigOverrides are merged over
// the project's generation config for this run only.
type GenerateRequest struct {
	TotalPieces     int            `json:"total_pieces"`
	ConfigOverrides map[string]any `json:"config_overrides,omitempty"`
}

// Generate starts an asynchronous generation run for a project. Track
// progress with GetGeneration.
func (s *NFTService) Generate(ctx context.Context, projectID string, req GenerateRequest) (*NFTGeneration, error) {
	if req.TotalPieces < 1 {
		return nil, &Error{Kind: ErrorKindValidation, Message: "total pieces must be at least 1"}
	}

	var resp nftGenerationResponse
	path := "/api/v2/nft/projects/" + url.PathEscape(projectID) + "/generate"
	if err := s.client.post(ctx, path, req, &resp); err != nil {
		return nil, err
	}
	if err := resp.check("start nft generation"); err != nil {
		return nil, err
	}
	return &resp.Generation, nil
}

// GetGeneration returns the state of one generation run.
func (s *NFTService) GetGeneration(ctx context.Context, generationID string) (*NFTGeneration, error) {
	var resp nftGenerationResponse
	if err := s.client.get(ctx, "/api/v2/nft/generations/"+url.PathEscape(generationID), nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.check("get nft generation"); err != nil {
		return nil, err
	}
	return &resp.Generation, nil
}

// ListGenerations returns a project's generation runs, newest first.
func (s *NFTService) ListGenerations(ctx context.Context, projectID string) ([]NFTGeneration, error) {
	var resp nftGenerationsResponse
	path := "/api/v2/nft/projects/" + url.PathEscape(projectID) + "/generations"
	if err := s.client.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.check("list nft generations"); err != nil {
		return nil, err
	}
	return resp.Generations, nil
}

// NFTLimits reports tier limits and current usage for NFT generation.
type NFTLimits struct {
	Tier   string         `json:"tier"`
	Limits map[string]any `json:"limits,omitempty"`
	Usage  map[string]any `json:"usage,omitempty"`
}

type nftLimitsResponse struct {
	successEnvelope
	NFTLimits
}

// Limits returns the account's NFT generation limits and usage.
func (s *NFTService) Limits(ctx context.Context) (*NFTLimits, error) {
	var resp nftLimitsResponse
	if err := s.client.get(ctx, "/api/v2/nft/limits", nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.check("get nft limits"); err != nil {
		return nil, err
	}
	return &resp.NFTLimits, nil
}
