package zetsubou

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"
)

// VFSService manages the encrypted virtual file system: nodes, uploads,
// downloads, and folders.
type VFSService struct {
	client *Client
}

type nodeEnvelope struct {
	Node VFSNode `json:"node"`
}

type nodesEnvelope struct {
	Nodes []VFSNode `json:"nodes"`
}

// ListNodesOptions filters a node listing. Limit defaults to 100.
type ListNodesOptions struct {
	ParentID string
	Type     string // "file" or "folder"
	Limit    int
	Offset   int
}

// ListNodes lists files and folders.
func (s *VFSService) ListNodes(ctx context.Context, opts ListNodesOptions) ([]VFSNode, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(opts.Limit))
	q.Set("offset", strconv.Itoa(opts.Offset))
	if opts.ParentID != "" {
		q.Set("parent_id", opts.ParentID)
	}
	if opts.Type != "" {
		q.Set("type", opts.Type)
	}

	var resp nodesEnvelope
	if err := s.client.get(ctx, "/api/v2/vfs/nodes", q, &resp); err != nil {
		return nil, err
	}
	return resp.Nodes, nil
}

// GetNode fetches one node.
func (s *VFSService) GetNode(ctx context.Context, nodeID string) (*VFSNode, error) {
	var resp nodeEnvelope
	if err := s.client.get(ctx, "/api/v2/vfs/nodes/"+url.PathEscape(nodeID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Node, nil
}

// UploadRequest describes one file upload.
type UploadRequest struct {
	File     FileInput
	ParentID string // destination folder, root when empty
	Encrypt  bool
}

// Upload stores a file, optionally encrypted at rest.
func (s *VFSService) Upload(ctx context.Context, req UploadRequest) (*VFSNode, error) {
	if req.File.Reader == nil {
		return nil, &Error{Kind: ErrorKindValidation, Message: "upload file is required"}
	}

	fields := map[string]string{"encrypt": strconv.FormatBool(req.Encrypt)}
	if req.ParentID != "" {
		fields["parent_id"] = req.ParentID
	}
	body, contentType, err := buildMultipart([]filePart{{field: "file", file: req.File}}, fields)
	if err != nil {
		return nil, err
	}

	var resp nodeEnvelope
	if err := s.client.postMultipart(ctx, "/api/v2/vfs/upload", body, contentType, &resp); err != nil {
		return nil, err
	}
	return &resp.Node, nil
}

// defaultUploadConcurrency bounds UploadMany when the caller passes zero.
const defaultUploadConcurrency = 4

// UploadMany uploads files in parallel, at most concurrency at a time.
// Results preserve input order. The first failure cancels the remaining
// uploads and is returned.
func (s *VFSService) UploadMany(ctx context.Context, reqs []UploadRequest, concurrency int) ([]VFSNode, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	if concurrency <= 0 {
		concurrency = defaultUploadConcurrency
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(int64(concurrency))
	var wg sync.WaitGroup
	nodes := make([]VFSNode, len(reqs))
	errs := make([]error, len(reqs))

	for i, req := range reqs {
		if err := sem.Acquire(ctx, 1); err != nil {
			errs[i] = err
			break
		}
		wg.Add(1)
		go func(i int, req UploadRequest) {
			defer wg.Done()
			defer sem.Release(1)
			node, err := s.Upload(ctx, req)
			if err != nil {
				errs[i] = err
				cancel()
				return
			}
			nodes[i] = *node
		}(i, req)
	}
	wg.Wait()

	var firstErr error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = err
		}
		if !errors.Is(err, context.Canceled) {
			return nil, err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nodes, nil
}

// Download streams a file's content into w and returns the bytes written.
func (s *VFSService) Download(ctx context.Context, nodeID string, w io.Writer) (int64, error) {
	return s.client.download(ctx, "/api/v2/vfs/nodes/"+url.PathEscape(nodeID)+"/download", nil, w)
}

type createFolderRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

type folderEnvelope struct {
	Folder VFSNode `json:"folder"`
}

// CreateFolder creates a folder under parentID, or at the root when
// parentID is empty.
func (s *VFSService) CreateFolder(ctx context.Context, name, parentID string) (*VFSNode, error) {
	if name == "" {
		return nil, &Error{Kind: ErrorKindValidation, Message: "folder name is required"}
	}
	var resp folderEnvelope
	req := createFolderRequest{Name: name, ParentID: parentID}
	if err := s.client.post(ctx, "/api/v2/vfs/folders", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Folder, nil
}

// UpdateNodeRequest renames and/or moves a node. Nil fields are left
// unchanged.
type UpdateNodeRequest struct {
	Name     *string `json:"name,omitempty"`
	ParentID *string `json:"parent_id,omitempty"`
}

// UpdateNode renames or moves a node.
func (s *VFSService) UpdateNode(ctx context.Context, nodeID string, req UpdateNodeRequest) (*VFSNode, error) {
	if req.Name == nil && req.ParentID == nil {
		return nil, &Error{Kind: ErrorKindValidation, Message: "nothing to update"}
	}
	var resp nodeEnvelope
	if err := s.client.patch(ctx, "/api/v2/vfs/nodes/"+url.PathEscape(nodeID), req, &resp); err != nil {
		return nil, err
	}
	return &resp.Node, nil
}

// DeleteNode soft-deletes a node.
func (s *VFSService) DeleteNode(ctx context.Context, nodeID string) error {
	var resp successEnvelope
	if err := s.client.delete(ctx, "/api/v2/vfs/nodes/"+url.PathEscape(nodeID), nil, &resp); err != nil {
		return err
	}
	return resp.check("delete node")
}

// FolderContents lists the nodes directly inside a folder.
func (s *VFSService) FolderContents(ctx context.Context, folderID string) ([]VFSNode, error) {
	return s.ListNodes(ctx, ListNodesOptions{ParentID: folderID})
}

// SearchOptions filters SearchFiles. Matching happens client-side over a
// node listing.
type SearchOptions struct {
	NamePattern string // case-insensitive substring of the file name
	MimeType    string // exact match
	Limit       int    // listing page size, default 100
}

// SearchFiles lists files matching the options. Folders are always
// excluded.
func (s *VFSService) SearchFiles(ctx context.Context, opts SearchOptions) ([]VFSNode, error) {
	nodes, err := s.ListNodes(ctx, ListNodesOptions{Limit: opts.Limit})
	if err != nil {
		return nil, err
	}

	var results []VFSNode
	for _, node := range nodes {
		if node.Type != "file" {
			continue
		}
		if opts.NamePattern != "" && !strings.Contains(strings.ToLower(node.Name), strings.ToLower(opts.NamePattern)) {
			continue
		}
		if opts.MimeType != "" && node.MimeType != opts.MimeType {
			continue
		}
		results = append(results, node)
	}
	return results, nil
}
