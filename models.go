package zetsubou

import (
	"encoding/json"
	"time"
)

// JobStatus is the lifecycle state of an asynchronous job.
type JobStatus string

// Job lifecycle states. Transitions are one-directional:
// queued -> running -> {completed, failed, cancelled}.
const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status is final. A terminal job never
// changes status on subsequent polls.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Job is a unit of asynchronous server-side work. The client holds a
// read-only snapshot per poll; the server owns the record.
type Job struct {
	ID          string         `json:"id"`
	ToolID      string         `json:"tool_id"`
	Status      JobStatus      `json:"status"`
	Progress    int            `json:"progress"` // 0-100
	Error       string         `json:"error,omitempty"`
	Inputs      []string       `json:"inputs,omitempty"`
	Outputs     []string       `json:"outputs,omitempty"` // result references, set once completed
	Options     map[string]any `json:"options,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   *time.Time     `json:"updated_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// jobWire mirrors Job with the alternate key spellings the server emits.
// Older endpoints use job_id/tool/input_files/output_files and the legacy
// "pending" status.
type jobWire struct {
	ID          string         `json:"id"`
	JobID       string         `json:"job_id"`
	ToolID      string         `json:"tool_id"`
	Tool        string         `json:"tool"`
	Status      string         `json:"status"`
	Progress    int            `json:"progress"`
	Error       string         `json:"error"`
	Inputs      []string       `json:"inputs"`
	InputFiles  []string       `json:"input_files"`
	Outputs     []string       `json:"outputs"`
	OutputFiles []string       `json:"output_files"`
	Options     map[string]any `json:"options"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   *time.Time     `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at"`
}

// UnmarshalJSON accepts both wire spellings for each aliased field and
// normalizes the legacy "pending" status to queued.
func (j *Job) UnmarshalJSON(data []byte) error {
	var w jobWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	j.ID = firstNonEmpty(w.ID, w.JobID)
	j.ToolID = firstNonEmpty(w.ToolID, w.Tool)
	j.Status = JobStatus(w.Status)
	if j.Status == "pending" {
		j.Status = JobStatusQueued
	}
	j.Progress = w.Progress
	j.Error = w.Error
	j.Inputs = w.Inputs
	if len(j.Inputs) == 0 {
		j.Inputs = w.InputFiles
	}
	j.Outputs = w.Outputs
	if len(j.Outputs) == 0 {
		j.Outputs = w.OutputFiles
	}
	j.Options = w.Options
	j.CreatedAt = w.CreatedAt
	j.UpdatedAt = w.UpdatedAt
	j.CompletedAt = w.CompletedAt
	return nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// Tool describes an entry in the dynamic tool catalog.
type Tool struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	Category       string         `json:"category"`
	InputType      string         `json:"input_type"`
	OutputType     string         `json:"output_type"`
	RequiredTier   string         `json:"required_tier"`
	Accessible     bool           `json:"accessible"`
	Options        map[string]any `json:"options,omitempty"` // option schema, keyed by option name
	SupportsAudio  bool           `json:"supports_audio"`
	SupportsBatch  bool           `json:"supports_batch"`
	TimeoutSeconds int            `json:"timeout_seconds"`
}

// VFSNode is a file or folder in the virtual file system.
type VFSNode struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"` // "file" or "folder"
	SizeBytes   int64     `json:"size_bytes"`
	MimeType    string    `json:"mime_type,omitempty"`
	ParentID    string    `json:"parent_id,omitempty"`
	Encrypted   bool      `json:"is_encrypted"`
	DownloadURL string    `json:"download_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsFolder reports whether the node is a folder.
func (n *VFSNode) IsFolder() bool { return n.Type == "folder" }

// ChatMessage is a single message in a conversation.
type ChatMessage struct {
	ID        int       `json:"id"`
	Role      string    `json:"role"` // "user", "assistant", "system"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatConversation is a chat thread with one model.
type ChatConversation struct {
	ID           int          `json:"id"`
	Title        string       `json:"title"`
	Model        string       `json:"model"`
	MessageCount int          `json:"message_count"`
	LastMessage  *ChatMessage `json:"last_message,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Webhook is a registered event subscription.
type Webhook struct {
	ID             int        `json:"id"`
	URL            string     `json:"url"`
	Events         []string   `json:"events"`
	Enabled        bool       `json:"enabled"`
	SuccessCount   int        `json:"success_count"`
	FailureCount   int        `json:"failure_count"`
	LastDeliveryAt *time.Time `json:"last_delivery_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Account is the authenticated user's account record.
type Account struct {
	UserID       int            `json:"user_id"`
	Username     string         `json:"username"`
	Email        string         `json:"email"`
	Tier         string         `json:"tier"`
	Subscription map[string]any `json:"subscription,omitempty"`
	Usage        map[string]any `json:"usage,omitempty"`
	Features     map[string]any `json:"features,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// StorageQuota reports VFS storage consumption for the account.
type StorageQuota struct {
	Tier           string           `json:"tier"`
	QuotaBytes     int64            `json:"quota_bytes"`
	UsedBytes      int64            `json:"used_bytes"`
	AvailableBytes int64            `json:"available_bytes"`
	UsagePercent   float64          `json:"usage_percent"`
	FileCount      int              `json:"file_count"`
	FolderCount    int              `json:"folder_count"`
	Breakdown      map[string]any   `json:"breakdown,omitempty"`
	LargestFiles   []map[string]any `json:"largest_files,omitempty"`
}

// NearQuota reports whether usage is at or above 80% of the quota, the
// threshold at which the service fires storage.quota_warning.
func (q *StorageQuota) NearQuota() bool { return q.UsagePercent >= 80 }

// APIKey is a key issued to the account. Key holds the secret and is only
// populated in the creation response.
type APIKey struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Scopes      []string   `json:"scopes"`
	DriveBypass bool       `json:"drive_bypass"`
	Key         string     `json:"key,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NFTProject is a generative NFT collection project.
type NFTProject struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Description      string         `json:"description,omitempty"`
	CollectionConfig map[string]any `json:"collection_config,omitempty"`
	GenerationConfig map[string]any `json:"generation_config,omitempty"`
	Archived         bool           `json:"is_archived"`
	ThumbnailURL     string         `json:"thumbnail_url,omitempty"`
	Layers           []NFTLayer     `json:"layers,omitempty"`
	LayerCount       int            `json:"layer_count"`
	GenerationCount  int            `json:"generation_count"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        *time.Time     `json:"updated_at,omitempty"`
}

// NFTLayer is one trait layer of an NFT project. Layers stack in Order,
// lowest first.
type NFTLayer struct {
	ID         string           `json:"id"`
	ProjectID  string           `json:"project_id"`
	Name       string           `json:"name"`
	Order      int              `json:"order"`
	TraitCount int              `json:"trait_count"`
	Traits     []map[string]any `json:"traits,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// NFTGeneration is one generation run of an NFT project.
type NFTGeneration struct {
	ID                  string     `json:"id"`
	ProjectID           string     `json:"project_id"`
	TotalPieces         int        `json:"total_pieces"`
	Status              string     `json:"status"`
	ErrorMessage        string     `json:"error_message,omitempty"`
	VFSBuildFolderID    string     `json:"vfs_build_folder_id,omitempty"`
	VFSImagesFolderID   string     `json:"vfs_images_folder_id,omitempty"`
	VFSMetadataFolderID string     `json:"vfs_metadata_folder_id,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	StartedAt           *time.Time `json:"started_at,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
}
