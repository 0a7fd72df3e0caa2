package zetsubou

import (
	"context"
	"io"
	"net/url"
	"strconv"
)

// JobsService manages jobs and job results.
type JobsService struct {
	client *Client
}

var _ StatusSource = (*JobsService)(nil)

// jobEnvelope is the {"job": ...} wrapper used by single-job endpoints.
type jobEnvelope struct {
	Job Job `json:"job"`
}

type jobsEnvelope struct {
	Jobs []Job `json:"jobs"`
}

// ListJobsOptions filters a job listing. Zero values are omitted; Limit
// defaults to 50.
type ListJobsOptions struct {
	Status JobStatus
	ToolID string
	Limit  int
	Offset int
}

// List returns jobs for the account, newest first.
func (s *JobsService) List(ctx context.Context, opts ListJobsOptions) ([]Job, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(opts.Limit))
	q.Set("offset", strconv.Itoa(opts.Offset))
	if opts.Status != "" {
		q.Set("status", string(opts.Status))
	}
	if opts.ToolID != "" {
		q.Set("tool_id", opts.ToolID)
	}

	var resp jobsEnvelope
	if err := s.client.get(ctx, "/api/v2/jobs", q, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// Get fetches the current snapshot of a job. This is the StatusSource
// implementation the waiter polls.
func (s *JobsService) Get(ctx context.Context, jobID string) (*Job, error) {
	var resp jobEnvelope
	if err := s.client.get(ctx, "/api/v2/jobs/"+url.PathEscape(jobID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

// WaitForCompletion blocks until the job reaches a terminal state, the
// deadline expires, or ctx is cancelled. See WaitForCompletion for the full
// contract.
func (s *JobsService) WaitForCompletion(ctx context.Context, jobID string, cfg PollConfig) (*Job, error) {
	return WaitForCompletion(ctx, s, jobID, cfg)
}

// Cancel cancels a queued or running job.
func (s *JobsService) Cancel(ctx context.Context, jobID string) error {
	var resp successEnvelope
	if err := s.client.post(ctx, "/api/v2/jobs/"+url.PathEscape(jobID)+"/cancel", nil, &resp); err != nil {
		return err
	}
	return resp.check("cancel job")
}

// Retry resubmits a failed job and returns the new job.
func (s *JobsService) Retry(ctx context.Context, jobID string) (*Job, error) {
	var resp jobEnvelope
	if err := s.client.post(ctx, "/api/v2/jobs/"+url.PathEscape(jobID)+"/retry", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

// Delete removes a job and frees its stored results.
func (s *JobsService) Delete(ctx context.Context, jobID string) error {
	var resp successEnvelope
	if err := s.client.delete(ctx, "/api/v2/jobs/"+url.PathEscape(jobID), nil, &resp); err != nil {
		return err
	}
	return resp.check("delete job")
}

// DownloadResults streams the job's results ZIP into w and returns the
// bytes written.
func (s *JobsService) DownloadResults(ctx context.Context, jobID string, w io.Writer) (int64, error) {
	return s.client.download(ctx, "/api/v2/jobs/"+url.PathEscape(jobID)+"/download", nil, w)
}

// JobProgress is a reduced job snapshot for progress displays.
type JobProgress struct {
	JobID    string    `json:"job_id"`
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`
	Error    string    `json:"error,omitempty"`
}

// Progress fetches the job and reduces it to a progress snapshot.
func (s *JobsService) Progress(ctx context.Context, jobID string) (*JobProgress, error) {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &JobProgress{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		Error:    job.Error,
	}, nil
}
