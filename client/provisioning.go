package client

import (
	"context"
	"net/url"
	"strconv"
)

// ProvisioningService handles provisioning job operations.
type ProvisioningService struct {
	c *Client
}

// jobResponse wraps a single-job API response.
type jobResponse struct {
	Data ProvisioningJob `json:"data"`
}

// jobListResponse wraps the paginated job list response.
type jobListResponse struct {
	Data    []ProvisioningJob `json:"data"`
	HasMore bool              `json:"has_more"`
}

// Schedule queues a provisioning job for the client's tenant. trigger must be
// one of SUBSCRIPTION_ACTIVATED, MANUAL_OVERRIDE, or SYSTEM_RECOVERY. Returns
// an IsConflict error when a job is already in flight.
func (s *ProvisioningService) Schedule(ctx context.Context, trigger string, metadata map[string]any) (*ProvisioningJob, error) {
	body := map[string]any{"trigger": trigger}
	if len(metadata) > 0 {
		body["metadata"] = metadata
	}

	var resp jobResponse
	if err := s.c.post(ctx, "/api/v1/provisioning/jobs", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// List returns the tenant's provisioning jobs, newest first.
func (s *ProvisioningService) List(ctx context.Context, opts *ListJobsOptions) ([]ProvisioningJob, bool, error) {
	params := url.Values{}
	if opts != nil {
		if opts.Status != "" {
			params.Set("status", opts.Status)
		}
		if opts.Limit > 0 {
			params.Set("limit", strconv.Itoa(opts.Limit))
		}
		if opts.Offset > 0 {
			params.Set("offset", strconv.Itoa(opts.Offset))
		}
	}

	var resp jobListResponse
	if err := s.c.get(ctx, "/api/v1/provisioning/jobs", params, &resp); err != nil {
		return nil, false, err
	}
	return resp.Data, resp.HasMore, nil
}

// Get returns one provisioning job by ID.
func (s *ProvisioningService) Get(ctx context.Context, jobID string) (*ProvisioningJob, error) {
	var resp jobResponse
	if err := s.c.get(ctx, "/api/v1/provisioning/jobs/"+url.PathEscape(jobID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// Events returns a job's event trail in chronological order.
func (s *ProvisioningService) Events(ctx context.Context, jobID string) ([]ProvisioningEvent, error) {
	var resp struct {
		Data []ProvisioningEvent `json:"data"`
	}
	if err := s.c.get(ctx, "/api/v1/provisioning/jobs/"+url.PathEscape(jobID)+"/events", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// RuntimeConfig returns the tenant's resolved runtime configuration. Returns
// an IsNotFound error until provisioning has completed.
func (s *ProvisioningService) RuntimeConfig(ctx context.Context) (*RuntimeConfig, error) {
	var resp struct {
		Data RuntimeConfig `json:"data"`
	}
	if err := s.c.get(ctx, "/api/v1/provisioning/config", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}
