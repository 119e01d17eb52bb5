package client

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) GetProject(ctx context.Context, id string) (*Project, error) {
	var p Project
	if err := c.do(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreateProject(ctx context.Context, req *CreateProjectRequest) (*Project, error) {
	var p Project
	if err := c.do(ctx, http.MethodPost, "/api/projects", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProject removes p. A project past Received is refused locally
// with ErrDeleteNotAllowed and no request is sent.
func (c *Client) DeleteProject(ctx context.Context, p *Project) error {
	if !p.CanDelete() {
		return ErrDeleteNotAllowed
	}
	return c.do(ctx, http.MethodDelete, "/api/projects/"+url.PathEscape(p.ID), nil, nil)
}

func (c *Client) UpdateStatus(ctx context.Context, id, status string) (*Project, error) {
	var p Project
	if err := c.do(ctx, http.MethodPut, "/api/projects/"+url.PathEscape(id)+"/status", map[string]string{"status": status}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

type BulkStatusResult struct {
	Updated int    `json:"updated"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (c *Client) BulkUpdateStatus(ctx context.Context, ids []string, status string) (*BulkStatusResult, error) {
	var res BulkStatusResult
	body := map[string]interface{}{"ids": ids, "status": status}
	if err := c.do(ctx, http.MethodPut, "/api/projects/status", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AssignTranslator sets the translator; nil clears it.
func (c *Client) AssignTranslator(ctx context.Context, id string, translatorID *string) (*Project, error) {
	var p Project
	body := map[string]*string{"translatorId": translatorID}
	if err := c.do(ctx, http.MethodPut, "/api/projects/"+url.PathEscape(id)+"/translator", body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// StatusOptions lists the statuses the logged-in user may set for tenant.
func (c *Client) StatusOptions(ctx context.Context, tenant string) ([]string, error) {
	var resp struct {
		Statuses []string `json:"statuses"`
	}
	path := "/api/projects/status-options"
	if tenant != "" {
		path += "?tenant=" + url.QueryEscape(tenant)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Statuses, nil
}

type Counter struct {
	Key   string `json:"key"`
	Value int64  `json:"value"`
}

// ReconcileCounter recounts the rows behind key on the server.
func (c *Client) ReconcileCounter(ctx context.Context, key string) (*Counter, error) {
	var ctr Counter
	if err := c.do(ctx, http.MethodPost, "/api/counters/"+url.PathEscape(key)+"/reconcile", nil, &ctr); err != nil {
		return nil, err
	}
	return &ctr, nil
}
