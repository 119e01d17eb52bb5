package client

import (
	"context"
	"sync"
)

// ProjectList accumulates pages of a project listing. A new query replaces
// what was loaded; a load-more call appends the next page.
type ProjectList struct {
	Projects    []Project
	LastDoc     string
	Count       int64
	Translators []TranslatorRef
}

// Apply merges one getProjects reply into the list.
func (l *ProjectList) Apply(resp *GetProjectsResponse, newQuery bool) {
	if newQuery {
		l.Projects = append([]Project(nil), resp.Projects...)
	} else {
		l.Projects = append(l.Projects, resp.Projects...)
	}
	l.LastDoc = resp.LastDoc
	l.Count = resp.Count
	l.Translators = resp.Translators
}

// HasMore reports whether another page can be requested.
func (l ProjectList) HasMore() bool {
	return l.LastDoc != "" && int64(len(l.Projects)) < l.Count
}

// ViewPatch changes selected parts of a ViewState. Nil fields are left
// alone.
type ViewPatch struct {
	StatusCategory *string
	Month          *int
	Year           *int
	RequestNumber  *string
	Tenant         *string
	Pagination     *PageSize
	Selected       []string
}

// ViewState is the listing screen state: the current filter, the loaded
// pages and the selected project ids. All changes go through SetState.
type ViewState struct {
	mu         sync.Mutex
	filter     Filter
	pagination PageSize
	list       ProjectList
	selected   []string
	stale      bool
	generation uint64
}

func NewViewState(filter Filter, pagination PageSize) *ViewState {
	return &ViewState{filter: filter, pagination: pagination, stale: true}
}

// SetState applies patch. Any filter or page size change marks the loaded
// list stale, so the next Load starts a new query.
func (v *ViewState) SetState(patch ViewPatch) {
	v.mu.Lock()
	defer v.mu.Unlock()

	changed := false
	setString := func(dst *string, src *string) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = true
		}
	}
	setInt := func(dst *int, src *int) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = true
		}
	}

	setString(&v.filter.StatusCategory, patch.StatusCategory)
	setInt(&v.filter.Month, patch.Month)
	setInt(&v.filter.Year, patch.Year)
	setString(&v.filter.RequestNumber, patch.RequestNumber)
	setString(&v.filter.Tenant, patch.Tenant)
	if patch.Pagination != nil && *patch.Pagination != v.pagination {
		v.pagination = *patch.Pagination
		changed = true
	}
	if patch.Selected != nil {
		v.selected = append([]string(nil), patch.Selected...)
	}

	if changed {
		v.stale = true
		v.selected = nil
		v.generation++
	}
}

// Filter returns the current filter.
func (v *ViewState) Filter() Filter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

// Projects returns a copy of the loaded list.
func (v *ViewState) Projects() ProjectList {
	v.mu.Lock()
	defer v.mu.Unlock()
	l := v.list
	l.Projects = append([]Project(nil), v.list.Projects...)
	return l
}

// Selected returns the selected project ids.
func (v *ViewState) Selected() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.selected...)
}

// nextRequest builds the getProjects payload for the next Load.
func (v *ViewState) nextRequest() *GetProjectsRequest {
	v.mu.Lock()
	defer v.mu.Unlock()
	req := &GetProjectsRequest{
		Filter:     v.filter,
		NewQuery:   v.stale,
		Pagination: v.pagination,
		generation: v.generation,
	}
	if !v.stale {
		req.LastDoc = v.list.LastDoc
	}
	return req
}

// apply stores the page fetched for req. A page for a filter that changed
// while it was in flight is dropped and the state stays stale.
func (v *ViewState) apply(req *GetProjectsRequest, resp *GetProjectsResponse) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if req.generation != v.generation {
		return false
	}
	v.list.Apply(resp, req.NewQuery)
	v.stale = false
	return true
}

// Load fetches the next page for v: the first page after a filter change,
// the following page otherwise. A failed load leaves v unchanged.
func (c *Client) Load(ctx context.Context, v *ViewState) error {
	req := v.nextRequest()
	resp, err := c.GetProjects(ctx, req)
	if err != nil {
		return err
	}
	v.apply(req, resp)
	return nil
}
