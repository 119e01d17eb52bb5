package client

import "context"

// GetProjects fetches one page of projects for the filter.
func (c *Client) GetProjects(ctx context.Context, req *GetProjectsRequest) (*GetProjectsResponse, error) {
	var resp GetProjectsResponse
	if err := c.Call(ctx, "getProjects", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyToken asks whether token is still accepted.
func (c *Client) VerifyToken(ctx context.Context, token string) (bool, error) {
	var resp struct {
		Valid bool `json:"valid"`
	}
	if err := c.Call(ctx, "verifyToken", map[string]string{"token": token}, &resp); err != nil {
		return false, err
	}
	return resp.Valid, nil
}

type AssignClaimsRequest struct {
	UID        string `json:"uid"`
	Role       string `json:"role"`
	Tenant     string `json:"tenant,omitempty"`
	Department string `json:"department,omitempty"`
}

// AssignUserClaims replaces a user's role and scope. The user's existing
// tokens stop verifying.
func (c *Client) AssignUserClaims(ctx context.Context, req *AssignClaimsRequest) (*User, error) {
	var u User
	if err := c.Call(ctx, "assignUserClaims", req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SaveUserRequest creates a user when UID is empty and updates it otherwise.
type SaveUserRequest struct {
	UID        string `json:"uid,omitempty"`
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
	Password   string `json:"password,omitempty"`
	PhotoURL   string `json:"photoUrl,omitempty"`
	Role       string `json:"role,omitempty"`
	Tenant     string `json:"tenant,omitempty"`
	Department string `json:"department,omitempty"`
	IsActive   *bool  `json:"isActive,omitempty"`
}

func (c *Client) SaveUser(ctx context.Context, req *SaveUserRequest) (*User, error) {
	var u User
	if err := c.Call(ctx, "saveUser", req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) RemoveUser(ctx context.Context, uid string) error {
	return c.Call(ctx, "removeUser", map[string]string{"uid": uid}, nil)
}

func (c *Client) GetTenants(ctx context.Context) ([]Tenant, error) {
	var resp struct {
		Tenants []Tenant `json:"tenants"`
	}
	if err := c.Call(ctx, "getTenants", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tenants, nil
}

// GetTranslatorUsers lists users of role in tenant; an empty or "All"
// department covers the whole tenant.
func (c *Client) GetTranslatorUsers(ctx context.Context, tenant, role, department string) ([]User, error) {
	payload := map[string]string{"tenant": tenant, "role": role, "department": department}
	var resp struct {
		Users []User `json:"users"`
	}
	if err := c.Call(ctx, "getTranslatorUsers", payload, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

type UserNameQuery struct {
	ProjectID string `json:"projectId"`
	UID       string `json:"uid"`
}

// UserName is nil when the uid is unknown.
type UserName struct {
	ProjectID string  `json:"projectId"`
	UID       string  `json:"uid"`
	Name      *string `json:"name"`
}

func (c *Client) GetUsersNames(ctx context.Context, queries []UserNameQuery) ([]UserName, error) {
	var resp struct {
		Users []UserName `json:"users"`
	}
	if err := c.Call(ctx, "getUsersNames", map[string]interface{}{"users": queries}, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}
