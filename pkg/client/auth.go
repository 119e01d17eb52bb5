package client

import (
	"context"
	"net/http"
	"time"
)

type LoginResult struct {
	Token    string    `json:"token"`
	User     *User     `json:"user"`
	ExpireAt time.Time `json:"expireAt"`
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var res LoginResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &res); err != nil {
		return nil, err
	}
	c.setToken(res.Token)
	return &res, nil
}

// Me returns the logged-in account.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
