package api

import (
	"context"
	"fmt"
	"net/url"
)

// LoginForm carries the credentials for /v1/auth/login
type LoginForm struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the authority's answer to a login attempt
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
	Error       string `json:"error"`
}

// Profile is the authenticated account view from /v1/auth/me
type Profile struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	XP          int    `json:"xp"`
	Rank        string `json:"rank"`
	NextRank    string `json:"next_rank"`
	NextRankXP  int    `json:"next_rank_xp"`
	StreakDays  int    `json:"streak_days"`
	LabsSolved  int    `json:"labs_solved"`
	LabsStarted int    `json:"labs_started"`
}

// Login exchanges credentials for a bearer token
func (c *Client) Login(ctx context.Context, form LoginForm) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.post(ctx, "/v1/auth/login", false, form, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		if out.Error != "" {
			return nil, fmt.Errorf("login rejected: %s", out.Error)
		}
		return nil, fmt.Errorf("login rejected")
	}
	return &out, nil
}

// Logout invalidates the server-side session (token_version bump).
// Best effort; the local credential is cleared regardless.
func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "/v1/auth/logout", true, struct{}{}, nil)
}

// Me fetches the authenticated profile
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.getWithRetries(ctx, "/v1/auth/me", true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeviceLinked reports whether the device is associated with any
// account server-side.
func (c *Client) DeviceLinked(ctx context.Context, deviceID string) (bool, error) {
	var out struct {
		Linked bool `json:"linked"`
	}
	path := "/v1/auth/device-linked/" + url.PathEscape(deviceID)
	if err := c.get(ctx, path, false, &out); err != nil {
		return false, err
	}
	return out.Linked, nil
}
