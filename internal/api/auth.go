package api

import (
	"context"
	"errors"
	"net/http"
)

// LoginResult is the token and user returned by a successful login.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Login exchanges credentials for a bearer token. A single round trip, no retries.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	var out LoginResult
	if err := c.do(ctx, "auth.login", http.MethodPost, "/auth/login", nil, creds, &out); err != nil {
		return LoginResult{}, err
	}
	if out.Token == "" || (out.User.ID == "" && out.User.Email == "") {
		return LoginResult{}, errors.New("login response missing token or user")
	}
	return out, nil
}

// Profile fetches the user the client's token belongs to.
func (c *Client) Profile(ctx context.Context) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.get(ctx, "auth.profile", "/auth/profile", nil, &out); err != nil {
		return User{}, err
	}
	return out.User, nil
}
