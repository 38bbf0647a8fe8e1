package api

import (
	"context"
	"fmt"
	"net/url"

	"werss_bot/internal/model"
)

// Login exchanges credentials for an access token.
func (a *API) Login(ctx context.Context, username, password string) (*model.Token, error) {
	form := url.Values{
		"username": {username},
		"password": {password},
	}
	var tok model.Token
	if err := a.b.PostForm(ctx, path("auth", "token"), form, &tok); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("login: empty access token")
	}
	return &tok, nil
}

// Profile returns the logged-in user.
func (a *API) Profile(ctx context.Context) (*model.User, error) {
	var u model.User
	if err := a.b.Get(ctx, path("user"), nil, &u); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &u, nil
}
