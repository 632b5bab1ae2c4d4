package backend

import (
	"context"
	"net/http"

	"github.com/hitoshi/blogfront/internal/model"
)

// RegisterResult はユーザー登録APIのレスポンス。トークンとユーザーを同時に返す。
type RegisterResult struct {
	AccessToken string         `json:"accessToken"`
	User        model.Identity `json:"user"`
}

// Me はトークンに対応する認証済みユーザーを取得する。
// GET /auth/me
func (c *Client) Me(ctx context.Context, token string) (*model.Identity, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	var identity model.Identity
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/auth/me",
		route:  "/auth/me",
		token:  token,
	}, &identity)
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

// Login は認証情報でログインし、アクセストークンを返す。
// POST /auth/login
func (c *Client) Login(ctx context.Context, creds model.Credentials) (string, error) {
	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		route:  "/auth/login",
		body:   creds,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// Register はユーザーを登録し、アクセストークンとユーザーを返す。
// POST /auth/register
func (c *Client) Register(ctx context.Context, creds model.Credentials) (*RegisterResult, error) {
	var resp RegisterResult
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/register",
		route:  "/auth/register",
		body:   creds,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
