package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/GophTodo/internal/models"
	"github.com/atinyakov/GophTodo/internal/token"
)

const (
	apiLogin    = "/auth/login"
	apiRegister = "/auth/register"
	apiVerify   = "/auth/verify"
)

// Login exchanges credentials for an access token and stores it.
func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	req := models.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, apiLogin, nil, req, &resp); err != nil {
		return nil, err
	}
	if err := c.storeToken(resp.AccessToken); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account and stores the returned access token.
func (c *Client) Register(ctx context.Context, name, email, password string) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	req := models.RegisterRequest{Name: name, Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, apiRegister, nil, req, &resp); err != nil {
		return nil, err
	}
	if err := c.storeToken(resp.AccessToken); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) storeToken(tok string) error {
	if tok == "" {
		return nil
	}
	return c.tokens.Save(tok)
}

// Logout forgets the local credential. The server keeps no session state.
func (c *Client) Logout() {
	if err := c.tokens.Clear(); err != nil {
		c.log.Error("failed to clear token", zap.Error(err))
	}
	if err := c.tokens.ClearUser(); err != nil {
		c.log.Error("failed to clear cached user", zap.Error(err))
	}
}

// VerifyToken reports whether the stored credential is still accepted.
// A decodable token whose exp has passed is rejected without a request and
// cleared along with the cached user; anything else is checked by the server. A 401 yields false with
// no error. Transport failures return the error and keep the credential.
func (c *Client) VerifyToken(ctx context.Context) (bool, error) {
	tok, ok := c.tokens.Get()
	if !ok {
		return false, nil
	}

	if claims, ok := token.DecodeClaims(tok); ok && claims.Expired(time.Now()) {
		c.log.Info("stored credential has expired")
		c.Logout()
		return false, nil
	}

	err := c.do(ctx, http.MethodPost, apiVerify, nil, nil, nil)
	switch {
	case err == nil:
		return true, nil
	case IsUnauthorized(err):
		return false, nil
	default:
		return false, err
	}
}
