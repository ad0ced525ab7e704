package todostore

import (
	"context"
	"net/http"

	"nestodo/app/models"
)

// AuthClient is the client side of the account and session API.
type AuthClient struct {
	api apiClient
}

// NewAuthClient returns a client for the API at baseURL. token may be empty
// before login.
func NewAuthClient(baseURL, token string) *AuthClient {
	return &AuthClient{api: newAPIClient(baseURL, token)}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// Signup creates an account. It does not log in.
func (c *AuthClient) Signup(ctx context.Context, email, password, name string) (models.User, error) {
	var u models.User
	status, err := c.api.do(ctx, http.MethodPost, "/api/account", credentials{Email: email, Password: password, Name: name}, &u)
	if status == http.StatusConflict {
		return u, ErrAccountExists
	}
	return u, err
}

// Login creates a session.
func (c *AuthClient) Login(ctx context.Context, email, password string) (models.Session, error) {
	var s models.Session
	status, err := c.api.do(ctx, http.MethodPost, "/api/session", credentials{Email: email, Password: password}, &s)
	if status == http.StatusUnauthorized {
		return s, ErrInvalidCredentials
	}
	return s, err
}

// Current returns the user of the client's token.
func (c *AuthClient) Current(ctx context.Context) (models.User, error) {
	var u models.User
	status, err := c.api.do(ctx, http.MethodGet, "/api/session", nil, &u)
	if status == http.StatusUnauthorized {
		return u, ErrUnauthorized
	}
	return u, err
}

// Logout destroys the client's session.
func (c *AuthClient) Logout(ctx context.Context) error {
	status, err := c.api.do(ctx, http.MethodDelete, "/api/session", nil, nil)
	if status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return err
}
