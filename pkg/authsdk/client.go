package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the gatekeeper authentication service.
// It provides access to unauthenticated operations and creates Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register creates a new account.
func (c *SDKClient) Register(ctx context.Context, login, password string) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/register", "", RegisterRequest{
		Login:    login,
		Password: password,
	})
	if err != nil {
		return err
	}
	return decodeJSON(resp, &EmptyResponse{}, http.StatusCreated)
}

// Login exchanges credentials for a Session.
func (c *SDKClient) Login(ctx context.Context, login, password string) (*Session, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/login", "", LoginRequest{
		Login:    login,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	var out LoginResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return c.NewSession(out.AccessToken, out.ExpiresAt), nil
}

// NewSession wraps a token obtained elsewhere (e.g. stored by the caller).
func (c *SDKClient) NewSession(accessToken string, expiresAt int64) *Session {
	return &Session{
		client:      c,
		accessToken: accessToken,
		expiresAt:   time.Unix(expiresAt, 0),
	}
}

// GetLiveness checks if the service is alive.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// GetReadiness checks if the service and its dependencies are ready.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *SDKClient) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}
