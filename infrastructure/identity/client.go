// Package identity talks to the external identity provider used by the chat clients.
// The relay itself never checks tokens.
package identity

import (
	"bytes"
	"chat-relay/errors"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	JWT string `json:"jwt"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) Login(ctx context.Context, identifier, password string) (string, error) {
	return c.post(ctx, "/api/auth/local", LoginRequest{Identifier: identifier, Password: password})
}

func (c *Client) Register(ctx context.Context, username, email, password string) (string, error) {
	return c.post(ctx, "/api/auth/local/register",
		RegisterRequest{Username: username, Email: email, Password: password})
}

func (c *Client) post(ctx context.Context, path string, body any) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	if response.StatusCode >= http.StatusBadRequest {
		var failure errorResponse
		if err := json.NewDecoder(response.Body).Decode(&failure); err != nil || failure.Error.Message == "" {
			return "", fmt.Errorf("%w: status %d", errors.ErrIdentityRejected, response.StatusCode)
		}
		return "", fmt.Errorf("%w: %s", errors.ErrIdentityRejected, failure.Error.Message)
	}

	var auth authResponse
	if err := json.NewDecoder(response.Body).Decode(&auth); err != nil {
		return "", err
	}
	if auth.JWT == "" {
		return "", fmt.Errorf("%w: no token in response", errors.ErrIdentityRejected)
	}
	return auth.JWT, nil
}

// TokenExpiry reads the exp claim without verifying the signature,
// the key belongs to the identity provider. A token without exp never expires.
func TokenExpiry(token string) (*time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, nil
	}
	return &exp.Time, nil
}
