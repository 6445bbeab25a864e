package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	// ErrAccountInactive means the credential resolved but the account is
	// banned or deleted.
	ErrAccountInactive = errors.New("account is not active")
)

// Identity is the resolved view of a bearer credential.
type Identity struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// AuthClient resolves bearer tokens against the PalettePunk core API.
type AuthClient struct {
	baseURL string
	http    *http.Client
}

// NewAuthClient constructs the wrapper.
func NewAuthClient(baseURL string) *AuthClient {
	return &AuthClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Authenticate resolves the token to an active account identity. Accounts in
// any status other than "active" yield ErrAccountInactive.
func (a *AuthClient) Authenticate(ctx context.Context, token string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/auth/me", nil)
	if err != nil {
		return Identity{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.http.Do(req)
	if err != nil {
		return Identity{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return Identity{}, ErrInvalidToken
	case http.StatusForbidden:
		return Identity{}, ErrAccountInactive
	default:
		return Identity{}, fmt.Errorf("auth resolve: unexpected status %d", resp.StatusCode)
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return Identity{}, err
	}
	if identity.ID == 0 {
		return Identity{}, ErrInvalidToken
	}
	if identity.Status != "" && identity.Status != "active" {
		return Identity{}, ErrAccountInactive
	}
	return identity, nil
}
