package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// User is the directory view of an account.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserClient wraps the PalettePunk core API user directory.
type UserClient struct {
	baseURL      string
	serviceToken string
	http         *http.Client
}

// NewUserClient constructs the wrapper. serviceToken authenticates this
// service against the internal directory endpoints.
func NewUserClient(baseURL, serviceToken string) *UserClient {
	return &UserClient{
		baseURL:      baseURL,
		serviceToken: serviceToken,
		http:         &http.Client{Timeout: 5 * time.Second},
	}
}

// SearchUsers finds non-banned users by name or email fragment.
func (u *UserClient) SearchUsers(ctx context.Context, query string) ([]User, error) {
	if strings.TrimSpace(query) == "" {
		return []User{}, nil
	}
	endpoint := u.baseURL + "/internal/users/search?q=" + url.QueryEscape(query)
	return u.getUsers(ctx, endpoint)
}

// BulkUsers fetches multiple users in one call.
func (u *UserClient) BulkUsers(ctx context.Context, ids []int) ([]User, error) {
	if len(ids) == 0 {
		return []User{}, nil
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.Itoa(id))
	}
	endpoint := u.baseURL + "/internal/users?ids=" + strings.Join(parts, ",")
	return u.getUsers(ctx, endpoint)
}

func (u *UserClient) getUsers(ctx context.Context, endpoint string) ([]User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if u.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+u.serviceToken)
	}

	resp, err := u.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user directory: unexpected status %d", resp.StatusCode)
	}

	var users []User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, err
	}
	return users, nil
}
