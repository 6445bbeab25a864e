package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticateResolvesActiveAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/me", r.URL.Path)
		assert.Equal(t, "Bearer good-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":7,"name":"alice","role":"artist","status":"active"}`))
	}))
	defer srv.Close()

	client := NewAuthClient(srv.URL)
	identity, err := client.Authenticate(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, 7, identity.ID)
	assert.Equal(t, "alice", identity.Name)
}

func TestAuthenticateInvalidToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewAuthClient(srv.URL)
	_, err := client.Authenticate(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticateBannedAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":7,"name":"alice","role":"artist","status":"banned"}`))
	}))
	defer srv.Close()

	client := NewAuthClient(srv.URL)
	_, err := client.Authenticate(context.Background(), "token")
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestAuthenticateForbiddenStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewAuthClient(srv.URL)
	_, err := client.Authenticate(context.Background(), "token")
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestSearchUsersEmptyQueryShortCircuits(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := NewUserClient(srv.URL, "svc-token")
	users, err := client.SearchUsers(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.False(t, called)
}

func TestBulkUsersBuildsIDList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/internal/users", r.URL.Path)
		assert.Equal(t, "1,2,3", r.URL.Query().Get("ids"))
		assert.Equal(t, "Bearer svc-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"name":"a"},{"id":2,"name":"b"},{"id":3,"name":"c"}]`))
	}))
	defer srv.Close()

	client := NewUserClient(srv.URL, "svc-token")
	users, err := client.BulkUsers(context.Background(), []int{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "b", users[1].Name)
}

func TestBulkUsersEmptyInput(t *testing.T) {
	client := NewUserClient("http://unused", "")
	users, err := client.BulkUsers(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}
