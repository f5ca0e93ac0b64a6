package authapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/budget-dashboard/authapi"
	dasherrors "github.com/jrsteele09/budget-dashboard/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestClient_Login(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, authapi.RouteLogin, r.URL.Path)
		var req authapi.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"bad credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(authapi.LoginResponse{Token: "abc", Refresh: "xyz", UserID: 7, UserLevel: "L2"})
	}))
	defer srv.Close()

	c := authapi.New(srv.URL+"/", time.Second)

	resp, err := c.Login(context.Background(), "jane", "secret")
	require.NoError(t, err)
	require.Equal(t, "abc", resp.Token)
	require.Equal(t, int64(7), resp.UserID)

	_, err = c.Login(context.Background(), "jane", "wrong")
	require.ErrorIs(t, err, dasherrors.ErrInvalidCredentials)
	require.Contains(t, err.Error(), "bad credentials")
}

func TestClient_RefreshToken(t *testing.T) {
	var got authapi.RefreshRequest
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, authapi.RouteTokenRefresh, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(status)
		if status == http.StatusOK {
			_ = json.NewEncoder(w).Encode(authapi.RefreshResponse{Token: "new-access", Refresh: "new-refresh"})
		}
	}))
	defer srv.Close()

	c := authapi.New(srv.URL, time.Second)

	tokens, err := c.RefreshToken(context.Background(), "xyz", 7)
	require.NoError(t, err)
	require.Equal(t, "new-access", tokens.Token)
	require.Equal(t, "new-refresh", tokens.Refresh)
	require.Equal(t, authapi.RefreshRequest{Refresh: "xyz", UserID: 7}, got)

	status = http.StatusBadRequest
	_, err = c.RefreshToken(context.Background(), "xyz", 7)
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, dasherrors.StatusCode(err))
}

func TestClient_RefreshTokenTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := authapi.New(srv.URL, 50*time.Millisecond)
	_, err := c.RefreshToken(context.Background(), "xyz", 7)
	require.ErrorIs(t, err, dasherrors.ErrNetwork)
}

func TestClient_Logout(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := authapi.New(srv.URL, time.Second).Logout(context.Background(), "abc", "xyz")
	require.NoError(t, err)
	require.Equal(t, "Bearer abc", auth)
}

func TestErrorMessage(t *testing.T) {
	require.Equal(t, "nope", authapi.ErrorMessage([]byte(`{"detail":"nope"}`), 400))
	require.Equal(t, "boom", authapi.ErrorMessage([]byte(`{"message":"boom"}`), 500))
	require.Equal(t, "Internal Server Error", authapi.ErrorMessage([]byte(`<html>`), 500))
	require.Equal(t, "Forbidden", authapi.ErrorMessage(nil, 403))
}
