package devapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/budget-dashboard/authapi"
	"github.com/jrsteele09/budget-dashboard/devapi"
	fakeuserrepo "github.com/jrsteele09/budget-dashboard/devapi/users/repofake"
	"github.com/jrsteele09/budget-dashboard/internal/config"
	"github.com/jrsteele09/budget-dashboard/token"
	refreshrepofake "github.com/jrsteele09/budget-dashboard/token/refresh/repofake"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) (*devapi.Server, *httptest.Server) {
	t.Helper()
	cfg := config.FromValues(map[string]any{
		"env":           "TEST",
		"devapi.secret": testSecret,
	})
	s := devapi.New(cfg, fakeuserrepo.NewFakeUserRepo(), refreshrepofake.NewFakeRefreshTokenRepo())
	_, err := s.SeedUser("jane", "Secret123", "L2")
	require.NoError(t, err)

	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return s, srv
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func login(t *testing.T, baseURL string) authapi.LoginResponse {
	t.Helper()
	var resp authapi.LoginResponse
	status := postJSON(t, baseURL+devapi.RouteAuthLogin, authapi.LoginRequest{Username: "jane", Password: "Secret123"}, &resp)
	require.Equal(t, http.StatusOK, status)
	return resp
}

func get(t *testing.T, url, bearer string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}

func TestLogin(t *testing.T) {
	_, srv := newTestServer(t)

	t.Run("valid credentials", func(t *testing.T) {
		resp := login(t, srv.URL)
		require.NotEmpty(t, resp.Token)
		require.NotEmpty(t, resp.Refresh)
		require.Equal(t, int64(1), resp.UserID)
		require.Equal(t, "L2", resp.UserLevel)

		claims, err := token.Decode(resp.Token)
		require.NoError(t, err)
		require.Equal(t, "1", claims.Subject)
	})

	t.Run("wrong password", func(t *testing.T) {
		status := postJSON(t, srv.URL+devapi.RouteAuthLogin, authapi.LoginRequest{Username: "jane", Password: "nope"}, nil)
		require.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("missing fields", func(t *testing.T) {
		status := postJSON(t, srv.URL+devapi.RouteAuthLogin, map[string]string{"username": "jane"}, nil)
		require.Equal(t, http.StatusBadRequest, status)
	})
}

func TestTokenRefresh_RotatesSingleUseTokens(t *testing.T) {
	s, srv := newTestServer(t)
	first := login(t, srv.URL)

	var rotated authapi.RefreshResponse
	status := postJSON(t, srv.URL+devapi.RouteTokenRefresh, authapi.RefreshRequest{Refresh: first.Refresh, UserID: first.UserID}, &rotated)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, rotated.Token)
	require.NotEqual(t, first.Refresh, rotated.Refresh)

	status = postJSON(t, srv.URL+devapi.RouteTokenRefresh, authapi.RefreshRequest{Refresh: first.Refresh, UserID: first.UserID}, nil)
	require.Equal(t, http.StatusUnauthorized, status, "refresh tokens are single use")

	status = postJSON(t, srv.URL+devapi.RouteTokenRefresh, authapi.RefreshRequest{Refresh: rotated.Refresh, UserID: 99}, nil)
	require.Equal(t, http.StatusUnauthorized, status, "user id must match")

	require.Equal(t, int64(3), s.RefreshCount())
}

func TestTokenRefresh_ForcedFailures(t *testing.T) {
	s, srv := newTestServer(t)
	s.FailNextRefreshes(1)

	first := login(t, srv.URL)
	status := postJSON(t, srv.URL+devapi.RouteTokenRefresh, authapi.RefreshRequest{Refresh: first.Refresh, UserID: first.UserID}, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	second := login(t, srv.URL)
	status = postJSON(t, srv.URL+devapi.RouteTokenRefresh, authapi.RefreshRequest{Refresh: second.Refresh, UserID: second.UserID}, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	_, srv := newTestServer(t)
	resp := login(t, srv.URL)

	status := postJSON(t, srv.URL+devapi.RouteAuthLogout, authapi.LogoutRequest{Refresh: resp.Refresh}, nil)
	require.Equal(t, http.StatusNoContent, status)

	status = postJSON(t, srv.URL+devapi.RouteTokenRefresh, authapi.RefreshRequest{Refresh: resp.Refresh, UserID: resp.UserID}, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestResource_RequiresValidBearer(t *testing.T) {
	_, srv := newTestServer(t)
	resp := login(t, srv.URL)

	status, _ := get(t, srv.URL+"/api/transfers/", "")
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = get(t, srv.URL+"/api/transfers/", "garbage")
	require.Equal(t, http.StatusUnauthorized, status)

	status, body := get(t, srv.URL+"/api/transfers/", resp.Token)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "transfers", body["resource"])
	require.Equal(t, float64(1), body["user_id"])

	status, body = get(t, srv.URL+"/api/invoices/42/", resp.Token)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "42", body["id"])

	t.Run("expired token", func(t *testing.T) {
		past := token.NewManager(token.NewHMACSigner(testSecret),
			token.WithAccessTokenExpiry(time.Minute),
			token.WithNowFunc(func() time.Time { return time.Now().Add(-time.Hour) }),
		)
		stale, err := past.CreateAccessToken(1, "L2")
		require.NoError(t, err)

		status, body := get(t, srv.URL+"/api/transfers/", stale)
		require.Equal(t, http.StatusUnauthorized, status)
		require.NotEmpty(t, body["detail"])
	})
}

func TestResource_PostEchoesData(t *testing.T) {
	_, srv := newTestServer(t)
	resp := login(t, srv.URL)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/transfers/", bytes.NewReader([]byte(`{"amount":250}`)))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusCreated, res.StatusCode)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.JSONEq(t, `{"resource":"transfers","user_id":1,"user_level":"L2","data":{"amount":250}}`, string(body))
}

func TestMetricsEndpoint(t *testing.T) {
	_, srv := newTestServer(t)
	login(t, srv.URL)

	res, err := http.Get(srv.URL + devapi.RouteMetrics)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `devapi_http_requests_total{method="POST",path="/auth/login/",status="200"} 1`)
}
