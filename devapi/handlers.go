package devapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/jrsteele09/budget-dashboard/authapi"
	dasherrors "github.com/jrsteele09/budget-dashboard/internal/errors"
)

const (
	contentTypeJSON = "application/json"
	maxBodyBytes    = 1 << 20
)

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// LoginHandler exchanges username and password for a token pair
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authapi.LoginRequest
		if err := decodeJSON(r, &req); err != nil || req.Username == "" || req.Password == "" {
			writeJSONError(w, "username and password are required", http.StatusBadRequest)
			return
		}

		user, err := s.users.GetByUsername(req.Username)
		if err != nil || user.Blocked || !user.CheckPassword(req.Password) {
			s.logger.Info().Str("username", req.Username).Msg("login rejected")
			writeJSONError(w, "No active account found with the given credentials", http.StatusUnauthorized)
			return
		}

		access, err := s.tokens.CreateAccessToken(user.ID, user.UserLevel)
		if err != nil {
			s.logger.Err(err).Msg("failed to create access token")
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		refreshToken, err := s.refresh.Create(user.ID, user.UserLevel)
		if err != nil {
			s.logger.Err(err).Msg("failed to create refresh token")
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		_ = s.users.SetLastLogin(user.ID)

		writeJSON(w, http.StatusOK, authapi.LoginResponse{
			Token:     access,
			Refresh:   refreshToken,
			UserID:    user.ID,
			UserLevel: user.UserLevel,
		})
	}
}

// TokenRefreshHandler rotates a refresh token. Every refresh token is single
// use: presenting it a second time fails with 401.
func (s *Server) TokenRefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.refreshCount.Add(1)

		if d := time.Duration(s.refreshDelay.Load()); d > 0 {
			select {
			case <-time.After(d):
			case <-r.Context().Done():
				return
			}
		}

		var req authapi.RefreshRequest
		if err := decodeJSON(r, &req); err != nil || req.Refresh == "" {
			writeJSONError(w, "refresh is required", http.StatusBadRequest)
			return
		}

		if s.consumeForcedFailure() {
			s.refresh.Revoke(req.Refresh)
			writeJSONError(w, "Token is invalid or expired", http.StatusUnauthorized)
			return
		}

		stored, next, err := s.refresh.Rotate(req.Refresh, req.UserID)
		if err != nil {
			status := http.StatusUnauthorized
			if !errors.Is(err, dasherrors.ErrInvalidRefreshToken) && !errors.Is(err, dasherrors.ErrRefreshTokenExpired) {
				status = http.StatusInternalServerError
			}
			s.logger.Info().Err(err).Int64("user_id", req.UserID).Msg("refresh rejected")
			writeJSONError(w, "Token is invalid or expired", status)
			return
		}

		if user, err := s.users.GetByID(stored.UserID); err != nil || user.Blocked {
			s.refresh.Revoke(next)
			writeJSONError(w, "Token is invalid or expired", http.StatusUnauthorized)
			return
		}

		access, err := s.tokens.CreateAccessToken(stored.UserID, stored.UserLevel)
		if err != nil {
			s.logger.Err(err).Msg("failed to create access token")
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, authapi.RefreshResponse{Token: access, Refresh: next})
	}
}

func (s *Server) consumeForcedFailure() bool {
	for {
		n := s.failRefreshes.Load()
		if n <= 0 {
			return false
		}
		if s.failRefreshes.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// LogoutHandler revokes the presented refresh token. Unknown tokens are not an error.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authapi.LogoutRequest
		if err := decodeJSON(r, &req); err != nil {
			writeJSONError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Refresh != "" {
			s.refresh.Revoke(req.Refresh)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ResourceHandler answers every business route with a small JSON document
// naming the caller, so clients can check whose credentials were used.
func (s *Server) ResourceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeJSONError(w, "Authentication credentials were not provided.", http.StatusUnauthorized)
			return
		}

		resp := map[string]any{
			"resource":   r.PathValue("resource"),
			"user_id":    claims.UserID,
			"user_level": claims.UserLevel,
		}
		if id := r.PathValue("id"); id != "" {
			resp["id"] = id
		}

		switch r.Method {
		case http.MethodGet:
			resp["results"] = []any{}
			writeJSON(w, http.StatusOK, resp)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
			if err != nil {
				writeJSONError(w, "invalid request body", http.StatusBadRequest)
				return
			}
			if len(body) > 0 {
				if !json.Valid(body) {
					writeJSONError(w, "JSON parse error", http.StatusBadRequest)
					return
				}
				resp["data"] = json.RawMessage(body)
			}
			status := http.StatusOK
			if r.Method == http.MethodPost {
				status = http.StatusCreated
			}
			writeJSON(w, status, resp)
		}
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes an error body the client's ErrorMessage understands
func writeJSONError(w http.ResponseWriter, detail string, statusCode int) {
	writeJSON(w, statusCode, authapi.ErrorResponse{Detail: detail})
}
