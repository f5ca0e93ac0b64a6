package authapi

// LoginRequest is the body of POST /auth/login/.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned from a successful POST /auth/login/.
type LoginResponse struct {
	// Token is the short-lived JWT access token.
	// Usage: sent as "Authorization: Bearer <token>" on every API call
	// Lifespan: minutes; its "exp" claim drives proactive refresh
	Token string `json:"token"`

	// Refresh is the opaque refresh token.
	// Usage: exchanged at /auth/token-refresh/ for a new pair
	// Security: single use, the server rotates it on every exchange
	Refresh string `json:"refresh"`

	// UserID identifies the signed in user; it is echoed back on refresh.
	UserID int64 `json:"user_id"`

	// UserLevel is the approval level of the user (e.g. "L1", "L2").
	UserLevel string `json:"user_level"`
}

// RefreshRequest is the body of POST /auth/token-refresh/.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
	UserID  int64  `json:"user_id"`
}

// RefreshResponse is the rotated credential pair.
type RefreshResponse struct {
	Token   string `json:"token"`
	Refresh string `json:"refresh"`
}

// LogoutRequest is the body of POST /auth/logout/.
type LogoutRequest struct {
	Refresh string `json:"refresh"`
}

// ErrorResponse is the error body shape used by the API.
type ErrorResponse struct {
	Detail  string `json:"detail,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Text returns the first non-empty message field
func (e ErrorResponse) Text() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Message != "":
		return e.Message
	default:
		return e.Error
	}
}
