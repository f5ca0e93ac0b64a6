package authapi

// Route path constants shared by the client and the dev API.
const (
	RouteLogin        = "/auth/login/"
	RouteLogout       = "/auth/logout/"
	RouteTokenRefresh = "/auth/token-refresh/"
)
