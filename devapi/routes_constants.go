package devapi

import "github.com/jrsteele09/budget-dashboard/authapi"

// Route path constants. The auth routes are shared with the client driver so
// both sides agree on the wire contract.
const (
	RouteAuthLogin    = authapi.RouteLogin
	RouteAuthLogout   = authapi.RouteLogout
	RouteTokenRefresh = authapi.RouteTokenRefresh

	// Business stubs, one handler for every resource
	RouteAPIResource     = "/api/{resource}/"
	RouteAPIResourceItem = "/api/{resource}/{id}/"

	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
