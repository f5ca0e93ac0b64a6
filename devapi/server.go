package devapi

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/budget-dashboard/devapi/users"
	"github.com/jrsteele09/budget-dashboard/internal/config"
	"github.com/jrsteele09/budget-dashboard/token"
	"github.com/jrsteele09/budget-dashboard/token/refresh"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Server is a development stand-in for the dashboard API. It issues short
// lived access tokens and single-use refresh tokens and guards a set of stub
// business routes with them.
type Server struct {
	env      string
	mux      *http.ServeMux
	routes   []string
	logger   zerolog.Logger
	users    users.UserRepo
	tokens   *token.Manager
	refresh  *refresh.Manager
	registry *prometheus.Registry
	requests *prometheus.CounterVec

	// Test hooks
	refreshCount  atomic.Int64
	failRefreshes atomic.Int64
	refreshDelay  atomic.Int64
}

type Option func(*Server)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithTokenManager replaces the access token manager built from config.
func WithTokenManager(m *token.Manager) Option {
	return func(s *Server) {
		s.tokens = m
	}
}

func New(c config.Config, userRepo users.UserRepo, refreshRepo refresh.Repo, options ...Option) *Server {
	s := &Server{
		env:      c.GetEnv(),
		mux:      http.NewServeMux(),
		logger:   log.Logger,
		users:    userRepo,
		refresh:  refresh.NewManager(refreshRepo, c.GetRefreshTokenExpiry()),
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.tokens == nil {
		s.tokens = token.NewManager(
			token.NewHMACSigner(c.GetSigningSecret()),
			token.WithAccessTokenExpiry(c.GetAccessTokenExpiry()),
			token.WithIssuer(c.GetAppName()),
		)
	}
	s.logger = s.logger.With().Str("component", "devapi").Logger()
	s.requests = newRequestCounter(s.registry)

	s.initRoutes()
	s.logRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// SeedUser creates or replaces an account that can log in.
func (s *Server) SeedUser(username, password, userLevel string) (*users.User, error) {
	u, err := users.New(username, password, userLevel)
	if err != nil {
		return nil, fmt.Errorf("[Server SeedUser] %w", err)
	}
	if existing, err := s.users.GetByUsername(username); err == nil {
		u.ID = existing.ID
	}
	if err := s.users.Upsert(u); err != nil {
		return nil, fmt.Errorf("[Server SeedUser] failed to store user: %w", err)
	}
	return u, nil
}

// RefreshCount returns how many refresh exchanges have been received.
func (s *Server) RefreshCount() int64 {
	return s.refreshCount.Load()
}

// FailNextRefreshes makes the next n refresh exchanges fail with 401.
func (s *Server) FailNextRefreshes(n int) {
	s.failRefreshes.Store(int64(n))
}

// SetRefreshDelay holds every refresh exchange for d before answering.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.refreshDelay.Store(int64(d))
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	s.logger.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}
