// Package client wires the session store, refresh coordinator, request
// pipeline and proactive monitor into the one object the dashboard uses.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/jrsteele09/budget-dashboard/authapi"
	"github.com/jrsteele09/budget-dashboard/internal/config"
	"github.com/jrsteele09/budget-dashboard/metrics"
	"github.com/jrsteele09/budget-dashboard/monitor"
	"github.com/jrsteele09/budget-dashboard/notify"
	"github.com/jrsteele09/budget-dashboard/pipeline"
	"github.com/jrsteele09/budget-dashboard/refresher"
	"github.com/jrsteele09/budget-dashboard/sessions"
	fakesessionrepo "github.com/jrsteele09/budget-dashboard/sessions/repofakes"
	"github.com/jrsteele09/budget-dashboard/sessions/repofile"
	"github.com/jrsteele09/budget-dashboard/sessions/reporedis"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Client struct {
	store         *sessions.Store
	repo          sessions.Repo
	api           *authapi.Client
	coordinator   *refresher.Coordinator
	pipeline      *pipeline.Pipeline
	monitor       *monitor.Monitor
	notifications *notify.Bus
	logger        zerolog.Logger
}

type options struct {
	httpClient     *http.Client
	recorder       metrics.Recorder
	logger         zerolog.Logger
	monitorOptions []monitor.Option
}

type Option func(*options)

// WithHTTPClient is used for both the auth endpoints and business calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMonitorOptions passes extra options to the proactive refresh monitor.
func WithMonitorOptions(opts ...monitor.Option) Option {
	return func(o *options) {
		o.monitorOptions = append(o.monitorOptions, opts...)
	}
}

func New(cfg config.Config, repo sessions.Repo, opts ...Option) *Client {
	o := options{
		recorder: metrics.Noop{},
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(&o)
	}

	timeout := cfg.GetRequestTimeout()
	store := sessions.NewStore(repo, sessions.WithLogger(o.logger))

	var apiOpts []authapi.Option
	pipelineOpts := []pipeline.Option{pipeline.WithRecorder(o.recorder), pipeline.WithLogger(o.logger)}
	if o.httpClient != nil {
		apiOpts = append(apiOpts, authapi.WithHTTPClient(o.httpClient))
		pipelineOpts = append(pipelineOpts, pipeline.WithHTTPClient(o.httpClient))
	}
	apiOpts = append(apiOpts, authapi.WithLogger(o.logger))
	api := authapi.New(cfg.GetBaseURL(), timeout, apiOpts...)

	coordinator := refresher.NewCoordinator(store, api,
		refresher.WithTimeout(timeout),
		refresher.WithRecorder(o.recorder),
		refresher.WithLogger(o.logger),
	)

	bus := notify.NewBus()
	pipelineOpts = append(pipelineOpts, pipeline.WithNotifier(bus))

	monitorOpts := append([]monitor.Option{
		monitor.WithInterval(cfg.GetRefreshCheckInterval()),
		monitor.WithThreshold(cfg.GetRefreshThreshold()),
		monitor.WithLogger(o.logger),
	}, o.monitorOptions...)

	return &Client{
		store:         store,
		repo:          repo,
		api:           api,
		coordinator:   coordinator,
		pipeline:      pipeline.New(cfg.GetBaseURL(), timeout, store, coordinator, pipelineOpts...),
		monitor:       monitor.New(store, coordinator, monitorOpts...),
		notifications: bus,
		logger:        o.logger.With().Str("component", "client").Logger(),
	}
}

// NewRepo builds the session persistence backend selected in config.
func NewRepo(cfg config.SessionConfig) (sessions.Repo, error) {
	switch cfg.GetSessionBackend() {
	case config.BackendRedis:
		repo, err := reporedis.NewWithURL(cfg.GetRedisURL(), cfg.GetStorageKey())
		if err != nil {
			return nil, fmt.Errorf("client.NewRepo: %w", err)
		}
		return repo, nil
	case config.BackendMemory:
		return fakesessionrepo.NewFakeSessionRepo(), nil
	default:
		return repofile.New(cfg.GetSessionFile()), nil
	}
}

// Hydrate restores the persisted session, if any. Call once at startup.
func (c *Client) Hydrate(ctx context.Context) (sessions.Session, error) {
	return c.store.Hydrate(ctx)
}

// Login authenticates and installs a fresh session. Failed persistence is
// logged; the in-memory session is usable regardless.
func (c *Client) Login(ctx context.Context, username, password string) (sessions.Session, error) {
	resp, err := c.api.Login(ctx, username, password)
	if err != nil {
		return c.store.Get(), err
	}

	tokens := sessions.Tokens{Token: resp.Token, Refresh: resp.Refresh}
	if err := c.store.SetCredentials(ctx, tokens, resp.UserID, resp.UserLevel); err != nil {
		c.logger.Warn().Err(err).Msg("session not persisted")
	}
	return c.store.Get(), nil
}

// Logout revokes the refresh token on the server when possible and always
// clears the local session.
func (c *Client) Logout(ctx context.Context) error {
	s := c.store.Get()
	if s.RefreshToken != "" {
		if err := c.api.Logout(ctx, s.AccessToken, s.RefreshToken); err != nil {
			c.logger.Info().Err(err).Msg("remote logout failed, clearing local session anyway")
		}
	}
	return c.store.Clear(ctx)
}

// Do sends a business call through the authenticated pipeline.
func (c *Client) Do(ctx context.Context, d pipeline.Descriptor) (*pipeline.Response, error) {
	return c.pipeline.Execute(ctx, d)
}

// Refresh forces a coordinated token refresh
func (c *Client) Refresh(ctx context.Context) (sessions.Tokens, error) {
	return c.coordinator.Refresh(ctx)
}

func (c *Client) Session() sessions.Session {
	return c.store.Get()
}

// Store exposes the session store for subscribers
func (c *Client) Store() *sessions.Store {
	return c.store
}

func (c *Client) Expired() *sessions.ExpiredSignal {
	return c.store.ExpiredSignal()
}

// Notifications streams server error toasts until cancel is called.
func (c *Client) Notifications() (<-chan notify.Notification, func()) {
	return c.notifications.Subscribe()
}

// StartMonitor runs the proactive refresh monitor in the background. The
// returned func stops it and waits for it to exit.
func (c *Client) StartMonitor(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.monitor.Run(ctx)
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

// Close releases the persistence backend
func (c *Client) Close() error {
	if closer, ok := c.repo.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
