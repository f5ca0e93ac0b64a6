package refresher

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	dasherrors "github.com/jrsteele09/budget-dashboard/internal/errors"
	"github.com/jrsteele09/budget-dashboard/metrics"
	"github.com/jrsteele09/budget-dashboard/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	// One key: there is never more than one exchange in flight.
	refreshKey = "session-refresh"

	DefaultTimeout = 30 * time.Second
)

// TokenRefresher performs the refresh exchange against the API.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string, userID int64) (sessions.Tokens, error)
}

// Coordinator exchanges the session's refresh token for a new pair. Concurrent
// callers share a single exchange and all receive its outcome.
type Coordinator struct {
	store    *sessions.Store
	api      TokenRefresher
	group    singleflight.Group
	timeout  time.Duration
	logger   zerolog.Logger
	recorder metrics.Recorder

	exchanges atomic.Int64
}

type Option func(*Coordinator)

// WithTimeout bounds each exchange. It should match the ordinary request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		c.timeout = timeout
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithRecorder(recorder metrics.Recorder) Option {
	return func(c *Coordinator) {
		c.recorder = recorder
	}
}

func NewCoordinator(store *sessions.Store, api TokenRefresher, options ...Option) *Coordinator {
	c := &Coordinator{
		store:    store,
		api:      api,
		timeout:  DefaultTimeout,
		logger:   log.Logger,
		recorder: metrics.Noop{},
	}
	for _, opt := range options {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "refresh_coordinator").Logger()
	return c
}

// Refresh joins the exchange in flight or starts one. ctx only bounds how long
// this caller waits; the exchange itself runs to completion for the others.
//
// On failure the session that started the exchange is moved to the expired
// state and the returned error wraps ErrSessionExpired. ErrSessionChanged means
// the session was cleared or replaced while the exchange was pending and its
// result was dropped.
//
// Refreshing without a refresh token, logged out included, also moves the
// session to the expired state.
func (c *Coordinator) Refresh(ctx context.Context) (sessions.Tokens, error) {
	return c.RefreshRejected(ctx, "")
}

// RefreshRejected is Refresh for a caller holding rejectedToken, an access
// token the server refused or that is about to expire. If the session has
// already moved on to another access token the current pair is returned
// without a new exchange. If the session was cleared since rejectedToken was
// read the result is ErrSessionChanged and nothing is raised.
func (c *Coordinator) RefreshRejected(ctx context.Context, rejectedToken string) (sessions.Tokens, error) {
	// A joined flight was started for another caller's token and may hand back
	// the very token this caller had rejected. Such a caller starts one more.
	for attempt := 0; ; attempt++ {
		tokens, err := c.await(ctx, rejectedToken)
		if err != nil || rejectedToken == "" || tokens.Token != rejectedToken || attempt > 0 {
			return tokens, err
		}
		c.logger.Debug().Msg("joined refresh returned the rejected token, refreshing again")
	}
}

func (c *Coordinator) await(ctx context.Context, rejectedToken string) (sessions.Tokens, error) {
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		return c.exchange(rejectedToken)
	})

	select {
	case <-ctx.Done():
		return sessions.Tokens{}, fmt.Errorf("Coordinator.Refresh: %w", ctx.Err())
	case res := <-ch:
		if res.Shared {
			c.recorder.RefreshShared()
		}
		if res.Err != nil {
			return sessions.Tokens{}, res.Err
		}
		return res.Val.(sessions.Tokens), nil
	}
}

// Exchanges returns how many refresh calls have been made to the API.
func (c *Coordinator) Exchanges() int64 {
	return c.exchanges.Load()
}

func (c *Coordinator) exchange(rejectedToken string) (any, error) {
	current := c.store.Get()
	switch {
	case current.SessionExpired:
		return nil, dasherrors.ErrSessionExpired
	case rejectedToken != "" && !current.IsAuthenticated:
		return nil, dasherrors.ErrSessionChanged
	case !current.CanRefresh():
		c.logger.Info().Msg("refresh requested without a refresh token")
		c.expire(current.ID)
		return nil, fmt.Errorf("%w: %w", dasherrors.ErrSessionExpired, dasherrors.ErrNoRefreshToken)
	case rejectedToken != "" && current.AccessToken != rejectedToken:
		return current.Tokens(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	start := time.Now()
	c.exchanges.Add(1)
	tokens, err := c.api.RefreshToken(ctx, current.RefreshToken, current.UserID)
	elapsed := time.Since(start)

	if err != nil {
		c.logger.Warn().Err(err).
			Int64("user_id", current.UserID).
			Dur("elapsed", elapsed).
			Msg("token refresh failed")

		if !c.expire(current.ID) && c.store.Get().ID != current.ID {
			c.recorder.RefreshCompleted(metrics.ResultDiscarded, elapsed)
			return nil, dasherrors.ErrSessionChanged
		}
		c.recorder.RefreshCompleted(metrics.ResultFailure, elapsed)
		return nil, fmt.Errorf("%w: %w", dasherrors.ErrSessionExpired, err)
	}

	rotated, err := c.store.RotateCredentials(ctx, current.ID, tokens)
	if err != nil {
		c.logger.Info().Int64("user_id", current.UserID).Msg("session changed during refresh, result discarded")
		c.recorder.RefreshCompleted(metrics.ResultDiscarded, elapsed)
		return nil, err
	}

	c.logger.Debug().Int64("user_id", rotated.UserID).Dur("elapsed", elapsed).Msg("token refreshed")
	c.recorder.RefreshCompleted(metrics.ResultSuccess, elapsed)
	return rotated.Tokens(), nil
}

func (c *Coordinator) expire(id string) bool {
	if !c.store.ExpireSession(id) {
		return false
	}
	c.recorder.SessionExpired()
	return true
}
