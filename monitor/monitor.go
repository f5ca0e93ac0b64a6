package monitor

import (
	"context"
	"errors"
	"time"

	dasherrors "github.com/jrsteele09/budget-dashboard/internal/errors"
	"github.com/jrsteele09/budget-dashboard/sessions"
	"github.com/jrsteele09/budget-dashboard/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultInterval  = 120 * time.Second
	DefaultThreshold = 300 * time.Second
)

// Refresher is the same single-flight path the request pipeline uses.
type Refresher interface {
	RefreshRejected(ctx context.Context, staleToken string) (sessions.Tokens, error)
}

// Monitor refreshes the access token ahead of its expiry while the session is
// authenticated.
type Monitor struct {
	store     *sessions.Store
	refresher Refresher
	interval  time.Duration
	threshold time.Duration
	nowFunc   func() time.Time
	logger    zerolog.Logger
}

type Option func(*Monitor)

func WithInterval(interval time.Duration) Option {
	return func(m *Monitor) {
		m.interval = interval
	}
}

// WithThreshold sets how close to expiry a token may get before it is refreshed.
func WithThreshold(threshold time.Duration) Option {
	return func(m *Monitor) {
		m.threshold = threshold
	}
}

func WithNowFunc(nowFunc func() time.Time) Option {
	return func(m *Monitor) {
		m.nowFunc = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

func New(store *sessions.Store, refresher Refresher, options ...Option) *Monitor {
	m := &Monitor{
		store:     store,
		refresher: refresher,
		interval:  DefaultInterval,
		threshold: DefaultThreshold,
		nowFunc:   time.Now,
		logger:    log.Logger,
	}
	for _, opt := range options {
		opt(m)
	}
	if m.interval <= 0 {
		m.interval = DefaultInterval
	}
	m.logger = m.logger.With().Str("component", "refresh_monitor").Logger()
	return m
}

// Run blocks until ctx is done. The check loop runs only while the session is
// authenticated: it stops when the session is cleared or expires and starts
// again on the next login.
func (m *Monitor) Run(ctx context.Context) error {
	updates, unsubscribe := m.store.Subscribe()
	defer unsubscribe()

	var (
		stop context.CancelFunc
		done chan struct{}
	)
	start := func() {
		if stop != nil {
			return
		}
		var loopCtx context.Context
		loopCtx, stop = context.WithCancel(ctx)
		done = make(chan struct{})
		go m.loop(loopCtx, done)
		m.logger.Debug().Dur("interval", m.interval).Msg("monitor started")
	}
	halt := func() {
		if stop == nil {
			return
		}
		stop()
		<-done
		stop = nil
		m.logger.Debug().Msg("monitor stopped")
	}
	defer halt()

	if m.store.Get().IsAuthenticated {
		start()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-updates:
			if !ok {
				return nil
			}
			if s.IsAuthenticated {
				start()
			} else {
				halt()
			}
		}
	}
}

func (m *Monitor) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	m.Check(ctx)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check refreshes once if the current access token is within the threshold of
// expiry. An undecodable token counts as expiring. It reports whether a
// refresh was attempted.
func (m *Monitor) Check(ctx context.Context) bool {
	s := m.store.Get()
	if !s.IsAuthenticated {
		return false
	}
	if !token.IsExpiringWithin(s.AccessToken, m.threshold, m.nowFunc()) {
		return false
	}

	m.logger.Debug().Int64("user_id", s.UserID).Msg("access token close to expiry, refreshing")
	if _, err := m.refresher.RefreshRejected(ctx, s.AccessToken); err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, dasherrors.ErrSessionChanged):
			m.logger.Debug().Err(err).Msg("proactive refresh abandoned")
		default:
			m.logger.Warn().Err(err).Msg("proactive refresh failed")
		}
	}
	return true
}
