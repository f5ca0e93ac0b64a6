package sessions

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	dasherrors "github.com/jrsteele09/budget-dashboard/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const subscriberBuffer = 8

// Store is the single source of truth for the client session. All mutation goes
// through its methods; readers get value snapshots and observers get every
// mutation through Subscribe.
type Store struct {
	mu      sync.RWMutex
	current Session
	repo    Repo
	logger  zerolog.Logger
	newID   func() string

	subs    map[int]chan Session
	nextSub int
}

type StoreOption func(*Store)

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithIDFunc replaces the session ID generator
func WithIDFunc(f func() string) StoreOption {
	return func(s *Store) {
		s.newID = f
	}
}

func NewStore(repo Repo, options ...StoreOption) *Store {
	s := &Store{
		repo:   repo,
		logger: log.Logger,
		newID:  uuid.NewString,
		subs:   make(map[int]chan Session),
	}
	for _, opt := range options {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "session_store").Logger()
	return s
}

// Get returns the current session snapshot
func (s *Store) Get() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SetCredentials installs a brand new session (login). The in-memory session is
// replaced even if persisting fails; the persistence error is returned.
func (s *Store) SetCredentials(ctx context.Context, tokens Tokens, userID int64, userLevel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = Session{
		ID:              s.newID(),
		AccessToken:     tokens.Token,
		RefreshToken:    tokens.Refresh,
		UserID:          userID,
		UserLevel:       userLevel,
		IsAuthenticated: tokens.Token != "" && tokens.Refresh != "",
	}
	s.logger.Debug().Int64("user_id", userID).Str("user_level", userLevel).Msg("credentials set")
	s.publishLocked()
	return s.persistLocked(ctx)
}

// RotateCredentials applies a refresh result to session id, keeping identity
// fields. It fails with ErrSessionChanged if that session has since been
// cleared, expired or replaced.
func (s *Store) RotateCredentials(ctx context.Context, id string, tokens Tokens) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.ID != id || !s.current.IsAuthenticated {
		return s.current, dasherrors.ErrSessionChanged
	}

	s.current.AccessToken = tokens.Token
	if tokens.Refresh != "" {
		s.current.RefreshToken = tokens.Refresh
	}
	s.logger.Debug().Int64("user_id", s.current.UserID).Msg("credentials rotated")
	s.publishLocked()
	if err := s.persistLocked(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("rotated credentials not persisted")
	}
	return s.current, nil
}

// RaiseSessionExpired moves the current session to the expired state. Tokens
// stay in memory until Clear but are never used again for a silent refresh.
func (s *Store) RaiseSessionExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
}

// ExpireSession raises expiry only if id is still the current session. The
// empty id names the logged out session.
func (s *Store) ExpireSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.ID != id {
		return false
	}
	return s.expireLocked()
}

func (s *Store) expireLocked() bool {
	if s.current.SessionExpired {
		return false
	}
	s.current.SessionExpired = true
	s.current.IsAuthenticated = false
	s.logger.Info().Int64("user_id", s.current.UserID).Msg("session expired")
	s.publishLocked()

	// An expired session must not come back on the next start.
	if err := s.repo.Clear(context.Background()); err != nil {
		s.logger.Warn().Err(err).Msg("expired session snapshot not cleared")
	}
	return true
}

// Clear wipes the session and its persisted snapshot
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked(ctx)
}

// clearIf clears only when pred holds for the current session.
func (s *Store) clearIf(ctx context.Context, pred func(Session) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !pred(s.current) {
		return false, nil
	}
	return true, s.clearLocked(ctx)
}

func (s *Store) clearLocked(ctx context.Context) error {
	wasEmpty := s.current == (Session{})
	s.current = Session{}
	if !wasEmpty {
		s.logger.Debug().Msg("session cleared")
		s.publishLocked()
	}
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("Store.Clear: %w", err)
	}
	return nil
}

// Hydrate restores a persisted session at startup. A snapshot missing either
// token leaves the store logged out.
func (s *Store) Hydrate(ctx context.Context) (Session, error) {
	stored, err := s.repo.Load(ctx)
	if err != nil {
		return s.Get(), fmt.Errorf("Store.Hydrate: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if stored == nil || stored.AccessToken == "" || stored.RefreshToken == "" {
		s.logger.Debug().Msg("no persisted session")
		return s.current, nil
	}

	s.current = Session{
		ID:              s.newID(),
		AccessToken:     stored.AccessToken,
		RefreshToken:    stored.RefreshToken,
		UserID:          stored.UserID,
		UserLevel:       stored.UserLevel,
		IsAuthenticated: true,
	}
	s.logger.Info().Int64("user_id", stored.UserID).Msg("session hydrated")
	s.publishLocked()
	return s.current, nil
}

// Subscribe returns a channel receiving a snapshot after every mutation, and a
// cancel func. Slow subscribers only lose intermediate snapshots, never the latest.
func (s *Store) Subscribe() (<-chan Session, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Session, subscriberBuffer)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) publishLocked() {
	for _, ch := range s.subs {
		deliver(ch, s.current)
	}
}

func (s *Store) persistLocked(ctx context.Context) error {
	if !s.current.IsAuthenticated {
		return nil
	}
	if err := s.repo.Save(ctx, s.current); err != nil {
		return fmt.Errorf("Store persist: %w", err)
	}
	return nil
}

// deliver sends without blocking, dropping the oldest queued snapshot when full.
func deliver(ch chan Session, session Session) {
	select {
	case ch <- session:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- session:
	default:
	}
}
