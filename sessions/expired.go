package sessions

import (
	"context"
	"sync"
)

// ExpiredSignal is the UI-facing "you must sign in again" flag.
type ExpiredSignal struct {
	store *Store
}

func (s *Store) ExpiredSignal() *ExpiredSignal {
	return &ExpiredSignal{store: s}
}

// Active reports whether the session is in the expired state
func (e *ExpiredSignal) Active() bool {
	return e.store.Get().SessionExpired
}

// Acknowledge clears an expired session, returning the client to logged out.
// It does nothing unless the signal is active.
func (e *ExpiredSignal) Acknowledge(ctx context.Context) error {
	_, err := e.store.clearIf(ctx, func(s Session) bool { return s.SessionExpired })
	return err
}

// Changes streams the signal value whenever it flips, starting with the
// current value. Call cancel to stop.
func (e *ExpiredSignal) Changes() (<-chan bool, func()) {
	updates, unsubscribe := e.store.Subscribe()
	out := make(chan bool, 1)
	done := make(chan struct{})

	go func() {
		defer close(out)
		last := e.Active()
		out <- last
		for {
			select {
			case <-done:
				return
			case s, ok := <-updates:
				if !ok {
					return
				}
				if s.SessionExpired == last {
					continue
				}
				last = s.SessionExpired
				select {
				case <-out:
				default:
				}
				out <- last
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			unsubscribe()
		})
	}
	return out, cancel
}
