package fakesessionrepo

import (
	"context"
	"sync"

	"github.com/jrsteele09/budget-dashboard/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo keeps the encoded snapshot in memory, the same bytes the
// durable repos write.
type FakeSessionRepo struct {
	data  []byte
	saves int
	lock  sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{}
}

func (sr *FakeSessionRepo) Save(_ context.Context, session sessions.Session) error {
	data, err := sessions.MarshalSnapshot(session)
	if err != nil {
		return err
	}

	sr.lock.Lock()
	defer sr.lock.Unlock()
	sr.data = data
	sr.saves++
	return nil
}

func (sr *FakeSessionRepo) Load(_ context.Context) (*sessions.Session, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if sr.data == nil {
		return nil, nil
	}
	s, err := sessions.UnmarshalSnapshot(sr.data)
	if err != nil {
		sr.data = nil
		return nil, nil
	}
	return s, nil
}

func (sr *FakeSessionRepo) Clear(_ context.Context) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	sr.data = nil
	return nil
}

// SetRaw stores bytes as-is, for corrupt-data tests
func (sr *FakeSessionRepo) SetRaw(data []byte) {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	sr.data = data
}

// Raw returns the stored bytes, nil when empty
func (sr *FakeSessionRepo) Raw() []byte {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	return sr.data
}

// Saves counts successful Save calls
func (sr *FakeSessionRepo) Saves() int {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	return sr.saves
}
