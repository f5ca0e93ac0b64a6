package fakeuserrepo

import (
	"sync"
	"time"

	"github.com/jrsteele09/budget-dashboard/devapi/users"
	dasherrors "github.com/jrsteele09/budget-dashboard/internal/errors"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users       map[int64]*users.User
	usernameIDs map[string]int64 // username to user id
	nextID      int64
	lock        sync.RWMutex
}

func NewFakeUserRepo() users.UserRepo {
	return &FakeUserRepo{
		users:       make(map[int64]*users.User),
		usernameIDs: make(map[string]int64),
	}
}

func (ur *FakeUserRepo) Upsert(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == 0 {
		if id, ok := ur.usernameIDs[user.Username]; ok {
			user.ID = id
		} else {
			ur.nextID++
			user.ID = ur.nextID
		}
	}
	if user.ID > ur.nextID {
		ur.nextID = user.ID
	}
	ur.users[user.ID] = user
	ur.usernameIDs[user.Username] = user.ID
	return nil
}

func (ur *FakeUserRepo) GetByUsername(username string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.usernameIDs[username]
	if !ok {
		return nil, dasherrors.ErrNotFound
	}
	return ur.users[id], nil
}

func (ur *FakeUserRepo) GetByID(id int64) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, dasherrors.ErrNotFound
	}
	return user, nil
}

func (ur *FakeUserRepo) SetLastLogin(id int64) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok {
		return dasherrors.ErrNotFound
	}
	user.LastLogin = time.Now()
	return nil
}

func (ur *FakeUserRepo) SetBlocked(username string, blocked bool) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	id, ok := ur.usernameIDs[username]
	if !ok {
		return dasherrors.ErrNotFound
	}
	ur.users[id].Blocked = blocked
	return nil
}
