package users

type UserRepo interface {
	// Upsert stores the user, assigning an ID when it has none.
	Upsert(user *User) error
	GetByUsername(username string) (*User, error)
	GetByID(id int64) (*User, error)
	SetLastLogin(id int64) error
	SetBlocked(username string, blocked bool) error
}
