package sessions

import "context"

// Repo is durable key/value storage for the single session snapshot.
type Repo interface {
	// Save replaces the stored snapshot
	Save(ctx context.Context, session Session) error

	// Load returns the stored snapshot, or nil when there is none. Undecodable
	// data is cleared and reported as no session.
	Load(ctx context.Context) (*Session, error)

	// Clear removes the stored snapshot; clearing an empty store is not an error
	Clear(ctx context.Context) error
}
