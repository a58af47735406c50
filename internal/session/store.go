package session

import (
	"context"
	"errors"

	"medichat-backend/pkg"
)

var (
	// ErrDuplicateSession is returned by Create when the id is already live.
	// Re-creating an existing id is an error, never a silent overwrite.
	ErrDuplicateSession = errors.New("session already exists")
	// ErrUnknownSession is returned when an id has never been created.
	ErrUnknownSession = errors.New("session not found")
)

// Store holds conversation state keyed by session id. Implementations must
// never expose partially-updated state: Get returns a snapshot, Put replaces
// the whole session atomically. Serialization of the get-mutate-put cycle for
// one id is the caller's job (see core.Processor).
type Store interface {
	// Get returns a copy of the session, or ok=false when the id is unknown.
	Get(ctx context.Context, id string) (*pkg.Session, bool, error)
	// Create stores a new session; fails with ErrDuplicateSession if present.
	Create(ctx context.Context, sess *pkg.Session) error
	// Put unconditionally replaces the stored session.
	Put(ctx context.Context, sess *pkg.Session) error
	// History returns the ordered turn log; fails with ErrUnknownSession.
	History(ctx context.Context, id string) ([]pkg.Turn, error)
}
