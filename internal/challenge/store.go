package challenge

import (
	"context"
	"time"
)

// Store persists challenges. Implementations must make Insert and
// UpdateStatus atomic with respect to concurrent callers.
type Store interface {
	// Insert stores a new pending challenge. It returns ErrDuplicatePending
	// when a pending challenge already exists for the same ordered pair.
	Insert(ctx context.Context, c *Challenge) error
	// FindByID returns nil, nil when the id is unknown.
	FindByID(ctx context.Context, id string) (*Challenge, error)
	// UpdateStatus applies t only if the record is still in t.From.
	// It reports false when no record matched.
	UpdateStatus(ctx context.Context, t Transition) (bool, error)
	// List returns the user's challenges newest first, at most limit.
	List(ctx context.Context, username string, filter Filter, limit int) ([]*Challenge, error)
	// ListDue returns pending challenges whose ExpiresAt is before now.
	ListDue(ctx context.Context, now time.Time) ([]*Challenge, error)
	// SetGameID attaches gameID to an accepted challenge that has none.
	// It reports false when no record matched.
	SetGameID(ctx context.Context, id, gameID string) (bool, error)
}
