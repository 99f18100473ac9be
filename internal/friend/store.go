package friend

import "context"

// MaxCommitAttempts bounds optimistic retries in store implementations.
const MaxCommitAttempts = 8

// Store persists directed edges.
//
// UpdatePair loads the edges a->b and b->a, passes them to fn and commits
// whatever fn leaves in the pair (nil deletes the edge) as one atomic
// step. If another writer touched either edge in between, the store
// reloads and calls fn again, up to MaxCommitAttempts times, then returns
// ErrContention. An error from fn aborts without writing and is returned
// as is. The committed pair is returned.
type Store interface {
	UpdatePair(ctx context.Context, a, b string, fn func(p *Pair) error) (*Pair, error)
	LoadPair(ctx context.Context, a, b string) (*Pair, error)
	ListEdges(ctx context.Context, q EdgeQuery) ([]*Relation, error)
}
