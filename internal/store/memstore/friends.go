package memstore

import (
	"context"

	"github.com/park285/cheese-social/internal/friend"
)

func edgeKey(user, other string) string { return user + ">" + other }

func (s *Store) loadPairLocked(a, b string) *friend.Pair {
	p := &friend.Pair{A: a, B: b, AB: s.edges[edgeKey(a, b)], BA: s.edges[edgeKey(b, a)]}
	return p.Clone()
}

func (s *Store) LoadPair(ctx context.Context, a, b string) (*friend.Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadPairLocked(a, b), nil
}

// UpdatePair holds the write lock across fn, so there is nothing to retry.
func (s *Store) UpdatePair(ctx context.Context, a, b string, fn func(p *friend.Pair) error) (*friend.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.loadPairLocked(a, b)
	if err := fn(p); err != nil {
		return nil, err
	}
	s.putLocked(edgeKey(a, b), p.AB)
	s.putLocked(edgeKey(b, a), p.BA)
	return p.Clone(), nil
}

func (s *Store) putLocked(key string, r *friend.Relation) {
	if r == nil {
		delete(s.edges, key)
		return
	}
	cp := *r
	s.edges[key] = &cp
}

func (s *Store) ListEdges(ctx context.Context, q friend.EdgeQuery) ([]*friend.Relation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*friend.Relation{}
	for _, r := range s.edges {
		if friend.MatchesQuery(r, q) {
			cp := *r
			out = append(out, &cp)
		}
	}
	friend.SortNewest(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

var _ friend.Store = (*Store)(nil)
