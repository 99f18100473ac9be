package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/park285/cheese-social/internal/challenge"
)

func pairKey(a, b string) string { return a + "|" + b }

func (s *Store) Insert(ctx context.Context, c *challenge.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(c.Challenger, c.Challenged)
	if _, exists := s.pending[key]; exists {
		return challenge.ErrDuplicatePending
	}
	cp := *c
	s.challenges[c.ID] = &cp
	s.pending[key] = c.ID
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*challenge.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.challenges[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *Store) UpdateStatus(ctx context.Context, t challenge.Transition) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[t.ID]
	if !ok || c.Status != t.From {
		return false, nil
	}
	at := t.RespondedAt
	c.Status = t.To
	c.RespondedAt = &at
	if t.From == challenge.StatusPending {
		delete(s.pending, pairKey(c.Challenger, c.Challenged))
	}
	return true, nil
}

func (s *Store) List(ctx context.Context, username string, filter challenge.Filter, limit int) ([]*challenge.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*challenge.Challenge{}
	for _, c := range s.challenges {
		if !matchFilter(c, username, filter) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchFilter(c *challenge.Challenge, username string, filter challenge.Filter) bool {
	switch filter {
	case challenge.FilterSent:
		return c.Challenger == username
	case challenge.FilterReceived:
		return c.Challenged == username
	case challenge.FilterPending:
		return c.Involves(username) && c.Status == challenge.StatusPending
	default:
		return c.Involves(username)
	}
}

func (s *Store) ListDue(ctx context.Context, now time.Time) ([]*challenge.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*challenge.Challenge
	for _, c := range s.challenges {
		if c.Status == challenge.StatusPending && c.ExpiresAt.Before(now) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) SetGameID(ctx context.Context, id, gameID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok || c.Status != challenge.StatusAccepted || c.GameID != "" {
		return false, nil
	}
	c.GameID = gameID
	return true, nil
}

var _ challenge.Store = (*Store)(nil)
