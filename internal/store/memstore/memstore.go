// Package memstore keeps challenges, friend edges and accounts in process
// memory. It is meant for development runs and tests.
package memstore

import (
	"context"
	"sync"

	"github.com/park285/cheese-social/internal/challenge"
	"github.com/park285/cheese-social/internal/friend"
)

type Store struct {
	mu sync.RWMutex

	challenges map[string]*challenge.Challenge
	pending    map[string]string // challenger|challenged -> id
	edges      map[string]*friend.Relation
	users      map[string]struct{}
}

func New() *Store {
	return &Store{
		challenges: make(map[string]*challenge.Challenge),
		pending:    make(map[string]string),
		edges:      make(map[string]*friend.Relation),
		users:      make(map[string]struct{}),
	}
}

// AddUsers registers accounts for the identity oracle.
func (s *Store) AddUsers(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range names {
		s.users[n] = struct{}{}
	}
}

func (s *Store) Exists(ctx context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[username]
	return ok, nil
}
