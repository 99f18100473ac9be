package friend

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/park285/cheese-social/internal/account"
	"github.com/park285/cheese-social/internal/obslog"
	"github.com/park285/cheese-social/internal/relerr"
	"go.uber.org/zap"
)

// Machine runs the pair automaton over a Store.
type Machine struct {
	store Store
	users account.Oracle
	now   func() time.Time
}

func NewMachine(store Store, users account.Oracle, now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{store: store, users: users, now: now}
}

func (m *Machine) stamp() time.Time { return m.now().UTC() }

// validPair checks the two usernames and rejects a pair with itself.
func validPair(user, other string, self error) error {
	if !account.ValidUsername(user) || !account.ValidUsername(other) {
		return ErrInvalidUsername
	}
	if user == other {
		return self
	}
	return nil
}

func (m *Machine) exists(ctx context.Context, username string, missing error) error {
	ok, err := m.users.Exists(ctx, username)
	if err != nil {
		return relerr.Store(err)
	}
	if !ok {
		return missing
	}
	return nil
}

// SendRequest creates the pending edge user -> other.
func (m *Machine) SendRequest(ctx context.Context, user, other string) (*Relation, error) {
	if err := validPair(user, other, ErrSelfRequest); err != nil {
		return nil, err
	}
	if err := m.exists(ctx, user, ErrUserNotFound); err != nil {
		return nil, err
	}
	if err := m.exists(ctx, other, ErrFriendNotFound); err != nil {
		return nil, err
	}
	p, err := m.store.UpdatePair(ctx, user, other, func(p *Pair) error {
		return sendRequest(p, m.stamp())
	})
	if err != nil {
		return nil, relerr.Store(err)
	}
	obslog.L().Info("friend_request", zap.String("user", user), zap.String("friend", other))
	return p.AB, nil
}

// Accept accepts the pending request other -> user.
func (m *Machine) Accept(ctx context.Context, user, other string) (*Relation, error) {
	if err := validPair(user, other, ErrSelfTarget); err != nil {
		return nil, err
	}
	p, err := m.store.UpdatePair(ctx, user, other, func(p *Pair) error {
		return acceptRequest(p, m.stamp())
	})
	if err != nil {
		return nil, relerr.Store(err)
	}
	obslog.L().Info("friend_accept", zap.String("user", user), zap.String("friend", other))
	return p.AB, nil
}

// Decline removes the pending request other -> user.
func (m *Machine) Decline(ctx context.Context, user, other string) (*Relation, error) {
	if err := validPair(user, other, ErrSelfTarget); err != nil {
		return nil, err
	}
	var removed *Relation
	_, err := m.store.UpdatePair(ctx, user, other, func(p *Pair) error {
		r, err := declineRequest(p)
		removed = r
		return err
	})
	if err != nil {
		return nil, relerr.Store(err)
	}
	obslog.L().Info("friend_decline", zap.String("user", user), zap.String("friend", other))
	return removed, nil
}

// Unfriend drops the accepted edges in both directions.
func (m *Machine) Unfriend(ctx context.Context, user, other string) (*Relation, error) {
	if err := validPair(user, other, ErrSelfTarget); err != nil {
		return nil, err
	}
	var removed *Relation
	_, err := m.store.UpdatePair(ctx, user, other, func(p *Pair) error {
		r, err := unfriend(p)
		removed = r
		return err
	})
	if err != nil {
		return nil, relerr.Store(err)
	}
	obslog.L().Info("friend_unfriend", zap.String("user", user), zap.String("friend", other))
	return removed, nil
}

// Block replaces whatever links the pair with user -> other blocked. The
// target need not be a registered account.
func (m *Machine) Block(ctx context.Context, user, other string) (*Relation, error) {
	if err := validPair(user, other, ErrSelfBlock); err != nil {
		return nil, err
	}
	p, err := m.store.UpdatePair(ctx, user, other, func(p *Pair) error {
		block(p, m.stamp())
		return nil
	})
	if err != nil {
		return nil, relerr.Store(err)
	}
	obslog.L().Info("friend_block", zap.String("user", user), zap.String("blocked", other))
	return p.AB, nil
}

func (m *Machine) Unblock(ctx context.Context, user, other string) (*Relation, error) {
	if err := validPair(user, other, ErrSelfTarget); err != nil {
		return nil, err
	}
	var removed *Relation
	_, err := m.store.UpdatePair(ctx, user, other, func(p *Pair) error {
		r, err := unblock(p)
		removed = r
		return err
	})
	if err != nil {
		return nil, relerr.Store(err)
	}
	obslog.L().Info("friend_unblock", zap.String("user", user), zap.String("blocked", other))
	return removed, nil
}

// RecordGamePlayed bumps the shared game counter on both accepted edges.
func (m *Machine) RecordGamePlayed(ctx context.Context, user, other string) (*Relation, error) {
	if err := validPair(user, other, ErrSelfTarget); err != nil {
		return nil, err
	}
	p, err := m.store.UpdatePair(ctx, user, other, recordGame)
	if err != nil {
		return nil, relerr.Store(err)
	}
	return p.AB, nil
}

// Relationship reports the pair state as seen by user.
func (m *Machine) Relationship(ctx context.Context, user, other string) (State, error) {
	if err := validPair(user, other, ErrSelfTarget); err != nil {
		return "", err
	}
	p, err := m.store.LoadPair(ctx, user, other)
	if err != nil {
		return "", relerr.Store(err)
	}
	return p.State(), nil
}

// list never rejects its input: a malformed username has no edges.
func (m *Machine) list(ctx context.Context, user string, q EdgeQuery) ([]*Relation, error) {
	if !account.ValidUsername(user) {
		return []*Relation{}, nil
	}
	out, err := m.store.ListEdges(ctx, q)
	if err != nil {
		return nil, relerr.Store(err)
	}
	return out, nil
}

func (m *Machine) ListFriends(ctx context.Context, user string) ([]*Relation, error) {
	return m.list(ctx, user, EdgeQuery{User: user, Status: StatusAccepted})
}

// ListPendingReceived returns requests addressed to user.
func (m *Machine) ListPendingReceived(ctx context.Context, user string) ([]*Relation, error) {
	return m.list(ctx, user, EdgeQuery{Friend: user, Status: StatusPending})
}

func (m *Machine) ListPendingSent(ctx context.Context, user string) ([]*Relation, error) {
	return m.list(ctx, user, EdgeQuery{User: user, Status: StatusPending})
}

func (m *Machine) ListBlocked(ctx context.Context, user string) ([]*Relation, error) {
	return m.list(ctx, user, EdgeQuery{User: user, Status: StatusBlocked})
}

// SearchFriends matches query literally and case-insensitively against
// friend names. An empty query lists every friend.
func (m *Machine) SearchFriends(ctx context.Context, user, query string) ([]*Relation, error) {
	return m.list(ctx, user, EdgeQuery{User: user, Status: StatusAccepted, Contains: strings.ToLower(strings.TrimSpace(query))})
}

// MatchesQuery is the filter every Store.List implementation applies.
func MatchesQuery(r *Relation, q EdgeQuery) bool {
	if q.User != "" && r.User != q.User {
		return false
	}
	if q.Friend != "" && r.Friend != q.Friend {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	if q.Contains != "" && !strings.Contains(strings.ToLower(r.Friend), strings.ToLower(q.Contains)) {
		return false
	}
	return true
}

// SortNewest orders edges newest first, then by friend name.
func SortNewest(list []*Relation) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].Friend < list[j].Friend
	})
}
