// Package storetest holds the behaviour every store backend must share.
// Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/park285/cheese-social/internal/account"
	"github.com/park285/cheese-social/internal/challenge"
	"github.com/park285/cheese-social/internal/friend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Backend is a store implementing all three persistence interfaces.
type Backend interface {
	challenge.Store
	friend.Store
	account.Oracle
}

// Users are registered by the Open callback before the suite runs.
var Users = []string{"alice", "bobby", "carol"}

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// Run executes the suite. open must return an empty store with Users registered.
func Run(t *testing.T, open func(t *testing.T) Backend) {
	t.Run("accounts", func(t *testing.T) { testAccounts(t, open(t)) })
	t.Run("challenge_insert_unique", func(t *testing.T) { testInsertUnique(t, open(t)) })
	t.Run("challenge_update_status", func(t *testing.T) { testUpdateStatus(t, open(t)) })
	t.Run("challenge_list", func(t *testing.T) { testChallengeList(t, open(t)) })
	t.Run("challenge_due", func(t *testing.T) { testListDue(t, open(t)) })
	t.Run("challenge_game_id", func(t *testing.T) { testSetGameID(t, open(t)) })
	t.Run("pair_commit", func(t *testing.T) { testPairCommit(t, open(t)) })
	t.Run("pair_concurrent", func(t *testing.T) { testPairConcurrent(t, open(t)) })
	t.Run("edge_list", func(t *testing.T) { testEdgeList(t, open(t)) })
}

func newChallenge(id, from, to string, created time.Time) *challenge.Challenge {
	return &challenge.Challenge{
		ID:          id,
		Challenger:  from,
		Challenged:  to,
		TimeControl: challenge.TimeBlitz,
		Rated:       true,
		Status:      challenge.StatusPending,
		CreatedAt:   created,
		ExpiresAt:   created.Add(challenge.DefaultTTL),
	}
}

func testAccounts(t *testing.T, st Backend) {
	ctx := context.Background()
	ok, err := st.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = st.Exists(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testInsertUnique(t *testing.T, st Backend) {
	ctx := context.Background()
	require.NoError(t, st.Insert(ctx, newChallenge("c1", "alice", "bobby", t0)))
	err := st.Insert(ctx, newChallenge("c2", "alice", "bobby", t0))
	assert.True(t, errors.Is(err, challenge.ErrDuplicatePending), "got %v", err)
	require.NoError(t, st.Insert(ctx, newChallenge("c3", "bobby", "alice", t0)))

	got, err := st.FindByID(ctx, "c2")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = st.FindByID(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Challenger)
	assert.True(t, got.CreatedAt.Equal(t0))
	assert.Nil(t, got.RespondedAt)
}

func testUpdateStatus(t *testing.T, st Backend) {
	ctx := context.Background()
	require.NoError(t, st.Insert(ctx, newChallenge("c1", "alice", "bobby", t0)))
	at := t0.Add(time.Minute)

	ok, err := st.UpdateStatus(ctx, challenge.Transition{ID: "c1", From: challenge.StatusPending, To: challenge.StatusAccepted, RespondedAt: at})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.UpdateStatus(ctx, challenge.Transition{ID: "c1", From: challenge.StatusPending, To: challenge.StatusCancelled, RespondedAt: at})
	require.NoError(t, err)
	assert.False(t, ok, "second CAS from pending must miss")

	ok, err = st.UpdateStatus(ctx, challenge.Transition{ID: "missing", From: challenge.StatusPending, To: challenge.StatusCancelled, RespondedAt: at})
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := st.FindByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, challenge.StatusAccepted, got.Status)
	require.NotNil(t, got.RespondedAt)
	assert.True(t, got.RespondedAt.Equal(at))

	// leaving pending frees the pair for a new challenge
	require.NoError(t, st.Insert(ctx, newChallenge("c2", "alice", "bobby", at)))
}

func testChallengeList(t *testing.T, st Backend) {
	ctx := context.Background()
	require.NoError(t, st.Insert(ctx, newChallenge("c1", "alice", "bobby", t0)))
	require.NoError(t, st.Insert(ctx, newChallenge("c2", "carol", "alice", t0.Add(time.Minute))))
	require.NoError(t, st.Insert(ctx, newChallenge("c3", "bobby", "carol", t0.Add(2*time.Minute))))
	_, err := st.UpdateStatus(ctx, challenge.Transition{ID: "c1", From: challenge.StatusPending, To: challenge.StatusDeclined, RespondedAt: t0})
	require.NoError(t, err)

	ids := func(f challenge.Filter, limit int) []string {
		list, err := st.List(ctx, "alice", f, limit)
		require.NoError(t, err)
		out := []string{}
		for _, c := range list {
			out = append(out, c.ID)
		}
		return out
	}
	assert.Equal(t, []string{"c2", "c1"}, ids(challenge.FilterAll, 10))
	assert.Equal(t, []string{"c2"}, ids(challenge.FilterAll, 1))
	assert.Equal(t, []string{"c1"}, ids(challenge.FilterSent, 10))
	assert.Equal(t, []string{"c2"}, ids(challenge.FilterReceived, 10))
	assert.Equal(t, []string{"c2"}, ids(challenge.FilterPending, 10))
}

func testListDue(t *testing.T, st Backend) {
	ctx := context.Background()
	require.NoError(t, st.Insert(ctx, newChallenge("old", "alice", "bobby", t0)))
	require.NoError(t, st.Insert(ctx, newChallenge("new", "bobby", "carol", t0.Add(30*time.Minute))))
	require.NoError(t, st.Insert(ctx, newChallenge("done", "carol", "alice", t0)))
	_, err := st.UpdateStatus(ctx, challenge.Transition{ID: "done", From: challenge.StatusPending, To: challenge.StatusAccepted, RespondedAt: t0})
	require.NoError(t, err)

	due, err := st.ListDue(ctx, t0.Add(61*time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "old", due[0].ID)
}

func testSetGameID(t *testing.T, st Backend) {
	ctx := context.Background()
	require.NoError(t, st.Insert(ctx, newChallenge("c1", "alice", "bobby", t0)))
	ok, err := st.SetGameID(ctx, "c1", "g1")
	require.NoError(t, err)
	assert.False(t, ok, "pending challenge has no game")

	_, err = st.UpdateStatus(ctx, challenge.Transition{ID: "c1", From: challenge.StatusPending, To: challenge.StatusAccepted, RespondedAt: t0})
	require.NoError(t, err)
	ok, err = st.SetGameID(ctx, "c1", "g1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = st.SetGameID(ctx, "c1", "g2")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := st.FindByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "g1", got.GameID)
}

func testPairCommit(t *testing.T, st Backend) {
	ctx := context.Background()
	p, err := st.LoadPair(ctx, "alice", "bobby")
	require.NoError(t, err)
	assert.Equal(t, friend.StateNone, p.State())

	_, err = st.UpdatePair(ctx, "alice", "bobby", func(p *friend.Pair) error {
		p.AB = &friend.Relation{User: "alice", Friend: "bobby", Status: friend.StatusPending, CreatedAt: t0}
		return nil
	})
	require.NoError(t, err)

	p, err = st.LoadPair(ctx, "bobby", "alice")
	require.NoError(t, err)
	assert.Equal(t, friend.StatePendingReceived, p.State())

	boom := errors.New("boom")
	_, err = st.UpdatePair(ctx, "bobby", "alice", func(p *friend.Pair) error {
		p.BA = nil
		return boom
	})
	assert.ErrorIs(t, err, boom)
	p, err = st.LoadPair(ctx, "alice", "bobby")
	require.NoError(t, err)
	assert.Equal(t, friend.StatePendingSent, p.State(), "aborted callback must not write")

	at := t0.Add(time.Minute)
	_, err = st.UpdatePair(ctx, "bobby", "alice", func(p *friend.Pair) error {
		p.BA.Status = friend.StatusAccepted
		p.BA.AcceptedAt = &at
		p.AB = &friend.Relation{User: "bobby", Friend: "alice", Status: friend.StatusAccepted, CreatedAt: at, AcceptedAt: &at}
		return nil
	})
	require.NoError(t, err)
	p, err = st.LoadPair(ctx, "alice", "bobby")
	require.NoError(t, err)
	assert.Equal(t, friend.StateFriends, p.State())
	require.NotNil(t, p.AB.AcceptedAt)
	assert.True(t, p.AB.AcceptedAt.Equal(at))

	_, err = st.UpdatePair(ctx, "alice", "bobby", func(p *friend.Pair) error {
		p.AB, p.BA = nil, nil
		return nil
	})
	require.NoError(t, err)
	p, err = st.LoadPair(ctx, "alice", "bobby")
	require.NoError(t, err)
	assert.Empty(t, p.Edges())
}

// testPairConcurrent bumps a counter from many goroutines; every commit
// must observe the previous one.
func testPairConcurrent(t *testing.T, st Backend) {
	ctx := context.Background()
	_, err := st.UpdatePair(ctx, "alice", "bobby", func(p *friend.Pair) error {
		p.AB = &friend.Relation{User: "alice", Friend: "bobby", Status: friend.StatusAccepted, CreatedAt: t0}
		p.BA = &friend.Relation{User: "bobby", Friend: "alice", Status: friend.StatusAccepted, CreatedAt: t0}
		return nil
	})
	require.NoError(t, err)

	const writers = 4
	var wg sync.WaitGroup
	var mu sync.Mutex
	committed := 0
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.UpdatePair(ctx, "bobby", "alice", func(p *friend.Pair) error {
				p.AB.GamesPlayedTogether++
				p.BA.GamesPlayedTogether++
				return nil
			})
			if err == nil {
				mu.Lock()
				committed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	p, err := st.LoadPair(ctx, "alice", "bobby")
	require.NoError(t, err)
	assert.Equal(t, committed, p.AB.GamesPlayedTogether)
	assert.Equal(t, committed, p.BA.GamesPlayedTogether)
	assert.Positive(t, committed)
}

func testEdgeList(t *testing.T, st Backend) {
	ctx := context.Background()
	put := func(user, other string, status friend.Status, created time.Time) {
		_, err := st.UpdatePair(ctx, user, other, func(p *friend.Pair) error {
			p.AB = &friend.Relation{User: user, Friend: other, Status: status, CreatedAt: created}
			return nil
		})
		require.NoError(t, err)
	}
	put("alice", "bobby", friend.StatusAccepted, t0)
	put("alice", "carol", friend.StatusAccepted, t0.Add(time.Minute))
	put("bobby", "carol", friend.StatusPending, t0)

	list, err := st.ListEdges(ctx, friend.EdgeQuery{User: "alice", Status: friend.StatusAccepted})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "carol", list[0].Friend)

	list, err = st.ListEdges(ctx, friend.EdgeQuery{Friend: "carol", Status: friend.StatusPending})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "bobby", list[0].User)

	list, err = st.ListEdges(ctx, friend.EdgeQuery{User: "alice", Status: friend.StatusAccepted, Contains: "OB"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "bobby", list[0].Friend)

	list, err = st.ListEdges(ctx, friend.EdgeQuery{User: "alice", Status: friend.StatusAccepted, Contains: "b.b"})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = st.ListEdges(ctx, friend.EdgeQuery{User: "alice", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
