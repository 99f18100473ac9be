package friend_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/cheese-social/internal/account"
	"github.com/park285/cheese-social/internal/friend"
	"github.com/park285/cheese-social/internal/store/memstore"
	"github.com/park285/cheese-social/internal/store/redisstore"
	"github.com/redis/go-redis/v9"
)

type backend interface {
	friend.Store
	account.Oracle
}

var users = []string{"alice", "bobby", "carol", "dave_99"}

func forEachBackend(t *testing.T, fn func(t *testing.T, m *friend.Machine, st backend)) {
	open := map[string]func(*testing.T) backend{
		"memory": func(*testing.T) backend {
			st := memstore.New()
			st.AddUsers(users...)
			return st
		},
		"redis": func(t *testing.T) backend {
			mr, err := miniredis.Run()
			if err != nil { t.Fatalf("miniredis: %v", err) }
			t.Cleanup(mr.Close)
			st := redisstore.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
			if err := st.AddUsers(context.Background(), users...); err != nil { t.Fatalf("AddUsers: %v", err) }
			return st
		},
	}
	for name, o := range open {
		t.Run(name, func(t *testing.T) {
			st := o(t)
			now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
			var mu sync.Mutex
			tick := func() time.Time {
				mu.Lock()
				defer mu.Unlock()
				now = now.Add(time.Second)
				return now
			}
			fn(t, friend.NewMachine(st, st, tick), st)
		})
	}
}

func state(t *testing.T, m *friend.Machine, user, other string) friend.State {
	t.Helper()
	s, err := m.Relationship(context.Background(), user, other)
	if err != nil { t.Fatalf("Relationship: %v", err) }
	return s
}

func TestSendRequestValidation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, m *friend.Machine, _ backend) {
		ctx := context.Background()
		if _, err := m.SendRequest(ctx, "alice", "alice"); !errors.Is(err, friend.ErrSelfRequest) { t.Fatalf("self: %v", err) }
		if _, err := m.SendRequest(ctx, "alice", "x"); !errors.Is(err, friend.ErrInvalidUsername) { t.Fatalf("invalid: %v", err) }
		if _, err := m.SendRequest(ctx, "ghost", "alice"); !errors.Is(err, friend.ErrUserNotFound) { t.Fatalf("ghost user: %v", err) }
		if _, err := m.SendRequest(ctx, "alice", "ghost"); !errors.Is(err, friend.ErrFriendNotFound) { t.Fatalf("ghost friend: %v", err) }
		if _, err := m.Block(ctx, "alice", "alice"); !errors.Is(err, friend.ErrSelfBlock) { t.Fatalf("self block: %v", err) }
		r, err := m.Block(ctx, "alice", "ghost")
		if err != nil || r.Status != friend.StatusBlocked || r.Friend != "ghost" { t.Fatalf("block unregistered: %+v %v", r, err) }
	})
}

func TestRequestAcceptIsSymmetric(t *testing.T) {
	forEachBackend(t, func(t *testing.T, m *friend.Machine, _ backend) {
		ctx := context.Background()
		r, err := m.SendRequest(ctx, "alice", "bobby")
		if err != nil { t.Fatalf("SendRequest: %v", err) }
		if r.Status != friend.StatusPending { t.Fatalf("status = %s", r.Status) }
		if s := state(t, m, "bobby", "alice"); s != friend.StatePendingReceived { t.Fatalf("bobby sees %s", s) }

		_, err = m.SendRequest(ctx, "bobby", "alice")
		if !errors.Is(err, friend.ErrAlreadyExists) { t.Fatalf("reverse request: %v", err) }
		if _, err := m.SendRequest(ctx, "alice", "bobby"); !errors.Is(err, friend.ErrAlreadyExists) { t.Fatalf("repeat request: %v", err) }

		if _, err := m.Accept(ctx, "alice", "bobby"); !errors.Is(err, friend.ErrRequestNotFound) { t.Fatalf("sender accepts: %v", err) }
		got, err := m.Accept(ctx, "bobby", "alice")
		if err != nil { t.Fatalf("Accept: %v", err) }
		if got.Status != friend.StatusAccepted || got.AcceptedAt == nil { t.Fatalf("accepted = %+v", got) }
		if s := state(t, m, "alice", "bobby"); s != friend.StateFriends { t.Fatalf("alice sees %s", s) }
		if s := state(t, m, "bobby", "alice"); s != friend.StateFriends { t.Fatalf("bobby sees %s", s) }

		// a retried accept converges
		if _, err := m.Accept(ctx, "bobby", "alice"); err != nil { t.Fatalf("retry accept: %v", err) }

		for _, u := range []string{"alice", "bobby"} {
			list, err := m.ListFriends(ctx, u)
			if err != nil { t.Fatalf("ListFriends: %v", err) }
			if len(list) != 1 { t.Fatalf("%s has %d friends", u, len(list)) }
		}
	})
}

func TestDeclineAndUnfriendAllowFreshRequest(t *testing.T) {
	forEachBackend(t, func(t *testing.T, m *friend.Machine, _ backend) {
		ctx := context.Background()
		if _, err := m.Decline(ctx, "bobby", "alice"); !errors.Is(err, friend.ErrRequestNotFound) { t.Fatalf("decline nothing: %v", err) }
		m.SendRequest(ctx, "alice", "bobby")
		if _, err := m.Decline(ctx, "bobby", "alice"); err != nil { t.Fatalf("Decline: %v", err) }
		if s := state(t, m, "alice", "bobby"); s != friend.StateNone { t.Fatalf("after decline %s", s) }

		if _, err := m.SendRequest(ctx, "bobby", "alice"); err != nil { t.Fatalf("re-request: %v", err) }
		if _, err := m.Accept(ctx, "alice", "bobby"); err != nil { t.Fatalf("Accept: %v", err) }
		if _, err := m.Unfriend(ctx, "bobby", "alice"); err != nil { t.Fatalf("Unfriend: %v", err) }
		if s := state(t, m, "alice", "bobby"); s != friend.StateNone { t.Fatalf("after unfriend %s", s) }
		if _, err := m.Unfriend(ctx, "bobby", "alice"); !errors.Is(err, friend.ErrNotFriends) { t.Fatalf("unfriend twice: %v", err) }
		if _, err := m.SendRequest(ctx, "alice", "bobby"); err != nil { t.Fatalf("request after unfriend: %v", err) }
	})
}

func TestBlockOverridesEverything(t *testing.T) {
	forEachBackend(t, func(t *testing.T, m *friend.Machine, _ backend) {
		ctx := context.Background()
		m.SendRequest(ctx, "alice", "bobby")
		m.Accept(ctx, "bobby", "alice")

		if _, err := m.Block(ctx, "bobby", "alice"); err != nil { t.Fatalf("Block: %v", err) }
		if s := state(t, m, "bobby", "alice"); s != friend.StateBlocked { t.Fatalf("blocker sees %s", s) }
		if s := state(t, m, "alice", "bobby"); s != friend.StateBlockedBy { t.Fatalf("blocked sees %s", s) }

		if _, err := m.SendRequest(ctx, "alice", "bobby"); !errors.Is(err, friend.ErrAlreadyExists) { t.Fatalf("request to blocker: %v", err) }
		if _, err := m.Unblock(ctx, "alice", "bobby"); !errors.Is(err, friend.ErrBlockNotFound) { t.Fatalf("unblock by blocked: %v", err) }

		list, _ := m.ListBlocked(ctx, "bobby")
		if len(list) != 1 || list[0].Friend != "alice" { t.Fatalf("blocked list = %+v", list) }
		if list, _ := m.ListFriends(ctx, "alice"); len(list) != 0 { t.Fatalf("friends after block = %+v", list) }

		if _, err := m.Unblock(ctx, "bobby", "alice"); err != nil { t.Fatalf("Unblock: %v", err) }
		if s := state(t, m, "alice", "bobby"); s != friend.StateNone { t.Fatalf("after unblock %s", s) }
	})
}

func TestRecordGamePlayed(t *testing.T) {
	forEachBackend(t, func(t *testing.T, m *friend.Machine, _ backend) {
		ctx := context.Background()
		if _, err := m.RecordGamePlayed(ctx, "alice", "bobby"); !errors.Is(err, friend.ErrNotFriends) { t.Fatalf("strangers: %v", err) }
		m.SendRequest(ctx, "alice", "bobby")
		m.Accept(ctx, "bobby", "alice")
		m.RecordGamePlayed(ctx, "alice", "bobby")
		r, err := m.RecordGamePlayed(ctx, "bobby", "alice")
		if err != nil { t.Fatalf("RecordGamePlayed: %v", err) }
		if r.GamesPlayedTogether != 2 { t.Fatalf("games = %d", r.GamesPlayedTogether) }
		list, _ := m.ListFriends(ctx, "alice")
		if list[0].GamesPlayedTogether != 2 { t.Fatalf("alice edge games = %d", list[0].GamesPlayedTogether) }
	})
}

func TestListings(t *testing.T) {
	forEachBackend(t, func(t *testing.T, m *friend.Machine, _ backend) {
		ctx := context.Background()
		m.SendRequest(ctx, "bobby", "alice")
		m.SendRequest(ctx, "carol", "alice")
		m.SendRequest(ctx, "alice", "dave_99")
		m.Accept(ctx, "alice", "carol")

		in, err := m.ListPendingReceived(ctx, "alice")
		if err != nil { t.Fatalf("ListPendingReceived: %v", err) }
		if len(in) != 1 || in[0].User != "bobby" { t.Fatalf("received = %+v", in) }
		out, _ := m.ListPendingSent(ctx, "alice")
		if len(out) != 1 || out[0].Friend != "dave_99" { t.Fatalf("sent = %+v", out) }

		m.Accept(ctx, "alice", "bobby")
		friends, _ := m.ListFriends(ctx, "alice")
		if len(friends) != 2 || friends[0].Friend != "bobby" { t.Fatalf("friends newest first = %+v", friends) }

		hits, _ := m.SearchFriends(ctx, "alice", "CAR")
		if len(hits) != 1 || hits[0].Friend != "carol" { t.Fatalf("search = %+v", hits) }
		if hits, _ := m.SearchFriends(ctx, "alice", ".*"); len(hits) != 0 { t.Fatalf("pattern treated as regex: %+v", hits) }
		if hits, _ := m.SearchFriends(ctx, "alice", ""); len(hits) != 2 { t.Fatalf("empty search = %+v", hits) }
		for _, list := range []func() ([]*friend.Relation, error){
			func() ([]*friend.Relation, error) { return m.ListFriends(ctx, "no") },
			func() ([]*friend.Relation, error) { return m.ListPendingReceived(ctx, "x") },
			func() ([]*friend.Relation, error) { return m.ListPendingSent(ctx, "bad-name!") },
			func() ([]*friend.Relation, error) { return m.ListBlocked(ctx, "") },
			func() ([]*friend.Relation, error) { return m.SearchFriends(ctx, "bad-name!", "a") },
		} {
			got, err := list()
			if err != nil || got == nil || len(got) != 0 { t.Fatalf("malformed user: list=%v err=%v", got, err) }
		}
	})
}

func TestConcurrentMutualRequestsLeaveOneEdge(t *testing.T) {
	forEachBackend(t, func(t *testing.T, m *friend.Machine, st backend) {
		ctx := context.Background()
		for _, pair := range [][2]string{{"alice", "bobby"}, {"carol", "dave_99"}} {
			var wg sync.WaitGroup
			errs := make([]error, 2)
			start := make(chan struct{})
			for i, dir := range [][2]string{{pair[0], pair[1]}, {pair[1], pair[0]}} {
				wg.Add(1)
				go func(i int, from, to string) {
					defer wg.Done()
					<-start
					_, errs[i] = m.SendRequest(ctx, from, to)
				}(i, dir[0], dir[1])
			}
			close(start)
			wg.Wait()

			if (errs[0] == nil) == (errs[1] == nil) { t.Fatalf("%v: errs = %v", pair, errs) }
			p, err := st.LoadPair(ctx, pair[0], pair[1])
			if err != nil { t.Fatalf("LoadPair: %v", err) }
			if len(p.Edges()) != 1 { t.Fatalf("%v: %d edges", pair, len(p.Edges())) }
		}
	})
}

func TestConcurrentAcceptAndDecline(t *testing.T) {
	forEachBackend(t, func(t *testing.T, m *friend.Machine, st backend) {
		ctx := context.Background()
		for i := 0; i < 10; i++ {
			if _, err := m.SendRequest(ctx, "alice", "bobby"); err != nil { t.Fatalf("round %d SendRequest: %v", i, err) }
			var wg sync.WaitGroup
			var accErr, decErr error
			wg.Add(2)
			go func() { defer wg.Done(); _, accErr = m.Accept(ctx, "bobby", "alice") }()
			go func() { defer wg.Done(); _, decErr = m.Decline(ctx, "bobby", "alice") }()
			wg.Wait()

			p, _ := st.LoadPair(ctx, "alice", "bobby")
			switch {
			case accErr == nil && decErr != nil:
				if p.State() != friend.StateFriends { t.Fatalf("round %d: accept won but state %s", i, p.State()) }
				m.Unfriend(ctx, "alice", "bobby")
			case decErr == nil && accErr != nil:
				if p.State() != friend.StateNone { t.Fatalf("round %d: decline won but state %s", i, p.State()) }
			default:
				t.Fatalf("round %d: accept=%v decline=%v", i, accErr, decErr)
			}
		}
	})
}
