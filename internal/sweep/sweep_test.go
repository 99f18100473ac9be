package sweep

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/park285/cheese-social/internal/challenge"
	"github.com/park285/cheese-social/internal/store/memstore"
)

type expirerFunc func(ctx context.Context) (int, error)

func (f expirerFunc) ExpireDue(ctx context.Context) (int, error) { return f(ctx) }

func TestNewDisabled(t *testing.T) {
	if New(expirerFunc(nil), 0) != nil {
		t.Fatalf("zero interval should disable the sweep")
	}
	var s *Sweeper
	s.Run(context.Background())
}

func TestOnceRecoversPanic(t *testing.T) {
	s := New(expirerFunc(func(context.Context) (int, error) { panic("boom") }), time.Second)
	if n := s.Once(context.Background()); n != 0 {
		t.Fatalf("expected 0 after panic, got %d", n)
	}
}

func TestOnceReportsError(t *testing.T) {
	s := New(expirerFunc(func(context.Context) (int, error) { return 1, errors.New("down") }), time.Second)
	if n := s.Once(context.Background()); n != 1 {
		t.Fatalf("expected partial count 1, got %d", n)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	s := New(expirerFunc(func(context.Context) (int, error) {
		calls.Add(1)
		return 0, nil
	}), 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { s.Run(ctx); close(done) }()

	deadline := time.After(2 * time.Second)
	for calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("sweep did not tick")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestSweepRelabelsOverdueChallenges(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	st.AddUsers("alice", "bob", "carol")
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m := challenge.NewMachine(st, st, challenge.Options{Now: clock})

	old, err := m.Create(ctx, challenge.CreateRequest{Challenger: "alice", Challenged: "bob"})
	if err != nil { t.Fatalf("Create: %v", err) }
	now = now.Add(50 * time.Minute)
	fresh, err := m.Create(ctx, challenge.CreateRequest{Challenger: "alice", Challenged: "carol"})
	if err != nil { t.Fatalf("Create: %v", err) }
	now = now.Add(11 * time.Minute)

	s := New(m, time.Minute)
	if n := s.Once(ctx); n != 1 {
		t.Fatalf("expected 1 expired, got %d", n)
	}
	got, _ := st.FindByID(ctx, old.ID)
	if got.Status != challenge.StatusExpired || got.RespondedAt == nil {
		t.Fatalf("old challenge not relabelled: %+v", got)
	}
	got, _ = st.FindByID(ctx, fresh.ID)
	if got.Status != challenge.StatusPending {
		t.Fatalf("fresh challenge touched: %s", got.Status)
	}
	// a new challenge for the expired pair is allowed again
	if _, err := m.Create(ctx, challenge.CreateRequest{Challenger: "alice", Challenged: "bob"}); err != nil {
		t.Fatalf("re-create after expiry: %v", err)
	}
}
