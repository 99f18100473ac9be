package command

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/park285/cheese-social/internal/challenge"
	"github.com/park285/cheese-social/internal/friend"
	"github.com/park285/cheese-social/internal/irisfast"
	"github.com/park285/cheese-social/internal/msgcat"
	"github.com/park285/cheese-social/internal/relations"
	"github.com/park285/cheese-social/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEgress struct {
	mu    sync.Mutex
	rooms []string
	texts []string
}

func (e *recordingEgress) SendText(_ context.Context, room, message string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rooms = append(e.rooms, room)
	e.texts = append(e.texts, message)
	return nil
}

func newTestRouter(t *testing.T, rooms ...string) (*Router, *recordingEgress) {
	t.Helper()
	st := memstore.New()
	st.AddUsers("alice", "bobby", "carol")
	seq := 0
	chal := challenge.NewMachine(st, st, challenge.Options{NewID: func() string {
		seq++
		return fmt.Sprintf("c%d", seq)
	}})
	fr := friend.NewMachine(st, st, nil)
	cat, err := msgcat.New("", "")
	require.NoError(t, err)
	out := &recordingEgress{}
	return NewRouter("!", relations.New(chal, fr, cat), cat, out, rooms), out
}

func message(room, user, text string) *irisfast.Message {
	return &irisfast.Message{Msg: text, Room: room, JSON: &irisfast.MessageJSON{UserID: user}}
}

func TestDispatchChallengeFlow(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()

	out := r.Dispatch(ctx, "alice", "challenge @bobby classical casual good luck")
	assert.Contains(t, out, "ID: c1")
	assert.Contains(t, out, "(classical, casual)")

	out = r.Dispatch(ctx, "alice", "challenge @bobby")
	assert.Contains(t, out, "pending challenge")

	out = r.Dispatch(ctx, "alice", "challenge accept c1")
	assert.Contains(t, out, "⚠️")

	out = r.Dispatch(ctx, "bobby", "challenge accept c1")
	assert.Contains(t, out, "c1: accepted")

	out = r.Dispatch(ctx, "bobby", "challenge list received")
	assert.Contains(t, out, "(1)")
	assert.Contains(t, out, "c1 alice → bobby classical [accepted]")
}

func TestDispatchChallengeDefaultsAndShow(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()

	out := r.Dispatch(ctx, "alice", "challenge @carol")
	assert.Contains(t, out, "(blitz, rated)")

	out = r.Dispatch(ctx, "carol", "challenge show c1")
	assert.Contains(t, out, "[pending]")

	out = r.Dispatch(ctx, "bobby", "challenge show c1")
	assert.Contains(t, out, "⚠️")

	out = r.Dispatch(ctx, "alice", "challenge cancel c1")
	assert.Contains(t, out, "c1: cancelled")
}

func TestDispatchFriendFlow(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()

	assert.Contains(t, r.Dispatch(ctx, "alice", "friend add @bobby"), "bobby")
	assert.Contains(t, r.Dispatch(ctx, "bobby", "friend requests"), "• alice")
	assert.Contains(t, r.Dispatch(ctx, "alice", "friend sent"), "• bobby")
	assert.Contains(t, r.Dispatch(ctx, "bobby", "friend add @alice"), "pending")

	r.Dispatch(ctx, "bobby", "friend accept @alice")
	assert.Equal(t, "alice ↔ bobby: friends", r.Dispatch(ctx, "alice", "friend status @bobby"))
	assert.Contains(t, r.Dispatch(ctx, "alice", "friend search BOB"), "• bobby")
	assert.Contains(t, r.Dispatch(ctx, "alice", "friend search zz"), "(none)")

	r.Dispatch(ctx, "alice", "friend block @bobby")
	assert.Contains(t, r.Dispatch(ctx, "alice", "friend blocked"), "• bobby")
	assert.Equal(t, "bobby ↔ alice: blocked_by", r.Dispatch(ctx, "bobby", "friend status @alice"))
	assert.Contains(t, r.Dispatch(ctx, "alice", "friend list"), "(none)")
}

func TestDispatchUsageAndUnknown(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()

	assert.Contains(t, r.Dispatch(ctx, "alice", ""), "!challenge @user")
	assert.Contains(t, r.Dispatch(ctx, "alice", "dance"), "!help")
	assert.Contains(t, r.Dispatch(ctx, "alice", "challenge"), "Usage")
	assert.Contains(t, r.Dispatch(ctx, "alice", "friend add"), "Usage")
	assert.Equal(t, "Cannot identify sender.", r.Dispatch(ctx, "", "friend list"))
}

func TestHandleFiltersRoomsAndPrefix(t *testing.T) {
	r, out := newTestRouter(t, "lobby")
	ctx := context.Background()

	r.Handle(ctx, message("other", "alice", "!help"))
	r.Handle(ctx, message("lobby", "alice", "help"))
	assert.Empty(t, out.texts)

	r.Handle(ctx, message("lobby", "alice", "!friend add @bobby"))
	require.Len(t, out.texts, 1)
	assert.Equal(t, "lobby", out.rooms[0])
	assert.Contains(t, out.texts[0], "bobby")
}

type fakeInbound struct {
	mu  sync.Mutex
	cbs map[int]irisfast.MessageCallback
	seq int
}

func (f *fakeInbound) OnMessage(cb irisfast.MessageCallback) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cbs == nil {
		f.cbs = map[int]irisfast.MessageCallback{}
	}
	f.seq++
	f.cbs[f.seq] = cb
	return f.seq
}

func (f *fakeInbound) RemoveMessageCallback(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cbs, id)
}

func (f *fakeInbound) push(msg *irisfast.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cb := range f.cbs {
		cb(msg)
	}
}

func TestListenHandlesPushedMessages(t *testing.T) {
	r, out := newTestRouter(t)
	in := &fakeInbound{}
	stop := r.Listen(context.Background(), in)

	in.push(message("lobby", "alice", "!friend add @carol"))
	assert.Eventually(t, func() bool {
		out.mu.Lock()
		defer out.mu.Unlock()
		return len(out.texts) == 1
	}, time.Second, 10*time.Millisecond)

	stop()
	in.mu.Lock()
	assert.Empty(t, in.cbs)
	in.mu.Unlock()
}

func TestUserIDFromMessage(t *testing.T) {
	sender := " carol "
	assert.Equal(t, "carol", userIDFromMessage(&irisfast.Message{Sender: &sender}))
	assert.Equal(t, "alice", userIDFromMessage(message("r", "alice", "x")))
	assert.Equal(t, "", userIDFromMessage(&irisfast.Message{}))
	assert.Equal(t, "bobby", sanitizeUserArg(" @bobby"))
}
