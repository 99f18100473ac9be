package relations

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/park285/cheese-social/internal/account"
	"github.com/park285/cheese-social/internal/challenge"
	"github.com/park285/cheese-social/internal/friend"
	"github.com/park285/cheese-social/internal/msgcat"
	"github.com/park285/cheese-social/internal/relerr"
	"github.com/park285/cheese-social/internal/store/memstore"
	"github.com/park285/cheese-social/pkg/relationdto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, users account.Oracle, cat *msgcat.Catalog) *Service {
	t.Helper()
	st := memstore.New()
	st.AddUsers("alice", "bobby", "carol")
	if users == nil {
		users = st
	}
	return New(
		challenge.NewMachine(st, users, challenge.Options{TTL: time.Minute}),
		friend.NewMachine(st, users, nil),
		cat,
	)
}

func TestChallengeEnvelope(t *testing.T) {
	s := newService(t, nil, nil)
	ctx := context.Background()

	res := s.CreateChallenge(ctx, relationdto.CreateChallengeRequest{Challenger: "alice", Challenged: "bobby", TimeControl: "bullet"})
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "Challenge created successfully", res.Message)
	assert.Empty(t, res.Code)
	require.NotNil(t, res.Challenge)
	assert.True(t, res.Challenge.Rated)
	assert.Equal(t, "bullet", res.Challenge.TimeControl)
	assert.Equal(t, "pending", res.Challenge.Status)

	casual := false
	dup := s.CreateChallenge(ctx, relationdto.CreateChallengeRequest{Challenger: "alice", Challenged: "bobby", Rated: &casual})
	assert.False(t, dup.Success)
	assert.Equal(t, string(relerr.KindDuplicatePending), dup.Code)
	assert.Equal(t, "You already have a pending challenge to this user", dup.Message)
	assert.Nil(t, dup.Challenge)

	acc := s.AcceptChallenge(ctx, "alice", res.Challenge.ID)
	assert.Equal(t, string(relerr.KindForbidden), acc.Code)
	assert.Equal(t, "Only the challenged player can accept", acc.Message)

	acc = s.AcceptChallenge(ctx, "bobby", res.Challenge.ID)
	require.True(t, acc.Success, acc.Message)
	assert.Equal(t, "accepted", acc.Challenge.Status)
	assert.NotNil(t, acc.Challenge.RespondedAt)

	linked := s.LinkGame(ctx, res.Challenge.ID, "game-1")
	require.True(t, linked.Success, linked.Message)
	assert.Equal(t, "game-1", linked.Challenge.GameID)

	list := s.ListChallenges(ctx, "bobby", "")
	require.True(t, list.Success)
	assert.Len(t, list.Challenges, 1)

	bad := s.ListChallenges(ctx, "!", "sent")
	assert.True(t, bad.Success)
	assert.NotNil(t, bad.Challenges)
	assert.Empty(t, bad.Challenges)
}

func TestFriendEnvelope(t *testing.T) {
	s := newService(t, nil, nil)
	ctx := context.Background()

	require.True(t, s.SendFriendRequest(ctx, "alice", "bobby").Success)
	res := s.SendFriendRequest(ctx, "bobby", "alice")
	assert.False(t, res.Success)
	assert.Equal(t, string(relerr.KindAlreadyExists), res.Code)
	assert.Equal(t, "Relationship already exists with status: pending", res.Message)

	acc := s.AcceptFriendRequest(ctx, "bobby", "alice")
	require.True(t, acc.Success, acc.Message)
	assert.Equal(t, "accepted", acc.Relation.Status)
	assert.Equal(t, "bobby", acc.Relation.User)

	rel := s.Relationship(ctx, "alice", "bobby")
	assert.Equal(t, "friends", rel.State)

	games := s.RecordGamePlayed(ctx, "alice", "bobby")
	require.True(t, games.Success)
	assert.Equal(t, 1, games.Relation.GamesPlayedTogether)

	assert.Len(t, s.SearchFriends(ctx, "alice", "BOB").Relations, 1)
	assert.Len(t, s.ListFriends(ctx, "bobby").Relations, 1)
	assert.Empty(t, s.ListPendingReceived(ctx, "bobby").Relations)
	assert.Empty(t, s.ListPendingSent(ctx, "alice").Relations)

	require.True(t, s.Unfriend(ctx, "alice", "bobby").Success)
	require.True(t, s.BlockUser(ctx, "carol", "alice").Success)
	assert.Len(t, s.ListBlocked(ctx, "carol").Relations, 1)
	unb := s.UnblockUser(ctx, "alice", "carol")
	assert.Equal(t, string(relerr.KindNotFound), unb.Code)
	require.True(t, s.UnblockUser(ctx, "carol", "alice").Success)
	assert.True(t, s.DeclineFriendRequest(ctx, "alice", "carol").Code == string(relerr.KindNotFound))

	blocked := s.BlockUser(ctx, "alice", "dave_x")
	require.True(t, blocked.Success, blocked.Message)
	assert.Equal(t, "dave_x", blocked.Relation.Friend)

	for _, res := range []relationdto.FriendListResult{
		s.ListFriends(ctx, "x"),
		s.SearchFriends(ctx, "bad-name!", "a"),
		s.ListBlocked(ctx, "!"),
	} {
		assert.True(t, res.Success, res.Message)
		assert.NotNil(t, res.Relations)
		assert.Empty(t, res.Relations)
	}
}

func TestStoreFailureIsGeneric(t *testing.T) {
	down := account.OracleFunc(func(context.Context, string) (bool, error) {
		return false, errors.New("dial tcp 10.0.0.1:5432: connection refused")
	})
	s := newService(t, down, nil)
	ctx := context.Background()

	res := s.CreateChallenge(ctx, relationdto.CreateChallengeRequest{Challenger: "alice", Challenged: "bobby"})
	assert.False(t, res.Success)
	assert.Equal(t, string(relerr.KindStoreFailure), res.Code)
	assert.Equal(t, "Internal error, please try again later", res.Message)

	fr := s.SendFriendRequest(ctx, "alice", "bobby")
	assert.Equal(t, "Internal error, please try again later", fr.Message)
}

func TestCatalogOverridesMessages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ko.yaml"), []byte(
		"challenge:\n  self: \"자기 자신에게 도전할 수 없습니다\"\nfriend:\n  already_exists: \"이미 관계가 있습니다: {{.Status}}\"\n"), 0o644))
	cat, err := msgcat.New("en", dir)
	require.NoError(t, err)
	s := newService(t, nil, cat)
	ctx := context.Background()

	res := s.CreateChallenge(ctx, relationdto.CreateChallengeRequest{Challenger: "alice", Challenged: "alice"})
	assert.Equal(t, "자기 자신에게 도전할 수 없습니다", res.Message)

	s.SendFriendRequest(ctx, "alice", "bobby")
	fr := s.SendFriendRequest(ctx, "alice", "bobby")
	assert.Equal(t, "이미 관계가 있습니다: pending", fr.Message)
}
