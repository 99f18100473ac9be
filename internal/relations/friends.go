package relations

import (
	"context"

	"github.com/park285/cheese-social/internal/friend"
	"github.com/park285/cheese-social/pkg/relationdto"
)

func relationView(r *friend.Relation) *relationdto.Relation {
	if r == nil {
		return nil
	}
	return &relationdto.Relation{
		User:                r.User,
		Friend:              r.Friend,
		Status:              string(r.Status),
		CreatedAt:           r.CreatedAt,
		AcceptedAt:          r.AcceptedAt,
		BlockedAt:           r.BlockedAt,
		GamesPlayedTogether: r.GamesPlayedTogether,
	}
}

func (s *Service) friendResult(op string, r *friend.Relation, err error, key, okMsg string) relationdto.FriendResult {
	if err != nil {
		msg, code := s.failure(op, err)
		return relationdto.FriendResult{Success: false, Message: msg, Code: code}
	}
	return relationdto.FriendResult{Success: true, Message: s.text(key, okMsg), Relation: relationView(r)}
}

func (s *Service) listResult(op string, list []*friend.Relation, err error, key, okMsg string) relationdto.FriendListResult {
	if err != nil {
		msg, code := s.failure(op, err)
		return relationdto.FriendListResult{Success: false, Message: msg, Code: code, Relations: []*relationdto.Relation{}}
	}
	out := make([]*relationdto.Relation, 0, len(list))
	for _, r := range list {
		out = append(out, relationView(r))
	}
	return relationdto.FriendListResult{Success: true, Message: s.text(key, okMsg), Relations: out}
}

func (s *Service) SendFriendRequest(ctx context.Context, user, other string) relationdto.FriendResult {
	r, err := s.friends.SendRequest(ctx, user, other)
	return s.friendResult("friend_request", r, err, "friend.request_sent", "Friend request sent")
}

// AcceptFriendRequest accepts the request other sent to user.
func (s *Service) AcceptFriendRequest(ctx context.Context, user, other string) relationdto.FriendResult {
	r, err := s.friends.Accept(ctx, user, other)
	return s.friendResult("friend_accept", r, err, "friend.request_accepted", "Friend request accepted")
}

func (s *Service) DeclineFriendRequest(ctx context.Context, user, other string) relationdto.FriendResult {
	r, err := s.friends.Decline(ctx, user, other)
	return s.friendResult("friend_decline", r, err, "friend.request_declined", "Friend request declined")
}

func (s *Service) Unfriend(ctx context.Context, user, other string) relationdto.FriendResult {
	r, err := s.friends.Unfriend(ctx, user, other)
	return s.friendResult("friend_unfriend", r, err, "friend.unfriended", "Unfriended successfully")
}

func (s *Service) BlockUser(ctx context.Context, user, blocked string) relationdto.FriendResult {
	r, err := s.friends.Block(ctx, user, blocked)
	return s.friendResult("friend_block", r, err, "friend.blocked", "User blocked")
}

func (s *Service) UnblockUser(ctx context.Context, user, blocked string) relationdto.FriendResult {
	r, err := s.friends.Unblock(ctx, user, blocked)
	return s.friendResult("friend_unblock", r, err, "friend.unblocked", "User unblocked")
}

// RecordGamePlayed is called by the game component after a finished match.
func (s *Service) RecordGamePlayed(ctx context.Context, user, other string) relationdto.FriendResult {
	r, err := s.friends.RecordGamePlayed(ctx, user, other)
	return s.friendResult("friend_record_game", r, err, "friend.game_recorded", "Game recorded")
}

func (s *Service) Relationship(ctx context.Context, user, other string) relationdto.RelationshipResult {
	st, err := s.friends.Relationship(ctx, user, other)
	if err != nil {
		msg, code := s.failure("friend_relationship", err)
		return relationdto.RelationshipResult{Success: false, Message: msg, Code: code}
	}
	return relationdto.RelationshipResult{Success: true, Message: s.text("friend.relationship", "Relationship retrieved"), State: string(st)}
}

func (s *Service) ListFriends(ctx context.Context, user string) relationdto.FriendListResult {
	list, err := s.friends.ListFriends(ctx, user)
	return s.listResult("friend_list", list, err, "friend.friends_listed", "Friends retrieved")
}

func (s *Service) ListPendingReceived(ctx context.Context, user string) relationdto.FriendListResult {
	list, err := s.friends.ListPendingReceived(ctx, user)
	return s.listResult("friend_list_received", list, err, "friend.pending_listed", "Pending requests retrieved")
}

func (s *Service) ListPendingSent(ctx context.Context, user string) relationdto.FriendListResult {
	list, err := s.friends.ListPendingSent(ctx, user)
	return s.listResult("friend_list_sent", list, err, "friend.sent_listed", "Sent requests retrieved")
}

func (s *Service) ListBlocked(ctx context.Context, user string) relationdto.FriendListResult {
	list, err := s.friends.ListBlocked(ctx, user)
	return s.listResult("friend_list_blocked", list, err, "friend.blocked_listed", "Blocked users retrieved")
}

func (s *Service) SearchFriends(ctx context.Context, user, query string) relationdto.FriendListResult {
	list, err := s.friends.SearchFriends(ctx, user, query)
	return s.listResult("friend_search", list, err, "friend.search_results", "Search results")
}
