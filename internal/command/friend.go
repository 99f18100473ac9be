package command

import (
	"context"
	"strings"

	"github.com/park285/cheese-social/internal/util"
	"github.com/park285/cheese-social/pkg/relationdto"
)

func (r *Router) friend(ctx context.Context, user string, args []string) string {
	usage := r.render("command.usage_friend", r.prefixData(), "Usage: friend add @user")
	if len(args) == 0 {
		return usage
	}
	sub := strings.ToLower(args[0])
	switch sub {
	case "list", "목록":
		return r.friendList(r.svc.ListFriends(ctx, user), false)
	case "requests", "요청":
		return r.friendList(r.svc.ListPendingReceived(ctx, user), true)
	case "sent":
		return r.friendList(r.svc.ListPendingSent(ctx, user), false)
	case "blocked":
		return r.friendList(r.svc.ListBlocked(ctx, user), false)
	case "search", "검색":
		return r.friendList(r.svc.SearchFriends(ctx, user, strings.Join(args[1:], " ")), false)
	}

	if len(args) < 2 {
		return usage
	}
	other := sanitizeUserArg(args[1])
	var res relationdto.FriendResult
	switch sub {
	case "add", "추가":
		res = r.svc.SendFriendRequest(ctx, user, other)
	case "accept", "수락":
		res = r.svc.AcceptFriendRequest(ctx, user, other)
	case "decline", "거절":
		res = r.svc.DeclineFriendRequest(ctx, user, other)
	case "remove", "삭제":
		res = r.svc.Unfriend(ctx, user, other)
	case "block", "차단":
		res = r.svc.BlockUser(ctx, user, other)
	case "unblock":
		res = r.svc.UnblockUser(ctx, user, other)
	case "status":
		st := r.svc.Relationship(ctx, user, other)
		if !st.Success {
			return r.failure(st.Message)
		}
		return r.render("command.relationship", map[string]any{"User": user, "Other": other, "State": st.State}, st.State)
	default:
		return usage
	}
	if !res.Success {
		return r.failure(res.Message)
	}
	return r.render("command.friend_updated", map[string]any{"Message": res.Message, "Other": other}, res.Message)
}

// friendList prints the counterpart of each edge. incoming lists the
// requester of edges addressed to the user.
func (r *Router) friendList(res relationdto.FriendListResult, incoming bool) string {
	if !res.Success {
		return r.failure(res.Message)
	}
	header := r.render("command.friend_list_header", map[string]any{"Message": res.Message, "Count": len(res.Relations)}, res.Message)
	var lines []string
	if len(res.Relations) == 0 {
		lines = append(lines, r.render("command.list_empty", nil, "(none)"))
	}
	for _, rel := range res.Relations {
		name := rel.Friend
		if incoming {
			name = rel.User
		}
		lines = append(lines, r.render("command.friend_list_item", map[string]any{"Name": name, "Games": rel.GamesPlayedTogether}, name))
	}
	return util.CollapseList(header, lines, maxInlineLines)
}
