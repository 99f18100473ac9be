package command

import (
	"context"
	"strconv"
	"strings"

	"github.com/park285/cheese-social/internal/challenge"
	"github.com/park285/cheese-social/internal/util"
	"github.com/park285/cheese-social/pkg/relationdto"
)

const timeLayout = "2006-01-02 15:04 MST"

func (r *Router) challenge(ctx context.Context, user string, args []string) string {
	usage := r.render("command.usage_challenge", r.prefixData(), "Usage: challenge @user")
	if len(args) == 0 {
		return usage
	}
	if strings.HasPrefix(args[0], "@") {
		return r.challengeCreate(ctx, user, args)
	}
	sub := strings.ToLower(args[0])
	switch sub {
	case "list", "목록":
		filter := ""
		if len(args) > 1 {
			filter = args[1]
		}
		return r.challengeList(r.svc.ListChallenges(ctx, user, filter))
	case "accept", "수락", "decline", "거절", "cancel", "취소", "show":
		if len(args) < 2 {
			return usage
		}
		id := args[1]
		var res relationdto.ChallengeResult
		switch sub {
		case "accept", "수락":
			res = r.svc.AcceptChallenge(ctx, user, id)
		case "decline", "거절":
			res = r.svc.DeclineChallenge(ctx, user, id)
		case "cancel", "취소":
			res = r.svc.CancelChallenge(ctx, user, id)
		default:
			res = r.svc.GetChallenge(ctx, user, id)
			if res.Success {
				return r.render("command.challenge_detail", challengeData(res.Message, res.Challenge), res.Message)
			}
		}
		return r.challengeUpdated(res)
	default:
		return usage
	}
}

// challengeCreate parses "@user [time control] [rated|casual] [message...]".
func (r *Router) challengeCreate(ctx context.Context, user string, args []string) string {
	req := relationdto.CreateChallengeRequest{Challenger: user, Challenged: sanitizeUserArg(args[0])}
	rest := args[1:]
	if len(rest) > 0 {
		if _, ok := challenge.ParseTimeControl(rest[0]); ok {
			req.TimeControl = strings.ToLower(rest[0])
			rest = rest[1:]
		}
	}
	if len(rest) > 0 {
		switch strings.ToLower(rest[0]) {
		case "rated", "랭크":
			v := true
			req.Rated = &v
			rest = rest[1:]
		case "casual", "친선":
			v := false
			req.Rated = &v
			rest = rest[1:]
		}
	}
	req.Message = strings.Join(rest, " ")

	res := r.svc.CreateChallenge(ctx, req)
	if !res.Success {
		return r.failure(res.Message)
	}
	return r.render("command.challenge_created", challengeData(res.Message, res.Challenge), res.Message)
}

func (r *Router) challengeUpdated(res relationdto.ChallengeResult) string {
	if !res.Success {
		return r.failure(res.Message)
	}
	return r.render("command.challenge_updated", challengeData(res.Message, res.Challenge), res.Message)
}

func (r *Router) challengeList(res relationdto.ChallengeListResult) string {
	if !res.Success {
		return r.failure(res.Message)
	}
	header := r.render("command.challenge_list_header", map[string]any{"Message": res.Message, "Count": len(res.Challenges)}, res.Message)
	var lines []string
	if len(res.Challenges) == 0 {
		lines = append(lines, r.render("command.list_empty", nil, "(none)"))
	}
	for _, c := range res.Challenges {
		lines = append(lines, r.render("command.challenge_list_item", challengeData("", c), c.ID))
	}
	return util.CollapseList(header, lines, maxInlineLines)
}

func challengeData(message string, c *relationdto.Challenge) map[string]any {
	data := map[string]any{"Message": message}
	if c == nil {
		return data
	}
	mode := "casual"
	if c.Rated {
		mode = "rated"
	}
	data["ID"] = c.ID
	data["Challenger"] = c.Challenger
	data["Challenged"] = c.Challenged
	data["TimeControl"] = c.TimeControl
	data["Mode"] = mode
	data["Status"] = c.Status
	data["ExpiresAt"] = c.ExpiresAt.Format(timeLayout)
	data["Rated"] = strconv.FormatBool(c.Rated)
	return data
}
