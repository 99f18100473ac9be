package relations

import (
	"context"

	"github.com/park285/cheese-social/internal/challenge"
	"github.com/park285/cheese-social/pkg/relationdto"
)

func challengeView(c *challenge.Challenge) *relationdto.Challenge {
	if c == nil {
		return nil
	}
	return &relationdto.Challenge{
		ID:          c.ID,
		Challenger:  c.Challenger,
		Challenged:  c.Challenged,
		TimeControl: string(c.TimeControl),
		Rated:       c.Rated,
		Message:     c.Message,
		Status:      string(c.Status),
		CreatedAt:   c.CreatedAt,
		ExpiresAt:   c.ExpiresAt,
		RespondedAt: c.RespondedAt,
		GameID:      c.GameID,
	}
}

func (s *Service) challengeResult(op string, c *challenge.Challenge, err error, key, okMsg string) relationdto.ChallengeResult {
	if err != nil {
		msg, code := s.failure(op, err)
		return relationdto.ChallengeResult{Success: false, Message: msg, Code: code}
	}
	return relationdto.ChallengeResult{Success: true, Message: s.text(key, okMsg), Challenge: challengeView(c)}
}

// CreateChallenge defaults to a rated blitz game.
func (s *Service) CreateChallenge(ctx context.Context, req relationdto.CreateChallengeRequest) relationdto.ChallengeResult {
	rated := true
	if req.Rated != nil {
		rated = *req.Rated
	}
	c, err := s.challenges.Create(ctx, challenge.CreateRequest{
		Challenger:  req.Challenger,
		Challenged:  req.Challenged,
		TimeControl: req.TimeControl,
		Rated:       rated,
		Message:     req.Message,
	})
	return s.challengeResult("challenge_create", c, err, "challenge.created", "Challenge created successfully")
}

func (s *Service) CancelChallenge(ctx context.Context, actor, id string) relationdto.ChallengeResult {
	c, err := s.challenges.Cancel(ctx, actor, id)
	return s.challengeResult("challenge_cancel", c, err, "challenge.cancelled", "Challenge cancelled successfully")
}

func (s *Service) AcceptChallenge(ctx context.Context, actor, id string) relationdto.ChallengeResult {
	c, err := s.challenges.Accept(ctx, actor, id)
	return s.challengeResult("challenge_accept", c, err, "challenge.accepted", "Challenge accepted successfully")
}

func (s *Service) DeclineChallenge(ctx context.Context, actor, id string) relationdto.ChallengeResult {
	c, err := s.challenges.Decline(ctx, actor, id)
	return s.challengeResult("challenge_decline", c, err, "challenge.declined", "Challenge declined successfully")
}

func (s *Service) GetChallenge(ctx context.Context, actor, id string) relationdto.ChallengeResult {
	c, err := s.challenges.Get(ctx, actor, id)
	return s.challengeResult("challenge_get", c, err, "challenge.retrieved", "Challenge retrieved successfully")
}

// LinkGame is called by the game component once it has created the match.
func (s *Service) LinkGame(ctx context.Context, id, gameID string) relationdto.ChallengeResult {
	c, err := s.challenges.LinkGame(ctx, id, gameID)
	return s.challengeResult("challenge_link_game", c, err, "challenge.game_linked", "Game linked to challenge")
}

// ListChallenges treats an empty or unknown filter as "all".
func (s *Service) ListChallenges(ctx context.Context, username, filter string) relationdto.ChallengeListResult {
	list, err := s.challenges.List(ctx, username, challenge.ParseFilter(filter))
	if err != nil {
		msg, code := s.failure("challenge_list", err)
		return relationdto.ChallengeListResult{Success: false, Message: msg, Code: code, Challenges: []*relationdto.Challenge{}}
	}
	out := make([]*relationdto.Challenge, 0, len(list))
	for _, c := range list {
		out = append(out, challengeView(c))
	}
	return relationdto.ChallengeListResult{Success: true, Message: s.text("challenge.listed", "Challenges retrieved successfully"), Challenges: out}
}
