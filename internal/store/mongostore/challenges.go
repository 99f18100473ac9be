package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/park285/cheese-social/internal/challenge"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) Insert(ctx context.Context, c *challenge.Challenge) error {
	if _, err := s.collection(collChallenges).InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return challenge.ErrDuplicatePending
		}
		return fmt.Errorf("insert challenge: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*challenge.Challenge, error) {
	var c challenge.Challenge
	err := s.collection(collChallenges).FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find challenge: %w", err)
	}
	normalise(&c)
	return &c, nil
}

// UpdateStatus filters on the expected prior status, so the match count
// is the compare-and-swap result.
func (s *Store) UpdateStatus(ctx context.Context, t challenge.Transition) (bool, error) {
	res, err := s.collection(collChallenges).UpdateOne(ctx,
		bson.M{"_id": t.ID, "status": t.From},
		bson.M{"$set": bson.M{"status": t.To, "responded_at": t.RespondedAt}})
	if err != nil {
		return false, fmt.Errorf("update challenge: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (s *Store) List(ctx context.Context, username string, filter challenge.Filter, limit int) ([]*challenge.Challenge, error) {
	either := bson.A{bson.M{"challenger_username": username}, bson.M{"challenged_username": username}}
	var q bson.M
	switch filter {
	case challenge.FilterSent:
		q = bson.M{"challenger_username": username}
	case challenge.FilterReceived:
		q = bson.M{"challenged_username": username}
	case challenge.FilterPending:
		q = bson.M{"$or": either, "status": challenge.StatusPending}
	default:
		q = bson.M{"$or": either}
	}
	if limit <= 0 {
		limit = challenge.DefaultListLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	return s.findChallenges(ctx, q, opts)
}

func (s *Store) ListDue(ctx context.Context, now time.Time) ([]*challenge.Challenge, error) {
	q := bson.M{"status": challenge.StatusPending, "expires_at": bson.M{"$lt": now}}
	return s.findChallenges(ctx, q, options.Find().SetSort(bson.D{{Key: "expires_at", Value: 1}}))
}

func (s *Store) SetGameID(ctx context.Context, id, gameID string) (bool, error) {
	res, err := s.collection(collChallenges).UpdateOne(ctx,
		bson.M{"_id": id, "status": challenge.StatusAccepted, "game_id": bson.M{"$in": bson.A{"", nil}}},
		bson.M{"$set": bson.M{"game_id": gameID}})
	if err != nil {
		return false, fmt.Errorf("link game: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (s *Store) findChallenges(ctx context.Context, q bson.M, opts *options.FindOptions) ([]*challenge.Challenge, error) {
	cur, err := s.collection(collChallenges).Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("find challenges: %w", err)
	}
	defer cur.Close(ctx)
	out := []*challenge.Challenge{}
	for cur.Next(ctx) {
		var c challenge.Challenge
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		normalise(&c)
		out = append(out, &c)
	}
	return out, cur.Err()
}

// normalise restores UTC locations after BSON decoding.
func normalise(c *challenge.Challenge) {
	c.CreatedAt = c.CreatedAt.UTC()
	c.ExpiresAt = c.ExpiresAt.UTC()
	if c.RespondedAt != nil {
		t := c.RespondedAt.UTC()
		c.RespondedAt = &t
	}
}

var _ challenge.Store = (*Store)(nil)
