// Package mongostore is the MongoDB backend.
//
// Challenges are one document each with a partial unique index on the
// pending pair. A friend pair is a single document holding both edges and
// a version counter, so a pair commit is one conditional single-document
// write and needs no multi-document transaction.
package mongostore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collChallenges = "challenges"
	collPairs      = "friend_pairs"
	collUsers      = "users"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to uri and pings the server.
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, fmt.Errorf("MONGO_URI is required")
	}
	if strings.TrimSpace(dbName) == "" {
		dbName = "cheese_social"
	}
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return &Store{client: client, db: client.Database(dbName)}, nil
}

func (s *Store) collection(name string) *mongo.Collection { return s.db.Collection(name) }

// EnsureIndexes creates the indexes the stores rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection(collChallenges).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "challenger_username", Value: 1}, {Key: "challenged_username", Value: 1}},
			Options: options.Index().
				SetName("pending_pair").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": "pending"}),
		},
		{Keys: bson.D{{Key: "challenger_username", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "challenged_username", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("challenge indexes: %w", err)
	}
	_, err = s.collection(collPairs).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "edges.user", Value: 1}, {Key: "edges.status", Value: 1}}},
		{Keys: bson.D{{Key: "edges.friend", Value: 1}, {Key: "edges.status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("pair indexes: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) AddUsers(ctx context.Context, names ...string) error {
	for _, n := range names {
		_, err := s.collection(collUsers).UpdateOne(ctx,
			bson.M{"_id": n},
			bson.M{"$setOnInsert": bson.M{"created_at": time.Now().UTC()}},
			options.Update().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("upsert user: %w", err)
		}
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, username string) (bool, error) {
	n, err := s.collection(collUsers).CountDocuments(ctx, bson.M{"_id": username}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}
