package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/park285/cheese-social/internal/friend"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type pairDoc struct {
	ID      string            `bson:"_id"`
	Edges   []friend.Relation `bson:"edges"`
	Version int64             `bson:"version"`
}

func pairID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func (d *pairDoc) pair(a, b string) *friend.Pair {
	p := &friend.Pair{A: a, B: b}
	for i := range d.Edges {
		e := d.Edges[i]
		e.CreatedAt = e.CreatedAt.UTC()
		switch {
		case e.User == a && e.Friend == b:
			p.AB = &e
		case e.User == b && e.Friend == a:
			p.BA = &e
		}
	}
	return p
}

func (s *Store) loadPairDoc(ctx context.Context, id string) (*pairDoc, bool, error) {
	var d pairDoc
	err := s.collection(collPairs).FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &pairDoc{ID: id}, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &d, true, nil
}

func (s *Store) LoadPair(ctx context.Context, a, b string) (*friend.Pair, error) {
	d, _, err := s.loadPairDoc(ctx, pairID(a, b))
	if err != nil {
		return nil, fmt.Errorf("find pair: %w", err)
	}
	return d.pair(a, b), nil
}

// UpdatePair commits with a version check on the pair document and retries
// when another writer got there first.
func (s *Store) UpdatePair(ctx context.Context, a, b string, fn func(p *friend.Pair) error) (*friend.Pair, error) {
	id := pairID(a, b)
	coll := s.collection(collPairs)
	for i := 0; i < friend.MaxCommitAttempts; i++ {
		d, found, err := s.loadPairDoc(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("find pair: %w", err)
		}
		p := d.pair(a, b)
		if err := fn(p); err != nil {
			return nil, err
		}
		edges := make([]friend.Relation, 0, 2)
		for _, e := range p.Edges() {
			edges = append(edges, *e)
		}

		switch {
		case !found && len(edges) == 0:
			return p, nil
		case !found:
			_, err := coll.InsertOne(ctx, pairDoc{ID: id, Edges: edges, Version: 1})
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("insert pair: %w", err)
			}
			return p, nil
		case len(edges) == 0:
			res, err := coll.DeleteOne(ctx, bson.M{"_id": id, "version": d.Version})
			if err != nil {
				return nil, fmt.Errorf("delete pair: %w", err)
			}
			if res.DeletedCount == 0 {
				continue
			}
			return p, nil
		default:
			res, err := coll.UpdateOne(ctx,
				bson.M{"_id": id, "version": d.Version},
				bson.M{"$set": bson.M{"edges": edges, "version": d.Version + 1}})
			if err != nil {
				return nil, fmt.Errorf("update pair: %w", err)
			}
			if res.MatchedCount == 0 {
				continue
			}
			return p, nil
		}
	}
	return nil, friend.ErrContention
}

func (s *Store) ListEdges(ctx context.Context, q friend.EdgeQuery) ([]*friend.Relation, error) {
	match := bson.M{}
	if q.User != "" {
		match["user"] = q.User
	}
	if q.Friend != "" {
		match["friend"] = q.Friend
	}
	if q.Status != "" {
		match["status"] = q.Status
	}
	if q.Contains != "" {
		match["friend"] = primitive.Regex{Pattern: regexp.QuoteMeta(q.Contains), Options: "i"}
	}
	if len(match) == 0 {
		return nil, fmt.Errorf("edge query needs a condition")
	}
	cur, err := s.collection(collPairs).Find(ctx, bson.M{"edges": bson.M{"$elemMatch": match}})
	if err != nil {
		return nil, fmt.Errorf("find pairs: %w", err)
	}
	defer cur.Close(ctx)
	out := []*friend.Relation{}
	for cur.Next(ctx) {
		var d pairDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		for i := range d.Edges {
			e := d.Edges[i]
			e.CreatedAt = e.CreatedAt.UTC()
			if friend.MatchesQuery(&e, q) {
				out = append(out, &e)
			}
		}
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	friend.SortNewest(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

var _ friend.Store = (*Store)(nil)
