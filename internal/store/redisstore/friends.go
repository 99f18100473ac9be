package redisstore

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"

    "github.com/park285/cheese-social/internal/friend"
    "github.com/redis/go-redis/v9"
)

func keyEdge(user, other string) string { return "fr:edge:" + user + ":" + other }
func keyOut(user string) string         { return "fr:index:out:" + user }
func keyIn(user string) string          { return "fr:index:in:" + user }

type getter interface {
    Get(ctx context.Context, key string) *redis.StringCmd
}

func loadEdge(ctx context.Context, g getter, user, other string) (*friend.Relation, error) {
    raw, err := g.Get(ctx, keyEdge(user, other)).Bytes()
    if err == redis.Nil { return nil, nil }
    if err != nil { return nil, err }
    var r friend.Relation
    if err := json.Unmarshal(raw, &r); err != nil { return nil, err }
    return &r, nil
}

func loadPair(ctx context.Context, g getter, a, b string) (*friend.Pair, error) {
    ab, err := loadEdge(ctx, g, a, b)
    if err != nil { return nil, err }
    ba, err := loadEdge(ctx, g, b, a)
    if err != nil { return nil, err }
    return &friend.Pair{A: a, B: b, AB: ab, BA: ba}, nil
}

func (s *Store) LoadPair(ctx context.Context, a, b string) (*friend.Pair, error) {
    p, err := loadPair(ctx, s.rdb, a, b)
    if err != nil { return nil, fmt.Errorf("redis load pair: %w", err) }
    return p, nil
}

// UpdatePair watches both edge keys, so two writers on the same pair
// serialise while unrelated pairs never touch the same keys.
func (s *Store) UpdatePair(ctx context.Context, a, b string, fn func(p *friend.Pair) error) (*friend.Pair, error) {
    kab, kba := keyEdge(a, b), keyEdge(b, a)
    for i := 0; i < friend.MaxCommitAttempts; i++ {
        var committed *friend.Pair
        err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
            p, err := loadPair(ctx, tx, a, b)
            if err != nil { return err }
            if err := fn(p); err != nil { return err }
            pipe := tx.TxPipeline()
            if err := stageEdge(ctx, pipe, a, b, p.AB); err != nil { return err }
            if err := stageEdge(ctx, pipe, b, a, p.BA); err != nil { return err }
            if _, err := pipe.Exec(ctx); err != nil { return err }
            committed = p
            return nil
        }, kab, kba)
        if errors.Is(err, redis.TxFailedErr) { continue }
        if err != nil { return nil, err }
        return committed, nil
    }
    return nil, friend.ErrContention
}

func stageEdge(ctx context.Context, pipe redis.Pipeliner, user, other string, r *friend.Relation) error {
    key := keyEdge(user, other)
    if r == nil {
        pipe.Del(ctx, key)
        pipe.SRem(ctx, keyOut(user), other)
        pipe.SRem(ctx, keyIn(other), user)
        return nil
    }
    raw, err := json.Marshal(r)
    if err != nil { return err }
    pipe.Set(ctx, key, raw, 0)
    pipe.SAdd(ctx, keyOut(user), other)
    pipe.SAdd(ctx, keyIn(other), user)
    return nil
}

func (s *Store) ListEdges(ctx context.Context, q friend.EdgeQuery) ([]*friend.Relation, error) {
    var keys []string
    switch {
    case q.User != "":
        others, err := s.rdb.SMembers(ctx, keyOut(q.User)).Result()
        if err != nil { return nil, err }
        for _, o := range others { keys = append(keys, keyEdge(q.User, o)) }
    case q.Friend != "":
        owners, err := s.rdb.SMembers(ctx, keyIn(q.Friend)).Result()
        if err != nil { return nil, err }
        for _, o := range owners { keys = append(keys, keyEdge(o, q.Friend)) }
    default:
        return nil, fmt.Errorf("edge query needs user or friend")
    }
    out := []*friend.Relation{}
    if len(keys) == 0 { return out, nil }
    vals, err := s.rdb.MGet(ctx, keys...).Result()
    if err != nil { return nil, err }
    for _, v := range vals {
        str, ok := v.(string)
        if !ok { continue }
        var r friend.Relation
        if err := json.Unmarshal([]byte(str), &r); err != nil { return nil, err }
        if friend.MatchesQuery(&r, q) { out = append(out, &r) }
    }
    friend.SortNewest(out)
    if q.Limit > 0 && len(out) > q.Limit { out = out[:q.Limit] }
    return out, nil
}

var _ friend.Store = (*Store)(nil)
