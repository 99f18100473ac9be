package redisstore

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "sort"
    "strconv"
    "time"

    "github.com/park285/cheese-social/internal/challenge"
    "github.com/redis/go-redis/v9"
)

func keyChallenge(id string) string            { return "chal:" + id }
func keyPendingGuard(from, to string) string   { return "chal:pending:" + from + ":" + to }
func keySent(user string) string               { return "chal:index:sent:" + user }
func keyReceived(user string) string           { return "chal:index:recv:" + user }
func keyUserPending(user string) string        { return "chal:index:pending:" + user }
func keyDue() string                           { return "chal:due" }

func score(t time.Time) float64 { return float64(t.UnixMilli()) }

func (s *Store) Insert(ctx context.Context, c *challenge.Challenge) error {
    raw, err := json.Marshal(c)
    if err != nil { return err }
    guard := keyPendingGuard(c.Challenger, c.Challenged)
    created := redis.Z{Score: score(c.CreatedAt), Member: c.ID}
    for i := 0; i < maxTxAttempts; i++ {
        err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
            n, err := tx.Exists(ctx, guard).Result()
            if err != nil { return err }
            if n > 0 { return challenge.ErrDuplicatePending }
            pipe := tx.TxPipeline()
            pipe.Set(ctx, guard, c.ID, 0)
            pipe.Set(ctx, keyChallenge(c.ID), raw, 0)
            pipe.ZAdd(ctx, keySent(c.Challenger), created)
            pipe.ZAdd(ctx, keyReceived(c.Challenged), created)
            pipe.ZAdd(ctx, keyUserPending(c.Challenger), created)
            pipe.ZAdd(ctx, keyUserPending(c.Challenged), created)
            pipe.ZAdd(ctx, keyDue(), redis.Z{Score: score(c.ExpiresAt), Member: c.ID})
            _, err = pipe.Exec(ctx)
            return err
        }, guard)
        if errors.Is(err, redis.TxFailedErr) { continue }
        if err != nil && !errors.Is(err, challenge.ErrDuplicatePending) {
            return fmt.Errorf("redis insert challenge: %w", err)
        }
        return err
    }
    return fmt.Errorf("redis insert challenge: %w", redis.TxFailedErr)
}

func (s *Store) FindByID(ctx context.Context, id string) (*challenge.Challenge, error) {
    raw, err := s.rdb.Get(ctx, keyChallenge(id)).Bytes()
    if err == redis.Nil { return nil, nil }
    if err != nil { return nil, err }
    var c challenge.Challenge
    if err := json.Unmarshal(raw, &c); err != nil { return nil, err }
    return &c, nil
}

// UpdateStatus re-reads the record under WATCH and writes only if the
// status still equals t.From.
func (s *Store) UpdateStatus(ctx context.Context, t challenge.Transition) (bool, error) {
    key := keyChallenge(t.ID)
    for i := 0; i < maxTxAttempts; i++ {
        matched := false
        err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
            raw, err := tx.Get(ctx, key).Bytes()
            if err == redis.Nil { return nil }
            if err != nil { return err }
            var cur challenge.Challenge
            if err := json.Unmarshal(raw, &cur); err != nil { return err }
            if cur.Status != t.From { return nil }
            at := t.RespondedAt
            cur.Status = t.To
            cur.RespondedAt = &at
            next, err := json.Marshal(&cur)
            if err != nil { return err }
            pipe := tx.TxPipeline()
            pipe.Set(ctx, key, next, 0)
            if t.From == challenge.StatusPending {
                pipe.Del(ctx, keyPendingGuard(cur.Challenger, cur.Challenged))
                pipe.ZRem(ctx, keyDue(), cur.ID)
                pipe.ZRem(ctx, keyUserPending(cur.Challenger), cur.ID)
                pipe.ZRem(ctx, keyUserPending(cur.Challenged), cur.ID)
            }
            if _, err := pipe.Exec(ctx); err != nil { return err }
            matched = true
            return nil
        }, key)
        if errors.Is(err, redis.TxFailedErr) { continue }
        if err != nil { return false, fmt.Errorf("redis update challenge: %w", err) }
        return matched, nil
    }
    return false, fmt.Errorf("redis update challenge: %w", redis.TxFailedErr)
}

func (s *Store) List(ctx context.Context, username string, filter challenge.Filter, limit int) ([]*challenge.Challenge, error) {
    stop := int64(-1)
    if limit > 0 { stop = int64(limit) - 1 }
    var indexes []string
    switch filter {
    case challenge.FilterSent:
        indexes = []string{keySent(username)}
    case challenge.FilterReceived:
        indexes = []string{keyReceived(username)}
    case challenge.FilterPending:
        indexes = []string{keyUserPending(username)}
    default:
        indexes = []string{keySent(username), keyReceived(username)}
    }
    seen := map[string]struct{}{}
    var ids []string
    for _, idx := range indexes {
        got, err := s.rdb.ZRevRange(ctx, idx, 0, stop).Result()
        if err != nil { return nil, err }
        for _, id := range got {
            if _, dup := seen[id]; dup { continue }
            seen[id] = struct{}{}
            ids = append(ids, id)
        }
    }
    out, err := s.loadMany(ctx, ids)
    if err != nil { return nil, err }
    if filter == challenge.FilterPending {
        kept := out[:0]
        for _, c := range out {
            if c.Status == challenge.StatusPending { kept = append(kept, c) }
        }
        out = kept
    }
    sort.Slice(out, func(i, j int) bool {
        if !out[i].CreatedAt.Equal(out[j].CreatedAt) { return out[i].CreatedAt.After(out[j].CreatedAt) }
        return out[i].ID > out[j].ID
    })
    if limit > 0 && len(out) > limit { out = out[:limit] }
    return out, nil
}

func (s *Store) ListDue(ctx context.Context, now time.Time) ([]*challenge.Challenge, error) {
    ids, err := s.rdb.ZRangeByScore(ctx, keyDue(), &redis.ZRangeBy{
        Min: "-inf",
        Max: "(" + strconv.FormatInt(now.UnixMilli(), 10),
    }).Result()
    if err != nil { return nil, err }
    list, err := s.loadMany(ctx, ids)
    if err != nil { return nil, err }
    var out []*challenge.Challenge
    for _, c := range list {
        if c.Status == challenge.StatusPending && c.ExpiresAt.Before(now) { out = append(out, c) }
    }
    return out, nil
}

func (s *Store) SetGameID(ctx context.Context, id, gameID string) (bool, error) {
    key := keyChallenge(id)
    for i := 0; i < maxTxAttempts; i++ {
        matched := false
        err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
            raw, err := tx.Get(ctx, key).Bytes()
            if err == redis.Nil { return nil }
            if err != nil { return err }
            var cur challenge.Challenge
            if err := json.Unmarshal(raw, &cur); err != nil { return err }
            if cur.Status != challenge.StatusAccepted || cur.GameID != "" { return nil }
            cur.GameID = gameID
            next, err := json.Marshal(&cur)
            if err != nil { return err }
            pipe := tx.TxPipeline()
            pipe.Set(ctx, key, next, 0)
            if _, err := pipe.Exec(ctx); err != nil { return err }
            matched = true
            return nil
        }, key)
        if errors.Is(err, redis.TxFailedErr) { continue }
        if err != nil { return false, fmt.Errorf("redis link game: %w", err) }
        return matched, nil
    }
    return false, fmt.Errorf("redis link game: %w", redis.TxFailedErr)
}

func (s *Store) loadMany(ctx context.Context, ids []string) ([]*challenge.Challenge, error) {
    if len(ids) == 0 { return []*challenge.Challenge{}, nil }
    keys := make([]string, len(ids))
    for i, id := range ids { keys[i] = keyChallenge(id) }
    vals, err := s.rdb.MGet(ctx, keys...).Result()
    if err != nil { return nil, err }
    out := make([]*challenge.Challenge, 0, len(vals))
    for _, v := range vals {
        str, ok := v.(string)
        if !ok { continue }
        var c challenge.Challenge
        if err := json.Unmarshal([]byte(str), &c); err != nil { return nil, err }
        out = append(out, &c)
    }
    return out, nil
}

var _ challenge.Store = (*Store)(nil)
