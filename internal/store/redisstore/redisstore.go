// Package redisstore persists challenges, friend edges and accounts in Redis.
// Every conditional write runs inside WATCH/MULTI.
package redisstore

import (
    "context"
    "fmt"
    "net/url"
    "strconv"
    "strings"

    "github.com/redis/go-redis/v9"
)

// maxTxAttempts bounds optimistic retries of a single write.
const maxTxAttempts = 8

type Store struct{ rdb *redis.Client }

func New(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

// Open dials REDIS_URL and pings the server.
func Open(ctx context.Context, redisURL string) (*Store, error) {
    if strings.TrimSpace(redisURL) == "" {
        return nil, fmt.Errorf("REDIS_URL required for redis store")
    }
    opts, err := ParseURL(redisURL)
    if err != nil { return nil, err }
    rdb := redis.NewClient(opts)
    if err := rdb.Ping(ctx).Err(); err != nil {
        _ = rdb.Close()
        return nil, fmt.Errorf("redis ping: %w", err)
    }
    return New(rdb), nil
}

func (s *Store) Close() error {
    if s == nil || s.rdb == nil { return nil }
    return s.rdb.Close()
}

// ParseURL accepts redis:// and rediss:// URLs with an optional /db path.
func ParseURL(raw string) (*redis.Options, error) {
    u, err := url.Parse(strings.TrimSpace(raw))
    if err != nil { return nil, err }
    if u.Scheme != "redis" && u.Scheme != "rediss" { return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme) }
    db := 0
    if p := strings.TrimPrefix(u.Path, "/"); p != "" {
        n, err := strconv.Atoi(p)
        if err != nil { return nil, fmt.Errorf("invalid redis db %q", p) }
        db = n
    }
    pass, _ := u.User.Password()
    opts := &redis.Options{Addr: u.Host, Password: pass, DB: db}
    if u.User != nil {
        opts.Username = u.User.Username()
    }
    return opts, nil
}

func keyUsers() string { return "users" }

// AddUsers registers accounts for the identity oracle.
func (s *Store) AddUsers(ctx context.Context, names ...string) error {
    if len(names) == 0 { return nil }
    members := make([]any, 0, len(names))
    for _, n := range names { members = append(members, n) }
    return s.rdb.SAdd(ctx, keyUsers(), members...).Err()
}

func (s *Store) Exists(ctx context.Context, username string) (bool, error) {
    ok, err := s.rdb.SIsMember(ctx, keyUsers(), username).Result()
    if err != nil { return false, fmt.Errorf("redis users: %w", err) }
    return ok, nil
}
