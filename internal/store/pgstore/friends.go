package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/park285/cheese-social/internal/friend"
)

const edgeColumns = `user_username, friend_username, status, created_at, accepted_at, blocked_at, games_played_together`

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanEdge(row rowScanner) (*friend.Relation, error) {
	var (
		r                 friend.Relation
		st                string
		accepted, blocked sql.NullTime
	)
	if err := row.Scan(&r.User, &r.Friend, &st, &r.CreatedAt, &accepted, &blocked, &r.GamesPlayedTogether); err != nil {
		return nil, err
	}
	r.Status = friend.Status(st)
	r.CreatedAt = r.CreatedAt.UTC()
	r.AcceptedAt = timePtr(accepted)
	r.BlockedAt = timePtr(blocked)
	return &r, nil
}

func loadEdge(ctx context.Context, q querier, user, other string, forUpdate bool) (*friend.Relation, error) {
	query := `SELECT ` + edgeColumns + ` FROM friend_relations WHERE user_username = $1 AND friend_username = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	r, err := scanEdge(q.QueryRowContext(ctx, query, user, other))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (s *Store) LoadPair(ctx context.Context, a, b string) (*friend.Pair, error) {
	ab, err := loadEdge(ctx, s.db, a, b, false)
	if err != nil {
		return nil, fmt.Errorf("select edge: %w", err)
	}
	ba, err := loadEdge(ctx, s.db, b, a, false)
	if err != nil {
		return nil, fmt.Errorf("select edge: %w", err)
	}
	return &friend.Pair{A: a, B: b, AB: ab, BA: ba}, nil
}

func pairLockKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// UpdatePair takes a per-pair advisory lock for the transaction, so the
// read and the write of fn's result cannot interleave with another writer.
func (s *Store) UpdatePair(ctx context.Context, a, b string, fn func(p *friend.Pair) error) (*friend.Pair, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, pairLockKey(a, b)); err != nil {
		return nil, fmt.Errorf("pair lock: %w", err)
	}
	ab, err := loadEdge(ctx, tx, a, b, true)
	if err != nil {
		return nil, fmt.Errorf("select edge: %w", err)
	}
	ba, err := loadEdge(ctx, tx, b, a, true)
	if err != nil {
		return nil, fmt.Errorf("select edge: %w", err)
	}
	p := &friend.Pair{A: a, B: b, AB: ab, BA: ba}
	if err := fn(p); err != nil {
		return nil, err
	}
	if err := writeEdge(ctx, tx, a, b, p.AB); err != nil {
		return nil, err
	}
	if err := writeEdge(ctx, tx, b, a, p.BA); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit pair: %w", err)
	}
	return p, nil
}

func writeEdge(ctx context.Context, tx *sql.Tx, user, other string, r *friend.Relation) error {
	if r == nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM friend_relations WHERE user_username = $1 AND friend_username = $2`, user, other); err != nil {
			return fmt.Errorf("delete edge: %w", err)
		}
		return nil
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO friend_relations (`+edgeColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (user_username, friend_username) DO UPDATE SET
			status=EXCLUDED.status,
			created_at=EXCLUDED.created_at,
			accepted_at=EXCLUDED.accepted_at,
			blocked_at=EXCLUDED.blocked_at,
			games_played_together=EXCLUDED.games_played_together`,
		user, other, string(r.Status), r.CreatedAt, nullTime(r.AcceptedAt), nullTime(r.BlockedAt), r.GamesPlayedTogether)
	if err != nil {
		return fmt.Errorf("upsert edge: %w", err)
	}
	return nil
}

func (s *Store) ListEdges(ctx context.Context, q friend.EdgeQuery) ([]*friend.Relation, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if q.User != "" {
		add("user_username = $%d", q.User)
	}
	if q.Friend != "" {
		add("friend_username = $%d", q.Friend)
	}
	if q.Status != "" {
		add("status = $%d", string(q.Status))
	}
	if q.Contains != "" {
		add("strpos(lower(friend_username), lower($%d)) > 0", q.Contains)
	}
	if len(conds) == 0 {
		return nil, fmt.Errorf("edge query needs a condition")
	}
	query := `SELECT ` + edgeColumns + ` FROM friend_relations WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY created_at DESC, friend_username ASC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	defer rows.Close()
	out := []*friend.Relation{}
	for rows.Next() {
		r, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var _ friend.Store = (*Store)(nil)
