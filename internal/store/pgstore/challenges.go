package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/park285/cheese-social/internal/challenge"
)

const challengeColumns = `id, challenger_username, challenged_username, time_control, rated, message,
	status, created_at, expires_at, responded_at, game_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChallenge(row rowScanner) (*challenge.Challenge, error) {
	var (
		c         challenge.Challenge
		tc, st    string
		responded sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.Challenger, &c.Challenged, &tc, &c.Rated, &c.Message,
		&st, &c.CreatedAt, &c.ExpiresAt, &responded, &c.GameID); err != nil {
		return nil, err
	}
	c.TimeControl = challenge.TimeControl(tc)
	c.Status = challenge.Status(st)
	c.CreatedAt = c.CreatedAt.UTC()
	c.ExpiresAt = c.ExpiresAt.UTC()
	c.RespondedAt = timePtr(responded)
	return &c, nil
}

func (s *Store) Insert(ctx context.Context, c *challenge.Challenge) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO challenges (`+challengeColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		c.ID, c.Challenger, c.Challenged, string(c.TimeControl), c.Rated, c.Message,
		string(c.Status), c.CreatedAt, c.ExpiresAt, nullTime(c.RespondedAt), c.GameID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return challenge.ErrDuplicatePending
		}
		return fmt.Errorf("insert challenge: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*challenge.Challenge, error) {
	c, err := scanChallenge(s.db.QueryRowContext(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select challenge: %w", err)
	}
	return c, nil
}

func (s *Store) UpdateStatus(ctx context.Context, t challenge.Transition) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE challenges SET status = $3, responded_at = $4 WHERE id = $1 AND status = $2`,
		t.ID, string(t.From), string(t.To), t.RespondedAt)
	if err != nil {
		return false, fmt.Errorf("update challenge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) List(ctx context.Context, username string, filter challenge.Filter, limit int) ([]*challenge.Challenge, error) {
	where := `(challenger_username = $1 OR challenged_username = $1)`
	switch filter {
	case challenge.FilterSent:
		where = `challenger_username = $1`
	case challenge.FilterReceived:
		where = `challenged_username = $1`
	case challenge.FilterPending:
		where += ` AND status = 'pending'`
	}
	if limit <= 0 {
		limit = challenge.DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE `+where+`
		ORDER BY created_at DESC, id DESC LIMIT $2`, username, limit)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	return collectChallenges(rows)
}

func (s *Store) ListDue(ctx context.Context, now time.Time) ([]*challenge.Challenge, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+challengeColumns+` FROM challenges
		WHERE status = 'pending' AND expires_at < $1 ORDER BY expires_at`, now)
	if err != nil {
		return nil, fmt.Errorf("list due challenges: %w", err)
	}
	return collectChallenges(rows)
}

func (s *Store) SetGameID(ctx context.Context, id, gameID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE challenges SET game_id = $2 WHERE id = $1 AND status = 'accepted' AND game_id = ''`, id, gameID)
	if err != nil {
		return false, fmt.Errorf("link game: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func collectChallenges(rows *sql.Rows) ([]*challenge.Challenge, error) {
	defer rows.Close()
	out := []*challenge.Challenge{}
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

var _ challenge.Store = (*Store)(nil)
