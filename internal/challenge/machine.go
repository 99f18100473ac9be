package challenge

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/cheese-social/internal/account"
	"github.com/park285/cheese-social/internal/obslog"
	"github.com/park285/cheese-social/internal/relerr"
	"go.uber.org/zap"
)

// Options tunes a Machine. Zero values fall back to the defaults.
type Options struct {
	TTL       time.Duration
	ListLimit int
	Now       func() time.Time
	NewID     func() string
}

// Machine executes challenge transitions. It holds no relationship state
// of its own; every check that matters is repeated atomically by the store.
type Machine struct {
	store Store
	users account.Oracle
	ttl   time.Duration
	limit int
	now   func() time.Time
	newID func() string
}

func NewMachine(store Store, users account.Oracle, opts Options) *Machine {
	m := &Machine{store: store, users: users, ttl: opts.TTL, limit: opts.ListLimit, now: opts.Now, newID: opts.NewID}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	if m.limit <= 0 {
		m.limit = DefaultListLimit
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	return m
}

// CreateRequest carries the caller's proposal. TimeControl may be empty.
type CreateRequest struct {
	Challenger  string
	Challenged  string
	TimeControl string
	Rated       bool
	Message     string
}

func (m *Machine) Create(ctx context.Context, req CreateRequest) (*Challenge, error) {
	if !account.ValidUsername(req.Challenger) || !account.ValidUsername(req.Challenged) {
		return nil, ErrInvalidUsername
	}
	if req.Challenger == req.Challenged {
		return nil, ErrSelfChallenge
	}
	tc, ok := ParseTimeControl(req.TimeControl)
	if !ok {
		return nil, ErrInvalidTimeControl
	}
	if found, err := m.users.Exists(ctx, req.Challenger); err != nil {
		return nil, relerr.Store(err)
	} else if !found {
		return nil, ErrChallengerNotFound
	}
	if found, err := m.users.Exists(ctx, req.Challenged); err != nil {
		return nil, relerr.Store(err)
	} else if !found {
		return nil, ErrChallengedNotFound
	}

	now := m.now().UTC()
	c := &Challenge{
		ID:          m.newID(),
		Challenger:  req.Challenger,
		Challenged:  req.Challenged,
		TimeControl: tc,
		Rated:       req.Rated,
		Message:     truncateRunes(strings.TrimSpace(req.Message), MaxMessageLen),
		Status:      StatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.ttl),
	}
	if err := m.store.Insert(ctx, c); err != nil {
		return nil, relerr.Store(err)
	}
	obslog.L().Info("challenge_create",
		zap.String("challenge_id", c.ID),
		zap.String("challenger", c.Challenger),
		zap.String("challenged", c.Challenged),
		zap.String("time_control", string(c.TimeControl)),
		zap.Bool("rated", c.Rated),
	)
	return c, nil
}

// Cancel withdraws a pending challenge; only the challenger may do so.
func (m *Machine) Cancel(ctx context.Context, actor, id string) (*Challenge, error) {
	c, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusPending {
		return nil, ErrCancelNotPending
	}
	if actor != c.Challenger {
		return nil, ErrNotChallenger
	}
	return m.transition(ctx, c, StatusCancelled, ErrCancelNotPending)
}

// Accept moves a pending challenge to accepted. A challenge past its
// deadline is relabelled expired instead and ErrExpired is returned.
func (m *Machine) Accept(ctx context.Context, actor, id string) (*Challenge, error) {
	return m.respond(ctx, actor, id, StatusAccepted, ErrNotChallengedAcc)
}

// Decline shares the guards of Accept.
func (m *Machine) Decline(ctx context.Context, actor, id string) (*Challenge, error) {
	return m.respond(ctx, actor, id, StatusDeclined, ErrNotChallengedDec)
}

func (m *Machine) respond(ctx context.Context, actor, id string, to Status, forbidden error) (*Challenge, error) {
	c, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusPending {
		return nil, ErrNotPending
	}
	if actor != c.Challenged {
		return nil, forbidden
	}
	if c.ExpiredAt(m.now()) {
		if _, err := m.transition(ctx, c, StatusExpired, ErrNotPending); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}
	return m.transition(ctx, c, to, ErrNotPending)
}

// transition performs the CAS pending -> to. A lost race surfaces as lost.
func (m *Machine) transition(ctx context.Context, c *Challenge, to Status, lost error) (*Challenge, error) {
	at := m.now().UTC()
	ok, err := m.store.UpdateStatus(ctx, Transition{ID: c.ID, From: StatusPending, To: to, RespondedAt: at})
	if err != nil {
		return nil, relerr.Store(err)
	}
	if !ok {
		obslog.L().Info("challenge_transition_lost", zap.String("challenge_id", c.ID), zap.String("to", string(to)))
		return nil, lost
	}
	out := *c
	out.Status = to
	out.RespondedAt = &at
	obslog.L().Info("challenge_"+string(to),
		zap.String("challenge_id", c.ID),
		zap.String("challenger", c.Challenger),
		zap.String("challenged", c.Challenged),
	)
	return &out, nil
}

func (m *Machine) load(ctx context.Context, id string) (*Challenge, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrMissingID
	}
	c, err := m.store.FindByID(ctx, id)
	if err != nil {
		return nil, relerr.Store(err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// Get returns a challenge to one of its two parties.
func (m *Machine) Get(ctx context.Context, actor, id string) (*Challenge, error) {
	c, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Involves(actor) {
		return nil, ErrNotParticipant
	}
	return c, nil
}

// List returns the user's challenges newest first. Unknown filters act as
// FilterAll. A malformed username owns nothing, so it gets an empty list;
// only a store failure is an error.
func (m *Machine) List(ctx context.Context, username string, filter Filter) ([]*Challenge, error) {
	if !account.ValidUsername(username) {
		return []*Challenge{}, nil
	}
	switch filter {
	case FilterAll, FilterSent, FilterReceived, FilterPending:
	default:
		filter = FilterAll
	}
	list, err := m.store.List(ctx, username, filter, m.limit)
	if err != nil {
		return nil, relerr.Store(err)
	}
	return list, nil
}

// ExpireDue relabels every overdue pending challenge as expired and
// returns how many it moved. Challenges claimed concurrently are skipped.
func (m *Machine) ExpireDue(ctx context.Context) (int, error) {
	now := m.now()
	due, err := m.store.ListDue(ctx, now)
	if err != nil {
		return 0, relerr.Store(err)
	}
	n := 0
	for _, c := range due {
		if !c.ExpiredAt(now) {
			continue
		}
		ok, err := m.store.UpdateStatus(ctx, Transition{ID: c.ID, From: StatusPending, To: StatusExpired, RespondedAt: now.UTC()})
		if err != nil {
			return n, relerr.Store(err)
		}
		if ok {
			n++
		}
	}
	if n > 0 {
		obslog.L().Info("challenge_expire_due", zap.Int("expired", n), zap.Int("candidates", len(due)))
	}
	return n, nil
}

// LinkGame records the game created for an accepted challenge.
func (m *Machine) LinkGame(ctx context.Context, id, gameID string) (*Challenge, error) {
	if strings.TrimSpace(gameID) == "" {
		return nil, ErrMissingID
	}
	c, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusAccepted || c.GameID != "" {
		return nil, ErrNotAccepted
	}
	ok, err := m.store.SetGameID(ctx, c.ID, gameID)
	if err != nil {
		return nil, relerr.Store(err)
	}
	if !ok {
		return nil, ErrNotAccepted
	}
	c.GameID = gameID
	obslog.L().Info("challenge_link_game", zap.String("challenge_id", c.ID), zap.String("game_id", gameID))
	return c, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
