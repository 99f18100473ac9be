package challenge

import (
	"strings"
	"time"

	"github.com/park285/cheese-social/internal/relerr"
)

// Status represents the lifecycle of a challenge.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusDeclined  Status = "declined"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool { return s != StatusPending }

// TimeControl is the clock setting proposed for the match.
type TimeControl string

const (
	TimeBullet    TimeControl = "bullet"
	TimeBlitz     TimeControl = "blitz"
	TimeClassical TimeControl = "classical"
)

// ParseTimeControl normalises s; empty input means blitz.
func ParseTimeControl(s string) (TimeControl, bool) {
	switch TimeControl(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return TimeBlitz, true
	case TimeBullet:
		return TimeBullet, true
	case TimeBlitz:
		return TimeBlitz, true
	case TimeClassical:
		return TimeClassical, true
	default:
		return "", false
	}
}

// Filter selects which challenges List returns.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterSent     Filter = "sent"
	FilterReceived Filter = "received"
	FilterPending  Filter = "pending"
)

// ParseFilter falls back to FilterAll for unknown values.
func ParseFilter(s string) Filter {
	switch Filter(strings.ToLower(strings.TrimSpace(s))) {
	case FilterSent:
		return FilterSent
	case FilterReceived:
		return FilterReceived
	case FilterPending:
		return FilterPending
	default:
		return FilterAll
	}
}

const (
	// DefaultTTL is how long a challenge stays acceptable.
	DefaultTTL = time.Hour
	// DefaultListLimit caps List results.
	DefaultListLimit = 50
	// MaxMessageLen is the maximum message length in characters.
	MaxMessageLen = 200
)

// Challenge is the persisted proposal from Challenger to Challenged.
type Challenge struct {
	ID          string      `json:"id" bson:"_id"`
	Challenger  string      `json:"challenger_username" bson:"challenger_username"`
	Challenged  string      `json:"challenged_username" bson:"challenged_username"`
	TimeControl TimeControl `json:"time_control" bson:"time_control"`
	Rated       bool        `json:"rated" bson:"rated"`
	Message     string      `json:"message" bson:"message"`
	Status      Status      `json:"status" bson:"status"`
	CreatedAt   time.Time   `json:"created_at" bson:"created_at"`
	ExpiresAt   time.Time   `json:"expires_at" bson:"expires_at"`
	RespondedAt *time.Time  `json:"responded_at,omitempty" bson:"responded_at,omitempty"`
	GameID      string      `json:"game_id,omitempty" bson:"game_id,omitempty"`
}

// ExpiredAt is the single expiry predicate shared by access-time checks and
// the sweep: a challenge is expired strictly after ExpiresAt.
func (c *Challenge) ExpiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Involves reports whether username is one of the two parties.
func (c *Challenge) Involves(username string) bool {
	return c.Challenger == username || c.Challenged == username
}

// Transition is a compare-and-swap on a challenge's status.
type Transition struct {
	ID          string
	From        Status
	To          Status
	RespondedAt time.Time
}

// Errors
var (
	ErrInvalidUsername    = relerr.New(relerr.KindInvalidInput, "common.invalid_username", "Invalid username format")
	ErrSelfChallenge      = relerr.New(relerr.KindInvalidInput, "challenge.self", "Cannot challenge yourself")
	ErrInvalidTimeControl = relerr.New(relerr.KindInvalidInput, "challenge.invalid_time_control", "Invalid time_control. Must be: bullet, blitz, or classical")
	ErrMissingID          = relerr.New(relerr.KindInvalidInput, "challenge.missing_id", "Challenge id is required")
	ErrChallengerNotFound = relerr.New(relerr.KindUserNotFound, "challenge.challenger_not_found", "Challenger not found")
	ErrChallengedNotFound = relerr.New(relerr.KindUserNotFound, "challenge.challenged_not_found", "Challenged user not found")
	ErrDuplicatePending   = relerr.New(relerr.KindDuplicatePending, "challenge.duplicate_pending", "You already have a pending challenge to this user")
	ErrNotFound           = relerr.New(relerr.KindNotFound, "challenge.not_found", "Challenge not found or expired")
	ErrNotChallenger      = relerr.New(relerr.KindForbidden, "challenge.only_challenger_cancel", "Only the challenger can cancel the challenge")
	ErrNotChallengedAcc   = relerr.New(relerr.KindForbidden, "challenge.only_challenged_accept", "Only the challenged player can accept")
	ErrNotChallengedDec   = relerr.New(relerr.KindForbidden, "challenge.only_challenged_decline", "Only the challenged player can decline")
	ErrNotParticipant     = relerr.New(relerr.KindForbidden, "challenge.not_participant", "You are not part of this challenge")
	ErrCancelNotPending   = relerr.New(relerr.KindInvalidState, "challenge.cancel_not_pending", "Can only cancel pending challenges")
	ErrNotPending         = relerr.New(relerr.KindInvalidState, "challenge.not_pending", "Challenge is no longer pending")
	ErrNotAccepted        = relerr.New(relerr.KindInvalidState, "challenge.not_accepted", "Challenge has not been accepted or already has a game")
	ErrExpired            = relerr.New(relerr.KindExpired, "challenge.expired", "Challenge has expired")
)
