package friend

import (
	"time"

	"github.com/park285/cheese-social/internal/relerr"
)

// Status of a directed edge.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusBlocked  Status = "blocked"
)

// Relation is the directed edge User -> Friend.
type Relation struct {
	User                string     `json:"user" bson:"user"`
	Friend              string     `json:"friend" bson:"friend"`
	Status              Status     `json:"status" bson:"status"`
	CreatedAt           time.Time  `json:"created_at" bson:"created_at"`
	AcceptedAt          *time.Time `json:"accepted_at,omitempty" bson:"accepted_at,omitempty"`
	BlockedAt           *time.Time `json:"blocked_at,omitempty" bson:"blocked_at,omitempty"`
	GamesPlayedTogether int        `json:"games_played_together" bson:"games_played_together"`
}

func (r *Relation) clone() *Relation {
	if r == nil {
		return nil
	}
	out := *r
	return &out
}

// Pair holds both directed edges between A and B. A nil edge is absent.
type Pair struct {
	A, B string
	AB   *Relation
	BA   *Relation
}

// Clone deep-copies the pair so callbacks may mutate it freely.
func (p *Pair) Clone() *Pair {
	if p == nil {
		return nil
	}
	return &Pair{A: p.A, B: p.B, AB: p.AB.clone(), BA: p.BA.clone()}
}

// Edges returns the present edges.
func (p *Pair) Edges() []*Relation {
	var out []*Relation
	if p.AB != nil {
		out = append(out, p.AB)
	}
	if p.BA != nil {
		out = append(out, p.BA)
	}
	return out
}

// State is the pair as seen from A.
type State string

const (
	StateNone            State = "none"
	StatePendingSent     State = "pending_sent"
	StatePendingReceived State = "pending_received"
	StateFriends         State = "friends"
	StateBlocked         State = "blocked"
	StateBlockedBy       State = "blocked_by"
	StateInconsistent    State = "inconsistent"
)

// State classifies the edge set from A's point of view.
func (p *Pair) State() State {
	ab, ba := p.AB, p.BA
	switch {
	case ab == nil && ba == nil:
		return StateNone
	case ab != nil && ba == nil && ab.Status == StatusPending:
		return StatePendingSent
	case ab == nil && ba != nil && ba.Status == StatusPending:
		return StatePendingReceived
	case ab != nil && ba != nil && ab.Status == StatusAccepted && ba.Status == StatusAccepted:
		return StateFriends
	case ab != nil && ba == nil && ab.Status == StatusBlocked:
		return StateBlocked
	case ab == nil && ba != nil && ba.Status == StatusBlocked:
		return StateBlockedBy
	default:
		return StateInconsistent
	}
}

// EdgeQuery selects edges by owner (User) or target (Friend).
type EdgeQuery struct {
	User     string
	Friend   string
	Status   Status
	Contains string
	Limit    int
}

// Errors
var (
	ErrInvalidUsername = relerr.New(relerr.KindInvalidInput, "common.invalid_username", "Invalid username format")
	ErrSelfRequest     = relerr.New(relerr.KindInvalidInput, "friend.self_request", "Cannot send friend request to yourself")
	ErrSelfBlock       = relerr.New(relerr.KindInvalidInput, "friend.self_block", "Cannot block yourself")
	ErrSelfTarget      = relerr.New(relerr.KindInvalidInput, "friend.self_target", "Cannot target yourself")
	ErrUserNotFound    = relerr.New(relerr.KindUserNotFound, "friend.user_not_found", "User not found")
	ErrFriendNotFound  = relerr.New(relerr.KindUserNotFound, "friend.friend_not_found", "Friend not found")
	ErrAlreadyExists   = relerr.New(relerr.KindAlreadyExists, "friend.already_exists", "Relationship already exists")
	ErrRequestNotFound = relerr.New(relerr.KindNotFound, "friend.request_not_found", "Friend request not found")
	ErrNotFriends      = relerr.New(relerr.KindNotFound, "friend.friendship_not_found", "Friendship not found")
	ErrBlockNotFound   = relerr.New(relerr.KindNotFound, "friend.block_not_found", "Block not found")
	ErrContention      = relerr.New(relerr.KindStoreFailure, "common.store_failure", "Internal error, please try again later")
)

func alreadyExists(s Status) error {
	return ErrAlreadyExists.With(map[string]string{"Status": string(s)}, "Relationship already exists with status: "+string(s))
}
