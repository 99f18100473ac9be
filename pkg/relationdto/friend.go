package relationdto

import "time"

// Relation is the public view of a directed friend edge.
type Relation struct {
	User                string     `json:"user_name"`
	Friend              string     `json:"friend_name"`
	Status              string     `json:"status"`
	CreatedAt           time.Time  `json:"created_at"`
	AcceptedAt          *time.Time `json:"accepted_at,omitempty"`
	BlockedAt           *time.Time `json:"blocked_at,omitempty"`
	GamesPlayedTogether int        `json:"games_played_together"`
}

type FriendResult struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	Code     string    `json:"code,omitempty"`
	Relation *Relation `json:"relation,omitempty"`
}

type FriendListResult struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Code      string      `json:"code,omitempty"`
	Relations []*Relation `json:"relations"`
}

// RelationshipResult reports the pair state between two users.
type RelationshipResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	State   string `json:"state,omitempty"`
}
