package relationdto

import "time"

// Challenge is the public view of a challenge.
type Challenge struct {
	ID          string     `json:"id"`
	Challenger  string     `json:"challenger_username"`
	Challenged  string     `json:"challenged_username"`
	TimeControl string     `json:"time_control"`
	Rated       bool       `json:"rated"`
	Message     string     `json:"message"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	GameID      string     `json:"game_id,omitempty"`
}

// CreateChallengeRequest carries a new proposal. A nil Rated means rated,
// an empty TimeControl means blitz.
type CreateChallengeRequest struct {
	Challenger  string `json:"challenger_username"`
	Challenged  string `json:"challenged_username"`
	TimeControl string `json:"time_control,omitempty"`
	Rated       *bool  `json:"rated,omitempty"`
	Message     string `json:"message,omitempty"`
}

type ChallengeResult struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	Code      string     `json:"code,omitempty"`
	Challenge *Challenge `json:"challenge,omitempty"`
}

type ChallengeListResult struct {
	Success    bool         `json:"success"`
	Message    string       `json:"message"`
	Code       string       `json:"code,omitempty"`
	Challenges []*Challenge `json:"challenges"`
}
