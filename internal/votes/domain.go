package votes

import (
	"time"

	"github.com/jokesdb/jokes-api/internal/authz"
)

// Vote is one actor's rating of one joke.
type Vote struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	JokeID    int64     `json:"joke_id"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Target projects the vote for authorization. The voter owns the vote.
func (v Vote) Target() authz.Target {
	return authz.Target{Resource: authz.ResourceVote, ID: v.ID, OwnerID: v.UserID}
}

// CastInput carries a rating. Only +1 and -1 are accepted.
type CastInput struct {
	Rating int `json:"rating" validate:"required,oneof=1 -1"`
}

// Filter narrows a vote listing.
type Filter struct {
	UserID int64
	JokeID int64
}

// Cleared reports the outcome of a bulk clear.
type Cleared struct {
	Count int `json:"cleared_count"`
}
