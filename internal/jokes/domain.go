package jokes

import (
	"time"

	"github.com/jokesdb/jokes-api/internal/authz"
)

// CategoryRef is a category associated with a joke.
type CategoryRef struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// VoteSummary aggregates the ratings of a joke.
type VoteSummary struct {
	Up    int `json:"up"`
	Down  int `json:"down"`
	Score int `json:"score"`
}

// Joke is owned content.
type Joke struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Content     string        `json:"content"`
	Reference   *string       `json:"reference"`
	PublishedAt *time.Time    `json:"published_at"`
	UserID      int64         `json:"user_id"`
	Categories  []CategoryRef `json:"categories"`
	Votes       VoteSummary   `json:"votes"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	DeletedAt   *time.Time    `json:"deleted_at,omitempty"`
}

// Trashed reports whether the joke is soft-deleted.
func (j Joke) Trashed() bool {
	return j.DeletedAt != nil
}

// LiveCategories counts associated categories that are not soft-deleted.
func (j Joke) LiveCategories() int {
	n := 0
	for _, c := range j.Categories {
		if c.DeletedAt == nil {
			n++
		}
	}
	return n
}

// Target projects the joke for authorization.
func (j Joke) Target() authz.Target {
	return authz.Target{
		Resource:       authz.ResourceJoke,
		ID:             j.ID,
		OwnerID:        j.UserID,
		Trashed:        j.Trashed(),
		LiveCategories: j.LiveCategories(),
	}
}

// withoutTrashedCategories drops soft-deleted categories from the payload.
func (j Joke) withoutTrashedCategories() Joke {
	live := make([]CategoryRef, 0, len(j.Categories))
	for _, c := range j.Categories {
		if c.DeletedAt == nil {
			live = append(live, c)
		}
	}
	j.Categories = live
	return j
}

// CreateInput carries a new joke.
type CreateInput struct {
	Title       string     `json:"title" validate:"required,max=128"`
	Content     string     `json:"content" validate:"required"`
	Reference   *string    `json:"reference" validate:"omitempty,max=255"`
	PublishedAt *time.Time `json:"published_at"`
	CategoryIDs []int64    `json:"category_ids" validate:"omitempty,unique,dive,gt=0"`
}

// UpdateInput carries a partial change. A nil CategoryIDs keeps the
// associations; an empty slice clears them.
type UpdateInput struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=128"`
	Content     *string    `json:"content" validate:"omitempty,min=1"`
	Reference   *string    `json:"reference" validate:"omitempty,max=255"`
	PublishedAt *time.Time `json:"published_at"`
	CategoryIDs *[]int64   `json:"category_ids" validate:"omitempty,unique,dive,gt=0"`
}

// ListQuery narrows a joke listing.
type ListQuery struct {
	// VisibleOnly hides jokes without a live category.
	VisibleOnly bool
	// CategoryID restricts the listing to one category when non-zero.
	CategoryID int64
}
