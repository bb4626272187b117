package categories

import (
	"time"

	"golang.org/x/text/cases"

	"github.com/jokesdb/jokes-api/internal/authz"
)

// Category is a global classification for jokes.
type Category struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	JokesCount  *int       `json:"jokes_count,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Trashed reports whether the category is soft-deleted.
func (c Category) Trashed() bool {
	return c.DeletedAt != nil
}

// Target projects the category for authorization. Categories are unowned.
func (c Category) Target() authz.Target {
	return authz.Target{Resource: authz.ResourceCategory, ID: c.ID, Trashed: c.Trashed()}
}

// CreateInput carries a new category.
type CreateInput struct {
	Title       string  `json:"title" validate:"required,max=128"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// UpdateInput carries a partial change. Nil fields are unchanged.
type UpdateInput struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=128"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// titleKey folds a title for case-insensitive uniqueness.
func titleKey(title string) string {
	return cases.Fold().String(title)
}
