package categories

import "github.com/jokesdb/jokes-api/internal/shared"

// Domain errors for categories.
var (
	// ErrTitleTaken reports a title already used by a live category.
	ErrTitleTaken = shared.Conflict("The title has already been taken.")
)
