package users

import "github.com/jokesdb/jokes-api/internal/shared"

// ErrEmailTaken reports a duplicate email address.
var ErrEmailTaken = shared.Conflict("The email has already been taken.")
