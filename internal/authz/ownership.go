package authz

import "github.com/jokesdb/jokes-api/internal/rbac"

// IsOwner reports whether actor owns t. Unowned targets have no owner.
func IsOwner(actor rbac.Actor, t Target) bool {
	return t.OwnerID != 0 && t.OwnerID == actor.ID
}

// outranks reports whether actor may manage the user target t: never itself,
// any other account for a superuser, otherwise only strictly lower levels.
func outranks(actor rbac.Actor, t Target) bool {
	if actor.ID == t.ID {
		return false
	}
	if actor.Level() >= rbac.LevelSuperuser {
		return true
	}
	return t.Level() < actor.Level()
}
