package authz

import "github.com/jokesdb/jokes-api/internal/rbac"

// SeesEverything reports whether the visibility filter is lifted for actor.
func SeesEverything(actor rbac.Actor) bool {
	return actor.AtLeast(rbac.RoleStaff)
}

// IsVisible reports whether t may be shown to actor. Jokes without a live
// category are hidden from actors below staff; other resources are always visible.
func IsVisible(actor rbac.Actor, t Target) bool {
	if t.Resource != ResourceJoke || t.IsClass() {
		return true
	}
	if SeesEverything(actor) {
		return true
	}
	return t.LiveCategories > 0
}
