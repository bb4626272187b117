// Package authz decides whether an actor may perform a verb on a target.
//
// Decisions combine the actor's role level and permissions from package rbac,
// ownership of the target, and target state (soft-deleted, visible). Every
// rule lives in one policy table keyed by resource and verb so the full
// permission matrix can be read and tested in one place.
package authz

import (
	"fmt"
	"strings"

	"github.com/jokesdb/jokes-api/internal/rbac"
	"github.com/jokesdb/jokes-api/internal/shared"
)

// Resource names a guarded entity type.
type Resource string

const (
	ResourceJoke     Resource = "joke"
	ResourceCategory Resource = "category"
	ResourceVote     Resource = "vote"
	ResourceUser     Resource = "user"
	ResourceAuth     Resource = "auth"
)

// Title returns the capitalised resource name.
func (r Resource) Title() string {
	if r == "" {
		return ""
	}
	return strings.ToUpper(string(r[:1])) + string(r[1:])
}

func (r Resource) plural() string {
	if r == ResourceCategory {
		return "categories"
	}
	return string(r) + "s"
}

// Verb names a guarded action.
type Verb string

const (
	VerbBrowse         Verb = "browse"
	VerbView           Verb = "view"
	VerbSearch         Verb = "search"
	VerbCreate         Verb = "create"
	VerbUpdate         Verb = "update"
	VerbDelete         Verb = "delete"
	VerbRestore        Verb = "restore"
	VerbForceDelete    Verb = "force-delete"
	VerbVote           Verb = "vote"
	VerbClearUserVotes Verb = "clear-user-votes"
	VerbClearAllVotes  Verb = "clear-all-votes"
	VerbAssignRoles    Verb = "assign-roles"
	VerbChangeStatus   Verb = "change-status"
	VerbResetPassword  Verb = "reset-password"
	VerbLogoutRole     Verb = "logout-role"
)

func (v Verb) phrase() string {
	switch v {
	case VerbForceDelete:
		return "permanently delete"
	case VerbVote:
		return "vote on"
	case VerbClearUserVotes:
		return "clear the votes of"
	case VerbClearAllVotes:
		return "clear all"
	case VerbAssignRoles:
		return "assign roles to"
	case VerbChangeStatus:
		return "change the status of"
	case VerbResetPassword:
		return "reset the password of"
	case VerbLogoutRole:
		return "log out"
	}
	return string(v)
}

// Target is the authorization-relevant projection of an entity. A Target
// with a zero ID stands for the entity class (browse, search, create).
type Target struct {
	Resource Resource
	ID       int64
	// OwnerID is the owning actor, 0 for unowned entities. A user target owns itself.
	OwnerID int64
	Trashed bool
	// LiveCategories counts associated categories that are not soft-deleted (jokes only).
	LiveCategories int
	// Roles held by a user target.
	Roles []rbac.Role
}

// Class returns the class-level target for resource.
func Class(resource Resource) Target {
	return Target{Resource: resource}
}

// IsClass reports whether t refers to the entity class rather than a row.
func (t Target) IsClass() bool {
	return t.ID == 0
}

// Level returns the highest role level held by a user target.
func (t Target) Level() int {
	return rbac.Actor{Roles: t.Roles}.Level()
}

// Effect is the outcome of a decision.
type Effect int

const (
	EffectDeny Effect = iota
	EffectAllow
	EffectNotFound
)

func (e Effect) String() string {
	switch e {
	case EffectAllow:
		return "allow"
	case EffectNotFound:
		return "not_found"
	default:
		return "deny"
	}
}

// Decision is the result of an authorization check.
type Decision struct {
	Effect   Effect
	Reason   string
	Resource Resource
}

// Allowed reports whether the decision permits the action.
func (d Decision) Allowed() bool {
	return d.Effect == EffectAllow
}

// Err converts a decision into the error taxonomy; nil when allowed.
func (d Decision) Err() error {
	switch d.Effect {
	case EffectAllow:
		return nil
	case EffectNotFound:
		return shared.NotFound(d.Resource.Title())
	default:
		return shared.Forbidden(d.Reason)
	}
}

func allow(t Target) Decision {
	return Decision{Effect: EffectAllow, Resource: t.Resource}
}

func notFound(t Target) Decision {
	return Decision{Effect: EffectNotFound, Resource: t.Resource}
}

func deny(v Verb, t Target) Decision {
	var reason string
	if t.IsClass() {
		reason = fmt.Sprintf("Unauthorized to %s %s", v.phrase(), t.Resource.plural())
	} else {
		reason = fmt.Sprintf("Unauthorized to %s this %s", v.phrase(), t.Resource)
	}
	return Decision{Effect: EffectDeny, Reason: reason, Resource: t.Resource}
}

func denyWith(t Target, reason string) Decision {
	return Decision{Effect: EffectDeny, Reason: reason, Resource: t.Resource}
}

// UserTarget projects a user account. A user owns itself.
func UserTarget(id int64, roles []rbac.Role, trashed bool) Target {
	return Target{Resource: ResourceUser, ID: id, OwnerID: id, Roles: roles, Trashed: trashed}
}
