package rbac

import (
	"errors"
	"strings"
)

// ErrUnknownRole is returned for role names outside the closed role set.
var ErrUnknownRole = errors.New("rbac: unknown role")

// Role is one of the fixed permission tiers.
type Role string

const (
	RoleClient    Role = "client"
	RoleStaff     Role = "staff"
	RoleAdmin     Role = "admin"
	RoleSuperuser Role = "superuser"
)

// Role levels. Higher levels outrank lower ones.
const (
	LevelClient    = 100
	LevelStaff     = 500
	LevelAdmin     = 750
	LevelSuperuser = 999
)

// Roles lists every role in ascending level order.
func Roles() []Role {
	return []Role{RoleClient, RoleStaff, RoleAdmin, RoleSuperuser}
}

// ParseRole resolves a role name. "user" is accepted as the legacy name of
// the client tier.
func ParseRole(name string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "client", "user":
		return RoleClient, nil
	case "staff":
		return RoleStaff, nil
	case "admin":
		return RoleAdmin, nil
	case "superuser":
		return RoleSuperuser, nil
	}
	return "", ErrUnknownRole
}

// Level returns the ordinal level of r, or 0 for an unknown role.
func (r Role) Level() int {
	switch r {
	case RoleClient:
		return LevelClient
	case RoleStaff:
		return LevelStaff
	case RoleAdmin:
		return LevelAdmin
	case RoleSuperuser:
		return LevelSuperuser
	default:
		return 0
	}
}

// Valid reports whether r is part of the closed role set.
func (r Role) Valid() bool {
	return r.Level() > 0
}

// RoleLevel returns the ordinal level for a role name.
func RoleLevel(name string) (int, error) {
	role, err := ParseRole(name)
	if err != nil {
		return 0, err
	}
	return role.Level(), nil
}

// Status is the account standing of an actor.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusBanned    Status = "banned"
)

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusActive:
		return StatusActive, true
	case StatusSuspended:
		return StatusSuspended, true
	case StatusBanned:
		return StatusBanned, true
	}
	return "", false
}

// Actor describes the authenticated principal.
type Actor struct {
	ID     int64
	Roles  []Role
	Status Status
}

// Level returns the highest level among the actor's roles.
func (a Actor) Level() int {
	level := 0
	for _, r := range a.Roles {
		if l := r.Level(); l > level {
			level = l
		}
	}
	return level
}

// TopRole returns the actor's highest role, or "" when it holds none.
func (a Actor) TopRole() Role {
	var top Role
	for _, r := range a.Roles {
		if r.Level() > top.Level() {
			top = r
		}
	}
	return top
}

// AtLeast reports whether the actor's highest level reaches role's level.
func (a Actor) AtLeast(role Role) bool {
	return a.Level() >= role.Level()
}

// Active reports whether the actor is in good standing.
func (a Actor) Active() bool {
	return a.Status == "" || a.Status == StatusActive
}
