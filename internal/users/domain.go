package users

import (
	"time"

	"github.com/jokesdb/jokes-api/internal/authz"
	"github.com/jokesdb/jokes-api/internal/rbac"
)

// User represents a user account for management.
type User struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Status    rbac.Status `json:"status"`
	Roles     []rbac.Role `json:"roles"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	DeletedAt *time.Time  `json:"deleted_at,omitempty"`
}

// Trashed reports whether the account is soft-deleted.
func (u User) Trashed() bool {
	return u.DeletedAt != nil
}

// Target projects the account for authorization.
func (u User) Target() authz.Target {
	return authz.UserTarget(u.ID, u.Roles, u.Trashed())
}

// CreateInput carries a new account. Roles defaults to client.
type CreateInput struct {
	Name     string   `json:"name" validate:"required,max=255"`
	Email    string   `json:"email" validate:"required,email,max=255"`
	Password string   `json:"password" validate:"required,min=8,max=72"`
	Status   string   `json:"status" validate:"omitempty,oneof=active suspended banned"`
	Roles    []string `json:"roles" validate:"omitempty,unique,dive,required"`
}

// UpdateInput carries a partial change. Nil fields are unchanged.
type UpdateInput struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
}

// StatusInput moves an account between active, suspended and banned.
type StatusInput struct {
	Status string `json:"status" validate:"required,oneof=active suspended banned"`
}

// RolesInput replaces the roles of an account.
type RolesInput struct {
	Roles []string `json:"roles" validate:"required,min=1,unique,dive,required"`
}

// Changes is the persisted form of UpdateInput.
type Changes struct {
	Name         *string
	Email        *string
	PasswordHash *string
}
