package auth

import (
	"time"

	"github.com/jokesdb/jokes-api/internal/rbac"
)

// Account is the credential view of a user row.
type Account struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Status       rbac.Status
	Roles        []rbac.Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor projects the account onto the principal used for authorization.
func (a Account) Actor() rbac.Actor {
	return rbac.Actor{ID: a.ID, Roles: a.Roles, Status: a.Status}
}

// Profile is the public representation of an account.
type Profile struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Status    rbac.Status `json:"status"`
	Roles     []rbac.Role `json:"roles"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Profile returns the public view of a.
func (a Account) Profile() Profile {
	roles := a.Roles
	if roles == nil {
		roles = []rbac.Role{}
	}
	return Profile{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Status:    a.Status,
		Roles:     roles,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// Token is an issued bearer token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	ID          string    `json:"-"`
}

// Session is the authenticated result returned by register and login.
type Session struct {
	User  Profile `json:"user"`
	Token Token   `json:"token"`
}

// RegisterInput carries self-registration data.
type RegisterInput struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

// LoginInput carries credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdate carries a partial profile change. Nil fields are unchanged.
type ProfileUpdate struct {
	Name     *string `json:"name" validate:"omitempty,max=255"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
}

// LogoutRoleInput names the role whose holders are signed out.
type LogoutRoleInput struct {
	Role string `json:"role" validate:"required"`
}

// ResetPasswordInput sets a new password for another user.
type ResetPasswordInput struct {
	UserID   int64  `json:"user_id" validate:"required,gt=0"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}
