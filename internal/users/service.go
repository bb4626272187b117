package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/jokesdb/jokes-api/internal/authz"
	"github.com/jokesdb/jokes-api/internal/lifecycle"
	"github.com/jokesdb/jokes-api/internal/platform/validate"
	"github.com/jokesdb/jokes-api/internal/rbac"
	"github.com/jokesdb/jokes-api/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	lifecycle.Store[User]
	List(ctx context.Context, f shared.ListFilters) ([]User, int, error)
	Create(ctx context.Context, name, email, passwordHash string, status rbac.Status, roles []rbac.Role) (User, error)
	Update(ctx context.Context, id int64, c Changes) (User, error)
	SetStatus(ctx context.Context, id int64, status rbac.Status) (User, error)
	SetRoles(ctx context.Context, id int64, roles []rbac.Role) (User, error)
}

// TokenRevoker signs a user out of every session.
type TokenRevoker interface {
	RevokeAll(ctx context.Context, userID int64) error
}

// AuditRecorder keeps a trail of privileged account changes.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles user business logic.
type Service struct {
	repo      RepositoryPort
	engine    *authz.Engine
	tokens    TokenRevoker
	audit     AuditRecorder
	lifecycle *lifecycle.Manager[User]
	validator *validate.Validator
	logger    *slog.Logger
	hashCost  int
}

// NewService builds Service instance. hashCost 0 selects bcrypt.DefaultCost.
func NewService(repo RepositoryPort, engine *authz.Engine, tokens TokenRevoker, logger *slog.Logger, hashCost int) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}
	s := &Service{
		repo:      repo,
		engine:    engine,
		tokens:    tokens,
		validator: validate.New(),
		logger:    logger.With(slog.String("module", "users")),
		hashCost:  hashCost,
	}
	signOut := func(ctx context.Context, u User) error {
		return s.tokens.RevokeAll(ctx, u.ID)
	}
	s.lifecycle = lifecycle.NewManager[User](repo, engine, User.Target,
		lifecycle.AfterDelete[User](signOut),
		lifecycle.AfterForceDelete[User](signOut),
	)
	return s
}

// WithAudit makes the service record status, role and force-delete changes.
func (s *Service) WithAudit(audit AuditRecorder) *Service {
	s.audit = audit
	return s
}

// List returns live accounts, or soft-deleted ones when f.Trashed is set.
func (s *Service) List(ctx context.Context, actor rbac.Actor, f shared.ListFilters) ([]User, shared.Pagination, error) {
	verb := authz.VerbBrowse
	switch {
	case f.Trashed:
		verb = authz.VerbRestore
	case f.Search != "":
		verb = authz.VerbSearch
	}
	if err := s.engine.Check(actor, verb, authz.Class(authz.ResourceUser)); err != nil {
		return nil, shared.Pagination{}, err
	}
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if items == nil {
		items = []User{}
	}
	return items, shared.NewPagination(f.Page, f.PerPage, total), nil
}

// Get returns a live account.
func (s *Service) Get(ctx context.Context, actor rbac.Actor, id int64) (User, error) {
	u, err := s.repo.Find(ctx, id, false)
	if err != nil {
		return User{}, err
	}
	if err := s.engine.Check(actor, authz.VerbView, u.Target()); err != nil {
		return User{}, err
	}
	return u, nil
}

// Create adds an account. Granting any role other than client is an
// assign-roles decision.
func (s *Service) Create(ctx context.Context, actor rbac.Actor, in CreateInput) (User, error) {
	if err := s.engine.Check(actor, authz.VerbCreate, authz.Class(authz.ResourceUser)); err != nil {
		return User{}, err
	}
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validator.Struct(in); err != nil {
		return User{}, err
	}
	roles := []rbac.Role{rbac.RoleClient}
	if len(in.Roles) > 0 {
		parsed, err := parseRoles(in.Roles)
		if err != nil {
			return User{}, err
		}
		roles = parsed
	}
	if len(roles) != 1 || roles[0] != rbac.RoleClient {
		if err := s.engine.AssignRoles(actor, authz.Class(authz.ResourceUser), roles).Err(); err != nil {
			return User{}, err
		}
	}
	status := rbac.StatusActive
	if in.Status != "" {
		status = rbac.Status(in.Status)
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return User{}, err
	}
	return s.repo.Create(ctx, in.Name, in.Email, hash, status, roles)
}

// Update changes name, email or password. A password change signs the
// account out everywhere.
func (s *Service) Update(ctx context.Context, actor rbac.Actor, id int64, in UpdateInput) (User, error) {
	u, err := s.repo.Find(ctx, id, false)
	if err != nil {
		return User{}, err
	}
	if err := s.engine.Check(actor, authz.VerbUpdate, u.Target()); err != nil {
		return User{}, err
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		in.Email = &email
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
	if err := s.validator.Struct(in); err != nil {
		return User{}, err
	}
	changes := Changes{Name: in.Name, Email: in.Email}
	if in.Password != nil {
		hash, err := s.hash(*in.Password)
		if err != nil {
			return User{}, err
		}
		changes.PasswordHash = &hash
	}
	updated, err := s.repo.Update(ctx, id, changes)
	if err != nil {
		return User{}, err
	}
	if changes.PasswordHash != nil {
		if err := s.tokens.RevokeAll(ctx, id); err != nil {
			return User{}, err
		}
	}
	return updated, nil
}

// ChangeStatus suspends, bans or reactivates an account. Leaving the active
// status signs the account out everywhere.
func (s *Service) ChangeStatus(ctx context.Context, actor rbac.Actor, id int64, in StatusInput) (User, error) {
	u, err := s.repo.Find(ctx, id, false)
	if err != nil {
		return User{}, err
	}
	if err := s.engine.Check(actor, authz.VerbChangeStatus, u.Target()); err != nil {
		return User{}, err
	}
	if err := s.validator.Struct(in); err != nil {
		return User{}, err
	}
	status, _ := rbac.ParseStatus(in.Status)
	updated, err := s.repo.SetStatus(ctx, id, status)
	if err != nil {
		return User{}, err
	}
	if status != rbac.StatusActive {
		if err := s.tokens.RevokeAll(ctx, id); err != nil {
			return User{}, err
		}
	}
	s.logger.Info("user status changed", slog.Int64("user_id", id), slog.String("status", string(status)), slog.Int64("actor_id", actor.ID))
	s.record(ctx, actor, "status.changed", id, map[string]any{"from": string(u.Status), "to": string(status)})
	return updated, nil
}

// AssignRoles replaces the roles of an account.
func (s *Service) AssignRoles(ctx context.Context, actor rbac.Actor, id int64, in RolesInput) (User, error) {
	if err := s.validator.Struct(in); err != nil {
		return User{}, err
	}
	roles, err := parseRoles(in.Roles)
	if err != nil {
		return User{}, err
	}
	u, err := s.repo.Find(ctx, id, false)
	if err != nil {
		return User{}, err
	}
	if err := s.engine.AssignRoles(actor, u.Target(), roles).Err(); err != nil {
		return User{}, err
	}
	updated, err := s.repo.SetRoles(ctx, id, roles)
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actor, "roles.assigned", id, map[string]any{"roles": roles})
	return updated, nil
}

// Delete soft-deletes an account and signs it out.
func (s *Service) Delete(ctx context.Context, actor rbac.Actor, id int64) error {
	_, err := s.lifecycle.Delete(ctx, actor, id)
	return err
}

// Restore brings a soft-deleted account back.
func (s *Service) Restore(ctx context.Context, actor rbac.Actor, id int64) (User, error) {
	return s.lifecycle.Restore(ctx, actor, id)
}

// ForceDelete permanently removes an account with its jokes and votes.
func (s *Service) ForceDelete(ctx context.Context, actor rbac.Actor, id int64) error {
	u, err := s.lifecycle.ForceDelete(ctx, actor, id)
	if err != nil {
		return err
	}
	s.record(ctx, actor, "force-deleted", id, map[string]any{"email": u.Email})
	return nil
}

// record writes an audit entry. Failures are logged and never undo the change.
func (s *Service) record(ctx context.Context, actor rbac.Actor, action string, userID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{ActorID: actor.ID, Action: action, Entity: "user", EntityID: userID, Meta: meta})
	if err != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Int64("user_id", userID), slog.Any("error", err))
	}
}

func (s *Service) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", shared.FieldError("password", "The password may not be greater than 72 characters.")
		}
		return "", fmt.Errorf("users: hash password: %w", err)
	}
	return string(hash), nil
}

func parseRoles(names []string) ([]rbac.Role, error) {
	roles := make([]rbac.Role, 0, len(names))
	for _, n := range names {
		role, err := rbac.ParseRole(n)
		if err != nil {
			return nil, shared.FieldError("roles", fmt.Sprintf("The selected role %q is invalid.", n))
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
