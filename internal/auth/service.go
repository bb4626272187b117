package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/jokesdb/jokes-api/internal/authz"
	"github.com/jokesdb/jokes-api/internal/platform/validate"
	"github.com/jokesdb/jokes-api/internal/rbac"
	"github.com/jokesdb/jokes-api/internal/shared"
)

// NoticeQueue schedules out-of-band notifications.
type NoticeQueue interface {
	EnqueuePasswordResetNotice(ctx context.Context, userID int64) error
}

// Service wraps authentication business rules.
type Service struct {
	repo      Repository
	tokens    *TokenService
	engine    *authz.Engine
	notices   NoticeQueue
	validator *validate.Validator
	logger    *slog.Logger
	hashCost  int
}

// ServiceConfig collects the Service dependencies. Notices may be nil.
type ServiceConfig struct {
	Repo     Repository
	Tokens   *TokenService
	Engine   *authz.Engine
	Notices  NoticeQueue
	Logger   *slog.Logger
	HashCost int
}

// NewService constructs a new Service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cost := cfg.HashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		repo:      cfg.Repo,
		tokens:    cfg.Tokens,
		engine:    cfg.Engine,
		notices:   cfg.Notices,
		validator: validate.New(),
		logger:    logger.With(slog.String("module", "auth")),
		hashCost:  cost,
	}
}

// Register creates a client account and signs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return Session{}, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return Session{}, err
	}
	acc, err := s.repo.Create(ctx, strings.TrimSpace(in.Name), in.Email, hash, rbac.RoleClient)
	if err != nil {
		return Session{}, err
	}
	return s.startSession(ctx, acc)
}

// Login validates credentials and issues a token. Accounts that are not
// active are refused even with the right password.
func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return Session{}, err
	}
	acc, err := s.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		return Session{}, err
	}
	return s.startSession(ctx, acc)
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Account, error) {
	acc, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if shared.IsKind(err, shared.KindNotFound) {
			return Account{}, invalidCredentials()
		}
		return Account{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return Account{}, invalidCredentials()
	}
	if !acc.Actor().Active() {
		return Account{}, inactive(acc.Status)
	}
	return acc, nil
}

// Logout revokes the token used for the current request.
func (s *Service) Logout(ctx context.Context, actor rbac.Actor, tokenID string) error {
	if tokenID == "" {
		return nil
	}
	return s.tokens.Revoke(ctx, actor.ID, tokenID)
}

// Profile returns the actor's own account.
func (s *Service) Profile(ctx context.Context, actor rbac.Actor) (Profile, error) {
	acc, err := s.repo.FindByID(ctx, actor.ID)
	if err != nil {
		return Profile{}, err
	}
	return acc.Profile(), nil
}

// UpdateProfile changes the actor's own name, email or password. A password
// change signs the actor out everywhere.
func (s *Service) UpdateProfile(ctx context.Context, actor rbac.Actor, in ProfileUpdate) (Profile, error) {
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		in.Email = &email
	}
	if err := s.validator.Struct(in); err != nil {
		return Profile{}, err
	}
	acc, err := s.repo.FindByID(ctx, actor.ID)
	if err != nil {
		return Profile{}, err
	}
	if err := s.engine.Check(actor, authz.VerbUpdate, authz.UserTarget(acc.ID, acc.Roles, false)); err != nil {
		return Profile{}, err
	}

	changes := ProfileChanges{Email: in.Email}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		changes.Name = &name
	}
	if in.Password != nil {
		hash, err := s.hash(*in.Password)
		if err != nil {
			return Profile{}, err
		}
		changes.PasswordHash = &hash
	}
	updated, err := s.repo.UpdateProfile(ctx, actor.ID, changes)
	if err != nil {
		return Profile{}, err
	}
	if changes.PasswordHash != nil {
		if err := s.tokens.RevokeAll(ctx, actor.ID); err != nil {
			return Profile{}, err
		}
	}
	return updated.Profile(), nil
}

// DeleteProfile soft-deletes the actor's own account after revoking its tokens.
func (s *Service) DeleteProfile(ctx context.Context, actor rbac.Actor) error {
	if err := s.tokens.RevokeAll(ctx, actor.ID); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, actor.ID)
}

// LogoutRole revokes the tokens of every holder of the named role and
// returns how many tokens were dropped.
func (s *Service) LogoutRole(ctx context.Context, actor rbac.Actor, in LogoutRoleInput) (int, error) {
	if err := s.validator.Struct(in); err != nil {
		return 0, err
	}
	role, err := rbac.ParseRole(in.Role)
	if err != nil {
		return 0, shared.FieldError("role", "The selected role is invalid.")
	}
	if err := s.engine.LogoutRole(actor, role).Err(); err != nil {
		return 0, err
	}
	ids, err := s.repo.UserIDsWithRole(ctx, role)
	if err != nil {
		return 0, err
	}
	n, err := s.tokens.RevokeUsers(ctx, ids)
	if err != nil {
		return n, err
	}
	s.logger.Info("role logged out", slog.String("role", string(role)), slog.Int("users", len(ids)), slog.Int("tokens", n), slog.Int64("actor_id", actor.ID))
	return n, nil
}

// ResetPassword sets a new password for another user, signs that user out
// and queues a notice.
func (s *Service) ResetPassword(ctx context.Context, actor rbac.Actor, in ResetPasswordInput) error {
	if err := s.validator.Struct(in); err != nil {
		return err
	}
	target, err := s.repo.FindByID(ctx, in.UserID)
	if err != nil {
		return err
	}
	if err := s.engine.Check(actor, authz.VerbResetPassword, authz.UserTarget(target.ID, target.Roles, false)); err != nil {
		return err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return err
	}
	if err := s.repo.SetPassword(ctx, target.ID, hash); err != nil {
		return err
	}
	if err := s.tokens.RevokeAll(ctx, target.ID); err != nil {
		return err
	}
	if s.notices != nil {
		if err := s.notices.EnqueuePasswordResetNotice(ctx, target.ID); err != nil {
			s.logger.Warn("enqueue password reset notice", slog.Int64("user_id", target.ID), slog.Any("error", err))
		}
	}
	return nil
}

func (s *Service) startSession(ctx context.Context, acc Account) (Session, error) {
	token, err := s.tokens.Issue(ctx, acc.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{User: acc.Profile(), Token: token}, nil
}

func (s *Service) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", shared.FieldError("password", "The password may not be greater than 72 characters.")
		}
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func invalidCredentials() error {
	return &shared.Error{Kind: shared.KindUnauthenticated, Message: "Invalid credentials.", Err: shared.ErrInvalidCredentials}
}

func inactive(status rbac.Status) error {
	return shared.Forbidden(fmt.Sprintf("Your account is %s.", status))
}
