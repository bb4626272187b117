package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jokesdb/jokes-api/internal/platform/db"
	"github.com/jokesdb/jokes-api/internal/rbac"
	"github.com/jokesdb/jokes-api/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id int64) (Account, error)
	Create(ctx context.Context, name, email, passwordHash string, role rbac.Role) (Account, error)
	UpdateProfile(ctx context.Context, id int64, changes ProfileChanges) (Account, error)
	SetPassword(ctx context.Context, id int64, passwordHash string) error
	SoftDelete(ctx context.Context, id int64) error
	UserIDsWithRole(ctx context.Context, role rbac.Role) ([]int64, error)
}

// ProfileChanges is the persisted form of ProfileUpdate.
type ProfileChanges struct {
	Name         *string
	Email        *string
	PasswordHash *string
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const accountSelect = `
SELECT u.id, u.name, u.email, u.password, u.status, u.created_at, u.updated_at,
       COALESCE(array_agg(r.name ORDER BY r.level) FILTER (WHERE r.name IS NOT NULL), '{}') AS roles
FROM users u
LEFT JOIN user_roles ur ON ur.user_id = u.id
LEFT JOIN roles r ON r.id = ur.role_id
`

// FindByEmail fetches a live account by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	row := r.pool.QueryRow(ctx, accountSelect+`WHERE lower(u.email) = lower($1) AND u.deleted_at IS NULL GROUP BY u.id`, email)
	return scanAccount(row)
}

// FindByID fetches a live account by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (Account, error) {
	row := r.pool.QueryRow(ctx, accountSelect+`WHERE u.id = $1 AND u.deleted_at IS NULL GROUP BY u.id`, id)
	return scanAccount(row)
}

// Create inserts a user holding role.
func (r *PGRepository) Create(ctx context.Context, name, email, passwordHash string, role rbac.Role) (Account, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		if err := tx.QueryRow(ctx, `
INSERT INTO users (name, email, password, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`, name, email, passwordHash, string(rbac.StatusActive), now).Scan(&id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) SELECT $1, id FROM roles WHERE name = $2`, id, string(role))
		return err
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return Account{}, emailTaken()
		}
		return Account{}, fmt.Errorf("auth: create user: %w", err)
	}
	return r.FindByID(ctx, id)
}

// UpdateProfile applies non-nil changes.
func (r *PGRepository) UpdateProfile(ctx context.Context, id int64, changes ProfileChanges) (Account, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE users SET
    name = COALESCE($2, name),
    email = COALESCE($3, email),
    password = COALESCE($4, password),
    updated_at = NOW()
WHERE id = $1 AND deleted_at IS NULL`, id, changes.Name, changes.Email, changes.PasswordHash)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return Account{}, emailTaken()
		}
		return Account{}, fmt.Errorf("auth: update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Account{}, shared.NotFound("User")
	}
	return r.FindByID(ctx, id)
}

// SetPassword replaces the stored password hash.
func (r *PGRepository) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("auth: set password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("User")
	}
	return nil
}

// SoftDelete marks the account deleted.
func (r *PGRepository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("auth: delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("User")
	}
	return nil
}

// UserIDsWithRole lists every user holding role, trashed users included.
func (r *PGRepository) UserIDsWithRole(ctx context.Context, role rbac.Role) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
SELECT ur.user_id FROM user_roles ur
JOIN roles r ON r.id = ur.role_id
WHERE r.name = $1 ORDER BY ur.user_id`, string(role))
	if err != nil {
		return nil, fmt.Errorf("auth: users with role: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("auth: users with role: %w", err)
	}
	return ids, nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		acc    Account
		status string
		roles  []string
	)
	if err := row.Scan(&acc.ID, &acc.Name, &acc.Email, &acc.PasswordHash, &status, &acc.CreatedAt, &acc.UpdatedAt, &roles); err != nil {
		if db.IsNoRows(err) {
			return Account{}, shared.NotFound("User")
		}
		return Account{}, fmt.Errorf("auth: scan account: %w", err)
	}
	acc.Status = rbac.Status(status)
	acc.Roles = ParseRoles(roles)
	return acc, nil
}

// ParseRoles converts stored role names, skipping names the registry does not know.
func ParseRoles(names []string) []rbac.Role {
	roles := make([]rbac.Role, 0, len(names))
	for _, n := range names {
		if r, err := rbac.ParseRole(n); err == nil {
			roles = append(roles, r)
		}
	}
	return roles
}

func emailTaken() error {
	return shared.Conflict("The email has already been taken.")
}

var _ Repository = (*PGRepository)(nil)
