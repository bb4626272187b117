package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/jokesdb/jokes-api/internal/auth"
	"github.com/jokesdb/jokes-api/internal/platform/db"
	"github.com/jokesdb/jokes-api/internal/rbac"
	"github.com/jokesdb/jokes-api/internal/shared"
)

const emailConstraint = "users_email_key"

const userSelect = `
SELECT u.id, u.name, u.email, u.status, u.created_at, u.updated_at, u.deleted_at,
       COALESCE(array_agg(r.name ORDER BY r.level) FILTER (WHERE r.name IS NOT NULL), '{}') AS roles
FROM users u
LEFT JOIN user_roles ur ON ur.user_id = u.id
LEFT JOIN roles r ON r.id = ur.role_id
`

var sortColumns = map[string]string{
	"id":         "u.id",
	"name":       "u.name",
	"email":      "u.email",
	"status":     "u.status",
	"created_at": "u.created_at",
	"updated_at": "u.updated_at",
	"deleted_at": "u.deleted_at",
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns one page of accounts and the total match count.
func (r *Repository) List(ctx context.Context, f shared.ListFilters) ([]User, int, error) {
	conds := []string{"u.deleted_at IS NULL"}
	if f.Trashed {
		conds[0] = "u.deleted_at IS NOT NULL"
	}
	var args []any
	if f.Search != "" {
		args = append(args, shared.LikePattern(f.Search))
		conds = append(conds, fmt.Sprintf("(u.name ILIKE $%d OR u.email ILIKE $%d)", len(args), len(args)))
	}
	where := " WHERE " + strings.Join(conds, " AND ")

	var (
		total int
		items []User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.pool.QueryRow(gctx, `SELECT COUNT(*) FROM users u`+where, args...).Scan(&total)
	})
	g.Go(func() error {
		pageArgs := append(append([]any{}, args...), f.PerPage, f.Offset())
		query := fmt.Sprintf(`%s%s GROUP BY u.id ORDER BY %s LIMIT $%d OFFSET $%d`,
			userSelect, where, f.OrderBy(sortColumns, "u.id"), len(args)+1, len(args)+2)
		rows, err := r.pool.Query(gctx, query, pageArgs...)
		if err != nil {
			return err
		}
		items, err = pgx.CollectRows(rows, scanUser)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("users: list: %w", err)
	}
	return items, total, nil
}

// Find fetches an account; soft-deleted rows only when withTrashed is set.
func (r *Repository) Find(ctx context.Context, id int64, withTrashed bool) (User, error) {
	query := userSelect + `WHERE u.id = $1`
	if !withTrashed {
		query += ` AND u.deleted_at IS NULL`
	}
	rows, err := r.pool.Query(ctx, query+` GROUP BY u.id`, id)
	if err != nil {
		return User{}, fmt.Errorf("users: find: %w", err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if db.IsNoRows(err) {
			return User{}, shared.NotFound("User")
		}
		return User{}, fmt.Errorf("users: find: %w", err)
	}
	return u, nil
}

// Create inserts an account holding roles.
func (r *Repository) Create(ctx context.Context, name, email, passwordHash string, status rbac.Status, roles []rbac.Role) (User, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
INSERT INTO users (name, email, password, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING id`, name, email, passwordHash, string(status)).Scan(&id); err != nil {
			return err
		}
		return replaceRoles(ctx, tx, id, roles)
	})
	if err != nil {
		return User{}, mapWriteError("create", err)
	}
	return r.Find(ctx, id, false)
}

// Update applies non-nil changes to a live account.
func (r *Repository) Update(ctx context.Context, id int64, c Changes) (User, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE users SET
    name = COALESCE($2, name),
    email = COALESCE($3, email),
    password = COALESCE($4, password),
    updated_at = NOW()
WHERE id = $1 AND deleted_at IS NULL`, id, c.Name, c.Email, c.PasswordHash)
	if err != nil {
		return User{}, mapWriteError("update", err)
	}
	if tag.RowsAffected() == 0 {
		return User{}, shared.NotFound("User")
	}
	return r.Find(ctx, id, false)
}

// SetStatus changes the account status.
func (r *Repository) SetStatus(ctx context.Context, id int64, status rbac.Status) (User, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id, string(status))
	if err != nil {
		return User{}, fmt.Errorf("users: set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return User{}, shared.NotFound("User")
	}
	return r.Find(ctx, id, false)
}

// SetRoles replaces the roles of an account.
func (r *Repository) SetRoles(ctx context.Context, id int64, roles []rbac.Role) (User, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE users SET updated_at = NOW() WHERE id = $1`, id); err != nil {
			return err
		}
		return replaceRoles(ctx, tx, id, roles)
	})
	if err != nil {
		return User{}, fmt.Errorf("users: set roles: %w", err)
	}
	return r.Find(ctx, id, false)
}

// SoftDelete marks an account deleted.
func (r *Repository) SoftDelete(ctx context.Context, id int64) error {
	return r.exec(ctx, "soft delete", `UPDATE users SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
}

// Restore clears the deleted marker.
func (r *Repository) Restore(ctx context.Context, id int64) error {
	return r.exec(ctx, "restore", `UPDATE users SET deleted_at = NULL, updated_at = NOW() WHERE id = $1 AND deleted_at IS NOT NULL`, id)
}

// ForceDelete removes the row. Jokes, votes and role links cascade.
func (r *Repository) ForceDelete(ctx context.Context, id int64) error {
	return r.exec(ctx, "force delete", `DELETE FROM users WHERE id = $1`, id)
}

func (r *Repository) exec(ctx context.Context, op, query string, id int64) error {
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("users: %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("User")
	}
	return nil
}

func replaceRoles(ctx context.Context, tx pgx.Tx, userID int64, roles []rbac.Role) error {
	if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return err
	}
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	_, err := tx.Exec(ctx, `
INSERT INTO user_roles (user_id, role_id)
SELECT $1, r.id FROM roles r WHERE r.name = ANY($2)`, userID, names)
	return err
}

func scanUser(row pgx.CollectableRow) (User, error) {
	var (
		u      User
		status string
		roles  []string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &status, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt, &roles); err != nil {
		return User{}, err
	}
	u.Status = rbac.Status(status)
	u.Roles = auth.ParseRoles(roles)
	return u, nil
}

func mapWriteError(op string, err error) error {
	if db.IsUniqueViolation(err, emailConstraint) {
		return ErrEmailTaken
	}
	return fmt.Errorf("users: %s: %w", op, err)
}
