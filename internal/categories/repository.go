package categories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/jokesdb/jokes-api/internal/platform/db"
	"github.com/jokesdb/jokes-api/internal/shared"
)

const titleConstraint = "categories_title_key_live"

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var sortColumns = map[string]string{
	"id":         "c.id",
	"title":      "c.title",
	"created_at": "c.created_at",
	"updated_at": "c.updated_at",
	"deleted_at": "c.deleted_at",
}

const categoryColumns = `c.id, c.title, c.description, c.created_at, c.updated_at, c.deleted_at`

// List returns one page of categories and the total match count.
func (r *Repository) List(ctx context.Context, f shared.ListFilters) ([]Category, int, error) {
	conds := []string{"c.deleted_at IS NULL"}
	if f.Trashed {
		conds[0] = "c.deleted_at IS NOT NULL"
	}
	var args []any
	if f.Search != "" {
		args = append(args, shared.LikePattern(f.Search))
		conds = append(conds, fmt.Sprintf("(c.title ILIKE $%d OR c.description ILIKE $%d)", len(args), len(args)))
	}
	where := " WHERE " + strings.Join(conds, " AND ")

	var (
		total int
		items []Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.pool.QueryRow(gctx, `SELECT COUNT(*) FROM categories c`+where, args...).Scan(&total)
	})
	g.Go(func() error {
		pageArgs := append(append([]any{}, args...), f.PerPage, f.Offset())
		query := fmt.Sprintf(`SELECT %s FROM categories c%s ORDER BY %s LIMIT $%d OFFSET $%d`,
			categoryColumns, where, f.OrderBy(sortColumns, "c.title"), len(args)+1, len(args)+2)
		rows, err := r.pool.Query(gctx, query, pageArgs...)
		if err != nil {
			return err
		}
		items, err = pgx.CollectRows(rows, scanCategory)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("categories: list: %w", err)
	}
	return items, total, nil
}

// Find fetches a category; soft-deleted rows only when withTrashed is set.
func (r *Repository) Find(ctx context.Context, id int64, withTrashed bool) (Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories c WHERE c.id = $1`
	if !withTrashed {
		query += ` AND c.deleted_at IS NULL`
	}
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return Category{}, fmt.Errorf("categories: find: %w", err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if err != nil {
		if db.IsNoRows(err) {
			return Category{}, shared.NotFound("Category")
		}
		return Category{}, fmt.Errorf("categories: find: %w", err)
	}
	return c, nil
}

// Create inserts a category.
func (r *Repository) Create(ctx context.Context, in CreateInput) (Category, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
INSERT INTO categories (title, title_key, description, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW()) RETURNING id`, in.Title, titleKey(in.Title), in.Description).Scan(&id)
	if err != nil {
		return Category{}, mapWriteError("create", err)
	}
	return r.Find(ctx, id, false)
}

// Update applies non-nil changes to a live category.
func (r *Repository) Update(ctx context.Context, id int64, in UpdateInput) (Category, error) {
	var key *string
	if in.Title != nil {
		k := titleKey(*in.Title)
		key = &k
	}
	tag, err := r.pool.Exec(ctx, `
UPDATE categories SET
    title = COALESCE($2, title),
    title_key = COALESCE($3, title_key),
    description = COALESCE($4, description),
    updated_at = NOW()
WHERE id = $1 AND deleted_at IS NULL`, id, in.Title, key, in.Description)
	if err != nil {
		return Category{}, mapWriteError("update", err)
	}
	if tag.RowsAffected() == 0 {
		return Category{}, shared.NotFound("Category")
	}
	return r.Find(ctx, id, false)
}

// TitleTaken reports whether a live category other than exceptID uses title.
func (r *Repository) TitleTaken(ctx context.Context, title string, exceptID int64) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM categories WHERE title_key = $1 AND id <> $2 AND deleted_at IS NULL)`,
		titleKey(title), exceptID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("categories: title taken: %w", err)
	}
	return taken, nil
}

// CountJokes counts live jokes in the category.
func (r *Repository) CountJokes(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM category_joke cj
JOIN jokes j ON j.id = cj.joke_id
WHERE cj.category_id = $1 AND j.deleted_at IS NULL`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("categories: count jokes: %w", err)
	}
	return n, nil
}

// SoftDelete marks a category deleted. Its jokes keep the association.
func (r *Repository) SoftDelete(ctx context.Context, id int64) error {
	return r.exec(ctx, "soft delete", `UPDATE categories SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
}

// Restore clears the deleted marker.
func (r *Repository) Restore(ctx context.Context, id int64) error {
	return r.exec(ctx, "restore", `UPDATE categories SET deleted_at = NULL, updated_at = NOW() WHERE id = $1 AND deleted_at IS NOT NULL`, id)
}

// ForceDelete removes the row; associations go with it.
func (r *Repository) ForceDelete(ctx context.Context, id int64) error {
	return r.exec(ctx, "force delete", `DELETE FROM categories WHERE id = $1`, id)
}

// ExistingIDs returns the subset of ids naming live categories.
func (r *Repository) ExistingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM categories WHERE id = ANY($1) AND deleted_at IS NULL ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("categories: existing ids: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("categories: existing ids: %w", err)
	}
	return found, nil
}

func (r *Repository) exec(ctx context.Context, op, query string, id int64) error {
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return mapWriteError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("Category")
	}
	return nil
}

func scanCategory(row pgx.CollectableRow) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt)
	return c, err
}

func mapWriteError(op string, err error) error {
	if db.IsUniqueViolation(err, titleConstraint) {
		return ErrTitleTaken
	}
	return fmt.Errorf("categories: %s: %w", op, err)
}
