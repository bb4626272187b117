package jokes

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

// visiblePredicate holds for jokes with at least one live category.
const visiblePredicate = `EXISTS (
    SELECT 1 FROM category_joke cj
    JOIN categories c ON c.id = cj.category_id
    WHERE cj.joke_id = j.id AND c.deleted_at IS NULL)`

const jokeColumns = `j.id, j.title, j.content, j.reference, j.published_at, j.user_id,
    j.created_at, j.updated_at, j.deleted_at,
    (SELECT COUNT(*) FROM votes v WHERE v.joke_id = j.id AND v.rating > 0) AS up_votes,
    (SELECT COUNT(*) FROM votes v WHERE v.joke_id = j.id AND v.rating < 0) AS down_votes`

var sortColumns = map[string]string{
	"id":           "j.id",
	"title":        "j.title",
	"published_at": "j.published_at",
	"created_at":   "j.created_at",
	"updated_at":   "j.updated_at",
	"deleted_at":   "j.deleted_at",
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns one page of jokes and the total match count.
func (r *Repository) List(ctx context.Context, f shared.ListFilters, q ListQuery) ([]Joke, int, error) {
	conds := []string{"j.deleted_at IS NULL"}
	if f.Trashed {
		conds[0] = "j.deleted_at IS NOT NULL"
	}
	if q.VisibleOnly {
		conds = append(conds, visiblePredicate)
	}
	var args []any
	if f.Search != "" {
		args = append(args, shared.LikePattern(f.Search))
		conds = append(conds, fmt.Sprintf("(j.title ILIKE $%d OR j.content ILIKE $%d)", len(args), len(args)))
	}
	if q.CategoryID > 0 {
		args = append(args, q.CategoryID)
		conds = append(conds, fmt.Sprintf("EXISTS (SELECT 1 FROM category_joke cj WHERE cj.joke_id = j.id AND cj.category_id = $%d)", len(args)))
	}
	where := " WHERE " + strings.Join(conds, " AND ")

	var (
		total int
		items []Joke
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.pool.QueryRow(gctx, `SELECT COUNT(*) FROM jokes j`+where, args...).Scan(&total)
	})
	g.Go(func() error {
		pageArgs := append(append([]any{}, args...), f.PerPage, f.Offset())
		query := fmt.Sprintf(`SELECT %s FROM jokes j%s ORDER BY %s LIMIT $%d OFFSET $%d`,
			jokeColumns, where, f.OrderBy(sortColumns, "j.id"), len(args)+1, len(args)+2)
		rows, err := r.pool.Query(gctx, query, pageArgs...)
		if err != nil {
			return err
		}
		items, err = pgx.CollectRows(rows, scanJoke)
		if err != nil {
			return err
		}
		return r.attachCategories(gctx, r.pool, items)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("jokes: list: %w", err)
	}
	return items, total, nil
}

// Find fetches a joke with its categories; soft-deleted rows only when
// withTrashed is set.
func (r *Repository) Find(ctx context.Context, id int64, withTrashed bool) (Joke, error) {
	return r.find(ctx, r.pool, id, withTrashed)
}

func (r *Repository) find(ctx context.Context, q db.Querier, id int64, withTrashed bool) (Joke, error) {
	query := `SELECT ` + jokeColumns + ` FROM jokes j WHERE j.id = $1`
	if !withTrashed {
		query += ` AND j.deleted_at IS NULL`
	}
	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return Joke{}, fmt.Errorf("jokes: find: %w", err)
	}
	j, err := pgx.CollectExactlyOneRow(rows, scanJoke)
	if err != nil {
		if db.IsNoRows(err) {
			return Joke{}, shared.NotFound("Joke")
		}
		return Joke{}, fmt.Errorf("jokes: find: %w", err)
	}
	items := []Joke{j}
	if err := r.attachCategories(ctx, q, items); err != nil {
		return Joke{}, fmt.Errorf("jokes: find categories: %w", err)
	}
	return items[0], nil
}

// Random returns one live joke with at least one live category.
func (r *Repository) Random(ctx context.Context) (Joke, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT j.id FROM jokes j WHERE j.deleted_at IS NULL AND `+visiblePredicate+` ORDER BY random() LIMIT 1`).Scan(&id)
	if err != nil {
		if db.IsNoRows(err) {
			return Joke{}, shared.NotFound("Joke")
		}
		return Joke{}, fmt.Errorf("jokes: random: %w", err)
	}
	return r.Find(ctx, id, false)
}

// Create inserts a joke owned by userID with its category links.
func (r *Repository) Create(ctx context.Context, userID int64, in CreateInput) (Joke, error) {
	var created Joke
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var id int64
		if err := tx.QueryRow(ctx, `
INSERT INTO jokes (title, content, reference, published_at, user_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW(), NOW()) RETURNING id`,
			in.Title, in.Content, in.Reference, in.PublishedAt, userID).Scan(&id); err != nil {
			return err
		}
		if err := syncCategories(ctx, tx, id, in.CategoryIDs); err != nil {
			return err
		}
		var err error
		created, err = r.find(ctx, tx, id, false)
		return err
	})
	if err != nil {
		return Joke{}, fmt.Errorf("jokes: create: %w", err)
	}
	return created, nil
}

// Update applies non-nil changes to a live joke.
func (r *Repository) Update(ctx context.Context, id int64, in UpdateInput) (Joke, error) {
	var updated Joke
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
UPDATE jokes SET
    title = COALESCE($2, title),
    content = COALESCE($3, content),
    reference = COALESCE($4, reference),
    published_at = COALESCE($5, published_at),
    updated_at = NOW()
WHERE id = $1 AND deleted_at IS NULL`, id, in.Title, in.Content, in.Reference, in.PublishedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.NotFound("Joke")
		}
		if in.CategoryIDs != nil {
			if err := syncCategories(ctx, tx, id, *in.CategoryIDs); err != nil {
				return err
			}
		}
		updated, err = r.find(ctx, tx, id, false)
		return err
	})
	if err != nil {
		if shared.IsKind(err, shared.KindNotFound) {
			return Joke{}, err
		}
		return Joke{}, fmt.Errorf("jokes: update: %w", err)
	}
	return updated, nil
}

// MissingCategories returns the ids that do not name a live category.
func (r *Repository) MissingCategories(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
SELECT want.id FROM unnest($1::bigint[]) AS want(id)
WHERE NOT EXISTS (SELECT 1 FROM categories c WHERE c.id = want.id AND c.deleted_at IS NULL)
ORDER BY want.id`, ids)
	if err != nil {
		return nil, fmt.Errorf("jokes: missing categories: %w", err)
	}
	missing, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("jokes: missing categories: %w", err)
	}
	return missing, nil
}

// SoftDelete marks a joke deleted.
func (r *Repository) SoftDelete(ctx context.Context, id int64) error {
	return r.exec(ctx, "soft delete", `UPDATE jokes SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
}

// Restore clears the deleted marker.
func (r *Repository) Restore(ctx context.Context, id int64) error {
	return r.exec(ctx, "restore", `UPDATE jokes SET deleted_at = NULL, updated_at = NOW() WHERE id = $1 AND deleted_at IS NOT NULL`, id)
}

// ForceDelete removes the row; votes and category links cascade.
func (r *Repository) ForceDelete(ctx context.Context, id int64) error {
	return r.exec(ctx, "force delete", `DELETE FROM jokes WHERE id = $1`, id)
}

func (r *Repository) exec(ctx context.Context, op, query string, id int64) error {
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("jokes: %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("Joke")
	}
	return nil
}

func (r *Repository) attachCategories(ctx context.Context, q db.Querier, items []Joke) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]int64, len(items))
	index := make(map[int64]int, len(items))
	for i := range items {
		ids[i] = items[i].ID
		index[items[i].ID] = i
		items[i].Categories = []CategoryRef{}
	}
	rows, err := q.Query(ctx, `
SELECT cj.joke_id, c.id, c.title, c.deleted_at
FROM category_joke cj
JOIN categories c ON c.id = cj.category_id
WHERE cj.joke_id = ANY($1)
ORDER BY c.title`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			jokeID int64
			ref    CategoryRef
		)
		if err := rows.Scan(&jokeID, &ref.ID, &ref.Title, &ref.DeletedAt); err != nil {
			return err
		}
		i := index[jokeID]
		items[i].Categories = append(items[i].Categories, ref)
	}
	return rows.Err()
}

func syncCategories(ctx context.Context, tx pgx.Tx, jokeID int64, categoryIDs []int64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM category_joke WHERE joke_id = $1`, jokeID); err != nil {
		return err
	}
	if len(categoryIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
INSERT INTO category_joke (category_id, joke_id)
SELECT unnest($2::bigint[]), $1
ON CONFLICT DO NOTHING`, jokeID, categoryIDs)
	return err
}

func scanJoke(row pgx.CollectableRow) (Joke, error) {
	var j Joke
	err := row.Scan(&j.ID, &j.Title, &j.Content, &j.Reference, &j.PublishedAt, &j.UserID,
		&j.CreatedAt, &j.UpdatedAt, &j.DeletedAt, &j.Votes.Up, &j.Votes.Down)
	j.Votes.Score = j.Votes.Up - j.Votes.Down
	return j, err
}
