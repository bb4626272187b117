package votes

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

const voteColumns = `v.id, v.user_id, v.joke_id, v.rating, v.created_at, v.updated_at`

var sortColumns = map[string]string{
	"id":         "v.id",
	"rating":     "v.rating",
	"created_at": "v.created_at",
	"updated_at": "v.updated_at",
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert records userID's rating of jokeID, updating the existing vote in
// place. created reports whether a new row was inserted.
func (r *Repository) Upsert(ctx context.Context, userID, jokeID int64, rating int) (Vote, bool, error) {
	var (
		v        Vote
		inserted bool
	)
	err := r.pool.QueryRow(ctx, `
INSERT INTO votes AS v (user_id, joke_id, rating, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW())
ON CONFLICT (user_id, joke_id) DO UPDATE SET rating = EXCLUDED.rating, updated_at = NOW()
RETURNING `+voteColumns+`, (xmax = 0) AS inserted`, userID, jokeID, rating).
		Scan(&v.ID, &v.UserID, &v.JokeID, &v.Rating, &v.CreatedAt, &v.UpdatedAt, &inserted)
	if err != nil {
		return Vote{}, false, fmt.Errorf("votes: upsert: %w", err)
	}
	return v, inserted, nil
}

// Find fetches a vote by id.
func (r *Repository) Find(ctx context.Context, id int64) (Vote, error) {
	return r.one(ctx, `SELECT `+voteColumns+` FROM votes v WHERE v.id = $1`, id)
}

// FindByUserAndJoke fetches the vote userID placed on jokeID.
func (r *Repository) FindByUserAndJoke(ctx context.Context, userID, jokeID int64) (Vote, error) {
	return r.one(ctx, `SELECT `+voteColumns+` FROM votes v WHERE v.user_id = $1 AND v.joke_id = $2`, userID, jokeID)
}

// Delete removes a vote.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM votes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("votes: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("Vote")
	}
	return nil
}

// List returns one page of votes and the total match count.
func (r *Repository) List(ctx context.Context, f shared.ListFilters, filter Filter) ([]Vote, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.UserID > 0 {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("v.user_id = $%d", len(args)))
	}
	if filter.JokeID > 0 {
		args = append(args, filter.JokeID)
		conds = append(conds, fmt.Sprintf("v.joke_id = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var (
		total int
		items []Vote
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.pool.QueryRow(gctx, `SELECT COUNT(*) FROM votes v`+where, args...).Scan(&total)
	})
	g.Go(func() error {
		pageArgs := append(append([]any{}, args...), f.PerPage, f.Offset())
		query := fmt.Sprintf(`SELECT %s FROM votes v%s ORDER BY %s LIMIT $%d OFFSET $%d`,
			voteColumns, where, f.OrderBy(sortColumns, "v.id"), len(args)+1, len(args)+2)
		rows, err := r.pool.Query(gctx, query, pageArgs...)
		if err != nil {
			return err
		}
		items, err = pgx.CollectRows(rows, pgx.RowToStructByPos[Vote])
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("votes: list: %w", err)
	}
	return items, total, nil
}

// ClearUser deletes every vote placed by userID.
func (r *Repository) ClearUser(ctx context.Context, userID int64) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM votes WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("votes: clear user: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ClearAll deletes every vote.
func (r *Repository) ClearAll(ctx context.Context) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM votes`)
	if err != nil {
		return 0, fmt.Errorf("votes: clear all: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// UserExists reports whether a user row exists, trashed or not.
func (r *Repository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("votes: user exists: %w", err)
	}
	return ok, nil
}

func (r *Repository) one(ctx context.Context, query string, args ...any) (Vote, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return Vote{}, fmt.Errorf("votes: find: %w", err)
	}
	v, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Vote])
	if err != nil {
		if db.IsNoRows(err) {
			return Vote{}, shared.NotFound("Vote")
		}
		return Vote{}, fmt.Errorf("votes: find: %w", err)
	}
	return v, nil
}
