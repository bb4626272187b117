package categories

import (
	"context"
	"strings"

	"github.com/jokesdb/jokes-api/internal/authz"
	"github.com/jokesdb/jokes-api/internal/lifecycle"
	"github.com/jokesdb/jokes-api/internal/platform/validate"
	"github.com/jokesdb/jokes-api/internal/rbac"
	"github.com/jokesdb/jokes-api/internal/shared"
)

// RepositoryPort defines data access methods for categories.
type RepositoryPort interface {
	lifecycle.Store[Category]
	List(ctx context.Context, f shared.ListFilters) ([]Category, int, error)
	Create(ctx context.Context, in CreateInput) (Category, error)
	Update(ctx context.Context, id int64, in UpdateInput) (Category, error)
	TitleTaken(ctx context.Context, title string, exceptID int64) (bool, error)
	CountJokes(ctx context.Context, id int64) (int, error)
}

// Service handles category business logic.
type Service struct {
	repo      RepositoryPort
	engine    *authz.Engine
	lifecycle *lifecycle.Manager[Category]
	validator *validate.Validator
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, engine *authz.Engine) *Service {
	s := &Service{repo: repo, engine: engine, validator: validate.New()}
	s.lifecycle = lifecycle.NewManager[Category](repo, engine, Category.Target,
		lifecycle.BeforeRestore(func(ctx context.Context, c Category) error {
			return s.ensureTitleFree(ctx, c.Title, c.ID)
		}))
	return s
}

// List returns live categories, or soft-deleted ones when f.Trashed is set.
func (s *Service) List(ctx context.Context, actor rbac.Actor, f shared.ListFilters) ([]Category, shared.Pagination, error) {
	verb := authz.VerbBrowse
	switch {
	case f.Trashed:
		verb = authz.VerbRestore
	case f.Search != "":
		verb = authz.VerbSearch
	}
	if err := s.engine.Check(actor, verb, authz.Class(authz.ResourceCategory)); err != nil {
		return nil, shared.Pagination{}, err
	}
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if items == nil {
		items = []Category{}
	}
	return items, shared.NewPagination(f.Page, f.PerPage, total), nil
}

// Get returns a live category with its jokes count.
func (s *Service) Get(ctx context.Context, actor rbac.Actor, id int64) (Category, error) {
	c, err := s.repo.Find(ctx, id, false)
	if err != nil {
		return Category{}, err
	}
	if err := s.engine.Check(actor, authz.VerbView, c.Target()); err != nil {
		return Category{}, err
	}
	n, err := s.repo.CountJokes(ctx, id)
	if err != nil {
		return Category{}, err
	}
	c.JokesCount = &n
	return c, nil
}

// Create adds a category.
func (s *Service) Create(ctx context.Context, actor rbac.Actor, in CreateInput) (Category, error) {
	if err := s.engine.Check(actor, authz.VerbCreate, authz.Class(authz.ResourceCategory)); err != nil {
		return Category{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := s.validator.Struct(in); err != nil {
		return Category{}, err
	}
	if err := s.ensureTitleFree(ctx, in.Title, 0); err != nil {
		return Category{}, err
	}
	return s.repo.Create(ctx, in)
}

// Update changes a live category.
func (s *Service) Update(ctx context.Context, actor rbac.Actor, id int64, in UpdateInput) (Category, error) {
	c, err := s.repo.Find(ctx, id, false)
	if err != nil {
		return Category{}, err
	}
	if err := s.engine.Check(actor, authz.VerbUpdate, c.Target()); err != nil {
		return Category{}, err
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		in.Title = &title
	}
	if err := s.validator.Struct(in); err != nil {
		return Category{}, err
	}
	if in.Title != nil {
		if err := s.ensureTitleFree(ctx, *in.Title, id); err != nil {
			return Category{}, err
		}
	}
	return s.repo.Update(ctx, id, in)
}

// Delete soft-deletes a category. Jokes in it stay but may become hidden.
func (s *Service) Delete(ctx context.Context, actor rbac.Actor, id int64) (Category, error) {
	return s.lifecycle.Delete(ctx, actor, id)
}

// Restore brings a soft-deleted category back. A live category with the same
// title blocks the restore.
func (s *Service) Restore(ctx context.Context, actor rbac.Actor, id int64) (Category, error) {
	return s.lifecycle.Restore(ctx, actor, id)
}

// ForceDelete permanently removes a category.
func (s *Service) ForceDelete(ctx context.Context, actor rbac.Actor, id int64) error {
	_, err := s.lifecycle.ForceDelete(ctx, actor, id)
	return err
}

func (s *Service) ensureTitleFree(ctx context.Context, title string, exceptID int64) error {
	taken, err := s.repo.TitleTaken(ctx, title, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return ErrTitleTaken
	}
	return nil
}
