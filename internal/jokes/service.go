package jokes

import (
	"context"
	"fmt"
	"strings"

	"github.com/jokesdb/jokes-api/internal/authz"
	"github.com/jokesdb/jokes-api/internal/lifecycle"
	"github.com/jokesdb/jokes-api/internal/platform/validate"
	"github.com/jokesdb/jokes-api/internal/rbac"
	"github.com/jokesdb/jokes-api/internal/shared"
)

// RepositoryPort defines data access methods for jokes.
type RepositoryPort interface {
	lifecycle.Store[Joke]
	List(ctx context.Context, f shared.ListFilters, q ListQuery) ([]Joke, int, error)
	Random(ctx context.Context) (Joke, error)
	Create(ctx context.Context, userID int64, in CreateInput) (Joke, error)
	Update(ctx context.Context, id int64, in UpdateInput) (Joke, error)
	MissingCategories(ctx context.Context, ids []int64) ([]int64, error)
}

// Service handles joke business logic.
type Service struct {
	repo      RepositoryPort
	engine    *authz.Engine
	lifecycle *lifecycle.Manager[Joke]
	validator *validate.Validator
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, engine *authz.Engine) *Service {
	return &Service{
		repo:      repo,
		engine:    engine,
		lifecycle: lifecycle.NewManager[Joke](repo, engine, Joke.Target),
		validator: validate.New(),
	}
}

// List returns the jokes the actor may see. Regular actors never receive
// jokes without a live category.
func (s *Service) List(ctx context.Context, actor rbac.Actor, f shared.ListFilters, categoryID int64) ([]Joke, shared.Pagination, error) {
	verb := authz.VerbBrowse
	switch {
	case f.Trashed:
		verb = authz.VerbRestore
	case f.Search != "":
		verb = authz.VerbSearch
	}
	if err := s.engine.Check(actor, verb, authz.Class(authz.ResourceJoke)); err != nil {
		return nil, shared.Pagination{}, err
	}
	elevated := authz.SeesEverything(actor)
	items, total, err := s.repo.List(ctx, f, ListQuery{VisibleOnly: !elevated, CategoryID: categoryID})
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	out := make([]Joke, 0, len(items))
	for _, j := range items {
		out = append(out, present(actor, j))
	}
	return out, shared.NewPagination(f.Page, f.PerPage, total), nil
}

// Random returns a random visible joke. It needs no actor.
func (s *Service) Random(ctx context.Context) (Joke, error) {
	j, err := s.repo.Random(ctx)
	if err != nil {
		return Joke{}, err
	}
	return j.withoutTrashedCategories(), nil
}

// Get returns a live joke; hidden jokes are reported as not found.
func (s *Service) Get(ctx context.Context, actor rbac.Actor, id int64) (Joke, error) {
	j, err := s.repo.Find(ctx, id, false)
	if err != nil {
		return Joke{}, err
	}
	if err := s.engine.Check(actor, authz.VerbView, j.Target()); err != nil {
		return Joke{}, err
	}
	return present(actor, j), nil
}

// Find loads a live joke without authorization, for collaborators that
// apply their own checks.
func (s *Service) Find(ctx context.Context, id int64) (Joke, error) {
	return s.repo.Find(ctx, id, false)
}

// Create adds a joke owned by the actor.
func (s *Service) Create(ctx context.Context, actor rbac.Actor, in CreateInput) (Joke, error) {
	if err := s.engine.Check(actor, authz.VerbCreate, authz.Class(authz.ResourceJoke)); err != nil {
		return Joke{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := s.validator.Struct(in); err != nil {
		return Joke{}, err
	}
	if err := s.checkCategories(ctx, in.CategoryIDs); err != nil {
		return Joke{}, err
	}
	j, err := s.repo.Create(ctx, actor.ID, in)
	if err != nil {
		return Joke{}, err
	}
	return present(actor, j), nil
}

// Update changes a live joke. Owners may edit their own jokes; staff and
// above may edit any.
func (s *Service) Update(ctx context.Context, actor rbac.Actor, id int64, in UpdateInput) (Joke, error) {
	j, err := s.repo.Find(ctx, id, false)
	if err != nil {
		return Joke{}, err
	}
	if err := s.engine.Check(actor, authz.VerbUpdate, j.Target()); err != nil {
		return Joke{}, err
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		in.Title = &title
	}
	if err := s.validator.Struct(in); err != nil {
		return Joke{}, err
	}
	if in.CategoryIDs != nil {
		if err := s.checkCategories(ctx, *in.CategoryIDs); err != nil {
			return Joke{}, err
		}
	}
	updated, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return Joke{}, err
	}
	return present(actor, updated), nil
}

// Delete soft-deletes a joke.
func (s *Service) Delete(ctx context.Context, actor rbac.Actor, id int64) error {
	_, err := s.lifecycle.Delete(ctx, actor, id)
	return err
}

// Restore brings a soft-deleted joke back.
func (s *Service) Restore(ctx context.Context, actor rbac.Actor, id int64) (Joke, error) {
	j, err := s.lifecycle.Restore(ctx, actor, id)
	if err != nil {
		return Joke{}, err
	}
	return present(actor, j), nil
}

// ForceDelete permanently removes a joke and its votes.
func (s *Service) ForceDelete(ctx context.Context, actor rbac.Actor, id int64) error {
	_, err := s.lifecycle.ForceDelete(ctx, actor, id)
	return err
}

func (s *Service) checkCategories(ctx context.Context, ids []int64) error {
	missing, err := s.repo.MissingCategories(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return shared.FieldError("category_ids", fmt.Sprintf("The selected category_ids are invalid: %v.", missing))
	}
	return nil
}

// present hides soft-deleted categories from actors below staff.
func present(actor rbac.Actor, j Joke) Joke {
	if authz.SeesEverything(actor) {
		return j
	}
	return j.withoutTrashedCategories()
}
