package votes

import (
	"context"

	"github.com/jokesdb/jokes-api/internal/authz"
	"github.com/jokesdb/jokes-api/internal/jokes"
	"github.com/jokesdb/jokes-api/internal/platform/validate"
	"github.com/jokesdb/jokes-api/internal/rbac"
	"github.com/jokesdb/jokes-api/internal/shared"
)

// RepositoryPort defines data access methods for votes.
type RepositoryPort interface {
	Upsert(ctx context.Context, userID, jokeID int64, rating int) (Vote, bool, error)
	Find(ctx context.Context, id int64) (Vote, error)
	FindByUserAndJoke(ctx context.Context, userID, jokeID int64) (Vote, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f shared.ListFilters, filter Filter) ([]Vote, int, error)
	ClearUser(ctx context.Context, userID int64) (int, error)
	ClearAll(ctx context.Context) (int, error)
	UserExists(ctx context.Context, userID int64) (bool, error)
}

// JokeFinder loads live jokes without applying authorization.
type JokeFinder interface {
	Find(ctx context.Context, id int64) (jokes.Joke, error)
}

// Service handles vote business logic.
type Service struct {
	repo      RepositoryPort
	jokes     JokeFinder
	engine    *authz.Engine
	validator *validate.Validator
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, jokes JokeFinder, engine *authz.Engine) *Service {
	return &Service{repo: repo, jokes: jokes, engine: engine, validator: validate.New()}
}

// Cast records the actor's rating of a joke, replacing any earlier rating.
// created reports whether this is the actor's first vote on the joke.
func (s *Service) Cast(ctx context.Context, actor rbac.Actor, jokeID int64, in CastInput) (Vote, bool, error) {
	if err := s.validator.Struct(in); err != nil {
		return Vote{}, false, err
	}
	joke, err := s.jokes.Find(ctx, jokeID)
	if err != nil {
		return Vote{}, false, err
	}
	if err := s.engine.VoteOnJoke(actor, joke.Target()).Err(); err != nil {
		return Vote{}, false, err
	}
	existing, err := s.repo.FindByUserAndJoke(ctx, actor.ID, jokeID)
	switch {
	case err == nil:
		if err := s.engine.Check(actor, authz.VerbUpdate, existing.Target()); err != nil {
			return Vote{}, false, err
		}
	case !shared.IsKind(err, shared.KindNotFound):
		return Vote{}, false, err
	}
	return s.repo.Upsert(ctx, actor.ID, jokeID, in.Rating)
}

// Remove deletes the vote userID placed on a joke. A zero userID means the
// actor's own vote.
func (s *Service) Remove(ctx context.Context, actor rbac.Actor, jokeID, userID int64) error {
	if userID == 0 {
		userID = actor.ID
	}
	joke, err := s.jokes.Find(ctx, jokeID)
	if err != nil {
		return err
	}
	var target *authz.Target
	vote, err := s.repo.FindByUserAndJoke(ctx, userID, jokeID)
	switch {
	case err == nil:
		t := vote.Target()
		target = &t
	case !shared.IsKind(err, shared.KindNotFound):
		return err
	}
	if err := s.engine.RemoveVoteFromJoke(actor, joke.Target(), target).Err(); err != nil {
		return err
	}
	return s.repo.Delete(ctx, vote.ID)
}

// Delete removes a vote by id.
func (s *Service) Delete(ctx context.Context, actor rbac.Actor, id int64) error {
	vote, err := s.repo.Find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.engine.Check(actor, authz.VerbDelete, vote.Target()); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// List returns a page of votes.
func (s *Service) List(ctx context.Context, actor rbac.Actor, f shared.ListFilters, filter Filter) ([]Vote, shared.Pagination, error) {
	if err := s.engine.Check(actor, authz.VerbBrowse, authz.Class(authz.ResourceVote)); err != nil {
		return nil, shared.Pagination{}, err
	}
	items, total, err := s.repo.List(ctx, f, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(f.Page, f.PerPage, total), nil
}

// ClearUser removes every vote placed by userID.
func (s *Service) ClearUser(ctx context.Context, actor rbac.Actor, userID int64) (Cleared, error) {
	if err := s.engine.Check(actor, authz.VerbClearUserVotes, authz.UserTarget(userID, nil, false)); err != nil {
		return Cleared{}, err
	}
	ok, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return Cleared{}, err
	}
	if !ok {
		return Cleared{}, shared.NotFound("User")
	}
	n, err := s.repo.ClearUser(ctx, userID)
	if err != nil {
		return Cleared{}, err
	}
	return Cleared{Count: n}, nil
}

// ClearAll removes every vote in the system.
func (s *Service) ClearAll(ctx context.Context, actor rbac.Actor) (Cleared, error) {
	if err := s.engine.Check(actor, authz.VerbClearAllVotes, authz.Class(authz.ResourceVote)); err != nil {
		return Cleared{}, err
	}
	n, err := s.repo.ClearAll(ctx)
	if err != nil {
		return Cleared{}, err
	}
	return Cleared{Count: n}, nil
}
