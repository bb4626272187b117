package votes

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jokesdb/jokes-api/internal/authz"
	"github.com/jokesdb/jokes-api/internal/jokes"
	"github.com/jokesdb/jokes-api/internal/rbac"
	"github.com/jokesdb/jokes-api/internal/shared"
)

type memoryRepo struct {
	nextID int64
	rows   map[int64]*Vote
	users  map[int64]bool
}

func newMemoryRepo(users ...int64) *memoryRepo {
	m := &memoryRepo{rows: make(map[int64]*Vote), users: make(map[int64]bool)}
	for _, id := range users {
		m.users[id] = true
	}
	return m
}

func (m *memoryRepo) Upsert(ctx context.Context, userID, jokeID int64, rating int) (Vote, bool, error) {
	for _, v := range m.rows {
		if v.UserID == userID && v.JokeID == jokeID {
			v.Rating = rating
			v.UpdatedAt = time.Now()
			return *v, false, nil
		}
	}
	m.nextID++
	v := &Vote{ID: m.nextID, UserID: userID, JokeID: jokeID, Rating: rating, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.rows[v.ID] = v
	return *v, true, nil
}

func (m *memoryRepo) Find(ctx context.Context, id int64) (Vote, error) {
	v, ok := m.rows[id]
	if !ok {
		return Vote{}, shared.NotFound("Vote")
	}
	return *v, nil
}

func (m *memoryRepo) FindByUserAndJoke(ctx context.Context, userID, jokeID int64) (Vote, error) {
	for _, v := range m.rows {
		if v.UserID == userID && v.JokeID == jokeID {
			return *v, nil
		}
	}
	return Vote{}, shared.NotFound("Vote")
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return shared.NotFound("Vote")
	}
	delete(m.rows, id)
	return nil
}

func (m *memoryRepo) List(ctx context.Context, f shared.ListFilters, filter Filter) ([]Vote, int, error) {
	var out []Vote
	for _, v := range m.rows {
		if filter.UserID > 0 && v.UserID != filter.UserID {
			continue
		}
		if filter.JokeID > 0 && v.JokeID != filter.JokeID {
			continue
		}
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) ClearUser(ctx context.Context, userID int64) (int, error) {
	n := 0
	for id, v := range m.rows {
		if v.UserID == userID {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *memoryRepo) ClearAll(ctx context.Context) (int, error) {
	n := len(m.rows)
	m.rows = make(map[int64]*Vote)
	return n, nil
}

func (m *memoryRepo) UserExists(ctx context.Context, userID int64) (bool, error) {
	return m.users[userID], nil
}

type jokeStub map[int64]jokes.Joke

func (s jokeStub) Find(ctx context.Context, id int64) (jokes.Joke, error) {
	j, ok := s[id]
	if !ok {
		return jokes.Joke{}, shared.NotFound("Joke")
	}
	return j, nil
}

func visibleJoke(id, owner int64) jokes.Joke {
	return jokes.Joke{ID: id, UserID: owner, Categories: []jokes.CategoryRef{{ID: 1, Title: "Puns"}}}
}

func hiddenJoke(id, owner int64) jokes.Joke {
	now := time.Now()
	return jokes.Joke{ID: id, UserID: owner, Categories: []jokes.CategoryRef{{ID: 2, Title: "Gone", DeletedAt: &now}}}
}

func actor(id int64, role rbac.Role) rbac.Actor {
	return rbac.Actor{ID: id, Roles: []rbac.Role{role}, Status: rbac.StatusActive}
}

func newTestService(users ...int64) (*Service, *memoryRepo) {
	repo := newMemoryRepo(users...)
	finder := jokeStub{
		1: visibleJoke(1, 10),
		2: hiddenJoke(2, 10),
		3: visibleJoke(3, 11),
	}
	return NewService(repo, finder, authz.NewEngine(nil)), repo
}

func TestCastValidatesRatingBeforeAuthorization(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, _, err := svc.Cast(ctx, rbac.Actor{ID: 99}, 1, CastInput{Rating: 0})
	require.True(t, shared.IsKind(err, shared.KindValidation))

	_, _, err = svc.Cast(ctx, actor(7, rbac.RoleClient), 1, CastInput{Rating: 5})
	require.True(t, shared.IsKind(err, shared.KindValidation))

	_, _, err = svc.Cast(ctx, rbac.Actor{ID: 99}, 1, CastInput{Rating: 1})
	require.True(t, shared.IsKind(err, shared.KindForbidden))
}

func TestCastCreatesThenUpdatesSingleVote(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	client := actor(7, rbac.RoleClient)

	v, created, err := svc.Cast(ctx, client, 1, CastInput{Rating: 1})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, 1, v.Rating)

	v2, created, err := svc.Cast(ctx, client, 1, CastInput{Rating: -1})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, v.ID, v2.ID)
	require.Equal(t, -1, v2.Rating)
	require.Len(t, repo.rows, 1)
}

func TestCastOnHiddenJokeIsNotFound(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, _, err := svc.Cast(ctx, actor(10, rbac.RoleClient), 2, CastInput{Rating: 1})
	require.True(t, shared.IsKind(err, shared.KindNotFound))

	_, _, err = svc.Cast(ctx, actor(20, rbac.RoleStaff), 2, CastInput{Rating: 1})
	require.NoError(t, err)

	_, _, err = svc.Cast(ctx, actor(7, rbac.RoleClient), 404, CastInput{Rating: 1})
	require.True(t, shared.IsKind(err, shared.KindNotFound))
}

func TestRemoveVote(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	client := actor(7, rbac.RoleClient)
	other := actor(8, rbac.RoleClient)

	err := svc.Remove(ctx, client, 1, 0)
	require.True(t, shared.IsKind(err, shared.KindNotFound), "no vote yet")

	_, _, err = svc.Cast(ctx, client, 1, CastInput{Rating: 1})
	require.NoError(t, err)

	err = svc.Remove(ctx, other, 1, client.ID)
	require.True(t, shared.IsKind(err, shared.KindForbidden))

	require.NoError(t, svc.Remove(ctx, client, 1, 0))
	require.Empty(t, repo.rows)

	_, _, err = svc.Cast(ctx, client, 3, CastInput{Rating: -1})
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, actor(20, rbac.RoleStaff), 3, client.ID))
	require.Empty(t, repo.rows)
}

func TestDeleteVoteByID(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	client := actor(7, rbac.RoleClient)

	v, _, err := svc.Cast(ctx, client, 1, CastInput{Rating: 1})
	require.NoError(t, err)

	err = svc.Delete(ctx, actor(8, rbac.RoleClient), v.ID)
	require.True(t, shared.IsKind(err, shared.KindForbidden))
	require.NoError(t, svc.Delete(ctx, client, v.ID))

	err = svc.Delete(ctx, client, v.ID)
	require.True(t, shared.IsKind(err, shared.KindNotFound))
}

func TestListRequiresBrowsePermission(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	f := shared.ListFilters{Page: 1, PerPage: 15}

	_, _, err := svc.List(ctx, actor(7, rbac.RoleClient), f, Filter{})
	require.True(t, shared.IsKind(err, shared.KindForbidden))

	_, _, err = svc.Cast(ctx, actor(7, rbac.RoleClient), 1, CastInput{Rating: 1})
	require.NoError(t, err)
	_, _, err = svc.Cast(ctx, actor(8, rbac.RoleClient), 1, CastInput{Rating: -1})
	require.NoError(t, err)

	items, page, err := svc.List(ctx, actor(20, rbac.RoleStaff), f, Filter{UserID: 8})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 1, page.Total)
}

func TestClearUserVotes(t *testing.T) {
	svc, _ := newTestService(7, 8)
	ctx := context.Background()
	staff := actor(20, rbac.RoleStaff)

	for _, jokeID := range []int64{1, 3} {
		_, _, err := svc.Cast(ctx, actor(7, rbac.RoleClient), jokeID, CastInput{Rating: 1})
		require.NoError(t, err)
	}
	_, _, err := svc.Cast(ctx, actor(8, rbac.RoleClient), 1, CastInput{Rating: 1})
	require.NoError(t, err)

	_, err = svc.ClearUser(ctx, actor(8, rbac.RoleClient), 7)
	require.True(t, shared.IsKind(err, shared.KindForbidden))

	cleared, err := svc.ClearUser(ctx, staff, 7)
	require.NoError(t, err)
	require.Equal(t, 2, cleared.Count)

	_, page, err := svc.List(ctx, staff, shared.ListFilters{Page: 1, PerPage: 15}, Filter{UserID: 7})
	require.NoError(t, err)
	require.Zero(t, page.Total)

	_, err = svc.ClearUser(ctx, staff, 404)
	require.True(t, shared.IsKind(err, shared.KindNotFound))
}

func TestClearAllVotesNeedsAdmin(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, _, err := svc.Cast(ctx, actor(7, rbac.RoleClient), 1, CastInput{Rating: 1})
	require.NoError(t, err)

	_, err = svc.ClearAll(ctx, actor(20, rbac.RoleStaff))
	require.True(t, shared.IsKind(err, shared.KindForbidden))

	cleared, err := svc.ClearAll(ctx, actor(30, rbac.RoleAdmin))
	require.NoError(t, err)
	require.Equal(t, 1, cleared.Count)
	require.Empty(t, repo.rows)
}
