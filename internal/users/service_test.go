package users

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jokesdb/jokes-api/internal/authz"
	"github.com/jokesdb/jokes-api/internal/rbac"
	"github.com/jokesdb/jokes-api/internal/shared"
)

type memoryRepo struct {
	nextID int64
	rows   map[int64]*User
	hashes map[int64]string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[int64]*User), hashes: make(map[int64]string)}
}

func (m *memoryRepo) seed(email string, roles ...rbac.Role) User {
	m.nextID++
	u := &User{ID: m.nextID, Name: email, Email: email, Status: rbac.StatusActive, Roles: roles, CreatedAt: time.Now()}
	m.rows[u.ID] = u
	return *u
}

func (m *memoryRepo) emailTaken(email string, except int64) bool {
	for id, u := range m.rows {
		if id != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (m *memoryRepo) Find(ctx context.Context, id int64, withTrashed bool) (User, error) {
	u, ok := m.rows[id]
	if !ok || (u.Trashed() && !withTrashed) {
		return User{}, shared.NotFound("User")
	}
	return *u, nil
}

func (m *memoryRepo) SoftDelete(ctx context.Context, id int64) error {
	now := time.Now()
	m.rows[id].DeletedAt = &now
	return nil
}

func (m *memoryRepo) Restore(ctx context.Context, id int64) error {
	m.rows[id].DeletedAt = nil
	return nil
}

func (m *memoryRepo) ForceDelete(ctx context.Context, id int64) error {
	delete(m.rows, id)
	return nil
}

func (m *memoryRepo) List(ctx context.Context, f shared.ListFilters) ([]User, int, error) {
	var out []User
	for _, u := range m.rows {
		if u.Trashed() != f.Trashed {
			continue
		}
		if f.Search != "" && !strings.Contains(u.Email, f.Search) {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) Create(ctx context.Context, name, email, passwordHash string, status rbac.Status, roles []rbac.Role) (User, error) {
	if m.emailTaken(email, 0) {
		return User{}, ErrEmailTaken
	}
	m.nextID++
	u := &User{ID: m.nextID, Name: name, Email: email, Status: status, Roles: roles, CreatedAt: time.Now()}
	m.rows[u.ID] = u
	m.hashes[u.ID] = passwordHash
	return *u, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, c Changes) (User, error) {
	u := m.rows[id]
	if c.Email != nil {
		if m.emailTaken(*c.Email, id) {
			return User{}, ErrEmailTaken
		}
		u.Email = *c.Email
	}
	if c.Name != nil {
		u.Name = *c.Name
	}
	if c.PasswordHash != nil {
		m.hashes[id] = *c.PasswordHash
	}
	return *u, nil
}

func (m *memoryRepo) SetStatus(ctx context.Context, id int64, status rbac.Status) (User, error) {
	m.rows[id].Status = status
	return *m.rows[id], nil
}

func (m *memoryRepo) SetRoles(ctx context.Context, id int64, roles []rbac.Role) (User, error) {
	m.rows[id].Roles = roles
	return *m.rows[id], nil
}

type recordingRevoker struct {
	revoked []int64
}

func (r *recordingRevoker) RevokeAll(ctx context.Context, userID int64) error {
	r.revoked = append(r.revoked, userID)
	return nil
}

type recordingAudit struct {
	logs []shared.AuditLog
	err  error
}

func (r *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	r.logs = append(r.logs, log)
	return r.err
}

type fixture struct {
	svc     *Service
	repo    *memoryRepo
	revoker *recordingRevoker

	client, other, staff, admin, super User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMemoryRepo()
	revoker := &recordingRevoker{}
	f := &fixture{
		svc:     NewService(repo, authz.NewEngine(nil), revoker, nil, bcrypt.MinCost),
		repo:    repo,
		revoker: revoker,
	}
	f.client = repo.seed("client@example.com", rbac.RoleClient)
	f.other = repo.seed("other@example.com", rbac.RoleClient)
	f.staff = repo.seed("staff@example.com", rbac.RoleStaff)
	f.admin = repo.seed("admin@example.com", rbac.RoleAdmin)
	f.super = repo.seed("super@example.com", rbac.RoleSuperuser)
	return f
}

func as(u User) rbac.Actor {
	return rbac.Actor{ID: u.ID, Roles: u.Roles, Status: u.Status}
}

func TestCreateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := CreateInput{Name: " New ", Email: "NEW@example.com", Password: "secret123"}

	_, err := f.svc.Create(ctx, as(f.client), in)
	require.True(t, shared.IsKind(err, shared.KindForbidden))

	u, err := f.svc.Create(ctx, as(f.staff), in)
	require.NoError(t, err)
	require.Equal(t, "new@example.com", u.Email)
	require.Equal(t, "New", u.Name)
	require.Equal(t, []rbac.Role{rbac.RoleClient}, u.Roles)
	require.Equal(t, rbac.StatusActive, u.Status)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(f.repo.hashes[u.ID]), []byte("secret123")))

	_, err = f.svc.Create(ctx, as(f.staff), in)
	require.ErrorIs(t, err, ErrEmailTaken)
	require.True(t, shared.IsKind(err, shared.KindConflict))
}

func TestCreateUserWithRolesIsBoundedByActorLevel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	withRoles := func(email string, roles ...string) CreateInput {
		return CreateInput{Name: "x", Email: email, Password: "secret123", Roles: roles}
	}

	_, err := f.svc.Create(ctx, as(f.staff), withRoles("a@example.com", "staff"))
	require.True(t, shared.IsKind(err, shared.KindForbidden))

	u, err := f.svc.Create(ctx, as(f.admin), withRoles("b@example.com", "staff"))
	require.NoError(t, err)
	require.Equal(t, []rbac.Role{rbac.RoleStaff}, u.Roles)

	_, err = f.svc.Create(ctx, as(f.admin), withRoles("c@example.com", "admin"))
	require.True(t, shared.IsKind(err, shared.KindForbidden))

	_, err = f.svc.Create(ctx, as(f.super), withRoles("d@example.com", "superuser"))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, as(f.super), withRoles("e@example.com", "wizard"))
	require.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestGetUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, as(f.client), f.client.ID)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, as(f.client), f.other.ID)
	require.True(t, shared.IsKind(err, shared.KindForbidden))
	_, err = f.svc.Get(ctx, as(f.staff), f.admin.ID)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, as(f.staff), 404)
	require.True(t, shared.IsKind(err, shared.KindNotFound))
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	name := "Renamed"

	u, err := f.svc.Update(ctx, as(f.client), f.client.ID, UpdateInput{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Renamed", u.Name)
	require.Empty(t, f.revoker.revoked)

	_, err = f.svc.Update(ctx, as(f.client), f.other.ID, UpdateInput{Name: &name})
	require.True(t, shared.IsKind(err, shared.KindForbidden))

	_, err = f.svc.Update(ctx, as(f.staff), f.admin.ID, UpdateInput{Name: &name})
	require.True(t, shared.IsKind(err, shared.KindForbidden), "staff cannot manage a higher level")

	taken := f.other.Email
	_, err = f.svc.Update(ctx, as(f.staff), f.client.ID, UpdateInput{Email: &taken})
	require.True(t, shared.IsKind(err, shared.KindConflict))

	password := "another-secret"
	_, err = f.svc.Update(ctx, as(f.staff), f.client.ID, UpdateInput{Password: &password})
	require.NoError(t, err)
	require.Equal(t, []int64{f.client.ID}, f.revoker.revoked)
}

func TestChangeStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ChangeStatus(ctx, as(f.staff), f.client.ID, StatusInput{Status: "frozen"})
	require.True(t, shared.IsKind(err, shared.KindValidation))

	_, err = f.svc.ChangeStatus(ctx, as(f.staff), f.staff.ID, StatusInput{Status: "suspended"})
	require.True(t, shared.IsKind(err, shared.KindForbidden))

	_, err = f.svc.ChangeStatus(ctx, as(f.client), f.other.ID, StatusInput{Status: "banned"})
	require.True(t, shared.IsKind(err, shared.KindForbidden))

	u, err := f.svc.ChangeStatus(ctx, as(f.staff), f.client.ID, StatusInput{Status: "suspended"})
	require.NoError(t, err)
	require.Equal(t, rbac.StatusSuspended, u.Status)
	require.Equal(t, []int64{f.client.ID}, f.revoker.revoked)

	u, err = f.svc.ChangeStatus(ctx, as(f.staff), f.client.ID, StatusInput{Status: "active"})
	require.NoError(t, err)
	require.Equal(t, rbac.StatusActive, u.Status)
	require.Len(t, f.revoker.revoked, 1)
}

func TestAssignRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AssignRoles(ctx, as(f.staff), f.client.ID, RolesInput{Roles: []string{"client"}})
	require.True(t, shared.IsKind(err, shared.KindForbidden))

	u, err := f.svc.AssignRoles(ctx, as(f.admin), f.client.ID, RolesInput{Roles: []string{"staff"}})
	require.NoError(t, err)
	require.Equal(t, []rbac.Role{rbac.RoleStaff}, u.Roles)

	_, err = f.svc.AssignRoles(ctx, as(f.admin), f.other.ID, RolesInput{Roles: []string{"admin"}})
	require.True(t, shared.IsKind(err, shared.KindForbidden))

	_, err = f.svc.AssignRoles(ctx, as(f.admin), f.admin.ID, RolesInput{Roles: []string{"client"}})
	require.True(t, shared.IsKind(err, shared.KindForbidden))

	u, err = f.svc.AssignRoles(ctx, as(f.super), f.other.ID, RolesInput{Roles: []string{"admin"}})
	require.NoError(t, err)
	require.Equal(t, []rbac.Role{rbac.RoleAdmin}, u.Roles)

	_, err = f.svc.AssignRoles(ctx, as(f.super), f.other.ID, RolesInput{})
	require.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestUserLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	page := shared.ListFilters{Page: 1, PerPage: 15}

	err := f.svc.Delete(ctx, as(f.staff), f.staff.ID)
	require.True(t, shared.IsKind(err, shared.KindForbidden), "self delete goes through the profile")

	err = f.svc.Delete(ctx, as(f.staff), f.admin.ID)
	require.True(t, shared.IsKind(err, shared.KindForbidden))

	require.NoError(t, f.svc.Delete(ctx, as(f.staff), f.client.ID))
	require.Equal(t, []int64{f.client.ID}, f.revoker.revoked)

	_, err = f.svc.Get(ctx, as(f.staff), f.client.ID)
	require.True(t, shared.IsKind(err, shared.KindNotFound))

	trashedPage := page
	trashedPage.Trashed = true
	_, _, err = f.svc.List(ctx, as(f.client), trashedPage)
	require.True(t, shared.IsKind(err, shared.KindForbidden))
	items, _, err := f.svc.List(ctx, as(f.staff), trashedPage)
	require.NoError(t, err)
	require.Len(t, items, 1)

	restored, err := f.svc.Restore(ctx, as(f.staff), f.client.ID)
	require.NoError(t, err)
	require.False(t, restored.Trashed())

	_, err = f.svc.Restore(ctx, as(f.staff), f.client.ID)
	require.True(t, shared.IsKind(err, shared.KindConflict))

	err = f.svc.ForceDelete(ctx, as(f.staff), f.client.ID)
	require.True(t, shared.IsKind(err, shared.KindForbidden))

	require.NoError(t, f.svc.ForceDelete(ctx, as(f.admin), f.client.ID))
	require.NotContains(t, f.repo.rows, f.client.ID)
	require.Equal(t, []int64{f.client.ID, f.client.ID}, f.revoker.revoked)
}

func TestListAndSearchUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	page := shared.ListFilters{Page: 1, PerPage: 15}

	_, _, err := f.svc.List(ctx, as(f.client), page)
	require.True(t, shared.IsKind(err, shared.KindForbidden))

	items, meta, err := f.svc.List(ctx, as(f.staff), page)
	require.NoError(t, err)
	require.Len(t, items, 5)
	require.Equal(t, 5, meta.Total)

	page.Search = "admin"
	items, _, err = f.svc.List(ctx, as(f.staff), page)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, f.admin.ID, items[0].ID)
}

func TestPrivilegedChangesAreAudited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	audit := &recordingAudit{}
	f.svc.WithAudit(audit)

	_, err := f.svc.ChangeStatus(ctx, as(f.staff), f.client.ID, StatusInput{Status: "banned"})
	require.NoError(t, err)
	_, err = f.svc.AssignRoles(ctx, as(f.admin), f.other.ID, RolesInput{Roles: []string{"staff"}})
	require.NoError(t, err)
	require.NoError(t, f.svc.ForceDelete(ctx, as(f.admin), f.client.ID))

	_, err = f.svc.AssignRoles(ctx, as(f.staff), f.other.ID, RolesInput{Roles: []string{"client"}})
	require.Error(t, err)

	require.Len(t, audit.logs, 3)
	require.Equal(t, "status.changed", audit.logs[0].Action)
	require.Equal(t, f.staff.ID, audit.logs[0].ActorID)
	require.Equal(t, "banned", audit.logs[0].Meta["to"])
	require.Equal(t, "roles.assigned", audit.logs[1].Action)
	require.Equal(t, f.other.ID, audit.logs[1].EntityID)
	require.Equal(t, "force-deleted", audit.logs[2].Action)
	require.Equal(t, "user", audit.logs[2].Entity)

	audit.err = errors.New("audit table unavailable")
	_, err = f.svc.ChangeStatus(ctx, as(f.staff), f.other.ID, StatusInput{Status: "suspended"})
	require.Error(t, err, "staff cannot manage another staff member")
	_, err = f.svc.ChangeStatus(ctx, as(f.admin), f.other.ID, StatusInput{Status: "suspended"})
	require.NoError(t, err)
}
