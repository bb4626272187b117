package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleLevels(t *testing.T) {
	cases := map[string]int{"client": 100, "user": 100, "staff": 500, "admin": 750, "superuser": 999, " Admin ": 750}
	for name, want := range cases {
		got, err := RoleLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := RoleLevel("moderator")
	require.ErrorIs(t, err, ErrUnknownRole)
}

func TestUserIsAliasOfClient(t *testing.T) {
	role, err := ParseRole("user")
	require.NoError(t, err)
	require.Equal(t, RoleClient, role)
}

func TestSeedGrants(t *testing.T) {
	client := []string{
		"categories.browse", "categories.read", "categories.search",
		"jokes.browse", "jokes.create", "jokes.delete", "jokes.read", "jokes.update",
		"votes.create", "votes.delete", "votes.update",
	}
	require.ElementsMatch(t, client, PermissionsFor(RoleClient))

	staffExtra := []string{
		"categories.create", "categories.update", "categories.delete", "categories.restore",
		"jokes.search", "votes.browse", "votes.clear-user",
		"users.browse", "users.read", "users.create", "users.update", "users.delete", "users.search", "users.change-status",
		"auth.logout-role", "auth.reset-password",
	}
	require.ElementsMatch(t, append(append([]string{}, client...), staffExtra...), PermissionsFor(RoleStaff))

	adminExtra := []string{"categories.force-delete", "votes.clear-all", "users.assign-roles"}
	require.ElementsMatch(t, append(append(append([]string{}, client...), staffExtra...), adminExtra...), PermissionsFor(RoleAdmin))

	require.Len(t, PermissionsFor(RoleSuperuser), len(AllPermissions()))
}

func TestStaffCannotForceDeleteCategories(t *testing.T) {
	require.True(t, RoleStaff.Grants(PermCategoriesRestore))
	require.False(t, RoleStaff.Grants(PermCategoriesForceDelete))
	require.True(t, RoleAdmin.Grants(PermCategoriesForceDelete))
}

func TestHasPermissionAndHasAnyRole(t *testing.T) {
	actor := Actor{ID: 1, Roles: []Role{RoleClient, RoleStaff}}
	require.True(t, HasPermission(actor, PermVotesBrowse))
	require.False(t, HasPermission(actor, PermVotesClearAll))
	require.False(t, HasPermission(Actor{ID: 2}, PermJokesBrowse))

	require.True(t, HasAnyRole(actor, RoleAdmin, RoleStaff))
	require.False(t, HasAnyRole(actor, RoleAdmin, RoleSuperuser))
	require.Equal(t, LevelStaff, actor.Level())
	require.Equal(t, RoleStaff, actor.TopRole())
}

func TestPermissionNamesAreScoped(t *testing.T) {
	for _, p := range AllPermissions() {
		assert.Regexp(t, `^[a-z]+\.[a-z-]+$`, p.Name)
		assert.NotEmpty(t, p.Description)
	}
}
