package rbac

import "sort"

// Permission names, scoped as <resource>.<action>.
const (
	PermCategoriesBrowse      = "categories.browse"
	PermCategoriesRead        = "categories.read"
	PermCategoriesCreate      = "categories.create"
	PermCategoriesUpdate      = "categories.update"
	PermCategoriesDelete      = "categories.delete"
	PermCategoriesSearch      = "categories.search"
	PermCategoriesRestore     = "categories.restore"
	PermCategoriesForceDelete = "categories.force-delete"

	PermJokesBrowse = "jokes.browse"
	PermJokesRead   = "jokes.read"
	PermJokesCreate = "jokes.create"
	PermJokesUpdate = "jokes.update"
	PermJokesDelete = "jokes.delete"
	PermJokesSearch = "jokes.search"

	PermVotesCreate    = "votes.create"
	PermVotesUpdate    = "votes.update"
	PermVotesDelete    = "votes.delete"
	PermVotesBrowse    = "votes.browse"
	PermVotesClearUser = "votes.clear-user"
	PermVotesClearAll  = "votes.clear-all"

	PermUsersBrowse       = "users.browse"
	PermUsersRead         = "users.read"
	PermUsersCreate       = "users.create"
	PermUsersUpdate       = "users.update"
	PermUsersDelete       = "users.delete"
	PermUsersSearch       = "users.search"
	PermUsersAssignRoles  = "users.assign-roles"
	PermUsersChangeStatus = "users.change-status"

	PermAuthLogoutRole    = "auth.logout-role"
	PermAuthResetPassword = "auth.reset-password"
)

// catalog is the full permission set with descriptions.
var catalog = map[string]string{
	PermCategoriesBrowse:      "Browse categories",
	PermCategoriesRead:        "Read a category",
	PermCategoriesCreate:      "Create categories",
	PermCategoriesUpdate:      "Update categories",
	PermCategoriesDelete:      "Delete categories",
	PermCategoriesSearch:      "Search categories",
	PermCategoriesRestore:     "Restore deleted categories",
	PermCategoriesForceDelete: "Permanently delete categories",

	PermJokesBrowse: "Browse jokes",
	PermJokesRead:   "Read a joke",
	PermJokesCreate: "Create jokes",
	PermJokesUpdate: "Update jokes",
	PermJokesDelete: "Delete jokes",
	PermJokesSearch: "Search jokes",

	PermVotesCreate:    "Vote on jokes",
	PermVotesUpdate:    "Change a vote",
	PermVotesDelete:    "Remove a vote",
	PermVotesBrowse:    "Browse votes",
	PermVotesClearUser: "Clear all votes of a user",
	PermVotesClearAll:  "Clear every vote",

	PermUsersBrowse:       "Browse users",
	PermUsersRead:         "Read a user",
	PermUsersCreate:       "Create users",
	PermUsersUpdate:       "Update users",
	PermUsersDelete:       "Delete users",
	PermUsersSearch:       "Search users",
	PermUsersAssignRoles:  "Assign roles to users",
	PermUsersChangeStatus: "Suspend, ban or reactivate users",

	PermAuthLogoutRole:    "Log out every user holding a role",
	PermAuthResetPassword: "Reset another user's password",
}

var clientGrants = []string{
	PermCategoriesBrowse, PermCategoriesRead, PermCategoriesSearch,
	PermJokesBrowse, PermJokesRead, PermJokesCreate, PermJokesUpdate, PermJokesDelete,
	PermVotesCreate, PermVotesUpdate, PermVotesDelete,
}

var staffGrants = []string{
	PermCategoriesCreate, PermCategoriesUpdate, PermCategoriesDelete, PermCategoriesSearch, PermCategoriesRestore,
	PermJokesSearch,
	PermVotesBrowse, PermVotesClearUser,
	PermUsersBrowse, PermUsersRead, PermUsersCreate, PermUsersUpdate, PermUsersDelete, PermUsersSearch, PermUsersChangeStatus,
	PermAuthLogoutRole, PermAuthResetPassword,
}

var adminGrants = []string{
	PermCategoriesForceDelete,
	PermVotesClearAll,
	PermUsersAssignRoles,
}

// grants maps each role to its permission set. It is built once at init and
// never mutated afterwards.
var grants = buildGrants()

func buildGrants() map[Role]map[string]struct{} {
	set := func(groups ...[]string) map[string]struct{} {
		out := make(map[string]struct{})
		for _, g := range groups {
			for _, p := range g {
				out[p] = struct{}{}
			}
		}
		return out
	}
	all := make([]string, 0, len(catalog))
	for p := range catalog {
		all = append(all, p)
	}
	return map[Role]map[string]struct{}{
		RoleClient:    set(clientGrants),
		RoleStaff:     set(clientGrants, staffGrants),
		RoleAdmin:     set(clientGrants, staffGrants, adminGrants),
		RoleSuperuser: set(all),
	}
}

// Grants reports whether role r is granted perm.
func (r Role) Grants(perm string) bool {
	_, ok := grants[r][perm]
	return ok
}

// PermissionsFor returns the sorted permission names granted to role.
func PermissionsFor(role Role) []string {
	perms := make([]string, 0, len(grants[role]))
	for p := range grants[role] {
		perms = append(perms, p)
	}
	sort.Strings(perms)
	return perms
}

// AllPermissions returns the sorted permission catalog.
func AllPermissions() []Permission {
	perms := make([]Permission, 0, len(catalog))
	for name, desc := range catalog {
		perms = append(perms, Permission{Name: name, Description: desc})
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Name < perms[j].Name })
	return perms
}

// KnownPermission reports whether perm is part of the catalog.
func KnownPermission(perm string) bool {
	_, ok := catalog[perm]
	return ok
}

// HasPermission reports whether any role held by actor grants perm.
func HasPermission(actor Actor, perm string) bool {
	for _, r := range actor.Roles {
		if r.Grants(perm) {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether actor holds at least one of roles.
func HasAnyRole(actor Actor, roles ...Role) bool {
	for _, held := range actor.Roles {
		for _, want := range roles {
			if held == want {
				return true
			}
		}
	}
	return false
}

// Permission is an atomic capability.
type Permission struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
