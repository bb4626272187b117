package authz

import "github.com/jokesdb/jokes-api/internal/rbac"

type rule func(actor rbac.Actor, v Verb, t Target) Decision

// policies is the permission matrix: resource -> verb -> rule. A missing
// entry denies.
var policies = map[Resource]map[Verb]rule{
	ResourceJoke: {
		VerbBrowse:      permitted(rbac.PermJokesBrowse),
		VerbView:        permitted(rbac.PermJokesRead),
		VerbSearch:      permitted(rbac.PermJokesSearch),
		VerbCreate:      permitted(rbac.PermJokesCreate),
		VerbUpdate:      ownerOrStaff(rbac.PermJokesUpdate),
		VerbDelete:      ownerOrStaff(rbac.PermJokesDelete),
		VerbRestore:     atLeast(rbac.RoleStaff),
		VerbForceDelete: atLeast(rbac.RoleAdmin),
		VerbVote:        permitted(rbac.PermVotesCreate),
	},
	ResourceCategory: {
		VerbBrowse:      permitted(rbac.PermCategoriesBrowse),
		VerbView:        permitted(rbac.PermCategoriesRead),
		VerbSearch:      permitted(rbac.PermCategoriesSearch),
		VerbCreate:      permitted(rbac.PermCategoriesCreate),
		VerbUpdate:      permitted(rbac.PermCategoriesUpdate),
		VerbDelete:      permitted(rbac.PermCategoriesDelete),
		VerbRestore:     permitted(rbac.PermCategoriesRestore),
		VerbForceDelete: permitted(rbac.PermCategoriesForceDelete),
	},
	ResourceVote: {
		VerbBrowse:        permitted(rbac.PermVotesBrowse),
		VerbCreate:        permitted(rbac.PermVotesCreate),
		VerbUpdate:        ownerOnly(rbac.PermVotesUpdate),
		VerbDelete:        ownerOrStaff(rbac.PermVotesDelete),
		VerbClearAllVotes: permitted(rbac.PermVotesClearAll),
	},
	ResourceUser: {
		VerbBrowse:         permitted(rbac.PermUsersBrowse),
		VerbSearch:         permitted(rbac.PermUsersSearch),
		VerbCreate:         permitted(rbac.PermUsersCreate),
		VerbView:           selfOr(permitted(rbac.PermUsersRead)),
		VerbUpdate:         selfOr(manages(rbac.PermUsersUpdate)),
		VerbDelete:         notSelf(manages(rbac.PermUsersDelete)),
		VerbRestore:        notSelf(managesAtLeast(rbac.RoleStaff)),
		VerbForceDelete:    notSelf(managesAtLeast(rbac.RoleAdmin)),
		VerbChangeStatus:   notSelf(manages(rbac.PermUsersChangeStatus)),
		VerbAssignRoles:    notSelf(manages(rbac.PermUsersAssignRoles)),
		VerbResetPassword:  notSelf(manages(rbac.PermAuthResetPassword)),
		VerbClearUserVotes: permitted(rbac.PermVotesClearUser),
	},
	ResourceAuth: {
		VerbLogoutRole: permitted(rbac.PermAuthLogoutRole),
	},
}

// permitted gates purely on a named permission.
func permitted(perm string) rule {
	return func(a rbac.Actor, v Verb, t Target) Decision {
		if rbac.HasPermission(a, perm) {
			return allow(t)
		}
		return deny(v, t)
	}
}

// atLeast gates on role level alone.
func atLeast(role rbac.Role) rule {
	return func(a rbac.Actor, v Verb, t Target) Decision {
		if a.AtLeast(role) {
			return allow(t)
		}
		return deny(v, t)
	}
}

// ownerOrStaff lets staff and above act on any row and everyone else only on
// rows they own.
func ownerOrStaff(perm string) rule {
	return func(a rbac.Actor, v Verb, t Target) Decision {
		if a.AtLeast(rbac.RoleStaff) {
			return allow(t)
		}
		if rbac.HasPermission(a, perm) && IsOwner(a, t) {
			return allow(t)
		}
		return deny(v, t)
	}
}

func ownerOnly(perm string) rule {
	return func(a rbac.Actor, v Verb, t Target) Decision {
		if rbac.HasPermission(a, perm) && IsOwner(a, t) {
			return allow(t)
		}
		return deny(v, t)
	}
}

// manages requires perm and a target account strictly below the actor.
func manages(perm string) rule {
	return func(a rbac.Actor, v Verb, t Target) Decision {
		if rbac.HasPermission(a, perm) && outranks(a, t) {
			return allow(t)
		}
		return deny(v, t)
	}
}

func managesAtLeast(role rbac.Role) rule {
	return func(a rbac.Actor, v Verb, t Target) Decision {
		if a.AtLeast(role) && outranks(a, t) {
			return allow(t)
		}
		return deny(v, t)
	}
}

func selfOr(next rule) rule {
	return func(a rbac.Actor, v Verb, t Target) Decision {
		if IsOwner(a, t) {
			return allow(t)
		}
		return next(a, v, t)
	}
}

// notSelf refuses administrative actions on the actor's own account.
func notSelf(next rule) rule {
	return func(a rbac.Actor, v Verb, t Target) Decision {
		if !t.IsClass() && t.ID == a.ID {
			return denyWith(t, "You cannot "+v.phrase()+" your own account")
		}
		return next(a, v, t)
	}
}
