package authz

import (
	"fmt"

	"github.com/jokesdb/jokes-api/internal/rbac"
)

// Recorder observes every decision the engine makes.
type Recorder interface {
	RecordDecision(resource, verb, effect string)
}

// Engine evaluates the policy table. It holds no per-request state.
type Engine struct {
	recorder Recorder
}

// NewEngine builds an Engine. recorder may be nil.
func NewEngine(recorder Recorder) *Engine {
	return &Engine{recorder: recorder}
}

// Authorize decides whether actor may perform v on t. Viewing or voting on a
// joke hidden from the actor yields EffectNotFound.
func (e *Engine) Authorize(actor rbac.Actor, v Verb, t Target) Decision {
	d := e.decide(actor, v, t)
	e.record(t.Resource, v, d)
	return d
}

// Check is Authorize converted to an error.
func (e *Engine) Check(actor rbac.Actor, v Verb, t Target) error {
	return e.Authorize(actor, v, t).Err()
}

// VoteOnJoke decides whether actor may vote on joke.
func (e *Engine) VoteOnJoke(actor rbac.Actor, joke Target) Decision {
	return e.Authorize(actor, VerbVote, joke)
}

// RemoveVoteFromJoke decides whether actor may remove vote from joke. vote is
// nil when no matching vote exists.
func (e *Engine) RemoveVoteFromJoke(actor rbac.Actor, joke Target, vote *Target) Decision {
	if !IsVisible(actor, joke) {
		d := notFound(joke)
		e.record(ResourceVote, VerbDelete, d)
		return d
	}
	if vote == nil {
		d := notFound(Class(ResourceVote))
		e.record(ResourceVote, VerbDelete, d)
		return d
	}
	return e.Authorize(actor, VerbDelete, *vote)
}

// AssignRoles decides whether actor may give target exactly roles. Besides
// the assign-roles rule every granted role must sit below the actor's own
// level unless the actor is a superuser.
func (e *Engine) AssignRoles(actor rbac.Actor, target Target, roles []rbac.Role) Decision {
	d := e.decide(actor, VerbAssignRoles, target)
	if d.Allowed() && actor.Level() < rbac.LevelSuperuser {
		for _, r := range roles {
			if r.Level() >= actor.Level() {
				d = denyWith(target, fmt.Sprintf("Unauthorized to assign the %s role", r))
				break
			}
		}
	}
	e.record(target.Resource, VerbAssignRoles, d)
	return d
}

// LogoutRole decides whether actor may revoke the tokens of every holder of role.
func (e *Engine) LogoutRole(actor rbac.Actor, role rbac.Role) Decision {
	t := Class(ResourceAuth)
	d := e.decide(actor, VerbLogoutRole, t)
	if d.Allowed() && actor.Level() < rbac.LevelSuperuser && role.Level() >= actor.Level() {
		d = denyWith(t, fmt.Sprintf("Unauthorized to log out the %s role", role))
	}
	e.record(t.Resource, VerbLogoutRole, d)
	return d
}

func (e *Engine) decide(actor rbac.Actor, v Verb, t Target) Decision {
	if filtered(v) && !IsVisible(actor, t) {
		return notFound(t)
	}
	verbs, ok := policies[t.Resource]
	if !ok {
		return deny(v, t)
	}
	r, ok := verbs[v]
	if !ok {
		return deny(v, t)
	}
	return r(actor, v, t)
}

// filtered reports whether v reads a joke and so honours the visibility filter.
// Writes fall through to the ownership rules.
func filtered(v Verb) bool {
	return v == VerbView || v == VerbVote
}

func (e *Engine) record(resource Resource, v Verb, d Decision) {
	if e == nil || e.recorder == nil {
		return
	}
	e.recorder.RecordDecision(string(resource), string(v), d.Effect.String())
}
