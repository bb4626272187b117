package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jokesdb/jokes-api/internal/platform/httpx"
	"github.com/jokesdb/jokes-api/internal/shared"
)

type actorContextKey struct{}

// ContextWithActor stores the authenticated actor in ctx.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the authenticated actor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Logger *slog.Logger
}

// RequireAny ensures the current actor has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.require(func(actor Actor) bool {
		for _, p := range normalized {
			if HasPermission(actor, p) {
				return true
			}
		}
		return len(normalized) == 0
	})
}

// RequireAll ensures the current actor has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.require(func(actor Actor) bool {
		for _, p := range normalized {
			if !HasPermission(actor, p) {
				return false
			}
		}
		return true
	})
}

// RequireRole ensures the current actor's highest level reaches role. It
// panics on a role outside the registry.
func (m Middleware) RequireRole(role Role) func(http.Handler) http.Handler {
	if !role.Valid() {
		panic(fmt.Sprintf("rbac: unknown role %q", role))
	}
	return m.require(func(actor Actor) bool {
		return actor.AtLeast(role)
	})
}

func (m Middleware) require(allowed func(Actor) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.Unauthenticated(""))
				return
			}
			if !allowed(actor) {
				if m.Logger != nil {
					m.Logger.Debug("rbac denied",
						slog.Int64("actor", actor.ID),
						slog.String("role", string(actor.TopRole())),
						slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, shared.Forbidden("This action is unauthorized."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// normalizePermissions panics on a name outside the catalog; routes are wired
// at startup so a typo fails fast.
func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if !KnownPermission(p) {
			panic(fmt.Sprintf("rbac: unknown permission %q", p))
		}
		if _, seen := unique[p]; seen {
			continue
		}
		unique[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}

// CurrentActor returns the request's actor, responding 401 when there is none.
func CurrentActor(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.Unauthenticated(""))
	}
	return actor, ok
}
