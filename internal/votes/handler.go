package votes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jokesdb/jokes-api/internal/platform/httpx"
	"github.com/jokesdb/jokes-api/internal/rbac"
	"github.com/jokesdb/jokes-api/internal/shared"
)

// Handler manages vote endpoints.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	defaultPerPage int
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, defaultPerPage int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, defaultPerPage: defaultPerPage}
}

// MountJokeRoutes registers voting routes below /jokes.
func (h *Handler) MountJokeRoutes(r chi.Router) {
	r.Post("/{id}/vote", h.cast)
	r.Delete("/{id}/vote", h.remove)
}

// MountRoutes registers routes below /votes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Delete("/", h.clearAll)
	r.Delete("/{id}", h.delete)
}

// MountUserRoutes registers vote routes below /users.
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.Delete("/{id}/votes", h.clearUser)
}

func (h *Handler) cast(w http.ResponseWriter, r *http.Request) {
	actor, jokeID, ok := h.target(w, r, "Joke")
	if !ok {
		return
	}
	var in CastInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.BadJSON(w, err)
		return
	}
	vote, created, err := h.service.Cast(r.Context(), actor, jokeID, in)
	if err != nil {
		httpx.Fail(w, h.logger, "cast vote", err)
		return
	}
	if created {
		httpx.Created(w, "Vote recorded", vote)
		return
	}
	httpx.OK(w, "Vote updated", vote)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	actor, jokeID, ok := h.target(w, r, "Joke")
	if !ok {
		return
	}
	userID, err := httpx.QueryID(r, "user_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Remove(r.Context(), actor, jokeID, userID); err != nil {
		httpx.Fail(w, h.logger, "remove vote", err)
		return
	}
	httpx.OK(w, "Vote removed", nil)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.CurrentActor(w, r)
	if !ok {
		return
	}
	var filter Filter
	var err error
	if filter.UserID, err = httpx.QueryID(r, "user_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.JokeID, err = httpx.QueryID(r, "joke_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	f := shared.ParseListFilters(r.URL.Query(), h.defaultPerPage)
	items, page, err := h.service.List(r.Context(), actor, f, filter)
	if err != nil {
		httpx.Fail(w, h.logger, "list votes", err)
		return
	}
	httpx.Paginated(w, "Votes retrieved", items, page)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r, "Vote")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		httpx.Fail(w, h.logger, "delete vote", err)
		return
	}
	httpx.OK(w, "Vote deleted", nil)
}

func (h *Handler) clearUser(w http.ResponseWriter, r *http.Request) {
	actor, userID, ok := h.target(w, r, "User")
	if !ok {
		return
	}
	cleared, err := h.service.ClearUser(r.Context(), actor, userID)
	if err != nil {
		httpx.Fail(w, h.logger, "clear user votes", err)
		return
	}
	httpx.OK(w, "User votes cleared", cleared)
}

func (h *Handler) clearAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.CurrentActor(w, r)
	if !ok {
		return
	}
	cleared, err := h.service.ClearAll(r.Context(), actor)
	if err != nil {
		httpx.Fail(w, h.logger, "clear votes", err)
		return
	}
	httpx.OK(w, "All votes cleared", cleared)
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request, entity string) (rbac.Actor, int64, bool) {
	actor, ok := rbac.CurrentActor(w, r)
	if !ok {
		return rbac.Actor{}, 0, false
	}
	id, err := httpx.IDParam(r, "id", entity)
	if err != nil {
		httpx.RespondError(w, err)
		return rbac.Actor{}, 0, false
	}
	return actor, id, true
}
