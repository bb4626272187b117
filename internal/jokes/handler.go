package jokes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jokesdb/jokes-api/internal/platform/httpx"
	"github.com/jokesdb/jokes-api/internal/rbac"
	"github.com/jokesdb/jokes-api/internal/shared"
)

// Handler manages joke endpoints.
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

// MountPublicRoutes registers routes that need no authentication.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/random", h.random)
}

// MountRoutes registers authenticated joke routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/search", h.search)
	r.Get("/trashed", h.trashed)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/restore", h.restore)
	r.Delete("/{id}/force", h.forceDelete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, r, shared.ParseListFilters(r.URL.Query(), h.defaultPerPage), "Jokes retrieved")
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	f := shared.ParseListFilters(r.URL.Query(), h.defaultPerPage)
	if f.Search == "" {
		httpx.RespondError(w, shared.FieldError("q", "The q field is required."))
		return
	}
	h.respondList(w, r, f, "Jokes found")
}

func (h *Handler) trashed(w http.ResponseWriter, r *http.Request) {
	f := shared.ParseListFilters(r.URL.Query(), h.defaultPerPage)
	f.Trashed = true
	h.respondList(w, r, f, "Trashed jokes retrieved")
}

func (h *Handler) respondList(w http.ResponseWriter, r *http.Request, f shared.ListFilters, message string) {
	actor, ok := rbac.CurrentActor(w, r)
	if !ok {
		return
	}
	categoryID, err := httpx.QueryID(r, "category_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, page, err := h.service.List(r.Context(), actor, f, categoryID)
	if err != nil {
		httpx.Fail(w, h.logger, "list jokes", err)
		return
	}
	httpx.Paginated(w, message, items, page)
}

func (h *Handler) random(w http.ResponseWriter, r *http.Request) {
	j, err := h.service.Random(r.Context())
	if err != nil {
		httpx.Fail(w, h.logger, "random joke", err)
		return
	}
	httpx.OK(w, "Random joke retrieved", j)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}
	j, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.Fail(w, h.logger, "show joke", err)
		return
	}
	httpx.OK(w, "Joke retrieved", j)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.CurrentActor(w, r)
	if !ok {
		return
	}
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.BadJSON(w, err)
		return
	}
	j, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		httpx.Fail(w, h.logger, "create joke", err)
		return
	}
	httpx.Created(w, "Joke created", j)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.BadJSON(w, err)
		return
	}
	j, err := h.service.Update(r.Context(), actor, id, in)
	if err != nil {
		httpx.Fail(w, h.logger, "update joke", err)
		return
	}
	httpx.OK(w, "Joke updated", j)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		httpx.Fail(w, h.logger, "delete joke", err)
		return
	}
	httpx.OK(w, "Joke deleted", nil)
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}
	j, err := h.service.Restore(r.Context(), actor, id)
	if err != nil {
		httpx.Fail(w, h.logger, "restore joke", err)
		return
	}
	httpx.OK(w, "Joke restored", j)
}

func (h *Handler) forceDelete(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.service.ForceDelete(r.Context(), actor, id); err != nil {
		httpx.Fail(w, h.logger, "force delete joke", err)
		return
	}
	httpx.OK(w, "Joke permanently deleted", nil)
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (rbac.Actor, int64, bool) {
	actor, ok := rbac.CurrentActor(w, r)
	if !ok {
		return rbac.Actor{}, 0, false
	}
	id, err := httpx.IDParam(r, "id", "Joke")
	if err != nil {
		httpx.RespondError(w, err)
		return rbac.Actor{}, 0, false
	}
	return actor, id, true
}
