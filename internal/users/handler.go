package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jokesdb/jokes-api/internal/platform/httpx"
	"github.com/jokesdb/jokes-api/internal/rbac"
	"github.com/jokesdb/jokes-api/internal/shared"
)

// Handler manages user management endpoints.
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

// MountRoutes registers user routes. Callers must authenticate first.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/search", h.search)
	r.Get("/trashed", h.trashed)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Patch("/{id}/status", h.changeStatus)
	r.Put("/{id}/roles", h.assignRoles)
	r.Post("/{id}/restore", h.restore)
	r.Delete("/{id}/force", h.forceDelete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, r, shared.ParseListFilters(r.URL.Query(), h.defaultPerPage), "Users retrieved")
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	f := shared.ParseListFilters(r.URL.Query(), h.defaultPerPage)
	if f.Search == "" {
		httpx.RespondError(w, shared.FieldError("q", "The q field is required."))
		return
	}
	h.respondList(w, r, f, "Users found")
}

func (h *Handler) trashed(w http.ResponseWriter, r *http.Request) {
	f := shared.ParseListFilters(r.URL.Query(), h.defaultPerPage)
	f.Trashed = true
	h.respondList(w, r, f, "Trashed users retrieved")
}

func (h *Handler) respondList(w http.ResponseWriter, r *http.Request, f shared.ListFilters, message string) {
	actor, ok := rbac.CurrentActor(w, r)
	if !ok {
		return
	}
	items, page, err := h.service.List(r.Context(), actor, f)
	if err != nil {
		httpx.Fail(w, h.logger, "list users", err)
		return
	}
	httpx.Paginated(w, message, items, page)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}
	u, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.Fail(w, h.logger, "show user", err)
		return
	}
	httpx.OK(w, "User retrieved", u)
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
	u, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		httpx.Fail(w, h.logger, "create user", err)
		return
	}
	httpx.Created(w, "User created", u)
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
	u, err := h.service.Update(r.Context(), actor, id, in)
	if err != nil {
		httpx.Fail(w, h.logger, "update user", err)
		return
	}
	httpx.OK(w, "User updated", u)
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var in StatusInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.BadJSON(w, err)
		return
	}
	u, err := h.service.ChangeStatus(r.Context(), actor, id, in)
	if err != nil {
		httpx.Fail(w, h.logger, "change user status", err)
		return
	}
	httpx.OK(w, "User status updated", u)
}

func (h *Handler) assignRoles(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var in RolesInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.BadJSON(w, err)
		return
	}
	u, err := h.service.AssignRoles(r.Context(), actor, id, in)
	if err != nil {
		httpx.Fail(w, h.logger, "assign user roles", err)
		return
	}
	httpx.OK(w, "User roles updated", u)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		httpx.Fail(w, h.logger, "delete user", err)
		return
	}
	httpx.OK(w, "User deleted", nil)
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}
	u, err := h.service.Restore(r.Context(), actor, id)
	if err != nil {
		httpx.Fail(w, h.logger, "restore user", err)
		return
	}
	httpx.OK(w, "User restored", u)
}

func (h *Handler) forceDelete(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.service.ForceDelete(r.Context(), actor, id); err != nil {
		httpx.Fail(w, h.logger, "force delete user", err)
		return
	}
	httpx.OK(w, "User permanently deleted", nil)
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (rbac.Actor, int64, bool) {
	actor, ok := rbac.CurrentActor(w, r)
	if !ok {
		return rbac.Actor{}, 0, false
	}
	id, err := httpx.IDParam(r, "id", "User")
	if err != nil {
		httpx.RespondError(w, err)
		return rbac.Actor{}, 0, false
	}
	return actor, id, true
}
