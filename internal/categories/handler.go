package categories

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jokesdb/jokes-api/internal/platform/httpx"
	"github.com/jokesdb/jokes-api/internal/rbac"
	"github.com/jokesdb/jokes-api/internal/shared"
)

// Handler manages category endpoints.
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

// MountRoutes registers category routes. Callers must authenticate first.
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
	f := shared.ParseListFilters(r.URL.Query(), h.defaultPerPage)
	h.respondList(w, r, f, "Categories retrieved")
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	f := shared.ParseListFilters(r.URL.Query(), h.defaultPerPage)
	if f.Search == "" {
		httpx.RespondError(w, shared.FieldError("q", "The q field is required."))
		return
	}
	h.respondList(w, r, f, "Categories found")
}

func (h *Handler) trashed(w http.ResponseWriter, r *http.Request) {
	f := shared.ParseListFilters(r.URL.Query(), h.defaultPerPage)
	f.Trashed = true
	h.respondList(w, r, f, "Trashed categories retrieved")
}

func (h *Handler) respondList(w http.ResponseWriter, r *http.Request, f shared.ListFilters, message string) {
	actor, ok := rbac.CurrentActor(w, r)
	if !ok {
		return
	}
	items, page, err := h.service.List(r.Context(), actor, f)
	if err != nil {
		h.fail(w, "list categories", err)
		return
	}
	httpx.Paginated(w, message, items, page)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.CurrentActor(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id", "Category")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		h.fail(w, "show category", err)
		return
	}
	httpx.OK(w, "Category retrieved", c)
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
	c, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		h.fail(w, "create category", err)
		return
	}
	httpx.Created(w, "Category created", c)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.CurrentActor(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id", "Category")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.BadJSON(w, err)
		return
	}
	c, err := h.service.Update(r.Context(), actor, id, in)
	if err != nil {
		h.fail(w, "update category", err)
		return
	}
	httpx.OK(w, "Category updated", c)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.CurrentActor(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id", "Category")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if _, err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.fail(w, "delete category", err)
		return
	}
	httpx.OK(w, "Category deleted", nil)
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.CurrentActor(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id", "Category")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Restore(r.Context(), actor, id)
	if err != nil {
		h.fail(w, "restore category", err)
		return
	}
	httpx.OK(w, "Category restored", c)
}

func (h *Handler) forceDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.CurrentActor(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id", "Category")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.ForceDelete(r.Context(), actor, id); err != nil {
		h.fail(w, "force delete category", err)
		return
	}
	httpx.OK(w, "Category permanently deleted", nil)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	httpx.Fail(w, h.logger, op, err)
}
