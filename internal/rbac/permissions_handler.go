package rbac

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jokesdb/jokes-api/internal/platform/httpx"
	"github.com/jokesdb/jokes-api/internal/shared"
)

// PermissionsHandler serves role and permission listings.
type PermissionsHandler struct {
	catalog *Catalog
	rbac    Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(catalog *Catalog, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{catalog: catalog, rbac: rbac}
}

// MountRoutes registers role and permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(PermUsersBrowse))
		r.Get("/roles", h.listRoles)
		r.Get("/roles/{name}", h.showRole)
		r.Get("/permissions", h.listPermissions)
	})
}

func (h *PermissionsHandler) listRoles(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, "Roles retrieved", h.catalog.ListRoles())
}

func (h *PermissionsHandler) showRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.catalog.GetRole(chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, ErrUnknownRole) {
			httpx.RespondError(w, shared.NotFound("Role"))
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, "Role retrieved", role)
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, "Permissions retrieved", h.catalog.ListPermissions())
}
