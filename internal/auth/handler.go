package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jokesdb/jokes-api/internal/platform/httpx"
	"github.com/jokesdb/jokes-api/internal/rbac"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger  *slog.Logger
	service *Service
	authn   func(http.Handler) http.Handler
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authn *Authenticator, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, authn: authn.Middleware, rbac: rbac}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Group(func(r chi.Router) {
		r.Use(h.authn)
		r.Post("/logout", h.logout)
		r.Get("/profile", h.profile)
		r.Put("/profile", h.updateProfile)
		r.Delete("/profile", h.deleteProfile)
		r.With(h.rbac.RequireAny(rbac.PermAuthLogoutRole)).Post("/logout-role", h.logoutRole)
		r.With(h.rbac.RequireAny(rbac.PermAuthResetPassword)).Post("/reset-password", h.resetPassword)
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.BadJSON(w, err)
		return
	}
	session, err := h.service.Register(r.Context(), in)
	if err != nil {
		h.fail(w, "register", err)
		return
	}
	httpx.Created(w, "Registered successfully", session)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.BadJSON(w, err)
		return
	}
	session, err := h.service.Login(r.Context(), in)
	if err != nil {
		h.fail(w, "login", err)
		return
	}
	httpx.OK(w, "Login successful", session)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.CurrentActor(w, r)
	if !ok {
		return
	}
	if err := h.service.Logout(r.Context(), actor, TokenIDFromContext(r.Context())); err != nil {
		h.fail(w, "logout", err)
		return
	}
	httpx.OK(w, "Logged out successfully", nil)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.CurrentActor(w, r)
	if !ok {
		return
	}
	profile, err := h.service.Profile(r.Context(), actor)
	if err != nil {
		h.fail(w, "profile", err)
		return
	}
	httpx.OK(w, "Profile retrieved", profile)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.CurrentActor(w, r)
	if !ok {
		return
	}
	var in ProfileUpdate
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.BadJSON(w, err)
		return
	}
	profile, err := h.service.UpdateProfile(r.Context(), actor, in)
	if err != nil {
		h.fail(w, "update profile", err)
		return
	}
	httpx.OK(w, "Profile updated", profile)
}

func (h *Handler) deleteProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.CurrentActor(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteProfile(r.Context(), actor); err != nil {
		h.fail(w, "delete profile", err)
		return
	}
	httpx.OK(w, "Account deleted", nil)
}

func (h *Handler) logoutRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.CurrentActor(w, r)
	if !ok {
		return
	}
	var in LogoutRoleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.BadJSON(w, err)
		return
	}
	n, err := h.service.LogoutRole(r.Context(), actor, in)
	if err != nil {
		h.fail(w, "logout role", err)
		return
	}
	httpx.OK(w, "Role logged out", map[string]int{"revoked_tokens": n})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.CurrentActor(w, r)
	if !ok {
		return
	}
	var in ResetPasswordInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.BadJSON(w, err)
		return
	}
	if err := h.service.ResetPassword(r.Context(), actor, in); err != nil {
		h.fail(w, "reset password", err)
		return
	}
	httpx.OK(w, "Password reset", nil)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	httpx.Fail(w, h.logger, op, err)
}
