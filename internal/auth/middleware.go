package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jokesdb/jokes-api/internal/platform/httpx"
	"github.com/jokesdb/jokes-api/internal/rbac"
	"github.com/jokesdb/jokes-api/internal/shared"
)

type tokenIDContextKey struct{}

// ContextWithTokenID stores the id of the bearer token in ctx.
func ContextWithTokenID(ctx context.Context, jti string) context.Context {
	return context.WithValue(ctx, tokenIDContextKey{}, jti)
}

// TokenIDFromContext returns the id of the bearer token used for the request.
func TokenIDFromContext(ctx context.Context) string {
	jti, _ := ctx.Value(tokenIDContextKey{}).(string)
	return jti
}

// AccountLoader resolves a user id to a live account.
type AccountLoader interface {
	FindByID(ctx context.Context, id int64) (Account, error)
}

// Authenticator resolves bearer tokens into actors.
type Authenticator struct {
	tokens   *TokenService
	accounts AccountLoader
	logger   *slog.Logger
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(tokens *TokenService, accounts AccountLoader, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{tokens: tokens, accounts: accounts, logger: logger}
}

// Middleware requires a valid bearer token and an active account.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			httpx.RespondError(w, shared.Unauthenticated(""))
			return
		}
		userID, jti, err := a.tokens.Validate(r.Context(), raw)
		if err != nil {
			if !errors.Is(err, ErrTokenInvalid) && !errors.Is(err, ErrTokenRevoked) {
				a.logger.Error("validate token", slog.Any("error", err))
				httpx.RespondError(w, shared.Internal(err))
				return
			}
			httpx.RespondError(w, shared.Unauthenticated(""))
			return
		}
		acc, err := a.accounts.FindByID(r.Context(), userID)
		if err != nil {
			if shared.IsKind(err, shared.KindNotFound) {
				httpx.RespondError(w, shared.Unauthenticated(""))
				return
			}
			a.logger.Error("load actor", slog.Int64("user_id", userID), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		actor := acc.Actor()
		if !actor.Active() {
			httpx.RespondError(w, inactive(actor.Status))
			return
		}
		ctx := rbac.ContextWithActor(r.Context(), actor)
		ctx = ContextWithTokenID(ctx, jti)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
