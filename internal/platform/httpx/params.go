package httpx

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jokesdb/jokes-api/internal/shared"
)

// IDParam parses a positive integer route parameter. A malformed id is
// reported as not found for entity.
func IDParam(r *http.Request, name, entity string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.NotFound(entity)
	}
	return id, nil
}

// QueryID parses an optional positive integer query parameter; zero when absent.
func QueryID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.FieldError(name, "The "+name+" must be a positive integer.")
	}
	return id, nil
}
