package votes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/jokesdb/jokes-api/internal/rbac"
)

type votesAPI struct {
	handler http.Handler
	repo    *memoryRepo
	as      rbac.Actor
}

func newVotesAPI(t *testing.T, users ...int64) *votesAPI {
	t.Helper()
	svc, repo := newTestService(users...)
	h := NewHandler(nil, svc, 15)
	api := &votesAPI{repo: repo}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(rbac.ContextWithActor(req.Context(), api.as)))
		})
	})
	r.Route("/jokes", h.MountJokeRoutes)
	r.Route("/votes", h.MountRoutes)
	r.Route("/users", h.MountUserRoutes)
	api.handler = r
	return api
}

func (a *votesAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	a.handler.ServeHTTP(res, req)
	return res
}

func TestCastAnswersCreatedThenOK(t *testing.T) {
	api := newVotesAPI(t)
	api.as = actor(7, rbac.RoleClient)

	res := api.do(t, http.MethodPost, "/jokes/1/vote", map[string]int{"rating": 1})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	require.Contains(t, res.Body.String(), `"message":"Vote recorded"`)

	res = api.do(t, http.MethodPost, "/jokes/1/vote", map[string]int{"rating": -1})
	require.Equal(t, http.StatusOK, res.Code)
	var body struct {
		Data Vote `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Equal(t, -1, body.Data.Rating)
	require.Len(t, api.repo.rows, 1)
}

func TestCastErrorStatuses(t *testing.T) {
	api := newVotesAPI(t)
	api.as = actor(7, rbac.RoleClient)

	res := api.do(t, http.MethodPost, "/jokes/1/vote", map[string]int{"rating": 3})
	require.Equal(t, http.StatusUnprocessableEntity, res.Code)

	res = api.do(t, http.MethodPost, "/jokes/2/vote", map[string]int{"rating": 1})
	require.Equal(t, http.StatusNotFound, res.Code, "hidden joke")

	res = api.do(t, http.MethodDelete, "/jokes/1/vote", nil)
	require.Equal(t, http.StatusNotFound, res.Code, "no vote yet")
}

func TestClearVotesReportsCount(t *testing.T) {
	api := newVotesAPI(t, 7)
	api.as = actor(7, rbac.RoleClient)
	for _, id := range []string{"1", "3"} {
		res := api.do(t, http.MethodPost, "/jokes/"+id+"/vote", map[string]int{"rating": 1})
		require.Equal(t, http.StatusCreated, res.Code)
	}

	res := api.do(t, http.MethodDelete, "/users/7/votes", nil)
	require.Equal(t, http.StatusForbidden, res.Code)

	api.as = actor(20, rbac.RoleStaff)
	res = api.do(t, http.MethodDelete, "/users/99/votes", nil)
	require.Equal(t, http.StatusNotFound, res.Code)

	res = api.do(t, http.MethodDelete, "/users/7/votes", nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"cleared_count":2`)

	res = api.do(t, http.MethodDelete, "/votes", nil)
	require.Equal(t, http.StatusForbidden, res.Code, "clearing everything is admin only")

	api.as = actor(30, rbac.RoleAdmin)
	res = api.do(t, http.MethodDelete, "/votes", nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"cleared_count":0`)
}
