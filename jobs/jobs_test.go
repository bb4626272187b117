package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/jokesdb/jokes-api/internal/auth"
	jobmetrics "github.com/jokesdb/jokes-api/internal/jobs"
	"github.com/jokesdb/jokes-api/internal/shared"
)

type stubPruner struct {
	n   int
	err error
}

func (s stubPruner) Prune(ctx context.Context) (int, error) {
	return s.n, s.err
}

type stubAccounts map[int64]auth.Account

func (s stubAccounts) FindByID(ctx context.Context, id int64) (auth.Account, error) {
	acc, ok := s[id]
	if !ok {
		return auth.Account{}, shared.NotFound("User")
	}
	return acc, nil
}

func TestPasswordResetNoticeTaskPayload(t *testing.T) {
	task, err := NewPasswordResetNoticeTask(PasswordResetNoticePayload{UserID: 42})
	require.NoError(t, err)
	require.Equal(t, TaskPasswordResetNotice, task.Type())

	var payload PasswordResetNoticePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, int64(42), payload.UserID)
}

func TestPasswordResetNoticeJob(t *testing.T) {
	job := NewPasswordResetNoticeJob(stubAccounts{7: {ID: 7, Email: "seven@example.com"}}, nil, nil)
	ctx := context.Background()

	task, err := NewPasswordResetNoticeTask(PasswordResetNoticePayload{UserID: 7})
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))

	gone, err := NewPasswordResetNoticeTask(PasswordResetNoticePayload{UserID: 8})
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, gone), "a deleted user is not retried")

	err = job.Handle(ctx, asynq.NewTask(TaskPasswordResetNotice, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestTokenPruneJobRecordsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	ctx := context.Background()

	job := NewTokenPruneJob(stubPruner{n: 3}, nil, metrics)
	require.NoError(t, job.Handle(ctx, NewTokensPruneTask()))

	failing := NewTokenPruneJob(stubPruner{err: errors.New("redis down")}, nil, metrics)
	require.Error(t, failing.Handle(ctx, NewTokensPruneTask()))

	families, err := registry.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				values[mf.GetName()] += c.GetValue()
			}
		}
	}
	require.Equal(t, float64(3), values["jokes_tokens_pruned_total"])
	require.Equal(t, float64(1), values["jokes_jobs_failures_total"])
	require.Equal(t, float64(2), values["jokes_jobs_total"])
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, nil).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, strings.Contains(rr.Body.String(), `"queue":"default"`))
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestHealthReportsQueueInfo(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Retry: 1, Archived: 2}}, nil).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data QueueHealth `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, 3, body.Data.Pending)
	require.Equal(t, 1, body.Data.Retry)
	require.Equal(t, 2, body.Data.Archived)
}

func TestHealthUnavailableWhenInspectorFails(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(stubInspector{err: errors.New("redis down")}, nil).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

type recordingEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (e *recordingEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	e.tasks = append(e.tasks, task)
	if e.err != nil {
		return nil, e.err
	}
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func (e *recordingEnqueuer) Close() error { return nil }

func TestClientEnqueuesNoticeAndIgnoresDuplicates(t *testing.T) {
	enq := &recordingEnqueuer{}
	c := &Client{client: enq}

	require.NoError(t, c.EnqueuePasswordResetNotice(context.Background(), 42))
	require.Len(t, enq.tasks, 1)
	require.Equal(t, TaskPasswordResetNotice, enq.tasks[0].Type())
	require.JSONEq(t, `{"user_id":42}`, string(enq.tasks[0].Payload()))

	enq.err = asynq.ErrDuplicateTask
	require.NoError(t, c.EnqueuePasswordResetNotice(context.Background(), 42))

	enq.err = errors.New("redis down")
	require.Error(t, c.EnqueuePasswordResetNotice(context.Background(), 42))
}

func TestNewClientRequiresAddress(t *testing.T) {
	_, err := NewClient(asynq.RedisClientOpt{})
	require.Error(t, err)
}

func TestNewWorkerRejectsIncompleteHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:6379"},
		Handlers:  []TaskHandler{{Type: TaskTokensPrune}},
	})
	require.Error(t, err)
}
