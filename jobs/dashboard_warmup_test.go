package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/backoffice-console/backoffice/internal/jobs"
)

type stubWarmer struct {
	calls int
	err   error
}

func (s *stubWarmer) Warm(ctx context.Context) error {
	s.calls++
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("expected deadline")
	}
	return s.err
}

func TestDashboardWarmupTaskPayload(t *testing.T) {
	task, err := NewDashboardWarmupTask("")
	require.NoError(t, err)
	assert.Equal(t, TaskDashboardWarmup, task.Type())

	var payload DashboardWarmupPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "schedule", payload.Reason)
}

func TestDashboardWarmupJobHandle(t *testing.T) {
	warmer := &stubWarmer{}
	job := NewDashboardWarmupJob(warmer, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewDashboardWarmupTask("manual")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, warmer.calls)
}

func TestDashboardWarmupJobPropagatesFailure(t *testing.T) {
	warmer := &stubWarmer{err: errors.New("api down")}
	job := NewDashboardWarmupJob(warmer, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewDashboardWarmupTask("schedule")
	require.NoError(t, err)
	assert.EqualError(t, job.Handle(context.Background(), task), "api down")
}

func TestDashboardWarmupJobSkipsRetryOnBadPayload(t *testing.T) {
	job := NewDashboardWarmupJob(&stubWarmer{}, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	err := job.Handle(context.Background(), asynq.NewTask(TaskDashboardWarmup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestDashboardWarmupJobRequiresWarmer(t *testing.T) {
	var job *DashboardWarmupJob
	assert.Error(t, job.Handle(context.Background(), asynq.NewTask(TaskDashboardWarmup, nil)))
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func TestHealthHandler(t *testing.T) {
	router := chi.NewRouter()
	NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 3, Retry: 1}}, nil).MountRoutes(router)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, queueHealth{Queue: "default", Pending: 3, Retry: 1}, body)
}

func TestHealthHandlerInspectorFailure(t *testing.T) {
	router := chi.NewRouter()
	NewHandler(stubInspector{err: errors.New("redis down")}, nil).MountRoutes(router)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
