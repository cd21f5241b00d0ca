package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/backoffice-console/backoffice/internal/jobs"
	_ "github.com/backoffice-console/backoffice/internal/testing/guard"
	"github.com/backoffice-console/backoffice/jobs"
)

type fixedInspector struct{}

func (fixedInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return &asynq.QueueInfo{Queue: queue, Pending: 2}, nil
}

func TestMainReturnsInTestMode(t *testing.T) {
	assert.NotPanics(t, main)
}

func TestOpsServerRoutes(t *testing.T) {
	registry := prometheus.NewRegistry()
	jobmetrics.NewMetrics(registry).Track("sample").End(nil)
	srv := opsServer(":0", registry, jobs.NewHandler(fixedInspector{}, nil))

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `backoffice_jobs_total{job="sample",status="success"} 1`)

	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"pending":2`)
}
