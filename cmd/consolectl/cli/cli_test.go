package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/backoffice-console/backoffice/jobs"
)

type fakeAPI struct {
	mu         sync.Mutex
	categories []map[string]string
	deleted    []string
	failDelete bool
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{categories: []map[string]string{{"_id": "c1", "name": "Shoes", "description": "Footwear"}}}

	r := chi.NewRouter()
	r.Get("/api/categories", func(w http.ResponseWriter, _ *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()
		writeJSON(w, api.categories)
	})
	r.Post("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		api.mu.Lock()
		body["_id"] = "c2"
		api.categories = append(api.categories, body)
		api.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, body)
	})
	r.Get("/api/products", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []map[string]any{
			{"_id": "p1", "name": "Runner", "price": 89.5, "category": map[string]string{"_id": "c1", "name": "Shoes"}},
			{"id": "p2", "name": "Sock", "price": 4, "category": "c1"},
		})
	})
	r.Get("/api/orders", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []map[string]any{
			{"_id": "o1", "total": 93.5, "orderDate": "2024-03-01T10:00:00.000Z", "products": []any{"p1", map[string]any{"_id": "p2", "name": "Sock"}}},
		})
	})
	r.Delete("/api/{entity}/{id}", func(w http.ResponseWriter, r *http.Request) {
		if api.failDelete {
			http.Error(w, `{"message":"cannot delete"}`, http.StatusConflict)
			return
		}
		api.mu.Lock()
		api.deleted = append(api.deleted, chi.URLParam(r, "entity")+"/"+chi.URLParam(r, "id"))
		api.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/api/dashboard", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"totalOrders": 12, "totalRevenue": 1500.25, "averageOrderValue": 125.02})
	})
	r.Get("/api/dashboard/orders-by-period", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "weekly", r.URL.Query().Get("period"))
		writeJSON(w, []map[string]any{{"period": "2024-W09", "count": 4}, {"period": "2024-W10", "count": 8}})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return api, srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func run(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	t.Setenv("REDIS_ADDR", "")
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	root := NewRootCommand(Options{Stdout: stdout, Stderr: stderr})
	root.SetArgs(append([]string{"--api-url", srv.URL + "/api"}, args...))
	err := root.Execute()
	return stdout.String(), err
}

func TestListProductsTable(t *testing.T) {
	_, srv := newFakeAPI(t)

	out, err := run(t, srv, "list", "products")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "Runner")
	assert.Contains(t, lines[1], "89.50")
	assert.Contains(t, lines[1], "Shoes")
	assert.Contains(t, lines[2], "p2")
	assert.Contains(t, lines[2], "c1")
}

func TestListOrdersJSON(t *testing.T) {
	_, srv := newFakeAPI(t)

	out, err := run(t, srv, "list", "order", "-o", "json")
	require.NoError(t, err)

	var views []orderView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 1)
	assert.Equal(t, []string{"p1", "p2"}, views[0].Products)
	assert.Equal(t, 93.5, views[0].Total)
}

func TestListCategoriesYAML(t *testing.T) {
	_, srv := newFakeAPI(t)

	out, err := run(t, srv, "list", "categories", "--output", "yaml")
	require.NoError(t, err)

	var views []categoryView
	require.NoError(t, yaml.Unmarshal([]byte(out), &views))
	assert.Equal(t, []categoryView{{ID: "c1", Name: "Shoes", Description: "Footwear"}}, views)
}

func TestListRejectsUnknownEntityAndFormat(t *testing.T) {
	_, srv := newFakeAPI(t)

	_, err := run(t, srv, "list", "customers")
	assert.ErrorContains(t, err, "unknown entity")

	_, err = run(t, srv, "list", "products", "-o", "xml")
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestCreateCategory(t *testing.T) {
	api, srv := newFakeAPI(t)

	out, err := run(t, srv, "create", "category", "--name", "Hats", "--description", "Headwear", "-o", "json")
	require.NoError(t, err)

	var result mutationResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, mutationResult{Entity: "categories", Action: "created", ID: "c2", Name: "Hats"}, result)
	require.Len(t, api.categories, 2)
	assert.Equal(t, "Headwear", api.categories[1]["description"])
}

func TestCreateCategoryValidatesDraft(t *testing.T) {
	api, srv := newFakeAPI(t)

	_, err := run(t, srv, "create", "category", "--name", "")
	require.Error(t, err)
	assert.Len(t, api.categories, 1)
}

func TestDeleteBumpsDashboardCache(t *testing.T) {
	api, srv := newFakeAPI(t)
	mr := miniredis.RunT(t)

	stdout := new(bytes.Buffer)
	root := NewRootCommand(Options{Stdout: stdout, Stderr: new(bytes.Buffer)})
	root.SetArgs([]string{"--api-url", srv.URL + "/api", "--redis-addr", mr.Addr(), "delete", "products", "p1"})
	require.NoError(t, root.Execute())

	assert.Equal(t, []string{"products/p1"}, api.deleted)
	assert.Contains(t, stdout.String(), "deleted")
	version, err := mr.Get("dashboard:version")
	require.NoError(t, err)
	assert.Equal(t, "1", version)
}

func TestDeleteReportsAPIError(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.failDelete = true

	_, err := run(t, srv, "delete", "orders", "o1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
}

func TestDashboardCommand(t *testing.T) {
	_, srv := newFakeAPI(t)

	out, err := run(t, srv, "dashboard", "--period", "Weekly", "-o", "json")
	require.NoError(t, err)

	var view dashboardView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.EqualValues(t, 12, view.TotalOrders)
	assert.Equal(t, "weekly", string(view.Period))
	require.Len(t, view.Series, 2)
	assert.EqualValues(t, 8, view.Series[1].Count)

	_, err = run(t, srv, "dashboard", "--period", "hourly")
	assert.Error(t, err)
}

func TestWarmupRequiresRedis(t *testing.T) {
	_, srv := newFakeAPI(t)
	_, err := run(t, srv, "warmup")
	assert.ErrorContains(t, err, "redis")
}

func TestWarmupEnqueuesDashboardTask(t *testing.T) {
	_, srv := newFakeAPI(t)
	mr := miniredis.RunT(t)

	out, err := run(t, srv, "--redis-addr", mr.Addr(), "warmup", "-o", "json")
	require.NoError(t, err)
	var result warmupResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, jobs.QueueDefault, result.Queue)
	require.NotEmpty(t, result.TaskID)

	pending, err := mr.List("asynq:{" + jobs.QueueDefault + "}:pending")
	require.NoError(t, err)
	assert.Equal(t, []string{result.TaskID}, pending)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer inspector.Close()
	info, err := inspector.GetTaskInfo(jobs.QueueDefault, result.TaskID)
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskDashboardWarmup, info.Type)
	assert.Equal(t, 3, info.MaxRetry)
	var payload jobs.DashboardWarmupPayload
	require.NoError(t, json.Unmarshal(info.Payload, &payload))
	assert.Equal(t, "consolectl", payload.Reason)

	_, err = run(t, srv, "--redis-addr", mr.Addr(), "warmup")
	require.ErrorIs(t, err, asynq.ErrDuplicateTask)
	pending, err = mr.List("asynq:{" + jobs.QueueDefault + "}:pending")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestAuditRequiresDSN(t *testing.T) {
	_, srv := newFakeAPI(t)
	t.Setenv("AUDIT_PG_DSN", "")
	_, err := run(t, srv, "audit", "--dsn", "")
	assert.ErrorContains(t, err, "AUDIT_PG_DSN")
}
