package products

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backoffice-console/backoffice/internal/apiclient"
	"github.com/backoffice-console/backoffice/internal/records"
)

func TestProductDecodesEmbeddedOrBareCategory(t *testing.T) {
	var embedded Product
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"p1","name":"Pen","price":2.5,"category":{"_id":"c1","name":"Office"},"__v":0}`), &embedded))
	assert.Equal(t, "c1", embedded.Category.ID)
	assert.Equal(t, "Office", embedded.Category.Name)

	var bare Product
	require.NoError(t, json.Unmarshal([]byte(`{"id":"p2","name":"Ink","price":1,"category":"c9"}`), &bare))
	assert.Equal(t, "p2", bare.ID)
	assert.Equal(t, "c9", bare.Category.ID)
}

func TestPayloadRenamesCategoryKey(t *testing.T) {
	raw, err := json.Marshal(Entity{}.Payload(Draft{Name: "Pen", Price: 2.5, CategoryID: "c1"}))
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "c1", body["category"])
	_, hasCategoryID := body["categoryId"]
	assert.False(t, hasCategoryID)
	assert.JSONEq(t, `{"name":"Pen","price":2.5,"category":"c1"}`, string(raw))
}

func TestSetFieldPrice(t *testing.T) {
	var d Draft
	e := Entity{}
	require.NoError(t, e.SetField(&d, "price", " 12.75 "))
	assert.Equal(t, 12.75, d.Price)
	require.NoError(t, e.SetField(&d, "price", ""))
	assert.Zero(t, d.Price)
	assert.ErrorIs(t, e.SetField(&d, "price", "twelve"), records.ErrInvalidField)
	assert.ErrorIs(t, e.SetField(&d, "category", "c1"), records.ErrUnknownField)
}

func TestEditSaveSendsCategoryOverHTTP(t *testing.T) {
	var methods []string
	var putBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`[{"_id":"p1","name":"Pen","price":2,"category":{"_id":"c1","name":"Office"}}]`))
		case http.MethodPut:
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&putBody))
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	m := NewManager(apiclient.NewClient(srv.URL, time.Second))
	ctx := context.Background()
	require.NoError(t, m.Load(ctx))
	require.NoError(t, m.StartEditByID("p1"))
	draft, _ := m.Draft()
	assert.Equal(t, "c1", draft.CategoryID)

	require.NoError(t, m.UpdateDraftField("categoryId", "c2"))
	require.NoError(t, m.UpdateDraftField("price", "3"))
	require.NoError(t, m.Save(ctx))

	assert.Equal(t, []string{"GET /products", "PUT /products/p1", "GET /products"}, methods)
	assert.Equal(t, map[string]any{"name": "Pen", "price": 3.0, "category": "c2"}, putBody)
}

func TestScenarioLoadThenDelete(t *testing.T) {
	var calls []string
	lists := []string{
		`[{"_id":"p1","name":"A","price":1,"category":{"_id":"c1"}},{"_id":"p2","name":"B","price":2,"category":{"_id":"c1"}}]`,
		`[{"_id":"p2","name":"B","price":2,"category":{"_id":"c1"}}]`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(lists[0]))
			lists = lists[1:]
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	m := NewManager(apiclient.NewClient(srv.URL, time.Second))
	ctx := context.Background()
	assert.Empty(t, m.List())
	require.NoError(t, m.Load(ctx))
	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, "p1", list[0].ID)
	assert.Equal(t, "p2", list[1].ID)

	require.NoError(t, m.RequestDelete("p1"))
	require.NoError(t, m.ConfirmDelete(ctx))
	assert.Equal(t, []string{"GET /products", "DELETE /products/p1", "GET /products"}, calls)
	list = m.List()
	require.Len(t, list, 1)
	assert.Equal(t, "p2", list[0].ID)
}
