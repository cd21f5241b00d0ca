package categories

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backoffice-console/backoffice/internal/apiclient"
	"github.com/backoffice-console/backoffice/internal/records"
)

func TestCategoryAcceptsEitherIDKey(t *testing.T) {
	var a, b Category
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"c1","name":"Books"}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"id":"c2","name":"Toys"}`), &b))
	assert.Equal(t, "c1", a.ID)
	assert.Equal(t, "c2", b.ID)
}

func TestAddCategoryPostsDefaultsForUntouchedFields(t *testing.T) {
	var posted string
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPost {
			raw, _ := io.ReadAll(r.Body)
			posted = string(raw)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"_id":"c1","name":"Books","description":""}`))
			return
		}
		_, _ = w.Write([]byte(`[{"_id":"c1","name":"Books","description":""}]`))
	}))
	defer srv.Close()

	m := NewManager(apiclient.NewClient(srv.URL, time.Second))
	require.NoError(t, m.StartAdd())
	require.NoError(t, m.UpdateDraftField("name", "Books"))
	require.NoError(t, m.Save(context.Background()))

	assert.JSONEq(t, `{"name":"Books","description":""}`, posted)
	assert.Equal(t, []string{"POST /categories", "GET /categories"}, calls)
	assert.Len(t, m.List(), 1)
	assert.Equal(t, records.ModeIdle, m.Mode())
}

func TestSaveRequiresName(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.StartAdd())
	err := m.Save(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, records.ErrInvalidDraft))
}
