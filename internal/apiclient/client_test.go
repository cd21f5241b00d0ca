package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	resource string
	method   string
	outcome  string
}

type stubObserver struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (s *stubObserver) ObserveCall(resource, method, outcome string, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, recordedCall{resource: resource, method: method, outcome: outcome})
}

func TestGetDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/categories", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"_id":"c1","name":"Books"}]`))
	}))
	defer srv.Close()

	obs := &stubObserver{}
	client := NewClient(srv.URL+"/api/", time.Second, WithObserver(obs))

	var out []map[string]string
	require.NoError(t, client.Get(context.Background(), "/categories", &out))
	require.Len(t, out, 1)
	assert.Equal(t, "Books", out[0]["name"])
	require.Len(t, obs.calls, 1)
	assert.Equal(t, recordedCall{resource: "categories", method: http.MethodGet, outcome: "success"}, obs.calls[0])
}

func TestPostSendsJSONBody(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_id":"new"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	err := client.Post(context.Background(), "/categories", map[string]string{"name": "Books", "description": ""}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Books", got["name"])
	assert.Equal(t, "", got["description"])
}

func TestStatusErrorWrapsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"price must be positive"}`))
	}))
	defer srv.Close()

	obs := &stubObserver{}
	client := NewClient(srv.URL, time.Second, WithObserver(obs))
	err := client.Put(context.Background(), "/products/p1", map[string]any{"price": -1}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOperationFailed))

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindStatus, apiErr.Kind)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "price must be positive", apiErr.Detail)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
	assert.Equal(t, "status", obs.calls[0].outcome)
}

func TestMalformedBodyIsDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not-json`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	var out []string
	err := client.Get(context.Background(), "/orders", &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOperationFailed))
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindDecode, apiErr.Kind)
}

func TestTransportErrorWrapsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(url, time.Second)
	err := client.Delete(context.Background(), "/products/p1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOperationFailed))
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindTransport, apiErr.Kind)
}

func TestUploadImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UploadImagePath, r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		file, header, err := r.FormFile(UploadImageField)
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "shoe.png", header.Filename)
		assert.Equal(t, "PNGDATA", string(data))
		_, _ = w.Write([]byte(`{"imageUrl":"https://cdn.local/shoe.png"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	url, err := client.UploadImage(context.Background(), "shoe.png", strings.NewReader("PNGDATA"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.local/shoe.png", url)
}

func TestUploadImageMissingURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.UploadImage(context.Background(), "a.png", strings.NewReader("x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOperationFailed))
}

func TestRateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, WithRateLimit(0.001, 1))
	var out []string
	require.NoError(t, client.Get(context.Background(), "/orders", &out))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := client.Get(ctx, "/orders", &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOperationFailed))
}

func TestResourceOf(t *testing.T) {
	assert.Equal(t, "products", resourceOf("/products/p1"))
	assert.Equal(t, "dashboard", resourceOf("/dashboard/orders-by-period?period=daily"))
	assert.Equal(t, "root", resourceOf("/"))
}
