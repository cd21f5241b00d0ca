package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backoffice-console/backoffice/internal/apiclient"
)

func decodeProblem(t *testing.T, rr *httptest.ResponseRecorder) ProblemDetail {
	t.Helper()
	var p ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	return p
}

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", fmt.Errorf("field: %w", ErrValidation), http.StatusBadRequest},
		{"too large", ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
		{"media type", ErrUnsupportedType, http.StatusUnsupportedMediaType},
		{"upstream 4xx", &apiclient.Error{Kind: apiclient.KindStatus, StatusCode: http.StatusUnprocessableEntity, Detail: "bad image"}, http.StatusUnprocessableEntity},
		{"upstream 5xx", &apiclient.Error{Kind: apiclient.KindStatus, StatusCode: http.StatusInternalServerError}, http.StatusBadGateway},
		{"transport", &apiclient.Error{Kind: apiclient.KindTransport}, http.StatusBadGateway},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RespondError(rr, tc.err)
			assert.Equal(t, tc.status, rr.Code)
			assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
			assert.Equal(t, tc.status, decodeProblem(t, rr).Status)
		})
	}
}

func TestUpstreamDetailIsForwarded(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, &apiclient.Error{Kind: apiclient.KindStatus, StatusCode: http.StatusBadRequest, Detail: "image too small"})
	assert.Equal(t, "image too small", decodeProblem(t, rr).Detail)
}

func TestProblemDefaultsTitle(t *testing.T) {
	rr := httptest.NewRecorder()
	Problem(rr, http.StatusTeapot, "", "short and stout")
	p := decodeProblem(t, rr)
	assert.Equal(t, "about:blank", p.Type)
	assert.Equal(t, http.StatusText(http.StatusTeapot), p.Title)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}
