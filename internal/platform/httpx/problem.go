// Package httpx writes JSON and RFC 7807 problem responses for the console's JSON endpoints.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/backoffice-console/backoffice/internal/apiclient"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrUnsupportedType = errors.New("unsupported media type")
)

var problemStatus = []struct {
	err    error
	status int
}{
	{ErrValidation, http.StatusBadRequest},
	{ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
	{ErrUnsupportedType, http.StatusUnsupportedMediaType},
}

// ProblemDetail is an RFC 7807 body.
type ProblemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// JSON writes data with status.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, "application/json", status, data)
}

// Problem writes an RFC 7807 body. An empty title falls back to the status text.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	if title == "" {
		title = http.StatusText(status)
	}
	write(w, "application/problem+json", status, ProblemDetail{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// RespondError maps err to a problem response. Local sentinels expose their message.
// Upstream API failures keep 4xx statuses with the upstream detail and become 502
// otherwise. Anything else is a detail-free 500.
func RespondError(w http.ResponseWriter, err error) {
	for _, p := range problemStatus {
		if errors.Is(err, p.err) {
			Problem(w, p.status, "", err.Error())
			return
		}
	}
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		status := apiclient.StatusCode(err)
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		Problem(w, status, "Upstream Request Failed", apiErr.Detail)
		return
	}
	Problem(w, http.StatusInternalServerError, "", "")
}

func write(w http.ResponseWriter, contentType string, status int, body any) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
