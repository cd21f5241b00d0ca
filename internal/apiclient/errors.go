package apiclient

import (
	"errors"
	"fmt"
)

// ErrOperationFailed is wrapped by every error returned from Client.
var ErrOperationFailed = errors.New("apiclient: operation failed")

// Kind classifies a failed call.
type Kind string

const (
	KindTransport Kind = "transport"
	KindStatus    Kind = "status"
	KindDecode    Kind = "decode"
	KindEncode    Kind = "encode"
)

// Error describes a failed API call. It matches ErrOperationFailed via errors.Is.
type Error struct {
	Kind       Kind
	Method     string
	Path       string
	StatusCode int
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("apiclient: %s %s: %s failure", e.Method, e.Path, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrOperationFailed}
	}
	return []error{ErrOperationFailed, e.Err}
}

// StatusCode returns the HTTP status carried by err, or zero.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
