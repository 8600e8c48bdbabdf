// Package transport performs authenticated requests against the YouTrack REST API.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// Transport is the request capability consumed by the resolver. Implementations
// attach credentials and decode JSON responses into out; a nil out discards the
// body. Non-success responses are reported as *Error.
type Transport interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, header http.Header, body []byte, out any) error
}

// Error is a non-success HTTP response.
type Error struct {
	Method string
	Path   string
	Status int
	// Code is the machine-readable error code from the response body, if any.
	Code    string
	Message string
	Body    string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Body
	}
	if msg == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, msg)
}

// StatusCode returns the HTTP status of err if it wraps an *Error.
func StatusCode(err error) (int, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Status, true
	}
	return 0, false
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	status, ok := StatusCode(err)
	return ok && status == http.StatusNotFound
}

// Matcher selects transport errors by status and, optionally, error code.
type Matcher struct {
	Status int    `mapstructure:"status" yaml:"status"`
	Code   string `mapstructure:"code" yaml:"code"`
}

// Match reports whether err is an *Error with the matcher's status and, when
// Code is set, the same code. A zero matcher matches nothing.
func (m Matcher) Match(err error) bool {
	if m.Status == 0 {
		return false
	}
	var te *Error
	if !errors.As(err, &te) || te.Status != m.Status {
		return false
	}
	return m.Code == "" || m.Code == te.Code
}
