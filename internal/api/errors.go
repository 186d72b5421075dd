package api

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError is returned when a request never produced a usable response:
// the connection failed, or a successful response carried a body we could not decode.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPError is returned for any non-2xx response
type HTTPError struct {
	Method           string
	URL              string
	StatusCode       int
	Message          string
	DocumentationURL string
	Err              error
}

func (e *HTTPError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, msg)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is an HTTP 404 from the API
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}
