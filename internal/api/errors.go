package api

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned for any 401 response. Callers use it to decide
// whether a token refresh is worth attempting.
var ErrUnauthorized = errors.New("api: unauthorized")

// APIError is a non-401 error response from the backend, carrying the HTTP
// status and the backend's detail message when one was provided.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("api: unexpected status %d", e.Status)
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == status
}
