// internal/errors/errors.go
package appErrors

import "fmt"

// ErrMissingAPIKey is a sentinel error
type ErrMissingAPIKey struct{}

func (e *ErrMissingAPIKey) Error() string {
    return "API_KEY environment variable is not set"
}

// Helper constructor
func NewMissingAPIKey() error {
    return &ErrMissingAPIKey{}
}

// ErrAPIRequestFailed carries the vendor call that came back non-2xx
type ErrAPIRequestFailed struct {
    Method     string
    URL        string
    StatusCode int
}

func (e *ErrAPIRequestFailed) Error() string {
    return fmt.Sprintf("%s %s failed with status %d", e.Method, e.URL, e.StatusCode)
}

func NewAPIRequestFailed(method, url string, statusCode int) error {
    return &ErrAPIRequestFailed{Method: method, URL: url, StatusCode: statusCode}
}
