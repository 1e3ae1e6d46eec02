package s2

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("paper not found in Semantic Scholar")
	ErrAuthError       = errors.New("Semantic Scholar authentication error")
	ErrRateLimited     = errors.New("Semantic Scholar rate limit exceeded")
	ErrNetworkError    = errors.New("network error communicating with Semantic Scholar")
	ErrInvalidResponse = errors.New("invalid response from Semantic Scholar")
	ErrInvalidID       = errors.New("unrecognized paper identifier")
)

// APIError is a non-2xx response that maps to no more specific error.
type APIError struct {
	StatusCode int
	PaperID    string
}

func (e *APIError) Error() string {
	if e.PaperID != "" {
		return fmt.Sprintf("Semantic Scholar API error (status %d, paper %s)", e.StatusCode, e.PaperID)
	}
	return fmt.Sprintf("Semantic Scholar API error (status %d)", e.StatusCode)
}

// IsNotFound reports whether err means the paper does not exist upstream.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
