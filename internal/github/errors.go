package github

import (
	"errors"
	"fmt"
	"time"
)

// GitHub-specific errors.
var (
	// ErrNotFound indicates the requested resource does not exist (404).
	// Not retryable and not fatal: callers skip the single item and move on.
	ErrNotFound = errors.New("github: resource not found")

	// ErrRepoNotFound indicates the repository was not found or is not accessible.
	ErrRepoNotFound = errors.New("github: repository not found")

	// ErrBadCredentials indicates the token was rejected by the API.
	ErrBadCredentials = errors.New("github: bad credentials")
)

// RateLimitError signals that the quota headers report an exhausted rate
// limit. The fetcher waits until ResetAt plus one second and retries
// without consuming a try; the error never surfaces to Get callers.
type RateLimitError struct {
	ResetAt   time.Time
	Remaining int
	Limit     int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("github: rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// APIError represents a GitHub API error response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// TooManyFailuresError is returned when a request has failed MaxTries
// times. It aborts the crawl of the current repository only.
type TooManyFailuresError struct {
	URL   string
	Tries int
	Last  error
}

func (e *TooManyFailuresError) Error() string {
	return fmt.Sprintf("github: %d request failures for %s", e.Tries, e.URL)
}

func (e *TooManyFailuresError) Unwrap() error {
	return e.Last
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrRepoNotFound)
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsFatal checks if the error exhausted the retry budget for a repository.
func IsFatal(err error) bool {
	var tooMany *TooManyFailuresError
	return errors.As(err, &tooMany)
}
