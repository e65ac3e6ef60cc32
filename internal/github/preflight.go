package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v80/github"
)

// RepoInfo is the slice of the repository record preflight reads.
type RepoInfo struct {
	FullName  string
	CreatedAt time.Time
	Private   bool
}

// Preflight fetches the repository record before a crawl starts. It
// surfaces bad tokens and mistyped repository names up front, and the
// creation time it returns feeds the boundary resolver's epoch
// shortcut: no data can predate the repository itself.
func (c *Client) Preflight(ctx context.Context, owner, repo string) (*RepoInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	repository, resp, err := c.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, c.wrapError(err, fmt.Sprintf("preflight %s/%s", owner, repo))
	}
	c.updateRateLimitFromResponse(resp)

	info := &RepoInfo{
		FullName: repository.GetFullName(),
		Private:  repository.GetPrivate(),
	}
	if ts := repository.GetCreatedAt(); !ts.IsZero() {
		info.CreatedAt = ts.Time
	}
	return info, nil
}

// ValidateCredentials checks the configured token by fetching the
// authenticated user.
func (c *Client) ValidateCredentials(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	_, resp, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return c.wrapError(err, "validate credentials")
	}
	c.updateRateLimitFromResponse(resp)
	return nil
}

// updateRateLimitFromResponse updates the rate limiter from go-github
// response headers.
func (c *Client) updateRateLimitFromResponse(resp *gh.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	c.limiter.UpdateFromResponse(resp.Response)
}

// wrapError converts go-github errors to our error types.
func (c *Client) wrapError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var rateLimitErr *gh.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return &RateLimitError{
			ResetAt:   rateLimitErr.Rate.Reset.Time,
			Remaining: rateLimitErr.Rate.Remaining,
			Limit:     rateLimitErr.Rate.Limit,
		}
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", operation, ErrRepoNotFound)
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %w", operation, ErrBadCredentials)
		}
		return &APIError{
			StatusCode: ghErr.Response.StatusCode,
			Message:    ghErr.Message,
			URL:        ghErr.Response.Request.URL.String(),
		}
	}

	return fmt.Errorf("%s: %w", operation, err)
}
