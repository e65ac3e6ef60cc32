package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"github.com/pterm/pterm"
	"golang.org/x/oauth2"

	"github.com/florenceboettger/ghpr-tools/internal/logger"
)

const (
	// DefaultBaseURL is the GitHub REST API root.
	DefaultBaseURL = "https://api.github.com"

	// DefaultMaxTries is the request try budget before a repository
	// crawl is aborted.
	DefaultMaxTries = 100

	// DefaultRetryWait is the pause between failed tries.
	DefaultRetryWait = 10 * time.Second

	acceptHeader = "application/vnd.github.v3+json"
)

// Options configures a Client. An empty token yields an
// unauthenticated client (60 requests/hour). MaxTries below one and a
// negative RetryWait select the defaults; a zero RetryWait retries
// without pausing.
type Options struct {
	Token     string
	BaseURL   string
	MaxTries  int
	RetryWait time.Duration
	// RequestsPerSecond drives the proactive throttle; <= 0 disables it.
	RequestsPerSecond float64
}

// Client issues rate-limited, retrying GET requests against the GitHub
// REST API. One Client is shared by every repository in a run; it holds
// the oauth2 transport, the rate limiter and the retry budget settings.
type Client struct {
	httpClient *http.Client
	gh         *gh.Client
	limiter    *RateLimiter
	baseURL    string
	maxTries   int
	retryWait  time.Duration
}

// NewClient creates a Client from opts.
func NewClient(ctx context.Context, opts Options) *Client {
	httpClient := &http.Client{}
	if opts.Token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: opts.Token},
		)
		httpClient = oauth2.NewClient(ctx, ts)
	}

	ghClient := gh.NewClient(httpClient)
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if baseURL != DefaultBaseURL {
		if u, err := url.Parse(baseURL + "/"); err == nil {
			ghClient.BaseURL = u
		}
	}

	maxTries := opts.MaxTries
	if maxTries < 1 {
		maxTries = DefaultMaxTries
	}
	retryWait := opts.RetryWait
	if retryWait < 0 {
		retryWait = DefaultRetryWait
	}

	return &Client{
		httpClient: httpClient,
		gh:         ghClient,
		limiter:    NewRateLimiter(opts.RequestsPerSecond),
		baseURL:    baseURL,
		maxTries:   maxTries,
		retryWait:  retryWait,
	}
}

// RateLimiter returns the client's rate limiter.
func (c *Client) RateLimiter() *RateLimiter {
	return c.limiter
}

// Get fetches url, retrying failures until the try budget is spent.
// Outcomes per attempt: success returns the response; 404 returns
// ErrNotFound immediately; an exhausted rate limit waits until one
// second past the advertised reset and retries without consuming a
// try; everything else consumes a try and sleeps the retry wait.
// A spent budget returns *TooManyFailuresError.
func (c *Client) Get(ctx context.Context, u string) (*Response, error) {
	tries := 0
	for {
		resp, err := c.tryGet(ctx, u)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, ErrNotFound) || ctx.Err() != nil {
			return nil, err
		}

		var rateErr *RateLimitError
		if errors.As(err, &rateErr) {
			resetAt := rateErr.ResetAt.Add(time.Second)
			wait := time.Until(resetAt).Round(time.Second)
			logger.Info("get: waiting %s for rate limit reset", wait)
			pterm.Warning.Printf("Rate limit reached, waiting %s for reset\n", wait)
			if werr := c.limiter.WaitForReset(ctx, resetAt); werr != nil {
				return nil, werr
			}
			continue
		}

		tries++
		if tries >= c.maxTries {
			pterm.Error.Printf("Request failed %d times, aborting\n", tries)
			return nil, &TooManyFailuresError{URL: u, Tries: tries, Last: err}
		}
		logger.Warn("get: try %d failed: %v", tries, err)
		pterm.Warning.Printf("Request failed %d times, retrying in %s\n", tries, c.retryWait)
		if werr := sleep(ctx, c.retryWait); werr != nil {
			return nil, werr
		}
	}
}

// GetJSON fetches url and decodes the JSON payload into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("github: decode %s: %w", url, err)
	}
	return nil
}

// tryGet performs a single attempt and classifies the outcome.
func (c *Client) tryGet(ctx context.Context, url string) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("github: build request %s: %w", url, err)
	}
	req.Header.Set("Accept", acceptHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("get: %s: %v", url, err)
		return nil, fmt.Errorf("github: get %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("get: read %s: %v", url, err)
		return nil, fmt.Errorf("github: read %s: %w", url, err)
	}

	c.limiter.UpdateFromResponse(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Error("get: not ok: %s %d %s", url, resp.StatusCode, truncate(body))
		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		if rateErr := c.limiter.CheckRateLimit(resp); rateErr != nil {
			return nil, rateErr
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: truncate(body), URL: url}
	}

	// A 2xx response can still carry GitHub's error envelope: a JSON
	// object with a top-level "message" key. It counts as a failed try,
	// as does a payload that does not parse at all.
	if strings.Contains(resp.Header.Get("Content-Type"), "json") {
		if !json.Valid(body) {
			logger.Error("get: malformed payload: %s", url)
			return nil, &APIError{StatusCode: resp.StatusCode, Message: "malformed JSON payload", URL: url}
		}
		if msg, ok := errorEnvelope(body); ok {
			logger.Error("get: error envelope: %s %s", url, msg)
			return nil, &APIError{StatusCode: resp.StatusCode, Message: msg, URL: url}
		}
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// errorEnvelope reports the "message" value of a JSON object payload.
func errorEnvelope(body []byte) (string, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}
	var payload map[string]any
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return "", false
	}
	msg, ok := payload["message"]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%v", msg), true
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
