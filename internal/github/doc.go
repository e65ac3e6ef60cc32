// Package github implements the rate-limited fetch layer for the
// GitHub REST API.
//
// The crawl works on raw API payloads: persisted objects must keep
// every field the API returned, so list pages and detail records are
// fetched as plain JSON bodies rather than through typed bindings.
// The typed go-github client is used only for preflight, where the
// token and the repository name are validated and the repository's
// creation time is read.
//
// # Components
//
//   - Client: issues single GET requests with retry, backoff and
//     rate-limit-reset waiting
//   - RepoAPI: binds a Client to one repository's list, detail and
//     diff endpoints
//   - RateLimiter: dual-strategy throttling shared by all requests
//   - Object: a decoded detail record that preserves unknown fields
//
// # Rate Limiting
//
// The package implements a dual-strategy rate limiting approach:
//
//  1. Proactive throttling: a token bucket algorithm spreads requests
//     at a configurable rate (1.2 requests per second by default),
//     staying under the 5,000/hour authenticated limit whilst
//     maximising throughput.
//
//  2. Reactive handling: every response updates the limiter from the
//     X-RateLimit-Remaining and X-RateLimit-Reset headers. A response
//     whose headers report an exhausted quota makes the fetcher sleep
//     until one second past the reset and retry; such waits never
//     consume the retry budget.
//
// # Outcome Classification
//
// Each attempt of [Client.Get] resolves to exactly one of:
//
//   - success: 2xx status and, for JSON payloads, a parseable body
//     without GitHub's error envelope (a top-level "message" key)
//   - absent: 404, returned as [ErrNotFound] without retrying; the
//     caller skips the single item
//   - rate limited: handled internally as described above
//   - failure: network errors, other statuses, malformed payloads and
//     error envelopes each consume one try and wait the configured
//     retry interval
//
// Exhausting the try budget yields a [TooManyFailuresError], which
// aborts the crawl of the current repository only.
package github
