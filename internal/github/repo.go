package github

import (
	"context"
	"encoding/json"
	"fmt"
)

// RepoAPI binds a Client to one repository's endpoints. The crawl
// engine and the boundary resolver consume pages and detail objects
// through it without ever assembling URLs themselves.
type RepoAPI struct {
	client  *Client
	owner   string
	repo    string
	perPage int
}

// Repo returns the API surface for one repository at the given page size.
func (c *Client) Repo(owner, repo string, perPage int) *RepoAPI {
	return &RepoAPI{client: c, owner: owner, repo: repo, perPage: perPage}
}

// PullsPage fetches one page of the pull request stream.
func (a *RepoAPI) PullsPage(ctx context.Context, page int) (*Page, error) {
	return a.listPage(ctx, a.client.pullsPageURL(a.owner, a.repo, a.perPage, page), page)
}

// IssuesPage fetches one page of the issue stream.
func (a *RepoAPI) IssuesPage(ctx context.Context, page int) (*Page, error) {
	return a.listPage(ctx, a.client.issuesPageURL(a.owner, a.repo, a.perPage, page), page)
}

// Pull fetches the detail object of one pull request.
func (a *RepoAPI) Pull(ctx context.Context, number int) (*Object, error) {
	return a.detail(ctx, a.client.pullURL(a.owner, a.repo, number))
}

// Issue fetches the detail object of one issue.
func (a *RepoAPI) Issue(ctx context.Context, number int) (*Object, error) {
	return a.detail(ctx, a.client.issueURL(a.owner, a.repo, number))
}

// Diff fetches a pull request's unified diff text from its diff_url.
func (a *RepoAPI) Diff(ctx context.Context, diffURL string) ([]byte, error) {
	resp, err := a.client.Get(ctx, diffURL)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (a *RepoAPI) listPage(ctx context.Context, url string, page int) (*Page, error) {
	resp, err := a.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	var items []Item
	if err := json.Unmarshal(resp.Body, &items); err != nil {
		return nil, fmt.Errorf("github: decode page %d of %s/%s: %w", page, a.owner, a.repo, err)
	}
	return &Page{
		Number:   page,
		Items:    items,
		Raw:      resp.Body,
		LastPage: LastPage(resp.Header.Get("Link")),
	}, nil
}

func (a *RepoAPI) detail(ctx context.Context, url string) (*Object, error) {
	resp, err := a.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	obj, err := DecodeObject(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("github: %s: %w", url, err)
	}
	return obj, nil
}
