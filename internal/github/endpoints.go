package github

import "fmt"

// List endpoints are pinned to the ascending-by-creation-time ordering
// the boundary resolver and the crawl both depend on.

func (c *Client) pullsPageURL(owner, repo string, perPage, page int) string {
	return fmt.Sprintf("%s/repos/%s/%s/pulls?state=all&sort=created&direction=asc&per_page=%d&page=%d",
		c.baseURL, owner, repo, perPage, page)
}

func (c *Client) issuesPageURL(owner, repo string, perPage, page int) string {
	return fmt.Sprintf("%s/repos/%s/%s/issues?state=all&sort=created&direction=asc&per_page=%d&page=%d",
		c.baseURL, owner, repo, perPage, page)
}

func (c *Client) pullURL(owner, repo string, number int) string {
	return fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.baseURL, owner, repo, number)
}

func (c *Client) issueURL(owner, repo string, number int) string {
	return fmt.Sprintf("%s/repos/%s/%s/issues/%d", c.baseURL, owner, repo, number)
}
