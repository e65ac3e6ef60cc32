package github

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// linkRegex matches Link header entries: <url>; rel="type".
var linkRegex = regexp.MustCompile(`<([^>]+)>;\s*rel="([^"]+)"`)

// ParseAllLinks extracts all URLs from a Link header by relationship type.
// Returns a map of rel type to URL.
func ParseAllLinks(linkHeader string) map[string]string {
	links := make(map[string]string)
	if linkHeader == "" {
		return links
	}

	parts := strings.Split(linkHeader, ",")
	for _, part := range parts {
		matches := linkRegex.FindStringSubmatch(strings.TrimSpace(part))
		if len(matches) == 3 {
			links[matches[2]] = matches[1]
		}
	}

	return links
}

// LastPage extracts the page number of the rel="last" entry from a Link
// header. List endpoints advertise it on every page except the last one;
// boundary resolution reads it off page 1 to bound its search. Returns
// 0 when the header or the hint is absent.
func LastPage(linkHeader string) int {
	last := ParseAllLinks(linkHeader)["last"]
	if last == "" {
		return 0
	}
	u, err := url.Parse(last)
	if err != nil {
		return 0
	}
	page, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil || page < 1 {
		return 0
	}
	return page
}
