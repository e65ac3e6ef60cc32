package crawl

import (
	"fmt"
	"regexp"
	"strconv"
)

// closingKeywords are the verbs GitHub recognises as linking a pull
// request to the issues it closes.
const closingKeywords = `close|closes|closed|fix|fixes|fixed|resolve|resolves|resolved`

// LinkExtractor finds issue numbers referenced by closing keywords in
// pull request bodies. Only references to the extractor's own
// repository count: bare #N, owner/repo#N and the full issue URL.
type LinkExtractor struct {
	re *regexp.Regexp
}

// NewLinkExtractor compiles the closing reference pattern for one
// repository. Owner and repository names are quoted before embedding.
func NewLinkExtractor(owner, repo string) *LinkExtractor {
	qOwner := regexp.QuoteMeta(owner)
	qRepo := regexp.QuoteMeta(repo)
	pattern := fmt.Sprintf(
		`(?i)\b(?:%s)\s+(?:https://github\.com/%s/%s/issues/|%s/%s#|#)(\d+)\b`,
		closingKeywords, qOwner, qRepo, qOwner, qRepo)
	return &LinkExtractor{re: regexp.MustCompile(pattern)}
}

// Extract returns the referenced issue numbers in order of
// appearance. Duplicates are kept. A nil body yields no numbers.
func (e *LinkExtractor) Extract(body *string) []int {
	numbers := []int{}
	if body == nil {
		return numbers
	}
	for _, m := range e.re.FindAllStringSubmatch(*body, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}
	return numbers
}
