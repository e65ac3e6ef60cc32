package dataset

import (
	"regexp"
	"strings"
)

// Section is one ownership bucket diff changes are attributed to. A
// changed file belongs to the first section whose prefix matches its
// path.
type Section struct {
	Label  string
	Prefix string
}

// DefaultSections buckets changes by the top-level layout of the
// mined repositories. The final catch-all has an empty prefix, which
// matches every path the named sections do not, so it must stay last.
func DefaultSections() []Section {
	return []Section{
		{Label: "build", Prefix: "build/"},
		{Label: "cli", Prefix: "cli/"},
		{Label: "extensions", Prefix: "extensions/"},
		{Label: "remote", Prefix: "remote/"},
		{Label: "resources", Prefix: "resources/"},
		{Label: "scripts", Prefix: "scripts/"},
		{Label: "src", Prefix: "src/"},
		{Label: "test", Prefix: "test/"},
		{Label: "other", Prefix: ""},
	}
}

// SectionsFromNames builds attribution rules from top-level directory
// names and appends the catch-all.
func SectionsFromNames(names []string) []Section {
	sections := make([]Section, 0, len(names)+1)
	for _, name := range names {
		sections = append(sections, Section{Label: name, Prefix: name + "/"})
	}
	return append(sections, Section{Label: "other", Prefix: ""})
}

// Tally is one section's share of a pull request's changes.
type Tally struct {
	ChangedFiles int
	Additions    int
	Deletions    int
}

var (
	// diffFileRe matches the per-file header of a unified diff and
	// captures the post-image path.
	diffFileRe = regexp.MustCompile(`^diff --git a/(?:.*?) b/(.*)$`)
	// diffAnchorRe matches the --- and +++ file anchors, which start
	// with the change markers but are not changed lines.
	diffAnchorRe = regexp.MustCompile(`^(?:---|\+\+\+) \S*?/(.*)$`)
)

// AttributeSections walks a unified diff and tallies changed files,
// added lines and deleted lines per section. Lines before the first
// file header land in the catch-all, and a file appearing in several
// consecutive headers counts once.
func AttributeSections(sections []Section, diff []byte) []Tally {
	tallies := make([]Tally, len(sections))
	current := len(sections) - 1
	filename := ""
	for _, line := range strings.Split(string(diff), "\n") {
		if m := diffFileRe.FindStringSubmatch(line); m != nil {
			if m[1] != filename {
				filename = m[1]
				current = matchSection(sections, filename)
				tallies[current].ChangedFiles++
			}
			continue
		}
		if strings.HasPrefix(line, "+") && !diffAnchorRe.MatchString(line) {
			tallies[current].Additions++
			continue
		}
		if strings.HasPrefix(line, "-") && !diffAnchorRe.MatchString(line) {
			tallies[current].Deletions++
		}
	}
	return tallies
}

func matchSection(sections []Section, filename string) int {
	for i, s := range sections {
		if strings.HasPrefix(filename, s.Prefix) {
			return i
		}
	}
	return len(sections) - 1
}
