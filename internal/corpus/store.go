// Package corpus stores crawled repository material on disk and reads
// it back for dataset building. The layout is one directory per
// repository under the corpus root:
//
//	<root>/<owner>/<repo>/pull-N.json
//	<root>/<owner>/<repo>/pull-N.diff
//	<root>/<owner>/<repo>/issue-N.json
//	<root>/<owner>/<repo>/pulls-page-N.json
//
// Detail records are written as indented JSON with sorted keys, so
// re-crawling an unchanged item rewrites an identical file.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/florenceboettger/ghpr-tools/internal/github"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Store reads and writes one corpus directory tree.
type Store struct {
	root string
}

// NewStore returns a store rooted at the given directory. The
// directory does not need to exist yet; writes create it.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the corpus root directory.
func (s *Store) Root() string {
	return s.root
}

// RepoDir returns the directory holding one repository's files.
func (s *Store) RepoDir(owner, repo string) string {
	return filepath.Join(s.root, owner, repo)
}

// SavePull writes a pull request detail record.
func (s *Store) SavePull(owner, repo string, number int, pull *github.Object) error {
	data, err := pull.MarshalIndent()
	if err != nil {
		return fmt.Errorf("corpus: encode pull %d: %w", number, err)
	}
	return s.write(owner, repo, pullFile(number), data)
}

// SaveIssue writes an issue detail record.
func (s *Store) SaveIssue(owner, repo string, number int, issue *github.Object) error {
	data, err := issue.MarshalIndent()
	if err != nil {
		return fmt.Errorf("corpus: encode issue %d: %w", number, err)
	}
	return s.write(owner, repo, issueFile(number), data)
}

// SaveDiff writes a pull request's unified diff verbatim.
func (s *Store) SaveDiff(owner, repo string, number int, diff []byte) error {
	return s.write(owner, repo, diffFile(number), diff)
}

// SavePullsPage writes one raw page of the pull request list.
func (s *Store) SavePullsPage(owner, repo string, page int, raw []byte) error {
	return s.write(owner, repo, fmt.Sprintf("pulls-page-%d.json", page), raw)
}

func (s *Store) write(owner, repo, name string, data []byte) error {
	dir := s.RepoDir(owner, repo)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("corpus: create %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("corpus: write %s: %w", path, err)
	}
	return nil
}

// RepoRef names one repository found in the corpus.
type RepoRef struct {
	Owner string
	Repo  string
}

// FullName returns the owner/repo form.
func (r RepoRef) FullName() string {
	return r.Owner + "/" + r.Repo
}

// Repos lists every repository in the corpus, sorted by owner and
// then repository name.
func (s *Store) Repos() ([]RepoRef, error) {
	owners, err := subdirs(s.root)
	if err != nil {
		return nil, fmt.Errorf("corpus: list owners: %w", err)
	}
	var refs []RepoRef
	for _, owner := range owners {
		repos, err := subdirs(filepath.Join(s.root, owner))
		if err != nil {
			return nil, fmt.Errorf("corpus: list repositories of %s: %w", owner, err)
		}
		for _, repo := range repos {
			refs = append(refs, RepoRef{Owner: owner, Repo: repo})
		}
	}
	return refs, nil
}

// PullNumbers lists the pull request numbers stored for a repository,
// in ascending numeric order.
func (s *Store) PullNumbers(owner, repo string) ([]int, error) {
	return s.numbers(owner, repo, "pull-", ".json")
}

// IssueNumbers lists the issue numbers stored for a repository, in
// ascending numeric order.
func (s *Store) IssueNumbers(owner, repo string) ([]int, error) {
	return s.numbers(owner, repo, "issue-", ".json")
}

// ReadPull reads one stored pull request record.
func (s *Store) ReadPull(owner, repo string, number int) (*Pull, error) {
	var pull Pull
	if err := s.readJSON(owner, repo, pullFile(number), &pull); err != nil {
		return nil, err
	}
	return &pull, nil
}

// ReadIssue reads one stored issue record.
func (s *Store) ReadIssue(owner, repo string, number int) (*Issue, error) {
	var issue Issue
	if err := s.readJSON(owner, repo, issueFile(number), &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// ReadDiff reads one stored diff.
func (s *Store) ReadDiff(owner, repo string, number int) ([]byte, error) {
	path := filepath.Join(s.RepoDir(owner, repo), diffFile(number))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: read %s: %w", path, err)
	}
	return data, nil
}

func (s *Store) readJSON(owner, repo, name string, v any) error {
	path := filepath.Join(s.RepoDir(owner, repo), name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("corpus: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("corpus: decode %s: %w", path, err)
	}
	return nil
}

func (s *Store) numbers(owner, repo, prefix, suffix string) ([]int, error) {
	dir := s.RepoDir(owner, repo)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("corpus: list %s: %w", dir, err)
	}
	var ns []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		rest, ok := strings.CutPrefix(entry.Name(), prefix)
		if !ok {
			continue
		}
		rest, ok = strings.CutSuffix(rest, suffix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		ns = append(ns, n)
	}
	sort.Ints(ns)
	return ns, nil
}

func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func pullFile(number int) string {
	return fmt.Sprintf("pull-%d.json", number)
}

func diffFile(number int) string {
	return fmt.Sprintf("pull-%d.diff", number)
}

func issueFile(number int) string {
	return fmt.Sprintf("issue-%d.json", number)
}
