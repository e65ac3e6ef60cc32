package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/pterm/pterm"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/florenceboettger/ghpr-tools/internal/corpus"
	"github.com/florenceboettger/ghpr-tools/internal/crawl"
	"github.com/florenceboettger/ghpr-tools/internal/logger"
)

// Options configures one dataset build.
type Options struct {
	// Window bounds which issues and pull requests contribute rows,
	// by creation date.
	Window crawl.Window

	// LimitRows stops the build after this many rows. Zero or
	// negative writes everything.
	LimitRows int

	// TopicsFile optionally joins per-pull topic probabilities: a CSV
	// whose header names the topics and whose data rows align with
	// the sorted pull numbers of the corpus repository.
	TopicsFile string
}

// errLimitReached stops the traversal once the row limit is hit.
var errLimitReached = errors.New("dataset: row limit reached")

// Builder renders a crawled corpus into dataset rows: one row per
// issue, joined with a pull request when the pull's body links it,
// and an issue-only row otherwise.
type Builder struct {
	store    *corpus.Store
	sections []Section
}

// NewBuilder returns a builder over one corpus.
func NewBuilder(store *corpus.Store) *Builder {
	return &Builder{store: store, sections: DefaultSections()}
}

// SetSections replaces the attribution rules. The last rule must be
// the catch-all; SectionsFromNames builds a valid list.
func (b *Builder) SetSections(sections []Section) {
	b.sections = sections
}

// Run walks the corpus and writes the dataset. Rows come out sorted
// by owner, repository, pull number and then issue number, with each
// repository's unlinked issues after its pull rows. An issue linked
// by a pull appears once, under the pull.
func (b *Builder) Run(sink Sink, opts Options) error {
	topics, topicNames, err := loadTopics(opts.TopicsFile)
	if err != nil {
		return err
	}
	if err := sink.WriteHeader(Columns(b.sections, topicNames)); err != nil {
		return fmt.Errorf("dataset: write header: %w", err)
	}
	refs, err := b.store.Repos()
	if err != nil {
		return err
	}

	r := &run{b: b, sink: sink, opts: opts, topics: topics, topicCount: len(topicNames)}
	for i, ref := range refs {
		pterm.Info.Printf("%s (%d/%d)\n", ref.FullName(), i+1, len(refs))
		r.names = append(r.names, ref.FullName())
		r.rows = append(r.rows, 0)
		repoErr := r.writeRepo(ref)
		if err := sink.Flush(); err != nil {
			return err
		}
		if errors.Is(repoErr, errLimitReached) {
			pterm.Info.Println(r.printer().Sprintf("Limit of %d rows reached.", opts.LimitRows))
			r.report()
			return nil
		}
		if repoErr != nil {
			return repoErr
		}
	}
	pterm.Info.Println("Finished.")
	r.report()
	return nil
}

// run is the mutable state of one Builder.Run call.
type run struct {
	b          *Builder
	sink       Sink
	opts       Options
	topics     [][]string
	topicCount int
	names      []string
	rows       []int
	total      int
}

func (r *run) writeRepo(ref corpus.RepoRef) error {
	emitted := make(map[int]bool)
	if err := r.writePullRows(ref, emitted); err != nil {
		return err
	}
	return r.writeIssueRows(ref, emitted)
}

func (r *run) writePullRows(ref corpus.RepoRef, emitted map[int]bool) error {
	numbers, err := r.b.store.PullNumbers(ref.Owner, ref.Repo)
	if err != nil {
		return err
	}
	bar, _ := pterm.DefaultProgressbar.WithTotal(len(numbers)).WithTitle("Pull requests").Start()
	defer bar.Stop()
	for j, number := range numbers {
		bar.Increment()
		pull, err := r.b.store.ReadPull(ref.Owner, ref.Repo, number)
		if err != nil {
			return err
		}
		if !r.opts.Window.Contains(pull.CreatedAt) {
			continue
		}
		sort.Ints(pull.LinkedIssues)
		diff, err := r.b.store.ReadDiff(ref.Owner, ref.Repo, number)
		if err != nil {
			return err
		}
		tallies := AttributeSections(r.b.sections, diff)
		r.verifyTallies(ref, number, pull, tallies)
		topics, err := r.pullTopics(ref, j, number)
		if err != nil {
			return err
		}
		pc := &pullContext{pull: pull, tallies: tallies, topics: topics}
		for _, issueNumber := range pull.LinkedIssues {
			issue, err := r.b.store.ReadIssue(ref.Owner, ref.Repo, issueNumber)
			if err != nil {
				logger.Warn("dataset: %s pull %d links issue %d with no stored record, skipping",
					ref.FullName(), number, issueNumber)
				continue
			}
			if !r.opts.Window.Contains(issue.CreatedAt) {
				continue
			}
			emitted[issueNumber] = true
			if err := r.writeRow(dataRow(issue, pc, len(r.b.sections), r.topicCount)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) writeIssueRows(ref corpus.RepoRef, emitted map[int]bool) error {
	numbers, err := r.b.store.IssueNumbers(ref.Owner, ref.Repo)
	if err != nil {
		return err
	}
	bar, _ := pterm.DefaultProgressbar.WithTotal(len(numbers)).WithTitle("Issues").Start()
	defer bar.Stop()
	for _, number := range numbers {
		bar.Increment()
		if emitted[number] {
			continue
		}
		issue, err := r.b.store.ReadIssue(ref.Owner, ref.Repo, number)
		if err != nil {
			return err
		}
		if !r.opts.Window.Contains(issue.CreatedAt) {
			continue
		}
		if err := r.writeRow(dataRow(issue, nil, len(r.b.sections), r.topicCount)); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) writeRow(row []string) error {
	if err := r.sink.WriteRow(row); err != nil {
		return err
	}
	r.rows[len(r.rows)-1]++
	r.total++
	if r.opts.LimitRows > 0 && r.total >= r.opts.LimitRows {
		return errLimitReached
	}
	return nil
}

// verifyTallies cross-checks the attributed sections against the
// pull's own counters. Mismatches are logged, never fatal: merge
// commits and binary files legitimately throw the diff off.
func (r *run) verifyTallies(ref corpus.RepoRef, number int, pull *corpus.Pull, tallies []Tally) {
	checks := []struct {
		name  string
		total int
		value func(Tally) int
	}{
		{"changed_files", pull.ChangedFiles, func(t Tally) int { return t.ChangedFiles }},
		{"additions", pull.Additions, func(t Tally) int { return t.Additions }},
		{"deletions", pull.Deletions, func(t Tally) int { return t.Deletions }},
	}
	for _, c := range checks {
		sum := 0
		values := make([]int, len(tallies))
		for i, tally := range tallies {
			values[i] = c.value(tally)
			sum += values[i]
		}
		if sum != c.total {
			logger.Warn("dataset: %s pull %d: %s sections %v sum to %d, record reports %d",
				ref.FullName(), number, c.name, values, sum, c.total)
		}
	}
}

func (r *run) pullTopics(ref corpus.RepoRef, j, number int) ([]string, error) {
	if r.topics == nil {
		return nil, nil
	}
	if j+1 >= len(r.topics) {
		return nil, fmt.Errorf("dataset: topics file ends at row %d, no row for %s pull %d",
			len(r.topics)-1, ref.FullName(), number)
	}
	return r.topics[j+1][1:], nil
}

func (r *run) printer() *message.Printer {
	return message.NewPrinter(language.English)
}

func (r *run) report() {
	p := r.printer()
	for i, name := range r.names {
		pterm.Info.Println(p.Sprintf("%s: %d", name, r.rows[i]))
	}
	pterm.Info.Println(p.Sprintf("Total: %d", r.total))
}

func loadTopics(path string) ([][]string, []string, error) {
	if path == "" {
		return nil, nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("dataset: open topics file: %w", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("dataset: read topics file: %w", err)
	}
	if len(rows) == 0 || len(rows[0]) < 2 {
		return nil, nil, fmt.Errorf("dataset: topics file %s has no topic columns", path)
	}
	return rows, rows[0][1:], nil
}
