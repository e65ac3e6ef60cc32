package crawl

import (
	"context"
	"errors"
	"time"

	"github.com/pterm/pterm"

	"github.com/florenceboettger/ghpr-tools/internal/github"
	"github.com/florenceboettger/ghpr-tools/internal/logger"
)

// API is the slice of the GitHub client the engine consumes.
// *github.RepoAPI satisfies it.
type API interface {
	PullsPage(ctx context.Context, page int) (*github.Page, error)
	IssuesPage(ctx context.Context, page int) (*github.Page, error)
	Pull(ctx context.Context, number int) (*github.Object, error)
	Issue(ctx context.Context, number int) (*github.Object, error)
	Diff(ctx context.Context, diffURL string) ([]byte, error)
}

// Store persists crawled material. Writes replace whatever an earlier
// run left for the same item, which is what makes re-crawls converge.
type Store interface {
	SavePull(owner, repo string, number int, pull *github.Object) error
	SaveIssue(owner, repo string, number int, issue *github.Object) error
	SaveDiff(owner, repo string, number int, diff []byte) error
	SavePullsPage(owner, repo string, page int, raw []byte) error
}

// Options configures a crawl of one repository.
type Options struct {
	Owner string
	Repo  string

	// Window bounds which items are kept, by creation date.
	Window Window

	// PerPage is the list page size. A page shorter than this marks
	// the end of its stream.
	PerPage int

	// Explicit page bounds. A start below 1 or an end below 0 is
	// resolved against the window; an end of 0 binds to an empty
	// stream. The same window can legitimately map to different pages
	// in the two streams, hence one pair per stream.
	StartPagePulls  int
	EndPagePulls    int
	StartPageIssues int
	EndPageIssues   int

	// MaxIssues caps how many issues each pass saves. Zero or
	// negative means unlimited.
	MaxIssues int

	// SavePullPages writes the raw pull list pages alongside the
	// per-item files.
	SavePullPages bool

	// RepoCreatedAt, when known, lets the start page search shortcut
	// to page 1 for windows opening at or before repository creation.
	RepoCreatedAt time.Time
}

// Engine crawls one repository: a pass over the pull request stream,
// then a pass over the issue stream for the issues not already saved
// through pull links. Single-threaded on purpose; the API quota is
// the bottleneck, not the client.
type Engine struct {
	api   API
	store Store
	stop  *Stopper
	opts  Options
	links *LinkExtractor

	saved     map[int]bool
	numPulls  int
	numIssues int
}

// NewEngine builds an engine for one repository crawl.
func NewEngine(api API, store Store, stop *Stopper, opts Options) *Engine {
	if stop == nil {
		stop = NewStopper()
	}
	return &Engine{
		api:   api,
		store: store,
		stop:  stop,
		opts:  opts,
		links: NewLinkExtractor(opts.Owner, opts.Repo),
		saved: make(map[int]bool),
	}
}

// Run resolves the page bounds for both streams and then crawls them.
// It returns nil when stopped through the stopper; only fetch and
// store failures surface as errors.
func (e *Engine) Run(ctx context.Context) error {
	pullsStart, pullsEnd, err := e.resolveBounds(ctx, "pulls",
		PageListerFunc(e.api.PullsPage), e.opts.StartPagePulls, e.opts.EndPagePulls)
	if err != nil {
		return err
	}
	issuesStart, issuesEnd, err := e.resolveBounds(ctx, "issues",
		PageListerFunc(e.api.IssuesPage), e.opts.StartPageIssues, e.opts.EndPageIssues)
	if err != nil {
		return err
	}

	if err := e.crawlPulls(ctx, pullsStart, pullsEnd); err != nil {
		return err
	}
	if e.stop.Requested() {
		logger.Info("crawl: stop requested, skipping issues for %s/%s", e.opts.Owner, e.opts.Repo)
		return nil
	}
	return e.crawlIssues(ctx, issuesStart, issuesEnd)
}

// resolveBounds fills in the page bounds the caller left open.
func (e *Engine) resolveBounds(ctx context.Context, stream string, pages PageLister, start, end int) (int, int, error) {
	r := NewResolver(pages, e.opts.Window)
	var err error
	if start < 1 {
		if beforeCreation(e.opts.Window, e.opts.RepoCreatedAt) {
			start = 1
			logger.Debug("crawl: window opens before %s/%s was created, %s start at page 1",
				e.opts.Owner, e.opts.Repo, stream)
		} else {
			pterm.Info.Printf("Searching for the starting %s page.\n", stream)
			start, err = r.FindStartPage(ctx)
			if err != nil {
				return 0, 0, err
			}
		}
	}
	if end < 0 {
		if e.opts.Window.End.After(time.Now()) {
			end = NoEndBound
			logger.Debug("crawl: window closes in the future, %s end unbounded", stream)
		} else {
			pterm.Info.Printf("Searching for the final %s page.\n", stream)
			end, err = r.FindEndPage(ctx)
			if err != nil {
				return 0, 0, err
			}
		}
	}
	if end < 0 {
		pterm.Info.Printf("Crawling %s from page %d.\n", stream, start)
	} else {
		pterm.Info.Printf("Crawling %s from page %d to page %d.\n", stream, start, end)
	}
	logger.Info("crawl: %s bounds for %s/%s: [%d, %d]", stream, e.opts.Owner, e.opts.Repo, start, end)
	return start, end, nil
}

func (e *Engine) crawlPulls(ctx context.Context, startPage, endPage int) error {
	for page := startPage; !e.stopPage(page, endPage); page++ {
		p, err := e.api.PullsPage(ctx, page)
		if err != nil {
			if errors.Is(err, github.ErrNotFound) {
				logger.Warn("crawl: pulls page %d missing, treating as end of stream", page)
				break
			}
			return err
		}
		if e.opts.SavePullPages {
			if err := e.store.SavePullsPage(e.opts.Owner, e.opts.Repo, page, p.Raw); err != nil {
				return err
			}
		}
		for _, item := range p.Items {
			if !e.opts.Window.Contains(item.CreatedAt) {
				continue
			}
			if err := e.savePull(ctx, item); err != nil {
				return err
			}
			if e.capReached() {
				break
			}
		}
		pterm.Info.Printf("Pulls page %d finished, saved %d issues and %d pull requests (%s/%s).\n",
			page, e.numIssues, e.numPulls, e.opts.Owner, e.opts.Repo)
		if len(p.Items) < e.opts.PerPage || e.capReached() {
			break
		}
	}
	pterm.Info.Printf("Pulls finished, saved %d issues and %d pull requests (%s/%s).\n",
		e.numIssues, e.numPulls, e.opts.Owner, e.opts.Repo)
	logger.Info("crawl: pulls pass done for %s/%s: %d pulls, %d issues",
		e.opts.Owner, e.opts.Repo, e.numPulls, e.numIssues)
	return nil
}

// savePull persists one pull request: its diff first, then its JSON
// with the linked issue numbers folded in, then the linked issues
// themselves.
func (e *Engine) savePull(ctx context.Context, item github.Item) error {
	linked := e.links.Extract(item.Body)

	pull, err := e.api.Pull(ctx, item.Number)
	if err != nil {
		if errors.Is(err, github.ErrNotFound) {
			logger.Warn("crawl: pull %d vanished, skipping", item.Number)
			return nil
		}
		return err
	}
	diff, err := e.api.Diff(ctx, pull.DiffURL())
	if err != nil {
		if errors.Is(err, github.ErrNotFound) {
			logger.Warn("crawl: diff for pull %d vanished, skipping", item.Number)
			return nil
		}
		return err
	}
	if err := e.store.SaveDiff(e.opts.Owner, e.opts.Repo, item.Number, diff); err != nil {
		return err
	}
	pull.Set("linked_issue_numbers", linked)
	if err := e.store.SavePull(e.opts.Owner, e.opts.Repo, item.Number, pull); err != nil {
		return err
	}
	logger.Debug("crawl: saved pull %d with %d linked issues", item.Number, len(linked))

	for _, number := range linked {
		issue, err := e.api.Issue(ctx, number)
		if err != nil {
			if errors.Is(err, github.ErrNotFound) {
				logger.Warn("crawl: linked issue %d vanished, skipping", number)
				continue
			}
			return err
		}
		if err := e.store.SaveIssue(e.opts.Owner, e.opts.Repo, number, issue); err != nil {
			return err
		}
		e.saved[number] = true
		e.numIssues++
	}
	e.numPulls++
	return nil
}

func (e *Engine) crawlIssues(ctx context.Context, startPage, endPage int) error {
	e.numIssues = 0
	for page := startPage; !e.stopPage(page, endPage); page++ {
		p, err := e.api.IssuesPage(ctx, page)
		if err != nil {
			if errors.Is(err, github.ErrNotFound) {
				logger.Warn("crawl: issues page %d missing, treating as end of stream", page)
				break
			}
			return err
		}
		for _, item := range p.Items {
			if e.saved[item.Number] || !e.opts.Window.Contains(item.CreatedAt) {
				continue
			}
			if err := e.saveIssue(ctx, item.Number); err != nil {
				return err
			}
			if e.capReached() {
				break
			}
		}
		pterm.Info.Printf("Issues page %d finished, saved %d issues (%s/%s).\n",
			page, e.numIssues, e.opts.Owner, e.opts.Repo)
		if len(p.Items) < e.opts.PerPage || e.capReached() {
			break
		}
	}
	pterm.Info.Printf("Issues finished, saved %d issues (%s/%s).\n",
		e.numIssues, e.opts.Owner, e.opts.Repo)
	logger.Info("crawl: issues pass done for %s/%s: %d issues", e.opts.Owner, e.opts.Repo, e.numIssues)
	return nil
}

func (e *Engine) saveIssue(ctx context.Context, number int) error {
	issue, err := e.api.Issue(ctx, number)
	if err != nil {
		if errors.Is(err, github.ErrNotFound) {
			logger.Warn("crawl: issue %d vanished, skipping", number)
			return nil
		}
		return err
	}
	if err := e.store.SaveIssue(e.opts.Owner, e.opts.Repo, number, issue); err != nil {
		return err
	}
	e.numIssues++
	return nil
}

// stopPage reports whether the page loop should halt before fetching
// the given page.
func (e *Engine) stopPage(page, endPage int) bool {
	if e.stop.Requested() || e.capReached() {
		return true
	}
	return endPage >= 0 && page > endPage
}

func (e *Engine) capReached() bool {
	return e.opts.MaxIssues > 0 && e.numIssues >= e.opts.MaxIssues
}
