package crawl

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florenceboettger/ghpr-tools/internal/github"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 12, 0, 0, 0, time.UTC)
}

func listItem(number, createdDay int, body string) github.Item {
	it := github.Item{Number: number, CreatedAt: day(createdDay)}
	if body != "" {
		it.Body = &body
	}
	return it
}

func detail(t *testing.T, number int) *github.Object {
	t.Helper()
	obj, err := github.DecodeObject([]byte(fmt.Sprintf(
		`{"number": %d, "diff_url": "https://example.invalid/%d.diff"}`, number, number)))
	require.NoError(t, err)
	return obj
}

func diffURL(number int) string {
	return fmt.Sprintf("https://example.invalid/%d.diff", number)
}

// fakeAPI serves a repository from fixed page and detail maps.
type fakeAPI struct {
	pullPages  map[int]*github.Page
	issuePages map[int]*github.Page
	pulls      map[int]*github.Object
	issues     map[int]*github.Object
	diffs      map[string][]byte

	pullPageCalls  []int
	issuePageCalls []int
	issueCalls     map[int]int

	onPull func(number int)
}

func (a *fakeAPI) PullsPage(_ context.Context, page int) (*github.Page, error) {
	a.pullPageCalls = append(a.pullPageCalls, page)
	p, ok := a.pullPages[page]
	if !ok {
		return nil, github.ErrNotFound
	}
	return p, nil
}

func (a *fakeAPI) IssuesPage(_ context.Context, page int) (*github.Page, error) {
	a.issuePageCalls = append(a.issuePageCalls, page)
	p, ok := a.issuePages[page]
	if !ok {
		return nil, github.ErrNotFound
	}
	return p, nil
}

func (a *fakeAPI) Pull(_ context.Context, number int) (*github.Object, error) {
	if a.onPull != nil {
		a.onPull(number)
	}
	obj, ok := a.pulls[number]
	if !ok {
		return nil, github.ErrNotFound
	}
	return obj, nil
}

func (a *fakeAPI) Issue(_ context.Context, number int) (*github.Object, error) {
	if a.issueCalls == nil {
		a.issueCalls = make(map[int]int)
	}
	a.issueCalls[number]++
	obj, ok := a.issues[number]
	if !ok {
		return nil, github.ErrNotFound
	}
	return obj, nil
}

func (a *fakeAPI) Diff(_ context.Context, url string) ([]byte, error) {
	d, ok := a.diffs[url]
	if !ok {
		return nil, github.ErrNotFound
	}
	return d, nil
}

// memStore records saves in memory, plus the order they happened in.
type memStore struct {
	pulls  map[int]*github.Object
	issues map[int]*github.Object
	diffs  map[int][]byte
	pages  map[int][]byte
	order  []string
}

func newMemStore() *memStore {
	return &memStore{
		pulls:  make(map[int]*github.Object),
		issues: make(map[int]*github.Object),
		diffs:  make(map[int][]byte),
		pages:  make(map[int][]byte),
	}
}

func (s *memStore) SavePull(owner, repo string, number int, pull *github.Object) error {
	s.pulls[number] = pull
	s.order = append(s.order, fmt.Sprintf("pull %d", number))
	return nil
}

func (s *memStore) SaveIssue(owner, repo string, number int, issue *github.Object) error {
	s.issues[number] = issue
	s.order = append(s.order, fmt.Sprintf("issue %d", number))
	return nil
}

func (s *memStore) SaveDiff(owner, repo string, number int, diff []byte) error {
	s.diffs[number] = diff
	s.order = append(s.order, fmt.Sprintf("diff %d", number))
	return nil
}

func (s *memStore) SavePullsPage(owner, repo string, page int, raw []byte) error {
	s.pages[page] = raw
	s.order = append(s.order, fmt.Sprintf("page %d", page))
	return nil
}

func testOptions() Options {
	return Options{
		Owner:           "octo",
		Repo:            "hello",
		Window:          Window{Start: day(10), End: time.Date(2050, 1, 1, 0, 0, 0, 0, time.UTC)},
		PerPage:         4,
		StartPagePulls:  1,
		EndPagePulls:    NoEndBound,
		StartPageIssues: 1,
		EndPageIssues:   NoEndBound,
	}
}

// twoPassAPI is the standard fixture: a full pulls page then a short
// one, and a short issues page. Pull 2 links issue 101 through its
// body; issue 5 only appears in the issue stream.
func twoPassAPI(t *testing.T) *fakeAPI {
	t.Helper()
	return &fakeAPI{
		pullPages: map[int]*github.Page{
			1: {Number: 1, Raw: []byte(`[page one]`), Items: []github.Item{
				listItem(1, 8, ""),
				listItem(7, 9, ""),
				listItem(2, 10, "Closes #101"),
				listItem(3, 12, ""),
			}},
			2: {Number: 2, Raw: []byte(`[page two]`), Items: []github.Item{
				listItem(4, 22, ""),
			}},
		},
		issuePages: map[int]*github.Page{
			1: {Number: 1, Items: []github.Item{
				listItem(6, 3, ""),
				listItem(101, 11, ""),
				listItem(5, 15, ""),
			}},
		},
		pulls: map[int]*github.Object{
			2: detail(t, 2),
			3: detail(t, 3),
			4: detail(t, 4),
		},
		issues: map[int]*github.Object{
			5:   detail(t, 5),
			101: detail(t, 101),
		},
		diffs: map[string][]byte{
			diffURL(2): []byte("diff two"),
			diffURL(3): []byte("diff three"),
			diffURL(4): []byte("diff four"),
		},
	}
}

func TestEngineRun(t *testing.T) {
	api := twoPassAPI(t)
	store := newMemStore()

	engine := NewEngine(api, store, NewStopper(), testOptions())
	require.NoError(t, engine.Run(context.Background()))

	// Pulls 1 and 7 predate the window.
	assert.ElementsMatch(t, []int{2, 3, 4}, keys(store.pulls))
	assert.ElementsMatch(t, []int{2, 3, 4}, keys(store.diffs))
	assert.Equal(t, []byte("diff two"), store.diffs[2])

	// Issue 101 arrives through the pull link, issue 5 through the
	// issue stream, and issue 6 predates the window.
	assert.ElementsMatch(t, []int{5, 101}, keys(store.issues))

	// Short pages end both streams without probing further.
	assert.Equal(t, []int{1, 2}, api.pullPageCalls)
	assert.Equal(t, []int{1}, api.issuePageCalls)
}

func TestEngineRun_WindowEndFiltersItems(t *testing.T) {
	api := twoPassAPI(t)
	store := newMemStore()
	opts := testOptions()
	opts.Window.End = day(20)
	opts.EndPagePulls = 2
	opts.EndPageIssues = 1

	engine := NewEngine(api, store, NewStopper(), opts)
	require.NoError(t, engine.Run(context.Background()))

	// Pull 4 sits on a crawled page but postdates the window.
	assert.ElementsMatch(t, []int{2, 3}, keys(store.pulls))
	assert.Equal(t, []int{1, 2}, api.pullPageCalls)
}

func TestEngineRun_DiffSavedBeforePull(t *testing.T) {
	api := twoPassAPI(t)
	store := newMemStore()

	engine := NewEngine(api, store, NewStopper(), testOptions())
	require.NoError(t, engine.Run(context.Background()))

	assert.Less(t, indexOf(store.order, "diff 2"), indexOf(store.order, "pull 2"))
	assert.Less(t, indexOf(store.order, "pull 2"), indexOf(store.order, "issue 101"))
}

func TestEngineRun_InjectsLinkedIssueNumbers(t *testing.T) {
	api := twoPassAPI(t)
	store := newMemStore()

	engine := NewEngine(api, store, NewStopper(), testOptions())
	require.NoError(t, engine.Run(context.Background()))

	assert.Equal(t, []int{101}, linkedNumbers(t, store.pulls[2]))
	assert.Equal(t, []int{}, linkedNumbers(t, store.pulls[3]),
		"a pull without references should carry an empty list, not null")
}

func TestEngineRun_LinkedIssueFetchedOnce(t *testing.T) {
	api := twoPassAPI(t)
	store := newMemStore()

	engine := NewEngine(api, store, NewStopper(), testOptions())
	require.NoError(t, engine.Run(context.Background()))

	assert.Equal(t, 1, api.issueCalls[101],
		"the issue pass should skip issues already saved through links")
	assert.Equal(t, 1, api.issueCalls[5])
}

func TestEngineRun_SavePullPages(t *testing.T) {
	api := twoPassAPI(t)
	store := newMemStore()
	opts := testOptions()
	opts.SavePullPages = true

	engine := NewEngine(api, store, NewStopper(), opts)
	require.NoError(t, engine.Run(context.Background()))

	require.ElementsMatch(t, []int{1, 2}, keys(store.pages))
	assert.Equal(t, []byte(`[page one]`), store.pages[1])
}

func TestEngineRun_ShortPageEndsStream(t *testing.T) {
	api := twoPassAPI(t)
	store := newMemStore()
	opts := testOptions()
	opts.PerPage = 50

	engine := NewEngine(api, store, NewStopper(), opts)
	require.NoError(t, engine.Run(context.Background()))

	// Four items against a page size of fifty: the first page is
	// also the last, page two is never requested.
	assert.Equal(t, []int{1}, api.pullPageCalls)
}

func TestEngineRun_StopFinishesCurrentPage(t *testing.T) {
	api := twoPassAPI(t)
	store := newMemStore()
	stop := NewStopper()
	api.onPull = func(number int) {
		if number == 2 {
			stop.Request()
		}
	}

	engine := NewEngine(api, store, stop, testOptions())
	require.NoError(t, engine.Run(context.Background()))

	// The stop lands while pull 2 is in flight; pull 3 still belongs
	// to the current page and must be persisted before halting.
	assert.ElementsMatch(t, []int{2, 3}, keys(store.pulls))
	assert.Equal(t, []int{1}, api.pullPageCalls)
	assert.Empty(t, api.issuePageCalls, "issue pass should not start after a stop")
}

func TestEngineRun_StopBeforeStartDoesNothing(t *testing.T) {
	api := twoPassAPI(t)
	store := newMemStore()
	stop := NewStopper()
	stop.Request()

	engine := NewEngine(api, store, stop, testOptions())
	require.NoError(t, engine.Run(context.Background()))

	assert.Empty(t, api.pullPageCalls)
	assert.Empty(t, store.pulls)
}

func TestEngineRun_IssueCap(t *testing.T) {
	api := twoPassAPI(t)
	api.pullPages[1].Items[2] = listItem(2, 10, "Closes #101 and closes #102")
	api.issues[102] = detail(t, 102)
	store := newMemStore()
	opts := testOptions()
	opts.MaxIssues = 1

	engine := NewEngine(api, store, NewStopper(), opts)
	require.NoError(t, engine.Run(context.Background()))

	// All links of the capping pull are still saved, but the next
	// pull on the page is not.
	assert.ElementsMatch(t, []int{2}, keys(store.pulls))
	assert.ElementsMatch(t, []int{101, 102, 5}, keys(store.issues),
		"the cap applies per pass, so the issue pass saves one more")
	assert.Equal(t, []int{1}, api.pullPageCalls)
}

func TestEngineRun_MissingPullSkipped(t *testing.T) {
	api := twoPassAPI(t)
	delete(api.pulls, 2)
	store := newMemStore()

	engine := NewEngine(api, store, NewStopper(), testOptions())
	require.NoError(t, engine.Run(context.Background()))

	assert.ElementsMatch(t, []int{3, 4}, keys(store.pulls),
		"a vanished pull should not stop the rest of the page")
	assert.NotContains(t, keys(store.pulls), 2)
}

func TestEngineRun_MissingLinkedIssueSkipped(t *testing.T) {
	api := twoPassAPI(t)
	delete(api.issues, 101)
	delete(api.issues, 5)
	store := newMemStore()

	engine := NewEngine(api, store, NewStopper(), testOptions())
	require.NoError(t, engine.Run(context.Background()))

	assert.ElementsMatch(t, []int{2, 3, 4}, keys(store.pulls))
	assert.Empty(t, keys(store.issues))
}

func TestEngineRun_MissingListPageEndsStream(t *testing.T) {
	api := twoPassAPI(t)
	delete(api.pullPages, 1)
	delete(api.pullPages, 2)
	store := newMemStore()

	engine := NewEngine(api, store, NewStopper(), testOptions())
	require.NoError(t, engine.Run(context.Background()))

	assert.Empty(t, store.pulls)
	assert.ElementsMatch(t, []int{5, 101}, keys(store.issues),
		"a missing pulls stream should not stop the issue pass")
}

func TestEngineRun_FetchErrorAborts(t *testing.T) {
	api := twoPassAPI(t)
	store := newMemStore()
	fatal := &github.TooManyFailuresError{URL: "u", Tries: 3, Last: fmt.Errorf("boom")}
	failing := &failingPulls{fakeAPI: api, err: fatal}

	engine := NewEngine(failing, store, NewStopper(), testOptions())
	err := engine.Run(context.Background())

	require.Error(t, err)
	assert.True(t, github.IsFatal(err))
}

func TestEngineRun_ExplicitBounds(t *testing.T) {
	api := &fakeAPI{
		pullPages: map[int]*github.Page{
			2: {Number: 2, Items: []github.Item{listItem(2, 10, "")}},
			3: {Number: 3, Items: []github.Item{listItem(3, 12, "")}},
			4: {Number: 4, Items: []github.Item{listItem(4, 14, "")}},
		},
		pulls: map[int]*github.Object{2: detail(t, 2), 3: detail(t, 3), 4: detail(t, 4)},
		diffs: map[string][]byte{
			diffURL(2): []byte("d2"), diffURL(3): []byte("d3"), diffURL(4): []byte("d4"),
		},
		issuePages: map[int]*github.Page{1: {Number: 1}},
	}
	store := newMemStore()
	opts := testOptions()
	opts.PerPage = 1
	opts.StartPagePulls = 2
	opts.EndPagePulls = 3

	engine := NewEngine(api, store, NewStopper(), opts)
	require.NoError(t, engine.Run(context.Background()))

	assert.Equal(t, []int{2, 3}, api.pullPageCalls)
	assert.ElementsMatch(t, []int{2, 3}, keys(store.pulls))
}

func TestEngineRun_ZeroEndBoundSkipsStream(t *testing.T) {
	api := twoPassAPI(t)
	store := newMemStore()
	opts := testOptions()
	opts.EndPagePulls = 0

	engine := NewEngine(api, store, NewStopper(), opts)
	require.NoError(t, engine.Run(context.Background()))

	assert.Empty(t, api.pullPageCalls)
	assert.Empty(t, store.pulls)
	assert.ElementsMatch(t, []int{5, 101}, keys(store.issues))
}

func TestEngineRun_CreationShortcutSkipsSearch(t *testing.T) {
	api := twoPassAPI(t)
	store := newMemStore()
	opts := testOptions()
	opts.StartPagePulls = 0
	opts.StartPageIssues = 0
	opts.RepoCreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	opts.Window.Start = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	engine := NewEngine(api, store, NewStopper(), opts)
	require.NoError(t, engine.Run(context.Background()))

	// Both streams start at page 1 without any search probes, and
	// the future window end leaves them unbounded.
	assert.Equal(t, []int{1, 2}, api.pullPageCalls)
	assert.Equal(t, []int{1}, api.issuePageCalls)
}

// failingPulls overrides the pulls list with a permanent failure.
type failingPulls struct {
	*fakeAPI
	err error
}

func (f *failingPulls) PullsPage(context.Context, int) (*github.Page, error) {
	return nil, f.err
}

func keys[V any](m map[int]V) []int {
	ks := make([]int, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	return ks
}

func indexOf(order []string, entry string) int {
	for i, e := range order {
		if e == entry {
			return i
		}
	}
	return -1
}

func linkedNumbers(t *testing.T, obj *github.Object) []int {
	t.Helper()
	require.NotNil(t, obj)
	raw, err := obj.MarshalIndent()
	require.NoError(t, err)
	var decoded struct {
		Linked []int `json:"linked_issue_numbers"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	if decoded.Linked == nil {
		// Distinguish a missing or null key from an empty list.
		assert.Contains(t, string(raw), `"linked_issue_numbers": []`)
		return []int{}
	}
	return decoded.Linked
}
