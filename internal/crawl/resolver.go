package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/florenceboettger/ghpr-tools/internal/github"
	"github.com/florenceboettger/ghpr-tools/internal/logger"
)

// NoEndBound marks a stream as unbounded on the right: the crawl runs
// until it sees a short page instead of stopping at a known page.
const NoEndBound = -1

// PageLister fetches one page of a single list stream.
type PageLister interface {
	Page(ctx context.Context, page int) (*github.Page, error)
}

// PageListerFunc adapts a function to the PageLister interface.
type PageListerFunc func(ctx context.Context, page int) (*github.Page, error)

// Page calls f.
func (f PageListerFunc) Page(ctx context.Context, page int) (*github.Page, error) {
	return f(ctx, page)
}

// Resolver locates the pages of a created-ascending list stream that
// bracket a date window, so the crawl can skip everything outside it.
// List streams are sorted by creation time, which makes the first and
// last item of a page enough to place the whole page relative to the
// window.
type Resolver struct {
	pages  PageLister
	window Window
}

// NewResolver builds a resolver over one list stream.
func NewResolver(pages PageLister, window Window) *Resolver {
	return &Resolver{pages: pages, window: window}
}

// FindStartPage returns the first page that can contain an item
// created inside the window. When the stream carries no last page
// hint the search degrades to starting at page 1.
func (r *Resolver) FindStartPage(ctx context.Context) (int, error) {
	first, err := r.pages.Page(ctx, 1)
	if err != nil {
		return 0, fmt.Errorf("resolve start page: %w", err)
	}
	last := first.LastPage
	if last < 1 {
		return 1, nil
	}
	lo, hi := 1, last
	for lo < hi {
		mid := (lo + hi) / 2
		p, err := r.probe(ctx, mid, lo, hi)
		if err != nil {
			return 0, err
		}
		switch {
		case len(p.Items) == 0 || r.window.Start.Before(p.Items[0].CreatedAt):
			hi = mid
		case r.window.Start.After(p.Items[len(p.Items)-1].CreatedAt):
			lo = mid + 1
		default:
			return mid, nil
		}
	}
	p, err := r.probe(ctx, lo, lo, hi)
	if err != nil {
		return 0, err
	}
	if len(p.Items) > 0 && r.window.Start.After(p.Items[len(p.Items)-1].CreatedAt) {
		return lo + 1, nil
	}
	return lo, nil
}

// FindEndPage returns the last page that can contain an item created
// inside the window. A result of 0 means every item postdates the
// window. Without a last page hint the stream stays unbounded.
func (r *Resolver) FindEndPage(ctx context.Context) (int, error) {
	first, err := r.pages.Page(ctx, 1)
	if err != nil {
		return 0, fmt.Errorf("resolve end page: %w", err)
	}
	last := first.LastPage
	if last < 1 {
		return NoEndBound, nil
	}
	lo, hi := 1, last
	for lo < hi {
		mid := (lo + hi + 1) / 2
		p, err := r.probe(ctx, mid, lo, hi)
		if err != nil {
			return 0, err
		}
		switch {
		case len(p.Items) == 0 || r.window.End.Before(p.Items[0].CreatedAt):
			hi = mid - 1
		case r.window.End.After(p.Items[len(p.Items)-1].CreatedAt):
			lo = mid
		default:
			return mid, nil
		}
	}
	p, err := r.probe(ctx, lo, lo, hi)
	if err != nil {
		return 0, err
	}
	if len(p.Items) == 0 || r.window.End.Before(p.Items[0].CreatedAt) {
		return lo - 1, nil
	}
	return lo, nil
}

func (r *Resolver) probe(ctx context.Context, page, lo, hi int) (*github.Page, error) {
	logger.Debug("resolve: probing page %d in [%d, %d]", page, lo, hi)
	p, err := r.pages.Page(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("resolve: probe page %d: %w", page, err)
	}
	return p, nil
}

// beforeCreation reports whether the window opens at or before the
// repository's creation, in which case no item can predate it and the
// start search is unnecessary.
func beforeCreation(w Window, createdAt time.Time) bool {
	return !createdAt.IsZero() && !w.Start.After(createdAt)
}
