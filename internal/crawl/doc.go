// Package crawl implements the date-bounded repository crawl: it
// walks the pull request and issue list streams of one repository,
// keeps the items created inside a window, and persists each item's
// detail payload through a store.
//
// # Passes
//
// A crawl is two sequential passes. The pulls pass pages through the
// pull request stream; for every pull inside the window it saves the
// diff, the detail JSON annotated with the issue numbers its body
// closes, and those linked issues. The issues pass then pages through
// the issue stream and saves the in-window issues the first pass did
// not already cover. Issue numbers saved through links are remembered
// across the passes so no issue is fetched twice.
//
// # Page bounds
//
// Both streams are sorted by creation time, so the window maps to a
// contiguous page range. Resolver binary-searches for that range
// using only the first and last item of each probed page, which costs
// O(log n) list requests instead of walking the whole history. When
// the window opens before the repository existed the start is page 1
// without searching, and when it closes in the future the end stays
// unbounded and the crawl runs until a short page.
//
// # Stopping
//
// A Stopper delivers graceful interruption: the engine checks it
// between pages, finishes the page it is on, and skips the remaining
// work. Whatever was already saved stays valid, and a later
// run over the same window converges because saves overwrite.
package crawl
