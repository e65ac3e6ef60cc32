package crawl

import (
	"fmt"
	"time"
)

// dateLayout is the YYYY-MM-DD form taken on the command line.
// Dates parse as midnight UTC, the same instant the API's
// created_at timestamps are compared against.
const dateLayout = "2006-01-02"

// Window is the inclusive date range bounding which items a crawl or
// a dataset build includes. Immutable for a run.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow builds a window and validates its ordering.
func NewWindow(start, end time.Time) (Window, error) {
	if end.Before(start) {
		return Window{}, fmt.Errorf("crawl: window start %s after end %s",
			start.Format(dateLayout), end.Format(dateLayout))
	}
	return Window{Start: start, End: end}, nil
}

// ParseWindow builds a window from two YYYY-MM-DD dates.
func ParseWindow(startDate, endDate string) (Window, error) {
	start, err := time.ParseInLocation(dateLayout, startDate, time.UTC)
	if err != nil {
		return Window{}, fmt.Errorf("crawl: parse start date: %w", err)
	}
	end, err := time.ParseInLocation(dateLayout, endDate, time.UTC)
	if err != nil {
		return Window{}, fmt.Errorf("crawl: parse end date: %w", err)
	}
	return NewWindow(start, end)
}

// Contains reports whether t falls inside the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
