// Package index picks the page of a view that doubles as its index.
//
// The rule: the first page, in chronological order, whose date range ends
// on or after the cursor date. When every page is in the past the last page
// is used instead.
package index

import "calsite/internal/timeidx"

// Select returns the position of the index page in pages, or -1 when pages
// is empty. end returns the last date a page covers.
func Select[P any](pages []P, cursor timeidx.DayKey, end func(P) timeidx.DayKey) int {
	for i, p := range pages {
		if end(p).Compare(cursor) >= 0 {
			return i
		}
	}
	return len(pages) - 1
}

// State is the index state of one view during generation.
type State int

const (
	// Scanning means no index page has been chosen yet.
	Scanning State = iota
	// IndexWritten is terminal: the view has its index.
	IndexWritten
)

func (s State) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case IndexWritten:
		return "index-written"
	default:
		return "unknown"
	}
}

// Tracker applies the selection rule while pages are generated one by one.
// Observe reports true for exactly one page; if the view ends while still
// Scanning, the caller writes its last page as the index and calls Finish.
type Tracker struct {
	cursor timeidx.DayKey
	state  State
}

// NewTracker returns a Tracker in the Scanning state.
func NewTracker(cursor timeidx.DayKey) *Tracker {
	return &Tracker{cursor: cursor}
}

// Observe is called for each page in order with the last date it covers.
// It returns true when this page is the index.
func (t *Tracker) Observe(end timeidx.DayKey) bool {
	if t.state != Scanning {
		return false
	}
	if end.Compare(t.cursor) >= 0 {
		t.state = IndexWritten
		return true
	}
	return false
}

// Finish moves a still-scanning tracker to IndexWritten and reports whether
// the fallback (last page) index has to be written.
func (t *Tracker) Finish() bool {
	if t.state != Scanning {
		return false
	}
	t.state = IndexWritten
	return true
}

// State returns the current state.
func (t *Tracker) State() State {
	return t.state
}
