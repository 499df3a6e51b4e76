// Package agenda pages events around a cursor date. Pages before the cursor
// get negative numbers (-1 is the nearest), pages from the cursor on get
// 0, 1, 2, ...
package agenda

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"calsite/internal/model"
	"calsite/internal/timeidx"
)

// ErrPageSize is returned for a page size below one.
var ErrPageSize = errors.New("agenda: page size must be positive")

// Page is one signed chunk of the agenda.
type Page struct {
	Number int
	Events []model.EventID
}

// FileName returns "<number>.html", e.g. "-1.html".
func (p Page) FileName() string {
	return strconv.Itoa(p.Number) + ".html"
}

// Past reports whether the page lies before the cursor.
func (p Page) Past() bool {
	return p.Number < 0
}

// Paginate splits every event of s into pages of at most perPage events.
//
// Events dated strictly before cursor (in loc) are past, the rest future.
// Past events are chunked from the cursor backward so the page nearest the
// cursor is full and any short page is the earliest one; future events are
// chunked forward so any short page is the latest one. The returned pages
// are in chronological order and together hold every event exactly once.
func Paginate(s *model.Store, cursor time.Time, loc *time.Location, perPage int) ([]Page, error) {
	if perPage < 1 {
		return nil, fmt.Errorf("%w: %d", ErrPageSize, perPage)
	}
	today := timeidx.DayOf(cursor, loc)

	var past, future []model.EventID
	for _, id := range s.Chronological() {
		if timeidx.DayOf(s.Get(id).Start(), loc).Compare(today) < 0 {
			past = append(past, id)
		} else {
			future = append(future, id)
		}
	}

	pages := make([]Page, 0, (len(past)+perPage-1)/perPage+(len(future)+perPage-1)/perPage)

	number := -1
	for end := len(past); end > 0; end -= perPage {
		start := max(0, end-perPage)
		pages = append(pages, Page{Number: number, Events: past[start:end:end]})
		number--
	}
	slices.Reverse(pages)

	number = 0
	for start := 0; start < len(future); start += perPage {
		end := min(len(future), start+perPage)
		pages = append(pages, Page{Number: number, Events: future[start:end:end]})
		number++
	}
	return pages, nil
}
