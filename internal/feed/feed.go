// Package feed exports the event store as a single iCalendar file.
package feed

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"calsite/internal/model"
	"calsite/internal/render"
)

// FileName is the feed written at the output root.
const FileName = "calendar.ics"

// Encode serializes every event in chronological order. stamp is used for
// DTSTAMP so that the same store always encodes to the same bytes.
func Encode(s *model.Store, title string, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//calsite//calsite//EN")
	if title != "" {
		cal.SetName(title)
	}

	for _, id := range s.Chronological() {
		e := s.Get(id)
		ve := cal.AddEvent(uid(e))
		ve.SetDtStampTime(stamp.UTC())
		ve.SetSummary(e.Summary())
		if e.Description() != "" {
			ve.SetDescription(e.Description())
		}
		if e.Location() != "" {
			ve.SetLocation(e.Location())
		}
		if e.AllDay() {
			ve.SetAllDayStartAt(e.Start())
			ve.SetAllDayEndAt(e.End())
		} else {
			ve.SetStartAt(e.Start().UTC())
			ve.SetEndAt(e.End().UTC())
		}
	}
	return cal.Serialize()
}

// Write encodes the store to outDir/calendar.ics.
func Write(outDir string, s *model.Store, title string, stamp time.Time) (string, error) {
	dst := filepath.Join(outDir, FileName)
	if err := render.WriteFile(dst, []byte(Encode(s, title, stamp))); err != nil {
		return "", fmt.Errorf("feed: %w", err)
	}
	return dst, nil
}

// uid keeps the source UID; occurrences of one recurring event share it, so
// the event file name is used to keep them distinct.
func uid(e *model.Event) string {
	name := strings.TrimSuffix(e.FileName(), ".html")
	if e.UID() == "" {
		return name + "@calsite"
	}
	return e.UID() + "/" + name
}
