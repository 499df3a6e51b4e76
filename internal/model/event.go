package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrMalformedEvent is returned when an event is missing a required field.
var ErrMalformedEvent = errors.New("malformed event")

// EventID is a stable handle into a Store. Buckets and pages hold EventIDs,
// never copies of the event itself.
type EventID int

// Fields is the mutable input used to construct an Event, typically one
// occurrence produced by the ICS parser (after optional recurrence expansion).
type Fields struct {
	SourceID string // calendar source ID (e.g., config source ID)
	UID      string // iCalendar UID

	Summary     string
	Description string
	Location    string

	AllDay bool

	// Start / End are absolute instants with their timezone already resolved.
	Start time.Time
	End   time.Time
}

// Event is an immutable calendar event. All fields are private; use the
// accessors. A single Event is shared by every bucket and page it appears in.
type Event struct {
	id       EventID
	sourceID string
	uid      string

	summary     string
	description string
	location    string

	allDay   bool
	start    time.Time
	duration time.Duration
}

// NewEvent validates f and builds an Event. The returned event has ID 0 until
// it is added to a Store.
func NewEvent(f Fields) (Event, error) {
	if strings.TrimSpace(f.Summary) == "" {
		return Event{}, fmt.Errorf("model: summary is empty: %w", ErrMalformedEvent)
	}
	if f.Start.IsZero() {
		return Event{}, fmt.Errorf("model: %q has no start: %w", f.Summary, ErrMalformedEvent)
	}
	if f.End.IsZero() {
		return Event{}, fmt.Errorf("model: %q has no end: %w", f.Summary, ErrMalformedEvent)
	}
	d := f.End.Sub(f.Start)
	if d < 0 {
		return Event{}, fmt.Errorf("model: %q ends before it starts: %w", f.Summary, ErrMalformedEvent)
	}
	return Event{
		sourceID:    f.SourceID,
		uid:         f.UID,
		summary:     f.Summary,
		description: f.Description,
		location:    f.Location,
		allDay:      f.AllDay,
		start:       f.Start,
		duration:    d,
	}, nil
}

func (e *Event) ID() EventID             { return e.id }
func (e *Event) SourceID() string        { return e.sourceID }
func (e *Event) UID() string             { return e.uid }
func (e *Event) Summary() string         { return e.summary }
func (e *Event) Description() string     { return e.description }
func (e *Event) Location() string        { return e.location }
func (e *Event) AllDay() bool            { return e.allDay }
func (e *Event) Start() time.Time        { return e.start }
func (e *Event) Duration() time.Duration { return e.duration }
func (e *Event) End() time.Time          { return e.start.Add(e.duration) }

// Year returns the calendar year of the event start in loc.
func (e *Event) Year(loc *time.Location) int {
	return e.start.In(loc).Year()
}

// ISOWeek returns the ISO 8601 year and week of the event start in loc.
func (e *Event) ISOWeek(loc *time.Location) (year, week int) {
	return e.start.In(loc).ISOWeek()
}

// eventNamespace scopes the name-based UUIDs used for event file names.
var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("calsite:event"))

// FileName derives a stable page file name from the event identity: UID (or
// source and summary when the UID is missing) plus the start instant, so
// every occurrence of a recurring event gets its own page.
func (e *Event) FileName() string {
	identity := e.uid
	if identity == "" {
		identity = e.sourceID + "\x00" + e.summary
	}
	key := identity + "\x00" + e.start.UTC().Format(time.RFC3339Nano)
	id := uuid.NewSHA1(eventNamespace, []byte(key))
	return e.start.UTC().Format("2006-01-02") + "-" + id.String()[:13] + ".html"
}
