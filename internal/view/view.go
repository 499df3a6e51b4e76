// Package view shapes the data handed to the page templates. Nothing here
// renders or writes; every method returns a Context for one page.
package view

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"

	"calsite/internal/model"
	"calsite/internal/timeidx"
)

// Names of the generated views. They double as output subdirectories.
const (
	Month  = "month"
	Week   = "week"
	Day    = "day"
	Agenda = "agenda"
	Event  = "event"
)

// Views lists every view in generation order.
var Views = []string{Month, Week, Day, Agenda, Event}

// Context is the named-value mapping consumed by a page template.
type Context map[string]any

// Formats holds strftime-style patterns (e.g. "%B %Y") per label kind.
type Formats struct {
	Month   string `yaml:"month" json:"month"`
	Week    string `yaml:"week" json:"week"`
	Day     string `yaml:"day" json:"day"`
	Agenda  string `yaml:"agenda" json:"agenda"`
	Event   string `yaml:"event" json:"event"`
	Time    string `yaml:"time" json:"time"`
	Weekday string `yaml:"weekday" json:"weekday"`
}

// DefaultFormats returns the patterns used when none are configured.
func DefaultFormats() Formats {
	return Formats{
		Month:   "%B %Y",
		Week:    "Week %V, %Y",
		Day:     "%A, %B %e, %Y",
		Agenda:  "%a %b %e, %Y",
		Event:   "%A, %B %e, %Y %H:%M",
		Time:    "%H:%M",
		Weekday: "%a",
	}
}

// Options configures a Builder.
type Options struct {
	Location  *time.Location
	Today     time.Time
	BaseURL   string
	Title     string
	WeekStart time.Weekday
	Formats   Formats
}

type formatters struct {
	month, week, day, agenda, event, clock, weekday *strftime.Strftime
}

// Builder builds page contexts for one generation run.
type Builder struct {
	store *model.Store
	idx   *timeidx.Index
	opts  Options
	today timeidx.DayKey
	fmt   formatters
}

type pattern struct {
	dst  **strftime.Strftime
	name string
	p    string
}

// NewBuilder compiles the configured formats. Empty patterns fall back to
// DefaultFormats.
func NewBuilder(s *model.Store, idx *timeidx.Index, opts Options) (*Builder, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	b := &Builder{store: s, idx: idx, opts: opts, today: timeidx.DayOf(opts.Today, opts.Location)}

	def := DefaultFormats()
	pick := func(p, d string) string {
		if strings.TrimSpace(p) == "" {
			return d
		}
		return p
	}
	f := opts.Formats
	patterns := []pattern{
		{&b.fmt.month, "month", pick(f.Month, def.Month)},
		{&b.fmt.week, "week", pick(f.Week, def.Week)},
		{&b.fmt.day, "day", pick(f.Day, def.Day)},
		{&b.fmt.agenda, "agenda", pick(f.Agenda, def.Agenda)},
		{&b.fmt.event, "event", pick(f.Event, def.Event)},
		{&b.fmt.clock, "time", pick(f.Time, def.Time)},
		{&b.fmt.weekday, "weekday", pick(f.Weekday, def.Weekday)},
	}
	for _, p := range patterns {
		c, err := strftime.New(p.p)
		if err != nil {
			return nil, fmt.Errorf("view: %s format %q: %w", p.name, p.p, err)
		}
		*p.dst = c
	}
	return b, nil
}

// Link returns the absolute URL path of file in view, below the base path.
func (b *Builder) Link(view, file string) string {
	base := "/" + strings.Trim(b.opts.BaseURL, "/")
	return path.Join(base, view, file)
}

// base returns the keys shared by every page.
func (b *Builder) base(viewName, title string) Context {
	nav := make(map[string]string, len(Views))
	for _, v := range Views {
		nav[v] = b.Link(v, "index.html")
	}
	return Context{
		"site_title": b.opts.Title,
		"view":       viewName,
		"title":      title,
		"nav":        nav,
		"index_link": b.Link(viewName, "index.html"),
		"prev_link":  "",
		"next_link":  "",
	}
}

// neighbours sets prev_link / next_link when the neighbour exists.
func (b *Builder) neighbours(c Context, viewName string, prev, next string) {
	if prev != "" {
		c["prev_link"] = b.Link(viewName, prev)
	}
	if next != "" {
		c["next_link"] = b.Link(viewName, next)
	}
}

func isWeekend(wd time.Weekday) bool {
	return wd == time.Saturday || wd == time.Sunday
}
