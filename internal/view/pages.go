package view

import (
	"strconv"
	"time"

	"calsite/internal/agenda"
	"calsite/internal/model"
	"calsite/internal/timeidx"
	"calsite/internal/window"
)

// AgendaPage builds the context of one agenda page, with its events grouped
// by calendar date.
func (b *Builder) AgendaPage(t window.Triple[agenda.Page]) (Context, error) {
	page := *t.Cur
	loc := b.opts.Location

	var groups []DayCell
	var last timeidx.DayKey
	for _, id := range page.Events {
		key := timeidx.DayOf(b.store.Get(id).Start(), loc)
		if len(groups) == 0 || key != last {
			d, err := key.Date(loc)
			if err != nil {
				return nil, err
			}
			groups = append(groups, DayCell{
				Date:    d,
				Number:  d.Day(),
				Label:   b.fmt.agenda.FormatString(d),
				Weekday: b.fmt.weekday.FormatString(d),
				Weekend: isWeekend(key.Weekday()),
				Today:   key == b.today,
				Link:    b.Link(Day, key.FileName()),
			})
			last = key
		}
		g := &groups[len(groups)-1]
		g.Events = append(g.Events, b.eventView(id))
	}

	title := "Agenda"
	if len(groups) > 0 {
		title = groups[0].Label
		if n := len(groups); n > 1 {
			title += " - " + groups[n-1].Label
		}
	}

	c := b.base(Agenda, title)
	var prev, next string
	if t.Prev != nil {
		prev = t.Prev.FileName()
	}
	if t.Next != nil {
		next = t.Next.FileName()
	}
	b.neighbours(c, Agenda, prev, next)
	c["number"] = page.Number
	c["page_label"] = strconv.Itoa(page.Number)
	c["past"] = page.Past()
	c["groups"] = groups
	return c, nil
}

// EventPage builds the detail context of one event.
func (b *Builder) EventPage(t window.Triple[model.EventID]) (Context, error) {
	id := *t.Cur
	ev := b.eventView(id)
	loc := b.opts.Location

	c := b.base(Event, ev.Summary)
	var prev, next string
	if t.Prev != nil {
		prev = b.store.Get(*t.Prev).FileName()
	}
	if t.Next != nil {
		next = b.store.Get(*t.Next).FileName()
	}
	b.neighbours(c, Event, prev, next)

	day := timeidx.DayOf(ev.Start, loc)
	c["event"] = ev
	c["day_link"] = b.Link(Day, day.FileName())
	c["week_link"] = b.weekLink(timeidx.WeekOf(ev.Start, loc))
	c["month_link"] = b.monthLink(timeidx.MonthOf(ev.Start, loc))
	c["ends"] = b.fmt.event.FormatString(ev.End)
	c["multi_day"] = !sameDay(ev.Start, ev.End.Add(-time.Nanosecond)) && ev.End.After(ev.Start)
	return c, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
