package view

import (
	"time"

	"calsite/internal/model"
	"calsite/internal/timeidx"
	"calsite/internal/window"
)

// EventView is one event as shown in a listing.
type EventView struct {
	ID          model.EventID
	Summary     string
	Description string
	Location    string
	AllDay      bool
	Start       time.Time
	End         time.Time
	When        string // full start label
	TimeLabel   string // "09:00 - 10:00", or empty for all-day events
	Link        string // event page
}

// DayCell is one day in a month grid, a week or an agenda group.
type DayCell struct {
	Date       time.Time
	Number     int // day of month, 0 for blank cells
	Label      string
	Weekday    string
	Weekend    bool
	Today      bool
	Blank      bool // placeholder for a day of an adjacent month
	OtherMonth bool // real day outside the month of the page's first day
	Link       string
	Events     []EventView
}

// WeekRow is one row of a month grid.
type WeekRow struct {
	Year int // ISO year
	Week int // ISO week
	Link string
	Days []DayCell
}

func (b *Builder) eventView(id model.EventID) EventView {
	ev := b.store.Get(id)
	loc := b.opts.Location
	start, end := ev.Start().In(loc), ev.End().In(loc)
	v := EventView{
		ID:          id,
		Summary:     ev.Summary(),
		Description: ev.Description(),
		Location:    ev.Location(),
		AllDay:      ev.AllDay(),
		Start:       start,
		End:         end,
		When:        b.fmt.event.FormatString(start),
		Link:        b.Link(Event, ev.FileName()),
	}
	if !ev.AllDay() {
		v.TimeLabel = b.fmt.clock.FormatString(start)
		if ev.Duration() > 0 {
			v.TimeLabel += " - " + b.fmt.clock.FormatString(end)
		}
	}
	return v
}

func (b *Builder) eventViews(ids []model.EventID) []EventView {
	out := make([]EventView, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.eventView(id))
	}
	return out
}

// dayCell fills a real (non-blank) day with the events of its day bucket.
func (b *Builder) dayCell(key timeidx.DayKey) DayCell {
	d := key.Time(b.opts.Location)
	c := DayCell{
		Date:    d,
		Number:  key.Day,
		Label:   b.fmt.day.FormatString(d),
		Weekday: b.fmt.weekday.FormatString(d),
		Weekend: isWeekend(key.Weekday()),
		Today:   key == b.today,
	}
	if ids, ok := b.idx.Days.Get(key); ok {
		c.Link = b.Link(Day, key.FileName())
		c.Events = b.eventViews(ids)
	}
	return c
}

func (b *Builder) blankCell(key timeidx.DayKey) DayCell {
	d := key.Time(b.opts.Location)
	return DayCell{
		Date:    d,
		Blank:   true,
		Weekday: b.fmt.weekday.FormatString(d),
		Weekend: isWeekend(key.Weekday()),
	}
}

func (b *Builder) weekLink(k timeidx.WeekKey) string {
	if !b.idx.Weeks.Has(k) {
		return ""
	}
	return b.Link(Week, k.FileName())
}

func (b *Builder) monthLink(k timeidx.MonthKey) string {
	if !b.idx.Months.Has(k) {
		return ""
	}
	return b.Link(Month, k.FileName())
}

func fileOf[K timeidx.Key[K]](k *K) string {
	if k == nil {
		return ""
	}
	return (*k).FileName()
}

// MonthPage builds the context of one month. The grid starts on the
// configured week start; days of the previous and next month that share a
// row with the month are blank placeholders without events. Grid arithmetic
// runs on calendar dates, so a day without a local midnight still gets its
// own cell.
func (b *Builder) MonthPage(t window.Triple[timeidx.MonthKey]) (Context, error) {
	key := *t.Cur
	loc := b.opts.Location
	firstDay, lastDay, err := key.Days()
	if err != nil {
		return nil, err
	}

	offset := (int(firstDay.Weekday()) - int(b.opts.WeekStart) + 7) % 7
	d := firstDay.AddDays(-offset)

	dayNames := make([]string, 0, 7)
	for i := range 7 {
		dayNames = append(dayNames, b.fmt.weekday.FormatString(d.AddDays(i).Time(loc)))
	}

	var weeks []WeekRow
	for d.Compare(lastDay) <= 0 {
		row := WeekRow{Days: make([]DayCell, 0, 7)}
		for range 7 {
			if d.Month == key.Month && d.Year == key.Year {
				row.Days = append(row.Days, b.dayCell(d))
			} else {
				row.Days = append(row.Days, b.blankCell(d))
			}
			if d.Weekday() == time.Monday {
				wk := timeidx.WeekOf(d.Time(loc), loc)
				row.Year, row.Week = wk.Year, wk.Week
				row.Link = b.weekLink(wk)
			}
			d = d.AddDays(1)
		}
		weeks = append(weeks, row)
	}

	ids, _ := b.idx.Months.Get(key)
	first, last := firstDay.Time(loc), lastDay.Time(loc)

	c := b.base(Month, b.fmt.month.FormatString(first))
	b.neighbours(c, Month, fileOf(t.Prev), fileOf(t.Next))
	c["first"] = first
	c["last"] = last
	c["day_names"] = dayNames
	c["weeks"] = weeks
	c["events"] = b.eventViews(ids)
	c["current"] = key == timeidx.MonthOf(b.opts.Today, loc)
	return c, nil
}

// WeekPage builds the context of one ISO week. A week spanning two months
// shows all seven days; those outside the Monday's month are flagged
// OtherMonth.
func (b *Builder) WeekPage(t window.Triple[timeidx.WeekKey]) (Context, error) {
	key := *t.Cur
	loc := b.opts.Location
	firstDay, lastDay, err := key.Days()
	if err != nil {
		return nil, err
	}

	days := make([]DayCell, 0, 7)
	for d := firstDay; d.Compare(lastDay) <= 0; d = d.AddDays(1) {
		c := b.dayCell(d)
		c.OtherMonth = d.Month != firstDay.Month
		days = append(days, c)
	}

	ids, _ := b.idx.Weeks.Get(key)
	first, last := firstDay.Time(loc), lastDay.Time(loc)

	c := b.base(Week, b.fmt.week.FormatString(first))
	b.neighbours(c, Week, fileOf(t.Prev), fileOf(t.Next))
	c["first"] = first
	c["last"] = last
	c["range_label"] = b.fmt.day.FormatString(first) + " - " + b.fmt.day.FormatString(last)
	c["days"] = days
	c["events"] = b.eventViews(ids)
	c["month_link"] = b.monthLink(timeidx.MonthOf(first, loc))
	return c, nil
}

// DayPage builds the context of one day.
func (b *Builder) DayPage(t window.Triple[timeidx.DayKey]) (Context, error) {
	key := *t.Cur
	d, err := key.Date(b.opts.Location)
	if err != nil {
		return nil, err
	}

	c := b.base(Day, b.fmt.day.FormatString(d))
	b.neighbours(c, Day, fileOf(t.Prev), fileOf(t.Next))
	cell := b.dayCell(key)
	c["day"] = cell
	c["events"] = cell.Events
	c["weekend"] = isWeekend(key.Weekday())
	c["today"] = key == b.today
	c["week_link"] = b.weekLink(timeidx.WeekOf(d, b.opts.Location))
	c["month_link"] = b.monthLink(timeidx.MonthOf(d, b.opts.Location))
	return c, nil
}
