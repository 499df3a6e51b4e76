package view

import (
	"fmt"
	"reflect"
	"testing"
	"time"
	_ "time/tzdata"

	"calsite/internal/agenda"
	"calsite/internal/model"
	"calsite/internal/timeidx"
	"calsite/internal/window"
)

func fixture(t *testing.T, weekStart time.Weekday) (*model.Store, *Builder) {
	t.Helper()
	s := model.NewStore()
	add := func(summary string, start time.Time, d time.Duration, allDay bool) {
		if _, err := s.Add(model.Fields{Summary: summary, Start: start, End: start.Add(d), AllDay: allDay}); err != nil {
			t.Fatalf("add %q: %v", summary, err)
		}
	}
	add("standup", time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC), 15*time.Minute, false)
	add("holiday", time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), 24*time.Hour, true)
	add("retro", time.Date(2024, 4, 1, 14, 0, 0, 0, time.UTC), time.Hour, false)

	b, err := NewBuilder(s, timeidx.Build(s, time.UTC), Options{
		Location:  time.UTC,
		Today:     time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
		BaseURL:   "/cal/",
		Title:     "Test",
		WeekStart: weekStart,
	})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return s, b
}

func TestMonthPageBlankDays(t *testing.T) {
	_, b := fixture(t, time.Monday)
	march := timeidx.MonthKey{Year: 2024, Month: time.March}
	april := timeidx.MonthKey{Year: 2024, Month: time.April}

	c, err := b.MonthPage(window.Triple[timeidx.MonthKey]{Cur: &march, Next: &april})
	if err != nil {
		t.Fatalf("MonthPage: %v", err)
	}
	weeks := c["weeks"].([]WeekRow)
	if len(weeks) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(weeks))
	}
	first := weeks[0].Days
	// March 2024 starts on a Friday: Mon-Thu are February placeholders.
	for i := 0; i < 4; i++ {
		if !first[i].Blank || len(first[i].Events) != 0 || first[i].Number != 0 {
			t.Fatalf("day %d of first row should be a blank placeholder: %+v", i, first[i])
		}
		if first[i].Date.Month() != time.February {
			t.Fatalf("placeholder %d should belong to February, got %v", i, first[i].Date)
		}
	}
	if first[4].Blank || first[4].Number != 1 {
		t.Fatalf("expected March 1st at position 4, got %+v", first[4])
	}
	if !first[5].Weekend || !first[6].Weekend || first[4].Weekend {
		t.Fatalf("unexpected weekend flags in first row")
	}
	if weeks[0].Week != 9 || weeks[0].Link != "" {
		t.Fatalf("unexpected first row week %d link %q", weeks[0].Week, weeks[0].Link)
	}

	fri := weeks[2].Days[4]
	if fri.Number != 15 || len(fri.Events) != 1 || fri.Events[0].Summary != "standup" {
		t.Fatalf("unexpected cell for March 15: %+v", fri)
	}
	if !fri.Today {
		t.Fatalf("March 15 should be flagged today")
	}
	if fri.Link != "/cal/day/2024-03-15.html" {
		t.Fatalf("unexpected day link %q", fri.Link)
	}
	if weeks[2].Link != "/cal/week/2024-11.html" {
		t.Fatalf("unexpected week link %q", weeks[2].Link)
	}
	last := weeks[4].Days[6]
	if last.Blank || last.Number != 31 {
		t.Fatalf("expected row 5 to end on March 31, got %+v", last)
	}

	if c["title"] != "March 2024" {
		t.Fatalf("unexpected title %v", c["title"])
	}
	if c["prev_link"] != "" || c["next_link"] != "/cal/month/2024-4.html" {
		t.Fatalf("unexpected links %v / %v", c["prev_link"], c["next_link"])
	}
	if c["current"] != true {
		t.Fatalf("March should be the current month")
	}
}

func TestMonthPageSundayStartTrailingBlanks(t *testing.T) {
	_, b := fixture(t, time.Sunday)
	march := timeidx.MonthKey{Year: 2024, Month: time.March}

	c, err := b.MonthPage(window.Triple[timeidx.MonthKey]{Cur: &march})
	if err != nil {
		t.Fatalf("MonthPage: %v", err)
	}
	weeks := c["weeks"].([]WeekRow)
	if len(weeks) != 6 {
		t.Fatalf("expected 6 rows, got %d", len(weeks))
	}
	blanks := 0
	for _, d := range weeks[0].Days {
		if d.Blank {
			blanks++
		}
	}
	if blanks != 5 {
		t.Fatalf("expected 5 leading blanks, got %d", blanks)
	}
	tail := weeks[5].Days
	if tail[0].Blank || tail[0].Number != 31 {
		t.Fatalf("expected last row to start with March 31, got %+v", tail[0])
	}
	for _, d := range tail[1:] {
		if !d.Blank || d.Date.Month() != time.April || len(d.Events) != 0 {
			t.Fatalf("expected April placeholder without events, got %+v", d)
		}
	}
	names := c["day_names"].([]string)
	if names[0] != "Sun" || names[6] != "Sat" {
		t.Fatalf("unexpected day names %v", names)
	}
}

func TestWeekPageSpanningMonths(t *testing.T) {
	_, b := fixture(t, time.Monday)
	w := timeidx.WeekKey{Year: 2024, Week: 14} // 2024-04-01 .. 2024-04-07
	prev := timeidx.WeekKey{Year: 2024, Week: 11}

	c, err := b.WeekPage(window.Triple[timeidx.WeekKey]{Prev: &prev, Cur: &w})
	if err != nil {
		t.Fatalf("WeekPage: %v", err)
	}
	days := c["days"].([]DayCell)
	if len(days) != 7 || days[0].Date.Day() != 1 || days[0].Weekday != "Mon" {
		t.Fatalf("unexpected days %+v", days[0])
	}
	if len(days[0].Events) != 1 || days[0].Events[0].TimeLabel != "14:00 - 15:00" {
		t.Fatalf("unexpected events on Monday: %+v", days[0].Events)
	}
	if c["prev_link"] != "/cal/week/2024-11.html" || c["next_link"] != "" {
		t.Fatalf("unexpected links %v / %v", c["prev_link"], c["next_link"])
	}
	if c["title"] != "Week 14, 2024" {
		t.Fatalf("unexpected title %v", c["title"])
	}

	// 2024-W09 runs Feb 26 .. Mar 3.
	w9 := timeidx.WeekKey{Year: 2024, Week: 9}
	c, err = b.WeekPage(window.Triple[timeidx.WeekKey]{Cur: &w9})
	if err != nil {
		t.Fatalf("WeekPage: %v", err)
	}
	days = c["days"].([]DayCell)
	if days[3].OtherMonth || !days[4].OtherMonth || days[4].Date.Month() != time.March {
		t.Fatalf("unexpected OtherMonth flags: %v %v", days[3].OtherMonth, days[4].OtherMonth)
	}
}

func TestDayPage(t *testing.T) {
	_, b := fixture(t, time.Monday)
	d := timeidx.DayKey{Year: 2024, Month: time.March, Day: 16}

	c, err := b.DayPage(window.Triple[timeidx.DayKey]{Cur: &d})
	if err != nil {
		t.Fatalf("DayPage: %v", err)
	}
	if c["weekend"] != true || c["today"] != false {
		t.Fatalf("unexpected flags weekend=%v today=%v", c["weekend"], c["today"])
	}
	events := c["events"].([]EventView)
	if len(events) != 1 || !events[0].AllDay || events[0].TimeLabel != "" {
		t.Fatalf("unexpected events %+v", events)
	}
	if c["month_link"] != "/cal/month/2024-3.html" || c["week_link"] != "/cal/week/2024-11.html" {
		t.Fatalf("unexpected links %v %v", c["month_link"], c["week_link"])
	}

	bad := timeidx.DayKey{Year: 2024, Month: time.February, Day: 30}
	if _, err := b.DayPage(window.Triple[timeidx.DayKey]{Cur: &bad}); err == nil {
		t.Fatalf("expected error for invalid date")
	}
}

func TestAgendaPageGroups(t *testing.T) {
	s, b := fixture(t, time.Monday)
	pages, err := agenda.Paginate(s, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), time.UTC, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	c, err := b.AgendaPage(window.Triple[agenda.Page]{Prev: &pages[0], Cur: &pages[1]})
	if err != nil {
		t.Fatalf("AgendaPage: %v", err)
	}
	groups := c["groups"].([]DayCell)
	if len(groups) != 2 || groups[0].Date.Day() != 16 || groups[1].Date.Day() != 1 {
		t.Fatalf("unexpected groups %+v", groups)
	}
	if c["prev_link"] != "/cal/agenda/-1.html" || c["past"] != false || c["number"] != 0 {
		t.Fatalf("unexpected agenda context %v %v %v", c["prev_link"], c["past"], c["number"])
	}
}

func TestEventPage(t *testing.T) {
	s, b := fixture(t, time.Monday)
	ids := s.Chronological()
	c, err := b.EventPage(window.Triple[model.EventID]{Prev: &ids[0], Cur: &ids[1], Next: &ids[2]})
	if err != nil {
		t.Fatalf("EventPage: %v", err)
	}
	ev := c["event"].(EventView)
	if ev.Summary != "holiday" || c["title"] != "holiday" {
		t.Fatalf("unexpected event %+v", ev)
	}
	want := "/cal/event/" + s.Get(ids[0]).FileName()
	if c["prev_link"] != want {
		t.Fatalf("expected prev %s, got %v", want, c["prev_link"])
	}
	if c["day_link"] != "/cal/day/2024-03-16.html" {
		t.Fatalf("unexpected day link %v", c["day_link"])
	}
	if c["multi_day"] != false {
		t.Fatalf("a single all-day event is not multi-day")
	}
}

func TestBuilderIdempotent(t *testing.T) {
	_, b1 := fixture(t, time.Monday)
	_, b2 := fixture(t, time.Monday)
	march := timeidx.MonthKey{Year: 2024, Month: time.March}
	c1, _ := b1.MonthPage(window.Triple[timeidx.MonthKey]{Cur: &march})
	c2, _ := b2.MonthPage(window.Triple[timeidx.MonthKey]{Cur: &march})
	if !reflect.DeepEqual(c1, c2) {
		t.Fatalf("contexts differ between identical runs")
	}
}

func TestNewBuilderCustomFormats(t *testing.T) {
	s := model.NewStore()
	b, err := NewBuilder(s, timeidx.Build(s, time.UTC), Options{
		Location: time.UTC,
		Formats:  Formats{Month: "%Y/%m"},
	})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	k := timeidx.MonthKey{Year: 2024, Month: time.July}
	c, err := b.MonthPage(window.Triple[timeidx.MonthKey]{Cur: &k})
	if err != nil {
		t.Fatal(err)
	}
	if c["title"] != "2024/07" {
		t.Fatalf("unexpected title %v", c["title"])
	}
	if got := fmt.Sprint(c["index_link"]); got != "/month/index.html" {
		t.Fatalf("unexpected index link %s", got)
	}
}

// America/Santiago skips 2024-09-08 00:00 (DST starts at midnight).
func santiagoFixture(t *testing.T) *Builder {
	t.Helper()
	loc, err := time.LoadLocation("America/Santiago")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	s := model.NewStore()
	for _, st := range []time.Time{
		time.Date(2024, 9, 8, 10, 0, 0, 0, loc),
		time.Date(2024, 9, 20, 10, 0, 0, 0, loc),
	} {
		if _, err := s.Add(model.Fields{Summary: st.Format("Jan 2"), Start: st, End: st.Add(time.Hour)}); err != nil {
			t.Fatal(err)
		}
	}
	b, err := NewBuilder(s, timeidx.Build(s, loc), Options{
		Location:  loc,
		Today:     time.Date(2024, 9, 8, 12, 0, 0, 0, loc),
		WeekStart: time.Monday,
	})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

func TestMonthPageAcrossMidnightDSTGap(t *testing.T) {
	b := santiagoFixture(t)
	sep := timeidx.MonthKey{Year: 2024, Month: time.September}

	c, err := b.MonthPage(window.Triple[timeidx.MonthKey]{Cur: &sep})
	if err != nil {
		t.Fatalf("MonthPage: %v", err)
	}
	weeks := c["weeks"].([]WeekRow)
	if len(weeks) != 6 {
		t.Fatalf("expected 6 rows, got %d", len(weeks))
	}

	want := 1
	for r, row := range weeks {
		for i, d := range row.Days {
			if wd := time.Weekday((int(time.Monday) + i) % 7); d.Date.Weekday() != wd {
				t.Fatalf("row %d col %d: %v is not a %v", r, i, d.Date, wd)
			}
			if d.Blank {
				continue
			}
			if d.Number != want {
				t.Fatalf("row %d col %d: day %d, want %d", r, i, d.Number, want)
			}
			want++
		}
	}
	if want != 31 {
		t.Fatalf("grid holds %d days of September", want-1)
	}

	gap := weeks[1].Days[6]
	if gap.Number != 8 || len(gap.Events) != 1 || !gap.Weekend || !gap.Today {
		t.Fatalf("2024-09-08 cell: %+v", gap)
	}
	fri := weeks[3].Days[4]
	if fri.Number != 20 || len(fri.Events) != 1 || fri.Weekend {
		t.Fatalf("friday 2024-09-20 cell: %+v", fri)
	}
}

func TestWeekAndDayPageAcrossMidnightDSTGap(t *testing.T) {
	b := santiagoFixture(t)
	wk := timeidx.WeekKey{Year: 2024, Week: 36}

	c, err := b.WeekPage(window.Triple[timeidx.WeekKey]{Cur: &wk})
	if err != nil {
		t.Fatalf("WeekPage: %v", err)
	}
	days := c["days"].([]DayCell)
	for i, d := range days {
		if d.Number != 2+i {
			t.Fatalf("day %d is the %d, want %d", i, d.Number, 2+i)
		}
	}
	if len(days[6].Events) != 1 {
		t.Fatalf("sunday should hold the event: %+v", days[6])
	}

	day := timeidx.DayKey{Year: 2024, Month: time.September, Day: 8}
	dc, err := b.DayPage(window.Triple[timeidx.DayKey]{Cur: &day})
	if err != nil {
		t.Fatalf("DayPage: %v", err)
	}
	if len(dc["events"].([]EventView)) != 1 || dc["weekend"] != true || dc["today"] != true {
		t.Fatalf("day context: %v", dc)
	}
}
