package timeidx

import (
	"errors"
	"fmt"
	"testing"
	"time"
	_ "time/tzdata"

	"calsite/internal/model"
)

// santiago starts DST at 00:00 on 2024-09-08: that midnight never happens.
func santiago(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Santiago")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	return loc
}

func addEvent(t *testing.T, s *model.Store, summary string, start time.Time) model.EventID {
	t.Helper()
	id, err := s.Add(model.Fields{Summary: summary, Start: start, End: start.Add(30 * time.Minute)})
	if err != nil {
		t.Fatalf("add %q: %v", summary, err)
	}
	return id
}

func TestBuildBucketsEachEventOnce(t *testing.T) {
	s := model.NewStore()
	addEvent(t, s, "new year", time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC))
	addEvent(t, s, "eve", time.Date(2024, 12, 31, 18, 0, 0, 0, time.UTC))
	addEvent(t, s, "march", time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC))
	addEvent(t, s, "march again", time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC))

	idx := Build(s, time.UTC)

	for _, n := range []int{members(idx.Days), members(idx.Weeks), members(idx.Months)} {
		if n != s.Len() {
			t.Fatalf("expected %d bucket memberships, got %d", s.Len(), n)
		}
	}

	// 2024-12-31 and 2025-01-01 share ISO week 2025-W01 but not a month.
	if idx.Weeks.Len() != 2 {
		t.Fatalf("expected 2 weeks, got %v", idx.Weeks.Keys())
	}
	w, ok := idx.Weeks.Get(WeekKey{Year: 2025, Week: 1})
	if !ok || len(w) != 2 {
		t.Fatalf("expected both year-end events in 2025-W01, got %v", w)
	}
	if idx.Months.Len() != 3 {
		t.Fatalf("expected 3 months, got %v", idx.Months.Keys())
	}
	for _, id := range w {
		ev := s.Get(id)
		if ev.Summary() != "eve" && ev.Summary() != "new year" {
			t.Fatalf("unexpected event in week: %s", ev.Summary())
		}
	}
}

func members[K Key[K]](m *BucketMap[K]) int {
	n := 0
	for b := range m.All() {
		n += len(b.Events)
	}
	return n
}

func TestBuildOrdering(t *testing.T) {
	s := model.NewStore()
	late := addEvent(t, s, "late", time.Date(2024, 5, 2, 18, 0, 0, 0, time.UTC))
	tieA := addEvent(t, s, "tie a", time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC))
	tieB := addEvent(t, s, "tie b", time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC))
	addEvent(t, s, "april", time.Date(2024, 4, 30, 9, 0, 0, 0, time.UTC))
	addEvent(t, s, "june", time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))

	idx := Build(s, time.UTC)

	day, _ := idx.Days.Get(DayKey{Year: 2024, Month: time.May, Day: 2})
	if fmt.Sprint(day) != fmt.Sprint([]model.EventID{tieA, tieB, late}) {
		t.Fatalf("unexpected in-bucket order: %v", day)
	}

	keys := idx.Months.Keys()
	want := "[{2024 April} {2024 May} {2024 June}]"
	if fmt.Sprint(keys) != want {
		t.Fatalf("expected %s, got %v", want, keys)
	}
}

func TestBuildUsesDisplayTimezone(t *testing.T) {
	s := model.NewStore()
	// 2024-03-31 23:30 UTC is 2024-04-01 in UTC+2 and in ISO week 14.
	addEvent(t, s, "edge", time.Date(2024, 3, 31, 23, 30, 0, 0, time.UTC))
	loc := time.FixedZone("CEST", 2*60*60)

	idx := Build(s, loc)

	if !idx.Days.Has(DayKey{Year: 2024, Month: time.April, Day: 1}) {
		t.Fatalf("expected event on 2024-04-01, got %v", idx.Days.Keys())
	}
	if !idx.Months.Has(MonthKey{Year: 2024, Month: time.April}) {
		t.Fatalf("expected event in April, got %v", idx.Months.Keys())
	}
	if !idx.Weeks.Has(WeekKey{Year: 2024, Week: 14}) {
		t.Fatalf("expected event in 2024-W14, got %v", idx.Weeks.Keys())
	}
}

func TestFileNames(t *testing.T) {
	if got := (MonthKey{Year: 2024, Month: time.March}).FileName(); got != "2024-3.html" {
		t.Fatalf("month file name: %s", got)
	}
	if got := (WeekKey{Year: 2024, Week: 9}).FileName(); got != "2024-9.html" {
		t.Fatalf("week file name: %s", got)
	}
	if got := (DayKey{Year: 2024, Month: time.March, Day: 5}).FileName(); got != "2024-03-05.html" {
		t.Fatalf("day file name: %s", got)
	}
}

func TestMonthRange(t *testing.T) {
	tests := []struct {
		key  MonthKey
		last string
	}{
		{MonthKey{2024, time.February}, "2024-02-29"},
		{MonthKey{2023, time.February}, "2023-02-28"},
		{MonthKey{2024, time.December}, "2024-12-31"},
		{MonthKey{2024, time.April}, "2024-04-30"},
	}
	for _, tt := range tests {
		first, last, err := tt.key.Range(time.UTC)
		if err != nil {
			t.Fatalf("%v: %v", tt.key, err)
		}
		if first.Day() != 1 || first.Month() != tt.key.Month {
			t.Fatalf("%v: unexpected first day %v", tt.key, first)
		}
		if got := last.Format("2006-01-02"); got != tt.last {
			t.Fatalf("%v: expected last %s, got %s", tt.key, tt.last, got)
		}
	}

	if _, _, err := (MonthKey{2024, 13}).Range(time.UTC); !errors.Is(err, ErrDateArithmetic) {
		t.Fatalf("expected ErrDateArithmetic, got %v", err)
	}
}

func TestISOWeekStart(t *testing.T) {
	tests := []struct {
		year, week int
		want       string
	}{
		{2025, 1, "2024-12-30"},
		{2024, 1, "2024-01-01"},
		{2020, 53, "2020-12-28"},
		{2021, 1, "2021-01-04"},
	}
	for _, tt := range tests {
		got, err := ISOWeekStart(tt.year, tt.week, time.UTC)
		if err != nil {
			t.Fatalf("%d-W%d: %v", tt.year, tt.week, err)
		}
		if got.Format("2006-01-02") != tt.want {
			t.Fatalf("%d-W%d: expected %s, got %s", tt.year, tt.week, tt.want, got.Format("2006-01-02"))
		}
	}

	// 2021 has only 52 ISO weeks.
	if _, err := ISOWeekStart(2021, 53, time.UTC); !errors.Is(err, ErrDateArithmetic) {
		t.Fatalf("expected ErrDateArithmetic for 2021-W53, got %v", err)
	}
	if _, err := ISOWeekStart(2021, 0, time.UTC); !errors.Is(err, ErrDateArithmetic) {
		t.Fatalf("expected ErrDateArithmetic for week 0, got %v", err)
	}
}

func TestDayKeyDate(t *testing.T) {
	if _, err := (DayKey{2023, time.February, 29}).Date(time.UTC); !errors.Is(err, ErrDateArithmetic) {
		t.Fatalf("expected ErrDateArithmetic, got %v", err)
	}
	d, err := (DayKey{2024, time.February, 29}).Date(time.UTC)
	if err != nil || d.Day() != 29 {
		t.Fatalf("unexpected result %v, %v", d, err)
	}
}

func TestMidnightDSTGap(t *testing.T) {
	loc := santiago(t)
	gap := DayKey{Year: 2024, Month: time.September, Day: 8}

	d, err := gap.Date(loc)
	if err != nil {
		t.Fatalf("Date: %v", err)
	}
	if DayOf(d, loc) != gap {
		t.Fatalf("Date round trip: got %v", DayOf(d, loc))
	}
	if d.Weekday() != time.Sunday || gap.Weekday() != time.Sunday {
		t.Fatalf("weekday: %v / %v", d.Weekday(), gap.Weekday())
	}

	tests := []struct {
		from DayKey
		n    int
		want DayKey
	}{
		{DayKey{2024, time.September, 7}, 1, gap},
		{DayKey{2024, time.September, 7}, 2, DayKey{2024, time.September, 9}},
		{DayKey{2024, time.September, 9}, -1, gap},
		{DayKey{2024, time.December, 31}, 1, DayKey{2025, time.January, 1}},
	}
	for _, tt := range tests {
		if got := tt.from.AddDays(tt.n); got != tt.want {
			t.Errorf("%v + %d = %v, want %v", tt.from, tt.n, got, tt.want)
		}
	}

	first, last, err := (WeekKey{Year: 2024, Week: 36}).Range(loc)
	if err != nil {
		t.Fatalf("week range: %v", err)
	}
	if DayOf(first, loc) != (DayKey{2024, time.September, 2}) || DayOf(last, loc) != gap {
		t.Fatalf("week 36 range %v - %v", first, last)
	}

	mFirst, mLast, err := (MonthKey{Year: 2024, Month: time.September}).Range(loc)
	if err != nil {
		t.Fatalf("month range: %v", err)
	}
	if mFirst.Format("2006-01-02") != "2024-09-01" || mLast.Format("2006-01-02") != "2024-09-30" {
		t.Fatalf("month range %v - %v", mFirst, mLast)
	}
}

func TestBuildInDSTGapZone(t *testing.T) {
	loc := santiago(t)
	s := model.NewStore()
	addEvent(t, s, "before", time.Date(2024, 9, 7, 22, 0, 0, 0, loc))
	addEvent(t, s, "gap day", time.Date(2024, 9, 8, 10, 0, 0, 0, loc))

	idx := Build(s, loc)
	want := []DayKey{{2024, time.September, 7}, {2024, time.September, 8}}
	if got := idx.Days.Keys(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("day keys %v, want %v", got, want)
	}
	if got := idx.Weeks.Keys(); len(got) != 1 || got[0] != (WeekKey{2024, 36}) {
		t.Fatalf("week keys %v", got)
	}
}
