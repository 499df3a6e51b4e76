package index

import (
	"testing"
	"time"

	"calsite/internal/timeidx"
)

var months = []timeidx.MonthKey{
	{Year: 2024, Month: time.January},
	{Year: 2024, Month: time.February},
	{Year: 2024, Month: time.March},
	{Year: 2024, Month: time.April},
	{Year: 2024, Month: time.May},
	{Year: 2024, Month: time.June},
}

func monthEnd(k timeidx.MonthKey) timeidx.DayKey {
	_, last, err := k.Range(time.UTC)
	if err != nil {
		panic(err)
	}
	return timeidx.DayOf(last, time.UTC)
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name   string
		cursor timeidx.DayKey
		want   timeidx.MonthKey
	}{
		{"mid range", timeidx.DayKey{Year: 2024, Month: time.March, Day: 15}, months[2]},
		{"first day of month", timeidx.DayKey{Year: 2024, Month: time.April, Day: 1}, months[3]},
		{"last day of month", timeidx.DayKey{Year: 2024, Month: time.February, Day: 29}, months[1]},
		{"before all", timeidx.DayKey{Year: 2020, Month: time.May, Day: 1}, months[0]},
		{"after all", timeidx.DayKey{Year: 2025, Month: time.January, Day: 1}, months[5]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := Select(months, tt.cursor, monthEnd)
			if months[i] != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, months[i])
			}
		})
	}
}

func TestSelectEmpty(t *testing.T) {
	if i := Select([]timeidx.MonthKey(nil), timeidx.DayKey{Year: 2024, Month: 1, Day: 1}, monthEnd); i != -1 {
		t.Fatalf("expected -1, got %d", i)
	}
}

func TestSelectIdempotent(t *testing.T) {
	cursor := timeidx.DayKey{Year: 2024, Month: time.May, Day: 2}
	a := Select(months, cursor, monthEnd)
	b := Select(months, cursor, monthEnd)
	if a != b {
		t.Fatalf("selection changed between runs: %d vs %d", a, b)
	}
}

func TestTrackerMatchesSelect(t *testing.T) {
	cursors := []timeidx.DayKey{
		{Year: 2023, Month: time.December, Day: 31},
		{Year: 2024, Month: time.March, Day: 15},
		{Year: 2024, Month: time.June, Day: 30},
		{Year: 2025, Month: time.January, Day: 1},
	}
	for _, c := range cursors {
		tr := NewTracker(c)
		chosen := -1
		for i, m := range months {
			if tr.Observe(monthEnd(m)) {
				if chosen != -1 {
					t.Fatalf("cursor %v: index written twice", c)
				}
				chosen = i
			}
		}
		if tr.Finish() {
			chosen = len(months) - 1
		}
		if tr.State() != IndexWritten {
			t.Fatalf("cursor %v: expected terminal state, got %v", c, tr.State())
		}
		if want := Select(months, c, monthEnd); chosen != want {
			t.Fatalf("cursor %v: tracker chose %d, Select chose %d", c, chosen, want)
		}
	}
}

func TestTrackerStaysTerminal(t *testing.T) {
	tr := NewTracker(timeidx.DayKey{Year: 2024, Month: time.January, Day: 1})
	if !tr.Observe(timeidx.DayKey{Year: 2024, Month: time.January, Day: 31}) {
		t.Fatalf("expected first observation to select")
	}
	if tr.Observe(timeidx.DayKey{Year: 2024, Month: time.February, Day: 29}) {
		t.Fatalf("expected no second selection")
	}
	if tr.Finish() {
		t.Fatalf("expected no fallback after selection")
	}
}
