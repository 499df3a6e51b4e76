package timeidx

import (
	"errors"
	"fmt"
	"time"
)

// ErrDateArithmetic is returned when a derived date (week start, month end,
// ...) cannot be computed for a key.
var ErrDateArithmetic = errors.New("date arithmetic failure")

// Key is a bucket key: a comparable time unit with a chronological order.
type Key[K any] interface {
	comparable
	Compare(other K) int
	FileName() string
}

// DayKey identifies one calendar date.
type DayKey struct {
	Year  int
	Month time.Month
	Day   int
}

// WeekKey identifies one ISO 8601 week. Year is the ISO year, which differs
// from the calendar year for a few days around New Year.
type WeekKey struct {
	Year int
	Week int
}

// MonthKey identifies one calendar month.
type MonthKey struct {
	Year  int
	Month time.Month
}

// DayOf returns the day key of t in loc.
func DayOf(t time.Time, loc *time.Location) DayKey {
	t = t.In(loc)
	return DayKey{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// WeekOf returns the ISO week key of t in loc.
func WeekOf(t time.Time, loc *time.Location) WeekKey {
	y, w := t.In(loc).ISOWeek()
	return WeekKey{Year: y, Week: w}
}

// MonthOf returns the month key of t in loc.
func MonthOf(t time.Time, loc *time.Location) MonthKey {
	t = t.In(loc)
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (k DayKey) Compare(o DayKey) int {
	if c := cmpInt(k.Year, o.Year); c != 0 {
		return c
	}
	if c := cmpInt(int(k.Month), int(o.Month)); c != 0 {
		return c
	}
	return cmpInt(k.Day, o.Day)
}

func (k WeekKey) Compare(o WeekKey) int {
	if c := cmpInt(k.Year, o.Year); c != 0 {
		return c
	}
	return cmpInt(k.Week, o.Week)
}

func (k MonthKey) Compare(o MonthKey) int {
	if c := cmpInt(k.Year, o.Year); c != 0 {
		return c
	}
	return cmpInt(int(k.Month), int(o.Month))
}

func (k DayKey) FileName() string {
	return fmt.Sprintf("%04d-%02d-%02d.html", k.Year, int(k.Month), k.Day)
}

func (k WeekKey) FileName() string {
	return fmt.Sprintf("%d-%d.html", k.Year, k.Week)
}

func (k MonthKey) FileName() string {
	return fmt.Sprintf("%d-%d.html", k.Year, int(k.Month))
}

// civil returns the day as midnight UTC, where every day has a midnight.
func (k DayKey) civil() time.Time {
	return time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, time.UTC)
}

// Valid reports whether k names a real calendar date.
func (k DayKey) Valid() bool {
	c := k.civil()
	return c.Year() == k.Year && c.Month() == k.Month && c.Day() == k.Day
}

// AddDays returns the date n days after k (before, for negative n).
func (k DayKey) AddDays(n int) DayKey {
	return DayOf(k.civil().AddDate(0, 0, n), time.UTC)
}

// Weekday returns the day of the week of k.
func (k DayKey) Weekday() time.Weekday {
	return k.civil().Weekday()
}

// Time returns noon of the day in loc. Noon exists in every zone; midnight
// does not where DST starts at 00:00.
func (k DayKey) Time(loc *time.Location) time.Time {
	return time.Date(k.Year, k.Month, k.Day, 12, 0, 0, 0, loc)
}

// Date is Time for a key that must be a real calendar date.
func (k DayKey) Date(loc *time.Location) (time.Time, error) {
	if !k.Valid() {
		return time.Time{}, fmt.Errorf("timeidx: %04d-%02d-%02d is not a date: %w", k.Year, int(k.Month), k.Day, ErrDateArithmetic)
	}
	return k.Time(loc), nil
}

// Days returns the first and last day of the month.
func (k MonthKey) Days() (first, last DayKey, err error) {
	if k.Month < time.January || k.Month > time.December {
		return DayKey{}, DayKey{}, fmt.Errorf("timeidx: month %d out of range: %w", int(k.Month), ErrDateArithmetic)
	}
	first = DayKey{Year: k.Year, Month: k.Month, Day: 1}
	// Day 0 of the following month normalizes to our last day, including
	// the December -> January rollover.
	last = DayOf(time.Date(k.Year, k.Month+1, 0, 0, 0, 0, 0, time.UTC), time.UTC)
	if last.Month != k.Month || last.Year != k.Year || last.Day < 28 {
		return DayKey{}, DayKey{}, fmt.Errorf("timeidx: no last day for %d-%02d: %w", k.Year, int(k.Month), ErrDateArithmetic)
	}
	return first, last, nil
}

// Range returns the first and last day of the month at noon in loc.
func (k MonthKey) Range(loc *time.Location) (first, last time.Time, err error) {
	f, l, err := k.Days()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return f.Time(loc), l.Time(loc), nil
}

// Days returns the Monday and Sunday of the ISO week.
func (k WeekKey) Days() (first, last DayKey, err error) {
	first, err = ISOWeekMonday(k.Year, k.Week)
	if err != nil {
		return DayKey{}, DayKey{}, err
	}
	return first, first.AddDays(6), nil
}

// Range returns the Monday and Sunday of the ISO week at noon in loc.
func (k WeekKey) Range(loc *time.Location) (first, last time.Time, err error) {
	f, l, err := k.Days()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return f.Time(loc), l.Time(loc), nil
}

// ISOWeekMonday returns the Monday starting ISO week (year, week).
func ISOWeekMonday(year, week int) (DayKey, error) {
	if week < 1 || week > 53 {
		return DayKey{}, fmt.Errorf("timeidx: ISO week %d out of range: %w", week, ErrDateArithmetic)
	}
	// January 4th is always in ISO week 1.
	jan4 := DayKey{Year: year, Month: time.January, Day: 4}
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDays(-offset + 7*(week-1))
	if y, w := monday.civil().ISOWeek(); y != year || w != week {
		return DayKey{}, fmt.Errorf("timeidx: %d has no ISO week %d: %w", year, week, ErrDateArithmetic)
	}
	return monday, nil
}

// ISOWeekStart returns the Monday starting ISO week (year, week) at noon
// in loc.
func ISOWeekStart(year, week int, loc *time.Location) (time.Time, error) {
	monday, err := ISOWeekMonday(year, week)
	if err != nil {
		return time.Time{}, err
	}
	return monday.Time(loc), nil
}
