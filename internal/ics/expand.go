package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "calsite/internal/log"
	"calsite/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 5000
)

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// Recurrence enables RRULE expansion. When false every VEVENT becomes
	// exactly one occurrence and the range is ignored.
	Recurrence bool

	// RangeStart / RangeEnd define the inclusive time window for expanded
	// occurrences.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent is a safety cap to avoid infinite or extremely
	// large expansions. If zero, defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the list of expanded occurrences and optionally
// information about truncation.
type ExpandResult struct {
	Occurrences []model.Fields
	// TruncatedEvents records UIDs that hit the MaxOccurrencesPerEvent cap.
	TruncatedEvents []string
}

// ExpandOccurrences turns parsed VEVENTs into occurrences. With recurrence
// enabled it handles:
//
//   - Single non-recurring events
//   - RRULE-based recurrence (DAILY/WEEKLY/MONTHLY/YEARLY, etc.)
//   - EXDATE for exception removal
//   - RECURRENCE-ID overrides
//   - All-day semantics
//
// Output order follows the input: UIDs in order of first appearance, and
// occurrences of one event in chronological order.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if !cfg.Recurrence {
		for _, ev := range events {
			result.Occurrences = append(result.Occurrences, makeOccurrence(ev, ev.Start, ev.End))
		}
		return result, nil
	}

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Group base events and overrides by UID, remembering first appearance.
	var order []string
	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)

	for _, ev := range events {
		if _, seen := baseByUID[ev.UID]; !seen {
			if _, seen := overridesByUID[ev.UID]; !seen {
				order = append(order, ev.UID)
			}
		}
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
		} else {
			baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
		}
	}

	for _, uid := range order {
		ov := overridesByUID[uid]
		matched := make(map[int]bool, len(ov))
		truncated := false

		for _, ev := range baseByUID[uid] {
			occ, hitCap := expandEvent(ev, ov, matched, cfg)
			if hitCap {
				truncated = true
			}
			result.Occurrences = append(result.Occurrences, occ...)
		}

		// Overrides whose instance was never generated: the master is
		// missing, the instance lies outside the range, or EXDATE removed it.
		for i, o := range ov {
			if matched[i] {
				continue
			}
			appLog.Warn("expand: override has no matching instance",
				"uid", uid,
				"recurrence_id", o.Recurrence.Format(time.RFC3339),
				"master", len(baseByUID[uid]) > 0,
			)
			if timeRangesOverlap(o.Start, o.End, cfg.RangeStart, cfg.RangeEnd) {
				result.Occurrences = append(result.Occurrences, makeOccurrence(o, o.Start, o.End))
			}
		}

		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, uid)
			appLog.Warn("expand: truncated occurrences for UID due to cap",
				"uid", uid,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	return result, nil
}

// matched records, by index into overrides, which overrides replaced an
// instance.
func expandEvent(ev ParsedEvent, overrides []ParsedEvent, matched map[int]bool, cfg ExpandConfig) ([]model.Fields, bool) {
	if ev.RawRRule == "" {
		return expandSingleEvent(ev, overrides, matched, cfg), false
	}
	return expandRecurringEvent(ev, overrides, matched, cfg)
}

func expandSingleEvent(ev ParsedEvent, overrides []ParsedEvent, matched map[int]bool, cfg ExpandConfig) []model.Fields {
	if !timeRangesOverlap(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}

	if i, ok := findOverrideForStart(overrides, ev.Start); ok {
		matched[i] = true
		o := overrides[i]
		return []model.Fields{makeOccurrence(o, o.Start, o.End)}
	}
	return []model.Fields{makeOccurrence(ev, ev.Start, ev.End)}
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, matched map[int]bool, cfg ExpandConfig) ([]model.Fields, bool) {
	out := make([]model.Fields, 0)
	hitCap := false

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return out, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	rangeStart := cfg.RangeStart.In(ev.Start.Location())
	rangeEnd := cfg.RangeEnd.In(ev.Start.Location())

	occTimes := set.Between(rangeStart, rangeEnd, true)
	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	dur := ev.End.Sub(ev.Start)
	for _, occStart := range occTimes {
		occEnd := occStart.Add(dur)
		if ev.AllDay {
			// All-day: [date 00:00, date + n days) in the event's timezone.
			date := time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			days := max(1, int(dur.Round(24*time.Hour)/(24*time.Hour)))
			occStart, occEnd = date, date.AddDate(0, 0, days)
		}

		if i, ok := findOverrideForStart(overrides, occStart); ok {
			matched[i] = true
			o := overrides[i]
			out = append(out, makeOccurrence(o, o.Start, o.End))
			continue
		}
		out = append(out, makeOccurrence(ev, occStart, occEnd))
	}

	return out, hitCap
}

// findOverrideForStart returns the index of the override whose RECURRENCE-ID
// equals start.
func findOverrideForStart(overrides []ParsedEvent, start time.Time) (int, bool) {
	for i, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return i, true
		}
	}
	return -1, false
}

func makeOccurrence(ev ParsedEvent, start, end time.Time) model.Fields {
	return model.Fields{
		SourceID:    ev.Source.ID,
		UID:         ev.UID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		AllDay:      ev.AllDay,
		Start:       start,
		End:         end,
	}
}

func timeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(bStart) {
		return false
	}
	if bEnd.Before(aStart) {
		return false
	}
	return true
}
