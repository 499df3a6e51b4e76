package ics

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "calsite/internal/log"
)

// ParsedEvent is the normalized representation of a VEVENT as produced
// by the ICS parser. Recurrence expansion operates on this type.
type ParsedEvent struct {
	Source Source

	UID string
	Seq int

	Summary     string
	Description string
	Location    string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID (if present) in event's own timezone
	IsOverride bool       // true if this VEVENT is an override for a recurring instance
}

// ParseResult is the outcome of parsing one ICS payload.
type ParseResult struct {
	Events []ParsedEvent
	// Skipped counts VEVENTs dropped for missing required fields.
	Skipped int
	// Unknown lists VEVENT property names the parser does not interpret,
	// sorted and de-duplicated.
	Unknown []string
}

// knownProperties are read by parseVEvent or deliberately ignored metadata.
var knownProperties = map[string]bool{
	"UID": true, "SEQUENCE": true, "SUMMARY": true, "DESCRIPTION": true, "LOCATION": true,
	"DTSTART": true, "DTEND": true, "DURATION": true, "RRULE": true, "EXDATE": true,
	"RECURRENCE-ID": true, "DTSTAMP": true, "CREATED": true, "LAST-MODIFIED": true,
}

// ParseICS parses a single ICS payload.
//
//   - It relies on the underlying library's VTIMEZONE/TZID handling to
//     construct proper time.Time values (with Location set).
//   - It detects all-day events by inspecting the DTSTART value format.
//   - It records RRULE/EXDATE/RECURRENCE-ID but does not expand recurrences;
//     expansion is done in expand.go.
//   - VEVENTs without a summary or DTSTART are logged and skipped.
func ParseICS(src Source, body []byte) (ParseResult, error) {
	var res ParseResult
	if len(body) == 0 {
		return res, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return res, fmt.Errorf("ics: parse %s: %w", src.ID, err)
	}

	unknown := map[string]bool{}
	for _, comp := range cal.Events() {
		for _, p := range comp.Properties {
			if !knownProperties[p.IANAToken] {
				unknown[p.IANAToken] = true
			}
		}

		ev, perr := parseVEvent(src, comp)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "id", src.ID, "reason", perr.Error())
			res.Skipped++
			continue
		}
		res.Events = append(res.Events, ev)
	}

	for name := range unknown {
		res.Unknown = append(res.Unknown, name)
	}
	slices.Sort(res.Unknown)

	appLog.Info("ics parse completed", "id", src.ID, "event_count", len(res.Events), "skipped", res.Skipped)
	return res, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent
	out.Source = src

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}

	// SEQUENCE (optional, used for overrides/versioning)
	if seqProp := ve.GetProperty(ical.ComponentPropertySequence); seqProp != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(seqProp.Value)); err == nil {
			out.Seq = n
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if strings.TrimSpace(out.Summary) == "" {
		return out, fmt.Errorf("missing SUMMARY (uid %q)", out.UID)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	dtStartProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStartProp == nil {
		return out, fmt.Errorf("missing DTSTART (uid %q)", out.UID)
	}
	start, err := ve.GetStartAt()
	if err != nil {
		return out, fmt.Errorf("bad DTSTART %q: %w", dtStartProp.Value, err)
	}
	out.Start = start

	// VALUE=DATE or no 'T' in the value -> all-day
	if vs, ok := dtStartProp.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		out.AllDay = true
	}
	if !strings.Contains(dtStartProp.Value, "T") {
		out.AllDay = true
	}

	switch {
	case ve.GetProperty(ical.ComponentPropertyDtEnd) != nil:
		end, err := ve.GetEndAt()
		if err != nil {
			return out, fmt.Errorf("bad DTEND: %w", err)
		}
		out.End = end
	case ve.GetProperty("DURATION") != nil:
		d, err := parseDuration(ve.GetProperty("DURATION").Value)
		if err != nil {
			return out, err
		}
		out.End = start.Add(d)
	case out.AllDay:
		out.End = start.AddDate(0, 0, 1)
	default:
		out.End = start
	}

	// RRULE (we only keep raw string here; expansion is in expand.go).
	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		out.RawRRule = rruleProp.Value
	}

	// EXDATE (can appear multiple times, each with a comma-separated list)
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part, start.Location()); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	// RECURRENCE-ID (overridden instance)
	if ridProp := ve.GetProperty("RECURRENCE-ID"); ridProp != nil {
		if t, err := parseICSTime(ridProp.Value, start.Location()); err == nil {
			out.Recurrence = &t
			out.IsOverride = true
		}
	}

	return out, nil
}

// parseICSTime parses a basic ICS date/date-time string. Floating values are
// read in loc, normally the DTSTART location of the same VEVENT.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	// Local date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	// Date-only (all-day), e.g., 20250101
	return time.ParseInLocation("20060102", v, loc)
}

// parseDuration reads an RFC 5545 DURATION such as "PT1H30M", "P1D" or
// "P2W". Negative durations are rejected.
func parseDuration(v string) (time.Duration, error) {
	s := strings.ToUpper(strings.TrimSpace(v))
	s = strings.TrimPrefix(s, "+")
	if !strings.HasPrefix(s, "P") || len(s) < 3 {
		return 0, fmt.Errorf("bad DURATION %q", v)
	}
	s = s[1:]

	var total time.Duration
	inTime := false
	num := 0
	digits := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			num = num*10 + int(r-'0')
			digits = true
			continue
		case r == 'T':
			inTime = true
			continue
		}
		if !digits {
			return 0, fmt.Errorf("bad DURATION %q", v)
		}
		n := time.Duration(num)
		switch {
		case r == 'W' && !inTime:
			total += n * 7 * 24 * time.Hour
		case r == 'D' && !inTime:
			total += n * 24 * time.Hour
		case r == 'H' && inTime:
			total += n * time.Hour
		case r == 'M' && inTime:
			total += n * time.Minute
		case r == 'S' && inTime:
			total += n * time.Second
		default:
			return 0, fmt.Errorf("bad DURATION %q", v)
		}
		num, digits = 0, false
	}
	if digits {
		return 0, fmt.Errorf("bad DURATION %q", v)
	}
	return total, nil
}
