// Package recurrence expands a recurring-event schedule into concrete UTC
// instants. It is pure: no I/O, deterministic given its inputs and the
// timezone database.
package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// ValidationError marks input that is rejected before any expansion or write
// happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Input describes one expansion request. AnchorDate contributes only its
// calendar date, interpreted in Timezone; the window covers
// [anchor, anchor + 7*HorizonWeeks days).
type Input struct {
	AnchorDate   time.Time
	Hour         int
	Minute       int
	Timezone     string
	Weekdays     []time.Weekday
	HorizonWeeks int
}

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// Generate returns the ascending, duplicate-free UTC start instants for every
// calendar day in the window whose weekday is in the set. The wall-clock
// time-of-day is resolved in the template's zone for each specific date, so
// instants stay correct across DST transitions. A zero horizon yields an
// empty result without error.
func Generate(in Input) ([]time.Time, error) {
	if len(in.Weekdays) == 0 {
		return nil, &ValidationError{Field: "weekdays", Reason: "must include at least one day (mon..sun)"}
	}
	if in.Hour < 0 || in.Hour > 23 || in.Minute < 0 || in.Minute > 59 {
		return nil, &ValidationError{Field: "time", Reason: "must be HH:MM (24-hour)"}
	}
	if in.HorizonWeeks < 0 {
		return nil, &ValidationError{Field: "horizon_weeks", Reason: "must not be negative"}
	}
	loc, err := LoadZone(in.Timezone)
	if err != nil {
		return nil, err
	}
	if in.HorizonWeeks == 0 {
		return nil, nil
	}

	byday := make([]rrule.Weekday, 0, len(in.Weekdays))
	for _, wd := range in.Weekdays {
		byday = append(byday, rruleWeekdays[wd])
	}

	year, month, day := in.AnchorDate.Date()
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: byday,
		Dtstart:   time.Date(year, month, day, in.Hour, in.Minute, 0, 0, loc),
	})
	if err != nil {
		return nil, fmt.Errorf("building recurrence rule: %w", err)
	}

	windowStart := time.Date(year, month, day, 0, 0, 0, 0, loc)
	windowEnd := windowStart.AddDate(0, 0, 7*in.HorizonWeeks).Add(-time.Second)

	local := rule.Between(windowStart, windowEnd, true)
	out := make([]time.Time, 0, len(local))
	for _, t := range local {
		out = append(out, t.UTC())
	}
	return out, nil
}

// LoadZone resolves an IANA timezone name, surfacing failures as validation
// errors.
func LoadZone(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(name))
	if err != nil {
		return nil, &ValidationError{Field: "timezone", Reason: fmt.Sprintf("unknown IANA zone %q", name)}
	}
	return loc, nil
}

// ParseTimeOfDay parses a 24-hour "HH:MM" string.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, &ValidationError{Field: "time", Reason: "must be HH:MM (24-hour)"}
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, &ValidationError{Field: "time", Reason: "must be HH:MM (24-hour)"}
	}
	return hour, minute, nil
}

var weekdayAliases = map[string]time.Weekday{
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
	"sun": time.Sunday, "sunday": time.Sunday,
}

var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

var weekdayShort = map[time.Weekday]string{
	time.Monday: "mon", time.Tuesday: "tue", time.Wednesday: "wed",
	time.Thursday: "thu", time.Friday: "fri", time.Saturday: "sat",
	time.Sunday: "sun",
}

// ParseWeekdays parses a CSV like "wed,Sunday" into a deduplicated set in
// Monday-first order. Unknown tokens and an empty result are validation
// errors.
func ParseWeekdays(csv string) ([]time.Weekday, error) {
	seen := make(map[time.Weekday]bool)
	for _, token := range strings.Split(strings.ToLower(csv), ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		wd, ok := weekdayAliases[token]
		if !ok {
			return nil, &ValidationError{Field: "weekdays", Reason: fmt.Sprintf("unknown day %q", token)}
		}
		seen[wd] = true
	}

	var out []time.Weekday
	for _, wd := range weekdayOrder {
		if seen[wd] {
			out = append(out, wd)
		}
	}
	if len(out) == 0 {
		return nil, &ValidationError{Field: "weekdays", Reason: "must include at least one day (mon..sun)"}
	}
	return out, nil
}

// FormatWeekdays renders a weekday set in the canonical stored form.
func FormatWeekdays(days []time.Weekday) string {
	names := make([]string, 0, len(days))
	for _, wd := range days {
		names = append(names, weekdayShort[wd])
	}
	return strings.Join(names, ",")
}
