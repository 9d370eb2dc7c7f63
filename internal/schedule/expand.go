package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"netsched/internal/model"
)

const defaultMaxOccurrencesPerNet = 1000

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// RangeStart / RangeEnd define the inclusive instant window for
	// occurrences. An occurrence is kept when [Start, End] overlaps it,
	// so a net already on the air at RangeStart is included.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerNet is a safety cap against runaway expansions.
	// If zero, defaultMaxOccurrencesPerNet is used.
	MaxOccurrencesPerNet int
}

// ExpandNet expands one net definition into concrete occurrences within the
// configured window. It is a pure function of its inputs: the same
// definition and window always produce the same occurrences.
//
// Expansion happens in two stages, so time-of-day never leaks into the
// date pattern:
//
//  1. the recurrence is expanded into plain calendar dates;
//  2. each date is combined with the net's local start time and resolved
//     against the zone's transition rules for that specific date
//     (see ResolveLocal for the gap/fold policies).
func ExpandNet(def model.NetDefinition, cfg ExpandConfig) ([]model.Occurrence, bool, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, false, errors.New("expand: RangeEnd is before RangeStart")
	}
	maxOcc := cfg.MaxOccurrencesPerNet
	if maxOcc <= 0 {
		maxOcc = defaultMaxOccurrencesPerNet
	}

	loc, err := time.LoadLocation(def.TimeZone)
	if err != nil {
		return nil, false, fmt.Errorf("expand: net %s: %w", def.ID, err)
	}

	// Candidate dates are taken one day wide of the window on each side:
	// the window is an instant range while the pattern is a date range, and
	// a local date near the window edge can resolve into or out of it
	// depending on the zone offset.
	first := cfg.RangeStart.In(loc).AddDate(0, 0, -1)
	last := cfg.RangeEnd.In(loc).AddDate(0, 0, 1)

	dates, err := DatesBetween(def.Recurrence, first, last)
	if err != nil {
		return nil, false, fmt.Errorf("expand: net %s: %w", def.ID, err)
	}

	hitCap := false
	if len(dates) > maxOcc {
		dates = dates[:maxOcc]
		hitCap = true
	}

	out := make([]model.Occurrence, 0, len(dates))
	for _, d := range dates {
		start, adjusted := ResolveLocal(d.Year(), d.Month(), d.Day(),
			def.StartLocal.Hour, def.StartLocal.Minute, loc)
		end := start.Add(def.Duration())

		if end.Before(cfg.RangeStart) || start.After(cfg.RangeEnd) {
			continue
		}

		out = append(out, model.Occurrence{
			NetID:       def.ID,
			Name:        def.Name,
			Description: def.Description,
			Category:    def.Category,
			Start:       start,
			End:         end,
			TimeZone:    def.TimeZone,
			Adjusted:    adjusted,
			Connections: def.Connections,
		})
	}

	return out, hitCap, nil
}

// DatesBetween expands a recurrence into the calendar dates it denotes
// within [first, last] (only the date parts of the bounds are used). The
// result is ascending and de-duplicated; dates are returned as UTC
// midnights carrying no time-of-day meaning.
func DatesBetween(rec model.Recurrence, first, last time.Time) ([]time.Time, error) {
	dtstart := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, time.UTC)
	until := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, time.UTC)
	if until.Before(dtstart) {
		return nil, nil
	}

	opt := rrule.ROption{Dtstart: dtstart}

	switch rec.Freq {
	case model.FreqDaily:
		opt.Freq = rrule.DAILY
	case model.FreqWeekly:
		if len(rec.Weekdays) == 0 {
			return nil, errors.New("weekly recurrence has no weekdays")
		}
		opt.Freq = rrule.WEEKLY
		for _, wd := range rec.Weekdays {
			opt.Byweekday = append(opt.Byweekday, rruleWeekday(wd))
		}
	case model.FreqMonthly:
		if len(rec.Weekdays) != 1 {
			return nil, errors.New("monthly recurrence needs exactly one weekday")
		}
		if rec.MonthPos < model.MonthLast || rec.MonthPos == 0 || rec.MonthPos > 4 {
			return nil, fmt.Errorf("monthly recurrence ordinal out of range: %d", rec.MonthPos)
		}
		opt.Freq = rrule.MONTHLY
		// Nth has a pointer receiver, so the Weekday needs a home first.
		wd := rruleWeekday(rec.Weekdays[0])
		opt.Byweekday = []rrule.Weekday{wd.Nth(rec.MonthPos)}
	default:
		return nil, fmt.Errorf("unsupported recurrence frequency %v", rec.Freq)
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, err
	}

	return r.Between(dtstart, until, true), nil
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

func rruleWeekday(wd time.Weekday) rrule.Weekday {
	return rruleWeekdays[wd]
}
