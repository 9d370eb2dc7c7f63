package model

import (
	"fmt"
	"time"
)

// Category groups nets for display and for next-net selection fallback.
// The allowed set is closed and validated when definitions are loaded
// (see internal/nets); it is not re-checked at call sites.
type Category string

// Frequency is the recurrence base frequency of a net.
type Frequency int

const (
	FreqDaily Frequency = iota
	FreqWeekly
	FreqMonthly
)

func (f Frequency) String() string {
	switch f {
	case FreqDaily:
		return "DAILY"
	case FreqWeekly:
		return "WEEKLY"
	case FreqMonthly:
		return "MONTHLY"
	default:
		return fmt.Sprintf("Frequency(%d)", int(f))
	}
}

// TimeOfDay is a wall-clock time as authored ("20:00"), prior to being
// resolved against a time zone's rules for a concrete date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Recurrence is a declarative repeat pattern.
//
//   - FreqDaily: every day; Weekdays and MonthPos are ignored.
//   - FreqWeekly: every listed weekday; Weekdays must be non-empty.
//   - FreqMonthly: the MonthPos-th occurrence of Weekdays[0] in each month,
//     with MonthPos in 1..4 or -1 for the last one.
type Recurrence struct {
	Freq     Frequency
	Weekdays []time.Weekday
	MonthPos int
}

// MonthLast is the MonthPos value selecting the last matching weekday
// of a month.
const MonthLast = -1

// NetDefinition is the authored template a net's occurrences are
// generated from. Field values mirror the nets data file.
type NetDefinition struct {
	ID          string
	Name        string
	Description string
	Category    Category

	// StartLocal is interpreted in TimeZone.
	StartLocal  TimeOfDay
	DurationMin int
	Recurrence  Recurrence

	// TimeZone is the IANA zone authoritative for this net's wall clock.
	TimeZone string

	// Connections carries opaque contact metadata (AllStar node, EchoLink,
	// DMR talkgroup, HF frequency, ...) passed through to outputs untouched.
	Connections map[string]string
}

func (d NetDefinition) Duration() time.Duration {
	return time.Duration(d.DurationMin) * time.Minute
}

// Occurrence is one concrete, dated instance of a net. Start and End carry
// the net zone's *time.Location so that marshalling to RFC 3339 preserves
// the authored UTC offset for that specific date.
type Occurrence struct {
	NetID       string
	Name        string
	Description string
	Category    Category

	Start time.Time
	End   time.Time

	// TimeZone is the IANA zone Start was resolved in.
	TimeZone string

	// Adjusted is set when the authored wall-clock time did not exist on
	// this date (spring-forward gap) and the start was shifted to the first
	// valid instant after the transition.
	Adjusted bool

	Connections map[string]string
}

// InstanceKey uniquely identifies one occurrence of a recurring net.
func (o Occurrence) InstanceKey() string {
	return o.NetID + "/" + o.Start.UTC().Format(time.RFC3339)
}

// LiveState classifies an occurrence relative to a point in time.
type LiveState int

const (
	LiveUpcoming LiveState = iota
	LiveInProgress
	LivePast
)

func (s LiveState) String() string {
	switch s {
	case LiveUpcoming:
		return "upcoming"
	case LiveInProgress:
		return "in_progress"
	case LivePast:
		return "past"
	default:
		return fmt.Sprintf("LiveState(%d)", int(s))
	}
}

// SelectionPolicy records which branch of next-net selection produced
// a result.
type SelectionPolicy string

const (
	// PolicyPreferred: the earliest future occurrence in the preferred
	// category was found.
	PolicyPreferred SelectionPolicy = "preferred"
	// PolicyFallbackAny: the preferred category had no future occurrence;
	// the earliest across all categories was used instead.
	PolicyFallbackAny SelectionPolicy = "fallback-any"
	// PolicyNone: no future occurrence at all. Not an error.
	PolicyNone SelectionPolicy = "none"
)

// SelectionResult is the outcome of next-net selection.
type SelectionResult struct {
	Occurrence *Occurrence
	Policy     SelectionPolicy
}
