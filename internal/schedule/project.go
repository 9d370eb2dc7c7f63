package schedule

import (
	"fmt"
	"time"
	"unicode"

	"netsched/internal/model"
)

// DisplayMode selects how an occurrence's instant is rendered.
type DisplayMode int

const (
	// AsAuthored renders the wall clock in the net's own zone, labeled
	// with that zone's abbreviation for the specific date (so EDT vs EST
	// comes out right across DST).
	AsAuthored DisplayMode = iota
	// ViewerLocal renders the same instant in the viewer's zone with a
	// generic label; the calendar date may shift relative to the authored
	// one (a Friday evening US net can be Saturday in Australia).
	ViewerLocal
)

// ViewerLocalLabel is the generic label used for ViewerLocal projections.
const ViewerLocalLabel = "your local time"

// DisplayTime is a rendered view of an occurrence's start.
type DisplayTime struct {
	// Time is the start reinterpreted in the mode's zone. The underlying
	// instant is identical in every mode.
	Time time.Time
	// Label is the zone label to show next to the time: a date-correct
	// abbreviation like "EDT" for AsAuthored (numeric UTC offset when the
	// zone has no letter abbreviation), or ViewerLocalLabel.
	Label string
	// UTC is the same instant in UTC, for the optional annotation some
	// surfaces append. Rendering it never changes the primary time.
	UTC time.Time
}

// Project renders an occurrence's start for display. It is a read-only,
// idempotent function: the occurrence is never mutated, and identical
// inputs produce identical output. viewer is only consulted for
// ViewerLocal; passing nil there falls back to time.Local.
func Project(occ model.Occurrence, mode DisplayMode, viewer *time.Location) DisplayTime {
	switch mode {
	case ViewerLocal:
		if viewer == nil {
			viewer = time.Local
		}
		local := occ.Start.In(viewer)
		return DisplayTime{Time: local, Label: ViewerLocalLabel, UTC: occ.Start.UTC()}
	default:
		authored := occ.Start
		if loc, err := time.LoadLocation(occ.TimeZone); err == nil {
			authored = authored.In(loc)
		}
		return DisplayTime{Time: authored, Label: zoneLabel(authored), UTC: occ.Start.UTC()}
	}
}

// zoneLabel returns the zone abbreviation in effect at t, or a numeric
// UTC offset when the zone provides none (e.g. "-07" style names).
func zoneLabel(t time.Time) string {
	name, offset := t.Zone()
	if isAbbreviation(name) {
		return name
	}
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, offset/3600, offset%3600/60)
}

func isAbbreviation(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
