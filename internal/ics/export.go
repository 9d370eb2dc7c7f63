// Package ics serializes an occurrence feed as an iCalendar document so
// members can subscribe to the net schedule from their own calendar apps.
package ics

import (
	"sort"
	"strings"

	ical "github.com/arran4/golang-ical"

	"netsched/internal/model"
)

const prodID = "-//netsched//net schedule//EN"

// BuildCalendar converts a feed into a VCALENDAR with one VEVENT per
// occurrence. Occurrence instants are emitted in UTC form; consumers
// reproject into their own zones as usual.
func BuildCalendar(occs []model.Occurrence, name string) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(prodID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, occ := range occs {
		ev := cal.AddEvent(uidFor(occ))
		ev.SetDtStampTime(occ.Start.UTC())
		ev.SetStartAt(occ.Start.UTC())
		ev.SetEndAt(occ.End.UTC())
		ev.SetSummary(summaryFor(occ))
		if desc := descriptionFor(occ); desc != "" {
			ev.SetDescription(desc)
		}
		ev.SetProperty(ical.ComponentProperty("CATEGORIES"), strings.ToUpper(string(occ.Category)))
	}

	return cal
}

// Serialize renders the feed directly to iCalendar text.
func Serialize(occs []model.Occurrence, name string) string {
	return BuildCalendar(occs, name).Serialize()
}

// uidFor derives a stable per-instance UID, so re-published feeds update
// events in place instead of duplicating them.
func uidFor(occ model.Occurrence) string {
	return occ.InstanceKey() + "@netsched"
}

func summaryFor(occ model.Occurrence) string {
	if occ.Name != "" {
		return occ.Name
	}
	return occ.NetID
}

// descriptionFor combines the net description with its connection info
// (AllStar node, EchoLink, frequency, ...), one entry per line.
func descriptionFor(occ model.Occurrence) string {
	var b strings.Builder
	if occ.Description != "" {
		b.WriteString(occ.Description)
	}
	for _, key := range sortedKeys(occ.Connections) {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(occ.Connections[key])
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
