package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netsched/internal/model"
	"netsched/internal/schedule"
)

func fallBackWeekOccurrences(t *testing.T) []model.Occurrence {
	t.Helper()
	occs, _, err := schedule.ExpandNet(fridayNightNet(), schedule.ExpandConfig{
		RangeStart: time.Date(2025, time.October, 29, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2025, time.November, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, occs, 2)
	return occs
}

// AsAuthored shows the authored wall clock with the zone label correct for
// that specific date: EDT before the fall-back, EST after.
func TestProject_AsAuthoredAcrossDST(t *testing.T) {
	occs := fallBackWeekOccurrences(t)

	before := schedule.Project(occs[0], schedule.AsAuthored, nil)
	assert.Equal(t, "2025-10-31T20:00:00-04:00", before.Time.Format(time.RFC3339))
	assert.Equal(t, "EDT", before.Label)

	after := schedule.Project(occs[1], schedule.AsAuthored, nil)
	assert.Equal(t, "2025-11-07T20:00:00-05:00", after.Time.Format(time.RFC3339))
	assert.Equal(t, "EST", after.Label)

	// Both modes agree on the underlying instant.
	assert.True(t, before.UTC.Equal(before.Time))
	assert.Equal(t, "2025-11-01T00:00:00Z", before.UTC.Format(time.RFC3339))
}

// A Friday evening US net lands on Saturday for a viewer in Australia;
// the projection shifts the calendar date without touching the instant.
func TestProject_ViewerLocalDateShift(t *testing.T) {
	occs := fallBackWeekOccurrences(t)
	sydney, err := time.LoadLocation("Australia/Sydney")
	require.NoError(t, err)

	disp := schedule.Project(occs[0], schedule.ViewerLocal, sydney)
	assert.Equal(t, schedule.ViewerLocalLabel, disp.Label)
	assert.Equal(t, "2025-11-01T11:00:00+11:00", disp.Time.Format(time.RFC3339))
	assert.Equal(t, time.Saturday, disp.Time.Weekday())
	assert.True(t, disp.Time.Equal(occs[0].Start))
}

func TestProject_Idempotent(t *testing.T) {
	occs := fallBackWeekOccurrences(t)
	original := occs[0]
	sydney, err := time.LoadLocation("Australia/Sydney")
	require.NoError(t, err)

	for _, mode := range []schedule.DisplayMode{schedule.AsAuthored, schedule.ViewerLocal} {
		first := schedule.Project(occs[0], mode, sydney)
		second := schedule.Project(occs[0], mode, sydney)
		assert.Equal(t, first, second)
	}

	// The occurrence itself is never mutated.
	assert.True(t, original.Start.Equal(occs[0].Start))
	assert.True(t, original.End.Equal(occs[0].End))
	assert.Equal(t, original.TimeZone, occs[0].TimeZone)
}

func TestProject_NumericOffsetFallback(t *testing.T) {
	// A fixed-offset zone name carries no letter abbreviation; the label
	// falls back to a numeric UTC offset instead of disappearing.
	start := time.Date(2025, time.June, 6, 20, 0, 0, 0, time.FixedZone("-03", -3*3600))
	occ := model.Occurrence{
		NetID:    "fixed-offset-net",
		Start:    start,
		End:      start.Add(time.Hour),
		TimeZone: "Etc/Unknown",
	}

	disp := schedule.Project(occ, schedule.AsAuthored, nil)
	assert.Equal(t, "UTC-03:00", disp.Label)
}
