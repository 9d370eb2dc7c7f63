package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netsched/internal/schedule"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestResolveLocal_PlainDates(t *testing.T) {
	loc := newYork(t)

	// Summer: EDT, UTC-4.
	got, adjusted := schedule.ResolveLocal(2025, time.July, 4, 20, 0, loc)
	assert.False(t, adjusted)
	assert.Equal(t, "2025-07-04T20:00:00-04:00", got.Format(time.RFC3339))

	// Winter: EST, UTC-5, same wall clock.
	got, adjusted = schedule.ResolveLocal(2025, time.January, 10, 20, 0, loc)
	assert.False(t, adjusted)
	assert.Equal(t, "2025-01-10T20:00:00-05:00", got.Format(time.RFC3339))
}

func TestResolveLocal_SpringForwardGap(t *testing.T) {
	loc := newYork(t)

	// 2025-03-09: clocks jump 02:00 EST -> 03:00 EDT. 02:30 does not
	// exist; the start shifts to the first valid instant after the gap.
	got, adjusted := schedule.ResolveLocal(2025, time.March, 9, 2, 30, loc)
	assert.True(t, adjusted)
	assert.Equal(t, "2025-03-09T03:00:00-04:00", got.Format(time.RFC3339))

	// The gap boundary itself also lands on 03:00 EDT.
	got, adjusted = schedule.ResolveLocal(2025, time.March, 9, 2, 0, loc)
	assert.True(t, adjusted)
	assert.Equal(t, "2025-03-09T03:00:00-04:00", got.Format(time.RFC3339))

	// 03:00 exists; no adjustment.
	got, adjusted = schedule.ResolveLocal(2025, time.March, 9, 3, 0, loc)
	assert.False(t, adjusted)
	assert.Equal(t, "2025-03-09T03:00:00-04:00", got.Format(time.RFC3339))
}

func TestResolveLocal_FallBackFold(t *testing.T) {
	loc := newYork(t)

	// 2025-11-02: clocks fall back 02:00 EDT -> 01:00 EST, so 01:30
	// happens twice. The earlier (EDT) instant is always chosen.
	got, adjusted := schedule.ResolveLocal(2025, time.November, 2, 1, 30, loc)
	assert.False(t, adjusted)
	assert.Equal(t, "2025-11-02T01:30:00-04:00", got.Format(time.RFC3339))

	// Calling repeatedly stays on the same instant.
	again, _ := schedule.ResolveLocal(2025, time.November, 2, 1, 30, loc)
	assert.True(t, got.Equal(again))

	// 02:00 is unambiguous again (EST only).
	got, adjusted = schedule.ResolveLocal(2025, time.November, 2, 2, 0, loc)
	assert.False(t, adjusted)
	assert.Equal(t, "2025-11-02T02:00:00-05:00", got.Format(time.RFC3339))
}

func TestResolveLocal_FoldNearMidnight(t *testing.T) {
	// Chile ends DST at 24:00, so the repeated hour brushes the date
	// boundary: on 2025-04-05 clocks fall back 24:00 -03 -> 23:00 -04 and
	// 23:00-23:59 happens twice. The earlier (-03) repeat is chosen and
	// stays on April 5th.
	loc, err := time.LoadLocation("America/Santiago")
	require.NoError(t, err)

	got, adjusted := schedule.ResolveLocal(2025, time.April, 5, 23, 30, loc)
	assert.False(t, adjusted)
	assert.Equal(t, "2025-04-05T23:30:00-03:00", got.Format(time.RFC3339))
}

func TestResolveLocal_FixedOffsetZone(t *testing.T) {
	// Zones without DST never adjust.
	loc, err := time.LoadLocation("America/Phoenix")
	require.NoError(t, err)

	got, adjusted := schedule.ResolveLocal(2025, time.March, 9, 2, 30, loc)
	assert.False(t, adjusted)
	assert.Equal(t, "2025-03-09T02:30:00-07:00", got.Format(time.RFC3339))
}
