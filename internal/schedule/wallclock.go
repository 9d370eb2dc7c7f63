package schedule

import "time"

// ResolveLocal resolves a wall-clock time on a calendar date in loc to an
// absolute instant, applying fixed DST policies:
//
//   - Spring-forward gap (the wall-clock time does not exist on that date):
//     the start shifts forward to the first valid instant after the gap,
//     i.e. the transition instant itself, and adjusted is true.
//   - Fall-back fold (the wall-clock time occurs twice): the earlier,
//     pre-transition instant is always chosen.
//
// Both policies are deterministic; callers never have to disambiguate.
func ResolveLocal(year int, month time.Month, day, hour, minute int, loc *time.Location) (t time.Time, adjusted bool) {
	t = time.Date(year, month, day, hour, minute, 0, 0, loc)

	if matchesWall(t, year, month, day, hour, minute) {
		// The instant exists. It may still sit inside a fold, in which
		// case time.Date is free to return either repeat; normalize to
		// the earlier one.
		if earlier, ok := earlierFold(t, year, month, day, hour, minute); ok {
			return earlier, false
		}
		return t, false
	}

	// Gap: time.Date normalized the nonexistent wall time across the
	// transition. The first valid instant after the gap is the transition
	// boundary of the zone t landed in.
	want := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
	got := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
	if got.After(want) {
		start, _ := t.ZoneBounds()
		return start, true
	}
	_, end := t.ZoneBounds()
	return end, true
}

// matchesWall reports whether t's wall clock in its own location equals the
// requested calendar date and time-of-day.
func matchesWall(t time.Time, year int, month time.Month, day, hour, minute int) bool {
	return t.Year() == year && t.Month() == month && t.Day() == day &&
		t.Hour() == hour && t.Minute() == minute
}

// earlierFold checks whether t is the later instant of a fall-back fold and,
// if so, returns the earlier instant with the same wall clock.
func earlierFold(t time.Time, year int, month time.Month, day, hour, minute int) (time.Time, bool) {
	start, _ := t.ZoneBounds()
	if start.IsZero() {
		return time.Time{}, false
	}
	_, prevOff := start.Add(-time.Second).Zone()
	_, curOff := t.Zone()
	if prevOff <= curOff {
		// Not a backward transition; no repeated wall times here.
		return time.Time{}, false
	}
	fold := time.Duration(prevOff-curOff) * time.Second
	if t.Sub(start) >= fold {
		return time.Time{}, false
	}
	earlier := t.Add(-fold)
	if !matchesWall(earlier, year, month, day, hour, minute) {
		return time.Time{}, false
	}
	return earlier, true
}
