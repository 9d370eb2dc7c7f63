package schedule

import (
	"errors"
	"sort"
	"sync"
	"time"

	appLog "netsched/internal/log"
	"netsched/internal/model"
)

// Feed is a flat, ascending (by start, then net id) sequence of occurrences
// across all nets.
type Feed []model.Occurrence

// BuildFeed expands every definition over the configured window and merges
// the results into one ordered feed. Duplicate (net id, start) pairs are
// collapsed to the first-listed definition, so a more specific variant
// placed ahead of its base entry wins.
//
// Definitions that fail to expand (this should not happen for validated
// input) are logged and skipped rather than failing the whole feed; an
// error is returned only when nothing could be expanded at all.
func BuildFeed(defs []model.NetDefinition, cfg ExpandConfig) (Feed, error) {
	all := make(Feed, 0, len(defs)*8)
	var failed int

	for _, def := range defs {
		occs, hitCap, err := ExpandNet(def, cfg)
		if err != nil {
			failed++
			appLog.Error("feed: expansion failed", err, "net_id", def.ID)
			continue
		}
		if hitCap {
			appLog.Warn("feed: occurrence cap hit", "net_id", def.ID)
		}
		all = append(all, occs...)
	}

	if failed > 0 && len(all) == 0 && len(defs) > 0 {
		return nil, errors.New("feed: no definitions could be expanded")
	}

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].Start.Equal(all[j].Start) {
			return all[i].Start.Before(all[j].Start)
		}
		return all[i].NetID < all[j].NetID
	})

	return dedupe(all), nil
}

// dedupe removes occurrences sharing (net id, start) with an earlier entry,
// preserving input order otherwise.
func dedupe(f Feed) Feed {
	if len(f) < 2 {
		return f
	}
	seen := make(map[string]bool, len(f))
	out := f[:0]
	for _, occ := range f {
		key := occ.InstanceKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, occ)
	}
	return out
}

// Upcoming returns the occurrences that have not finished by now. An
// occurrence that has started but not ended is still current, not past,
// so it stays in.
func (f Feed) Upcoming(now time.Time) Feed {
	out := make(Feed, 0, len(f))
	for _, occ := range f {
		if occ.End.After(now) {
			out = append(out, occ)
		}
	}
	return out
}

// Category filters the feed to one category.
func (f Feed) Category(c model.Category) Feed {
	out := make(Feed, 0, len(f))
	for _, occ := range f {
		if occ.Category == c {
			out = append(out, occ)
		}
	}
	return out
}

// StartingBy keeps occurrences starting at or before cutoff, e.g. the
// coming week's list.
func (f Feed) StartingBy(cutoff time.Time) Feed {
	out := make(Feed, 0, len(f))
	for _, occ := range f {
		if !occ.Start.After(cutoff) {
			out = append(out, occ)
		}
	}
	return out
}

// Categories returns the sorted set of categories present in the feed.
func (f Feed) Categories() []model.Category {
	seen := make(map[model.Category]bool)
	for _, occ := range f {
		seen[occ.Category] = true
	}
	out := make([]model.Category, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Snapshot holds the last successfully built feed for concurrent readers.
// Replace swaps the whole feed at once, so a reader sees either the old
// complete result or the new one, never a partial mix. Readers tolerate
// staleness up to the refresh interval.
type Snapshot struct {
	mu      sync.RWMutex
	feed    Feed
	builtAt time.Time
}

// Replace installs a newly built feed.
func (s *Snapshot) Replace(f Feed, builtAt time.Time) {
	s.mu.Lock()
	s.feed = f
	s.builtAt = builtAt
	s.mu.Unlock()
}

// Current returns the installed feed and when it was built. The returned
// slice must be treated as read-only.
func (s *Snapshot) Current() (Feed, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feed, s.builtAt
}
