package schedule

import (
	"time"

	"netsched/internal/model"
)

// SelectNext deterministically picks the single occurrence to highlight as
// the "next net":
//
//  1. only strictly-future occurrences count (one in progress is current,
//     not next — see Classify);
//  2. the earliest future occurrence in the preferred category wins, even
//     when another category has an earlier one;
//  3. with nothing in the preferred category, the earliest across all
//     categories is used instead, and the result says so;
//  4. an empty field yields PolicyNone, which is an ordinary outcome.
//
// Equal start instants are broken by net id lexical order. The function
// reads no clock beyond the supplied now.
func SelectNext(occs []model.Occurrence, now time.Time, preferred model.Category) model.SelectionResult {
	var bestPreferred, bestAny *model.Occurrence

	for i := range occs {
		occ := &occs[i]
		if !occ.Start.After(now) {
			continue
		}
		if better(occ, bestAny) {
			bestAny = occ
		}
		if occ.Category == preferred && better(occ, bestPreferred) {
			bestPreferred = occ
		}
	}

	switch {
	case preferred != "" && bestPreferred != nil:
		return model.SelectionResult{Occurrence: copyOcc(bestPreferred), Policy: model.PolicyPreferred}
	case bestAny != nil:
		return model.SelectionResult{Occurrence: copyOcc(bestAny), Policy: model.PolicyFallbackAny}
	default:
		return model.SelectionResult{Policy: model.PolicyNone}
	}
}

// better reports whether candidate sorts ahead of current
// (earlier start, ties by net id).
func better(candidate, current *model.Occurrence) bool {
	if current == nil {
		return true
	}
	if !candidate.Start.Equal(current.Start) {
		return candidate.Start.Before(current.Start)
	}
	return candidate.NetID < current.NetID
}

func copyOcc(occ *model.Occurrence) *model.Occurrence {
	c := *occ
	return &c
}
