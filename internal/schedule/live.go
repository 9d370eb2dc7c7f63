package schedule

import (
	"time"

	"netsched/internal/model"
)

// Classify places now relative to an occurrence's window:
//
//	Upcoming    now < Start
//	InProgress  Start <= now < End
//	Past        now >= End
//
// The three states are exhaustive and mutually exclusive for any valid
// occurrence (End > Start).
func Classify(occ model.Occurrence, now time.Time) model.LiveState {
	switch {
	case now.Before(occ.Start):
		return model.LiveUpcoming
	case now.Before(occ.End):
		return model.LiveInProgress
	default:
		return model.LivePast
	}
}
