package session

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"occupancy-analytics/internal/model"
)

// BoundaryState is a subject's presence at the instant a window begins.
type BoundaryState struct {
	LocationID uuid.UUID
	// Since is always the window start; carried-in minutes never predate it.
	Since time.Time
	// SessionStart is when the carried-in session really began.
	SessionStart time.Time
}

// ResolveBoundary replays one subject's history before windowStart and
// reports the open session, if any, that crosses into the window. Events at or
// after windowStart are ignored.
func ResolveBoundary(events []model.Event, windowStart time.Time) *BoundaryState {
	if len(events) == 0 {
		return nil
	}
	return resolveSorted(sortedByTime(events), windowStart)
}

func resolveSorted(ordered []model.Event, windowStart time.Time) *BoundaryState {
	if len(ordered) == 0 {
		return nil
	}
	m := newReplayMachine(ordered[0].SubjectID)
	for _, ev := range ordered {
		if !ev.At.Before(windowStart) {
			break
		}
		m.apply(ev)
	}
	if m.cur == nil {
		return nil
	}
	return &BoundaryState{
		LocationID:   m.cur.location,
		Since:        windowStart,
		SessionStart: m.cur.sessionStart,
	}
}

// TruncationPoint is where an unterminated session is cut: the window end, or
// now when the window reaches into the future.
func TruncationPoint(window model.Period, now time.Time) time.Time {
	if !now.IsZero() && now.Before(window.End) {
		return now
	}
	return window.End
}

// sortedByTime returns a time-ordered copy. Equal timestamps keep insertion order.
func sortedByTime(events []model.Event) []model.Event {
	ordered := make([]model.Event, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].At.Before(ordered[j].At)
	})
	return ordered
}
