package session

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"occupancy-analytics/internal/model"
)

const defaultWorkers = 4

type Options struct {
	// Now caps truncation of open sessions. Zero means the window end is used.
	Now     time.Time
	Workers int
}

// Result is the subject-to-sessions map of one window plus what was counted on the side.
type Result struct {
	Window model.Period
	// Cutoff is min(window end, now); no minute after it is attributed.
	Cutoff      time.Time
	Sessions    map[uuid.UUID][]model.Session
	Guests      map[uuid.UUID]int64
	Diagnostics model.Diagnostics
}

// SubjectIDs returns the subjects with at least one session, in id order.
func (r Result) SubjectIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Sessions))
	for id := range r.Sessions {
		ids = append(ids, id)
	}
	SortIDs(ids)
	return ids
}

// Ordered flattens Sessions into id order.
func (r Result) Ordered() []model.SubjectSessions {
	ids := r.SubjectIDs()
	out := make([]model.SubjectSessions, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.SubjectSessions{SubjectID: id, Sessions: r.Sessions[id]})
	}
	return out
}

type subjectResult struct {
	sessions []model.Session
	guests   map[uuid.UUID]int64
	diag     model.Diagnostics
}

// Reconstruct builds the sessions of every subject that overlap window.
// Subjects are independent, so they are spread over Workers goroutines that
// each fill a private slot; slots are merged in subject id order.
func Reconstruct(events []model.Event, window model.Period, opts Options) (Result, error) {
	if err := window.Validate(); err != nil {
		return Result{}, err
	}

	cutoff := TruncationPoint(window, opts.Now)
	result := Result{
		Window:   window,
		Cutoff:   cutoff,
		Sessions: make(map[uuid.UUID][]model.Session),
		Guests:   make(map[uuid.UUID]int64),
	}
	if !cutoff.After(window.Start) {
		return result, nil
	}

	order, bySubject := groupBySubject(events)
	slots := make([]subjectResult, len(order))

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i, id := range order {
		g.Go(func() error {
			slots[i] = reconstructSubject(id, bySubject[id], window, cutoff)
			return nil
		})
	}
	_ = g.Wait()

	for i, id := range order {
		slot := slots[i]
		if len(slot.sessions) > 0 {
			result.Sessions[id] = slot.sessions
		}
		for location, n := range slot.guests {
			result.Guests[location] += n
		}
		result.Diagnostics.Add(slot.diag)
	}
	return result, nil
}

func reconstructSubject(subject uuid.UUID, events []model.Event, window model.Period, cutoff time.Time) subjectResult {
	start := window.Start
	ordered := sortedByTime(events)
	split := sort.Search(len(ordered), func(i int) bool {
		return !ordered[i].At.Before(start)
	})

	m := newMachine(subject)
	if state := resolveSorted(ordered[:split], start); state != nil {
		m.open(state.LocationID, state.Since, true)
	}
	closesAtEnd := cutoff.Equal(window.End)
	for _, ev := range ordered[split:] {
		if ev.At.Before(cutoff) {
			m.apply(ev)
			continue
		}
		// an EXIT stamped exactly at the window end still closes the session
		if closesAtEnd && ev.At.Equal(cutoff) && ev.Kind == model.EventExit && m.cur != nil {
			m.apply(ev)
			continue
		}
		if ev.At.After(cutoff) {
			break
		}
	}
	m.finish(cutoff)

	return subjectResult{sessions: m.sessions, guests: m.guests, diag: m.diag}
}

func groupBySubject(events []model.Event) ([]uuid.UUID, map[uuid.UUID][]model.Event) {
	bySubject := make(map[uuid.UUID][]model.Event)
	for _, ev := range events {
		bySubject[ev.SubjectID] = append(bySubject[ev.SubjectID], ev)
	}
	order := make([]uuid.UUID, 0, len(bySubject))
	for id := range bySubject {
		order = append(order, id)
	}
	SortIDs(order)
	return order, bySubject
}

func SortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
}
