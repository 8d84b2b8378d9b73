// Package session turns per-subject presence events into sessions and
// location segments.
package session

import (
	"time"

	"github.com/google/uuid"

	"occupancy-analytics/internal/model"
)

type openSession struct {
	location     uuid.UUID
	sessionStart time.Time
	segmentStart time.Time
	carriedIn    bool
	segments     []model.Segment
}

// machine is the forward state machine for a single subject.
type machine struct {
	subject  uuid.UUID
	discard  bool
	cur      *openSession
	sessions []model.Session
	guests   map[uuid.UUID]int64
	diag     model.Diagnostics
}

func newMachine(subject uuid.UUID) *machine {
	return &machine{subject: subject, guests: make(map[uuid.UUID]int64)}
}

// newReplayMachine tracks state only; emitted sessions and counters are dropped.
func newReplayMachine(subject uuid.UUID) *machine {
	m := newMachine(subject)
	m.discard = true
	return m
}

func (m *machine) apply(ev model.Event) {
	if ev.Malformed() {
		m.diag.MalformedEvents++
		return
	}

	switch ev.Kind {
	case model.EventEnter:
		if m.cur != nil {
			m.implicitlyClose(ev.At)
		}
		m.open(*ev.LocationID, ev.At, false)
	case model.EventTransfer:
		if m.cur == nil {
			// missing ENTER in the field log: recover by opening here
			m.diag.RecoveredTransfers++
			m.open(*ev.LocationID, ev.At, false)
			return
		}
		if m.cur.location == *ev.LocationID {
			return
		}
		m.closeSegment(ev.At)
		m.cur.location = *ev.LocationID
		m.cur.segmentStart = ev.At
	case model.EventExit:
		if m.cur == nil {
			m.diag.UnmatchedExits++
			return
		}
		m.closeSession(ev.At, model.CloseExit)
	case model.EventGuestEnter:
		if !m.discard {
			m.guests[*ev.LocationID]++
		}
	}
}

// implicitlyClose applies the dangling-session policy: an ENTER seen while a
// session is still open ends that session at the ENTER's timestamp.
func (m *machine) implicitlyClose(at time.Time) {
	m.diag.ImplicitCloses++
	m.closeSession(at, model.CloseImplicit)
}

func (m *machine) open(location uuid.UUID, at time.Time, carriedIn bool) {
	m.cur = &openSession{
		location:     location,
		sessionStart: at,
		segmentStart: at,
		carriedIn:    carriedIn,
	}
}

func (m *machine) closeSegment(at time.Time) {
	if m.discard || !at.After(m.cur.segmentStart) {
		return
	}
	m.cur.segments = append(m.cur.segments, model.NewSegment(m.subject, m.cur.location, m.cur.segmentStart, at))
}

func (m *machine) closeSession(at time.Time, reason model.CloseReason) {
	m.closeSegment(at)
	cur := m.cur
	m.cur = nil
	if m.discard || len(cur.segments) == 0 {
		return
	}
	m.sessions = append(m.sessions, model.Session{
		SubjectID: m.subject,
		Start:     cur.segments[0].Start,
		End:       cur.segments[len(cur.segments)-1].End,
		Open:      reason == model.CloseTruncated,
		CarriedIn: cur.carriedIn,
		ClosedBy:  reason,
		Segments:  cur.segments,
	})
}

// finish truncates a session still open at cutoff.
func (m *machine) finish(cutoff time.Time) {
	if m.cur == nil {
		return
	}
	m.diag.TruncatedSessions++
	m.closeSession(cutoff, model.CloseTruncated)
}
