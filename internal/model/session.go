package model

import (
	"time"

	"github.com/google/uuid"
)

// Segment is time a subject spent at one location without moving.
type Segment struct {
	SubjectID       uuid.UUID `json:"subject_id"`
	LocationID      uuid.UUID `json:"location_id"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes float64   `json:"duration_minutes"`
}

func NewSegment(subjectID, locationID uuid.UUID, start, end time.Time) Segment {
	return Segment{
		SubjectID:       subjectID,
		LocationID:      locationID,
		Start:           start,
		End:             end,
		DurationMinutes: end.Sub(start).Minutes(),
	}
}

func (s Segment) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

type CloseReason string

const (
	CloseExit CloseReason = "EXIT"
	// CloseImplicit marks a session ended by a later ENTER with no EXIT in between.
	CloseImplicit  CloseReason = "IMPLICIT_ENTER"
	CloseTruncated CloseReason = "TRUNCATED"
)

type Session struct {
	SubjectID uuid.UUID   `json:"subject_id"`
	Start     time.Time   `json:"start"`
	End       time.Time   `json:"end"`
	Open      bool        `json:"open"`
	CarriedIn bool        `json:"carried_in"`
	ClosedBy  CloseReason `json:"closed_by"`
	Segments  []Segment   `json:"segments"`
}

func (s Session) Duration() time.Duration {
	var total time.Duration
	for _, seg := range s.Segments {
		total += seg.Duration()
	}
	return total
}

// Locations lists the distinct locations of the session in order of first arrival.
func (s Session) Locations() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(s.Segments))
	out := make([]uuid.UUID, 0, len(s.Segments))
	for _, seg := range s.Segments {
		if _, ok := seen[seg.LocationID]; ok {
			continue
		}
		seen[seg.LocationID] = struct{}{}
		out = append(out, seg.LocationID)
	}
	return out
}

type SubjectSessions struct {
	SubjectID uuid.UUID `json:"subject_id"`
	Sessions  []Session `json:"sessions"`
}

// Diagnostics counts data-quality anomalies met inside the window.
type Diagnostics struct {
	MalformedEvents    int `json:"malformed_events"`
	UnmatchedExits     int `json:"unmatched_exits"`
	RecoveredTransfers int `json:"recovered_transfers"`
	ImplicitCloses     int `json:"implicit_closes"`
	TruncatedSessions  int `json:"truncated_sessions"`
}

func (d *Diagnostics) Add(other Diagnostics) {
	d.MalformedEvents += other.MalformedEvents
	d.UnmatchedExits += other.UnmatchedExits
	d.RecoveredTransfers += other.RecoveredTransfers
	d.ImplicitCloses += other.ImplicitCloses
	d.TruncatedSessions += other.TruncatedSessions
}

// Ignored is the number of log entries that had no effect on any session.
func (d Diagnostics) Ignored() int {
	return d.MalformedEvents + d.UnmatchedExits
}

func (d Diagnostics) Total() int {
	return d.Ignored() + d.RecoveredTransfers + d.ImplicitCloses + d.TruncatedSessions
}

type SessionsReport struct {
	Period      Period            `json:"period"`
	Subjects    []SubjectSessions `json:"subjects"`
	Diagnostics Diagnostics       `json:"diagnostics"`
}
