package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventEnter      EventKind = "ENTER"
	EventExit       EventKind = "EXIT"
	EventTransfer   EventKind = "TRANSFER"
	EventGuestEnter EventKind = "GUEST_ENTER"
)

// legacy log vocabulary still present in older rows
var eventKindAliases = map[string]EventKind{
	"CHECKIN":   EventEnter,
	"CHECK_IN":  EventEnter,
	"CHECKOUT":  EventExit,
	"CHECK_OUT": EventExit,
	"MOVE":      EventTransfer,
	"GUEST":     EventGuestEnter,
}

// ParseEventKind normalizes a stored kind. Unknown values are returned as-is
// so that reconstruction can count them as malformed.
func ParseEventKind(raw string) EventKind {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if kind, ok := eventKindAliases[normalized]; ok {
		return kind
	}
	return EventKind(normalized)
}

func (k EventKind) Valid() bool {
	switch k {
	case EventEnter, EventExit, EventTransfer, EventGuestEnter:
		return true
	default:
		return false
	}
}

func (k EventKind) NeedsLocation() bool {
	return k == EventEnter || k == EventTransfer || k == EventGuestEnter
}

// Event is one immutable entry of the presence log.
type Event struct {
	ID         uuid.UUID  `json:"id"`
	SubjectID  uuid.UUID  `json:"subject_id"`
	Kind       EventKind  `json:"kind"`
	LocationID *uuid.UUID `json:"location_id,omitempty"`
	At         time.Time  `json:"at"`
}

func (e Event) Malformed() bool {
	if !e.Kind.Valid() {
		return true
	}
	return e.Kind.NeedsLocation() && e.LocationID == nil
}
