package model

import (
	"strings"

	"github.com/google/uuid"
)

type RoomCategory string

const (
	RoomCategorySpace   RoomCategory = "SPACE"
	RoomCategoryProgram RoomCategory = "PROGRAM"
)

// ParseRoomCategory maps anything that is not a program (class, course,
// session) to SPACE.
func ParseRoomCategory(raw string) RoomCategory {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PROGRAM", "CLASS", "COURSE":
		return RoomCategoryProgram
	default:
		return RoomCategorySpace
	}
}

type Room struct {
	ID       uuid.UUID    `json:"id"`
	Name     string       `json:"name"`
	Category RoomCategory `json:"category"`
}

const (
	RoleAdmin  = "ADMIN"
	RoleStaff  = "STAFF"
	RoleMember = "MEMBER"
)

const UnknownTier = "UNKNOWN"

type Subject struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Role string    `json:"role"`
	Tier string    `json:"tier"`
}

func (s Subject) HasRole(roles ...string) bool {
	for _, role := range roles {
		if strings.EqualFold(strings.TrimSpace(role), s.Role) {
			return true
		}
	}
	return false
}

func (s Subject) TierOrUnknown() string {
	if strings.TrimSpace(s.Tier) == "" {
		return UnknownTier
	}
	return s.Tier
}

// SubjectPredicate selects subjects. A nil predicate matches nobody.
type SubjectPredicate func(Subject) bool

func (p SubjectPredicate) Match(s Subject) bool {
	return p != nil && p(s)
}

func ExcludeRoles(roles ...string) SubjectPredicate {
	if len(roles) == 0 {
		return nil
	}
	return func(s Subject) bool {
		return s.HasRole(roles...)
	}
}

func TierIs(tier string) SubjectPredicate {
	return func(s Subject) bool {
		return strings.EqualFold(s.TierOrUnknown(), tier)
	}
}

func RoleIs(role string) SubjectPredicate {
	return func(s Subject) bool {
		return s.HasRole(role)
	}
}

// All matches subjects accepted by every non-nil predicate.
func All(predicates ...SubjectPredicate) SubjectPredicate {
	return func(s Subject) bool {
		for _, p := range predicates {
			if p != nil && !p(s) {
				return false
			}
		}
		return true
	}
}

func Not(p SubjectPredicate) SubjectPredicate {
	return func(s Subject) bool {
		return !p.Match(s)
	}
}
