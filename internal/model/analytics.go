package model

import (
	"time"

	"github.com/google/uuid"
)

// NoPeakHour is reported when no hour of the period has elapsed or nothing overlapped it.
const NoPeakHour = -1

type RoomStat struct {
	LocationID      uuid.UUID     `json:"location_id"`
	Name            string        `json:"name"`
	Category        RoomCategory  `json:"category"`
	TotalMinutes    float64       `json:"total_minutes"`
	Duration        time.Duration `json:"-"`
	VisitCount      int64         `json:"visit_count"`
	UniqueSubjects  int64         `json:"unique_subjects"`
	GuestCount      int64         `json:"guest_count"`
	PeakHour        int           `json:"peak_hour"`
	PeakHourRange   string        `json:"peak_hour_range"`
	PeakConcurrency float64       `json:"peak_avg_concurrency"`
	BusiestWeekday  int           `json:"busiest_weekday"`
}

type SubjectStat struct {
	SubjectID       uuid.UUID     `json:"subject_id"`
	Name            string        `json:"name"`
	Tier            string        `json:"tier"`
	TotalMinutes    float64       `json:"total_minutes"`
	Duration        time.Duration `json:"-"`
	VisitCount      int64         `json:"visit_count"`
	DistinctDays    int64         `json:"distinct_days"`
	ProgramJoins    int64         `json:"program_joins"`
	ProgramAttended int64         `json:"program_attended"`
}

type CategoryStat struct {
	Category       RoomCategory  `json:"category"`
	TotalMinutes   float64       `json:"total_minutes"`
	Duration       time.Duration `json:"-"`
	VisitCount     int64         `json:"visit_count"`
	UniqueSubjects int64         `json:"unique_subjects"`
}

type TierBreakdown struct {
	Tier           string        `json:"tier"`
	UniqueSubjects int64         `json:"unique_subjects"`
	VisitCount     int64         `json:"visit_count"`
	TotalMinutes   float64       `json:"total_minutes"`
	Duration       time.Duration `json:"-"`
}

type Totals struct {
	TotalVisits    int64           `json:"total_visits"`
	TotalGuests    int64           `json:"total_guests"`
	UniqueSubjects int64           `json:"unique_subjects"`
	TotalMinutes   float64         `json:"total_minutes"`
	Duration       time.Duration   `json:"-"`
	ByTier         []TierBreakdown `json:"by_tier"`
}

type TimeBucket struct {
	BucketStart  time.Time     `json:"bucket_start"`
	VisitCount   int64         `json:"visit_count"`
	TotalMinutes float64       `json:"total_minutes"`
	Duration     time.Duration `json:"-"`
}

type RoomAndSubjectStats struct {
	Period      Period         `json:"period"`
	Rooms       []RoomStat     `json:"room_stats"`
	Subjects    []SubjectStat  `json:"subject_stats"`
	Categories  []CategoryStat `json:"category_stats"`
	Totals      Totals         `json:"totals"`
	Series      []TimeBucket   `json:"series"`
	Diagnostics Diagnostics    `json:"diagnostics"`
}

type SpaceResult struct {
	LocationID     uuid.UUID     `json:"location_id"`
	Name           string        `json:"name"`
	UniqueVisitors int64         `json:"unique_visitors"`
	VisitCount     int64         `json:"visit_count"`
	AvgVisitCount  float64       `json:"avg_visit_count"`
	TotalMinutes   float64       `json:"total_minutes"`
	Duration       time.Duration `json:"-"`
	AvgMinutes     float64       `json:"avg_minutes"`
	BusiestWeekday int           `json:"busiest_weekday"`
	PeakHourRange  string        `json:"peak_hour_range"`
}

// MonthlyMetrics compares the range with the preceding range of the same length.
type MonthlyMetrics struct {
	EligibleSubjects       int64   `json:"eligible_subjects"`
	ActiveSubjects         int64   `json:"active_subjects"`
	ActiveRatio            float64 `json:"active_ratio"`
	PreviousActiveSubjects int64   `json:"previous_active_subjects"`
	RetainedSubjects       int64   `json:"retained_subjects"`
	RetentionRate          float64 `json:"retention_rate"`
}

type OperationReport struct {
	Period              Period          `json:"period"`
	SpaceResults        []SpaceResult   `json:"space_results"`
	MonthlyMetrics      *MonthlyMetrics `json:"monthly_metrics"`
	TotalUniqueSubjects int64           `json:"total_unique_subjects"`
	Diagnostics         Diagnostics     `json:"diagnostics"`
}
