package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidPeriod = errors.New("invalid period")

type PeriodType string

const (
	PeriodDaily       PeriodType = "DAILY"
	PeriodWeekly      PeriodType = "WEEKLY"
	PeriodMonthly     PeriodType = "MONTHLY"
	PeriodYearly      PeriodType = "YEARLY"
	PeriodCustomRange PeriodType = "CUSTOM_RANGE"
)

type BucketUnit string

const (
	BucketHour  BucketUnit = "hour"
	BucketDay   BucketUnit = "day"
	BucketMonth BucketUnit = "month"
)

type periodRule struct {
	bucket BucketUnit
	bounds func(anchor time.Time) (time.Time, time.Time)
}

// CUSTOM_RANGE has no anchor-only bounds; see CustomRange.
var periodRules = map[PeriodType]periodRule{
	PeriodDaily: {
		bucket: BucketHour,
		bounds: func(anchor time.Time) (time.Time, time.Time) {
			start := StartOfDay(anchor)
			return start, start.AddDate(0, 0, 1)
		},
	},
	PeriodWeekly: {
		bucket: BucketDay,
		bounds: func(anchor time.Time) (time.Time, time.Time) {
			start := StartOfWeek(anchor)
			return start, start.AddDate(0, 0, 7)
		},
	},
	PeriodMonthly: {
		bucket: BucketDay,
		bounds: func(anchor time.Time) (time.Time, time.Time) {
			start := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())
			return start, start.AddDate(0, 1, 0)
		},
	},
	PeriodYearly: {
		bucket: BucketMonth,
		bounds: func(anchor time.Time) (time.Time, time.Time) {
			start := time.Date(anchor.Year(), time.January, 1, 0, 0, 0, 0, anchor.Location())
			return start, start.AddDate(1, 0, 0)
		},
	},
	PeriodCustomRange: {bucket: BucketDay},
}

func ParsePeriodType(raw string) (PeriodType, error) {
	t := PeriodType(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown period type %q", ErrInvalidPeriod, raw)
	}
	return t, nil
}

func (t PeriodType) Valid() bool {
	_, ok := periodRules[t]
	return ok
}

// BucketUnit is the trend-series granularity for the period type.
func (t PeriodType) BucketUnit() BucketUnit {
	if rule, ok := periodRules[t]; ok {
		return rule.bucket
	}
	return BucketDay
}

// Period is the half-open reporting window [Start, End).
type Period struct {
	Type  PeriodType `json:"type"`
	Start time.Time  `json:"start"`
	End   time.Time  `json:"end"`
}

// NewPeriod derives the window for t around anchor. end is only read for
// CUSTOM_RANGE, where it names the last included day.
func NewPeriod(t PeriodType, anchor, end time.Time) (Period, error) {
	rule, ok := periodRules[t]
	if !ok {
		return Period{}, fmt.Errorf("%w: unknown period type %q", ErrInvalidPeriod, t)
	}
	if anchor.IsZero() {
		return Period{}, fmt.Errorf("%w: anchor date is required", ErrInvalidPeriod)
	}
	if t == PeriodCustomRange {
		return CustomRange(anchor, end)
	}
	start, stop := rule.bounds(anchor)
	return Period{Type: t, Start: start, End: stop}, nil
}

// CustomRange covers the calendar days from through to, both inclusive.
func CustomRange(from, to time.Time) (Period, error) {
	if from.IsZero() || to.IsZero() {
		return Period{}, fmt.Errorf("%w: custom range needs both start and end dates", ErrInvalidPeriod)
	}
	p := Period{
		Type:  PeriodCustomRange,
		Start: StartOfDay(from),
		End:   StartOfDay(to.In(from.Location())).AddDate(0, 0, 1),
	}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

func (p Period) Validate() error {
	if !p.Type.Valid() {
		return fmt.Errorf("%w: unknown period type %q", ErrInvalidPeriod, p.Type)
	}
	if !p.End.After(p.Start) {
		return fmt.Errorf("%w: end %s is not after start %s", ErrInvalidPeriod, p.End.Format(time.RFC3339), p.Start.Format(time.RFC3339))
	}
	return nil
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

func (p Period) Location() *time.Location {
	return p.Start.Location()
}

// Days counts the calendar days the period touches.
func (p Period) Days() int {
	days := 0
	for d := StartOfDay(p.Start); d.Before(p.End); d = d.AddDate(0, 0, 1) {
		days++
	}
	return days
}

// Previous is the window of the same number of days ending where p starts.
func (p Period) Previous() Period {
	return Period{
		Type:  PeriodCustomRange,
		Start: StartOfDay(p.Start).AddDate(0, 0, -p.Days()),
		End:   p.Start,
	}
}

// Buckets lists the start of every trend bucket covering the period.
func (p Period) Buckets() []time.Time {
	unit := p.Type.BucketUnit()
	var starts []time.Time
	for t := p.Start; t.Before(p.End); t = NextBucket(unit, t) {
		starts = append(starts, t)
	}
	return starts
}

func NextBucket(unit BucketUnit, t time.Time) time.Time {
	switch unit {
	case BucketHour:
		return t.Add(time.Hour)
	case BucketMonth:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns the Monday midnight of t's week.
func StartOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	return day.AddDate(0, 0, -(ISOWeekday(day.Weekday()) - 1))
}

// ISOWeekday maps Monday..Sunday to 1..7.
func ISOWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}
