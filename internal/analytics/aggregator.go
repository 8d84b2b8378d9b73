// Package analytics aggregates reconstructed sessions into room, subject and
// time-bucket statistics.
package analytics

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"occupancy-analytics/internal/model"
	"occupancy-analytics/internal/session"
)

const defaultMonthlyMetricsMinDays = 20

type Options struct {
	Now     time.Time
	Workers int
	// MonthlyMetricsMinDays is the shortest operation-report range that gets monthly metrics.
	MonthlyMetricsMinDays int
}

func (o Options) sessionOptions() session.Options {
	return session.Options{Now: o.Now, Workers: o.Workers}
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return 1
	}
	return o.Workers
}

// MonthlyMetricsApply reports whether an operation report over period
// carries monthly metrics.
func (o Options) MonthlyMetricsApply(period model.Period) bool {
	minDays := o.MonthlyMetricsMinDays
	if minDays <= 0 {
		minDays = defaultMonthlyMetricsMinDays
	}
	return period.Days() >= minDays
}

// ComputeRoomAndSubjectStats resolves the period from anchor and periodType
// (end is only used for CUSTOM_RANGE) and aggregates it. Subjects matching
// exclude take no part in any statistic.
func ComputeRoomAndSubjectStats(events []model.Event, rooms []model.Room, subjects []model.Subject, anchor time.Time, periodType model.PeriodType, end time.Time, exclude model.SubjectPredicate, opts Options) (*model.RoomAndSubjectStats, error) {
	period, err := model.NewPeriod(periodType, anchor, end)
	if err != nil {
		return nil, err
	}
	return StatsForPeriod(events, rooms, subjects, period, exclude, opts)
}

func StatsForPeriod(events []model.Event, rooms []model.Room, subjects []model.Subject, period model.Period, exclude model.SubjectPredicate, opts Options) (*model.RoomAndSubjectStats, error) {
	res, err := session.Reconstruct(events, period, opts.sessionOptions())
	if err != nil {
		return nil, err
	}

	dir := newDirectory(rooms, subjects)
	units := dir.selectSessions(res, func(s model.Subject) bool {
		return !exclude.Match(s)
	})

	acc := accumulate(dir, period.Location(), units, opts.workers())
	for location, n := range res.Guests {
		acc.room(location).guests += n
	}

	stats := acc.build(dir, period)
	stats.Diagnostics = res.Diagnostics

	sessions := flatten(units)
	stats.Series = TimeBuckets(period, sessions)

	peaks := PeakHours(period, res.Cutoff, sessions)
	weekdays := BusiestWeekdays(period.Location(), sessions)
	for i := range stats.Rooms {
		room := &stats.Rooms[i]
		if peak, ok := peaks[room.LocationID]; ok {
			room.PeakHour = peak.Hour
			room.PeakHourRange = peak.Range
			room.PeakConcurrency = peak.AvgConcurrency
		}
		room.BusiestWeekday = weekdays[room.LocationID]
	}

	return stats, nil
}

type roomAcc struct {
	duration time.Duration
	visits   int64
	guests   int64
	subjects map[uuid.UUID]struct{}
}

type subjectAcc struct {
	subject  model.Subject
	duration time.Duration
	visits   int64
	days     map[string]struct{}
	joins    int64
	programs map[uuid.UUID]struct{}
}

// periodAccumulator is owned by one worker; partial accumulators are merged
// with sums and set unions only.
type periodAccumulator struct {
	dir      *directory
	loc      *time.Location
	rooms    map[uuid.UUID]*roomAcc
	subjects map[uuid.UUID]*subjectAcc
}

func newPeriodAccumulator(dir *directory, loc *time.Location) *periodAccumulator {
	return &periodAccumulator{
		dir:      dir,
		loc:      loc,
		rooms:    make(map[uuid.UUID]*roomAcc),
		subjects: make(map[uuid.UUID]*subjectAcc),
	}
}

func accumulate(dir *directory, loc *time.Location, units []subjectSessions, workers int) *periodAccumulator {
	chunks := chunk(units, workers)
	partials := make([]*periodAccumulator, len(chunks))

	var g errgroup.Group
	for i, part := range chunks {
		g.Go(func() error {
			acc := newPeriodAccumulator(dir, loc)
			for _, u := range part {
				acc.add(u)
			}
			partials[i] = acc
			return nil
		})
	}
	_ = g.Wait()

	total := newPeriodAccumulator(dir, loc)
	for _, p := range partials {
		total.merge(p)
	}
	return total
}

func chunk(units []subjectSessions, n int) [][]subjectSessions {
	if len(units) == 0 {
		return nil
	}
	if n > len(units) {
		n = len(units)
	}
	size := (len(units) + n - 1) / n
	var out [][]subjectSessions
	for start := 0; start < len(units); start += size {
		end := start + size
		if end > len(units) {
			end = len(units)
		}
		out = append(out, units[start:end])
	}
	return out
}

func (a *periodAccumulator) room(id uuid.UUID) *roomAcc {
	r, ok := a.rooms[id]
	if !ok {
		r = &roomAcc{subjects: make(map[uuid.UUID]struct{})}
		a.rooms[id] = r
	}
	return r
}

func (a *periodAccumulator) add(u subjectSessions) {
	if len(u.sessions) == 0 {
		return
	}
	sa := &subjectAcc{
		subject:  u.subject,
		days:     make(map[string]struct{}),
		programs: make(map[uuid.UUID]struct{}),
	}
	a.subjects[u.subject.ID] = sa

	for _, s := range u.sessions {
		sa.visits++
		visited := make(map[uuid.UUID]struct{}, len(s.Segments))
		for _, seg := range s.Segments {
			d := seg.Duration()
			r := a.room(seg.LocationID)
			r.duration += d
			r.subjects[u.subject.ID] = struct{}{}
			sa.duration += d
			for _, day := range daysTouched(seg, a.loc) {
				sa.days[day] = struct{}{}
			}

			// one visit per (subject, room, session)
			if _, ok := visited[seg.LocationID]; ok {
				continue
			}
			visited[seg.LocationID] = struct{}{}
			r.visits++
			if a.dir.isProgram(seg.LocationID) {
				sa.joins++
				sa.programs[seg.LocationID] = struct{}{}
			}
		}
	}
}

func (a *periodAccumulator) merge(other *periodAccumulator) {
	for id, o := range other.rooms {
		r := a.room(id)
		r.duration += o.duration
		r.visits += o.visits
		r.guests += o.guests
		for s := range o.subjects {
			r.subjects[s] = struct{}{}
		}
	}
	// subjects never span two workers
	for id, o := range other.subjects {
		a.subjects[id] = o
	}
}

func (a *periodAccumulator) build(dir *directory, period model.Period) *model.RoomAndSubjectStats {
	stats := &model.RoomAndSubjectStats{
		Period:     period,
		Rooms:      []model.RoomStat{},
		Subjects:   []model.SubjectStat{},
		Categories: []model.CategoryStat{},
	}

	seen := make(map[uuid.UUID]struct{}, len(a.rooms))
	for id := range a.rooms {
		seen[id] = struct{}{}
	}
	categories := make(map[model.RoomCategory]*model.CategoryStat)
	categorySubjects := make(map[model.RoomCategory]map[uuid.UUID]struct{})
	var categoryOrder []model.RoomCategory

	for _, id := range dir.roomOrder(seen) {
		room := dir.room(id)
		stat := model.RoomStat{
			LocationID: id,
			Name:       room.Name,
			Category:   room.Category,
			PeakHour:   model.NoPeakHour,
		}
		if r, ok := a.rooms[id]; ok {
			stat.Duration = r.duration
			stat.TotalMinutes = r.duration.Minutes()
			stat.VisitCount = r.visits
			stat.UniqueSubjects = int64(len(r.subjects))
			stat.GuestCount = r.guests
		}
		stats.Rooms = append(stats.Rooms, stat)
		stats.Totals.TotalGuests += stat.GuestCount

		cat, ok := categories[room.Category]
		if !ok {
			cat = &model.CategoryStat{Category: room.Category}
			categories[room.Category] = cat
			categorySubjects[room.Category] = make(map[uuid.UUID]struct{})
			categoryOrder = append(categoryOrder, room.Category)
		}
		cat.Duration += stat.Duration
		cat.VisitCount += stat.VisitCount
		if r, ok := a.rooms[id]; ok {
			for s := range r.subjects {
				categorySubjects[room.Category][s] = struct{}{}
			}
		}
	}
	for _, c := range categoryOrder {
		cat := categories[c]
		cat.TotalMinutes = cat.Duration.Minutes()
		cat.UniqueSubjects = int64(len(categorySubjects[c]))
		stats.Categories = append(stats.Categories, *cat)
	}

	tiers := make(map[string]*model.TierBreakdown)
	for _, sa := range a.subjects {
		stats.Subjects = append(stats.Subjects, model.SubjectStat{
			SubjectID:       sa.subject.ID,
			Name:            sa.subject.Name,
			Tier:            sa.subject.TierOrUnknown(),
			Duration:        sa.duration,
			TotalMinutes:    sa.duration.Minutes(),
			VisitCount:      sa.visits,
			DistinctDays:    int64(len(sa.days)),
			ProgramJoins:    sa.joins,
			ProgramAttended: int64(len(sa.programs)),
		})

		stats.Totals.TotalVisits += sa.visits
		stats.Totals.Duration += sa.duration

		tier := sa.subject.TierOrUnknown()
		tb, ok := tiers[tier]
		if !ok {
			tb = &model.TierBreakdown{Tier: tier}
			tiers[tier] = tb
		}
		tb.UniqueSubjects++
		tb.VisitCount += sa.visits
		tb.Duration += sa.duration
	}
	sort.Slice(stats.Subjects, func(i, j int) bool {
		if stats.Subjects[i].Duration != stats.Subjects[j].Duration {
			return stats.Subjects[i].Duration > stats.Subjects[j].Duration
		}
		return bytes.Compare(stats.Subjects[i].SubjectID[:], stats.Subjects[j].SubjectID[:]) < 0
	})

	stats.Totals.UniqueSubjects = int64(len(a.subjects))
	stats.Totals.TotalMinutes = stats.Totals.Duration.Minutes()
	stats.Totals.ByTier = []model.TierBreakdown{}
	for _, tb := range tiers {
		tb.TotalMinutes = tb.Duration.Minutes()
		stats.Totals.ByTier = append(stats.Totals.ByTier, *tb)
	}
	sort.Slice(stats.Totals.ByTier, func(i, j int) bool {
		return stats.Totals.ByTier[i].Tier < stats.Totals.ByTier[j].Tier
	})

	return stats
}

// daysTouched lists the local dates a segment overlaps.
func daysTouched(seg model.Segment, loc *time.Location) []string {
	var days []string
	for d := model.StartOfDay(seg.Start.In(loc)); d.Before(seg.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(time.DateOnly))
	}
	return days
}
