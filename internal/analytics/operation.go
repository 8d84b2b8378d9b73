package analytics

import (
	"time"

	"github.com/google/uuid"

	"occupancy-analytics/internal/model"
	"occupancy-analytics/internal/session"
)

type spaceAcc struct {
	duration time.Duration
	visitors map[uuid.UUID]struct{}
	// visits holds at most one entry per subject per local day
	visits map[string]struct{}
}

// ComputeOperationReport summarizes every space over the calendar days from
// start through end. Only subjects accepted by filter are counted; a nil
// filter accepts everybody. Unlike room statistics, a visit here is one
// subject in one room on one day.
func ComputeOperationReport(events []model.Event, subjects []model.Subject, rooms []model.Room, start, end time.Time, filter model.SubjectPredicate, opts Options) (*model.OperationReport, error) {
	period, err := model.CustomRange(start, end)
	if err != nil {
		return nil, err
	}
	res, err := session.Reconstruct(events, period, opts.sessionOptions())
	if err != nil {
		return nil, err
	}

	dir := newDirectory(rooms, subjects)
	units := dir.selectSessions(res, filter)
	sessions := flatten(units)
	loc := period.Location()

	spaces := make(map[uuid.UUID]*spaceAcc)
	seen := make(map[uuid.UUID]struct{})
	for _, s := range sessions {
		for _, seg := range s.Segments {
			acc, ok := spaces[seg.LocationID]
			if !ok {
				acc = &spaceAcc{visitors: make(map[uuid.UUID]struct{}), visits: make(map[string]struct{})}
				spaces[seg.LocationID] = acc
				seen[seg.LocationID] = struct{}{}
			}
			acc.duration += seg.Duration()
			acc.visitors[seg.SubjectID] = struct{}{}
			acc.visits[seg.SubjectID.String()+"|"+seg.Start.In(loc).Format(time.DateOnly)] = struct{}{}
		}
	}

	peaks := PeakHours(period, res.Cutoff, sessions)
	weekdays := BusiestWeekdays(loc, sessions)

	report := &model.OperationReport{
		Period:              period,
		SpaceResults:        []model.SpaceResult{},
		TotalUniqueSubjects: int64(len(units)),
		Diagnostics:         res.Diagnostics,
	}
	for _, id := range dir.roomOrder(seen) {
		result := model.SpaceResult{
			LocationID:     id,
			Name:           dir.room(id).Name,
			BusiestWeekday: weekdays[id],
			PeakHourRange:  peaks[id].Range,
		}
		if acc, ok := spaces[id]; ok {
			result.UniqueVisitors = int64(len(acc.visitors))
			result.VisitCount = int64(len(acc.visits))
			result.Duration = acc.duration
			result.TotalMinutes = acc.duration.Minutes()
			if result.UniqueVisitors > 0 {
				result.AvgVisitCount = float64(result.VisitCount) / float64(result.UniqueVisitors)
			}
			if result.VisitCount > 0 {
				result.AvgMinutes = result.TotalMinutes / float64(result.VisitCount)
			}
		}
		report.SpaceResults = append(report.SpaceResults, result)
	}

	if opts.MonthlyMetricsApply(period) {
		metrics, err := monthlyMetrics(events, dir, subjects, period, units, filter, opts)
		if err != nil {
			return nil, err
		}
		report.MonthlyMetrics = metrics
	}

	return report, nil
}

// monthlyMetrics relates active subjects to the eligible population and to
// those active in the preceding range of equal length. The population is the
// roster: subjects seen in the log but missing from it are left out of every
// figure here.
func monthlyMetrics(events []model.Event, dir *directory, subjects []model.Subject, period model.Period, active []subjectSessions, filter model.SubjectPredicate, opts Options) (*model.MonthlyMetrics, error) {
	eligible := make(map[uuid.UUID]struct{}, len(subjects))
	for _, s := range subjects {
		if filter == nil || filter(s) {
			eligible[s.ID] = struct{}{}
		}
	}

	current := rostered(active, eligible)
	metrics := &model.MonthlyMetrics{
		EligibleSubjects: int64(len(eligible)),
		ActiveSubjects:   int64(len(current)),
	}
	if metrics.EligibleSubjects > 0 {
		metrics.ActiveRatio = float64(metrics.ActiveSubjects) / float64(metrics.EligibleSubjects)
	}

	prev, err := session.Reconstruct(events, period.Previous(), opts.sessionOptions())
	if err != nil {
		return nil, err
	}
	previous := rostered(dir.selectSessions(prev, filter), eligible)
	metrics.PreviousActiveSubjects = int64(len(previous))

	for id := range previous {
		if _, ok := current[id]; ok {
			metrics.RetainedSubjects++
		}
	}
	if metrics.PreviousActiveSubjects > 0 {
		metrics.RetentionRate = float64(metrics.RetainedSubjects) / float64(metrics.PreviousActiveSubjects)
	}
	return metrics, nil
}

func rostered(units []subjectSessions, eligible map[uuid.UUID]struct{}) map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{}, len(units))
	for _, u := range units {
		if _, ok := eligible[u.subject.ID]; ok {
			out[u.subject.ID] = struct{}{}
		}
	}
	return out
}
