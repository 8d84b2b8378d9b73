package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"occupancy-analytics/internal/analytics"
	"occupancy-analytics/internal/model"
	"occupancy-analytics/internal/session"
)

var ErrInvalidRequest = errors.New("invalid request")

// EventStore is the read side of the presence log.
type EventStore interface {
	// Events returns events in [since, until) in log order; a zero since means no lower bound.
	Events(ctx context.Context, since, until time.Time) ([]model.Event, error)
	Rooms(ctx context.Context) ([]model.Room, error)
	Subjects(ctx context.Context) ([]model.Subject, error)
}

type Settings struct {
	Location              *time.Location
	ExcludedRoles         []string
	Workers               int
	MaxRangeDays          int
	MonthlyMetricsMinDays int
	HistoryDays           int
}

type StatsRequest struct {
	PeriodType model.PeriodType
	Anchor     time.Time
	// End is the last day of a CUSTOM_RANGE period.
	End time.Time
}

type OperationReportRequest struct {
	From time.Time
	To   time.Time
	Tier string
	// Role replaces the default role exclusion when set.
	Role string
}

type AnalyticsService struct {
	store    EventStore
	clock    quartz.Clock
	log      zerolog.Logger
	settings Settings
}

func NewAnalyticsService(store EventStore, clock quartz.Clock, log zerolog.Logger, settings Settings) *AnalyticsService {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &AnalyticsService{
		store:    store,
		clock:    clock,
		log:      log,
		settings: settings,
	}
}

func (s *AnalyticsService) Location() *time.Location {
	return s.settings.Location
}

func (s *AnalyticsService) RoomAndSubjectStats(ctx context.Context, req StatsRequest) (*model.RoomAndSubjectStats, error) {
	now := s.now()
	anchor := req.Anchor
	if anchor.IsZero() {
		anchor = now
	}
	end := req.End
	if !end.IsZero() {
		end = end.In(s.settings.Location)
	}

	period, err := model.NewPeriod(req.PeriodType, anchor.In(s.settings.Location), end)
	if err != nil {
		return nil, err
	}
	if err := s.checkRange(period); err != nil {
		return nil, err
	}

	events, rooms, subjects, err := s.load(ctx, period.Start, period.End, now)
	if err != nil {
		return nil, err
	}

	stats, err := analytics.StatsForPeriod(events, rooms, subjects, period, model.ExcludeRoles(s.settings.ExcludedRoles...), s.options(now))
	if err != nil {
		return nil, err
	}
	s.logDiagnostics("room_and_subject_stats", period, stats.Diagnostics)
	return stats, nil
}

func (s *AnalyticsService) OperationReport(ctx context.Context, req OperationReportRequest) (*model.OperationReport, error) {
	if req.From.IsZero() || req.To.IsZero() {
		return nil, fmt.Errorf("%w: from and to are required", ErrInvalidRequest)
	}
	from, to := req.From.In(s.settings.Location), req.To.In(s.settings.Location)

	period, err := model.CustomRange(from, to)
	if err != nil {
		return nil, err
	}
	if err := s.checkRange(period); err != nil {
		return nil, err
	}

	now := s.now()
	opts := s.options(now)
	since := period.Start
	if opts.MonthlyMetricsApply(period) {
		since = period.Previous().Start
	}
	events, rooms, subjects, err := s.load(ctx, since, period.End, now)
	if err != nil {
		return nil, err
	}

	report, err := analytics.ComputeOperationReport(events, subjects, rooms, from, to, s.subjectFilter(req), opts)
	if err != nil {
		return nil, err
	}
	s.logDiagnostics("operation_report", period, report.Diagnostics)
	return report, nil
}

// Sessions lists the reconstructed sessions of every subject over the days
// from through to, without any role exclusion.
func (s *AnalyticsService) Sessions(ctx context.Context, from, to time.Time) (*model.SessionsReport, error) {
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("%w: from and to are required", ErrInvalidRequest)
	}
	period, err := model.CustomRange(from.In(s.settings.Location), to.In(s.settings.Location))
	if err != nil {
		return nil, err
	}
	if err := s.checkRange(period); err != nil {
		return nil, err
	}

	now := s.now()
	events, err := s.store.Events(ctx, s.historyStart(period.Start), eventsUntil(period.End, now))
	if err != nil {
		return nil, err
	}

	res, err := session.Reconstruct(events, period, session.Options{Now: now, Workers: s.settings.Workers})
	if err != nil {
		return nil, err
	}
	s.logDiagnostics("sessions", period, res.Diagnostics)
	return &model.SessionsReport{
		Period:      period,
		Subjects:    res.Ordered(),
		Diagnostics: res.Diagnostics,
	}, nil
}

func (s *AnalyticsService) load(ctx context.Context, start, end, now time.Time) ([]model.Event, []model.Room, []model.Subject, error) {
	events, err := s.store.Events(ctx, s.historyStart(start), eventsUntil(end, now))
	if err != nil {
		return nil, nil, nil, err
	}
	rooms, err := s.store.Rooms(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	subjects, err := s.store.Subjects(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return events, rooms, subjects, nil
}

func (s *AnalyticsService) subjectFilter(req OperationReportRequest) model.SubjectPredicate {
	var predicates []model.SubjectPredicate
	if role := strings.TrimSpace(req.Role); role != "" {
		predicates = append(predicates, model.RoleIs(role))
	} else {
		predicates = append(predicates, model.Not(model.ExcludeRoles(s.settings.ExcludedRoles...)))
	}
	if tier := strings.TrimSpace(req.Tier); tier != "" {
		predicates = append(predicates, model.TierIs(tier))
	}
	return model.All(predicates...)
}

func (s *AnalyticsService) checkRange(period model.Period) error {
	if s.settings.MaxRangeDays > 0 && period.Days() > s.settings.MaxRangeDays {
		return fmt.Errorf("%w: range of %d days exceeds %d", model.ErrInvalidPeriod, period.Days(), s.settings.MaxRangeDays)
	}
	return nil
}

// historyStart is where replay begins for a window starting at start.
func (s *AnalyticsService) historyStart(start time.Time) time.Time {
	if s.settings.HistoryDays <= 0 {
		return time.Time{}
	}
	return start.AddDate(0, 0, -s.settings.HistoryDays)
}

func eventsUntil(end, now time.Time) time.Time {
	if now.Before(end) {
		return now
	}
	return end
}

func (s *AnalyticsService) options(now time.Time) analytics.Options {
	return analytics.Options{
		Now:                   now,
		Workers:               s.settings.Workers,
		MonthlyMetricsMinDays: s.settings.MonthlyMetricsMinDays,
	}
}

func (s *AnalyticsService) now() time.Time {
	return s.clock.Now().In(s.settings.Location)
}

func (s *AnalyticsService) logDiagnostics(op string, period model.Period, diag model.Diagnostics) {
	if diag.Total() == 0 {
		return
	}
	evt := s.log.Debug()
	if diag.Ignored() > 0 {
		evt = s.log.Warn()
	}
	evt.Str("operation", op).
		Time("period_start", period.Start).
		Time("period_end", period.End).
		Int("malformed_events", diag.MalformedEvents).
		Int("unmatched_exits", diag.UnmatchedExits).
		Int("recovered_transfers", diag.RecoveredTransfers).
		Int("implicit_closes", diag.ImplicitCloses).
		Int("truncated_sessions", diag.TruncatedSessions).
		Msg("event log anomalies")
}
