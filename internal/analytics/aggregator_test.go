package analytics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"occupancy-analytics/internal/model"
)

var (
	lounge  = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	gym     = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	yoga    = uuid.MustParse("00000000-0000-0000-0000-00000000000c")
	alice   = uuid.MustParse("10000000-0000-0000-0000-000000000001")
	bob     = uuid.MustParse("10000000-0000-0000-0000-000000000002")
	manager = uuid.MustParse("10000000-0000-0000-0000-000000000003")
)

func testRooms() []model.Room {
	return []model.Room{
		{ID: lounge, Name: "Lounge", Category: model.RoomCategorySpace},
		{ID: gym, Name: "Gym", Category: model.RoomCategorySpace},
		{ID: yoga, Name: "Yoga", Category: model.RoomCategoryProgram},
	}
}

func testSubjects() []model.Subject {
	return []model.Subject{
		{ID: alice, Name: "Alice", Role: model.RoleMember, Tier: "GOLD"},
		{ID: bob, Name: "Bob", Role: model.RoleMember},
		{ID: manager, Name: "Manager", Role: model.RoleAdmin, Tier: "GOLD"},
	}
}

func at(day, hour, minute int) time.Time {
	return time.Date(2026, time.October, day, hour, minute, 0, 0, time.UTC)
}

func ev(subject uuid.UUID, kind model.EventKind, location *uuid.UUID, ts time.Time) model.Event {
	return model.Event{ID: uuid.New(), SubjectID: subject, Kind: kind, LocationID: location, At: ts}
}

func loc(id uuid.UUID) *uuid.UUID {
	return &id
}

func dailyStats(t *testing.T, events []model.Event, exclude model.SubjectPredicate, opts Options) *model.RoomAndSubjectStats {
	t.Helper()
	stats, err := ComputeRoomAndSubjectStats(events, testRooms(), testSubjects(), at(15, 12, 0), model.PeriodDaily, time.Time{}, exclude, opts)
	require.NoError(t, err)
	return stats
}

func roomStat(t *testing.T, stats *model.RoomAndSubjectStats, id uuid.UUID) model.RoomStat {
	t.Helper()
	for _, r := range stats.Rooms {
		if r.LocationID == id {
			return r
		}
	}
	t.Fatalf("room %s missing", id)
	return model.RoomStat{}
}

func TestTransferCountsOneVisitPerRoom(t *testing.T) {
	events := []model.Event{
		ev(alice, model.EventEnter, loc(lounge), at(15, 9, 0)),
		ev(alice, model.EventTransfer, loc(gym), at(15, 9, 30)),
		ev(alice, model.EventExit, nil, at(15, 10, 0)),
	}

	stats := dailyStats(t, events, nil, Options{})

	require.Len(t, stats.Rooms, 3)
	l := roomStat(t, stats, lounge)
	assert.Equal(t, int64(1), l.VisitCount)
	assert.Equal(t, 30.0, l.TotalMinutes)
	assert.Equal(t, int64(1), l.UniqueSubjects)
	g := roomStat(t, stats, gym)
	assert.Equal(t, int64(1), g.VisitCount)
	assert.Equal(t, 30.0, g.TotalMinutes)

	require.Len(t, stats.Subjects, 1)
	assert.Equal(t, alice, stats.Subjects[0].SubjectID)
	assert.Equal(t, int64(1), stats.Subjects[0].VisitCount)
	assert.Equal(t, 60.0, stats.Subjects[0].TotalMinutes)
	assert.Equal(t, int64(1), stats.Subjects[0].DistinctDays)
	assert.Equal(t, int64(1), stats.Totals.TotalVisits)
	assert.Equal(t, int64(1), stats.Totals.UniqueSubjects)
}

func TestReturningToARoomIsTheSameVisit(t *testing.T) {
	events := []model.Event{
		ev(bob, model.EventEnter, loc(lounge), at(15, 9, 0)),
		ev(bob, model.EventTransfer, loc(gym), at(15, 9, 30)),
		ev(bob, model.EventTransfer, loc(lounge), at(15, 10, 0)),
		ev(bob, model.EventExit, nil, at(15, 10, 15)),
		ev(bob, model.EventEnter, loc(lounge), at(15, 14, 0)),
		ev(bob, model.EventExit, nil, at(15, 14, 30)),
	}

	stats := dailyStats(t, events, nil, Options{})
	l := roomStat(t, stats, lounge)
	assert.Equal(t, int64(2), l.VisitCount)
	assert.Equal(t, 75.0, l.TotalMinutes)
	assert.Equal(t, int64(2), stats.Subjects[0].VisitCount)
	assert.Equal(t, model.UnknownTier, stats.Subjects[0].Tier)
}

func TestMinutesAreConserved(t *testing.T) {
	events := []model.Event{
		ev(alice, model.EventEnter, loc(lounge), at(14, 22, 0)),
		ev(alice, model.EventTransfer, loc(gym), at(15, 1, 17)),
		ev(alice, model.EventExit, nil, at(15, 3, 3)),
		ev(bob, model.EventEnter, loc(yoga), at(15, 7, 11)),
		ev(bob, model.EventTransfer, loc(gym), at(15, 8, 59)),
		ev(bob, model.EventEnter, loc(lounge), at(15, 20, 1)),
		ev(manager, model.EventTransfer, loc(uuid.MustParse("00000000-0000-0000-0000-0000000000ff")), at(15, 11, 0)),
	}

	stats := dailyStats(t, events, nil, Options{Workers: 3})

	var rooms, subjects, series time.Duration
	for _, r := range stats.Rooms {
		rooms += r.Duration
	}
	for _, s := range stats.Subjects {
		subjects += s.Duration
	}
	for _, b := range stats.Series {
		series += b.Duration
	}
	assert.Equal(t, stats.Totals.Duration, rooms)
	assert.Equal(t, stats.Totals.Duration, subjects)
	assert.Equal(t, stats.Totals.Duration, series)

	// the unknown location still shows up so nothing goes missing
	require.Len(t, stats.Rooms, 4)
	assert.Equal(t, model.RoomCategorySpace, stats.Rooms[3].Category)
	assert.Equal(t, 1, stats.Diagnostics.RecoveredTransfers)

	var byTier int64
	for _, tb := range stats.Totals.ByTier {
		byTier += tb.UniqueSubjects
	}
	assert.Equal(t, stats.Totals.UniqueSubjects, byTier)
}

func TestExcludedRolesLeaveNoTrace(t *testing.T) {
	events := []model.Event{
		ev(alice, model.EventEnter, loc(lounge), at(15, 9, 0)),
		ev(alice, model.EventExit, nil, at(15, 10, 0)),
		ev(manager, model.EventEnter, loc(lounge), at(15, 9, 0)),
		ev(manager, model.EventExit, nil, at(15, 17, 0)),
		ev(manager, model.EventGuestEnter, loc(lounge), at(15, 9, 5)),
	}

	filtered := dailyStats(t, events, model.ExcludeRoles(model.RoleAdmin, model.RoleStaff), Options{})
	require.Len(t, filtered.Subjects, 1)
	assert.Equal(t, alice, filtered.Subjects[0].SubjectID)
	l := roomStat(t, filtered, lounge)
	assert.Equal(t, 60.0, l.TotalMinutes)
	assert.Equal(t, int64(1), l.UniqueSubjects)
	assert.Equal(t, int64(1), l.GuestCount)

	unfiltered := dailyStats(t, events, nil, Options{})
	assert.Len(t, unfiltered.Subjects, 2)
	assert.Equal(t, 540.0, roomStat(t, unfiltered, lounge).TotalMinutes)
	assert.Equal(t, int64(1), unfiltered.Totals.TotalGuests)
}

func TestFuturePeriodIsNeutral(t *testing.T) {
	events := []model.Event{
		ev(alice, model.EventEnter, loc(lounge), at(14, 9, 0)),
	}

	stats := dailyStats(t, events, nil, Options{Now: at(10, 0, 0)})

	assert.Empty(t, stats.Subjects)
	require.Len(t, stats.Rooms, 3)
	for _, r := range stats.Rooms {
		assert.Zero(t, r.TotalMinutes)
		assert.Zero(t, r.VisitCount)
		assert.Equal(t, model.NoPeakHour, r.PeakHour)
		assert.Empty(t, r.PeakHourRange)
		assert.Zero(t, r.BusiestWeekday)
	}
	require.Len(t, stats.Series, 24)
	for _, b := range stats.Series {
		assert.Zero(t, b.VisitCount)
	}
}

func TestEmptyLogOverPastDay(t *testing.T) {
	stats := dailyStats(t, nil, nil, Options{Now: at(17, 0, 0)})

	assert.Equal(t, model.Totals{ByTier: []model.TierBreakdown{}}, stats.Totals)
	assert.Empty(t, stats.Subjects)
	assert.Zero(t, stats.Diagnostics.Total())
	require.Len(t, stats.Rooms, 3)
	for _, r := range stats.Rooms {
		assert.Zero(t, r.Duration)
		assert.Zero(t, r.VisitCount)
		assert.Zero(t, r.UniqueSubjects)
		assert.Zero(t, r.GuestCount)
		assert.Equal(t, model.NoPeakHour, r.PeakHour)
	}
	require.Len(t, stats.Series, 24)
	for _, b := range stats.Series {
		assert.Zero(t, b.VisitCount)
		assert.Zero(t, b.Duration)
	}
}

func TestSeriesSplitsMinutesButNotVisits(t *testing.T) {
	events := []model.Event{
		ev(alice, model.EventEnter, loc(gym), at(15, 9, 30)),
		ev(alice, model.EventExit, nil, at(15, 11, 15)),
	}

	stats := dailyStats(t, events, nil, Options{})
	require.Len(t, stats.Series, 24)
	assert.Equal(t, at(15, 9, 0), stats.Series[9].BucketStart)
	assert.Equal(t, int64(1), stats.Series[9].VisitCount)
	assert.Equal(t, 30.0, stats.Series[9].TotalMinutes)
	assert.Equal(t, int64(0), stats.Series[10].VisitCount)
	assert.Equal(t, 60.0, stats.Series[10].TotalMinutes)
	assert.Equal(t, 15.0, stats.Series[11].TotalMinutes)
}

func TestPeakHourAndBusiestWeekday(t *testing.T) {
	events := []model.Event{
		ev(alice, model.EventEnter, loc(gym), at(15, 9, 0)),
		ev(alice, model.EventExit, nil, at(15, 11, 0)),
		ev(bob, model.EventEnter, loc(gym), at(15, 10, 15)),
		ev(bob, model.EventExit, nil, at(15, 10, 45)),
	}

	stats := dailyStats(t, events, nil, Options{})
	g := roomStat(t, stats, gym)
	assert.Equal(t, 10, g.PeakHour)
	assert.Equal(t, "10:00-11:00", g.PeakHourRange)
	assert.Equal(t, 2.0, g.PeakConcurrency)
	assert.Equal(t, 4, g.BusiestWeekday) // Thursday

	l := roomStat(t, stats, lounge)
	assert.Equal(t, model.NoPeakHour, l.PeakHour)
}

func TestProgramParticipation(t *testing.T) {
	events := []model.Event{
		ev(alice, model.EventEnter, loc(yoga), at(15, 9, 0)),
		ev(alice, model.EventTransfer, loc(lounge), at(15, 10, 0)),
		ev(alice, model.EventTransfer, loc(yoga), at(15, 10, 30)),
		ev(alice, model.EventExit, nil, at(15, 11, 0)),
		ev(alice, model.EventEnter, loc(yoga), at(15, 18, 0)),
		ev(alice, model.EventExit, nil, at(15, 19, 0)),
	}

	stats := dailyStats(t, events, nil, Options{})
	require.Len(t, stats.Subjects, 1)
	assert.Equal(t, int64(2), stats.Subjects[0].ProgramJoins)
	assert.Equal(t, int64(1), stats.Subjects[0].ProgramAttended)

	require.Len(t, stats.Categories, 2)
	assert.Equal(t, model.RoomCategorySpace, stats.Categories[0].Category)
	assert.Equal(t, 30.0, stats.Categories[0].TotalMinutes)
	assert.Equal(t, model.RoomCategoryProgram, stats.Categories[1].Category)
	assert.Equal(t, 150.0, stats.Categories[1].TotalMinutes)
	assert.Equal(t, int64(2), stats.Categories[1].VisitCount)
}

func TestStatsAreRepeatable(t *testing.T) {
	var events []model.Event
	for d := 12; d <= 18; d++ {
		events = append(events,
			ev(alice, model.EventEnter, loc(lounge), at(d, 8, d)),
			ev(alice, model.EventTransfer, loc(yoga), at(d, 9, 0)),
			ev(bob, model.EventEnter, loc(gym), at(d, 17, 0)),
			ev(alice, model.EventExit, nil, at(d, 10, 0)),
		)
	}

	run := func(workers int) []byte {
		stats, err := ComputeRoomAndSubjectStats(events, testRooms(), testSubjects(), at(15, 0, 0), model.PeriodWeekly, time.Time{}, nil, Options{Workers: workers})
		require.NoError(t, err)
		b, err := json.Marshal(stats)
		require.NoError(t, err)
		return b
	}

	first := run(1)
	assert.Equal(t, first, run(1))
	assert.Equal(t, first, run(6))
}

func TestInvalidPeriodIsRejected(t *testing.T) {
	_, err := ComputeRoomAndSubjectStats(nil, nil, nil, at(15, 0, 0), model.PeriodCustomRange, at(1, 0, 0), nil, Options{})
	require.ErrorIs(t, err, model.ErrInvalidPeriod)
}
