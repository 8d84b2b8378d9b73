package analytics

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"occupancy-analytics/internal/model"
)

// TimeBuckets produces one bucket per hour, day or month of the period
// depending on its type. A visit is counted in the bucket holding the start
// of the first segment of a (subject, room, session) visit; minutes are split
// across buckets by actual overlap.
func TimeBuckets(period model.Period, sessions []model.Session) []model.TimeBucket {
	starts := period.Buckets()
	buckets := make([]model.TimeBucket, len(starts))
	for i, start := range starts {
		buckets[i].BucketStart = start
	}
	if len(starts) == 0 {
		return buckets
	}

	bucketEnd := func(i int) time.Time {
		if i+1 < len(starts) {
			return starts[i+1]
		}
		return period.End
	}

	for _, s := range sessions {
		visited := make(map[uuid.UUID]struct{}, len(s.Segments))
		for _, seg := range s.Segments {
			first := bucketIndex(starts, seg.Start)
			if first < 0 {
				continue
			}
			if _, ok := visited[seg.LocationID]; !ok {
				visited[seg.LocationID] = struct{}{}
				buckets[first].VisitCount++
			}
			for i := first; i < len(starts) && starts[i].Before(seg.End); i++ {
				buckets[i].Duration += overlap(seg.Start, seg.End, starts[i], bucketEnd(i))
			}
		}
	}

	for i := range buckets {
		buckets[i].TotalMinutes = buckets[i].Duration.Minutes()
	}
	return buckets
}

// bucketIndex returns the bucket containing t, or -1 when t precedes them all.
func bucketIndex(starts []time.Time, t time.Time) int {
	return sort.Search(len(starts), func(i int) bool {
		return starts[i].After(t)
	}) - 1
}

func overlap(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}
