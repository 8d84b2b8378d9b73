package analytics

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"occupancy-analytics/internal/model"
)

// HourPeak is a room's busiest hour of day by average segment overlap.
type HourPeak struct {
	Hour           int
	Range          string
	AvgConcurrency float64
}

// PeakHours samples every elapsed hour of the period (up to cutoff), counts
// the segments overlapping it per room and averages the counts per hour of
// day. Rooms without any overlap are left out of the result, as is every room
// when no hour has elapsed yet.
func PeakHours(period model.Period, cutoff time.Time, sessions []model.Session) map[uuid.UUID]HourPeak {
	end := period.End
	if cutoff.Before(end) {
		end = cutoff
	}
	slots := 0
	if end.After(period.Start) {
		slots = int((end.Sub(period.Start) + time.Hour - 1) / time.Hour)
	}
	peaks := make(map[uuid.UUID]HourPeak)
	if slots == 0 {
		return peaks
	}

	slotHour := make([]int, slots)
	var slotsPerHour [24]int
	for i := range slotHour {
		h := period.Start.Add(time.Duration(i) * time.Hour).Hour()
		slotHour[i] = h
		slotsPerHour[h]++
	}

	counts := make(map[uuid.UUID][]int)
	for _, s := range sessions {
		for _, seg := range s.Segments {
			segStart, segEnd := seg.Start, seg.End
			if segStart.Before(period.Start) {
				segStart = period.Start
			}
			if segEnd.After(end) {
				segEnd = end
			}
			if !segEnd.After(segStart) {
				continue
			}
			c, ok := counts[seg.LocationID]
			if !ok {
				c = make([]int, slots)
				counts[seg.LocationID] = c
			}
			for i := int(segStart.Sub(period.Start) / time.Hour); i < slots; i++ {
				if !period.Start.Add(time.Duration(i) * time.Hour).Before(segEnd) {
					break
				}
				c[i]++
			}
		}
	}

	for room, c := range counts {
		var sums [24]int
		for i, n := range c {
			sums[slotHour[i]] += n
		}
		best := HourPeak{Hour: model.NoPeakHour}
		for h := 0; h < 24; h++ {
			if slotsPerHour[h] == 0 || sums[h] == 0 {
				continue
			}
			avg := float64(sums[h]) / float64(slotsPerHour[h])
			if avg > best.AvgConcurrency {
				best = HourPeak{Hour: h, Range: hourRange(h), AvgConcurrency: avg}
			}
		}
		if best.Hour != model.NoPeakHour {
			peaks[room] = best
		}
	}
	return peaks
}

// BusiestWeekdays returns, per room, the ISO weekday on which the most
// sessions began there. Sessions carried in from before the window did not
// begin in it and are skipped. Ties go to the earlier weekday.
func BusiestWeekdays(loc *time.Location, sessions []model.Session) map[uuid.UUID]int {
	counts := make(map[uuid.UUID]*[8]int)
	for _, s := range sessions {
		if s.CarriedIn || len(s.Segments) == 0 {
			continue
		}
		first := s.Segments[0]
		c, ok := counts[first.LocationID]
		if !ok {
			c = &[8]int{}
			counts[first.LocationID] = c
		}
		c[model.ISOWeekday(first.Start.In(loc).Weekday())]++
	}

	out := make(map[uuid.UUID]int, len(counts))
	for room, c := range counts {
		best := 0
		for d := 1; d <= 7; d++ {
			if c[d] > c[best] {
				best = d
			}
		}
		if best != 0 {
			out[room] = best
		}
	}
	return out
}

func hourRange(h int) string {
	return fmt.Sprintf("%02d:00-%02d:00", h, (h+1)%24)
}
