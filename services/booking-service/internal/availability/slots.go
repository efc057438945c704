package availability

import (
	"sort"
	"time"

	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/model"
)

type Interval struct {
	Start time.Time
	End   time.Time
}

// Generate returns the start times on day at which a booking of length total
// fits inside one of blocks without overlapping any busy interval.
//
// day must be midnight of the date being generated (UTC). Blocks are walked in
// the given order; blocks with StartMin >= EndMin contribute nothing. Candidates
// advance by step from each block start while t+total <= block end. The result
// is sorted by instant; duplicates from overlapping blocks are kept.
func Generate(day time.Time, blocks []model.AvailabilityBlock, total, step time.Duration, busy []Interval) []time.Time {
	if total <= 0 {
		return nil
	}
	if step <= 0 {
		step = model.DefaultSlotIncrementMin * time.Minute
	}

	var slots []time.Time
	for _, b := range blocks {
		if b.StartMin >= b.EndMin {
			continue
		}
		blockStart := day.Add(time.Duration(b.StartMin) * time.Minute)
		blockEnd := day.Add(time.Duration(b.EndMin) * time.Minute)
		for t := blockStart; !t.Add(total).After(blockEnd); t = t.Add(step) {
			if !overlapsAny(t, t.Add(total), busy) {
				slots = append(slots, t)
			}
		}
	}
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	return slots
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		// Half-open intervals: [start,end) overlaps [b.Start,b.End) iff start < b.End && b.Start < end.
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}

// Format renders slot starts as HH:MM in UTC.
func Format(slots []time.Time) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.UTC().Format("15:04"))
	}
	return out
}
