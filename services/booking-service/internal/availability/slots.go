package availability

import (
	"strings"
	"time"
)

// SlotInterval is the fixed booking granularity. Every bookable point is the
// start of a 30-minute window.
const SlotInterval = 30 * time.Minute

const (
	clockLayout = "15:04"
	dateLayout  = "2006-01-02"
)

// ExpandSlots converts an availability set's "HH:MM-HH:MM" ranges into the
// ordered bookable points ("HH:MM" labels) for the given date.
//
// Expansion steps through each range at SlotInterval and stops before the
// range end (half-open: a "09:00-10:00" range yields "09:00" and "09:30").
// Points present in booked are excluded. When date is the current day in loc,
// points whose wall-clock instant is not strictly after now are excluded.
// Range strings that do not parse as two "HH:MM" clocks are skipped whole.
func ExpandSlots(timeRanges []string, booked []string, date string, now time.Time, loc *time.Location) []string {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return nil
	}

	bookedSet := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		bookedSet[b] = struct{}{}
	}

	sameDay := now.In(loc).Format(dateLayout) == date

	var points []string
	for _, rng := range timeRanges {
		start, end, ok := parseRange(rng)
		if !ok {
			continue
		}
		for t := start; t.Before(end); t = t.Add(SlotInterval) {
			label := t.Format(clockLayout)
			if _, taken := bookedSet[label]; taken {
				continue
			}
			if sameDay {
				instant := time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc)
				if !instant.After(now) {
					continue
				}
			}
			points = append(points, label)
		}
	}
	return points
}

// parseRange splits "HH:MM-HH:MM" into clock instants on a reference day.
// Malformed input (missing separator, unparseable clocks, end not after
// start) reports ok=false and the range contributes nothing.
func parseRange(rng string) (start, end time.Time, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(rng), "-", 2)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, false
	}
	start, err := time.Parse(clockLayout, strings.TrimSpace(parts[0]))
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err = time.Parse(clockLayout, strings.TrimSpace(parts[1]))
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// RangesOverlap reports whether any two of the "HH:MM-HH:MM" ranges overlap.
// Malformed ranges are ignored, matching ExpandSlots.
func RangesOverlap(timeRanges []string) bool {
	type span struct{ start, end time.Time }
	var spans []span
	for _, rng := range timeRanges {
		start, end, ok := parseRange(rng)
		if !ok {
			continue
		}
		spans = append(spans, span{start: start, end: end})
	}
	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			// Half-open intervals overlap iff each starts before the other ends.
			if spans[i].start.Before(spans[j].end) && spans[j].start.Before(spans[i].end) {
				return true
			}
		}
	}
	return false
}
