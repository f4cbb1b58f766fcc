// Package availability validates teacher-declared time ranges before they
// are stored. Ranges use the "HH:MM-HH:MM" form with a half-open end.
package availability

import (
	"sort"
	"strings"
	"time"
)

const clockLayout = "15:04"

// ParseRange splits "HH:MM-HH:MM" into clock times. End must be after start.
func ParseRange(rng string) (start, end time.Time, ok bool) {
	parts := strings.Split(strings.TrimSpace(rng), "-")
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

// Valid reports whether every range parses.
func Valid(timeRanges []string) bool {
	for _, rng := range timeRanges {
		if _, _, ok := ParseRange(rng); !ok {
			return false
		}
	}
	return true
}

// Overlap reports whether any two ranges overlap. Ranges that share an
// endpoint do not overlap.
func Overlap(timeRanges []string) bool {
	type span struct{ start, end time.Time }
	spans := make([]span, 0, len(timeRanges))
	for _, rng := range timeRanges {
		start, end, ok := ParseRange(rng)
		if !ok {
			continue
		}
		spans = append(spans, span{start, end})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start.Before(spans[j].start) })
	for i := 1; i < len(spans); i++ {
		if spans[i].start.Before(spans[i-1].end) {
			return true
		}
	}
	return false
}

// Normalize trims and sorts ranges by start time.
func Normalize(timeRanges []string) []string {
	out := make([]string, 0, len(timeRanges))
	for _, rng := range timeRanges {
		rng = strings.TrimSpace(rng)
		if rng != "" {
			out = append(out, rng)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		si, _, iOK := ParseRange(out[i])
		sj, _, jOK := ParseRange(out[j])
		if !iOK || !jOK {
			return out[i] < out[j]
		}
		return si.Before(sj)
	})
	return out
}
