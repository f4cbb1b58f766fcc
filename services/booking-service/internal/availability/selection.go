package availability

import (
	"errors"
	"sort"
	"time"
)

// ErrNonContiguous carries the user-facing rejection message verbatim.
var ErrNonContiguous = errors.New("only contiguous time ranges may be selected")

// IsContiguous reports whether the points form one unbroken run: sorted
// chronologically, every adjacent pair differs by exactly SlotInterval.
// Zero or one points are trivially contiguous.
func IsContiguous(points []string) bool {
	if len(points) <= 1 {
		return true
	}

	instants := make([]time.Time, 0, len(points))
	for _, p := range points {
		t, err := time.Parse(clockLayout, p)
		if err != nil {
			return false
		}
		instants = append(instants, t)
	}
	sort.Slice(instants, func(i, j int) bool { return instants[i].Before(instants[j]) })

	for i := 1; i < len(instants); i++ {
		if instants[i].Sub(instants[i-1]) != SlotInterval {
			return false
		}
	}
	return true
}

// Toggle adds point to the selection if absent, removes it if present, and
// validates the result. An invalid candidate is rejected with
// ErrNonContiguous and the prior selection is returned unchanged.
func Toggle(selection []string, point string) ([]string, error) {
	candidate := make([]string, 0, len(selection)+1)
	removed := false
	for _, p := range selection {
		if p == point {
			removed = true
			continue
		}
		candidate = append(candidate, p)
	}
	if !removed {
		candidate = append(candidate, point)
	}

	if !IsContiguous(candidate) {
		return selection, ErrNonContiguous
	}
	return candidate, nil
}

// SortPoints orders "HH:MM" labels chronologically in place.
func SortPoints(points []string) {
	sort.Slice(points, func(i, j int) bool {
		ti, erri := time.Parse(clockLayout, points[i])
		tj, errj := time.Parse(clockLayout, points[j])
		if erri != nil || errj != nil {
			return points[i] < points[j]
		}
		return ti.Before(tj)
	})
}
