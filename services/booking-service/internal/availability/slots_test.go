package availability

import (
	"reflect"
	"testing"
	"time"
)

func TestExpandSlots_HalfOpenRange(t *testing.T) {
	now := time.Date(2026, 1, 27, 12, 0, 0, 0, time.UTC)

	// Future date: "09:00-10:00" yields 09:00 and 09:30; the end boundary
	// itself is never emitted.
	points := ExpandSlots([]string{"09:00-10:00"}, nil, "2026-01-28", now, time.UTC)
	want := []string{"09:00", "09:30"}
	if !reflect.DeepEqual(points, want) {
		t.Fatalf("expected %v, got %v", want, points)
	}
}

func TestExpandSlots_MultipleRangesOrdered(t *testing.T) {
	now := time.Date(2026, 1, 27, 12, 0, 0, 0, time.UTC)

	points := ExpandSlots([]string{"09:00-10:00", "14:00-15:30"}, nil, "2026-01-28", now, time.UTC)
	want := []string{"09:00", "09:30", "14:00", "14:30", "15:00"}
	if !reflect.DeepEqual(points, want) {
		t.Fatalf("expected %v, got %v", want, points)
	}
}

func TestExpandSlots_ExcludesBooked(t *testing.T) {
	now := time.Date(2026, 1, 27, 12, 0, 0, 0, time.UTC)

	points := ExpandSlots([]string{"09:00-11:00"}, []string{"09:30", "10:30"}, "2026-01-28", now, time.UTC)
	want := []string{"09:00", "10:00"}
	if !reflect.DeepEqual(points, want) {
		t.Fatalf("expected %v, got %v", want, points)
	}
}

func TestExpandSlots_SkipsPastOnCurrentDay(t *testing.T) {
	// 09:31 on the target day: 09:00 and 09:30 are not strictly in the
	// future, 10:00 onward is.
	now := time.Date(2026, 1, 28, 9, 31, 0, 0, time.UTC)

	points := ExpandSlots([]string{"09:00-11:00"}, nil, "2026-01-28", now, time.UTC)
	want := []string{"10:00", "10:30"}
	if !reflect.DeepEqual(points, want) {
		t.Fatalf("expected %v, got %v", want, points)
	}
}

func TestExpandSlots_FutureDateIgnoresClock(t *testing.T) {
	now := time.Date(2026, 1, 28, 23, 0, 0, 0, time.UTC)

	points := ExpandSlots([]string{"09:00-10:00"}, nil, "2026-01-29", now, time.UTC)
	if len(points) != 2 {
		t.Fatalf("expected 2 points on a future date, got %v", points)
	}
}

func TestExpandSlots_SkipsMalformedRanges(t *testing.T) {
	now := time.Date(2026, 1, 27, 12, 0, 0, 0, time.UTC)

	ranges := []string{"bogus", "09:00", "09:00-xx:yy", "10:00-09:00", "13:00-14:00"}
	points := ExpandSlots(ranges, nil, "2026-01-28", now, time.UTC)
	want := []string{"13:00", "13:30"}
	if !reflect.DeepEqual(points, want) {
		t.Fatalf("expected malformed ranges to contribute nothing, got %v", points)
	}
}

func TestExpandSlots_InvalidDate(t *testing.T) {
	now := time.Date(2026, 1, 27, 12, 0, 0, 0, time.UTC)
	if points := ExpandSlots([]string{"09:00-10:00"}, nil, "28-01-2026", now, time.UTC); points != nil {
		t.Fatalf("expected nil for unparseable date, got %v", points)
	}
}

func TestExpandSlots_AlignmentAndBounds(t *testing.T) {
	now := time.Date(2026, 1, 27, 12, 0, 0, 0, time.UTC)

	points := ExpandSlots([]string{"09:15-10:30"}, nil, "2026-01-28", now, time.UTC)
	want := []string{"09:15", "09:45", "10:15"}
	if !reflect.DeepEqual(points, want) {
		t.Fatalf("expected %v, got %v", want, points)
	}
	// Every emitted point stays inside [start, end).
	for _, p := range points {
		tp, err := time.Parse("15:04", p)
		if err != nil {
			t.Fatalf("emitted unparseable point %q", p)
		}
		start, _ := time.Parse("15:04", "09:15")
		end, _ := time.Parse("15:04", "10:30")
		if tp.Before(start) || !tp.Before(end) {
			t.Fatalf("point %q outside [09:15, 10:30)", p)
		}
	}
}

func TestExpandSlots_RespectsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	// 08:00 UTC is 11:00 local, so on the target local day the morning
	// points are already gone.
	now := time.Date(2026, 1, 28, 8, 0, 0, 0, time.UTC)

	points := ExpandSlots([]string{"09:00-12:00"}, nil, "2026-01-28", now, loc)
	want := []string{"11:30"}
	if !reflect.DeepEqual(points, want) {
		t.Fatalf("expected %v, got %v", want, points)
	}
}

func TestRangesOverlap(t *testing.T) {
	if RangesOverlap([]string{"09:00-10:00", "10:00-11:00"}) {
		t.Fatal("touching ranges must not count as overlapping")
	}
	if !RangesOverlap([]string{"09:00-10:30", "10:00-11:00"}) {
		t.Fatal("expected overlap to be detected")
	}
	if RangesOverlap([]string{"garbage", "09:00-10:00"}) {
		t.Fatal("malformed range must be ignored")
	}
}
