package availability

import (
	"errors"
	"reflect"
	"testing"
)

func TestIsContiguous(t *testing.T) {
	cases := []struct {
		points []string
		want   bool
	}{
		{nil, true},
		{[]string{"09:00"}, true},
		{[]string{"09:00", "09:30"}, true},
		{[]string{"09:30", "09:00"}, true}, // order-independent
		{[]string{"09:00", "09:30", "10:00"}, true},
		{[]string{"09:00", "10:00"}, false},
		{[]string{"09:00", "09:30", "10:30"}, false},
		{[]string{"09:00", "bogus"}, false},
	}
	for _, c := range cases {
		if got := IsContiguous(c.points); got != c.want {
			t.Fatalf("IsContiguous(%v) = %v, want %v", c.points, got, c.want)
		}
	}
}

func TestToggle_AddKeepsContiguity(t *testing.T) {
	sel, err := Toggle([]string{"09:00", "09:30"}, "10:00")
	if err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
	want := []string{"09:00", "09:30", "10:00"}
	if !reflect.DeepEqual(sel, want) {
		t.Fatalf("expected %v, got %v", want, sel)
	}
}

func TestToggle_RejectsGapAndPreservesSelection(t *testing.T) {
	prior := []string{"09:00", "09:30"}
	sel, err := Toggle(prior, "10:30")
	if !errors.Is(err, ErrNonContiguous) {
		t.Fatalf("expected ErrNonContiguous, got %v", err)
	}
	if !reflect.DeepEqual(sel, prior) {
		t.Fatalf("prior selection must be preserved, got %v", sel)
	}
}

func TestToggle_RemoveEndpoint(t *testing.T) {
	sel, err := Toggle([]string{"09:00", "09:30", "10:00"}, "10:00")
	if err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
	want := []string{"09:00", "09:30"}
	if !reflect.DeepEqual(sel, want) {
		t.Fatalf("expected %v, got %v", want, sel)
	}
}

func TestToggle_RejectsRemovingMiddle(t *testing.T) {
	prior := []string{"09:00", "09:30", "10:00"}
	sel, err := Toggle(prior, "09:30")
	if !errors.Is(err, ErrNonContiguous) {
		t.Fatalf("expected ErrNonContiguous when splitting the run, got %v", err)
	}
	if !reflect.DeepEqual(sel, prior) {
		t.Fatalf("prior selection must be preserved, got %v", sel)
	}
}

func TestToggle_FirstPoint(t *testing.T) {
	sel, err := Toggle(nil, "14:00")
	if err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
	if !reflect.DeepEqual(sel, []string{"14:00"}) {
		t.Fatalf("expected single-point selection, got %v", sel)
	}
}

func TestSortPoints(t *testing.T) {
	points := []string{"10:00", "09:00", "09:30"}
	SortPoints(points)
	want := []string{"09:00", "09:30", "10:00"}
	if !reflect.DeepEqual(points, want) {
		t.Fatalf("expected %v, got %v", want, points)
	}
}
