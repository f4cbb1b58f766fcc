package availability

import (
	"reflect"
	"testing"
)

func TestParseRange(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"09:00-10:00", true},
		{" 09:00 - 10:00 ", true},
		{"10:00-09:00", false},
		{"09:00-09:00", false},
		{"09:00", false},
		{"morning", false},
	}
	for _, tc := range cases {
		if _, _, ok := ParseRange(tc.in); ok != tc.ok {
			t.Errorf("ParseRange(%q) ok = %v, want %v", tc.in, ok, tc.ok)
		}
	}
}

func TestOverlap(t *testing.T) {
	cases := []struct {
		name   string
		ranges []string
		want   bool
	}{
		{"disjoint", []string{"09:00-10:00", "11:00-12:00"}, false},
		{"touching endpoints", []string{"09:00-10:00", "10:00-11:00"}, false},
		{"overlapping", []string{"09:00-10:30", "10:00-11:00"}, true},
		{"contained", []string{"09:00-12:00", "10:00-11:00"}, true},
		{"single", []string{"09:00-10:00"}, false},
		{"empty", nil, false},
	}
	for _, tc := range cases {
		if got := Overlap(tc.ranges); got != tc.want {
			t.Errorf("%s: Overlap(%v) = %v, want %v", tc.name, tc.ranges, got, tc.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize([]string{" 14:00-15:00", "", "09:00-10:00 "})
	want := []string{"09:00-10:00", "14:00-15:00"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Normalize = %v, want %v", got, want)
	}
}
