package storage

import "testing"

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name      string
		requested []string
		booked    []string
		want      bool
	}{
		{"no booked", []string{"09:00"}, nil, false},
		{"no requested", nil, []string{"09:00"}, false},
		{"disjoint", []string{"09:00", "09:30"}, []string{"10:00", "10:30"}, false},
		{"single shared point", []string{"09:00", "09:30"}, []string{"09:30"}, true},
		{"full overlap", []string{"14:00"}, []string{"13:30", "14:00", "14:30"}, true},
	}
	for _, tc := range cases {
		if got := Overlaps(tc.requested, tc.booked); got != tc.want {
			t.Errorf("%s: Overlaps(%v, %v) = %v, want %v", tc.name, tc.requested, tc.booked, got, tc.want)
		}
	}
}
