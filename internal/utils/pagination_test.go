package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		in   string
		def  int
		want int
	}{
		{"", 7, 7},
		{"42", 7, 42},
		{"-3", 7, -3},
		{"4.5", 7, 7},
		{"abc", 7, 7},
	}
	for _, tc := range cases {
		if got := AtoiDefault(tc.in, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d, want %d", tc.in, tc.def, got, tc.want)
		}
	}
}

func TestNormalizePage(t *testing.T) {
	cases := []struct {
		page, perPage  int
		wantPage, want int
	}{
		{0, 0, 1, 20},    // both fall back
		{-5, -1, 1, 20},  // negatives clamp
		{2, 50, 2, 50},   // in range untouched
		{3, 500, 3, 100}, // per-page capped
		{1, 1, 1, 1},     // lower bound kept
	}
	for _, tc := range cases {
		p, pp := NormalizePage(tc.page, tc.perPage, 20, 100)
		if p != tc.wantPage || pp != tc.want {
			t.Fatalf("NormalizePage(%d, %d) = (%d, %d), want (%d, %d)",
				tc.page, tc.perPage, p, pp, tc.wantPage, tc.want)
		}
	}
}
