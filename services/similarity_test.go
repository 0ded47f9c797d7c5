package services

import (
	"math"
	"testing"
)

func TestSimilarityRatio(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"", "", 1.0},
		{"wall repairs", "", 0.0},
		{"Wall sheathing repairs", "wall sheathing repairs", 1.0},
		{"  Wall framing  ", "wall framing", 1.0},
		{"abcd", "wxyz", 0.0},
		// classic Ratcliff-Obershelp example
		{"abcdefghij", "abcdefpqrs", 0.6},
	}
	for _, tc := range cases {
		got := SimilarityRatio(tc.a, tc.b)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("SimilarityRatio(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSimilarityRatioSymmetricBounds(t *testing.T) {
	pairs := [][2]string{
		{"Wall sheathing repairs", "Sheathing repair work"},
		{"Window flashing replacement", "Flashing - windows"},
		{"Mobilization", "General conditions"},
	}
	for _, p := range pairs {
		ab := SimilarityRatio(p[0], p[1])
		ba := SimilarityRatio(p[1], p[0])
		if math.Abs(ab-ba) > 1e-9 {
			t.Errorf("ratio not symmetric for %q / %q: %v vs %v", p[0], p[1], ab, ba)
		}
		if ab < 0 || ab > 1 {
			t.Errorf("ratio out of range for %q / %q: %v", p[0], p[1], ab)
		}
	}
}
