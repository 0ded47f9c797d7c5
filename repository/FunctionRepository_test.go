package repository

import (
	"regexp"
	"testing"
)

func TestNextRevisionCode(t *testing.T) {
	cases := []struct {
		previous string
		want     string
	}{
		{"", "RV-01"},
		{"RV-01", "RV-02"},
		{"RV-09", "RV-10"},
		{"RV-10", "RV-11"},
		{"RV-99", "RV-100"},
		{"garbage", "RV-01"},
		{"RV-", "RV-01"},
	}
	for _, tc := range cases {
		if got := NextRevisionCode(tc.previous); got != tc.want {
			t.Errorf("NextRevisionCode(%q) = %q, want %q", tc.previous, got, tc.want)
		}
	}
}

func TestGenerateRfpReference(t *testing.T) {
	pattern := regexp.MustCompile(`^RFP-[A-Z]{2}\d{5}$`)
	for i := 0; i < 20; i++ {
		ref := GenerateRfpReference()
		if !pattern.MatchString(ref) {
			t.Errorf("GenerateRfpReference() = %q, want format RFP-AB12345", ref)
		}
	}
}
