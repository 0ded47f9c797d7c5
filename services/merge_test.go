package services

import (
	"reflect"
	"testing"
)

func TestMergeChangeset(t *testing.T) {
	existing := map[string]string{
		"vendor_contact": "bids@acme.com",
		"vendor_license": "",
	}
	candidate := map[string]string{
		"vendor_contact": "bids@acme.com",    // unchanged: dropped
		"vendor_license": "CA-10042",         // newly filled: kept
		"vendor_name":    "  Acme Builders ", // new key: kept trimmed
		"grand_total":    "TBD",              // sentinel: dropped
		"duration":       "",                 // empty: dropped
	}

	got := MergeChangeset(existing, candidate)
	want := map[string]string{
		"vendor_license": "CA-10042",
		"vendor_name":    "Acme Builders",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeChangeset = %v, want %v", got, want)
	}
}

func TestMergeChangesetSentinelNeverClobbers(t *testing.T) {
	existing := map[string]string{"grand_total": "$48,200.00"}
	got := MergeChangeset(existing, map[string]string{"grand_total": "N/A"})
	if len(got) != 0 {
		t.Errorf("sentinel re-extraction must not overwrite real data, got %v", got)
	}
}
