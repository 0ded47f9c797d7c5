package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"backend/models"
)

// fakeOracle returns canned JSON-shaped answers or a fixed error.
type fakeOracle struct {
	err            error
	classification string
	fill           func(out interface{}) error
	calls          int
}

func (f *fakeOracle) GenerateJSON(_ context.Context, _, _ string, out interface{}) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if f.fill != nil {
		return f.fill(out)
	}
	if c, ok := out.(*semanticClassification); ok {
		c.Classification = f.classification
		return nil
	}
	return errors.New("fakeOracle: unexpected output type")
}

func TestNormalizeValue(t *testing.T) {
	cases := map[string]string{
		"":           "",
		"  ":         "",
		"TBD":        "",
		"tbd":        "",
		"N/A":        "",
		"n/a":        "",
		"-":          "",
		"$-":         "",
		"Not Quoted": "",
		"$4.10":      "$4.10",
		" 13,450 ":   "13,450",
		"sf":         "SF",
	}
	for in, want := range cases {
		if got := NormalizeValue(in); got != want {
			t.Errorf("NormalizeValue(%q) = %q, want %q", in, got, want)
		}
	}
}

func templateRowsFixture() []models.FormRow {
	return []models.FormRow{
		{ItemID: "1", Description: "Wall sheathing repairs", Values: map[string]string{"Unit": "SF", "Quantity": "TBD"}},
		{ItemID: "2", Description: "Wall framing repairs", Values: map[string]string{"Unit": "LF", "Quantity": "TBD"}},
		{ItemID: "3", Description: "Ceiling replacement", Values: map[string]string{"Unit": "SF", "Quantity": "13,450"}},
	}
}

func TestClassifyMajorityVotingZeroComparisonsIsFixed(t *testing.T) {
	c := NewColumnClassifier(&fakeOracle{}, DefaultEngineConfig())

	// vendor has rows but never fills the Quantity column, and the only
	// non-sentinel template quantity has no matching vendor value
	proposals := []ProposalRows{{
		ID: "p1",
		Rows: []models.FormRow{
			{ItemID: "1", Values: map[string]string{"Quantity": "TBD"}},
			{ItemID: "2", Values: map[string]string{"Quantity": ""}},
			{ItemID: "3", Values: map[string]string{"Quantity": "N/A"}},
		},
	}}

	fixed, vendor, ambiguous := c.ClassifyMajorityVoting([]string{"Quantity"}, templateRowsFixture(), proposals)
	if !reflect.DeepEqual(fixed, []string{"Quantity"}) {
		t.Errorf("expected Quantity fixed by zero-comparison default, got fixed=%v vendor=%v ambiguous=%v", fixed, vendor, ambiguous)
	}
}

func TestClassifyMajorityVotingThresholdBoundary(t *testing.T) {
	c := NewColumnClassifier(&fakeOracle{}, DefaultEngineConfig())

	// exactly 2 matches out of 4 comparisons: ratio 0.5 is NOT fixed
	template := []models.FormRow{
		{ItemID: "1", Values: map[string]string{"Unit": "SF"}},
		{ItemID: "2", Values: map[string]string{"Unit": "SF"}},
		{ItemID: "3", Values: map[string]string{"Unit": "SF"}},
		{ItemID: "4", Values: map[string]string{"Unit": "SF"}},
	}
	proposals := []ProposalRows{{
		ID: "p1",
		Rows: []models.FormRow{
			{ItemID: "1", Values: map[string]string{"Unit": "SF"}},
			{ItemID: "2", Values: map[string]string{"Unit": "SF"}},
			{ItemID: "3", Values: map[string]string{"Unit": "LF"}},
			{ItemID: "4", Values: map[string]string{"Unit": "EA"}},
		},
	}}

	fixed, vendor, ambiguous := c.ClassifyMajorityVoting([]string{"Unit"}, template, proposals)
	if len(fixed) != 0 || len(vendor) != 0 || !reflect.DeepEqual(ambiguous, []string{"Unit"}) {
		t.Errorf("ratio 0.5 should be ambiguous, got fixed=%v vendor=%v ambiguous=%v", fixed, vendor, ambiguous)
	}

	// 7 of 13 comparisons match: ratio ~0.538 > 0.5 is FIXED
	template13 := make([]models.FormRow, 13)
	vendorRows := make([]models.FormRow, 13)
	for i := 0; i < 13; i++ {
		id := string(rune('A' + i))
		template13[i] = models.FormRow{ItemID: id, Values: map[string]string{"Description": "repair work"}}
		val := "repair work"
		if i >= 7 {
			val = "different scope"
		}
		vendorRows[i] = models.FormRow{ItemID: id, Values: map[string]string{"Description": val}}
	}
	fixed, vendor, ambiguous = c.ClassifyMajorityVoting([]string{"Description"}, template13, []ProposalRows{{ID: "p1", Rows: vendorRows}})
	if !reflect.DeepEqual(fixed, []string{"Description"}) {
		t.Errorf("7/13 should be fixed, got fixed=%v vendor=%v ambiguous=%v", fixed, vendor, ambiguous)
	}
}

func TestClassifyMajorityVotingSentinelsExcluded(t *testing.T) {
	c := NewColumnClassifier(&fakeOracle{}, DefaultEngineConfig())

	// TBD vs TBD contributes zero comparisons, not a match
	template := []models.FormRow{{ItemID: "1", Values: map[string]string{"Quantity": "TBD"}}}
	proposals := []ProposalRows{{
		ID:   "p1",
		Rows: []models.FormRow{{ItemID: "1", Values: map[string]string{"Quantity": "TBD"}}},
	}}

	fixed, _, _ := c.ClassifyMajorityVoting([]string{"Quantity"}, template, proposals)
	// zero comparisons defaults to fixed, which proves the pair was excluded
	// rather than counted as a match (a counted match would also be fixed,
	// so assert through the vendor-differs case too)
	if !reflect.DeepEqual(fixed, []string{"Quantity"}) {
		t.Fatalf("expected fixed default, got %v", fixed)
	}

	proposals[0].Rows[0].Values["Quantity"] = "500"
	template[0].Values["Quantity"] = "TBD"
	fixed, _, _ = c.ClassifyMajorityVoting([]string{"Quantity"}, template, proposals)
	if !reflect.DeepEqual(fixed, []string{"Quantity"}) {
		t.Errorf("template sentinel must skip comparison entirely, got fixed=%v", fixed)
	}
}

func TestClassifyMajorityVotingIsPure(t *testing.T) {
	c := NewColumnClassifier(&fakeOracle{}, DefaultEngineConfig())
	template := templateRowsFixture()
	proposals := []ProposalRows{{
		ID: "p1",
		Rows: []models.FormRow{
			{ItemID: "1", Values: map[string]string{"Unit": "SF", "Unit Cost": "$4.10"}},
			{ItemID: "2", Values: map[string]string{"Unit": "LF", "Unit Cost": "$7.49"}},
			{ItemID: "3", Values: map[string]string{"Unit": "SF", "Unit Cost": "$9.75"}},
		},
	}}
	candidates := []string{"Unit", "Unit Cost", "Quantity"}

	f1, v1, a1 := c.ClassifyMajorityVoting(candidates, template, proposals)
	for i := 0; i < 5; i++ {
		f2, v2, a2 := c.ClassifyMajorityVoting(candidates, template, proposals)
		if !reflect.DeepEqual(f1, f2) || !reflect.DeepEqual(v1, v2) || !reflect.DeepEqual(a1, a2) {
			t.Fatalf("classification not deterministic: (%v,%v,%v) vs (%v,%v,%v)", f1, v1, a1, f2, v2, a2)
		}
	}
}

func TestClassifyNoVendorDataAllFixed(t *testing.T) {
	c := NewColumnClassifier(&fakeOracle{}, DefaultEngineConfig())
	fixed, vendor, ambiguous := c.ClassifyMajorityVoting([]string{"Item", "Description", "Total"}, templateRowsFixture(), nil)
	if !reflect.DeepEqual(fixed, []string{"Item", "Description", "Total"}) || len(vendor) != 0 || len(ambiguous) != 0 {
		t.Errorf("no vendor data should classify everything fixed, got fixed=%v vendor=%v ambiguous=%v", fixed, vendor, ambiguous)
	}
}

func TestClassifyOracleFallback(t *testing.T) {
	// ratio exactly 0.5 forces the ambiguous path
	template := []models.FormRow{
		{ItemID: "1", Values: map[string]string{"Scope": "roof"}},
		{ItemID: "2", Values: map[string]string{"Scope": "walls"}},
	}
	proposals := []ProposalRows{{
		ID: "p1",
		Rows: []models.FormRow{
			{ItemID: "1", Values: map[string]string{"Scope": "roof"}},
			{ItemID: "2", Values: map[string]string{"Scope": "windows"}},
		},
	}}

	oracle := &fakeOracle{classification: "FIXED"}
	c := NewColumnClassifier(oracle, DefaultEngineConfig())
	fixed, vendor, err := c.Classify(context.Background(), []string{"Scope"}, template, proposals)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(fixed, []string{"Scope"}) || len(vendor) != 0 {
		t.Errorf("oracle FIXED verdict not honored: fixed=%v vendor=%v", fixed, vendor)
	}
	if oracle.calls != 1 {
		t.Errorf("expected exactly one oracle call, got %d", oracle.calls)
	}

	// oracle failure defaults the column to VENDOR and reports the error so
	// the result is not cached
	c = NewColumnClassifier(&fakeOracle{err: errors.New("quota exceeded")}, DefaultEngineConfig())
	fixed, vendor, err = c.Classify(context.Background(), []string{"Scope"}, template, proposals)
	if err == nil {
		t.Error("resolution failure must be reported")
	}
	if len(fixed) != 0 || !reflect.DeepEqual(vendor, []string{"Scope"}) {
		t.Errorf("oracle failure should default to vendor: fixed=%v vendor=%v", fixed, vendor)
	}
}

func TestClassificationCacheFingerprint(t *testing.T) {
	cache := BuildClassificationCache([]string{"Item"}, []string{"Total"}, []string{"p2", "p1"})
	if !reflect.DeepEqual(cache.ProposalIDs, []string{"p1", "p2"}) {
		t.Fatalf("fingerprint not sorted: %v", cache.ProposalIDs)
	}

	if !cache.MatchesFingerprint([]string{"p1", "p2"}) {
		t.Error("same set should match")
	}
	if !cache.MatchesFingerprint([]string{"p2", "p1"}) {
		t.Error("order must not matter")
	}
	if cache.MatchesFingerprint([]string{"p1"}) {
		t.Error("removal must invalidate")
	}
	if cache.MatchesFingerprint([]string{"p1", "p2", "p3"}) {
		t.Error("addition must invalidate")
	}
	if cache.MatchesFingerprint([]string{"p1", "p3"}) {
		t.Error("substitution must invalidate")
	}

	var empty models.ColumnClassification
	if empty.MatchesFingerprint(nil) {
		t.Error("zero cache never matches")
	}
}

func TestCandidateColumns(t *testing.T) {
	structure := models.FormStructure{
		FixedColumns:  []string{"Item", "Description"},
		VendorColumns: []string{"Quantity", "Total"},
		Rows: []models.FormRow{
			{ItemID: "1", Values: map[string]string{"quantity": "TBD", "Unit": "SF"}},
		},
	}
	got := CandidateColumns(structure)
	want := []string{"Item", "Description", "Quantity", "Total", "Unit"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CandidateColumns = %v, want %v", got, want)
	}
}
