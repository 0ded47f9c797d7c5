package services

import (
	"reflect"
	"testing"

	"backend/models"
)

func wallRepairStructure() models.FormStructure {
	return models.FormStructure{
		FormTitle:     "Exterior Wall Repairs",
		FixedColumns:  []string{"Item", "Description", "Unit"},
		VendorColumns: []string{"Quantity", "Unit Cost", "Total"},
		Rows: []models.FormRow{
			{ItemID: "1", Description: "Wall sheathing repairs", Values: map[string]string{"Unit": "SF", "Quantity": "TBD"}},
			{ItemID: "2", Description: "Wall framing repairs", Values: map[string]string{"Unit": "LF", "Quantity": "250"}},
			{ItemID: "3", Description: "Window flashing replacement", Values: map[string]string{"Unit": "EA", "Quantity": "48"}},
		},
	}
}

func wallRepairClassification() models.ColumnClassification {
	return models.ColumnClassification{
		FixedColumns:  []string{"Item", "Description", "Unit"},
		VendorColumns: []string{"Quantity", "Unit Cost", "Total"},
	}
}

func TestBuildAlignsByItemID(t *testing.T) {
	b := NewMatrixBuilder(DefaultEngineConfig())
	proposals := []ProposalRows{{
		ID:         "p1",
		VendorName: "Acme",
		Rows: []models.FormRow{
			// deliberately out of order: item id wins over position
			{ItemID: "2", Description: "Framing", Values: map[string]string{"Quantity": "250", "Unit Cost": "$7.49", "Total": "$1,872.50"}},
			{ItemID: "1", Description: "Sheathing", Values: map[string]string{"Quantity": "1,200", "Unit Cost": "$4.10", "Total": "$4,920.00"}},
			{ItemID: "3", Description: "Flashing", Values: map[string]string{"Quantity": "48", "Unit Cost": "$95.00", "Total": "$4,560.00"}},
		},
	}}

	matrix := b.Build("Exterior Wall Repairs", wallRepairStructure(), wallRepairClassification(), proposals)

	if len(matrix.Rows) != 4 {
		t.Fatalf("expected len(template)+1 rows, got %d", len(matrix.Rows))
	}
	first := matrix.Rows[0].VendorValues["p1"]
	if first["Unit Cost"] != "$4.10" {
		t.Errorf("row 1 should carry item 1's unit cost, got %q", first["Unit Cost"])
	}
	if !matrix.Rows[3].IsGrandTotal {
		t.Error("last row must be the grand-total row")
	}
}

func TestBuildNotQuotedAndFallbacks(t *testing.T) {
	b := NewMatrixBuilder(DefaultEngineConfig())
	proposals := []ProposalRows{{
		ID:         "p1",
		VendorName: "Acme",
		Rows: []models.FormRow{
			// leaves Quantity blank: the template value must fill it
			{ItemID: "2", Description: "Framing", Values: map[string]string{"Quantity": "", "Unit Cost": "$7.49", "Total": "$1,872.50"}},
		},
	}}

	matrix := b.Build("Exterior Wall Repairs", wallRepairStructure(), wallRepairClassification(), proposals)

	// item 1 aligns positionally to the vendor's only row (index 0), so
	// only item 3 is beyond both id match and position
	row3 := matrix.Rows[2].VendorValues["p1"]
	for _, col := range []string{"Quantity", "Unit Cost", "Total"} {
		if row3[col] != NotQuoted {
			t.Errorf("unmatched row column %s = %q, want %q", col, row3[col], NotQuoted)
		}
	}

	row2 := matrix.Rows[1].VendorValues["p1"]
	if row2["Quantity"] != "250" {
		t.Errorf("blank vendor value should fall back to the template value, got %q", row2["Quantity"])
	}

	// no vendor value, no template value: render "-"
	row1 := matrix.Rows[0].VendorValues["p1"]
	if row1["Unit Cost"] == "" {
		t.Error("matrix cells are never empty strings")
	}
}

func TestBuildGrandTotalSkipsSentinels(t *testing.T) {
	b := NewMatrixBuilder(DefaultEngineConfig())
	structure := models.FormStructure{
		FixedColumns:  []string{"Item", "Description"},
		VendorColumns: []string{"Total"},
		Rows: []models.FormRow{
			{ItemID: "1", Description: "Mobilization"},
			{ItemID: "2", Description: "Demolition"},
			{ItemID: "3", Description: "Cleanup"},
		},
	}
	classification := models.ColumnClassification{
		FixedColumns:  []string{"Item", "Description"},
		VendorColumns: []string{"Total"},
	}
	proposals := []ProposalRows{{
		ID:         "p1",
		VendorName: "Acme",
		Rows: []models.FormRow{
			{ItemID: "1", Values: map[string]string{"Total": "$1,234.56"}},
			{ItemID: "2", Values: map[string]string{"Total": "TBD"}},
			{ItemID: "3", Values: map[string]string{"Total": "$500.00"}},
		},
	}}

	matrix := b.Build("Repairs", structure, classification, proposals)
	total := matrix.Rows[len(matrix.Rows)-1]
	if !total.IsGrandTotal {
		t.Fatal("expected grand-total row last")
	}
	if got := total.VendorValues["p1"]["Total"]; got != "$1,734.56" {
		t.Errorf("grand total = %q, want $1,734.56", got)
	}
	if total.FixedValues["Description"] != "GRAND TOTAL" {
		t.Errorf("grand-total label missing, fixed values: %v", total.FixedValues)
	}
}

func TestBuildGrandTotalZeroWhenNothingParsed(t *testing.T) {
	b := NewMatrixBuilder(DefaultEngineConfig())
	structure := models.FormStructure{
		FixedColumns:  []string{"Description"},
		VendorColumns: []string{"Total"},
		Rows:          []models.FormRow{{Description: "Mobilization"}},
	}
	classification := models.ColumnClassification{
		FixedColumns:  []string{"Description"},
		VendorColumns: []string{"Total"},
	}
	proposals := []ProposalRows{{ID: "p1", VendorName: "Acme"}}

	matrix := b.Build("Repairs", structure, classification, proposals)
	total := matrix.Rows[len(matrix.Rows)-1]
	if got := total.VendorValues["p1"]["Total"]; got != "$0.00" {
		t.Errorf("empty vendor grand total = %q, want $0.00", got)
	}
}

func TestFindBestMatchRowStrictThreshold(t *testing.T) {
	b := NewMatrixBuilder(EngineConfig{VoteThreshold: 0.5, FuzzyMatchThreshold: 0.6})
	template := models.FormRow{Description: "abcdefghij"}

	// identical halves: ratio exactly 0.6 must be rejected (strict >)
	atThreshold := []models.FormRow{{Description: "abcdefpqrs", Values: map[string]string{"Total": "$1.00"}}}
	if got := b.findBestMatchRow(template, atThreshold); got != nil {
		t.Errorf("similarity exactly at threshold must not match, got %+v", got)
	}

	above := []models.FormRow{{Description: "abcdefghij repairs", Values: map[string]string{"Total": "$1.00"}}}
	if got := b.findBestMatchRow(template, above); got == nil {
		t.Error("similarity above threshold should match")
	}
}

func TestBuildDeterministic(t *testing.T) {
	b := NewMatrixBuilder(DefaultEngineConfig())
	proposals := []ProposalRows{
		{ID: "p1", VendorName: "Acme", Rows: []models.FormRow{{ItemID: "1", Values: map[string]string{"Total": "$10.00"}}}},
		{ID: "p2", VendorName: "Bolt", Rows: []models.FormRow{{ItemID: "1", Values: map[string]string{"Total": "$12.00"}}}},
	}
	structure := wallRepairStructure()
	structure.Rows = structure.Rows[:1]
	classification := wallRepairClassification()

	first := b.Build("Repairs", structure, classification, proposals)
	for i := 0; i < 5; i++ {
		if again := b.Build("Repairs", structure, classification, proposals); !reflect.DeepEqual(first, again) {
			t.Fatal("matrix build is not deterministic")
		}
	}
}

func TestParseCurrency(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"$1,234.56", 1234.56, true},
		{" $ 500.00 ", 500, true},
		{"13,450", 13450, true},
		{"TBD", 0, false},
		{"N/A", 0, false},
		{"$-", 0, false},
		{"-", 0, false},
		{"", 0, false},
		{"Not Quoted", 0, false},
		{"twelve", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseCurrency(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseCurrency(%q) = (%v, %v), want (%v, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFormatCurrency(t *testing.T) {
	cases := map[float64]string{
		0:          "$0.00",
		1734.56:    "$1,734.56",
		1234567.89: "$1,234,567.89",
		-42.5:      "-$42.50",
		999:        "$999.00",
	}
	for in, want := range cases {
		if got := FormatCurrency(in); got != want {
			t.Errorf("FormatCurrency(%v) = %q, want %q", in, got, want)
		}
	}
}
