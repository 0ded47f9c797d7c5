package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"backend/models"
)

func TestExtractVendorDataParsesReply(t *testing.T) {
	reply := `{
		"vendor_name": "Acme Builders",
		"vendor_contact": "bids@acme.com",
		"vendor_license": "CA-10042",
		"filled_rows": [
			{"section": "EXTERIOR REPAIRS", "item_id": "1", "description": "Wall sheathing repairs", "values": [
				{"column": "quantity", "value": "1,200"},
				{"column": "Unit Cost", "value": " $4.10 "},
				{"column": "Total", "value": "$4,920.00"},
				{"column": "Markup", "value": "15%"}
			]}
		],
		"grand_total": "$48,200.00",
		"project_duration": "120 days"
	}`
	s := NewVendorExtractService(&fakeOracle{fill: fillFromJSON(reply)}, &fakeIndex{})
	structure := models.FormStructure{
		Sections:      []string{"EXTERIOR REPAIRS"},
		FixedColumns:  []string{"Item", "Description"},
		VendorColumns: []string{"Quantity", "Unit", "Unit Cost", "Total"},
		Rows:          []models.FormRow{{ItemID: "1", Description: "Wall sheathing repairs"}},
	}

	data, err := s.ExtractVendorData(context.Background(), "proposal content", structure, "Acme")
	if err != nil {
		t.Fatal(err)
	}
	if data.VendorName != "Acme Builders" || data.GrandTotal != "$48,200.00" {
		t.Errorf("vendor fields not carried: %+v", data)
	}
	if len(data.FilledRows) != 1 {
		t.Fatalf("expected 1 filled row, got %d", len(data.FilledRows))
	}

	values := data.FilledRows[0].Values
	// canonical column names, case-insensitive match, trimmed values
	if values["Quantity"] != "1,200" || values["Unit Cost"] != "$4.10" {
		t.Errorf("values not canonicalized: %v", values)
	}
	// unrequested columns dropped, unfilled ones present and empty
	if _, ok := values["Markup"]; ok {
		t.Errorf("column outside the vendor set must be dropped: %v", values)
	}
	if v, ok := values["Unit"]; !ok || v != "" {
		t.Errorf("unfilled vendor column must be present and empty: %v", values)
	}
}

func TestExtractVendorDataOracleFailureDegrades(t *testing.T) {
	s := NewVendorExtractService(&fakeOracle{err: errors.New("quota exceeded")}, &fakeIndex{})

	data, err := s.ExtractVendorData(context.Background(), "content", models.FormStructure{}, "Acme")
	if err == nil {
		t.Fatal("expected the failure to be reported")
	}
	if data.VendorName != "Acme" {
		t.Errorf("fallback vendor name = %q", data.VendorName)
	}
	if data.FilledRows == nil || len(data.FilledRows) != 0 {
		t.Errorf("failed extraction must carry an empty row set, got %v", data.FilledRows)
	}
}

func TestExtractVendorDataDefaultsVendorName(t *testing.T) {
	reply := `{"vendor_name": "", "filled_rows": []}`
	s := NewVendorExtractService(&fakeOracle{fill: fillFromJSON(reply)}, &fakeIndex{})

	data, err := s.ExtractVendorData(context.Background(), "content", models.FormStructure{}, "Bolt Construction")
	if err != nil {
		t.Fatal(err)
	}
	if data.VendorName != "Bolt Construction" {
		t.Errorf("expected caller-supplied fallback name, got %q", data.VendorName)
	}
}

func TestExtractVendorDataPromptCarriesStructure(t *testing.T) {
	var sawSystem, sawUser string
	oracle := &fakeOracle{fill: func(out interface{}) error { return nil }}
	s := NewVendorExtractService(oracle, &fakeIndex{})
	// capture via a wrapper
	s.oracle = oracleFunc(func(_ context.Context, system, user string, _ interface{}) error {
		sawSystem, sawUser = system, user
		return nil
	})

	structure := models.FormStructure{
		Sections:      []string{"EXTERIOR REPAIRS", "ROOFING"},
		VendorColumns: []string{"Unit Cost", "Total"},
		Rows:          []models.FormRow{{ItemID: "1", Description: strings.Repeat("x", 120)}},
	}
	if _, err := s.ExtractVendorData(context.Background(), "content", structure, "Acme"); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(sawSystem, "EXTERIOR REPAIRS, ROOFING") {
		t.Error("sections missing from the extraction prompt")
	}
	if !strings.Contains(sawSystem, "Unit Cost, Total") {
		t.Error("vendor columns missing from the extraction prompt")
	}
	// long descriptions are truncated in the reference list
	if !strings.Contains(sawSystem, "...") || strings.Contains(sawSystem, strings.Repeat("x", 120)) {
		t.Error("reference line items not truncated")
	}
	if !strings.Contains(sawUser, `vendor_name="Acme"`) {
		t.Errorf("vendor name missing from user prompt: %q", sawUser)
	}
}

func TestExtractFromDocumentNoContent(t *testing.T) {
	s := NewVendorExtractService(&fakeOracle{}, &fakeIndex{})
	data, err := s.ExtractFromDocument(context.Background(), "doc-missing", models.FormStructure{}, "Acme")
	if err == nil {
		t.Fatal("expected an error for a document with no ingested content")
	}
	if data.VendorName != "Acme" || len(data.FilledRows) != 0 {
		t.Errorf("degraded result malformed: %+v", data)
	}
}

func TestBuildProposalContextSectionQuery(t *testing.T) {
	index := &fakeIndex{results: map[string][]models.SearchResult{}}
	s := NewVendorExtractService(&fakeOracle{}, index)

	structure := models.FormStructure{Sections: []string{"EXTERIOR", "ROOFING"}}
	if _, err := s.BuildProposalContext(context.Background(), "doc-1", structure); err != nil {
		t.Fatal(err)
	}
	if index.queries[0] != "EXTERIOR ROOFING" {
		t.Errorf("section-driven query = %q", index.queries[0])
	}

	if _, err := s.BuildProposalContext(context.Background(), "doc-1", models.FormStructure{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(index.queries[1], "Bid Form") {
		t.Errorf("default query = %q", index.queries[1])
	}
}

// oracleFunc adapts a function to the StructuredGenerator interface.
type oracleFunc func(ctx context.Context, systemPrompt, userPrompt string, out interface{}) error

func (f oracleFunc) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string, out interface{}) error {
	return f(ctx, systemPrompt, userPrompt, out)
}
