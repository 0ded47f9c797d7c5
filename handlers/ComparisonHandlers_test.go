package handlers

import (
	"context"
	"reflect"
	"testing"

	"backend/models"
	"backend/services"
)

func extractedProposal(id, vendor string, rows ...models.FormRow) models.Proposal {
	return models.Proposal{
		ID:         id,
		VendorName: vendor,
		Status:     models.ProposalStatusExtracted,
		VendorData: models.VendorProposalData{VendorName: vendor, FilledRows: rows},
	}
}

func receivedProposal(id, vendor string) models.Proposal {
	return models.Proposal{
		ID:         id,
		VendorName: vendor,
		Status:     models.ProposalStatusReceived,
	}
}

func TestExtractedProposalIDsSkipsProposalsWithoutData(t *testing.T) {
	row := models.FormRow{ItemID: "1", Description: "Roof repairs", Values: map[string]string{"Total": "1000"}}
	proposals := []models.Proposal{
		extractedProposal("p1", "Acme", row),
		receivedProposal("p2", "Globex"),
		extractedProposal("p3", "Initech", row),
	}
	got := extractedProposalIDs(proposals)
	want := []string{"p1", "p3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("extractedProposalIDs = %v, want %v", got, want)
	}
}

// A proposal that is registered but not yet extracted must not be part of
// the cache fingerprint. If it were, extracting it later would leave the id
// set unchanged and a classification that never saw that vendor's data
// would keep being served.
func TestLateExtractionInvalidatesClassificationCache(t *testing.T) {
	row := models.FormRow{ItemID: "1", Description: "Roof repairs", Values: map[string]string{"Unit": "LS", "Total": "1000"}}
	p1 := extractedProposal("p1", "Acme", row)
	p2 := extractedProposal("p2", "Globex", row)
	p3 := receivedProposal("p3", "Initech")

	cache := services.BuildClassificationCache(
		[]string{"Item", "Description", "Unit"},
		[]string{"Total"},
		extractedProposalIDs([]models.Proposal{p1, p2, p3}),
	)
	if !reflect.DeepEqual(cache.ProposalIDs, []string{"p1", "p2"}) {
		t.Fatalf("cache fingerprint = %v, want only the extracted ids [p1 p2]", cache.ProposalIDs)
	}
	if !cache.MatchesFingerprint(extractedProposalIDs([]models.Proposal{p1, p2, p3})) {
		t.Error("cache should still match while p3 remains unextracted")
	}

	// p3 gets extracted with its own Unit values; the set changes.
	p3 = extractedProposal("p3", "Initech", models.FormRow{
		ItemID:      "1",
		Description: "Roof repairs",
		Values:      map[string]string{"Unit": "per sq ft", "Total": "2400"},
	})
	if cache.MatchesFingerprint(extractedProposalIDs([]models.Proposal{p1, p2, p3})) {
		t.Error("cache matched after p3 was extracted; its classification never saw p3's data")
	}
}

func TestBuildComparisonMatrixReusesCacheForUnchangedExtractedSet(t *testing.T) {
	row := func(total string) models.FormRow {
		return models.FormRow{ItemID: "1", Description: "Roof repairs", Values: map[string]string{"Unit": "LS", "Total": total}}
	}
	p1 := extractedProposal("p1", "Acme", row("1000"))
	p2 := extractedProposal("p2", "Globex", row("1250"))
	p3 := receivedProposal("p3", "Initech")

	rfp := &models.Rfp{
		ID:    "r1",
		Title: "Building Envelope Repairs",
		FormStructure: models.FormStructure{
			FixedColumns:  []string{"Item", "Description", "Unit"},
			VendorColumns: []string{"Total"},
			Rows:          []models.FormRow{{ItemID: "1", Description: "Roof repairs", Values: map[string]string{"Unit": "LS"}}},
		},
		ComparisonCache: services.BuildClassificationCache(
			[]string{"Item", "Description", "Unit"},
			[]string{"Total"},
			[]string{"p1", "p2"},
		),
	}

	// The engine carries no oracle and no DB handle: a valid cache means
	// neither is touched.
	engine := NewComparisonEngine(nil)
	matrix := buildComparisonMatrix(context.Background(), nil, engine, rfp, []models.Proposal{p1, p2, p3})

	if !reflect.DeepEqual(matrix.FixedColumns, []string{"Item", "Description", "Unit"}) {
		t.Errorf("FixedColumns = %v, cached classification was not reused", matrix.FixedColumns)
	}
	if !reflect.DeepEqual(matrix.VendorColumns, []string{"Total"}) {
		t.Errorf("VendorColumns = %v, cached classification was not reused", matrix.VendorColumns)
	}
	if len(matrix.Proposals) != 3 {
		t.Errorf("got %d proposal summaries, want 3 (unextracted proposals still listed)", len(matrix.Proposals))
	}
}
