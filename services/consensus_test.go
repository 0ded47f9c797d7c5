package services

import (
	"reflect"
	"strings"
	"testing"

	"backend/models"
)

func proposalWithRows(id, vendor string, n int) ProposalRows {
	rows := make([]models.FormRow, n)
	for i := range rows {
		rows[i] = models.FormRow{
			Section:     "DIVISION 1",
			ItemID:      string(rune('1' + i)),
			Description: "line item",
			Values:      map[string]string{"Quantity": "10", "Total": "$100.00"},
		}
	}
	return ProposalRows{ID: id, VendorName: vendor, Rows: rows}
}

func TestElectStructurePrefersLargerCountOnFrequencyTie(t *testing.T) {
	// 20 appears twice, 25 once: frequency picks 20... except both
	// frequencies tie only when equal. Here freq(20)=2 > freq(25)=1.
	proposals := []ProposalRows{
		proposalWithRows("a", "Acme", 20),
		proposalWithRows("b", "Bolt", 20),
		proposalWithRows("c", "Crest", 25),
	}
	structure, ok := ElectStructureFromProposals(proposals)
	if !ok {
		t.Fatal("expected an elected structure")
	}
	if len(structure.Rows) != 20 {
		t.Errorf("most frequent row count should win, got %d rows", len(structure.Rows))
	}

	// all counts distinct: every frequency is 1, the largest count wins
	proposals = []ProposalRows{
		proposalWithRows("a", "Acme", 20),
		proposalWithRows("b", "Bolt", 22),
		proposalWithRows("c", "Crest", 25),
	}
	structure, ok = ElectStructureFromProposals(proposals)
	if !ok {
		t.Fatal("expected an elected structure")
	}
	if len(structure.Rows) != 25 {
		t.Errorf("largest count should break the frequency tie, got %d rows", len(structure.Rows))
	}
}

func TestElectStructureDeterministicVendorTieBreak(t *testing.T) {
	proposals := []ProposalRows{
		proposalWithRows("b", "zeta Builders", 10),
		proposalWithRows("a", "Alpha Construction", 10),
	}
	structure, ok := ElectStructureFromProposals(proposals)
	if !ok {
		t.Fatal("expected an elected structure")
	}
	if !strings.Contains(structure.FormTitle, "Alpha Construction") {
		t.Errorf("lexicographically smallest vendor should win, got title %q", structure.FormTitle)
	}

	// same inputs in the other order elect the same winner
	reversed := []ProposalRows{proposals[1], proposals[0]}
	again, _ := ElectStructureFromProposals(reversed)
	if again.FormTitle != structure.FormTitle {
		t.Errorf("election not order-independent: %q vs %q", again.FormTitle, structure.FormTitle)
	}
}

func TestElectStructureColumnsAndSections(t *testing.T) {
	p := ProposalRows{
		ID:         "p1",
		VendorName: "Acme",
		Rows: []models.FormRow{
			{Section: "SITE WORK", ItemID: "1", Description: "Mobilization", Values: map[string]string{"Unit Cost": "$500.00", "Total": "$500.00"}},
			{Section: "CARPENTRY", ItemID: "2", Description: "Framing", Values: map[string]string{"Unit Cost": "$7.49", "Total": "$1,200.00"}},
		},
	}
	structure, ok := ElectStructureFromProposals([]ProposalRows{p})
	if !ok {
		t.Fatal("expected an elected structure")
	}
	if !reflect.DeepEqual(structure.FixedColumns, []string{"Item", "Description"}) {
		t.Errorf("fixed columns = %v", structure.FixedColumns)
	}
	if !reflect.DeepEqual(structure.VendorColumns, []string{"Total", "Unit Cost"}) {
		t.Errorf("vendor columns should be the sorted sample keys, got %v", structure.VendorColumns)
	}
	if !reflect.DeepEqual(structure.Sections, []string{"CARPENTRY", "SITE WORK"}) {
		t.Errorf("sections = %v", structure.Sections)
	}
}

func TestElectStructureDefaultVendorColumns(t *testing.T) {
	p := ProposalRows{
		ID:         "p1",
		VendorName: "Acme",
		Rows:       []models.FormRow{{ItemID: "1", Description: "Lump sum bid"}},
	}
	structure, ok := ElectStructureFromProposals([]ProposalRows{p})
	if !ok {
		t.Fatal("expected an elected structure")
	}
	if !reflect.DeepEqual(structure.VendorColumns, []string{"Quantity", "Unit", "Unit Cost", "Total"}) {
		t.Errorf("expected default vendor columns, got %v", structure.VendorColumns)
	}
}

func TestElectStructureNoUsableProposals(t *testing.T) {
	proposals := []ProposalRows{
		{ID: "p1", VendorName: "Acme"},
		{ID: "p2", VendorName: "Bolt", Rows: []models.FormRow{}},
	}
	structure, ok := ElectStructureFromProposals(proposals)
	if ok {
		t.Fatal("no vendor rows must not elect a structure")
	}
	if !structure.IsEmpty() {
		t.Errorf("expected the empty structure, got %+v", structure)
	}
}
