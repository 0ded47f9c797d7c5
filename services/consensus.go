package services

import (
	"log"
	"sort"
	"strings"

	"backend/models"
)

// defaultVendorColumns is the elected column set when the winning vendor's
// rows carry no values at all.
var defaultVendorColumns = []string{"Quantity", "Unit", "Unit Cost", "Total"}

// ElectStructureFromProposals elects a surrogate form structure from the
// vendor submissions when the RFP itself yielded no usable template.
//
// Vendors are grouped by filled-row count; among the counts tied at the
// highest frequency the largest count wins (prefer not truncating data).
// When several vendors share the winning count, the lexicographically
// smallest vendor name wins so the election is deterministic.
func ElectStructureFromProposals(proposals []ProposalRows) (models.FormStructure, bool) {
	candidates := make([]ProposalRows, 0, len(proposals))
	for _, p := range proposals {
		if len(p.Rows) > 0 {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return models.EmptyFormStructure(), false
	}

	counts := map[int]int{}
	for _, p := range candidates {
		counts[len(p.Rows)]++
	}
	maxFreq := 0
	for _, freq := range counts {
		if freq > maxFreq {
			maxFreq = freq
		}
	}
	winnerCount := 0
	for count, freq := range counts {
		if freq == maxFreq && count > winnerCount {
			winnerCount = count
		}
	}

	var winner *ProposalRows
	for i := range candidates {
		p := &candidates[i]
		if len(p.Rows) != winnerCount {
			continue
		}
		if winner == nil || strings.ToLower(p.VendorName) < strings.ToLower(winner.VendorName) {
			winner = p
		}
	}

	log.Printf("Consensus election: counts=%v winner=%s with %d rows", counts, winner.VendorName, winnerCount)

	sample := winner.Rows[0]

	var fixedColumns []string
	if sample.ItemID != "" || sample.GetValue("Item") != "" {
		fixedColumns = append(fixedColumns, "Item")
	}
	if sample.Description != "" || sample.GetValue("Description") != "" {
		fixedColumns = append(fixedColumns, "Description")
	}
	if len(fixedColumns) == 0 {
		fixedColumns = []string{"Item"}
	}

	var vendorColumns []string
	if len(sample.Values) > 0 {
		for k := range sample.Values {
			vendorColumns = append(vendorColumns, k)
		}
		sort.Strings(vendorColumns)
	}
	if len(vendorColumns) == 0 {
		vendorColumns = append([]string(nil), defaultVendorColumns...)
	}

	sectionSet := map[string]bool{}
	var sections []string
	rows := make([]models.FormRow, 0, len(winner.Rows))
	for _, row := range winner.Rows {
		rows = append(rows, models.FormRow{
			Section:     row.Section,
			ItemID:      row.ItemID,
			Description: row.Description,
			Values:      row.Values,
		})
		if row.Section != "" && !sectionSet[row.Section] {
			sectionSet[row.Section] = true
			sections = append(sections, row.Section)
		}
	}
	sort.Strings(sections)

	return models.FormStructure{
		FormTitle:     "Consensus Structure (from " + winner.VendorName + ")",
		Tables:        []models.DiscoveredTable{},
		FixedColumns:  fixedColumns,
		VendorColumns: vendorColumns,
		Sections:      sections,
		Rows:          rows,
	}, true
}
