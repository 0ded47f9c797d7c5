package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"backend/models"
)

// VendorExtractService extracts a vendor's filled values from its proposal
// document, guided by the RFP's discovered structure.
type VendorExtractService struct {
	oracle StructuredGenerator
	index  SearchIndex
}

// NewVendorExtractService wires the extractor to the oracle and the
// retrieval index.
func NewVendorExtractService(oracle StructuredGenerator, index SearchIndex) *VendorExtractService {
	return &VendorExtractService{oracle: oracle, index: index}
}

// oracle reply shapes; values come back as column/value pairs to survive
// models that repeat keys
type extractedColumnValue struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

type extractedVendorRow struct {
	Section     string                 `json:"section"`
	ItemID      string                 `json:"item_id"`
	Description string                 `json:"description"`
	Values      []extractedColumnValue `json:"values"`
}

type extractedVendorData struct {
	VendorName      string               `json:"vendor_name"`
	VendorContact   string               `json:"vendor_contact"`
	VendorLicense   string               `json:"vendor_license"`
	FilledRows      []extractedVendorRow `json:"filled_rows"`
	GrandTotal      string               `json:"grand_total"`
	ProjectDuration string               `json:"project_duration"`
}

const vendorExtractSystemPrompt = `You are extracting pricing data from a vendor's proposal.

The RFP has the following form structure:
- Sections: %s
- Fixed Columns (from RFP): %s
- VENDOR COLUMNS TO EXTRACT: %s

REFERENCE: These are the line items from the RFP (match your extraction to these):
%s

YOUR TASK:
1. Identify the vendor name, contact info and license number
2. Find the filled pricing table/bid form in the proposal
3. For EACH line item, extract the vendor's values:
   - Match by Item ID (1, 2, 3...) or Description
   - For EACH row, extract one {"column": name, "value": value} entry per vendor column listed above
4. Extract Grand Total and Project Duration if present

VALUE RULES (follow exactly):
- If the value explicitly says "TBD", record the literal string "TBD".
- If the value is unreadable or corrupted in the source, record "". NEVER invent a number.
- If a literal amount is visible, transcribe it exactly as written, including currency symbols. Do not normalize or recompute.
- Include the section for each row.

Respond with a JSON object:
{"vendor_name": string, "vendor_contact": string, "vendor_license": string, "filled_rows": [{"section": string, "item_id": string, "description": string, "values": [{"column": string, "value": string}]}], "grand_total": string, "project_duration": string}`

// vendorContextQuery locates the filled bid form inside a proposal.
const vendorContextQuery = "Bid Form Proposal Price Sheet Unit Cost Total Amount Schedule of Values"

// BuildProposalContext retrieves the vendor document's bid form chunks. When
// the RFP structure has section names they drive the query so the retrieved
// pages line up with the RFP's sections.
func (s *VendorExtractService) BuildProposalContext(ctx context.Context, documentID string, structure models.FormStructure) (string, error) {
	query := vendorContextQuery
	if len(structure.Sections) > 0 {
		query = strings.Join(structure.Sections, " ")
	}
	return buildContextFromIndex(ctx, s.index, documentID, query, 30)
}

func buildContextFromIndex(ctx context.Context, index SearchIndex, documentID, query string, k int) (string, error) {
	results, err := index.Search(ctx, documentID, query, k)
	if err != nil {
		return "", fmt.Errorf("error searching document %s: %v", documentID, err)
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.Text)
	}
	return strings.Join(parts, "\n\n"), nil
}

// ExtractVendorData extracts one vendor's filled rows against the RFP's
// vendor columns. The error return is for the caller's bookkeeping only;
// a failed vendor must degrade to an empty row set and never abort the
// other vendors or the matrix build.
func (s *VendorExtractService) ExtractVendorData(ctx context.Context, proposalContext string, structure models.FormStructure, vendorName string) (models.VendorProposalData, error) {
	vendorColumns := structure.VendorColumns
	if len(vendorColumns) == 0 {
		vendorColumns = []string{"Quantity", "Unit", "Unit Cost", "Total"}
	}

	// Template rows as matching hints, capped to keep the context small
	var rfpItems []string
	for i, row := range structure.Rows {
		if i >= 20 {
			break
		}
		desc := row.Description
		if len(desc) > 80 {
			desc = desc[:80] + "..."
		}
		rfpItems = append(rfpItems, fmt.Sprintf("  - [%s] %s", row.ItemID, desc))
	}
	rfpItemsStr := "No specific line items available"
	if len(rfpItems) > 0 {
		rfpItemsStr = strings.Join(rfpItems, "\n")
	}

	systemPrompt := fmt.Sprintf(vendorExtractSystemPrompt,
		strings.Join(structure.Sections, ", "),
		strings.Join(structure.FixedColumns, ", "),
		strings.Join(vendorColumns, ", "),
		rfpItemsStr)
	userPrompt := fmt.Sprintf("Vendor Proposal Content:\n\n%s\n\nExtract all pricing data for vendor_name=%q.", proposalContext, vendorName)

	var raw extractedVendorData
	if err := s.oracle.GenerateJSON(ctx, systemPrompt, userPrompt, &raw); err != nil {
		log.Printf("Vendor extraction failed for %s: %v", vendorName, err)
		return models.VendorProposalData{VendorName: vendorName, FilledRows: []models.FormRow{}}, err
	}

	data := models.VendorProposalData{
		VendorName:      raw.VendorName,
		VendorContact:   raw.VendorContact,
		VendorLicense:   raw.VendorLicense,
		GrandTotal:      raw.GrandTotal,
		ProjectDuration: raw.ProjectDuration,
		FilledRows:      make([]models.FormRow, 0, len(raw.FilledRows)),
	}
	if data.VendorName == "" {
		data.VendorName = vendorName
	}

	for _, row := range raw.FilledRows {
		data.FilledRows = append(data.FilledRows, models.FormRow{
			Section:     row.Section,
			ItemID:      row.ItemID,
			Description: row.Description,
			Values:      restrictToColumns(row.Values, vendorColumns),
		})
	}
	return data, nil
}

// restrictToColumns maps the extracted pairs onto exactly the requested
// vendor columns, canonicalizing the column names case-insensitively.
// Columns the vendor did not fill are present with an empty value.
func restrictToColumns(pairs []extractedColumnValue, columns []string) map[string]string {
	values := make(map[string]string, len(columns))
	for _, col := range columns {
		values[col] = ""
	}
	for _, pair := range pairs {
		for _, col := range columns {
			if strings.EqualFold(strings.TrimSpace(pair.Column), col) {
				values[col] = strings.TrimSpace(pair.Value)
				break
			}
		}
	}
	return values
}

// ExtractFromDocument runs retrieval plus extraction for one proposal
// document.
func (s *VendorExtractService) ExtractFromDocument(ctx context.Context, documentID string, structure models.FormStructure, vendorName string) (models.VendorProposalData, error) {
	proposalContext, err := s.BuildProposalContext(ctx, documentID, structure)
	if err != nil {
		return models.VendorProposalData{VendorName: vendorName, FilledRows: []models.FormRow{}}, err
	}
	if strings.TrimSpace(proposalContext) == "" {
		return models.VendorProposalData{VendorName: vendorName, FilledRows: []models.FormRow{}},
			fmt.Errorf("no ingested content for document %s", documentID)
	}
	return s.ExtractVendorData(ctx, proposalContext, structure, vendorName)
}
